package operations

import (
	"context"
	"log/slog"
	"time"
)

// logOperationStart logs the start of a run
func (m *Manager) logOperationStart(ctx context.Context, state *OperationState, order []string) {
	m.logger.InfoContext(ctx, "operation started",
		slog.String("operation_id", state.ID),
		slog.Any("steps", order),
		slog.Any("years", state.Request.Years),
		slog.Any("sites", state.Request.Sites))
}

// logOperationComplete logs the outcome of a run
func (m *Manager) logOperationComplete(ctx context.Context, state *OperationState) {
	level := slog.LevelInfo
	if state.Status != OperationStatusCompleted {
		level = slog.LevelError
	}
	m.logger.Log(ctx, level, "operation finished",
		slog.String("operation_id", state.ID),
		slog.String("status", string(state.Status)),
		slog.Duration("duration", state.Duration()))
}

// logOperationError logs a run that could not start
func (m *Manager) logOperationError(ctx context.Context, operationID string, err error) {
	m.logger.ErrorContext(ctx, "operation error",
		slog.String("operation_id", operationID),
		slog.String("error", err.Error()))
}

func (m *Manager) logStepStart(ctx context.Context, operationID, stepID string, attempt int) {
	m.logger.DebugContext(ctx, "step started",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.Int("attempt", attempt))
}

func (m *Manager) logStepComplete(ctx context.Context, operationID, stepID string, duration time.Duration, metadata map[string]any) {
	attrs := []any{
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.Duration("duration", duration),
	}
	for k, v := range metadata {
		attrs = append(attrs, slog.Any(k, v))
	}
	m.logger.InfoContext(ctx, "step completed", attrs...)
}

func (m *Manager) logStepError(ctx context.Context, operationID, stepID string, err error) {
	m.logger.ErrorContext(ctx, "step failed",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.String("error_type", string(GetErrorType(err))),
		slog.String("error", err.Error()))
}
