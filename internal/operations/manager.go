package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"napsidx/internal/infrastructure"
)

// Manager runs registered steps in dependency order.
type Manager struct {
	registry *Registry
	config   *Config
	tracer   *OperationTracer
	logger   *slog.Logger
}

// NewManager creates a manager. A nil config or tracer gets the defaults.
func NewManager(registry *Registry, config *Config, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if tracer == nil {
		tracer = NewOperationTracer(nil)
	}
	return &Manager{
		registry: registry,
		config:   config,
		tracer:   tracer,
		logger:   infrastructure.WithComponent(logger, "operations"),
	}
}

// GetRegistry returns the registry for accessing registered steps
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Execute runs the requested steps. The returned response is never nil;
// the error is the first step failure.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	if req.ID == "" {
		req.ID = infrastructure.GetTraceID(ctx)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	ids := req.Steps
	if len(ids) == 0 {
		ids = DefaultPipeline
	}

	state := NewOperationState(req)
	steps, err := m.registry.Plan(ids)
	if err != nil {
		m.logOperationError(ctx, req.ID, err)
		state.Fail(err)
		return m.createResponse(state, nil), err
	}

	order := make([]string, len(steps))
	for i, step := range steps {
		state.SetStep(step.ID(), NewStepState(step.ID(), step.Name()))
		order[i] = step.ID()
	}

	ctx, span := m.tracer.TraceOperation(ctx, state, order)
	m.logOperationStart(ctx, state, order)
	state.Start()

	err = m.executeSequential(ctx, state, steps)
	switch {
	case err == nil:
		state.Complete()
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel(err)
	default:
		state.Fail(err)
	}

	m.tracer.RecordOperationCompletion(ctx, span, state)
	m.logOperationComplete(ctx, state)
	return m.createResponse(state, order), err
}

// executeSequential runs steps one by one. Without ContinueOnError the
// first failure ends the run; with it, only dependents of a failed step
// are skipped and the first failure is returned at the end.
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	var firstErr error
	for i, step := range steps {
		stepState := state.GetStep(step.ID())

		if err := ctx.Err(); err != nil {
			cancelled := NewCancellationError(step.ID(), err)
			m.skipRemaining(state, steps[i:], "operation cancelled")
			m.logger.WarnContext(ctx, "operation cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			return cancelled
		}

		if stepState.GetStatus() == StepStatusSkipped {
			m.logger.InfoContext(ctx, "step skipped",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("reason", stepState.Message))
			continue
		}

		m.logger.InfoContext(ctx, "executing step",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		err := m.executeStep(ctx, state, step)
		if err == nil {
			continue
		}
		m.logStepError(ctx, state.ID, step.ID(), err)
		m.skipDependents(state, step.ID())

		if GetErrorType(err) == ErrorTypeCancellation {
			m.skipRemaining(state, steps[i+1:], "operation cancelled")
			return err
		}
		if !m.config.ContinueOnError {
			m.skipRemaining(state, steps[i+1:], fmt.Sprintf("step %s failed", step.ID()))
			return err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// executeStep validates and runs one step, retrying retryable failures.
func (m *Manager) executeStep(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStep(step.ID())

	if err := step.Validate(state); err != nil {
		verr := NewValidationError(step.ID(), err)
		stepState.Fail(verr)
		return verr
	}

	timeout := m.config.GetStepTimeout(step.ID())
	retry := m.config.RetryConfig
	attempts := max(retry.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		stepState.Start()
		m.logStepStart(ctx, state.ID, step.ID(), attempt)

		err := m.runAttempt(ctx, state, step, timeout)
		if err == nil {
			stepState.Complete()
			m.logStepComplete(ctx, state.ID, step.ID(), stepState.Duration(), stepState.Metadata)
			return nil
		}
		lastErr = err

		if !IsRetryable(err) || attempt == attempts {
			break
		}

		delay := m.calculateRetryDelay(attempt, retry)
		m.logger.WarnContext(ctx, "step retry",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			lastErr = NewCancellationError(step.ID(), ctx.Err())
			stepState.Fail(lastErr)
			return lastErr
		}
	}

	wrapped := WrapError(lastErr, step.ID(), "step execution failed")
	stepState.Fail(wrapped)
	return wrapped
}

func (m *Manager) runAttempt(ctx context.Context, state *OperationState, step Step, timeout time.Duration) error {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stepCtx, span := m.tracer.TraceStep(stepCtx, state.ID, step)
	start := time.Now()
	err := step.Execute(stepCtx, state)

	if err != nil {
		switch {
		case ctx.Err() != nil:
			err = NewCancellationError(step.ID(), err)
		case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
			err = NewTimeoutError(step.ID(), timeout.String())
		}
	}
	m.tracer.RecordStepCompletion(stepCtx, span, step.ID(), time.Since(start), err)
	return err
}

// skipDependents marks pending steps that depend on failedID as skipped
func (m *Manager) skipDependents(state *OperationState, failedID string) {
	for _, id := range m.registry.GetDependents(failedID) {
		if s := state.GetStep(id); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(NewDependencyError(id, failedID).Error())
		}
	}
}

func (m *Manager) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		if s := state.GetStep(step.ID()); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
		}
	}
}

// calculateRetryDelay grows the delay geometrically up to MaxDelay
func (m *Manager) calculateRetryDelay(attempt int, config RetryConfig) time.Duration {
	delay := config.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * config.Multiplier)
	}
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

func (m *Manager) createResponse(state *OperationState, order []string) *OperationResponse {
	resp := &OperationResponse{
		ID:       state.ID,
		Status:   state.Status,
		Duration: state.Duration(),
		Order:    order,
		Steps:    state.Steps,
	}
	if state.Error != nil {
		resp.Error = state.Error.Error()
	}
	return resp
}
