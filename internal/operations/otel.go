package operations

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"napsidx/internal/infrastructure"
)

const (
	TracerName = "napsidx.operations"
)

// OperationTracer wraps runs and steps in spans and records step metrics.
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer uses the global tracer provider. metrics may be nil.
func NewOperationTracer(metrics *infrastructure.PipelineMetrics) *OperationTracer {
	return &OperationTracer{
		tracer:  otel.Tracer(TracerName),
		metrics: metrics,
	}
}

// TraceOperation creates a span for the entire run
func (t *OperationTracer) TraceOperation(ctx context.Context, state *OperationState, order []string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "operation.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", state.ID),
			attribute.StringSlice("operation.steps", order),
			attribute.IntSlice("operation.years", state.Request.Years),
			attribute.IntSlice("operation.sites", state.Request.Sites),
		),
	)
}

// TraceStep creates a span for one step execution
func (t *OperationTracer) TraceStep(ctx context.Context, operationID string, step Step) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "operation.step."+step.ID(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", step.ID()),
			attribute.String("step.name", step.Name()),
		),
	)
}

// RecordStepCompletion closes the step span and records its duration.
func (t *OperationTracer) RecordStepCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	if err != nil {
		infrastructure.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	t.metrics.Step(ctx, stepID, duration, err)
	span.End()
}

// RecordOperationCompletion closes the run span.
func (t *OperationTracer) RecordOperationCompletion(ctx context.Context, span trace.Span, state *OperationState) {
	span.SetAttributes(
		attribute.String("operation.status", string(state.Status)),
		attribute.Float64("operation.duration_seconds", state.Duration().Seconds()),
	)
	if state.Error != nil {
		infrastructure.RecordError(ctx, state.Error)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
