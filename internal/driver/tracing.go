// Tracing instrumentation for the scheduler.
package driver

import (
	"context"

	"github.com/vinayprograms/agentkit/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vinayprograms/pursuit/internal/controller"
)

// startRunSpan starts a span covering a whole Run call.
func startRunSpan(ctx context.Context, s controller.State) (context.Context, trace.Span) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSpan(ctx, "pursuit.run")
	span.SetAttributes(
		attribute.String("run.id", s.RunID),
		attribute.Int("run.subgoals", len(s.Subgoals)),
		attribute.Int("run.max_iterations", s.Config.MaxIterations),
	)
	return ctx, span
}

// endRunSpan ends the run span with the final status.
func endRunSpan(span trace.Span, s controller.State, err error) {
	span.SetAttributes(
		attribute.String("run.status", string(s.Status)),
		attribute.Int("run.iterations", s.Iteration),
	)
	if s.Reason != "" {
		span.SetAttributes(attribute.String("run.reason", s.Reason))
	}
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// startStepSpan starts a span for one step.
func startStepSpan(ctx context.Context, src controller.Source, s controller.State) (context.Context, trace.Span) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSpan(ctx, "pursuit.step")
	span.SetAttributes(
		attribute.String("run.id", s.RunID),
		attribute.String("step.source", string(src)),
		attribute.Int("step.iteration", s.Iteration+1),
	)
	return ctx, span
}

// endStepSpan ends the step span. In debug mode the decision text is attached.
func endStepSpan(span trace.Span, next controller.State) {
	span.SetAttributes(
		attribute.String("step.status", string(next.Status)),
		attribute.Float64("run.progress", next.Progress()),
		attribute.Int("run.stagnation", next.StagnationCounter),
	)
	tracer := telemetry.GetTracer()
	if tracer.Debug() && len(next.Logs) > 0 {
		span.SetAttributes(attribute.String("step.decision", next.Logs[len(next.Logs)-1].Content))
	}
	span.End()
}
