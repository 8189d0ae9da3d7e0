package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "agentforge"

// StartPipelineSpan starts a span covering one prompt-to-agent build.
func StartPipelineSpan(ctx context.Context, agentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "pipeline",
		trace.WithAttributes(
			attribute.String("agent.id", agentID),
		),
	)
}

// StartStepSpan starts a span for one pipeline step (extract, design,
// select, materialize, deploy).
func StartStepSpan(ctx context.Context, step, agentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, step,
		trace.WithAttributes(
			attribute.String("pipeline.step", step),
			attribute.String("agent.id", agentID),
		),
	)
}

// StartLLMSpan starts a span for one chat-completion call.
func StartLLMSpan(ctx context.Context, purpose string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "llm.complete",
		trace.WithAttributes(
			attribute.String("llm.purpose", purpose),
		),
	)
}
