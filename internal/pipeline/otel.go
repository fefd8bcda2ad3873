package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "retailkpi.pipeline"

// runTracer wraps the pipeline's OpenTelemetry spans. Only the API is used;
// span export is whatever tracer provider the host process installs.
type runTracer struct {
	tracer trace.Tracer
}

func newRunTracer() *runTracer {
	return &runTracer{tracer: otel.Tracer(tracerName)}
}

// startRun opens the span covering an entire pipeline run.
func (rt *runTracer) startRun(ctx context.Context, runID, engine string) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pipeline.run_id", runID),
			attribute.String("pipeline.engine", engine),
		),
	)
}

// startStage opens a span for one pipeline stage.
func (rt *runTracer) startStage(ctx context.Context, runID, stage string) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "pipeline.stage."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pipeline.run_id", runID),
			attribute.String("pipeline.stage", stage),
		),
	)
}

// endSpan records the outcome on a span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
