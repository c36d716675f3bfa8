package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartJobSpan opens the root span for one scheduler run.
func StartJobSpan(ctx context.Context, job, runID string) (context.Context, trace.Span) {
	return otel.Tracer("netbill/scheduler").Start(ctx, "job "+job,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("job", job),
			attribute.String("run_id", runID),
		),
	)
}

// EndJobSpan records the run outcome and closes the span.
func EndJobSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
