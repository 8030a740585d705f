package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/xraph/formrelay"

// Tracer provides OpenTelemetry tracing for relayed submissions.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a tracer from the global provider.
func NewTracer() *Tracer {
	return NewTracerFromProvider(otel.GetTracerProvider())
}

// NewTracerFromProvider creates a tracer from tp.
func NewTracerFromProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(tracerName)}
}

// StartRelaySpan starts a span covering one submission.
func (t *Tracer) StartRelaySpan(ctx context.Context, submissionID, responseID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "formrelay.relay",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("formrelay.submission_id", submissionID),
			attribute.String("formrelay.response_id", responseID),
		),
	)
}

// EndRelaySpan ends a relay span with result attributes. The destination
// URL is never recorded since it carries the secret.
func (t *Tracer) EndRelaySpan(span trace.Span, statusCode, latencyMs int, err string) {
	if statusCode > 0 {
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
	span.SetAttributes(attribute.Int("formrelay.latency_ms", latencyMs))
	if err != "" {
		span.SetAttributes(attribute.String("formrelay.error", err))
		span.SetStatus(codes.Error, err)
	}
	span.End()
}
