package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation tracks one traced and measured unit of work, such as a single
// execution of a service method.
type Operation struct {
	Service   string
	Method    string
	StartTime time.Time

	span    trace.Span
	metrics *Metrics
}

type operationKey struct{}

// StartOperation starts a span named spanName and records the start metric.
// metrics may be nil.
func StartOperation(ctx context.Context, spanName, service, method string, metrics *Metrics) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrService, service),
			attribute.String(AttrMethod, method),
		),
	)
	op := &Operation{
		Service:   service,
		Method:    method,
		StartTime: time.Now(),
		span:      span,
		metrics:   metrics,
	}
	metrics.RecordCallStart(ctx, method)
	return context.WithValue(ctx, operationKey{}, op), op
}

// OperationFromContext returns the Operation started on ctx, or nil.
func OperationFromContext(ctx context.Context) *Operation {
	op, _ := ctx.Value(operationKey{}).(*Operation)
	return op
}

// End closes the span and records the outcome.
func (op *Operation) End(ctx context.Context, status string, err error) {
	duration := op.Duration()
	if err != nil {
		op.span.RecordError(err)
		op.span.SetStatus(codes.Error, err.Error())
	}
	op.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	op.span.End()
	op.metrics.RecordCallEnd(ctx, op.Service, op.Method, status, duration)
}

// Span returns the operation span.
func (op *Operation) Span() trace.Span { return op.span }

// Duration returns the time elapsed since the operation started.
func (op *Operation) Duration() time.Duration {
	return time.Since(op.StartTime)
}
