// Package observability wires OpenTelemetry tracing and metrics into the
// client.
//
// Providers are optional. Without InitTracer and InitMeter the global no-op
// providers are used and every instrument is free.
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("billing"))
//	defer tp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("restkit"))
//
// A Call is wrapped in an Operation, which owns the "rest.call" span and
// the call counters:
//
//	ctx, op := observability.StartOperation(ctx, observability.SpanCall, "GitHub", "GitHub.Repos", metrics)
//	defer op.End(ctx, status, err)
package observability
