// Package telemetry provides the tracer neko's agent turns, tool calls, and
// cron fires instrument themselves with. The SDK/exporter wiring is
// compiled in only with the "otel" build tag (otel_enabled.go); without it,
// otel_disabled.go installs nothing and every Tracer.Start call is the
// OpenTelemetry API's own zero-cost no-op, matching the teacher's
// `cmd/gateway.go` comment: "OTel OTLP export: compiled via build tags.
// Build with 'go build -tags otel' to enable."
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName identifies this process to the configured OTLP backend.
const ServiceName = "neko"

// Tracer is the shared tracer every instrumented component starts spans
// from. It resolves through the global TracerProvider, so it is a safe
// no-op until Setup installs a real SDK provider.
var Tracer = otel.Tracer(ServiceName)

// Shutdown flushes and stops the tracer provider installed by Setup.
type Shutdown func(context.Context) error

var noopShutdown Shutdown = func(context.Context) error { return nil }

// StartSpan starts a child span named name with the given attributes.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndWithError records err on span (if non-nil) and sets the span status
// before the caller's deferred span.End().
func EndWithError(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
