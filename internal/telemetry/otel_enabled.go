//go:build otel

package telemetry

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Setup installs a real OTLP span exporter, selected by
// OTEL_EXPORTER_OTLP_PROTOCOL ("grpc", the default, or "http/protobuf"),
// pointed at OTEL_EXPORTER_OTLP_ENDPOINT (default "localhost:4317"/":4318").
// Grounded on _examples/nevindra-oasis/observer/provider.go's
// exporter-then-TracerProvider-then-otel.SetTracerProvider shape.
func Setup(ctx context.Context, log *slog.Logger) (Shutdown, error) {
	client, err := newExporterClient()
	if err != nil {
		return noopShutdown, err
	}

	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return noopShutdown, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(ServiceName),
	))
	if err != nil {
		return noopShutdown, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	Tracer = otel.Tracer(ServiceName)

	if log != nil {
		log.Info("otel tracing enabled", "endpoint", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	}

	return tp.Shutdown, nil
}

func newExporterClient() (otlptrace.Client, error) {
	proto := strings.ToLower(os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"))
	if strings.Contains(proto, "http") {
		return otlptracehttp.NewClient(), nil
	}
	return otlptracegrpc.NewClient(), nil
}
