//go:build !otel

package telemetry

import (
	"context"
	"log/slog"
)

// Setup is the default, tag-free build: tracing stays off and every
// Tracer.Start call resolves to the OTel API's built-in no-op provider.
func Setup(ctx context.Context, log *slog.Logger) (Shutdown, error) {
	if log != nil {
		log.Debug("otel tracing disabled (build without -tags otel)")
	}
	return noopShutdown, nil
}
