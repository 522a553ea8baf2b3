// Package otel provides OpenTelemetry instrumentation for LeadEngine.
// Tracing setup is a stub until an OTLP collector is part of the deploy.
package otel

import (
	"context"
	"log/slog"
)

// ShutdownFunc is called to flush and shut down the trace provider.
type ShutdownFunc func(ctx context.Context) error

// InitTracer returns a no-op shutdown function. Spans are still created
// by the HTTP middleware and picked up once a real provider is wired.
func InitTracer(serviceName string) ShutdownFunc {
	slog.Info("otel tracer not configured, spans are no-op", "service", serviceName)
	return func(_ context.Context) error {
		return nil
	}
}
