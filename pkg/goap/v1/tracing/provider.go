package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TracerProvider is the tracing surface used by the planner. It lets an
// embedder route planning spans into an existing OpenTelemetry pipeline.
type TracerProvider interface {
	// GetTracer returns a named tracer, mirroring trace.TracerProvider.
	GetTracer(name string, opts ...trace.TracerOption) trace.Tracer

	// Shutdown flushes buffered spans. No-op providers return nil.
	Shutdown(ctx context.Context) error
}
