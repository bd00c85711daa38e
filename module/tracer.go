package module

import "context"

// Tracer starts a span for a named operation and returns the (possibly
// derived) context carrying it along with a finish func that must be
// called exactly once, when the traced operation completes. The
// production implementation is supplied externally (an OpenTracing or
// OpenTelemetry exporter); this module depends only on the interface, the
// same way the teacher's engines depend on module.Tracer rather than a
// concrete tracing backend.
type Tracer interface {
	StartSpan(ctx context.Context, operationName string) (context.Context, func())
}

// NoopTracer discards every span it is asked to start. It is the default
// wherever a caller leaves a Tracer field unset.
type NoopTracer struct{}

var _ Tracer = NoopTracer{}

func (NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, func()) {
	return ctx, func() {}
}
