package infrastructure

import "context"

// traceKey is the private context key for the request trace ID. Handlers
// never touch it directly; the middleware stores the ID and the logging
// handler reads it back.
type traceKey struct{}

// WithTraceID stores a trace ID on the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// GetTraceID returns the trace ID carried by the context, or "" when the
// request was never tagged.
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
