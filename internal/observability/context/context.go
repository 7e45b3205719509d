// Package context carries request-scoped correlation identifiers.
package context

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	namespaceKey contextKey = "plan_namespace"
)

// WithRequestID stores the request identifier.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request identifier, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithNamespace stores the plan namespace being served.
func WithNamespace(ctx context.Context, namespace string) context.Context {
	return context.WithValue(ctx, namespaceKey, namespace)
}

// NamespaceFromContext returns the plan namespace, or "".
func NamespaceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(namespaceKey).(string)
	return v
}
