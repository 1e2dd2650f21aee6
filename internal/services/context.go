package services

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	templateKey  contextKey = "template"
	jobIDKey     contextKey = "job_id"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithTemplate annotates context with the workflow template name.
func WithTemplate(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, templateKey, name)
}

// TemplateFromContext returns the template name if present.
func TemplateFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(templateKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithJobID annotates context with the engine job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext returns the engine job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
