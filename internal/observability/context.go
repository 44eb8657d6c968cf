package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	topicKey     contextKey = "topic"
	locationKey  contextKey = "location"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithSearch adds the search topic and location to the context.
func WithSearch(ctx context.Context, topic, location string) context.Context {
	ctx = context.WithValue(ctx, topicKey, topic)
	ctx = context.WithValue(ctx, locationKey, location)
	return ctx
}

// SearchFromContext retrieves the search topic and location from context.
// Returns empty strings if not present.
func SearchFromContext(ctx context.Context) (topic, location string) {
	if v := ctx.Value(topicKey); v != nil {
		if s, ok := v.(string); ok {
			topic = s
		}
	}
	if v := ctx.Value(locationKey); v != nil {
		if s, ok := v.(string); ok {
			location = s
		}
	}
	return topic, location
}
