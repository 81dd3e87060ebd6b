package httpx

import (
	"context"
	"net/http"
)

type contextKey string

const (
	requestIDKey contextKey = "requestID"
	rateLimitKey contextKey = "rateLimit"
)

// ContextWithRequestID returns a new context carrying the request ID.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFrom retrieves the request ID from the request context.
func RequestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithRateLimit returns a new context carrying the admission decision
// of the rate limiter.
func ContextWithRateLimit(ctx context.Context, info RateLimitInfo) context.Context {
	return context.WithValue(ctx, rateLimitKey, info)
}

// RateLimitFrom retrieves the rate limit metadata from the request context.
func RateLimitFrom(r *http.Request) (RateLimitInfo, bool) {
	info, ok := r.Context().Value(rateLimitKey).(RateLimitInfo)
	return info, ok
}
