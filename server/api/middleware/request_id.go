package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// contextKey keeps request-scoped values from colliding with other packages.
type contextKey string

// RequestIDKey is the context key under which the request ID travels.
const RequestIDKey contextKey = "request-id"

// RequestID tags every request with an ID, honoring one supplied by the
// caller so relay clients can correlate retries across their own logs.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)

			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
