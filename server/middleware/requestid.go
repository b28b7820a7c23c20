package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dkoca/meshkit/logger"
)

// HeaderRequestID is the request-ID header name.
const HeaderRequestID = "X-Request-Id"

// RequestID returns middleware that injects a unique X-Request-Id header into
// every request and response, and stores it in the request context.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.New().String()
				r.Header.Set(HeaderRequestID, id)
			}
			w.Header().Set(HeaderRequestID, id)

			ctx := logger.ContextWithRequestID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
