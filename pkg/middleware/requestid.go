package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hazyhaar/nutrimatch/pkg/kit"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with the caller's X-Request-ID, or a new UUID,
// and stores it in the request context.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			ctx := kit.WithRequestID(kit.WithTransport(r.Context(), "http"), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
