// Package requestid bridges chi's request ID into requestcontext so services
// never import chi.
package requestid

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"oact/pkg/requestcontext"
)

// Header echoes the correlation ID back to the caller.
const Header = "X-Request-Id"

// Middleware must run after chi's middleware.RequestID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())
		if id != "" {
			w.Header().Set(Header, id)
		}
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
