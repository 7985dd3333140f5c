// Package requesttime captures one timestamp per request so every bundle
// assembled while serving it carries the same creation time.
package requesttime

import (
	"net/http"
	"time"

	"oact/pkg/requestcontext"
)

// Middleware stores the request start time (UTC) in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
