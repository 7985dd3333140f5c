package testutil

import (
	"context"
	"net/http"
	"time"

	"oact/pkg/requestcontext"
)

// FixedTime is the clock used by fixtures that need reproducible timestamps.
var FixedTime = time.Date(2026, 2, 14, 8, 30, 0, 0, time.UTC)

// WithRequestTime pins the request-scoped clock, as the requesttime middleware would.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// FixedContext returns a background context pinned to FixedTime with a request ID.
func FixedContext(requestID string) context.Context {
	ctx := requestcontext.WithTime(context.Background(), FixedTime)
	return requestcontext.WithRequestID(ctx, requestID)
}
