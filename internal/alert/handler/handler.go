package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"oact/internal/alert"
	"oact/internal/evidence"
	dErrors "oact/pkg/domain-errors"
	"oact/pkg/platform/httputil"
	"oact/pkg/requestcontext"
)

// MaxDigestBundles caps how many bundles one digest request may name.
const MaxDigestBundles = 50

// Broadcaster is the alert side the handler needs.
type Broadcaster interface {
	Digest(ctx context.Context, bundles []*evidence.Bundle) (alert.Alert, error)
	Log() *alert.Log
}

// Bundles resolves stored bundles by ID. Errors are expected to carry
// domain error codes.
type Bundles interface {
	Get(ctx context.Context, id string) (*evidence.Bundle, error)
}

// Handler serves the alert log and consolidated digests.
type Handler struct {
	broadcaster Broadcaster
	bundles     Bundles
	logger      *slog.Logger
}

func New(broadcaster Broadcaster, bundles Bundles, logger *slog.Logger) *Handler {
	return &Handler{
		broadcaster: broadcaster,
		bundles:     bundles,
		logger:      logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/alerts", h.HandleList)
	r.Post("/v1/alerts/digest", h.HandleDigest)
}

// HandleList handles GET /v1/alerts.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	httputil.WriteJSON(w, http.StatusOK, LogResponse{Alerts: h.broadcaster.Log().Recent(limit)})
}

// HandleDigest handles POST /v1/alerts/digest.
func (h *Handler) HandleDigest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeJSON[DigestRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	bundles := make([]*evidence.Bundle, 0, len(req.BundleIDs))
	for _, id := range req.BundleIDs {
		b, err := h.bundles.Get(ctx, id)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		bundles = append(bundles, b)
	}

	a, err := h.broadcaster.Digest(ctx, bundles)
	switch {
	case errors.Is(err, alert.ErrNothingToSend):
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnprocessable, "none of the bundles is high priority"))
		return
	case err != nil:
		h.logger.ErrorContext(ctx, "alert digest failed",
			"request_id", requestID,
			"bundle_ids", req.BundleIDs,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "alert could not be delivered"))
		return
	}

	h.logger.InfoContext(ctx, "alert digest sent",
		"request_id", requestID,
		"alert_id", a.ID,
		"bundles", len(a.BundleIDs),
	)
	httputil.WriteJSON(w, http.StatusAccepted, FromAlert(a))
}
