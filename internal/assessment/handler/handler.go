package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"oact/internal/assessment"
	"oact/internal/evidence"
	"oact/internal/narrative"
	"oact/internal/registry"
	"oact/internal/report"
	"oact/internal/signal"
	dErrors "oact/pkg/domain-errors"
	"oact/pkg/platform/httputil"
	"oact/pkg/requestcontext"
)

// MaxBatchSize caps the number of signals in one batch request.
const MaxBatchSize = 100

// Service defines the assessment operations the handler exposes.
type Service interface {
	Assess(ctx context.Context, raw map[string]any) (*evidence.Bundle, error)
	AssessBatch(ctx context.Context, raws []map[string]any) ([]assessment.BatchItem, error)
	Get(ctx context.Context, id string) (*evidence.Bundle, error)
	List(ctx context.Context, limit int) ([]*evidence.Bundle, error)
	Snapshot() (*registry.Snapshot, error)
}

// Handler wires assessment endpoints to the assessment service and the
// bundle renderers.
type Handler struct {
	service  Service
	narrator narrative.Renderer
	logger   *slog.Logger
}

// New constructs an assessment handler. narrator may be nil, in which case
// the narrative endpoint reports that it is not configured.
func New(service Service, narrator narrative.Renderer, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		narrator: narrator,
		logger:   logger,
	}
}

// Register mounts assessment endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/assessments", func(r chi.Router) {
		r.Post("/", h.HandleAssess)
		r.Post("/batch", h.HandleAssessBatch)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Get("/{id}/report", h.HandleReport)
		r.Get("/{id}/narrative", h.HandleNarrative)
		r.Get("/{id}/map", h.HandleMap)
	})
	r.Get("/v1/registry", h.HandleRegistry)
}

// HandleAssess handles POST /v1/assessments.
func (h *Handler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	body, ok := httputil.ReadBody(w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	raw, err := signal.Decode(body)
	if err != nil {
		writeAssessError(w, err)
		return
	}

	bundle, err := h.service.Assess(ctx, raw)
	if err != nil {
		writeAssessError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "assessment created",
		"request_id", requestID,
		"bundle_id", bundle.ID(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, bundle)
}

// HandleAssessBatch handles POST /v1/assessments/batch.
func (h *Handler) HandleAssessBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	docs, ok := httputil.DecodeJSON[[]json.RawMessage](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if len(docs) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "batch must contain at least one signal"))
		return
	}
	if len(docs) > MaxBatchSize {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "batch exceeds "+strconv.Itoa(MaxBatchSize)+" signals"))
		return
	}

	results := make([]BatchResult, len(docs))
	raws := make([]map[string]any, 0, len(docs))
	positions := make([]int, 0, len(docs))
	for i, doc := range docs {
		results[i].Index = i
		raw, err := signal.Decode(doc)
		if err != nil {
			results[i].setError(err)
			continue
		}
		raws = append(raws, raw)
		positions = append(positions, i)
	}

	if len(raws) > 0 {
		items, err := h.service.AssessBatch(ctx, raws)
		if err != nil {
			writeAssessError(w, err)
			return
		}
		for _, item := range items {
			res := &results[positions[item.Index]]
			if item.Err != nil {
				res.setError(item.Err)
				continue
			}
			res.Bundle = item.Bundle
		}
	}

	httputil.WriteJSON(w, http.StatusOK, BatchResponse{Results: results})
}

// HandleList handles GET /v1/assessments.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	bundles, err := h.service.List(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list assessments",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromBundles(bundles))
}

// HandleGet handles GET /v1/assessments/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	bundle, ok := h.load(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bundle)
}

// HandleReport handles GET /v1/assessments/{id}/report.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	bundle, ok := h.load(w, r)
	if !ok {
		return
	}
	md, err := report.Markdown(bundle)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render report",
			"request_id", requestcontext.RequestID(r.Context()),
			"bundle_id", bundle.ID(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render report"))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(md))
}

// HandleNarrative handles GET /v1/assessments/{id}/narrative.
func (h *Handler) HandleNarrative(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.narrator == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotConfigured, "narrative renderer not configured"))
		return
	}
	bundle, ok := h.load(w, r)
	if !ok {
		return
	}
	text, err := h.narrator.Render(ctx, bundle)
	if err != nil {
		h.logger.ErrorContext(ctx, "narrative rendering failed",
			"request_id", requestcontext.RequestID(ctx),
			"bundle_id", bundle.ID(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "narrative renderer unavailable"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NarrativeResponse{BundleID: bundle.ID(), Narrative: text})
}

// HandleMap handles GET /v1/assessments/{id}/map.
func (h *Handler) HandleMap(w http.ResponseWriter, r *http.Request) {
	bundle, ok := h.load(w, r)
	if !ok {
		return
	}
	var opts []report.MapOption
	if snap, err := h.service.Snapshot(); err == nil {
		opts = append(opts, report.WithRegistry(snap))
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(report.MapPayload(bundle, opts...))
}

// HandleRegistry handles GET /v1/registry.
func (h *Handler) HandleRegistry(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSnapshot(snap))
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*evidence.Bundle, bool) {
	req := BundleRequest{ID: chi.URLParam(r, "id")}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	bundle, err := h.service.Get(r.Context(), req.ID)
	if err != nil {
		if !dErrors.Has(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(r.Context(), "failed to load assessment",
				"request_id", requestcontext.RequestID(r.Context()),
				"bundle_id", req.ID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return nil, false
	}
	return bundle, true
}

// writeAssessError reports signal violations with their full list and
// everything else through the standard error envelope.
func writeAssessError(w http.ResponseWriter, err error) {
	var verr *signal.ValidationError
	if errors.As(err, &verr) {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, FromValidationError(verr))
		return
	}
	httputil.WriteError(w, err)
}
