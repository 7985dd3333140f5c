package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"oact/internal/assessment/metrics"
	"oact/internal/assessment/ports"
	"oact/internal/decision"
	"oact/internal/evidence"
	"oact/internal/registry"
	"oact/internal/signal"
	dErrors "oact/pkg/domain-errors"
	"oact/pkg/platform/sentinel"
	"oact/pkg/requestcontext"
)

// Type aliases for shared interfaces.
type (
	BundleStore      = ports.BundleStore
	Broadcaster      = ports.Broadcaster
	RegistryProvider = ports.RegistryProvider
)

// DefaultBatchConcurrency bounds AssessBatch when no limit is configured.
const DefaultBatchConcurrency = 8

// Service is the serving layer around Assess: it scores, stamps, stores and
// broadcasts. The pipeline itself stays pure.
type Service struct {
	registry    RegistryProvider
	scorer      decision.Scorer
	store       BundleStore
	broadcaster Broadcaster
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
	newID       func() string
	batchLimit  int
}

type ServiceOption func(*Service)

// WithScorer replaces the default SuppliedScore scorer.
func WithScorer(scorer decision.Scorer) ServiceOption {
	return func(s *Service) { s.scorer = scorer }
}

func WithStore(store BundleStore) ServiceOption {
	return func(s *Service) { s.store = store }
}

func WithBroadcaster(b Broadcaster) ServiceOption {
	return func(s *Service) { s.broadcaster = b }
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(s *Service) { s.tracer = tracer }
}

// WithIDGenerator replaces the UUID generator, for deterministic tests.
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) { s.newID = fn }
}

// WithBatchConcurrency bounds how many signals of a batch run at once.
func WithBatchConcurrency(n int) ServiceOption {
	return func(s *Service) { s.batchLimit = n }
}

// NewService builds a service. Only the registry provider is required.
func NewService(reg RegistryProvider, opts ...ServiceOption) (*Service, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry provider is required")
	}
	svc := &Service{
		registry:   reg,
		scorer:     decision.SuppliedScore{},
		logger:     slog.Default(),
		tracer:     otel.Tracer("oact/internal/assessment"),
		newID:      func() string { return uuid.NewString() },
		batchLimit: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.batchLimit <= 0 {
		svc.batchLimit = DefaultBatchConcurrency
	}
	return svc, nil
}

// Assess runs one signal against the current snapshot.
func (s *Service) Assess(ctx context.Context, raw map[string]any) (*evidence.Bundle, error) {
	snap, err := s.registry.Current()
	if err != nil {
		return nil, translateRegistryError(err)
	}
	return s.assess(ctx, raw, snap)
}

// BatchItem is the outcome for one signal of a batch, at its input position.
type BatchItem struct {
	Index  int
	Bundle *evidence.Bundle
	Err    error
}

// AssessBatch assesses every record against one snapshot captured before the
// first record runs. Records run concurrently up to the configured limit; a
// failing record does not stop the others. Items keep input order.
func (s *Service) AssessBatch(ctx context.Context, raws []map[string]any) ([]BatchItem, error) {
	snap, err := s.registry.Current()
	if err != nil {
		return nil, translateRegistryError(err)
	}

	ctx, span := s.tracer.Start(ctx, "assessment.AssessBatch",
		trace.WithAttributes(attribute.Int("batch.size", len(raws))))
	defer span.End()

	items := make([]BatchItem, len(raws))
	var g errgroup.Group
	g.SetLimit(s.batchLimit)
	for i, raw := range raws {
		g.Go(func() error {
			items[i].Index = i
			if err := ctx.Err(); err != nil {
				items[i].Err = dErrors.Wrap(err, dErrors.CodeTimeout, "batch cancelled")
				return nil
			}
			items[i].Bundle, items[i].Err = s.assess(ctx, raw, snap)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.InfoContext(ctx, "batch assessed",
		"request_id", requestcontext.RequestID(ctx),
		"size", len(raws),
		"registry_version", snap.Version(),
	)
	return items, nil
}

func (s *Service) assess(ctx context.Context, raw map[string]any, snap *registry.Snapshot) (*evidence.Bundle, error) {
	start := time.Now()
	requestID := requestcontext.RequestID(ctx)

	ctx, span := s.tracer.Start(ctx, "assessment.Assess",
		trace.WithAttributes(attribute.String("registry.version", snap.Version())))
	defer span.End()

	sig, err := signal.Validate(raw)
	if err != nil {
		var verr *signal.ValidationError
		if errors.As(err, &verr) {
			for _, v := range verr.Violations {
				s.metrics.IncrementViolation(v.Constraint)
			}
		}
		span.SetStatus(codes.Error, "invalid signal")
		s.logger.InfoContext(ctx, "signal rejected",
			"request_id", requestID,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "signal failed validation")
	}

	score, err := s.scorer.Score(ctx, sig)
	if err == nil && (score < 0 || score > 1) {
		err = fmt.Errorf("%w: scorer returned %v", decision.ErrScoreOutOfRange, score)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scoring failed")
		s.logger.ErrorContext(ctx, "risk scoring failed",
			"request_id", requestID,
			"location", sig.Location,
			"error", err,
		)
		if errors.Is(err, decision.ErrScoreOutOfRange) {
			return nil, dErrors.Wrap(err, dErrors.CodeUnprocessable, "compound risk score out of range")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to score signal")
	}

	bundle := Evaluate(sig, snap,
		WithID(s.newID()),
		WithCreatedAt(requestcontext.Now(ctx)),
		WithScore(score),
	)
	d := bundle.Decision()
	span.SetAttributes(
		attribute.String("bundle.id", bundle.ID()),
		attribute.String("decision.tier", d.Tier.String()),
		attribute.Bool("decision.high_priority", d.IsHighPriority),
		attribute.Int("exposure.count", bundle.AffectedCount()),
	)

	if s.store != nil {
		if err := s.store.Save(ctx, bundle); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "store failed")
			s.logger.ErrorContext(ctx, "failed to store evidence bundle",
				"request_id", requestID,
				"bundle_id", bundle.ID(),
				"error", err,
			)
			if errors.Is(err, sentinel.ErrUnavailable) {
				return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "evidence store unavailable")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store evidence bundle")
		}
	}

	if s.broadcaster != nil {
		if err := s.broadcaster.Broadcast(ctx, bundle); err != nil {
			s.metrics.IncrementBroadcastFailure()
			s.logger.WarnContext(ctx, "alert broadcast failed",
				"request_id", requestID,
				"bundle_id", bundle.ID(),
				"error", err,
			)
		}
	}

	s.metrics.IncrementOutcome(d.Tier.String(), d.IsHighPriority)
	s.metrics.ObserveAffected(bundle.AffectedCount())
	s.metrics.ObserveAssessLatency(time.Since(start))
	s.logger.InfoContext(ctx, "signal assessed",
		"request_id", requestID,
		"bundle_id", bundle.ID(),
		"location", sig.Location,
		"tier", d.Tier.String(),
		"high_priority", d.IsHighPriority,
		"affected", bundle.AffectedCount(),
		"registry_version", snap.Version(),
	)
	return bundle, nil
}

// Get returns a stored bundle.
func (s *Service) Get(ctx context.Context, id string) (*evidence.Bundle, error) {
	if s.store == nil {
		return nil, dErrors.New(dErrors.CodeNotConfigured, "evidence store not configured")
	}
	b, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "evidence bundle not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evidence bundle")
	}
	return b, nil
}

// List returns recent bundles, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]*evidence.Bundle, error) {
	if s.store == nil {
		return nil, dErrors.New(dErrors.CodeNotConfigured, "evidence store not configured")
	}
	bundles, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list evidence bundles")
	}
	return bundles, nil
}

// Snapshot returns the current registry snapshot.
func (s *Service) Snapshot() (*registry.Snapshot, error) {
	snap, err := s.registry.Current()
	if err != nil {
		return nil, translateRegistryError(err)
	}
	return snap, nil
}

func translateRegistryError(err error) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "registry not loaded")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read registry")
}
