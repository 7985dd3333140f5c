// Package assessment runs the risk pipeline: validate the signal, match it
// against a registry snapshot, classify the score and assemble the evidence
// bundle.
package assessment

import (
	"time"

	"oact/internal/decision"
	"oact/internal/evidence"
	"oact/internal/exposure"
	"oact/internal/registry"
	"oact/internal/signal"
)

type options struct {
	id        string
	createdAt time.Time
	score     *float64
}

// Option stamps or overrides parts of an assessment.
type Option func(*options)

// WithID sets the bundle ID.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithCreatedAt sets the bundle creation time.
func WithCreatedAt(t time.Time) Option {
	return func(o *options) { o.createdAt = t }
}

// WithScore classifies score instead of the signal's own risk_score. The
// caller is responsible for score being within [0, 1].
func WithScore(score float64) Option {
	return func(o *options) { o.score = &score }
}

// Assess validates raw and evaluates it against snap. It has no side effects:
// the same record and snapshot always produce the same bundle apart from the
// ID and CreatedAt stamps. A nil snapshot returns registry.ErrUnavailable; an
// invalid record returns *signal.ValidationError.
func Assess(raw map[string]any, snap *registry.Snapshot, opts ...Option) (*evidence.Bundle, error) {
	if snap == nil {
		return nil, registry.ErrUnavailable
	}
	sig, err := signal.Validate(raw)
	if err != nil {
		return nil, err
	}
	return Evaluate(sig, snap, opts...), nil
}

// Evaluate runs the pipeline for an already validated signal. snap must not be
// nil.
func Evaluate(sig signal.RiskSignal, snap *registry.Snapshot, opts ...Option) *evidence.Bundle {
	o := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	score := sig.RiskScore
	if o.score != nil {
		score = *o.score
	}

	return evidence.Assemble(evidence.Inputs{
		ID:              o.id,
		CreatedAt:       o.createdAt,
		RegistryVersion: snap.Version(),
		Signal:          sig,
		Exposures:       exposure.Find(sig, snap),
		Routes:          exposure.Routes(sig, snap),
		Decision:        decision.Classify(score),
	})
}
