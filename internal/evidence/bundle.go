// Package evidence assembles the immutable record of one assessment. Every
// downstream consumer (reports, maps, alerts, narratives) reads a Bundle and
// nothing else.
package evidence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"oact/internal/decision"
	"oact/internal/exposure"
	"oact/internal/signal"
)

// ErrDecisionMismatch marks a stored decision that is not the classification
// of its own score.
var ErrDecisionMismatch = errors.New("stored decision does not match its score")

// Inputs are the pipeline artifacts combined into a bundle.
type Inputs struct {
	ID              string
	CreatedAt       time.Time
	RegistryVersion string
	Signal          signal.RiskSignal
	Exposures       []exposure.Match
	Routes          []exposure.RouteImpact
	Decision        decision.Result
}

// Bundle is the immutable evidence for one assessment. Fields are only
// reachable through accessors that return copies.
type Bundle struct {
	id              string
	createdAt       time.Time
	registryVersion string
	signal          signal.RiskSignal
	exposures       []exposure.Match
	routes          []exposure.RouteImpact
	decision        decision.Result
}

// Assemble composes a bundle. It cannot fail; each input was validated by the
// stage that produced it. Slices are copied so later changes to the inputs do
// not leak in. Nil slices become empty ones.
func Assemble(in Inputs) *Bundle {
	return &Bundle{
		id:              in.ID,
		createdAt:       in.CreatedAt.UTC(),
		registryVersion: in.RegistryVersion,
		signal:          in.Signal,
		exposures:       copyMatches(in.Exposures),
		routes:          copyRoutes(in.Routes),
		decision:        in.Decision,
	}
}

func (b *Bundle) ID() string { return b.id }

func (b *Bundle) CreatedAt() time.Time { return b.createdAt }

// RegistryVersion is the version of the snapshot the exposures came from.
func (b *Bundle) RegistryVersion() string { return b.registryVersion }

func (b *Bundle) Signal() signal.RiskSignal { return b.signal }

func (b *Bundle) Decision() decision.Result { return b.decision }

// Exposures returns the affected SMEs, nearest first.
func (b *Bundle) Exposures() []exposure.Match { return copyMatches(b.exposures) }

// Routes returns every evaluated delivery route.
func (b *Bundle) Routes() []exposure.RouteImpact { return copyRoutes(b.routes) }

// AffectedCount is the number of SMEs inside the impact radius.
func (b *Bundle) AffectedCount() int { return len(b.exposures) }

// InterruptedRoutes returns only the routes that cross the impact radius.
func (b *Bundle) InterruptedRoutes() []exposure.RouteImpact {
	return exposure.Interrupted(b.routes)
}

// WithStamp returns a copy of the bundle carrying a different ID and creation
// time. Content is unchanged.
func (b *Bundle) WithStamp(id string, createdAt time.Time) *Bundle {
	return Assemble(Inputs{
		ID:              id,
		CreatedAt:       createdAt,
		RegistryVersion: b.registryVersion,
		Signal:          b.signal,
		Exposures:       b.exposures,
		Routes:          b.routes,
		Decision:        b.decision,
	})
}

type wireBundle struct {
	ID              string                 `json:"id"`
	CreatedAt       time.Time              `json:"created_at"`
	RegistryVersion string                 `json:"registry_version"`
	Signal          json.RawMessage        `json:"signal"`
	Exposures       []exposure.Match       `json:"exposures"`
	Routes          []exposure.RouteImpact `json:"routes"`
	Decision        decision.Result        `json:"decision"`
}

// MarshalJSON encodes the storage and wire format.
func (b *Bundle) MarshalJSON() ([]byte, error) {
	sig, err := json.Marshal(b.signal)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireBundle{
		ID:              b.id,
		CreatedAt:       b.createdAt,
		RegistryVersion: b.registryVersion,
		Signal:          sig,
		Exposures:       b.exposures,
		Routes:          b.routes,
		Decision:        b.decision,
	})
}

// Decode reads a bundle written by MarshalJSON. The embedded signal goes back
// through the validator and the decision must be the classification of its own
// score, so a stored record with a drifted shape is rejected.
func Decode(data []byte) (*Bundle, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w wireBundle
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decoding evidence bundle: %w", err)
	}
	if w.ID == "" {
		return nil, fmt.Errorf("decoding evidence bundle: missing id")
	}
	sig, err := signal.Parse(w.Signal)
	if err != nil {
		return nil, fmt.Errorf("decoding evidence bundle %s: %w", w.ID, err)
	}
	if score := w.Decision.Score; score < 0 || score > 1 {
		return nil, fmt.Errorf("decoding evidence bundle %s: %w", w.ID, decision.ErrScoreOutOfRange)
	}
	if want := decision.Classify(w.Decision.Score); w.Decision != want {
		return nil, fmt.Errorf("decoding evidence bundle %s: %w: stored %s/high=%t, score %v classifies as %s/high=%t",
			w.ID, ErrDecisionMismatch, w.Decision.Tier, w.Decision.IsHighPriority, w.Decision.Score, want.Tier, want.IsHighPriority)
	}
	return Assemble(Inputs{
		ID:              w.ID,
		CreatedAt:       w.CreatedAt,
		RegistryVersion: w.RegistryVersion,
		Signal:          sig,
		Exposures:       w.Exposures,
		Routes:          w.Routes,
		Decision:        w.Decision,
	}), nil
}

func copyMatches(in []exposure.Match) []exposure.Match {
	out := make([]exposure.Match, len(in))
	for i, m := range in {
		m.Entry = m.Entry.Clone()
		out[i] = m
	}
	return out
}

func copyRoutes(in []exposure.RouteImpact) []exposure.RouteImpact {
	out := make([]exposure.RouteImpact, len(in))
	for i, r := range in {
		r.Waypoints = append(r.Waypoints[:0:0], r.Waypoints...)
		out[i] = r
	}
	return out
}
