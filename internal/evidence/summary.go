package evidence

import (
	"time"

	"oact/internal/decision"
)

// Summary is the part of a bundle the alert layer reads.
type Summary struct {
	BundleID          string        `json:"bundle_id"`
	CreatedAt         time.Time     `json:"created_at"`
	Location          string        `json:"location"`
	PrimaryDriver     string        `json:"primary_driver"`
	EstimatedImpact   string        `json:"estimated_impact"`
	Tier              decision.Tier `json:"tier"`
	Priority          string        `json:"priority"`
	IsHighPriority    bool          `json:"is_high_priority"`
	Score             float64       `json:"score"`
	AffectedCount     int           `json:"affected_count"`
	AffectedSMEs      []string      `json:"affected_smes"`
	InterruptedRoutes int           `json:"interrupted_routes"`
	// NoSMEsAffected states the empty exposure set explicitly so a consumer
	// never has to infer it from a zero count.
	NoSMEsAffected bool `json:"no_smes_affected"`
}

// Summary projects the bundle for alerting. AffectedSMEs lists names in
// exposure order.
func (b *Bundle) Summary() Summary {
	names := make([]string, len(b.exposures))
	for i, m := range b.exposures {
		names[i] = m.Entry.Name
	}
	return Summary{
		BundleID:          b.id,
		CreatedAt:         b.createdAt,
		Location:          b.signal.Location,
		PrimaryDriver:     b.signal.PrimaryDriver,
		EstimatedImpact:   b.signal.EstimatedImpact,
		Tier:              b.decision.Tier,
		Priority:          b.decision.Priority(),
		IsHighPriority:    b.decision.IsHighPriority,
		Score:             b.decision.Score,
		AffectedCount:     len(b.exposures),
		AffectedSMEs:      names,
		InterruptedRoutes: len(b.InterruptedRoutes()),
		NoSMEsAffected:    len(b.exposures) == 0,
	}
}
