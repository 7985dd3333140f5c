// Package decision maps a risk score onto an action tier and priority flag,
// and defines the pluggable estimators that produce the score.
package decision

import (
	"encoding/json"
	"fmt"
)

// Tier is the action band for an assessed signal.
type Tier string

const (
	TierGo      Tier = "Go"
	TierMonitor Tier = "Monitor"
	TierNoGo    Tier = "No-Go"
)

// Alert priority labels carried by broadcasts.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

func (t Tier) String() string { return string(t) }

// IsValid reports whether t is one of the three tiers.
func (t Tier) IsValid() bool {
	switch t {
	case TierGo, TierMonitor, TierNoGo:
		return true
	}
	return false
}

// Priority returns the alert priority label for the tier.
func (t Tier) Priority() string {
	switch t {
	case TierNoGo:
		return PriorityHigh
	case TierMonitor:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ParseTier accepts the exact tier names as they appear in stored bundles.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown decision tier %q", s)
	}
	return t, nil
}

func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decision tier must be a string: %w", err)
	}
	parsed, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
