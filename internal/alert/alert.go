// Package alert broadcasts high-priority assessments to a notifier and keeps a
// short log of what was sent. It reads only the priority flag and the bundle
// summary.
package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"oact/internal/decision"
	"oact/internal/evidence"
)

// Alert is one outbound message. A digest carries several summaries.
type Alert struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Priority  string             `json:"priority"`
	Subject   string             `json:"subject"`
	Body      string             `json:"body"`
	BundleIDs []string           `json:"bundle_ids"`
	Summaries []evidence.Summary `json:"summaries"`
}

// Notifier delivers alerts to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, a Alert) error
}

func subject(summaries []evidence.Summary) string {
	if len(summaries) == 1 {
		s := summaries[0]
		return fmt.Sprintf("[%s] %s decision for %s", s.Priority, s.Tier, s.Location)
	}
	return fmt.Sprintf("[%s] Supply chain alert: %d high-risk areas", decision.PriorityHigh, len(summaries))
}

// body renders the plain-text alert report used by every notifier.
func body(summaries []evidence.Summary, at time.Time) string {
	var sb strings.Builder
	sb.WriteString("SUPPLY CHAIN ALERT REPORT\n")
	sb.WriteString("=========================\n")
	fmt.Fprintf(&sb, "Generated: %s\n", at.UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Severity: %s\n", decision.PriorityHigh)
	fmt.Fprintf(&sb, "Affected areas: %d\n\n", len(summaries))

	for i, s := range summaries {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, s.Location)
		fmt.Fprintf(&sb, "   Decision: %s (risk score %.2f)\n", s.Tier, s.Score)
		fmt.Fprintf(&sb, "   Driver: %s\n", s.PrimaryDriver)
		fmt.Fprintf(&sb, "   Estimated impact: %s\n", s.EstimatedImpact)
		if s.NoSMEsAffected {
			sb.WriteString("   No SMEs affected within the impact radius.\n")
		} else {
			fmt.Fprintf(&sb, "   Affected SMEs (%d): %s\n", s.AffectedCount, strings.Join(s.AffectedSMEs, ", "))
		}
		if s.InterruptedRoutes > 0 {
			fmt.Fprintf(&sb, "   Interrupted delivery routes: %d\n", s.InterruptedRoutes)
		}
		fmt.Fprintf(&sb, "   Bundle: %s\n\n", s.BundleID)
	}

	sb.WriteString("IMMEDIATE ACTION REQUIRED\n")
	return sb.String()
}
