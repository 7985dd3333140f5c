package decision

// Tier boundaries. Both comparisons are strict: a score equal to a threshold
// falls into the lower tier.
const (
	NoGoThreshold    = 0.9
	MonitorThreshold = 0.5

	// HighPriorityThreshold is deliberately the No-Go boundary, so every
	// No-Go is high priority and nothing else is. Splitting them means
	// changing this constant alone.
	HighPriorityThreshold = NoGoThreshold
)

// Result is the classification of one score.
type Result struct {
	Tier           Tier    `json:"tier"`
	IsHighPriority bool    `json:"is_high_priority"`
	Score          float64 `json:"score"`
}

// Priority is the alert label for the result's tier.
func (r Result) Priority() string { return r.Tier.Priority() }

// Classify maps a score in [0, 1] onto a tier. This is pure domain logic - no
// I/O, no side effects. Scores outside [0, 1] never reach here; the validator
// and the scorers reject them.
func Classify(score float64) Result {
	tier := TierGo
	switch {
	case score > NoGoThreshold:
		tier = TierNoGo
	case score > MonitorThreshold:
		tier = TierMonitor
	}
	return Result{
		Tier:           tier,
		IsHighPriority: score > HighPriorityThreshold,
		Score:          score,
	}
}
