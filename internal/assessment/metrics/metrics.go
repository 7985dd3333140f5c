package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the assessment module.
type Metrics struct {
	// Assessments by tier and high priority flag
	Outcomes *prometheus.CounterVec

	// Rejected signals by violated constraint
	Violations *prometheus.CounterVec

	// SMEs inside the impact radius per assessment
	AffectedSMEs prometheus.Histogram

	// Full pipeline latency including persistence and broadcast
	AssessLatency prometheus.Histogram

	// Broadcast failures (never fail an assessment)
	BroadcastFailures prometheus.Counter
}

// New creates a Metrics instance with all assessment metrics registered on
// the default registry. Call it once per process.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on reg, for tests that need isolation.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "oact_assessment_outcomes_total",
			Help: "Total assessments by decision tier and high priority flag",
		}, []string{"tier", "high_priority"}),

		Violations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "oact_assessment_violations_total",
			Help: "Signal validation violations by constraint",
		}, []string{"constraint"}),

		AffectedSMEs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "oact_assessment_affected_smes",
			Help:    "Number of SMEs inside the impact radius per assessment",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		}),

		AssessLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "oact_assessment_duration_seconds",
			Help:    "Duration of a full assessment including persistence and broadcast",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		BroadcastFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "oact_assessment_broadcast_failures_total",
			Help: "Alert broadcasts that failed after an assessment was stored",
		}),
	}
}

// IncrementOutcome records a classified assessment.
func (m *Metrics) IncrementOutcome(tier string, highPriority bool) {
	if m != nil {
		flag := "false"
		if highPriority {
			flag = "true"
		}
		m.Outcomes.WithLabelValues(tier, flag).Inc()
	}
}

// IncrementViolation records one violated constraint.
func (m *Metrics) IncrementViolation(constraint string) {
	if m != nil {
		m.Violations.WithLabelValues(constraint).Inc()
	}
}

// ObserveAffected records the size of an exposure set.
func (m *Metrics) ObserveAffected(n int) {
	if m != nil {
		m.AffectedSMEs.Observe(float64(n))
	}
}

// ObserveAssessLatency records the total assessment duration.
func (m *Metrics) ObserveAssessLatency(d time.Duration) {
	if m != nil {
		m.AssessLatency.Observe(d.Seconds())
	}
}

// IncrementBroadcastFailure records a failed broadcast.
func (m *Metrics) IncrementBroadcastFailure() {
	if m != nil {
		m.BroadcastFailures.Inc()
	}
}
