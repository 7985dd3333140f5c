package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for alert broadcasting.
type Metrics struct {
	// Broadcast attempts by notifier and status (sent, failed, skipped)
	Attempts *prometheus.CounterVec

	// 1 while the notifier circuit breaker is open
	BreakerOpen *prometheus.GaugeVec
}

// New registers the alert metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "oact_alert_attempts_total",
			Help: "Alert broadcast attempts by notifier and status",
		}, []string{"notifier", "status"}),

		BreakerOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "oact_alert_breaker_open",
			Help: "Whether the notifier circuit breaker is open (1) or closed (0)",
		}, []string{"notifier"}),
	}
}

func (m *Metrics) IncrementAttempt(notifier, status string) {
	if m != nil {
		m.Attempts.WithLabelValues(notifier, status).Inc()
	}
}

func (m *Metrics) SetBreakerOpen(notifier string, open bool) {
	if m != nil {
		v := 0.0
		if open {
			v = 1
		}
		m.BreakerOpen.WithLabelValues(notifier).Set(v)
	}
}
