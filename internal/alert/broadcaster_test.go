package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"oact/internal/alert/metrics"
	"oact/internal/decision"
	"oact/internal/evidence"
	"oact/internal/exposure"
	"oact/internal/registry"
	"oact/internal/signal"
	"oact/pkg/platform/circuit"
	"oact/pkg/platform/sentinel"
)

var fixedNow = time.Date(2026, 2, 14, 8, 30, 0, 0, time.UTC)

type fakeNotifier struct {
	sent []Alert
	err  error
}

func (f *fakeNotifier) Name() string { return "fake" }

func (f *fakeNotifier) Notify(_ context.Context, a Alert) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, a)
	return nil
}

func bundle(id, location string, score float64, smes ...string) *evidence.Bundle {
	matches := make([]exposure.Match, len(smes))
	for i, name := range smes {
		matches[i] = exposure.Match{Entry: registry.Entry{ID: fmt.Sprintf("SME-%d", i), Name: name}, DistanceKm: float64(i)}
	}
	return evidence.Assemble(evidence.Inputs{
		ID:        id,
		CreatedAt: fixedNow,
		Signal: signal.RiskSignal{
			RiskScore:       score,
			Location:        location,
			PrimaryDriver:   "Soil_Saturation_Critical",
			EstimatedImpact: "$15M_Day",
			GeoCenter:       signal.GeoCenter{Latitude: 36.6, Longitude: -121.89, ImpactRadiusKm: 15},
		},
		Exposures: matches,
		Decision:  decision.Classify(score),
	})
}

type BroadcasterSuite struct {
	suite.Suite
	notifier *fakeNotifier
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	br       *Broadcaster
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterSuite))
}

func (s *BroadcasterSuite) SetupTest() {
	s.notifier = &fakeNotifier{}
	s.registry = prometheus.NewRegistry()
	s.metrics = metrics.NewWith(s.registry)
	ids := 0
	s.br = NewBroadcaster(s.notifier,
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { ids++; return fmt.Sprintf("alert-%d", ids) }),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))),
	)
}

func (s *BroadcasterSuite) TestHighPriorityIsSent() {
	err := s.br.Broadcast(context.Background(), bundle("b-1", "Monterey_Hwy68", 0.95, "Salinas Logistics", "Wharf Supply"))
	s.Require().NoError(err)

	s.Require().Len(s.notifier.sent, 1)
	a := s.notifier.sent[0]
	s.Equal("alert-1", a.ID)
	s.Equal(decision.PriorityHigh, a.Priority)
	s.Equal([]string{"b-1"}, a.BundleIDs)
	s.Equal("[HIGH] No-Go decision for Monterey_Hwy68", a.Subject)
	s.Contains(a.Body, "SUPPLY CHAIN ALERT REPORT")
	s.Contains(a.Body, "Severity: HIGH")
	s.Contains(a.Body, "Affected SMEs (2): Salinas Logistics, Wharf Supply")
	s.Contains(a.Body, "IMMEDIATE ACTION REQUIRED")

	entries := s.br.Log().Recent(0)
	s.Require().Len(entries, 1)
	s.Equal(StatusSent, entries[0].Status)
	s.Equal("fake", entries[0].Notifier)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Attempts.WithLabelValues("fake", "sent")))
}

func (s *BroadcasterSuite) TestNonHighPriorityIsIgnored() {
	for _, score := range []float64{0.9, 0.6, 0.1} {
		s.Require().NoError(s.br.Broadcast(context.Background(), bundle("b", "Salinas", score)))
	}
	s.Empty(s.notifier.sent)
	s.Zero(s.br.Log().Len())
}

func (s *BroadcasterSuite) TestEmptyExposureSetIsStated() {
	s.Require().NoError(s.br.Broadcast(context.Background(), bundle("b-1", "Big_Sur", 0.97)))
	s.Require().Len(s.notifier.sent, 1)
	s.Contains(s.notifier.sent[0].Body, "No SMEs affected within the impact radius.")
}

func (s *BroadcasterSuite) TestFailureIsLoggedAndBreakerOpens() {
	s.notifier.err = errors.New("smtp down")
	ctx := context.Background()

	err := s.br.Broadcast(ctx, bundle("b-1", "Monterey", 0.95))
	s.Require().Error(err)
	s.Contains(err.Error(), "smtp down")

	err = s.br.Broadcast(ctx, bundle("b-2", "Monterey", 0.95))
	s.Require().Error(err)

	err = s.br.Broadcast(ctx, bundle("b-3", "Monterey", 0.95))
	s.Require().ErrorIs(err, ErrCircuitOpen)
	s.ErrorIs(err, sentinel.ErrUnavailable)

	entries := s.br.Log().Recent(0)
	s.Require().Len(entries, 3)
	s.Equal(StatusSkipped, entries[0].Status)
	s.Equal(StatusFailed, entries[1].Status)
	s.Equal("smtp down", entries[1].Error)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.BreakerOpen.WithLabelValues("fake")))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Attempts.WithLabelValues("fake", "failed")))
}

func (s *BroadcasterSuite) TestDigest() {
	bundles := []*evidence.Bundle{
		bundle("b-1", "Monterey_Hwy68", 0.95, "Salinas Logistics"),
		bundle("b-2", "Salinas_Valley", 0.7, "Ag Co"),
		nil,
		bundle("b-3", "Watsonville", 0.99),
	}

	a, err := s.br.Digest(context.Background(), bundles)
	s.Require().NoError(err)
	s.Equal([]string{"b-1", "b-3"}, a.BundleIDs)
	s.Equal("[HIGH] Supply chain alert: 2 high-risk areas", a.Subject)
	s.Contains(a.Body, "Affected areas: 2")
	s.Contains(a.Body, "1. Monterey_Hwy68")
	s.Contains(a.Body, "2. Watsonville")
	s.NotContains(a.Body, "Salinas_Valley")
	s.Len(s.notifier.sent, 1)
}

func (s *BroadcasterSuite) TestDigestNothingToSend() {
	_, err := s.br.Digest(context.Background(), []*evidence.Bundle{bundle("b-1", "Salinas", 0.2)})
	s.ErrorIs(err, ErrNothingToSend)
	s.Empty(s.notifier.sent)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, "log", n.Name())
	require.NoError(t, n.Notify(context.Background(), Alert{ID: "a-1", Subject: "s"}))
}
