package store_test

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/suite"

	"oact/internal/decision"
	"oact/internal/evidence"
	"oact/internal/exposure"
	"oact/internal/registry"
	"oact/internal/signal"
	"oact/pkg/platform/sentinel"
)

type bundleStore interface {
	Save(ctx context.Context, b *evidence.Bundle) error
	Get(ctx context.Context, id string) (*evidence.Bundle, error)
	List(ctx context.Context, limit int) ([]*evidence.Bundle, error)
}

var baseTime = time.Date(2026, 2, 14, 8, 30, 0, 0, time.UTC)

func newBundle(n int, score float64) *evidence.Bundle {
	return evidence.Assemble(evidence.Inputs{
		ID:              fmt.Sprintf("bundle-%03d", n),
		CreatedAt:       baseTime.Add(time.Duration(n) * time.Minute),
		RegistryVersion: "v1",
		Signal: signal.RiskSignal{
			RiskScore:       score,
			Location:        "Monterey_Hwy68",
			PrimaryDriver:   "Wildfire",
			EstimatedImpact: "Road closures",
			GeoCenter:       signal.GeoCenter{Latitude: 36.6002, Longitude: -121.8947, ImpactRadiusKm: 15},
		},
		Exposures: []exposure.Match{{
			Entry: registry.Entry{
				ID: "SME-001", Name: "Salinas Logistics", Sector: "Logistics", County: "Monterey County",
				Latitude: 36.68, Longitude: -121.79,
			},
			DistanceKm: 12.5,
		}},
		Decision: decision.Classify(score),
	})
}

// storeContract holds the behaviour every bundle store must share.
type storeContract struct {
	suite.Suite
	store bundleStore
}

func (s *storeContract) TestSaveAndGet() {
	ctx := context.Background()
	b := newBundle(1, 0.92)
	s.Require().NoError(s.store.Save(ctx, b))

	got, err := s.store.Get(ctx, b.ID())
	s.Require().NoError(err)
	s.Equal(b.ID(), got.ID())
	s.Equal(b.Signal(), got.Signal())
	s.Equal(b.Decision(), got.Decision())
	s.Equal(b.Exposures(), got.Exposures())
	s.True(b.CreatedAt().Equal(got.CreatedAt()))
}

func (s *storeContract) TestGetUnknownIsNotFound() {
	_, err := s.store.Get(context.Background(), "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeContract) TestBundlesAreWriteOnce() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, newBundle(2, 0.4)))

	err := s.store.Save(ctx, newBundle(2, 0.95))
	s.ErrorIs(err, sentinel.ErrConflict)

	got, err := s.store.Get(ctx, "bundle-002")
	s.Require().NoError(err)
	s.Equal(0.4, got.Decision().Score)
}

func (s *storeContract) TestListNewestFirst() {
	ctx := context.Background()
	for _, n := range []int{3, 1, 2} {
		s.Require().NoError(s.store.Save(ctx, newBundle(n, 0.6)))
	}

	all, err := s.store.List(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("bundle-003", all[0].ID())
	s.Equal("bundle-002", all[1].ID())
	s.Equal("bundle-001", all[2].ID())

	limited, err := s.store.List(ctx, 2)
	s.Require().NoError(err)
	s.Len(limited, 2)
}

func (s *storeContract) TestListEmpty() {
	all, err := s.store.List(context.Background(), 0)
	s.Require().NoError(err)
	s.NotNil(all)
	s.Empty(all)
}
