package assessment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oact/internal/decision"
	"oact/internal/geo"
	"oact/internal/registry"
	"oact/internal/signal"
	"oact/pkg/testutil"
)

var epicenter = geo.Point{Lat: 36.6002, Lon: -121.8947}

func montereySignal() map[string]any {
	return map[string]any{
		"risk_score":       0.95,
		"location":         "Monterey_Hwy68",
		"primary_driver":   "Soil_Saturation_Critical",
		"estimated_impact": "$15M_Day",
		"geo_center": map[string]any{
			"lat":              36.6002,
			"lon":              -121.8947,
			"impact_radius_km": 15.0,
		},
	}
}

func montereyRegistry(t *testing.T) *registry.Snapshot {
	t.Helper()
	near := geo.Destination(epicenter, 60, 12.5)
	far := geo.Destination(epicenter, 200, 15.2)
	snap, err := registry.NewSnapshot([]registry.Entry{
		{ID: "SME-EPI", Name: "Monterey Wharf Supply", Sector: "Retail", County: "Monterey County", Latitude: epicenter.Lat, Longitude: epicenter.Lon},
		{ID: "SME-NEAR", Name: "Salinas Logistics", Sector: "Logistics", County: "Monterey County", Latitude: near.Lat, Longitude: near.Lon},
		{ID: "SME-FAR", Name: "Big Sur Provisions", Sector: "Hospitality", County: "Monterey County", Latitude: far.Lat, Longitude: far.Lon},
	}, time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return snap
}

func TestAssessMontereyScenario(t *testing.T) {
	testutil.Given(t, "a saturation signal over Highway 68 and a three-entry registry", func(t *testing.T) {
		snap := montereyRegistry(t)

		testutil.When(t, "the signal is assessed", func(t *testing.T) {
			bundle, err := Assess(montereySignal(), snap)
			require.NoError(t, err)

			testutil.Then(t, "the decision is No-Go and high priority", func(t *testing.T) {
				d := bundle.Decision()
				assert.Equal(t, decision.TierNoGo, d.Tier)
				assert.True(t, d.IsHighPriority)
				assert.Equal(t, 0.95, d.Score)
			})

			testutil.Then(t, "exposures are the epicenter entry then the 12.5 km entry", func(t *testing.T) {
				exposures := bundle.Exposures()
				require.Len(t, exposures, 2)
				assert.Equal(t, "SME-EPI", exposures[0].Entry.ID)
				assert.Zero(t, exposures[0].DistanceKm)
				assert.Equal(t, "SME-NEAR", exposures[1].Entry.ID)
				assert.InDelta(t, 12.5, exposures[1].DistanceKm, 1e-6)
			})

			testutil.Then(t, "the entry beyond 15 km is excluded", func(t *testing.T) {
				for _, m := range bundle.Exposures() {
					assert.NotEqual(t, "SME-FAR", m.Entry.ID)
				}
			})

			testutil.Then(t, "the bundle records the snapshot it used", func(t *testing.T) {
				assert.Equal(t, snap.Version(), bundle.RegistryVersion())
				assert.Equal(t, "Monterey_Hwy68", bundle.Signal().Location)
			})
		})
	})
}

func TestAssessIsDeterministic(t *testing.T) {
	snap := montereyRegistry(t)

	first, err := Assess(montereySignal(), snap)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Assess(montereySignal(), snap)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	stampedA, err := Assess(montereySignal(), snap, WithID("a"), WithCreatedAt(time.Now()))
	require.NoError(t, err)
	stampedB, err := Assess(montereySignal(), snap, WithID("b"), WithCreatedAt(time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, stampedA.WithStamp("", time.Time{}), stampedB.WithStamp("", time.Time{}),
		"content must not depend on the stamps")
}

func TestAssessNilSnapshot(t *testing.T) {
	_, err := Assess(montereySignal(), nil)
	assert.ErrorIs(t, err, registry.ErrUnavailable)
}

func TestAssessPassesValidationErrorsThrough(t *testing.T) {
	raw := montereySignal()
	raw["risk_score"] = 1.5
	raw["geo_center"].(map[string]any)["lat"] = 200.0

	bundle, err := Assess(raw, montereyRegistry(t))

	assert.Nil(t, bundle)
	var verr *signal.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"risk_score", "geo_center.lat"}, verr.Fields())
}

func TestAssessEmptyExposureSet(t *testing.T) {
	raw := montereySignal()
	raw["geo_center"] = map[string]any{"lat": 0.0, "lon": 0.0, "impact_radius_km": 50.0}

	bundle, err := Assess(raw, montereyRegistry(t))
	require.NoError(t, err)

	assert.NotNil(t, bundle.Exposures())
	assert.Empty(t, bundle.Exposures())
	assert.True(t, bundle.Summary().NoSMEsAffected)
}

func TestAssessWithScoreOverridesSuppliedScore(t *testing.T) {
	bundle, err := Assess(montereySignal(), montereyRegistry(t), WithScore(0.3))
	require.NoError(t, err)

	assert.Equal(t, decision.TierGo, bundle.Decision().Tier)
	assert.Equal(t, 0.95, bundle.Signal().RiskScore, "the signal keeps its own score")
}

func TestAssessConcurrentSnapshotsAreIndependent(t *testing.T) {
	full := montereyRegistry(t)
	empty, err := registry.NewSnapshot(nil, time.Now())
	require.NoError(t, err)

	a, err := Assess(montereySignal(), full)
	require.NoError(t, err)
	b, err := Assess(montereySignal(), empty)
	require.NoError(t, err)

	assert.Len(t, a.Exposures(), 2)
	assert.Empty(t, b.Exposures())
	assert.NotEqual(t, a.RegistryVersion(), b.RegistryVersion())
}
