package evidence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oact/internal/decision"
	"oact/internal/exposure"
	"oact/internal/geo"
	"oact/internal/registry"
	"oact/internal/signal"
)

var createdAt = time.Date(2026, 2, 14, 8, 30, 0, 0, time.UTC)

func sampleInputs() Inputs {
	sig := signal.RiskSignal{
		RiskScore:       0.92,
		Location:        "Monterey_Hwy68",
		PrimaryDriver:   "Wildfire",
		EstimatedImpact: "Road closures along Highway 68",
		GeoCenter:       signal.GeoCenter{Latitude: 36.6002, Longitude: -121.8947, ImpactRadiusKm: 15},
	}
	return Inputs{
		ID:              "b6f2c1d0-4a77-4c61-9d0b-2f1f5c1f0a11",
		CreatedAt:       createdAt,
		RegistryVersion: "55d3c0a1b2e4f678",
		Signal:          sig,
		Exposures: []exposure.Match{{
			Entry: registry.Entry{
				ID: "SME-001", Name: "Salinas Logistics", Sector: "Logistics", County: "Monterey County",
				Latitude: 36.68, Longitude: -121.79,
				DeliveryRoutes: []registry.DeliveryRoute{{
					Origin: "Salinas", Destination: "Monterey",
					Waypoints: []registry.Waypoint{{Lat: 36.68, Lon: -121.65}, {Lat: 36.6, Lon: -121.9}},
				}},
			},
			DistanceKm: 12.5,
		}},
		Routes: []exposure.RouteImpact{{
			SMEID: "SME-001", Origin: "Salinas", Destination: "Monterey", Interrupted: true,
			Point:      geo.Point{Lat: 36.6, Lon: -121.9},
			DistanceKm: 0.45,
			Waypoints:  []registry.Waypoint{{Lat: 36.68, Lon: -121.65}, {Lat: 36.6, Lon: -121.9}},
		}},
		Decision: decision.Classify(0.92),
	}
}

func TestAssembleCopiesInputs(t *testing.T) {
	in := sampleInputs()
	b := Assemble(in)

	in.Exposures[0].DistanceKm = 99
	in.Exposures[0].Entry.DeliveryRoutes[0].Waypoints[0].Lat = 0
	in.Routes[0].Waypoints[0].Lat = 0

	assert.Equal(t, 12.5, b.Exposures()[0].DistanceKm)
	assert.Equal(t, 36.68, b.Exposures()[0].Entry.DeliveryRoutes[0].Waypoints[0].Lat)
	assert.Equal(t, 36.68, b.Routes()[0].Waypoints[0].Lat)
}

func TestAccessorsReturnCopies(t *testing.T) {
	b := Assemble(sampleInputs())

	exposures := b.Exposures()
	exposures[0].Entry.Name = "changed"
	routes := b.Routes()
	routes[0].Interrupted = false

	assert.Equal(t, "Salinas Logistics", b.Exposures()[0].Entry.Name)
	assert.True(t, b.Routes()[0].Interrupted)
}

func TestAssembleNormalisesNilSlices(t *testing.T) {
	in := sampleInputs()
	in.Exposures = nil
	in.Routes = nil
	b := Assemble(in)

	assert.NotNil(t, b.Exposures())
	assert.NotNil(t, b.Routes())

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"exposures":[]`)
}

func TestSummary(t *testing.T) {
	t.Run("affected", func(t *testing.T) {
		s := Assemble(sampleInputs()).Summary()

		assert.Equal(t, "Monterey_Hwy68", s.Location)
		assert.Equal(t, "Wildfire", s.PrimaryDriver)
		assert.Equal(t, decision.TierNoGo, s.Tier)
		assert.Equal(t, decision.PriorityHigh, s.Priority)
		assert.True(t, s.IsHighPriority)
		assert.Equal(t, 1, s.AffectedCount)
		assert.Equal(t, []string{"Salinas Logistics"}, s.AffectedSMEs)
		assert.Equal(t, 1, s.InterruptedRoutes)
		assert.False(t, s.NoSMEsAffected)
	})

	t.Run("empty exposure set is explicit", func(t *testing.T) {
		in := sampleInputs()
		in.Exposures = []exposure.Match{}
		s := Assemble(in).Summary()

		assert.Zero(t, s.AffectedCount)
		assert.True(t, s.NoSMEsAffected)
		assert.NotNil(t, s.AffectedSMEs)
	})
}

func TestWithStampKeepsContent(t *testing.T) {
	b := Assemble(sampleInputs())
	later := createdAt.Add(time.Hour)

	stamped := b.WithStamp("other-id", later)

	assert.Equal(t, "other-id", stamped.ID())
	assert.Equal(t, later, stamped.CreatedAt())
	assert.Equal(t, b.Signal(), stamped.Signal())
	assert.Equal(t, b.Exposures(), stamped.Exposures())
	assert.Equal(t, b.Decision(), stamped.Decision())
	assert.Equal(t, sampleInputs().ID, b.ID())
}

func TestDecodeRoundTrip(t *testing.T) {
	b := Assemble(sampleInputs())
	data, err := json.Marshal(b)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, b, decoded)
}

func TestDecodeRejectsDriftedRecords(t *testing.T) {
	data, err := json.Marshal(Assemble(sampleInputs()))
	require.NoError(t, err)

	mutate := func(t *testing.T, fn func(doc map[string]any)) []byte {
		t.Helper()
		var doc map[string]any
		require.NoError(t, json.Unmarshal(data, &doc))
		fn(doc)
		out, err := json.Marshal(doc)
		require.NoError(t, err)
		return out
	}

	t.Run("signal with an extra key", func(t *testing.T) {
		raw := mutate(t, func(doc map[string]any) {
			doc["signal"].(map[string]any)["severity"] = "high"
		})
		_, err := Decode(raw)

		var verr *signal.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Has("severity", signal.ConstraintUnknownField))
	})

	t.Run("signal score out of range", func(t *testing.T) {
		raw := mutate(t, func(doc map[string]any) {
			doc["signal"].(map[string]any)["risk_score"] = 4.2
		})
		_, err := Decode(raw)

		var verr *signal.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("unknown tier", func(t *testing.T) {
		raw := mutate(t, func(doc map[string]any) {
			doc["decision"].(map[string]any)["tier"] = "Maybe"
		})
		_, err := Decode(raw)
		assert.Error(t, err)
	})

	t.Run("tier does not match score", func(t *testing.T) {
		raw := mutate(t, func(doc map[string]any) {
			doc["decision"] = map[string]any{"tier": "Go", "is_high_priority": true, "score": 0.97}
		})
		_, err := Decode(raw)
		assert.ErrorIs(t, err, ErrDecisionMismatch)
	})

	t.Run("priority does not match score", func(t *testing.T) {
		raw := mutate(t, func(doc map[string]any) {
			doc["decision"].(map[string]any)["is_high_priority"] = false
		})
		_, err := Decode(raw)
		assert.ErrorIs(t, err, ErrDecisionMismatch)
	})

	t.Run("decision score out of range", func(t *testing.T) {
		raw := mutate(t, func(doc map[string]any) {
			doc["decision"] = map[string]any{"tier": "No-Go", "is_high_priority": true, "score": 1.5}
		})
		_, err := Decode(raw)
		assert.ErrorIs(t, err, decision.ErrScoreOutOfRange)
	})

	t.Run("missing id", func(t *testing.T) {
		raw := mutate(t, func(doc map[string]any) { delete(doc, "id") })
		_, err := Decode(raw)
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := Decode([]byte("{"))
		assert.Error(t, err)
	})
}
