package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oact/internal/decision"
	"oact/internal/evidence"
	"oact/internal/exposure"
	"oact/internal/geo"
	"oact/internal/registry"
	"oact/internal/signal"
)

func bundleWith(score float64, exposures []exposure.Match, routes []exposure.RouteImpact) *evidence.Bundle {
	return evidence.Assemble(evidence.Inputs{
		ID:              "bundle-1",
		CreatedAt:       time.Date(2026, 2, 14, 8, 30, 0, 0, time.UTC),
		RegistryVersion: "abc123",
		Signal: signal.RiskSignal{
			RiskScore:       score,
			Location:        "Monterey_Hwy68",
			PrimaryDriver:   "Soil_Saturation_Critical",
			EstimatedImpact: "$15M_Day",
			GeoCenter:       signal.GeoCenter{Latitude: 36.6002, Longitude: -121.8947, ImpactRadiusKm: 15},
		},
		Exposures: exposures,
		Routes:    routes,
		Decision:  decision.Classify(score),
	})
}

func sampleExposures() []exposure.Match {
	return []exposure.Match{
		{Entry: registry.Entry{ID: "SME-EPI", Name: "Monterey Wharf Supply", Sector: "Retail", County: "Monterey County", Latitude: 36.6002, Longitude: -121.8947}, DistanceKm: 0},
		{Entry: registry.Entry{ID: "SME-NEAR", Name: "Salinas Logistics", Sector: "Logistics", County: "Monterey County", Latitude: 36.65, Longitude: -121.77}, DistanceKm: 12.499999873},
	}
}

func sampleRoutes() []exposure.RouteImpact {
	return []exposure.RouteImpact{
		{
			SMEID: "SME-NEAR", Origin: "Salinas", Destination: "Monterey", Interrupted: true,
			Point: geo.Point{Lat: 36.6002, Lon: -121.9}, DistanceKm: 0.473,
			Waypoints: []registry.Waypoint{{Lat: 36.5, Lon: -121.9}, {Lat: 36.7, Lon: -121.9}},
		},
		{
			SMEID: "SME-NEAR", RouteIndex: 1, Origin: "Salinas", Destination: "Gilroy",
			Point: geo.Point{Lat: 36.9, Lon: -121.6}, DistanceKm: 41.2,
			Waypoints: []registry.Waypoint{{Lat: 36.68, Lon: -121.65}, {Lat: 37.0, Lon: -121.57}},
		},
	}
}

func TestMarkdownHighPriority(t *testing.T) {
	md, err := Markdown(bundleWith(0.95, sampleExposures(), sampleRoutes()))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(md, "# Resilience Report: Monterey_Hwy68\n"))
	assert.Contains(t, md, "**HIGH PRIORITY**")
	assert.Contains(t, md, "| Decision | No-Go (HIGH) |")
	assert.Contains(t, md, "## Affected SMEs (2)")
	assert.Contains(t, md, "| SME-EPI | Monterey Wharf Supply | Retail | Monterey County | 0.00 |")
	assert.Contains(t, md, "| SME-NEAR | Salinas Logistics | Logistics | Monterey County | 12.50 |")
	assert.Contains(t, md, "| SME-NEAR | Salinas -> Monterey | INTERRUPTED | 0.47 |")
	assert.Contains(t, md, "| SME-NEAR | Salinas -> Gilroy | clear | 41.20 |")
	assert.NotContains(t, md, NoSMEsAffected)
	assert.Less(t, strings.Index(md, "SME-EPI"), strings.Index(md, "| SME-NEAR | Salinas Logistics"))
}

func TestMarkdownEmptyExposureSet(t *testing.T) {
	md, err := Markdown(bundleWith(0.3, nil, nil))
	require.NoError(t, err)

	assert.Contains(t, md, "## Affected SMEs (0)")
	assert.Contains(t, md, NoSMEsAffected)
	assert.Contains(t, md, "| Decision | Go (LOW) |")
	assert.NotContains(t, md, "HIGH PRIORITY")
	assert.NotContains(t, md, "## Delivery routes")
	assert.NotContains(t, md, "| SME ID |")
}

func TestMarkdownEscapesTableCells(t *testing.T) {
	exposures := sampleExposures()[:1]
	exposures[0].Entry.Name = "Fish | Chips\nCo"

	md, err := Markdown(bundleWith(0.6, exposures, nil))
	require.NoError(t, err)
	assert.Contains(t, md, `| Fish \| Chips Co |`)
}

func TestMapPayload(t *testing.T) {
	b := bundleWith(0.95, sampleExposures(), sampleRoutes())
	fc := MapPayload(b)

	assert.Equal(t, "FeatureCollection", fc.Type)
	// epicenter + circle + 2 SMEs + 1 interrupted route
	require.Len(t, fc.Features, 5)

	epi := fc.Features[0]
	assert.Equal(t, KindEpicenter, epi.Properties["kind"])
	assert.Equal(t, [2]float64{-121.8947, 36.6002}, epi.Geometry.Coordinates)
	assert.Equal(t, true, epi.Properties["is_high_priority"])

	circle := fc.Features[1]
	assert.Equal(t, "Polygon", circle.Geometry.Type)
	rings := circle.Geometry.Coordinates.([][][2]float64)
	require.Len(t, rings, 1)
	assert.Len(t, rings[0], circleVertices+1)
	assert.Equal(t, rings[0][0], rings[0][len(rings[0])-1])

	near := fc.Features[3]
	assert.Equal(t, KindSME, near.Properties["kind"])
	assert.Equal(t, 12.499999873, near.Properties["distance_km"], "map distances are not rounded")

	route := fc.Features[4]
	assert.Equal(t, "LineString", route.Geometry.Type)
	assert.Equal(t, KindRoute, route.Properties["kind"])
	assert.Equal(t, "Monterey", route.Properties["destination"])
}

func TestMapPayloadWithRegistry(t *testing.T) {
	far := registry.Entry{ID: "SME-FAR", Name: "Gilroy Cold Storage", Sector: "Agriculture", County: "Santa Clara County", Latitude: 37.0058, Longitude: -121.5683}
	entries := append([]registry.Entry{far}, entryList(sampleExposures())...)
	snap, err := registry.NewSnapshot(entries, time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	base := bundleWith(0.95, sampleExposures(), nil)
	b := evidence.Assemble(evidence.Inputs{
		ID:              base.ID(),
		CreatedAt:       base.CreatedAt(),
		RegistryVersion: snap.Version(),
		Signal:          base.Signal(),
		Exposures:       base.Exposures(),
		Decision:        base.Decision(),
	})

	t.Run("matching registry version adds safe markers", func(t *testing.T) {
		fc := MapPayload(b, WithRegistry(snap))
		// epicenter + circle + 2 SMEs + 1 safe SME
		require.Len(t, fc.Features, 5)

		safe := fc.Features[4]
		assert.Equal(t, KindSafeSME, safe.Properties["kind"])
		assert.Equal(t, "SME-FAR", safe.Properties["sme_id"])
		assert.Equal(t, [2]float64{-121.5683, 37.0058}, safe.Geometry.Coordinates)
		assert.Greater(t, safe.Properties["distance_km"].(float64), b.Signal().GeoCenter.ImpactRadiusKm)
	})

	t.Run("other registry version is ignored", func(t *testing.T) {
		fc := MapPayload(bundleWith(0.95, sampleExposures(), nil), WithRegistry(snap))
		require.Len(t, fc.Features, 4)
		for _, f := range fc.Features {
			assert.NotEqual(t, KindSafeSME, f.Properties["kind"])
		}
	})

	t.Run("no registry", func(t *testing.T) {
		assert.Len(t, MapPayload(b).Features, 4)
	})
}

func entryList(matches []exposure.Match) []registry.Entry {
	out := make([]registry.Entry, len(matches))
	for i, m := range matches {
		out[i] = m.Entry
	}
	return out
}

func TestMapPayloadEncodesAsGeoJSON(t *testing.T) {
	data, err := json.Marshal(MapPayload(bundleWith(0.2, nil, nil)))
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)
	assert.Equal(t, "Point", doc.Features[0].Geometry.Type)
	assert.Equal(t, "Polygon", doc.Features[1].Geometry.Type)
}
