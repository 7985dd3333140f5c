package report

import (
	"oact/internal/evidence"
	"oact/internal/geo"
	"oact/internal/registry"
)

// circleVertices is the outline resolution of the impact circle.
const circleVertices = 64

// FeatureCollection is a GeoJSON (RFC 7946) feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON feature.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry is a GeoJSON geometry. Coordinates are [lon, lat] positions.
type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// Feature kinds carried in the "kind" property.
const (
	KindEpicenter = "epicenter"
	KindRadius    = "impact_radius"
	KindSME       = "sme"
	KindSafeSME   = "safe_sme"
	KindRoute     = "interrupted_route"
)

// MapOption configures MapPayload.
type MapOption func(*mapOptions)

type mapOptions struct {
	snap *registry.Snapshot
}

// WithRegistry adds a marker for every registered SME outside the impact
// radius. The snapshot is used only when its version is the one the bundle
// was assessed against; otherwise the safe markers are omitted.
func WithRegistry(snap *registry.Snapshot) MapOption {
	return func(o *mapOptions) { o.snap = snap }
}

// MapPayload projects the bundle onto a map layer: the epicenter, the impact
// circle, one point per affected SME and a line for each interrupted route.
// SME distances are the bundle's values, unrounded.
func MapPayload(b *evidence.Bundle, opts ...MapOption) FeatureCollection {
	var o mapOptions
	for _, opt := range opts {
		opt(&o)
	}

	sig := b.Signal()
	d := b.Decision()
	center := sig.GeoCenter.Point()

	features := []Feature{
		{
			Type:     "Feature",
			Geometry: Geometry{Type: "Point", Coordinates: position(center)},
			Properties: map[string]any{
				"kind":             KindEpicenter,
				"bundle_id":        b.ID(),
				"location":         sig.Location,
				"primary_driver":   sig.PrimaryDriver,
				"tier":             d.Tier.String(),
				"priority":         d.Priority(),
				"is_high_priority": d.IsHighPriority,
				"score":            d.Score,
			},
		},
		{
			Type:     "Feature",
			Geometry: Geometry{Type: "Polygon", Coordinates: [][][2]float64{ring(geo.Circle(center, sig.GeoCenter.ImpactRadiusKm, circleVertices))}},
			Properties: map[string]any{
				"kind":      KindRadius,
				"radius_km": sig.GeoCenter.ImpactRadiusKm,
			},
		},
	}

	for _, m := range b.Exposures() {
		features = append(features, Feature{
			Type:     "Feature",
			Geometry: Geometry{Type: "Point", Coordinates: position(m.Entry.Point())},
			Properties: map[string]any{
				"kind":        KindSME,
				"sme_id":      m.Entry.ID,
				"name":        m.Entry.Name,
				"sector":      m.Entry.Sector,
				"county":      m.Entry.County,
				"distance_km": m.DistanceKm,
			},
		})
	}

	if o.snap != nil && o.snap.Version() == b.RegistryVersion() {
		features = append(features, safeFeatures(b, o.snap)...)
	}

	for _, r := range b.InterruptedRoutes() {
		line := make([][2]float64, len(r.Waypoints))
		for i, w := range r.Waypoints {
			line[i] = position(w.Point())
		}
		features = append(features, Feature{
			Type:     "Feature",
			Geometry: Geometry{Type: "LineString", Coordinates: line},
			Properties: map[string]any{
				"kind":         KindRoute,
				"sme_id":       r.SMEID,
				"route_index":  r.RouteIndex,
				"origin":       r.Origin,
				"destination":  r.Destination,
				"intersection": position(r.Point),
			},
		})
	}

	return FeatureCollection{Type: "FeatureCollection", Features: features}
}

func safeFeatures(b *evidence.Bundle, snap *registry.Snapshot) []Feature {
	affected := make(map[string]struct{}, b.AffectedCount())
	for _, m := range b.Exposures() {
		affected[m.Entry.ID] = struct{}{}
	}
	center := b.Signal().GeoCenter.Point()

	var out []Feature
	snap.Each(func(e registry.Entry) {
		if _, ok := affected[e.ID]; ok {
			return
		}
		out = append(out, Feature{
			Type:     "Feature",
			Geometry: Geometry{Type: "Point", Coordinates: position(e.Point())},
			Properties: map[string]any{
				"kind":        KindSafeSME,
				"sme_id":      e.ID,
				"name":        e.Name,
				"sector":      e.Sector,
				"county":      e.County,
				"distance_km": geo.HaversineKm(center, e.Point()),
			},
		})
	})
	return out
}

func position(p geo.Point) [2]float64 {
	return [2]float64{p.Lon, p.Lat}
}

func ring(pts []geo.Point) [][2]float64 {
	out := make([][2]float64, len(pts))
	for i, p := range pts {
		out[i] = position(p)
	}
	return out
}
