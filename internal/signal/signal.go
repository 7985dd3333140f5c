// Package signal defines the validated risk event that drives an assessment
// and the validator that produces it from an untyped record.
package signal

import "oact/internal/geo"

// Field names of the persisted JSON shape.
const (
	FieldRiskScore       = "risk_score"
	FieldLocation        = "location"
	FieldPrimaryDriver   = "primary_driver"
	FieldEstimatedImpact = "estimated_impact"
	FieldGeoCenter       = "geo_center"
	FieldLat             = "lat"
	FieldLon             = "lon"
	FieldImpactRadiusKm  = "impact_radius_km"
)

// GeoCenter is the epicenter and blast radius of a signal.
type GeoCenter struct {
	Latitude       float64 `json:"lat"`
	Longitude      float64 `json:"lon"`
	ImpactRadiusKm float64 `json:"impact_radius_km"`
}

// Point returns the epicenter coordinates.
func (g GeoCenter) Point() geo.Point {
	return geo.Point{Lat: g.Latitude, Lon: g.Longitude}
}

// RiskSignal is a validated risk event. Values only come out of Validate or
// Parse, so holding one means every field constraint held.
//
// Location, PrimaryDriver and EstimatedImpact are descriptive: they label
// reports and are never used for matching or arithmetic.
type RiskSignal struct {
	RiskScore       float64   `json:"risk_score"`
	Location        string    `json:"location"`
	PrimaryDriver   string    `json:"primary_driver"`
	EstimatedImpact string    `json:"estimated_impact"`
	GeoCenter       GeoCenter `json:"geo_center"`
}

// Record renders the signal back into the raw shape accepted by Validate.
func (s RiskSignal) Record() map[string]any {
	return map[string]any{
		FieldRiskScore:       s.RiskScore,
		FieldLocation:        s.Location,
		FieldPrimaryDriver:   s.PrimaryDriver,
		FieldEstimatedImpact: s.EstimatedImpact,
		FieldGeoCenter: map[string]any{
			FieldLat:            s.GeoCenter.Latitude,
			FieldLon:            s.GeoCenter.Longitude,
			FieldImpactRadiusKm: s.GeoCenter.ImpactRadiusKm,
		},
	}
}
