package signal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	topLevelFields  = []string{FieldRiskScore, FieldLocation, FieldPrimaryDriver, FieldEstimatedImpact, FieldGeoCenter}
	geoCenterFields = []string{FieldLat, FieldLon, FieldImpactRadiusKm}
)

// collector accumulates violations; checks never short-circuit.
type collector struct {
	violations []Violation
}

func (c *collector) add(field, constraint, format string, args ...any) {
	c.violations = append(c.violations, Violation{
		Field:      field,
		Constraint: constraint,
		Message:    fmt.Sprintf(format, args...),
	})
}

// Validate checks a raw record and returns the validated signal, or a
// *ValidationError listing every violated constraint. Violations are reported
// top-level fields first (declaration order), geo_center fields next, unknown
// keys last (sorted), so the same record always yields the same error.
func Validate(raw map[string]any) (RiskSignal, error) {
	c := &collector{}
	var sig RiskSignal

	if score, ok := c.number(raw, FieldRiskScore, FieldRiskScore); ok {
		if score < 0 || score > 1 {
			c.add(FieldRiskScore, ConstraintRange, "must be within [0, 1], got %v", score)
		}
		sig.RiskScore = score
	}

	sig.Location, _ = c.text(raw, FieldLocation)
	sig.PrimaryDriver, _ = c.text(raw, FieldPrimaryDriver)
	sig.EstimatedImpact, _ = c.text(raw, FieldEstimatedImpact)
	sig.GeoCenter = c.geoCenter(raw)

	c.unknown(raw, "", topLevelFields)

	if len(c.violations) > 0 {
		return RiskSignal{}, &ValidationError{Violations: c.violations}
	}
	return sig, nil
}

// Parse decodes a JSON document and validates it. Malformed JSON is reported
// as a ValidationError so callers handle one failure type.
func Parse(data []byte) (RiskSignal, error) {
	raw, err := Decode(data)
	if err != nil {
		return RiskSignal{}, err
	}
	return Validate(raw)
}

// Decode turns a JSON document into the raw record Validate accepts, keeping
// numbers as json.Number. A document that is not a single JSON object is a
// *ValidationError on "$".
func Decode(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil || dec.More() {
		msg := "signal is not well-formed JSON"
		if err != nil {
			msg = fmt.Sprintf("signal is not well-formed JSON: %v", err)
		}
		return nil, &ValidationError{Violations: []Violation{{
			Field: "$", Constraint: ConstraintWellFormed, Message: msg,
		}}}
	}

	raw, ok := doc.(map[string]any)
	if !ok {
		return nil, &ValidationError{Violations: []Violation{{
			Field: "$", Constraint: ConstraintType, Message: "signal must be a JSON object",
		}}}
	}
	return raw, nil
}

func (c *collector) geoCenter(raw map[string]any) GeoCenter {
	var gc GeoCenter
	v, present := raw[FieldGeoCenter]
	if !present || v == nil {
		c.add(FieldGeoCenter, ConstraintRequired, "is required")
		return gc
	}
	obj, ok := v.(map[string]any)
	if !ok {
		c.add(FieldGeoCenter, ConstraintType, "must be an object with lat, lon and impact_radius_km")
		return gc
	}

	latPath := FieldGeoCenter + "." + FieldLat
	if lat, ok := c.number(obj, FieldLat, latPath); ok {
		if lat < -90 || lat > 90 {
			c.add(latPath, ConstraintRange, "must be within [-90, 90], got %v", lat)
		}
		gc.Latitude = lat
	}

	lonPath := FieldGeoCenter + "." + FieldLon
	if lon, ok := c.number(obj, FieldLon, lonPath); ok {
		if lon < -180 || lon > 180 {
			c.add(lonPath, ConstraintRange, "must be within [-180, 180], got %v", lon)
		}
		gc.Longitude = lon
	}

	radiusPath := FieldGeoCenter + "." + FieldImpactRadiusKm
	if radius, ok := c.number(obj, FieldImpactRadiusKm, radiusPath); ok {
		if radius < 0 {
			c.add(radiusPath, ConstraintRange, "must be >= 0, got %v", radius)
		}
		gc.ImpactRadiusKm = radius
	}

	c.unknown(obj, FieldGeoCenter+".", geoCenterFields)
	return gc
}

// number reads a present, finite numeric value. Strings are never coerced.
func (c *collector) number(obj map[string]any, key, path string) (float64, bool) {
	v, present := obj[key]
	if !present || v == nil {
		c.add(path, ConstraintRequired, "is required")
		return 0, false
	}

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			c.add(path, ConstraintType, "must be a number")
			return 0, false
		}
		f = parsed
	default:
		c.add(path, ConstraintType, "must be a number, got %T", v)
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		c.add(path, ConstraintRange, "must be a finite number")
		return 0, false
	}
	return f, true
}

// text reads a present, non-blank string. The value is kept as supplied
// apart from surrounding whitespace.
func (c *collector) text(obj map[string]any, key string) (string, bool) {
	v, present := obj[key]
	if !present || v == nil {
		c.add(key, ConstraintRequired, "is required")
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		c.add(key, ConstraintType, "must be a string, got %T", v)
		return "", false
	}
	// Whitespace only counts as empty; the value itself is kept as supplied.
	if strings.TrimSpace(s) == "" {
		c.add(key, ConstraintNonEmpty, "must not be empty")
		return "", false
	}
	return s, true
}

func (c *collector) unknown(obj map[string]any, prefix string, allowed []string) {
	var extra []string
	for key := range obj {
		if !contains(allowed, key) {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		c.add(prefix+key, ConstraintUnknownField, "is not a recognised signal field")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
