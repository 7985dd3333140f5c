// Package geo implements the spherical-earth distance math used for exposure
// matching. All distances are kilometres; all public angles are degrees.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius of the spherical model.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// HaversineKm returns the great-circle surface distance between a and b.
func HaversineKm(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	// Rounding can push h a hair above 1 for antipodal points.
	h = math.Min(1, h)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// Destination returns the point reached by travelling distanceKm from p along
// the initial bearing (degrees clockwise from north).
func Destination(p Point, bearingDeg, distanceKm float64) Point {
	lat1, lon1 := radians(p.Lat), radians(p.Lon)
	theta := radians(bearingDeg)
	delta := distanceKm / EarthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lon2 := lon1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)
	// Normalise to [-180, 180).
	lon := math.Mod(degrees(lon2)+540, 360) - 180
	return Point{Lat: degrees(lat2), Lon: lon}
}

// ClosestPointOnSegment projects p onto segment [start, end] in planar
// lat/lon space and clamps to the segment. It is a local approximation and
// is only used to pick the candidate point; distances are still haversine.
func ClosestPointOnSegment(start, end, p Point) Point {
	dx := end.Lat - start.Lat
	dy := end.Lon - start.Lon
	if dx == 0 && dy == 0 {
		return start
	}
	t := ((p.Lat-start.Lat)*dx + (p.Lon-start.Lon)*dy) / (dx*dx + dy*dy)
	t = math.Max(0, math.Min(1, t))
	return Point{Lat: start.Lat + t*dx, Lon: start.Lon + t*dy}
}

// Circle approximates a circle of radiusKm around center with n vertices,
// closed (first vertex repeated last). Used for map outlines.
func Circle(center Point, radiusKm float64, n int) []Point {
	if n < 3 {
		n = 3
	}
	ring := make([]Point, 0, n+1)
	for i := 0; i < n; i++ {
		ring = append(ring, Destination(center, 360*float64(i)/float64(n), radiusKm))
	}
	return append(ring, ring[0])
}
