package registry

import "oact/internal/geo"

// Entry is one registered SME. Coordinates are the business location used for
// exposure matching.
type Entry struct {
	ID             string          `json:"sme_id" yaml:"sme_id" validate:"required"`
	Name           string          `json:"name" yaml:"name" validate:"required"`
	Sector         string          `json:"sector" yaml:"sector" validate:"required"`
	County         string          `json:"county" yaml:"county" validate:"required"`
	Latitude       float64         `json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude      float64         `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
	DeliveryRoutes []DeliveryRoute `json:"delivery_routes,omitempty" yaml:"delivery_routes" validate:"dive"`
}

// DeliveryRoute is a polyline an SME depends on for shipments.
type DeliveryRoute struct {
	Origin      string     `json:"origin" yaml:"origin" validate:"required"`
	Destination string     `json:"destination" yaml:"destination" validate:"required"`
	Waypoints   []Waypoint `json:"waypoints" yaml:"waypoints" validate:"min=2,dive"`
}

// Waypoint is a vertex of a delivery route.
type Waypoint struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" yaml:"lon" validate:"gte=-180,lte=180"`
}

// Point returns the SME location.
func (e Entry) Point() geo.Point {
	return geo.Point{Lat: e.Latitude, Lon: e.Longitude}
}

// Point returns the waypoint as a geo point.
func (w Waypoint) Point() geo.Point {
	return geo.Point{Lat: w.Lat, Lon: w.Lon}
}

// Label names the route for reports, e.g. "Salinas -> Monterey".
func (r DeliveryRoute) Label() string {
	return r.Origin + " -> " + r.Destination
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	out := e
	if e.DeliveryRoutes != nil {
		out.DeliveryRoutes = make([]DeliveryRoute, len(e.DeliveryRoutes))
		for i, r := range e.DeliveryRoutes {
			r.Waypoints = append([]Waypoint(nil), r.Waypoints...)
			out.DeliveryRoutes[i] = r
		}
	}
	return out
}
