package exposure

import (
	"math"

	"oact/internal/geo"
	"oact/internal/registry"
	"oact/internal/signal"
)

// RouteImpact describes how close one delivery route passes to the epicenter.
// Point is where the route enters the radius when Interrupted, otherwise its
// closest approach.
type RouteImpact struct {
	SMEID       string              `json:"sme_id"`
	RouteIndex  int                 `json:"route_index"`
	Origin      string              `json:"origin"`
	Destination string              `json:"destination"`
	Interrupted bool                `json:"interrupted"`
	Point       geo.Point           `json:"point"`
	DistanceKm  float64             `json:"distance_km"`
	Waypoints   []registry.Waypoint `json:"waypoints"`
}

// Routes evaluates every declared delivery route in the snapshot, ordered by
// SME ID then declaration order. Segments are scanned in order and the first
// one whose closest point lies within the radius interrupts the route. The
// closest point is projected in degree space and measured with haversine.
func Routes(sig signal.RiskSignal, snap *registry.Snapshot) []RouteImpact {
	impacts := []RouteImpact{}
	if snap == nil {
		return impacts
	}

	center := sig.GeoCenter.Point()
	radius := sig.GeoCenter.ImpactRadiusKm
	snap.Each(func(e registry.Entry) {
		for i, route := range e.DeliveryRoutes {
			impact := RouteImpact{
				SMEID:       e.ID,
				RouteIndex:  i,
				Origin:      route.Origin,
				Destination: route.Destination,
				Waypoints:   append([]registry.Waypoint(nil), route.Waypoints...),
			}
			impact.Interrupted, impact.Point, impact.DistanceKm = interrupted(route, center, radius)
			impacts = append(impacts, impact)
		}
	})
	return impacts
}

// Interrupted returns only the routes that cross the radius.
func Interrupted(impacts []RouteImpact) []RouteImpact {
	out := []RouteImpact{}
	for _, r := range impacts {
		if r.Interrupted {
			out = append(out, r)
		}
	}
	return out
}

func interrupted(route registry.DeliveryRoute, center geo.Point, radiusKm float64) (bool, geo.Point, float64) {
	var closest geo.Point
	closestKm := math.Inf(1)
	for i := 0; i+1 < len(route.Waypoints); i++ {
		candidate := geo.ClosestPointOnSegment(route.Waypoints[i].Point(), route.Waypoints[i+1].Point(), center)
		d := geo.HaversineKm(center, candidate)
		if d <= radiusKm {
			return true, candidate, d
		}
		if d < closestKm {
			closest, closestKm = candidate, d
		}
	}
	if math.IsInf(closestKm, 1) {
		return false, closest, 0
	}
	return false, closest, closestKm
}
