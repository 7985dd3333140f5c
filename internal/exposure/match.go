// Package exposure finds the registered SMEs and delivery routes that fall
// inside a signal's impact radius.
package exposure

import (
	"sort"

	"oact/internal/geo"
	"oact/internal/registry"
	"oact/internal/signal"
)

// Match is an SME inside the impact radius and its great-circle distance from
// the epicenter.
type Match struct {
	Entry      registry.Entry `json:"sme"`
	DistanceKm float64        `json:"distance_km"`
}

// Find returns every entry whose haversine distance from the epicenter is at
// most the impact radius, nearest first with ties broken by ID. The result is
// never nil; no matches is an empty slice.
func Find(sig signal.RiskSignal, snap *registry.Snapshot) []Match {
	matches := []Match{}
	if snap == nil {
		return matches
	}

	center := sig.GeoCenter.Point()
	radius := sig.GeoCenter.ImpactRadiusKm
	for _, e := range snap.Entries() {
		d := geo.HaversineKm(center, e.Point())
		if d <= radius {
			matches = append(matches, Match{Entry: e, DistanceKm: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		return matches[i].Entry.ID < matches[j].Entry.ID
	})
	return matches
}
