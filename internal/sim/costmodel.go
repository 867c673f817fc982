package sim

import (
	"math"

	"greencart/internal/model"
)

// Business-rule constants for route costing.
const (
	fuelCostPerKm             = 5.0
	highTrafficSurchargePerKm = 2.0

	mediumTrafficFactor = 1.2
	highTrafficFactor   = 1.5
	fatigueFactor       = 1.3
)

// FuelCost returns the fuel spend in currency units for one traversal of
// the route. High traffic adds a per-km surcharge; there is no rounding.
func FuelCost(r model.Route) float64 {
	cost := r.DistanceKm * fuelCostPerKm
	if r.TrafficLevel == model.TrafficHigh {
		cost += r.DistanceKm * highTrafficSurchargePerKm
	}
	return cost
}

// ExpectedDeliveryMinutes returns the traffic- and fatigue-adjusted time to
// run the route. Multipliers stack multiplicatively, traffic first, and the
// ceiling is taken once over the final product.
func ExpectedDeliveryMinutes(r model.Route, fatigued bool) int {
	t := r.BaseTimeMinutes
	switch r.TrafficLevel {
	case model.TrafficMedium:
		t *= mediumTrafficFactor
	case model.TrafficHigh:
		t *= highTrafficFactor
	}
	if fatigued {
		t *= fatigueFactor
	}
	return int(math.Ceil(t))
}
