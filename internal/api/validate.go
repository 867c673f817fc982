package api

import (
	"fmt"
	"regexp"

	"greencart/internal/model"
)

var clockRe = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// validateSimulationRequest enforces the parameter ranges before the engine
// is invoked. Fleet sufficiency is checked separately against the store.
func validateSimulationRequest(req *simulationRequest) error {
	if req.NumberOfDrivers < 1 || req.NumberOfDrivers > 100 {
		return fmt.Errorf("numberOfDrivers must be between 1 and 100")
	}
	if !clockRe.MatchString(req.RouteStartTime) {
		return fmt.Errorf("routeStartTime must be in HH:MM format")
	}
	if req.MaxHoursPerDriver < 1 || req.MaxHoursPerDriver > 24 {
		return fmt.Errorf("maxHoursPerDriver must be between 1 and 24")
	}
	return nil
}

func validateDriver(d *model.Driver) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.CurrentShiftHours < 0 || d.CurrentShiftHours > 24 {
		return fmt.Errorf("currentShiftHours must be between 0 and 24")
	}
	if d.Past7DayWorkHours < 0 {
		return fmt.Errorf("past7DayWorkHours must be >= 0")
	}
	return nil
}

func validateRoute(r *model.Route) error {
	if r.DistanceKm < 0 {
		return fmt.Errorf("distanceKm must be >= 0")
	}
	if r.TrafficLevel == "" {
		return fmt.Errorf("trafficLevel is required")
	}
	if r.BaseTimeMinutes < 1 {
		return fmt.Errorf("baseTimeMinutes must be >= 1")
	}
	return nil
}

func validateOrder(o *model.Order) error {
	if o.ValueRs < 0 {
		return fmt.Errorf("valueRs must be >= 0")
	}
	if o.RouteID == "" {
		return fmt.Errorf("routeId is required")
	}
	return nil
}
