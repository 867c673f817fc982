package api

import "greencart/internal/model"

func driverFixture(name string) model.Driver {
	return model.Driver{
		Name:              name,
		CurrentShiftHours: 6,
		Past7DayWorkHours: 40,
		IsActive:          true,
	}
}

// routeFixture is a 10 km low-traffic route with a 60-minute base time:
// fuel cost 50, on-time window 70 minutes.
func routeFixture(id string) model.Route {
	return model.Route{
		ID:              id,
		Name:            "Depot - Market",
		DistanceKm:      10,
		TrafficLevel:    model.TrafficLow,
		BaseTimeMinutes: 60,
		IsActive:        true,
	}
}

func orderFixture(id string, value float64, routeID string, priority model.Priority) model.Order {
	return model.Order{
		ID:       id,
		ValueRs:  value,
		RouteID:  routeID,
		Status:   model.OrderPending,
		Priority: priority,
	}
}
