package sim

import (
	"fmt"
	"time"

	"greencart/internal/model"
)

// Minutes a driver is unavailable between completing one delivery and
// starting the next.
const turnaroundMinutes = 15

// DriverWorkState tracks one driver's accumulating load within a single run.
// States live in a slice arena owned by the scheduler, indexed by driver
// position, and are mutated in place; nothing outside the run aliases them.
type DriverWorkState struct {
	Driver      model.Driver
	HoursWorked float64
	Assigned    []string
	Clock       time.Time
	IsFatigued  bool
}

// Assignment is one committed order placement, before scoring.
type Assignment struct {
	Order           model.Order
	Route           model.Route
	DriverIndex     int
	DeliveryMinutes int
	ScheduledTime   time.Time
	ActualTime      time.Time
}

// NewWorkStates builds the per-run arena. The fatigue flag is evaluated
// once here and frozen for the run; the slice order fixes the tie-break
// enumeration order for the whole run.
func NewWorkStates(drivers []model.Driver, startAt time.Time) []DriverWorkState {
	states := make([]DriverWorkState, len(drivers))
	for i, d := range drivers {
		fatigued := Fatigued(d, startAt)
		d.IsFatigued = fatigued
		states[i] = DriverWorkState{
			Driver:     d,
			Clock:      startAt,
			IsFatigued: fatigued,
		}
	}
	return states
}

// Schedule walks the ranked orders once, committing each to the least
// loaded driver who can absorb it without crossing the hour cap (equality
// allowed). Ties go to the earliest driver in arena order. Orders nobody
// can carry are dropped, not errors. An order referencing a route missing
// from the snapshot aborts the run.
func Schedule(states []DriverWorkState, ranked []model.Order, routes map[string]model.Route, maxHours float64) ([]Assignment, error) {
	assignments := make([]Assignment, 0, len(ranked))

	for _, order := range ranked {
		route, ok := routes[order.RouteID]
		if !ok {
			return nil, fmt.Errorf("%w: order %s references route %s", ErrUnknownRoute, order.ID, order.RouteID)
		}

		best := -1
		minLoad := 0.0
		for i := range states {
			minutes := ExpectedDeliveryMinutes(route, states[i].IsFatigued)
			hours := float64(minutes) / 60.0
			if states[i].HoursWorked+hours > maxHours {
				continue
			}
			if best == -1 || states[i].HoursWorked < minLoad {
				best = i
				minLoad = states[i].HoursWorked
			}
		}
		if best == -1 {
			continue
		}

		st := &states[best]
		minutes := ExpectedDeliveryMinutes(route, st.IsFatigued)
		scheduled := st.Clock
		actual := scheduled.Add(time.Duration(minutes) * time.Minute)

		st.HoursWorked += float64(minutes) / 60.0
		st.Clock = actual.Add(turnaroundMinutes * time.Minute)
		st.Assigned = append(st.Assigned, order.ID)

		assignments = append(assignments, Assignment{
			Order:           order,
			Route:           route,
			DriverIndex:     best,
			DeliveryMinutes: minutes,
			ScheduledTime:   scheduled,
			ActualTime:      actual,
		})
	}

	return assignments, nil
}
