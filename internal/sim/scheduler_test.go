package sim

import (
	"errors"
	"testing"
	"time"

	"greencart/internal/model"
)

var schedStart = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func testRoutes(rs ...model.Route) map[string]model.Route {
	m := make(map[string]model.Route, len(rs))
	for _, r := range rs {
		m[r.ID] = r
	}
	return m
}

func TestScheduleRespectsHourCap(t *testing.T) {
	routes := testRoutes(model.Route{ID: "r1", DistanceKm: 10, TrafficLevel: model.TrafficLow, BaseTimeMinutes: 120})
	orders := make([]model.Order, 10)
	for i := range orders {
		orders[i] = model.Order{ID: string(rune('a' + i)), RouteID: "r1", ValueRs: 100, Priority: model.PriorityMedium}
	}
	states := NewWorkStates([]model.Driver{{ID: "d1"}, {ID: "d2"}}, schedStart)

	assignments, err := Schedule(states, orders, routes, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2h per order, cap 5h: each driver fits 2 orders, 6 of 10 dropped
	if len(assignments) != 4 {
		t.Fatalf("assignments = %d, want 4", len(assignments))
	}
	for i := range states {
		if states[i].HoursWorked > 5 {
			t.Fatalf("driver %s exceeded cap: %v hours", states[i].Driver.ID, states[i].HoursWorked)
		}
	}
}

func TestScheduleCapEqualityAllowed(t *testing.T) {
	routes := testRoutes(model.Route{ID: "r1", TrafficLevel: model.TrafficLow, BaseTimeMinutes: 60})
	states := NewWorkStates([]model.Driver{{ID: "d1"}}, schedStart)
	assignments, err := Schedule(states, []model.Order{{ID: "o1", RouteID: "r1"}}, routes, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assignments) != 1 {
		t.Fatalf("order landing exactly on the cap must still be assigned")
	}
}

func TestScheduleDropsUnplaceableOrder(t *testing.T) {
	routes := testRoutes(model.Route{ID: "r1", TrafficLevel: model.TrafficLow, BaseTimeMinutes: 120})
	states := NewWorkStates([]model.Driver{{ID: "d1"}}, schedStart)
	assignments, err := Schedule(states, []model.Order{{ID: "o1", RouteID: "r1"}}, routes, 1)
	if err != nil {
		t.Fatalf("dropping an order must not be an error, got: %v", err)
	}
	if len(assignments) != 0 {
		t.Fatalf("assignments = %d, want 0", len(assignments))
	}
	if states[0].HoursWorked != 0 || len(states[0].Assigned) != 0 {
		t.Fatalf("dropped order must not touch driver state: %+v", states[0])
	}
}

func TestScheduleLeastLoadedFirstEncounteredTieBreak(t *testing.T) {
	routes := testRoutes(model.Route{ID: "r1", TrafficLevel: model.TrafficLow, BaseTimeMinutes: 60})
	states := NewWorkStates([]model.Driver{{ID: "d1"}, {ID: "d2"}, {ID: "d3"}}, schedStart)
	orders := []model.Order{
		{ID: "o1", RouteID: "r1"},
		{ID: "o2", RouteID: "r1"},
		{ID: "o3", RouteID: "r1"},
		{ID: "o4", RouteID: "r1"},
	}
	assignments, err := Schedule(states, orders, routes, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// all drivers start equal, so assignment cycles in arena order
	wantDrivers := []int{0, 1, 2, 0}
	for i, a := range assignments {
		if a.DriverIndex != wantDrivers[i] {
			t.Fatalf("order %s went to driver %d, want %d", a.Order.ID, a.DriverIndex, wantDrivers[i])
		}
	}
}

func TestScheduleAdvancesClockWithTurnaround(t *testing.T) {
	routes := testRoutes(model.Route{ID: "r1", TrafficLevel: model.TrafficLow, BaseTimeMinutes: 60})
	states := NewWorkStates([]model.Driver{{ID: "d1"}}, schedStart)
	orders := []model.Order{{ID: "o1", RouteID: "r1"}, {ID: "o2", RouteID: "r1"}}
	assignments, err := Schedule(states, orders, routes, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assignments) != 2 {
		t.Fatalf("assignments = %d, want 2", len(assignments))
	}
	if !assignments[0].ScheduledTime.Equal(schedStart) {
		t.Fatalf("first scheduled = %v, want %v", assignments[0].ScheduledTime, schedStart)
	}
	if !assignments[0].ActualTime.Equal(schedStart.Add(60 * time.Minute)) {
		t.Fatalf("first actual = %v", assignments[0].ActualTime)
	}
	// second pickup waits out the 15 minute turnaround
	wantSecond := schedStart.Add(75 * time.Minute)
	if !assignments[1].ScheduledTime.Equal(wantSecond) {
		t.Fatalf("second scheduled = %v, want %v", assignments[1].ScheduledTime, wantSecond)
	}
}

func TestScheduleFatigueSlowsDriver(t *testing.T) {
	routes := testRoutes(model.Route{ID: "r1", TrafficLevel: model.TrafficLow, BaseTimeMinutes: 60})
	yesterday := schedStart.AddDate(0, 0, -1)
	drivers := []model.Driver{{ID: "tired", CurrentShiftHours: 10, LastWorkDate: &yesterday}}
	states := NewWorkStates(drivers, schedStart)
	if !states[0].IsFatigued {
		t.Fatalf("expected frozen fatigue flag on work state")
	}
	assignments, err := Schedule(states, []model.Order{{ID: "o1", RouteID: "r1"}}, routes, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignments[0].DeliveryMinutes != 78 {
		t.Fatalf("delivery minutes = %d, want 78", assignments[0].DeliveryMinutes)
	}
}

func TestScheduleUnknownRouteFailsRun(t *testing.T) {
	routes := testRoutes(model.Route{ID: "r1", TrafficLevel: model.TrafficLow, BaseTimeMinutes: 60})
	states := NewWorkStates([]model.Driver{{ID: "d1"}}, schedStart)
	_, err := Schedule(states, []model.Order{{ID: "o1", RouteID: "missing"}}, routes, 8)
	if !errors.Is(err, ErrUnknownRoute) {
		t.Fatalf("err = %v, want ErrUnknownRoute", err)
	}
}
