// Package sim implements the delivery-day simulation engine: fatigue
// stamping, order ranking, greedy capacity-constrained assignment, per-order
// scoring and fleet KPI aggregation. The engine is a pure computation over
// a snapshot the caller has already validated; it performs no I/O and keeps
// no state between runs.
package sim

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"greencart/internal/model"
)

// Config is one run's input parameters. Range validation (driver count
// 1-100, hours 0-24, fleet sufficiency) belongs to the caller; the engine
// only rejects inputs it cannot compute over at all.
type Config struct {
	NumberOfDrivers   int
	RouteStartTime    string // "HH:MM", 24-hour
	MaxHoursPerDriver float64

	// Now anchors the simulation date and the fatigue lookback. Zero means
	// the wall clock.
	Now time.Time
}

// Fatal engine errors. A run either completes with one result or fails
// before producing any output.
var (
	ErrNoDrivers    = errors.New("no drivers available to simulate")
	ErrNoRoutes     = errors.New("no routes available to simulate")
	ErrNoOrders     = errors.New("no pending orders to simulate")
	ErrBadStartTime = errors.New("invalid route start time")
	ErrUnknownRoute = errors.New("unknown route reference")
)

// Run executes the full pipeline over the supplied snapshot and returns a
// single immutable result. Orders that no driver can absorb under the hour
// cap are excluded from the result, not errors.
func Run(cfg Config, drivers []model.Driver, routes []model.Route, orders []model.Order) (*model.SimulationResult, error) {
	if len(drivers) == 0 {
		return nil, ErrNoDrivers
	}
	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}

	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	hour, minute, err := parseClock(cfg.RouteStartTime)
	if err != nil {
		return nil, err
	}
	startAt := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	routeIndex := make(map[string]model.Route, len(routes))
	for _, r := range routes {
		routeIndex[r.ID] = r
	}

	states := NewWorkStates(drivers, startAt)
	ranked := RankOrders(orders)

	assignments, err := Schedule(states, ranked, routeIndex, cfg.MaxHoursPerDriver)
	if err != nil {
		return nil, err
	}

	scores := make([]Score, len(assignments))
	details := make([]model.OrderDetail, len(assignments))
	for i, a := range assignments {
		scores[i] = ScoreAssignment(a)
		details[i] = model.OrderDetail{
			OrderID:       a.Order.ID,
			DriverID:      states[a.DriverIndex].Driver.ID,
			RouteID:       a.Route.ID,
			ScheduledTime: a.ScheduledTime,
			ActualTime:    a.ActualTime,
			IsOnTime:      scores[i].IsOnTime,
			Profit:        scores[i].Profit,
			Penalty:       scores[i].Penalty,
			Bonus:         scores[i].Bonus,
			FuelCost:      scores[i].FuelCost,
		}
	}

	totals, utilization := Aggregate(states, assignments, scores)

	avgPerDriver := 0.0
	if len(states) > 0 {
		avgPerDriver = round2(float64(totals.TotalDeliveries) / float64(len(states)))
	}

	return &model.SimulationResult{
		SimulationID: newSimulationID(now),
		Inputs: model.SimulationInputs{
			NumberOfDrivers:   cfg.NumberOfDrivers,
			RouteStartTime:    cfg.RouteStartTime,
			MaxHoursPerDriver: cfg.MaxHoursPerDriver,
		},
		Results:           totals,
		OrderDetails:      details,
		DriverUtilization: utilization,
		Summary: model.SimulationSummary{
			OrdersProcessed:        totals.TotalDeliveries,
			TotalOrdersAvailable:   len(orders),
			DriversUsed:            len(states),
			AverageOrdersPerDriver: avgPerDriver,
		},
		CreatedAt: now.UTC(),
	}, nil
}

func newSimulationID(now time.Time) string {
	return fmt.Sprintf("sim_%d_%s", now.UnixMilli(), strings.Split(uuid.NewString(), "-")[0])
}

// parseClock validates a 24-hour "HH:MM" string. Single-digit hours are
// accepted ("9:30").
func parseClock(s string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadStartTime, s)
	}
	hour, err = strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadStartTime, s)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || len(mm) != 2 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadStartTime, s)
	}
	return hour, minute, nil
}
