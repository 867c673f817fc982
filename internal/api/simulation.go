package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"greencart/internal/metrics"
	"greencart/internal/sim"
)

type simulationRequest struct {
	NumberOfDrivers   int     `json:"numberOfDrivers"`
	RouteStartTime    string  `json:"routeStartTime"`
	MaxHoursPerDriver float64 `json:"maxHoursPerDriver"`
}

// RunSimulationHandler handles POST /v1/simulations/run. The run is atomic:
// either a full result is computed, persisted and returned, or an error is
// returned and nothing is recorded.
func (s *Server) RunSimulationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.requireManager(w, r)
	if !ok {
		return
	}
	var req simulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.SimulationRuns.WithLabelValues("invalid_input").Inc()
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateSimulationRequest(&req); err != nil {
		metrics.SimulationRuns.WithLabelValues("invalid_input").Inc()
		writeProblem(w, http.StatusBadRequest, "Invalid simulation parameters", err.Error(), r.URL.Path)
		return
	}

	ctx := r.Context()
	drivers, err := s.Store.ListActiveDrivers(ctx, req.NumberOfDrivers)
	if err != nil {
		metrics.SimulationRuns.WithLabelValues("failed").Inc()
		s.storeErr(w, r, err, "Load drivers failed")
		return
	}
	if len(drivers) < req.NumberOfDrivers {
		metrics.SimulationRuns.WithLabelValues("invalid_input").Inc()
		writeProblem(w, http.StatusBadRequest, "Not enough drivers",
			fmt.Sprintf("requested %d drivers but only %d are active", req.NumberOfDrivers, len(drivers)), r.URL.Path)
		return
	}
	routes, err := s.Store.ListActiveRoutes(ctx)
	if err != nil {
		metrics.SimulationRuns.WithLabelValues("failed").Inc()
		s.storeErr(w, r, err, "Load routes failed")
		return
	}
	orders, err := s.Store.ListPendingOrders(ctx)
	if err != nil {
		metrics.SimulationRuns.WithLabelValues("failed").Inc()
		s.storeErr(w, r, err, "Load orders failed")
		return
	}

	start := time.Now()
	res, err := sim.Run(sim.Config{
		NumberOfDrivers:   req.NumberOfDrivers,
		RouteStartTime:    req.RouteStartTime,
		MaxHoursPerDriver: req.MaxHoursPerDriver,
	}, drivers, routes, orders)
	metrics.SimulationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		switch {
		case errors.Is(err, sim.ErrNoDrivers), errors.Is(err, sim.ErrNoRoutes),
			errors.Is(err, sim.ErrNoOrders), errors.Is(err, sim.ErrBadStartTime):
			metrics.SimulationRuns.WithLabelValues("invalid_input").Inc()
			writeProblem(w, http.StatusBadRequest, "Simulation rejected", err.Error(), r.URL.Path)
		case errors.Is(err, sim.ErrUnknownRoute):
			metrics.SimulationRuns.WithLabelValues("failed").Inc()
			writeProblem(w, http.StatusUnprocessableEntity, "Inconsistent data", err.Error(), r.URL.Path)
		default:
			metrics.SimulationRuns.WithLabelValues("failed").Inc()
			writeProblem(w, http.StatusInternalServerError, "Simulation failed", err.Error(), r.URL.Path)
		}
		return
	}
	res.CreatedBy = p.UserID

	if err := s.Store.SaveSimulation(ctx, res); err != nil {
		metrics.SimulationRuns.WithLabelValues("failed").Inc()
		s.storeErr(w, r, err, "Save simulation failed")
		return
	}

	metrics.SimulationRuns.WithLabelValues("completed").Inc()
	metrics.SimulationOrders.WithLabelValues("assigned").Add(float64(res.Results.TotalDeliveries))
	metrics.SimulationOrders.WithLabelValues("dropped").Add(float64(res.Summary.TotalOrdersAvailable - res.Results.TotalDeliveries))

	eventData := map[string]any{
		"simulationId": res.SimulationID,
		"results":      res.Results,
		"inputs":       res.Inputs,
	}
	s.Broker.Publish("simulations", Event{Type: "simulation.completed", Data: eventData})
	s.Pub.Emit(ctx, "simulation.completed", eventData)

	writeJSON(w, http.StatusOK, res)
}

// SimulationsHandler handles GET /v1/simulations (history, newest first).
func (s *Server) SimulationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cursor, limit := listParams(r)
	items, next, err := s.Store.ListSimulations(r.Context(), cursor, limit)
	if err != nil {
		s.storeErr(w, r, err, "List simulations failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// SimulationByIDHandler handles GET /v1/simulations/{id}.
func (s *Server) SimulationByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := pathID(r, "/v1/simulations")
	if id == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	res, err := s.Store.GetSimulation(r.Context(), id)
	if err != nil {
		s.storeErr(w, r, err, "Get simulation failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DashboardKPIsHandler handles GET /v1/dashboard/kpis: the latest run's
// KPI block plus current order statistics. A fleet with no runs yet gets
// zeroed KPIs, not an error.
func (s *Server) DashboardKPIsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	stats, err := s.Store.OrderStats(ctx)
	if err != nil {
		s.storeErr(w, r, err, "Order stats failed")
		return
	}
	out := map[string]any{"orderStats": stats}
	latest, err := s.Store.LatestSimulation(ctx)
	if err == nil {
		out["latestSimulation"] = map[string]any{
			"simulationId": latest.SimulationID,
			"results":      latest.Results,
			"createdAt":    latest.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}
