package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"greencart/internal/auth"
	"greencart/internal/store"
	"greencart/internal/webhooks"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mem := store.NewMemory()
	return &Server{
		Store:  mem,
		Pub:    webhooks.NewPublisher(mem),
		Auth:   auth.NewVerifierFromEnv(),
		Broker: NewBroker(),
	}
}

func doJSON(t *testing.T, h http.HandlerFunc, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func seedFleet(t *testing.T, s *Server) {
	t.Helper()
	ctx := context.Background()
	for _, name := range []string{"Amit", "Priya"} {
		if _, err := s.Store.CreateDriver(ctx, driverFixture(name)); err != nil {
			t.Fatalf("seed driver: %v", err)
		}
	}
	rt := routeFixture("R1")
	if _, err := s.Store.CreateRoute(ctx, rt); err != nil {
		t.Fatalf("seed route: %v", err)
	}
	if _, err := s.Store.CreateOrder(ctx, orderFixture("o1", 1500, "R1", "high")); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if _, err := s.Store.CreateOrder(ctx, orderFixture("o2", 500, "R1", "low")); err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func TestDriverCRUD(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s.DriversHandler, http.MethodPost, "/v1/drivers",
		map[string]any{"name": "Amit", "currentShiftHours": 6, "past7DayWorkHours": 40, "isActive": true}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d: %s", rr.Code, rr.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("create response missing id: %s", rr.Body.String())
	}

	rr = doJSON(t, s.DriverByIDHandler, http.MethodGet, "/v1/drivers/"+created.ID, nil, nil)
	if rr.Code != 200 {
		t.Fatalf("get: got %d", rr.Code)
	}

	rr = doJSON(t, s.DriverByIDHandler, http.MethodPut, "/v1/drivers/"+created.ID,
		map[string]any{"name": "Amit K", "currentShiftHours": 7, "isActive": true}, nil)
	if rr.Code != 200 {
		t.Fatalf("update: got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, s.DriverByIDHandler, http.MethodDelete, "/v1/drivers/"+created.ID, nil, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d", rr.Code)
	}
	rr = doJSON(t, s.DriverByIDHandler, http.MethodGet, "/v1/drivers/"+created.ID, nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete: got %d", rr.Code)
	}
}

func TestDriverValidation(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s.DriversHandler, http.MethodPost, "/v1/drivers",
		map[string]any{"name": "Bad", "currentShiftHours": 30}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range shift hours, got %d", rr.Code)
	}
	rr = doJSON(t, s.DriversHandler, http.MethodPost, "/v1/drivers",
		map[string]any{"currentShiftHours": 5}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", rr.Code)
	}
}

func TestRouteRejectsBadTrafficLevel(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s.RoutesHandler, http.MethodPost, "/v1/routes",
		map[string]any{"distanceKm": 10, "trafficLevel": "Gridlock", "baseTimeMinutes": 60}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown traffic level, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestOrderRequiresKnownRoute(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s.OrdersHandler, http.MethodPost, "/v1/orders",
		map[string]any{"valueRs": 900, "routeId": "nope", "priority": "low"}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown route reference, got %d", rr.Code)
	}
}

func TestMutationsRequireManagerRole(t *testing.T) {
	s := newTestServer(t)
	viewer := map[string]string{"X-Role": "viewer"}
	rr := doJSON(t, s.DriversHandler, http.MethodPost, "/v1/drivers",
		map[string]any{"name": "Amit"}, viewer)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("driver create as viewer: got %d", rr.Code)
	}
	rr = doJSON(t, s.RunSimulationHandler, http.MethodPost, "/v1/simulations/run",
		map[string]any{"numberOfDrivers": 1, "routeStartTime": "09:00", "maxHoursPerDriver": 8}, viewer)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("run as viewer: got %d", rr.Code)
	}
	// reads stay open
	rr = doJSON(t, s.DriversHandler, http.MethodGet, "/v1/drivers", nil, viewer)
	if rr.Code != 200 {
		t.Fatalf("driver list as viewer: got %d", rr.Code)
	}
}

func TestRunSimulationValidation(t *testing.T) {
	s := newTestServer(t)
	seedFleet(t, s)
	cases := []map[string]any{
		{"numberOfDrivers": 0, "routeStartTime": "09:00", "maxHoursPerDriver": 8},
		{"numberOfDrivers": 101, "routeStartTime": "09:00", "maxHoursPerDriver": 8},
		{"numberOfDrivers": 1, "routeStartTime": "9am", "maxHoursPerDriver": 8},
		{"numberOfDrivers": 1, "routeStartTime": "24:00", "maxHoursPerDriver": 8},
		{"numberOfDrivers": 1, "routeStartTime": "09:00", "maxHoursPerDriver": 0},
		{"numberOfDrivers": 1, "routeStartTime": "09:00", "maxHoursPerDriver": 25},
	}
	for i, body := range cases {
		rr := doJSON(t, s.RunSimulationHandler, http.MethodPost, "/v1/simulations/run", body, nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d: %s", i, rr.Code, rr.Body.String())
		}
	}
}

func TestRunSimulationInsufficientDrivers(t *testing.T) {
	s := newTestServer(t)
	seedFleet(t, s)
	rr := doJSON(t, s.RunSimulationHandler, http.MethodPost, "/v1/simulations/run",
		map[string]any{"numberOfDrivers": 5, "routeStartTime": "09:00", "maxHoursPerDriver": 8}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	var p Problem
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil || p.Title != "Not enough drivers" {
		t.Fatalf("unexpected problem body: %s", rr.Body.String())
	}
}

func TestRunSimulationEndToEnd(t *testing.T) {
	s := newTestServer(t)
	seedFleet(t, s)

	// create a subscription so the run enqueues a webhook delivery
	rr := doJSON(t, s.SubscriptionsHandler, http.MethodPost, "/v1/subscriptions",
		map[string]any{"url": "https://example.invalid/hook", "events": []string{"simulation.completed"}, "secret": "shh"}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create sub: got %d: %s", rr.Code, rr.Body.String())
	}

	ch := s.Broker.Subscribe("simulations")
	defer s.Broker.Unsubscribe("simulations", ch)

	rr = doJSON(t, s.RunSimulationHandler, http.MethodPost, "/v1/simulations/run",
		map[string]any{"numberOfDrivers": 2, "routeStartTime": "09:00", "maxHoursPerDriver": 8},
		map[string]string{"X-Role": "manager", "X-User-Id": "u1"})
	if rr.Code != 200 {
		t.Fatalf("run: got %d: %s", rr.Code, rr.Body.String())
	}

	var res struct {
		SimulationID string `json:"simulationId"`
		Results      struct {
			TotalProfit     float64 `json:"totalProfit"`
			EfficiencyScore int     `json:"efficiencyScore"`
			TotalDeliveries int     `json:"totalDeliveries"`
			TotalFuelCost   float64 `json:"totalFuelCost"`
			TotalBonuses    float64 `json:"totalBonuses"`
		} `json:"results"`
		Summary struct {
			OrdersProcessed int `json:"ordersProcessed"`
			DriversUsed     int `json:"driversUsed"`
		} `json:"summary"`
		CreatedBy string `json:"createdBy"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if res.SimulationID == "" {
		t.Fatalf("missing simulationId")
	}
	// 1500 order: fuel 50, bonus 150, profit 1600; 500 order: fuel 50, profit 450
	if res.Results.TotalProfit != 2050 {
		t.Fatalf("totalProfit: got %v, want 2050", res.Results.TotalProfit)
	}
	if res.Results.EfficiencyScore != 100 || res.Results.TotalDeliveries != 2 {
		t.Fatalf("efficiency/deliveries: got %d/%d", res.Results.EfficiencyScore, res.Results.TotalDeliveries)
	}
	if res.Results.TotalFuelCost != 100 || res.Results.TotalBonuses != 150 {
		t.Fatalf("fuel/bonus: got %v/%v", res.Results.TotalFuelCost, res.Results.TotalBonuses)
	}
	if res.Summary.OrdersProcessed != 2 || res.Summary.DriversUsed != 2 {
		t.Fatalf("summary: %+v", res.Summary)
	}
	if res.CreatedBy != "u1" {
		t.Fatalf("createdBy: got %q", res.CreatedBy)
	}

	// broker event
	select {
	case evt := <-ch:
		if evt.Type != "simulation.completed" {
			t.Fatalf("event type: %s", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no broker event received")
	}

	// webhook delivery enqueued
	dels, err := s.Store.FetchDueWebhookDeliveries(context.Background(), 10)
	if err != nil || len(dels) == 0 {
		t.Fatalf("expected queued webhook delivery, got %d (%v)", len(dels), err)
	}
	if dels[0].EventType != "simulation.completed" {
		t.Fatalf("delivery event type: %s", dels[0].EventType)
	}

	// history and fetch by id
	rr = doJSON(t, s.SimulationsHandler, http.MethodGet, "/v1/simulations", nil, nil)
	if rr.Code != 200 {
		t.Fatalf("history: got %d", rr.Code)
	}
	var hist struct {
		Items []struct {
			SimulationID string `json:"simulationId"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &hist); err != nil || len(hist.Items) != 1 {
		t.Fatalf("history items: %s", rr.Body.String())
	}
	rr = doJSON(t, s.SimulationByIDHandler, http.MethodGet, "/v1/simulations/"+res.SimulationID, nil, nil)
	if rr.Code != 200 {
		t.Fatalf("get simulation: got %d", rr.Code)
	}

	// dashboard reflects the latest run
	rr = doJSON(t, s.DashboardKPIsHandler, http.MethodGet, "/v1/dashboard/kpis", nil, nil)
	if rr.Code != 200 {
		t.Fatalf("dashboard: got %d", rr.Code)
	}
	var dash struct {
		LatestSimulation *struct {
			SimulationID string `json:"simulationId"`
		} `json:"latestSimulation"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &dash); err != nil || dash.LatestSimulation == nil {
		t.Fatalf("dashboard body: %s", rr.Body.String())
	}
	if dash.LatestSimulation.SimulationID != res.SimulationID {
		t.Fatalf("dashboard latest: got %s, want %s", dash.LatestSimulation.SimulationID, res.SimulationID)
	}
}

func TestRunSimulationNoPendingOrders(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	if _, err := s.Store.CreateDriver(ctx, driverFixture("Amit")); err != nil {
		t.Fatalf("seed driver: %v", err)
	}
	if _, err := s.Store.CreateRoute(ctx, routeFixture("R1")); err != nil {
		t.Fatalf("seed route: %v", err)
	}
	rr := doJSON(t, s.RunSimulationHandler, http.MethodPost, "/v1/simulations/run",
		map[string]any{"numberOfDrivers": 1, "routeStartTime": "09:00", "maxHoursPerDriver": 8}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 with no pending orders, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s.SubscriptionsHandler, http.MethodPost, "/v1/subscriptions",
		map[string]any{"url": "ftp://bad", "events": []string{"simulation.completed"}}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-http url, got %d", rr.Code)
	}

	rr = doJSON(t, s.SubscriptionsHandler, http.MethodPost, "/v1/subscriptions",
		map[string]any{"url": "https://example.invalid/hook", "events": []string{"*"}}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d", rr.Code)
	}
	var sub struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &sub); err != nil || sub.ID == "" {
		t.Fatalf("create body: %s", rr.Body.String())
	}

	rr = doJSON(t, s.SubscriptionsHandler, http.MethodGet, "/v1/subscriptions", nil, nil)
	if rr.Code != 200 {
		t.Fatalf("list: got %d", rr.Code)
	}

	rr = doJSON(t, s.SubscriptionByIDHandler, http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d", rr.Code)
	}
}
