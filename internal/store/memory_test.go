package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"greencart/internal/model"
)

func TestMemoryDriverCRUD(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	d, err := m.CreateDriver(ctx, model.Driver{Name: "Amit", IsActive: true})
	if err != nil || d.ID == "" {
		t.Fatalf("create driver: %v, id=%q", err, d.ID)
	}

	got, err := m.GetDriver(ctx, d.ID)
	if err != nil || got.Name != "Amit" {
		t.Fatalf("get driver: %v, %+v", err, got)
	}

	got.CurrentShiftHours = 5
	if _, err := m.UpdateDriver(ctx, got); err != nil {
		t.Fatalf("update driver: %v", err)
	}
	got, _ = m.GetDriver(ctx, d.ID)
	if got.CurrentShiftHours != 5 {
		t.Fatalf("update not persisted: %+v", got)
	}

	if err := m.DeleteDriver(ctx, d.ID); err != nil {
		t.Fatalf("delete driver: %v", err)
	}
	if _, err := m.GetDriver(ctx, d.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryListActiveDriversStableOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	names := []string{"a", "b", "c", "d"}
	for _, n := range names {
		if _, err := m.CreateDriver(ctx, model.Driver{Name: n, IsActive: n != "b"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	active, err := m.ListActiveDrivers(ctx, 0)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	want := []string{"a", "c", "d"}
	if len(active) != len(want) {
		t.Fatalf("active = %d, want %d", len(active), len(want))
	}
	for i, n := range want {
		if active[i].Name != n {
			t.Fatalf("position %d: got %s, want %s", i, active[i].Name, n)
		}
	}
	limited, _ := m.ListActiveDrivers(ctx, 2)
	if len(limited) != 2 || limited[1].Name != "c" {
		t.Fatalf("limited listing wrong: %+v", limited)
	}
}

func TestMemoryListOrdersCursor(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := m.CreateOrder(ctx, model.Order{ValueRs: float64(i), RouteID: "r1"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	page1, next, err := m.ListOrders(ctx, "", "", 2)
	if err != nil || len(page1) != 2 || next == "" {
		t.Fatalf("page1: %v, %d items, next=%q", err, len(page1), next)
	}
	page2, _, err := m.ListOrders(ctx, "", next, 2)
	if err != nil || len(page2) != 2 {
		t.Fatalf("page2: %v, %d items", err, len(page2))
	}
	if page2[0].ValueRs != 2 {
		t.Fatalf("cursor resumed at %v, want 2", page2[0].ValueRs)
	}
}

func TestMemorySimulationHistory(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, id := range []string{"sim_1", "sim_2", "sim_3"} {
		res := &model.SimulationResult{SimulationID: id, CreatedAt: time.Now()}
		if err := m.SaveSimulation(ctx, res); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	items, _, err := m.ListSimulations(ctx, "", 10)
	if err != nil || len(items) != 3 {
		t.Fatalf("list: %v, %d", err, len(items))
	}
	if items[0].SimulationID != "sim_3" {
		t.Fatalf("history must be newest first, got %s", items[0].SimulationID)
	}
	latest, err := m.LatestSimulation(ctx)
	if err != nil || latest.SimulationID != "sim_3" {
		t.Fatalf("latest: %v, %+v", err, latest)
	}
	if _, err := m.GetSimulation(ctx, "sim_2"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := m.GetSimulation(ctx, "sim_9"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemorySubscriptionEventMatch(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, err := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://a", Events: []string{"simulation.completed"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://b", Events: []string{"*"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.CreateSubscription(ctx, model.SubscriptionRequest{URL: "http://c", Events: []string{"other.event"}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	subs, err := m.GetSubscriptionsForEvent(ctx, "simulation.completed")
	if err != nil || len(subs) != 2 {
		t.Fatalf("matched %d subscriptions, want 2 (%v)", len(subs), err)
	}
}

func TestSeedFromYAML(t *testing.T) {
	fixture := `
drivers:
  - name: Amit
    currentShiftHours: 9
    lastWorkDate: 2026-03-09
  - name: Priya
    isActive: false
routes:
  - id: R001
    distanceKm: 10
    trafficLevel: Low
    baseTimeMinutes: 60
orders:
  - valueRs: 500
    routeId: R001
    priority: high
`
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	m := NewMemory()
	if err := SeedFromYAML(context.Background(), m, path); err != nil {
		t.Fatalf("seed: %v", err)
	}
	drivers, _ := m.ListActiveDrivers(context.Background(), 0)
	if len(drivers) != 1 || drivers[0].Name != "Amit" || drivers[0].LastWorkDate == nil {
		t.Fatalf("drivers = %+v", drivers)
	}
	routes, _ := m.ListActiveRoutes(context.Background())
	if len(routes) != 1 || routes[0].TrafficLevel != model.TrafficLow {
		t.Fatalf("routes = %+v", routes)
	}
	orders, _ := m.ListPendingOrders(context.Background())
	if len(orders) != 1 || orders[0].Priority != model.PriorityHigh || orders[0].Status != model.OrderPending {
		t.Fatalf("orders = %+v", orders)
	}
}

func TestSeedFromYAMLRejectsBadEnum(t *testing.T) {
	fixture := `
routes:
  - id: R001
    distanceKm: 10
    trafficLevel: Gridlock
    baseTimeMinutes: 60
`
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := SeedFromYAML(context.Background(), NewMemory(), path); err == nil {
		t.Fatalf("expected error for invalid traffic level")
	}
}
