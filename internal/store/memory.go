package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"greencart/internal/model"
)

// Memory is an in-memory store used when no DATABASE_URL is set and in
// tests. Id slices preserve insertion order so listings and simulation
// snapshots enumerate records in a stable order.
type Memory struct {
	mu        sync.Mutex
	drivers   map[string]model.Driver
	driverIDs []string
	routes    map[string]model.Route
	routeIDs  []string
	orders    map[string]model.Order
	orderIDs  []string

	sims   map[string]*model.SimulationResult
	simIDs []string

	subs map[string]model.Subscription
	// Webhook queue state
	deliveries  map[string]*memDelivery
	deliveryIDs []string
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	DeliveredAt   *time.Time
}

func NewMemory() *Memory {
	return &Memory{
		drivers:    map[string]model.Driver{},
		routes:     map[string]model.Route{},
		orders:     map[string]model.Order{},
		sims:       map[string]*model.SimulationResult{},
		subs:       map[string]model.Subscription{},
		deliveries: map[string]*memDelivery{},
	}
}

// Drivers

func (m *Memory) CreateDriver(ctx context.Context, d model.Driver) (model.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	m.drivers[d.ID] = d
	m.driverIDs = append(m.driverIDs, d.ID)
	return d, nil
}

func (m *Memory) ListDrivers(ctx context.Context, cursor string, limit int) ([]model.Driver, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := cursorSlice(m.driverIDs, cursor)
	out := []model.Driver{}
	next := ""
	for _, id := range ids {
		if limit > 0 && len(out) >= limit {
			next = out[len(out)-1].ID
			break
		}
		out = append(out, m.drivers[id])
	}
	return out, next, nil
}

func (m *Memory) GetDriver(ctx context.Context, id string) (model.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return model.Driver{}, ErrNotFound
	}
	return d, nil
}

func (m *Memory) UpdateDriver(ctx context.Context, d model.Driver) (model.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[d.ID]; !ok {
		return model.Driver{}, ErrNotFound
	}
	m.drivers[d.ID] = d
	return d, nil
}

func (m *Memory) DeleteDriver(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[id]; !ok {
		return ErrNotFound
	}
	delete(m.drivers, id)
	m.driverIDs = removeID(m.driverIDs, id)
	return nil
}

func (m *Memory) ListActiveDrivers(ctx context.Context, limit int) ([]model.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Driver{}
	for _, id := range m.driverIDs {
		d := m.drivers[id]
		if !d.IsActive {
			continue
		}
		out = append(out, d)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Routes

func (m *Memory) CreateRoute(ctx context.Context, r model.Route) (model.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	m.routes[r.ID] = r
	m.routeIDs = append(m.routeIDs, r.ID)
	return r, nil
}

func (m *Memory) ListRoutes(ctx context.Context, cursor string, limit int) ([]model.Route, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := cursorSlice(m.routeIDs, cursor)
	out := []model.Route{}
	next := ""
	for _, id := range ids {
		if limit > 0 && len(out) >= limit {
			next = out[len(out)-1].ID
			break
		}
		out = append(out, m.routes[id])
	}
	return out, next, nil
}

func (m *Memory) GetRoute(ctx context.Context, id string) (model.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok {
		return model.Route{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) UpdateRoute(ctx context.Context, r model.Route) (model.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[r.ID]; !ok {
		return model.Route{}, ErrNotFound
	}
	m.routes[r.ID] = r
	return r, nil
}

func (m *Memory) DeleteRoute(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[id]; !ok {
		return ErrNotFound
	}
	delete(m.routes, id)
	m.routeIDs = removeID(m.routeIDs, id)
	return nil
}

func (m *Memory) ListActiveRoutes(ctx context.Context) ([]model.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Route{}
	for _, id := range m.routeIDs {
		if r := m.routes[id]; r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

// Orders

func (m *Memory) CreateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Status == "" {
		o.Status = model.OrderPending
	}
	if o.Priority == "" {
		o.Priority = model.PriorityMedium
	}
	m.orders[o.ID] = o
	m.orderIDs = append(m.orderIDs, o.ID)
	return o, nil
}

func (m *Memory) ListOrders(ctx context.Context, status, cursor string, limit int) ([]model.Order, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := cursorSlice(m.orderIDs, cursor)
	out := []model.Order{}
	next := ""
	for _, id := range ids {
		o := m.orders[id]
		if status != "" && string(o.Status) != status {
			continue
		}
		if limit > 0 && len(out) >= limit {
			next = out[len(out)-1].ID
			break
		}
		out = append(out, o)
	}
	return out, next, nil
}

func (m *Memory) GetOrder(ctx context.Context, id string) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return o, nil
}

func (m *Memory) UpdateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return model.Order{}, ErrNotFound
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *Memory) DeleteOrder(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.orders, id)
	m.orderIDs = removeID(m.orderIDs, id)
	return nil
}

func (m *Memory) ListPendingOrders(ctx context.Context) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Order{}
	for _, id := range m.orderIDs {
		if o := m.orders[id]; o.Status == model.OrderPending {
			out = append(out, o)
		}
	}
	return out, nil
}

// Simulation results

func (m *Memory) SaveSimulation(ctx context.Context, res *model.SimulationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *res
	m.sims[res.SimulationID] = &cp
	m.simIDs = append(m.simIDs, res.SimulationID)
	return nil
}

func (m *Memory) ListSimulations(ctx context.Context, cursor string, limit int) ([]model.SimulationListItem, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// newest first
	ids := make([]string, 0, len(m.simIDs))
	for i := len(m.simIDs) - 1; i >= 0; i-- {
		ids = append(ids, m.simIDs[i])
	}
	ids = cursorSlice(ids, cursor)
	out := []model.SimulationListItem{}
	next := ""
	for _, id := range ids {
		if limit > 0 && len(out) >= limit {
			next = out[len(out)-1].SimulationID
			break
		}
		r := m.sims[id]
		out = append(out, model.SimulationListItem{
			SimulationID: r.SimulationID,
			Inputs:       r.Inputs,
			Results:      r.Results,
			CreatedBy:    r.CreatedBy,
			CreatedAt:    r.CreatedAt,
		})
	}
	return out, next, nil
}

func (m *Memory) GetSimulation(ctx context.Context, simulationID string) (*model.SimulationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.sims[simulationID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) LatestSimulation(ctx context.Context) (*model.SimulationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.simIDs) == 0 {
		return nil, ErrNotFound
	}
	cp := *m.sims[m.simIDs[len(m.simIDs)-1]]
	return &cp, nil
}

func (m *Memory) OrderStats(ctx context.Context) (model.OrderStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st model.OrderStats
	for _, id := range m.orderIDs {
		o := m.orders[id]
		st.TotalOrders++
		st.TotalValue += o.ValueRs
		switch o.Status {
		case model.OrderDelivered:
			st.DeliveredOrders++
		case model.OrderPending:
			st.PendingOrders++
		}
	}
	return st, nil
}

// Webhook subscriptions

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs[s.ID] = s
	return s, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Subscription{}
	for _, s := range m.subs {
		out = append(out, s)
	}
	return out, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return ErrNotFound
	}
	delete(m.subs, id)
	return nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Subscription{}
	for _, s := range m.subs {
		for _, e := range s.Events {
			if e == eventType || e == "*" {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

// Webhook delivery queue

func (m *Memory) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID:             id,
			SubscriptionID: subscriptionID,
			EventType:      eventType,
			URL:            url,
			Secret:         secret,
			Payload:        payload,
			Status:         "pending",
		},
		NextAttemptAt: time.Now(),
	}
	m.deliveryIDs = append(m.deliveryIDs, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.deliveryIDs {
		d := m.deliveries[id]
		if d.Status != "pending" || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d.WebhookDelivery)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
		now := time.Now()
		d.DeliveredAt = &now
	} else if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func cursorSlice(ids []string, cursor string) []string {
	if cursor == "" {
		return ids
	}
	for i, id := range ids {
		if id == cursor {
			return ids[i+1:]
		}
	}
	return nil
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
