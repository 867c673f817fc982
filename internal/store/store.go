package store

import (
	"context"
	"errors"
	"time"

	"greencart/internal/model"
)

// Store is the persistence interface used by the API server. Listings use
// opaque cursor pagination (last id) with a caller-supplied limit.
type Store interface {
	// Drivers
	CreateDriver(ctx context.Context, d model.Driver) (model.Driver, error)
	ListDrivers(ctx context.Context, cursor string, limit int) ([]model.Driver, string, error)
	GetDriver(ctx context.Context, id string) (model.Driver, error)
	UpdateDriver(ctx context.Context, d model.Driver) (model.Driver, error)
	DeleteDriver(ctx context.Context, id string) error
	// ListActiveDrivers returns up to limit active drivers in stable
	// creation order; limit <= 0 means all.
	ListActiveDrivers(ctx context.Context, limit int) ([]model.Driver, error)

	// Routes
	CreateRoute(ctx context.Context, r model.Route) (model.Route, error)
	ListRoutes(ctx context.Context, cursor string, limit int) ([]model.Route, string, error)
	GetRoute(ctx context.Context, id string) (model.Route, error)
	UpdateRoute(ctx context.Context, r model.Route) (model.Route, error)
	DeleteRoute(ctx context.Context, id string) error
	ListActiveRoutes(ctx context.Context) ([]model.Route, error)

	// Orders
	CreateOrder(ctx context.Context, o model.Order) (model.Order, error)
	ListOrders(ctx context.Context, status, cursor string, limit int) ([]model.Order, string, error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
	UpdateOrder(ctx context.Context, o model.Order) (model.Order, error)
	DeleteOrder(ctx context.Context, id string) error
	ListPendingOrders(ctx context.Context) ([]model.Order, error)

	// Simulation results
	SaveSimulation(ctx context.Context, res *model.SimulationResult) error
	ListSimulations(ctx context.Context, cursor string, limit int) ([]model.SimulationListItem, string, error)
	GetSimulation(ctx context.Context, simulationID string) (*model.SimulationResult, error)
	LatestSimulation(ctx context.Context) (*model.SimulationResult, error)
	OrderStats(ctx context.Context) (model.OrderStats, error)

	// Webhook subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
	GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error)

	// Webhook delivery queue
	EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error
}

// WebhookDelivery is one queued outbound event delivery.
type WebhookDelivery struct {
	ID             string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}

var ErrNotFound = errors.New("not found")
