package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// TrafficLevel is the congestion rating of a route. Closed set; anything
// else is rejected at decode time.
type TrafficLevel string

const (
	TrafficLow    TrafficLevel = "Low"
	TrafficMedium TrafficLevel = "Medium"
	TrafficHigh   TrafficLevel = "High"
)

// ParseTrafficLevel validates a raw traffic level string.
func ParseTrafficLevel(s string) (TrafficLevel, error) {
	switch TrafficLevel(s) {
	case TrafficLow, TrafficMedium, TrafficHigh:
		return TrafficLevel(s), nil
	}
	return "", fmt.Errorf("invalid traffic level: %q (allowed: Low, Medium, High)", s)
}

func (t *TrafficLevel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTrafficLevel(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Priority ranks orders for assignment sequencing.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), nil
	}
	return "", fmt.Errorf("invalid priority: %q (allowed: low, medium, high)", s)
}

func (p *Priority) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// OrderStatus is the delivery lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderAssigned  OrderStatus = "assigned"
	OrderInTransit OrderStatus = "in_transit"
	OrderDelivered OrderStatus = "delivered"
	OrderFailed    OrderStatus = "failed"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderPending, OrderAssigned, OrderInTransit, OrderDelivered, OrderFailed:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("invalid order status: %q", s)
}

func (o *OrderStatus) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseOrderStatus(s)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Driver is a persisted fleet member record. IsFatigued is derived per
// simulation run from LastWorkDate and CurrentShiftHours; the stored value
// only reflects the most recent evaluation.
type Driver struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	CurrentShiftHours float64    `json:"currentShiftHours"`
	Past7DayWorkHours float64    `json:"past7DayWorkHours"`
	LastWorkDate      *time.Time `json:"lastWorkDate,omitempty"`
	IsActive          bool       `json:"isActive"`
	IsFatigued        bool       `json:"isFatigued"`
}

// Route is an immutable delivery leg description.
type Route struct {
	ID              string       `json:"id"`
	Name            string       `json:"name,omitempty"`
	DistanceKm      float64      `json:"distanceKm"`
	TrafficLevel    TrafficLevel `json:"trafficLevel"`
	BaseTimeMinutes float64      `json:"baseTimeMinutes"`
	StartLocation   string       `json:"startLocation,omitempty"`
	EndLocation     string       `json:"endLocation,omitempty"`
	IsActive        bool         `json:"isActive"`
}

// Order references exactly one route by id.
type Order struct {
	ID              string      `json:"id"`
	ValueRs         float64     `json:"valueRs"`
	RouteID         string      `json:"routeId"`
	Status          OrderStatus `json:"status"`
	Priority        Priority    `json:"priority"`
	CustomerName    string      `json:"customerName,omitempty"`
	CustomerAddress string      `json:"customerAddress,omitempty"`
}

// SimulationInputs echoes the run configuration into the stored result.
type SimulationInputs struct {
	NumberOfDrivers   int     `json:"numberOfDrivers"`
	RouteStartTime    string  `json:"routeStartTime"`
	MaxHoursPerDriver float64 `json:"maxHoursPerDriver"`
}

// OrderDetail is the scored outcome of one committed assignment.
type OrderDetail struct {
	OrderID       string    `json:"orderId"`
	DriverID      string    `json:"driverId"`
	RouteID       string    `json:"routeId"`
	ScheduledTime time.Time `json:"scheduledTime"`
	ActualTime    time.Time `json:"actualTime"`
	IsOnTime      bool      `json:"isOnTime"`
	Profit        float64   `json:"profit"`
	Penalty       float64   `json:"penalty"`
	Bonus         float64   `json:"bonus"`
	FuelCost      float64   `json:"fuelCost"`
}

// DriverUtilization summarizes one driver's share of a run.
type DriverUtilization struct {
	DriverID        string  `json:"driverId"`
	DriverName      string  `json:"driverName"`
	HoursWorked     float64 `json:"hoursWorked"`
	OrdersDelivered int     `json:"ordersDelivered"`
	IsFatigued      bool    `json:"isFatigued"`
}

// SimulationTotals holds the fleet-level KPI block.
type SimulationTotals struct {
	TotalProfit         float64 `json:"totalProfit"`
	EfficiencyScore     int     `json:"efficiencyScore"`
	OnTimeDeliveries    int     `json:"onTimeDeliveries"`
	LateDeliveries      int     `json:"lateDeliveries"`
	TotalDeliveries     int     `json:"totalDeliveries"`
	TotalFuelCost       float64 `json:"totalFuelCost"`
	TotalPenalties      float64 `json:"totalPenalties"`
	TotalBonuses        float64 `json:"totalBonuses"`
	AverageDeliveryTime int     `json:"averageDeliveryTime"`
}

// SimulationSummary carries the per-run convenience counters returned to
// clients alongside the result.
type SimulationSummary struct {
	OrdersProcessed        int     `json:"ordersProcessed"`
	TotalOrdersAvailable   int     `json:"totalOrdersAvailable"`
	DriversUsed            int     `json:"driversUsed"`
	AverageOrdersPerDriver float64 `json:"averageOrdersPerDriver"`
}

// SimulationResult is the immutable record of one completed run.
type SimulationResult struct {
	SimulationID      string              `json:"simulationId"`
	Inputs            SimulationInputs    `json:"inputs"`
	Results           SimulationTotals    `json:"results"`
	OrderDetails      []OrderDetail       `json:"orderDetails"`
	DriverUtilization []DriverUtilization `json:"driverUtilization"`
	Summary           SimulationSummary   `json:"summary"`
	CreatedBy         string              `json:"createdBy,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
}

// SimulationListItem is the trimmed row used by the history listing; the
// large detail arrays are omitted.
type SimulationListItem struct {
	SimulationID string           `json:"simulationId"`
	Inputs       SimulationInputs `json:"inputs"`
	Results      SimulationTotals `json:"results"`
	CreatedBy    string           `json:"createdBy,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// OrderStats aggregates persisted orders for the dashboard.
type OrderStats struct {
	TotalOrders     int     `json:"totalOrders"`
	TotalValue      float64 `json:"totalValue"`
	DeliveredOrders int     `json:"deliveredOrders"`
	PendingOrders   int     `json:"pendingOrders"`
}

// SubscriptionRequest registers a webhook endpoint for event types.
type SubscriptionRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

type Subscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"-"`
}
