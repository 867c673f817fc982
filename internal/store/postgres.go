package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"greencart/internal/model"
)

// Postgres is the production store, reached through database/sql over the
// pgx stdlib driver.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Migrate creates the schema when missing. Intended for startup in dev and
// small deployments; larger installs run the statements out of band.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS drivers (
			seq BIGINT GENERATED ALWAYS AS IDENTITY,
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			current_shift_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
			past7day_work_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_work_date TIMESTAMPTZ,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_fatigued BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS routes (
			seq BIGINT GENERATED ALWAYS AS IDENTITY,
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			distance_km DOUBLE PRECISION NOT NULL,
			traffic_level TEXT NOT NULL,
			base_time_minutes DOUBLE PRECISION NOT NULL,
			start_location TEXT NOT NULL DEFAULT '',
			end_location TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			seq BIGINT GENERATED ALWAYS AS IDENTITY,
			id TEXT PRIMARY KEY,
			value_rs DOUBLE PRECISION NOT NULL,
			route_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			priority TEXT NOT NULL DEFAULT 'medium',
			customer_name TEXT NOT NULL DEFAULT '',
			customer_address TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS simulations (
			seq BIGINT GENERATED ALWAYS AS IDENTITY,
			simulation_id TEXT PRIMARY KEY,
			inputs JSONB NOT NULL,
			results JSONB NOT NULL,
			payload JSONB NOT NULL,
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			events JSONB NOT NULL,
			secret TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_deliveries (
			id TEXT PRIMARY KEY,
			subscription_id TEXT NOT NULL DEFAULT '',
			event_type TEXT NOT NULL,
			url TEXT NOT NULL,
			secret TEXT NOT NULL DEFAULT '',
			payload BYTEA NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_error TEXT NOT NULL DEFAULT '',
			response_code INT NOT NULL DEFAULT 0,
			latency_ms INT NOT NULL DEFAULT 0,
			delivered_at TIMESTAMPTZ
		)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Drivers

func (p *Postgres) CreateDriver(ctx context.Context, d model.Driver) (model.Driver, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO drivers (id, name, current_shift_hours, past7day_work_hours, last_work_date, is_active, is_fatigued)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.Name, d.CurrentShiftHours, d.Past7DayWorkHours, d.LastWorkDate, d.IsActive, d.IsFatigued)
	if err != nil {
		return model.Driver{}, err
	}
	return d, nil
}

func scanDriver(row interface{ Scan(...any) error }) (model.Driver, error) {
	var d model.Driver
	var last sql.NullTime
	if err := row.Scan(&d.ID, &d.Name, &d.CurrentShiftHours, &d.Past7DayWorkHours, &last, &d.IsActive, &d.IsFatigued); err != nil {
		return model.Driver{}, err
	}
	if last.Valid {
		t := last.Time
		d.LastWorkDate = &t
	}
	return d, nil
}

const driverCols = `id, name, current_shift_hours, past7day_work_hours, last_work_date, is_active, is_fatigued`

func (p *Postgres) ListDrivers(ctx context.Context, cursor string, limit int) ([]model.Driver, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `SELECT `+driverCols+` FROM drivers
		WHERE ($1 = '' OR seq > (SELECT seq FROM drivers WHERE id = $1)) ORDER BY seq LIMIT $2`, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Driver{}
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, d)
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) GetDriver(ctx context.Context, id string) (model.Driver, error) {
	d, err := scanDriver(p.db.QueryRowContext(ctx, `SELECT `+driverCols+` FROM drivers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Driver{}, ErrNotFound
	}
	return d, err
}

func (p *Postgres) UpdateDriver(ctx context.Context, d model.Driver) (model.Driver, error) {
	res, err := p.db.ExecContext(ctx, `UPDATE drivers SET name=$2, current_shift_hours=$3, past7day_work_hours=$4, last_work_date=$5, is_active=$6, is_fatigued=$7 WHERE id=$1`,
		d.ID, d.Name, d.CurrentShiftHours, d.Past7DayWorkHours, d.LastWorkDate, d.IsActive, d.IsFatigued)
	if err != nil {
		return model.Driver{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Driver{}, ErrNotFound
	}
	return d, nil
}

func (p *Postgres) DeleteDriver(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM drivers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListActiveDrivers(ctx context.Context, limit int) ([]model.Driver, error) {
	q := `SELECT ` + driverCols + ` FROM drivers WHERE is_active ORDER BY seq`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Driver{}
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Routes

const routeCols = `id, name, distance_km, traffic_level, base_time_minutes, start_location, end_location, is_active`

func (p *Postgres) CreateRoute(ctx context.Context, r model.Route) (model.Route, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO routes (id, name, distance_km, traffic_level, base_time_minutes, start_location, end_location, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		r.ID, r.Name, r.DistanceKm, r.TrafficLevel, r.BaseTimeMinutes, r.StartLocation, r.EndLocation, r.IsActive)
	if err != nil {
		return model.Route{}, err
	}
	return r, nil
}

func scanRoute(row interface{ Scan(...any) error }) (model.Route, error) {
	var r model.Route
	var traffic string
	if err := row.Scan(&r.ID, &r.Name, &r.DistanceKm, &traffic, &r.BaseTimeMinutes, &r.StartLocation, &r.EndLocation, &r.IsActive); err != nil {
		return model.Route{}, err
	}
	lvl, err := model.ParseTrafficLevel(traffic)
	if err != nil {
		return model.Route{}, err
	}
	r.TrafficLevel = lvl
	return r, nil
}

func (p *Postgres) ListRoutes(ctx context.Context, cursor string, limit int) ([]model.Route, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `SELECT `+routeCols+` FROM routes
		WHERE ($1 = '' OR seq > (SELECT seq FROM routes WHERE id = $1)) ORDER BY seq LIMIT $2`, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Route{}
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) GetRoute(ctx context.Context, id string) (model.Route, error) {
	r, err := scanRoute(p.db.QueryRowContext(ctx, `SELECT `+routeCols+` FROM routes WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Route{}, ErrNotFound
	}
	return r, err
}

func (p *Postgres) UpdateRoute(ctx context.Context, r model.Route) (model.Route, error) {
	res, err := p.db.ExecContext(ctx, `UPDATE routes SET name=$2, distance_km=$3, traffic_level=$4, base_time_minutes=$5, start_location=$6, end_location=$7, is_active=$8 WHERE id=$1`,
		r.ID, r.Name, r.DistanceKm, r.TrafficLevel, r.BaseTimeMinutes, r.StartLocation, r.EndLocation, r.IsActive)
	if err != nil {
		return model.Route{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Route{}, ErrNotFound
	}
	return r, nil
}

func (p *Postgres) DeleteRoute(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListActiveRoutes(ctx context.Context) ([]model.Route, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+routeCols+` FROM routes WHERE is_active ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Route{}
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Orders

const orderCols = `id, value_rs, route_id, status, priority, customer_name, customer_address`

func (p *Postgres) CreateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Status == "" {
		o.Status = model.OrderPending
	}
	if o.Priority == "" {
		o.Priority = model.PriorityMedium
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO orders (id, value_rs, route_id, status, priority, customer_name, customer_address)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.ID, o.ValueRs, o.RouteID, o.Status, o.Priority, o.CustomerName, o.CustomerAddress)
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func scanOrder(row interface{ Scan(...any) error }) (model.Order, error) {
	var o model.Order
	var status, priority string
	if err := row.Scan(&o.ID, &o.ValueRs, &o.RouteID, &status, &priority, &o.CustomerName, &o.CustomerAddress); err != nil {
		return model.Order{}, err
	}
	o.Status = model.OrderStatus(status)
	o.Priority = model.Priority(priority)
	return o, nil
}

func (p *Postgres) ListOrders(ctx context.Context, status, cursor string, limit int) ([]model.Order, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx, `SELECT `+orderCols+` FROM orders
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR seq > (SELECT seq FROM orders WHERE id = $2)) ORDER BY seq LIMIT $3`,
		status, cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, o)
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, rows.Err()
}

func (p *Postgres) GetOrder(ctx context.Context, id string) (model.Order, error) {
	o, err := scanOrder(p.db.QueryRowContext(ctx, `SELECT `+orderCols+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, ErrNotFound
	}
	return o, err
}

func (p *Postgres) UpdateOrder(ctx context.Context, o model.Order) (model.Order, error) {
	res, err := p.db.ExecContext(ctx, `UPDATE orders SET value_rs=$2, route_id=$3, status=$4, priority=$5, customer_name=$6, customer_address=$7 WHERE id=$1`,
		o.ID, o.ValueRs, o.RouteID, o.Status, o.Priority, o.CustomerName, o.CustomerAddress)
	if err != nil {
		return model.Order{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Order{}, ErrNotFound
	}
	return o, nil
}

func (p *Postgres) DeleteOrder(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListPendingOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+orderCols+` FROM orders WHERE status = 'pending' ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Simulation results

func (p *Postgres) SaveSimulation(ctx context.Context, res *model.SimulationResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	inputs, _ := json.Marshal(res.Inputs)
	results, _ := json.Marshal(res.Results)
	_, err = p.db.ExecContext(ctx, `INSERT INTO simulations (simulation_id, inputs, results, payload, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		res.SimulationID, inputs, results, payload, res.CreatedBy, res.CreatedAt)
	return err
}

func (p *Postgres) ListSimulations(ctx context.Context, cursor string, limit int) ([]model.SimulationListItem, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := p.db.QueryContext(ctx, `SELECT simulation_id, inputs, results, created_by, created_at FROM simulations
		WHERE ($1 = '' OR seq < (SELECT seq FROM simulations WHERE simulation_id = $1)) ORDER BY seq DESC LIMIT $2`,
		cursor, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.SimulationListItem{}
	for rows.Next() {
		var item model.SimulationListItem
		var inputs, results []byte
		if err := rows.Scan(&item.SimulationID, &inputs, &results, &item.CreatedBy, &item.CreatedAt); err != nil {
			return nil, "", err
		}
		if err := json.Unmarshal(inputs, &item.Inputs); err != nil {
			return nil, "", err
		}
		if err := json.Unmarshal(results, &item.Results); err != nil {
			return nil, "", err
		}
		out = append(out, item)
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].SimulationID
	}
	return out, next, rows.Err()
}

func (p *Postgres) scanSimulationPayload(row *sql.Row) (*model.SimulationResult, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var res model.SimulationResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (p *Postgres) GetSimulation(ctx context.Context, simulationID string) (*model.SimulationResult, error) {
	return p.scanSimulationPayload(p.db.QueryRowContext(ctx, `SELECT payload FROM simulations WHERE simulation_id = $1`, simulationID))
}

func (p *Postgres) LatestSimulation(ctx context.Context) (*model.SimulationResult, error) {
	return p.scanSimulationPayload(p.db.QueryRowContext(ctx, `SELECT payload FROM simulations ORDER BY seq DESC LIMIT 1`))
}

func (p *Postgres) OrderStats(ctx context.Context) (model.OrderStats, error) {
	var st model.OrderStats
	err := p.db.QueryRowContext(ctx, `SELECT count(*),
		COALESCE(sum(value_rs), 0),
		count(*) FILTER (WHERE status = 'delivered'),
		count(*) FILTER (WHERE status = 'pending')
		FROM orders`).Scan(&st.TotalOrders, &st.TotalValue, &st.DeliveredOrders, &st.PendingOrders)
	return st, err
}

// Webhook subscriptions

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	events, _ := json.Marshal(req.Events)
	_, err := p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, url, events, secret) VALUES ($1,$2,$3,$4)`,
		s.ID, s.URL, events, s.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return s, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	return p.querySubscriptions(ctx, `SELECT id, url, events, secret FROM subscriptions ORDER BY id`)
}

func (p *Postgres) querySubscriptions(ctx context.Context, q string, args ...any) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var events []byte
		if err := rows.Scan(&s.ID, &s.URL, &events, &s.Secret); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(events, &s.Events); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	return p.querySubscriptions(ctx, `SELECT id, url, events, secret FROM subscriptions WHERE events @> to_jsonb(ARRAY[$1]::text[]) OR events @> '["*"]'::jsonb`, eventType)
}

// Webhook delivery queue

func (p *Postgres) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, subscription_id, event_type, url, secret, payload) VALUES ($1,$2,$3,$4,$5,$6)`,
		id, subscriptionID, eventType, url, secret, payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `SELECT id, subscription_id, event_type, url, secret, payload, status, attempts
		FROM webhook_deliveries WHERE status = 'pending' AND next_attempt_at <= now() ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='delivered', attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4, delivered_at=now() WHERE id=$1`,
			id, lastError, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, next_attempt_at=COALESCE($2, next_attempt_at), last_error=$3, response_code=$4, latency_ms=$5 WHERE id=$1`,
		id, nextAttemptAt, lastError, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='failed', attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, lastError, responseCode, latencyMs)
	return err
}
