package api

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"greencart/internal/auth"
	"greencart/internal/store"
	"greencart/internal/webhooks"
)

// Server bundles the dependencies behind the HTTP handlers.
type Server struct {
	Store  store.Store
	Pub    *webhooks.Publisher
	Auth   *auth.Verifier
	Broker EventBroker
}

// NewServer creates a Server. If DATABASE_URL is unset, uses the in-memory
// store; if REDIS_URL is set, simulation events ride Redis Pub/Sub.
func NewServer() (*Server, error) {
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		mem := store.NewMemory()
		if path := os.Getenv("SEED_PATH"); path != "" {
			seed := store.SeedFromYAML
			if fi, err := os.Stat(path); err == nil && fi.IsDir() {
				seed = store.SeedFromCSVDir
			}
			if err := seed(context.Background(), mem, path); err != nil {
				return nil, fmt.Errorf("seed memory store: %w", err)
			}
		}
		s = mem
	} else {
		pg, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := pg.Migrate(context.Background()); err != nil {
				return nil, err
			}
		}
		s = pg
	}

	var broker EventBroker
	if os.Getenv("REDIS_URL") != "" {
		rb, err := NewRedisBroker()
		if err != nil {
			log.Printf("redis broker unavailable, falling back to in-memory: %v", err)
			broker = NewBroker()
		} else {
			broker = rb
		}
	} else {
		broker = NewBroker()
	}

	return &Server{
		Store:  s,
		Pub:    webhooks.NewPublisher(s),
		Auth:   auth.NewVerifierFromEnv(),
		Broker: broker,
	}, nil
}

// NewWebhookWorker creates the background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}
