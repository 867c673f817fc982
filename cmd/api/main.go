package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"greencart/internal/api"
	"greencart/internal/metrics"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}

	srvDeps, err := api.NewServer()
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	metrics.RegisterDefault()

	mux := http.NewServeMux()

	// Drivers
	mux.HandleFunc("/v1/drivers", srvDeps.DriversHandler)
	mux.HandleFunc("/v1/drivers/", srvDeps.DriverByIDHandler)

	// Routes
	mux.HandleFunc("/v1/routes", srvDeps.RoutesHandler)
	mux.HandleFunc("/v1/routes/", srvDeps.RouteByIDHandler)

	// Orders
	mux.HandleFunc("/v1/orders", srvDeps.OrdersHandler)
	mux.HandleFunc("/v1/orders/", srvDeps.OrderByIDHandler)

	// Simulation
	mux.HandleFunc("/v1/simulations/run", srvDeps.RunSimulationHandler)
	mux.HandleFunc("/v1/simulations/stream", srvDeps.StreamSimulationsHandler)
	mux.HandleFunc("/v1/simulations", srvDeps.SimulationsHandler)
	mux.HandleFunc("/v1/simulations/", srvDeps.SimulationByIDHandler)

	// Dashboard
	mux.HandleFunc("/v1/dashboard/kpis", srvDeps.DashboardKPIsHandler)

	// Webhook subscriptions
	mux.HandleFunc("/v1/subscriptions", srvDeps.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", srvDeps.SubscriptionByIDHandler)

	// Operational
	mux.HandleFunc("/healthz", srvDeps.HealthHandler)
	mux.HandleFunc("/readyz", srvDeps.ReadyHandler)
	mux.HandleFunc("/debugz", srvDeps.DebugJSON)
	mux.HandleFunc("/openapi.yaml", srvDeps.OpenAPIHandler)
	mux.HandleFunc("/docs", srvDeps.DocsHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + strings.TrimPrefix(v, ":")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.WithRateLimit(api.WithObservability(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	worker := srvDeps.NewWebhookWorker()
	worker.Start()

	log.Printf("API listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
