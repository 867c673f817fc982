package api

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"greencart/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// metricPath collapses /v1/drivers/abc123 to /v1/drivers/{id} so the
// metric label set stays bounded.
func metricPath(p string) string {
	for _, prefix := range []string{"/v1/drivers", "/v1/routes", "/v1/orders", "/v1/subscriptions", "/v1/simulations"} {
		rest := strings.TrimPrefix(p, prefix)
		if rest == p {
			continue
		}
		if rest == "" || rest == "/" {
			return prefix
		}
		if prefix == "/v1/simulations" && (rest == "/run" || rest == "/stream") {
			return prefix + rest
		}
		return prefix + "/{id}"
	}
	return p
}

// WithObservability wraps the mux with request logging and Prometheus
// request counters and latency histograms.
func WithObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		path := metricPath(r.URL.Path)
		status := strconv.Itoa(rec.status)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(elapsed.Seconds())
		log.Printf("%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, elapsed.Round(time.Millisecond))
	})
}

// WithRateLimit applies a global token-bucket limit when RATE_RPS is set.
// RATE_BURST defaults to 2x the rate.
func WithRateLimit(next http.Handler) http.Handler {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_RPS"), 64)
	if err != nil || rps <= 0 {
		return next
	}
	burst := int(rps * 2)
	if v, err := strconv.Atoi(os.Getenv("RATE_BURST")); err == nil && v > 0 {
		burst = v
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			writeProblem(w, http.StatusTooManyRequests, "Rate limit exceeded", "", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}
