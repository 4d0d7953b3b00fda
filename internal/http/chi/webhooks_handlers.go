package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"

	"github.com/evalforge/checkgate/metrics"
	"github.com/evalforge/checkgate/queue"
	"github.com/evalforge/checkgate/webhook/ratelimit"
	"github.com/evalforge/checkgate/webhook/replay"
	"github.com/evalforge/checkgate/webhook/signature"
)

// Ingress bundles everything the webhook endpoint needs.
type Ingress struct {
	Verifier *signature.Verifier
	Guard    replay.Guard
	Limiter  *ratelimit.Limiter
	Queue    *queue.Queue
	Counters *metrics.DeliveryCounters

	// Metrics serves the Prometheus scrape endpoint; nil disables it
	Metrics http.Handler

	// Ready reports whether dependencies are reachable; nil means always
	Ready func(ctx context.Context) error

	// clock override for tests
	Now func() time.Time
}

func (in Ingress) now() time.Time {
	if in.Now != nil {
		return in.Now()
	}
	return time.Now()
}

// WebhookHandlers sets up the webhook API routes
func WebhookHandlers(ctx context.Context, in Ingress) *chi.Mux {
	logger := httplog.NewLogger("checkgate-api", httplog.Options{
		JSON: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Readiness: fails while a dependency is unreachable
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if in.Ready != nil {
			if err := in.Ready(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	if in.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", in.Metrics)
	}

	// Webhook API routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/webhooks/github", postWebhook(in).ServeHTTP)
	})

	return r
}
