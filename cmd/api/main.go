package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evalforge/checkgate/checkrun"
	"github.com/evalforge/checkgate/config"
	"github.com/evalforge/checkgate/internal/http/chi"
	"github.com/evalforge/checkgate/metrics"
	"github.com/evalforge/checkgate/policy"
	"github.com/evalforge/checkgate/publisher"
	"github.com/evalforge/checkgate/queue"
	"github.com/evalforge/checkgate/resolver"
	"github.com/evalforge/checkgate/upstream"
	"github.com/evalforge/checkgate/webhook/ratelimit"
	"github.com/evalforge/checkgate/webhook/replay"
	"github.com/evalforge/checkgate/webhook/signature"
)

const TIMEOUT = 30 * time.Second

/* main is where the wiring happens: configuration, the ingress chain
 * (rate limit, signature, replay, queue), the worker pool, and the
 * reconciliation engine behind it. Imports flow one direction only:
 * the application wires the business packages, which wire the upstream
 * client.
 */

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	verifier, err := signature.NewVerifier(cfg.Secrets()...)
	if err != nil {
		return err
	}

	guard, ready, err := newGuard(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer guard.Close(context.Background())

	policies := policy.NewLoader()
	if cfg.PolicyFile != "" {
		policies, err = policy.LoadFromFile(cfg.PolicyFile)
		if err != nil {
			return err
		}
		logger.Info("policies loaded", "file", cfg.PolicyFile, "count", policies.Len())
	}

	client := upstream.NewGitHubClient(cfg.GithubAPIBaseURL, cfg.GithubToken, cfg.UpstreamTimeout)
	resolveBreaker := upstream.NewBreaker("resolve", cfg.BreakerThreshold, cfg.BreakerCooldown, logger)
	publishBreaker := upstream.NewBreaker("publish", cfg.BreakerThreshold, cfg.BreakerCooldown, logger)

	res := resolver.New(client, resolveBreaker, resolver.Config{
		MaxAttempts: cfg.ResolveMaxAttempts,
		BaseBackoff: cfg.ResolveBaseBackoff,
		MaxBackoff:  cfg.ResolveMaxBackoff,
		Budget:      cfg.ResolveBudget,
	}, logger)
	pub := publisher.New(client, publishBreaker, publisher.Config{
		MaxAttempts: cfg.PublishMaxAttempts,
		BaseBackoff: cfg.PublishBaseBackoff,
		MaxBackoff:  cfg.PublishMaxBackoff,
	}, logger)

	store := checkrun.NewMemoryStore(cfg.StoreTTL)
	store.StartCleanup(ctx, cfg.CleanupInterval, logger)

	engine := checkrun.NewEngine(store, res, pub, policies, logger)

	q := queue.New(cfg.QueueCapacity)
	pool := queue.NewPool(q, engine, cfg.Workers, logger)
	pool.Start(ctx)

	counters := metrics.NewDeliveryCounters()
	collector := metrics.NewEngineCollector(q, store, counters, map[string]metrics.BreakerStater{
		"resolve": resolveBreaker,
		"publish": publishBreaker,
	})
	exporter, err := metrics.NewOTelExporter(collector)
	if err != nil {
		return err
	}
	defer exporter.Shutdown(context.Background())

	limiter := ratelimit.New(cfg.RateLimitPerSecond, cfg.RateLimitBurst)

	r := chi.WebhookHandlers(ctx, chi.Ingress{
		Verifier: verifier,
		Guard:    guard,
		Limiter:  limiter,
		Queue:    q,
		Counters: counters,
		Metrics:  exporter.ServeHTTP(),
		Ready:    ready,
	})
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	logger.Info("listening", "port", cfg.Port, "workers", cfg.Workers, "queue_capacity", cfg.QueueCapacity)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	if err := <-errShutdown; err != nil {
		return err
	}

	// Let in-flight executions finish before exiting
	pool.Wait()
	return nil
}

// newGuard builds the configured replay backend and its readiness probe.
func newGuard(ctx context.Context, cfg *config.Config, logger *slog.Logger) (replay.Guard, func(context.Context) error, error) {
	if cfg.ReplayBackend == "redis" {
		guard, err := replay.NewRedisGuard(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ReplayTTL)
		if err != nil {
			return nil, nil, err
		}
		return guard, guard.Ping, nil
	}

	guard := replay.NewMemoryGuard(cfg.ReplayTTL)
	guard.StartGC(ctx, cfg.ReplayTTL/4, logger)
	return guard, nil, nil
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("forcing closing the server")
	}
}
