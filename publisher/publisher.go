package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/evalforge/checkgate/policy"
	"github.com/evalforge/checkgate/upstream"
)

/* Publisher reports terminal conclusions as provider check runs.
 * Idempotent by construction: it looks up the check run for
 * (commit, check name) first and updates it instead of creating a
 * duplicate, so a retried publication after a transient failure can
 * never produce conflicting check runs. Publication retry is bounded
 * and separate from evaluation: the engine's execution stays terminal
 * whether or not publication eventually succeeds.
 */

// Config bounds the publication retry loop.
type Config struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

type Publisher struct {
	client  upstream.CheckRunWriter
	breaker *upstream.Breaker
	cfg     Config
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a publisher whose upstream calls go through breaker.
func New(client upstream.CheckRunWriter, breaker *upstream.Breaker, cfg Config, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:  client,
		breaker: breaker,
		cfg:     cfg,
		logger:  logger,
		sleep:   sleepCtx,
	}
}

// Publish implements checkrun.Publisher.
func (p *Publisher) Publish(ctx context.Context, repo upstream.Repo, pol policy.Policy, headSHA, conclusion, title, summary string) error {
	params := upstream.CheckRunParams{
		Name:       pol.CheckName,
		HeadSHA:    headSHA,
		Status:     upstream.CheckStatusCompleted,
		Conclusion: conclusion,
		Title:      title,
		Summary:    summary,
	}
	logger := p.logger.With("repository", repo.FullName(), "head_sha", headSHA, "check", pol.CheckName)

	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxAttempts; attempt++ {
		err := p.upsert(ctx, repo, params)
		if err == nil {
			logger.Info("check run published", "conclusion", conclusion, "attempt", attempt)
			return nil
		}
		lastErr = err

		if errors.Is(err, upstream.ErrCircuitOpen) || !upstream.Transient(err) {
			return fmt.Errorf("publishing check run: %w", err)
		}
		if attempt == p.cfg.MaxAttempts-1 {
			break
		}
		delay := p.backoff(attempt)
		logger.Warn("publish attempt failed, retrying", "attempt", attempt, "delay", delay, "error", err)
		if err := p.sleep(ctx, delay); err != nil {
			return fmt.Errorf("publishing check run: %w", lastErr)
		}
	}
	return fmt.Errorf("publishing check run after %d attempts: %w", p.cfg.MaxAttempts, lastErr)
}

// upsert updates the existing check run for (commit, name) or creates it.
func (p *Publisher) upsert(ctx context.Context, repo upstream.Repo, params upstream.CheckRunParams) error {
	var existing []upstream.CheckRun
	err := p.breaker.Execute(func() error {
		var listErr error
		existing, listErr = p.client.ListCheckRuns(ctx, repo, params.HeadSHA, params.Name)
		return listErr
	})
	if err != nil {
		return err
	}

	if len(existing) > 0 {
		current := existing[0]
		if current.Status == upstream.CheckStatusCompleted && current.Conclusion == params.Conclusion {
			// Re-publication of the same terminal conclusion is a no-op
			return nil
		}
		return p.breaker.Execute(func() error {
			_, updateErr := p.client.UpdateCheckRun(ctx, repo, current.ID, params)
			return updateErr
		})
	}

	return p.breaker.Execute(func() error {
		_, createErr := p.client.CreateCheckRun(ctx, repo, params)
		return createErr
	})
}

// backoff returns base * 2^attempt with up to 50% added jitter, capped.
func (p *Publisher) backoff(attempt int) time.Duration {
	d := p.cfg.BaseBackoff << attempt
	if d <= 0 || d > p.cfg.MaxBackoff {
		d = p.cfg.MaxBackoff
	}
	return d + rand.N(d/2+1)
}

// sleepCtx waits for d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
