package resolver

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/evalforge/checkgate/checkrun"
	"github.com/evalforge/checkgate/policy"
	"github.com/evalforge/checkgate/upstream"
)

/* Resolver selects the authoritative evaluation artifact for a commit.
 *
 * The upstream listing API gives no ordering guarantee. Candidates are
 * sorted by createdAt descending with runId descending as tiebreak, and
 * the first candidate yielding a parseable artifact wins: taking the
 * first run in API order instead used to apply stale evaluation results
 * to new commits when an old and a new run shared a commit.
 *
 * Artifacts may not be uploaded yet when the webhook fires, so empty
 * rounds retry with capped, jittered exponential backoff, bounded by
 * both an attempt count and a wall-clock budget.
 */

// errNoArtifact marks a round where no candidate had a parseable
// artifact yet; it is the only error that consumes a retry round.
var errNoArtifact = errors.New("no parseable evaluation artifact available yet")

// artifactAPI is the slice of the upstream client the resolver needs.
type artifactAPI interface {
	upstream.RunLister
	upstream.ArtifactFetcher
}

// Config bounds the polling loop.
type Config struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Budget      time.Duration // wall-clock cap across all rounds
}

type Resolver struct {
	client  artifactAPI
	breaker *upstream.Breaker
	cfg     Config
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a resolver whose upstream calls go through breaker.
func New(client artifactAPI, breaker *upstream.Breaker, cfg Config, logger *slog.Logger) *Resolver {
	return &Resolver{
		client:  client,
		breaker: breaker,
		cfg:     cfg,
		logger:  logger,
		sleep:   sleepCtx,
	}
}

// Resolve implements checkrun.Resolver.
func (r *Resolver) Resolve(ctx context.Context, repo upstream.Repo, headSHA string, pol policy.Policy) (checkrun.ArtifactResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Budget)
	defer cancel()

	logger := r.logger.With("repository", repo.FullName(), "head_sha", headSHA)

	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		result, err := r.round(ctx, repo, headSHA, pol)
		if err == nil {
			result.Attempts = attempt + 1
			logger.Info("artifact resolved", "run_id", result.RunID, "attempts", result.Attempts)
			return result, nil
		}
		lastErr = err

		// An open circuit fails the whole resolution immediately instead
		// of burning the retry budget against a dead upstream
		if errors.Is(err, upstream.ErrCircuitOpen) {
			return checkrun.ArtifactResult{}, &checkrun.ResolutionError{Reason: checkrun.ReasonCircuitOpen, Attempts: attempt + 1, Err: err}
		}
		if !errors.Is(err, errNoArtifact) && !upstream.Transient(err) {
			return checkrun.ArtifactResult{}, &checkrun.ResolutionError{Reason: checkrun.ReasonPermanent, Attempts: attempt + 1, Err: err}
		}

		if attempt == r.cfg.MaxAttempts-1 {
			break
		}
		delay := r.backoff(attempt)
		logger.Debug("artifact not ready, backing off", "attempt", attempt, "delay", delay, "cause", err)
		if err := r.sleep(ctx, delay); err != nil {
			return checkrun.ArtifactResult{}, &checkrun.ResolutionError{Reason: checkrun.ReasonTimeout, Attempts: attempt + 1, Err: lastErr}
		}
	}
	return checkrun.ArtifactResult{}, &checkrun.ResolutionError{Reason: checkrun.ReasonTimeout, Attempts: r.cfg.MaxAttempts, Err: lastErr}
}

// round performs one pass: list candidates, newest first, return the
// first parseable artifact.
func (r *Resolver) round(ctx context.Context, repo upstream.Repo, headSHA string, pol policy.Policy) (checkrun.ArtifactResult, error) {
	var runs []upstream.WorkflowRun
	err := r.breaker.Execute(func() error {
		var listErr error
		runs, listErr = r.client.ListWorkflowRuns(ctx, repo, headSHA)
		return listErr
	})
	if err != nil {
		return checkrun.ArtifactResult{}, err
	}

	sortCandidates(runs)

	for _, run := range runs {
		result, err := r.fetchArtifact(ctx, repo, run, pol)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, upstream.ErrCircuitOpen) {
			return checkrun.ArtifactResult{}, err
		}
		// This candidate has no usable artifact (yet); try the next one
	}
	return checkrun.ArtifactResult{}, errNoArtifact
}

// fetchArtifact downloads and parses the policy-named artifact of one run.
func (r *Resolver) fetchArtifact(ctx context.Context, repo upstream.Repo, run upstream.WorkflowRun, pol policy.Policy) (checkrun.ArtifactResult, error) {
	var artifacts []upstream.Artifact
	err := r.breaker.Execute(func() error {
		var listErr error
		artifacts, listErr = r.client.ListArtifacts(ctx, repo, run.ID)
		return listErr
	})
	if err != nil {
		return checkrun.ArtifactResult{}, err
	}

	for _, artifact := range artifacts {
		if artifact.Name != pol.ArtifactName || artifact.Expired {
			continue
		}

		var data []byte
		err := r.breaker.Execute(func() error {
			var dlErr error
			data, dlErr = r.client.DownloadArtifact(ctx, repo, artifact.ID)
			return dlErr
		})
		if err != nil {
			return checkrun.ArtifactResult{}, err
		}

		winRate, threshold, err := parseEvalResults(data)
		if err != nil {
			r.logger.Warn("discarding unparseable artifact",
				"repository", repo.FullName(),
				"run_id", run.ID,
				"artifact_id", artifact.ID,
				"error", err,
			)
			return checkrun.ArtifactResult{}, fmt.Errorf("parsing artifact %d: %w", artifact.ID, err)
		}
		return checkrun.ArtifactResult{RunID: run.ID, WinRate: winRate, Threshold: threshold}, nil
	}
	return checkrun.ArtifactResult{}, fmt.Errorf("run %d: %w", run.ID, errNoArtifact)
}

// sortCandidates orders runs newest-first: createdAt descending, then
// runId descending. This ordering is a contract, not a network accident.
func sortCandidates(runs []upstream.WorkflowRun) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID > runs[j].ID
	})
}

/* evalResults is the artifact payload: a win rate (alias: score) and the
 * threshold the producing workflow evaluated against
 */
type evalResults struct {
	WinRate   *float64 `json:"win_rate"`
	Score     *float64 `json:"score"`
	Threshold *float64 `json:"threshold"`
}

// maxResultsSize caps how much of an artifact entry is read.
const maxResultsSize = 1 << 20

// parseEvalResults extracts the evaluation numbers from an artifact zip.
func parseEvalResults(data []byte) (winRate, threshold float64, err error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, 0, fmt.Errorf("opening artifact zip: %w", err)
	}

	entry := findResultsEntry(zr)
	if entry == nil {
		return 0, 0, fmt.Errorf("artifact zip has no json entry")
	}

	f, err := entry.Open()
	if err != nil {
		return 0, 0, fmt.Errorf("opening %s: %w", entry.Name, err)
	}
	defer f.Close()

	var results evalResults
	if err := json.NewDecoder(io.LimitReader(f, maxResultsSize)).Decode(&results); err != nil {
		return 0, 0, fmt.Errorf("decoding %s: %w", entry.Name, err)
	}

	rate := results.WinRate
	if rate == nil {
		rate = results.Score
	}
	if rate == nil {
		return 0, 0, fmt.Errorf("%s has neither win_rate nor score", entry.Name)
	}
	if results.Threshold == nil {
		return 0, 0, fmt.Errorf("%s is missing threshold", entry.Name)
	}
	return *rate, *results.Threshold, nil
}

// findResultsEntry picks the results file: the first .json entry.
func findResultsEntry(zr *zip.Reader) *zip.File {
	for _, f := range zr.File {
		if len(f.Name) > 5 && f.Name[len(f.Name)-5:] == ".json" {
			return f
		}
	}
	return nil
}

// backoff returns base * 2^attempt with up to 50% added jitter, capped.
func (r *Resolver) backoff(attempt int) time.Duration {
	d := r.cfg.BaseBackoff << attempt
	if d <= 0 || d > r.cfg.MaxBackoff {
		d = r.cfg.MaxBackoff
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
