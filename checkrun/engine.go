package checkrun

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/evalforge/checkgate/policy"
	"github.com/evalforge/checkgate/upstream"
	"github.com/evalforge/checkgate/webhook"
	"github.com/google/uuid"
)

/* Engine owns the per-commit execution lifecycle
 * It is the only component that creates executions and moves them
 * through states. Single-flight per key: a webhook arriving while the
 * key's execution is non-terminal is coalesced (the resolver's recency
 * sort already guarantees the newest run wins), and a redelivery after
 * completion is an idempotent no-op.
 */

// Resolver produces the authoritative artifact result for a commit.
type Resolver interface {
	Resolve(ctx context.Context, repo upstream.Repo, headSHA string, pol policy.Policy) (ArtifactResult, error)
}

// Publisher reports a terminal conclusion as a provider check run.
type Publisher interface {
	Publish(ctx context.Context, repo upstream.Repo, pol policy.Policy, headSHA, conclusion, title, summary string) error
}

// lockStripes bounds the key-lock table; same-key events always share a
// stripe, so check-and-create stays atomic per key.
const lockStripes = 64

type Engine struct {
	store     Store
	resolver  Resolver
	publisher Publisher
	policies  *policy.Loader
	logger    *slog.Logger
	now       func() time.Time

	locks [lockStripes]sync.Mutex
}

// NewEngine creates the state machine engine with dependency injection.
func NewEngine(store Store, resolver Resolver, publisher Publisher, policies *policy.Loader, logger *slog.Logger) *Engine {
	return &Engine{
		store:     store,
		resolver:  resolver,
		publisher: publisher,
		policies:  policies,
		logger:    logger,
		now:       time.Now,
	}
}

// Process implements queue.Handler for one workflow-run event.
func (e *Engine) Process(ctx context.Context, ev webhook.WorkflowRunEvent) error {
	if ev.Action != webhook.ActionCompleted {
		return nil
	}

	key := Key{RepositoryID: ev.RepositoryID, HeadSHA: ev.HeadSHA}
	repo := upstream.Repo{Owner: ev.Owner, Name: ev.Repository}
	pol := e.policies.Get(ev.FullName())
	logger := e.logger.With("repository", ev.FullName(), "head_sha", ev.HeadSHA, "delivery_id", ev.DeliveryID)

	execution, created := e.claim(key, repo)
	if !created {
		if execution.State.IsFinal() {
			logger.Info("redelivery for completed execution, skipping", "execution_id", execution.ID, "conclusion", execution.Conclusion)
		} else {
			logger.Info("execution already in flight, coalescing", "execution_id", execution.ID, "state", execution.State.String())
		}
		return nil
	}

	logger = logger.With("execution_id", execution.ID)
	logger.Info("execution started")

	if err := e.transition(&execution, Resolving); err != nil {
		return err
	}

	result, err := e.resolver.Resolve(ctx, repo, ev.HeadSHA, pol)
	if err != nil {
		return e.finishErrored(ctx, logger, execution, repo, pol, err)
	}

	if err := e.transition(&execution, Evaluating); err != nil {
		return err
	}
	return e.finishEvaluated(ctx, logger, execution, repo, pol, result)
}

/* claim atomically returns the active-or-terminal execution for key, or
 * creates a fresh Pending one. created=false means the caller must not
 * run: some other event owns the key or already finished it.
 */
func (e *Engine) claim(key Key, repo upstream.Repo) (Execution, bool) {
	lock := &e.locks[stripe(key)]
	lock.Lock()
	defer lock.Unlock()

	if existing, ok := e.store.Get(key); ok {
		return existing, false
	}

	now := e.now()
	execution := Execution{
		ID:        uuid.New().String(),
		Key:       key,
		Repo:      repo,
		State:     Pending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.store.Put(execution)
	return execution, true
}

// Reset discards a terminal or stuck execution so the next webhook for
// the key starts fresh. Operator-triggered; the old record is dropped
// rather than rewound to keep transitions monotonic.
func (e *Engine) Reset(key Key) bool {
	lock := &e.locks[stripe(key)]
	lock.Lock()
	defer lock.Unlock()

	if _, ok := e.store.Get(key); !ok {
		return false
	}
	e.store.Delete(key)
	return true
}

func (e *Engine) finishEvaluated(ctx context.Context, logger *slog.Logger, execution Execution, repo upstream.Repo, pol policy.Policy, result ArtifactResult) error {
	threshold := result.Threshold
	if pol.ThresholdOverride > 0 {
		threshold = pol.ThresholdOverride
	}

	conclusion := upstream.ConclusionFailure
	if result.WinRate >= threshold {
		conclusion = upstream.ConclusionSuccess
	}

	if err := e.transition(&execution, Completed); err != nil {
		return err
	}
	execution.Attempts = result.Attempts
	execution.Result = &result
	execution.Conclusion = conclusion
	e.store.Put(execution)

	title := fmt.Sprintf("Eval win rate: %.1f%%", result.WinRate*100)
	summary := fmt.Sprintf("Workflow run %d reported a win rate of %.1f%% against a threshold of %.1f%%.",
		result.RunID, result.WinRate*100, threshold*100)

	logger.Info("execution completed",
		"conclusion", conclusion,
		"win_rate", result.WinRate,
		"threshold", threshold,
		"resolved_run_id", result.RunID,
	)
	return e.publish(ctx, logger, execution, repo, pol, conclusion, title, summary)
}

func (e *Engine) finishErrored(ctx context.Context, logger *slog.Logger, execution Execution, repo upstream.Repo, pol policy.Policy, cause error) error {
	if err := e.transition(&execution, Errored); err != nil {
		return err
	}
	execution.LastError = cause.Error()
	execution.Conclusion = pol.OnError

	var resErr *ResolutionError
	reason := ReasonPermanent
	if errors.As(cause, &resErr) {
		reason = resErr.Reason
		execution.Attempts = resErr.Attempts
	}
	e.store.Put(execution)

	title := "Eval inconclusive"
	summary := errorSummary(reason)

	logger.Error("execution errored",
		"reason", string(reason),
		"conclusion", pol.OnError,
		"error", cause,
	)
	return e.publish(ctx, logger, execution, repo, pol, pol.OnError, title, summary)
}

// publish reports the terminal conclusion. A publication failure never
// reopens the execution: evaluation already finished, and reprocessing
// would repeat upstream work for an answer we already have.
func (e *Engine) publish(ctx context.Context, logger *slog.Logger, execution Execution, repo upstream.Repo, pol policy.Policy, conclusion, title, summary string) error {
	if err := e.publisher.Publish(ctx, repo, pol, execution.Key.HeadSHA, conclusion, title, summary); err != nil {
		execution.LastError = fmt.Sprintf("publishing check run: %v", err)
		e.store.Put(execution)
		logger.Error("publishing check run failed, execution stays terminal", "error", err)
	}
	return nil
}

func (e *Engine) transition(execution *Execution, to State) error {
	if err := execution.Transition(to, e.now()); err != nil {
		return err
	}
	e.store.Put(*execution)
	return nil
}

// errorSummary renders a human-readable cause for the check-run output.
// The check must never show a cryptic failure for an infrastructure
// problem the commit author cannot act on.
func errorSummary(reason ResolutionReason) string {
	switch reason {
	case ReasonTimeout:
		return "No evaluation artifact became available before the retry budget was exhausted. " +
			"The workflow may not have uploaded its results; re-run the workflow to retry."
	case ReasonCircuitOpen:
		return "The CI provider API is currently degraded and calls are being shed. " +
			"The check will resolve on the next webhook delivery once the provider recovers."
	default:
		return "The CI provider rejected artifact resolution with a non-retryable error. " +
			"See service logs for details."
	}
}

// stripe maps a key onto its lock.
func stripe(key Key) int {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d:%s", key.RepositoryID, key.HeadSHA)
	return int(h.Sum32() % lockStripes)
}
