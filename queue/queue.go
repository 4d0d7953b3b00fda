package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/evalforge/checkgate/webhook"
)

/* The queue decouples webhook ingress from artifact resolution.
 * GitHub enforces a 10s response budget on webhook endpoints while a
 * resolution can take tens of seconds across retries, so ingress only
 * performs the (in-memory) enqueue and answers immediately. The channel
 * is bounded: a full queue rejects the enqueue with backpressure and the
 * sender's redelivery handles the retry.
 */

// ErrFull indicates the queue is at capacity; callers answer HTTP 503.
var ErrFull = errors.New("queue is full")

// Handler consumes events dequeued by the worker pool.
type Handler interface {
	Process(ctx context.Context, ev webhook.WorkflowRunEvent) error
}

type Queue struct {
	events chan webhook.WorkflowRunEvent
}

// New creates a bounded queue with the given capacity.
func New(capacity int) *Queue {
	return &Queue{
		events: make(chan webhook.WorkflowRunEvent, capacity),
	}
}

// Enqueue adds an event without blocking. Returns ErrFull at capacity.
func (q *Queue) Enqueue(ev webhook.WorkflowRunEvent) error {
	select {
	case q.events <- ev:
		return nil
	default:
		return ErrFull
	}
}

// Depth returns the number of queued events, for metrics and readiness.
func (q *Queue) Depth() int {
	return len(q.events)
}

/* Pool runs a fixed set of workers over the queue.
 * Workers process different commits concurrently; serialization of
 * same-commit events is the handler's job (the engine holds a per-key
 * lock), so the pool itself stays a plain fan-out.
 */
type Pool struct {
	queue   *Queue
	handler Handler
	workers int
	logger  *slog.Logger

	wg sync.WaitGroup
}

// NewPool creates a worker pool draining queue into handler.
func NewPool(queue *Queue, handler Handler, workers int, logger *slog.Logger) *Pool {
	return &Pool{
		queue:   queue,
		handler: handler,
		workers: workers,
		logger:  logger,
	}
}

// Start launches the workers; they run until ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker", id)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.queue.events:
			p.process(ctx, logger, ev)
		}
	}
}

// process runs the handler for one event, containing panics so a
// poisoned event cannot take the worker (and with it the service) down.
func (p *Pool) process(ctx context.Context, logger *slog.Logger, ev webhook.WorkflowRunEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic processing event",
				"delivery_id", ev.DeliveryID,
				"repository", ev.FullName(),
				"head_sha", ev.HeadSHA,
				"panic", rec,
			)
		}
	}()

	// Handler errors are terminal per event: the state machine maps
	// upstream failures to an Errored execution itself, so anything
	// surfacing here is a processing bug worth logging loudly.
	if err := p.handler.Process(ctx, ev); err != nil {
		logger.Error("processing event",
			"delivery_id", ev.DeliveryID,
			"repository", ev.FullName(),
			"head_sha", ev.HeadSHA,
			"error", err,
		)
	}
}
