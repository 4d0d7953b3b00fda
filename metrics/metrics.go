package metrics

import (
	"context"
	"sync"
	"time"
)

// Delivery outcomes counted at ingress.
const (
	OutcomeAccepted         = "accepted"
	OutcomeDuplicate        = "duplicate"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeRateLimited      = "rate_limited"
	OutcomeMalformed        = "malformed"
	OutcomeUnsupported      = "unsupported"
	OutcomeOverflow         = "overflow"
)

// Snapshot represents the current state of the reconciliation engine.
type Snapshot struct {
	// QueueDepth is the number of events waiting for a worker
	QueueDepth int64 `json:"queue_depth"`

	// ExecutionCounts maps execution state name to count
	ExecutionCounts map[string]int64 `json:"execution_counts"`

	// DeliveryCounts maps ingress outcome to a monotonic count
	DeliveryCounts map[string]int64 `json:"delivery_counts"`

	// BreakerStates maps breaker name to closed/open/half-open
	BreakerStates map[string]string `json:"breaker_states"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// Collector defines the interface for collecting metrics from the engine.
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Snapshot, error)

	// GetQueueDepth returns the number of queued events
	GetQueueDepth(ctx context.Context) (int64, error)

	// GetExecutionCounts returns execution counts by state
	GetExecutionCounts(ctx context.Context) (map[string]int64, error)

	// GetDeliveryCounts returns ingress outcomes since process start
	GetDeliveryCounts(ctx context.Context) (map[string]int64, error)

	// GetBreakerStates returns the state of each circuit breaker
	GetBreakerStates(ctx context.Context) (map[string]string, error)
}

/* DeliveryCounters is the ingress-side tally of webhook outcomes
 * Shared between the HTTP handlers (writers) and the collector (reader)
 */
type DeliveryCounters struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewDeliveryCounters creates an empty tally.
func NewDeliveryCounters() *DeliveryCounters {
	return &DeliveryCounters{counts: make(map[string]int64)}
}

// Inc adds one delivery with the given outcome.
func (c *DeliveryCounters) Inc(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[outcome]++
}

// Snapshot returns a copy of the tally.
func (c *DeliveryCounters) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int64, len(c.counts))
	for outcome, count := range c.counts {
		out[outcome] = count
	}
	return out
}
