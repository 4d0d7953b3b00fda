package metrics

import (
	"context"
	"fmt"
	"time"
)

// QueueDepther reports how many events are waiting for a worker.
type QueueDepther interface {
	Depth() int
}

// ExecutionCounter reports stored executions grouped by state.
type ExecutionCounter interface {
	CountByState() map[string]int64
}

// BreakerStater reports a circuit breaker's current state.
type BreakerStater interface {
	State() string
}

// EngineCollector implements the Collector interface over the in-process
// engine components.
type EngineCollector struct {
	queue      QueueDepther
	executions ExecutionCounter
	deliveries *DeliveryCounters
	breakers   map[string]BreakerStater
}

// NewEngineCollector creates a collector over the given components.
func NewEngineCollector(queue QueueDepther, executions ExecutionCounter, deliveries *DeliveryCounters, breakers map[string]BreakerStater) *EngineCollector {
	return &EngineCollector{
		queue:      queue,
		executions: executions,
		deliveries: deliveries,
		breakers:   breakers,
	}
}

// Collect gathers all metrics from the engine components.
func (c *EngineCollector) Collect(ctx context.Context) (Snapshot, error) {
	queueDepth, err := c.GetQueueDepth(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("getting queue depth: %w", err)
	}

	executionCounts, err := c.GetExecutionCounts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("getting execution counts: %w", err)
	}

	deliveryCounts, err := c.GetDeliveryCounts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("getting delivery counts: %w", err)
	}

	breakerStates, err := c.GetBreakerStates(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("getting breaker states: %w", err)
	}

	return Snapshot{
		QueueDepth:      queueDepth,
		ExecutionCounts: executionCounts,
		DeliveryCounts:  deliveryCounts,
		BreakerStates:   breakerStates,
		Timestamp:       time.Now(),
	}, nil
}

// GetQueueDepth returns the number of queued events.
func (c *EngineCollector) GetQueueDepth(_ context.Context) (int64, error) {
	return int64(c.queue.Depth()), nil
}

// GetExecutionCounts returns execution counts grouped by state.
func (c *EngineCollector) GetExecutionCounts(_ context.Context) (map[string]int64, error) {
	return c.executions.CountByState(), nil
}

// GetDeliveryCounts returns ingress outcomes since process start.
func (c *EngineCollector) GetDeliveryCounts(_ context.Context) (map[string]int64, error) {
	return c.deliveries.Snapshot(), nil
}

// GetBreakerStates returns the state of each circuit breaker.
func (c *EngineCollector) GetBreakerStates(_ context.Context) (map[string]string, error) {
	states := make(map[string]string, len(c.breakers))
	for name, breaker := range c.breakers {
		states[name] = breaker.State()
	}
	return states, nil
}
