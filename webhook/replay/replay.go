package replay

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

/* Replay protection tracks delivery IDs inside a time-bounded window.
 * The TTL must exceed the webhook provider's maximum redelivery window,
 * otherwise a redelivered duplicate slips through after its entry expires.
 */

// Guard decides whether a delivery ID has been seen within the replay window.
type Guard interface {
	/* Accept records the delivery ID and returns true the first time it is
	 * seen within the TTL window; false means the delivery was already
	 * processed and must be acknowledged without reprocessing
	 */
	Accept(ctx context.Context, deliveryID string) (bool, error)

	/* Forget releases a delivery ID recorded by Accept. Called when an
	 * accepted delivery could not be enqueued, so the sender's redelivery
	 * of the same ID is treated as new instead of swallowed as a duplicate
	 */
	Forget(ctx context.Context, deliveryID string) error

	Close(ctx context.Context) error
}

// MemoryGuard is the single-replica Guard: a mutex-guarded map of
// deliveryID -> expiry, bounded by a periodic garbage collection pass.
type MemoryGuard struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryGuard creates an in-memory replay guard with the given TTL.
func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]time.Time),
	}
}

// Accept implements Guard. Never returns an error.
func (g *MemoryGuard) Accept(_ context.Context, deliveryID string) (bool, error) {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if expiresAt, ok := g.entries[deliveryID]; ok && now.Before(expiresAt) {
		return false, nil
	}
	g.entries[deliveryID] = now.Add(g.ttl)
	return true, nil
}

// GC removes expired entries and returns how many were evicted.
// Runs off the request path so ingress latency stays flat.
func (g *MemoryGuard) GC(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	evicted := 0
	for id, expiresAt := range g.entries {
		if !now.Before(expiresAt) {
			delete(g.entries, id)
			evicted++
		}
	}
	return evicted
}

// Forget implements Guard. Never returns an error.
func (g *MemoryGuard) Forget(_ context.Context, deliveryID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, deliveryID)
	return nil
}

// Len returns the current number of tracked delivery IDs.
func (g *MemoryGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Close implements Guard.
func (g *MemoryGuard) Close(_ context.Context) error {
	return nil
}

// StartGC runs the eviction pass on a timer until ctx is cancelled.
func (g *MemoryGuard) StartGC(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if evicted := g.GC(now); evicted > 0 {
					logger.Debug("replay guard gc", "evicted", evicted, "remaining", g.Len())
				}
			}
		}
	}()
}
