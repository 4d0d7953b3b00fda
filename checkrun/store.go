package checkrun

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

/* Store holds in-flight and recently completed executions
 * Bounded by TTL eviction: a long-running process must not accumulate
 * one entry per commit forever. The map is never exposed; all access
 * goes through this API.
 */

// Reader provides read operations for executions
type Reader interface {
	Get(key Key) (Execution, bool)
	Len() int
	CountByState() map[string]int64
}

// Writer provides write operations for executions
type Writer interface {
	Put(execution Execution)
	Delete(key Key)
	// DeleteExpired evicts entries not updated within the TTL
	DeleteExpired(now time.Time) int
}

type Store interface {
	Reader
	Writer
}

// MemoryStore is the mutex-guarded map implementation of Store.
type MemoryStore struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[Key]Execution
}

// NewMemoryStore creates a store whose entries expire ttl after their
// last update.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[Key]Execution),
	}
}

// Get returns a copy of the execution for key.
func (s *MemoryStore) Get(key Key) (Execution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	execution, ok := s.entries[key]
	return execution, ok
}

// Put stores a copy of the execution under its key.
func (s *MemoryStore) Put(execution Execution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[execution.Key] = execution
}

// Delete removes the execution for key, if any.
func (s *MemoryStore) Delete(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len returns the number of stored executions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// CountByState returns execution counts keyed by state name, for metrics.
func (s *MemoryStore) CountByState() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, execution := range s.entries {
		counts[execution.State.String()]++
	}
	return counts
}

// DeleteExpired implements Writer, returning the eviction count.
func (s *MemoryStore) DeleteExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, execution := range s.entries {
		if now.Sub(execution.UpdatedAt) > s.ttl {
			delete(s.entries, key)
			evicted++
		}
	}
	return evicted
}

// StartCleanup evicts expired executions on a timer until ctx ends.
func (s *MemoryStore) StartCleanup(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if evicted := s.DeleteExpired(now); evicted > 0 {
					logger.Debug("execution store cleanup", "evicted", evicted, "remaining", s.Len())
				}
			}
		}
	}()
}
