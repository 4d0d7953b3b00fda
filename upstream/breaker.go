package upstream

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

/* Circuit breaker guarding one upstream dependency
 * Closed: calls pass through, consecutive failures counted.
 * Open: calls fail fast with ErrCircuitOpen until the cooldown elapses.
 * Half-open: exactly one probe call goes through; its outcome closes or
 * reopens the circuit. Injected explicitly into the resolver and
 * publisher so tests can substitute their own instance.
 */

// ErrCircuitOpen is returned without invoking the wrapped call. Logged
// distinctly from per-call failures so operators can tell "upstream is
// down" apart from "this one call failed".
var ErrCircuitOpen = errors.New("circuit breaker is open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu                  sync.Mutex
	state               breakerState
	consecutiveFailures int
	lastFailureAt       time.Time
	halfOpenAt          time.Time
	probing             bool
}

// NewBreaker creates a closed breaker named after its upstream dependency.
func NewBreaker(name string, threshold int, cooldown time.Duration, logger *slog.Logger) *Breaker {
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute runs fn if the circuit allows it, recording the outcome.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}

	err := fn()
	b.after(err)
	return err
}

// State returns the current state name, for metrics and readiness.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return nil
	case stateOpen:
		if b.now().Before(b.halfOpenAt) {
			return ErrCircuitOpen
		}
		b.state = stateHalfOpen
		b.probing = true
		b.logger.Info("circuit breaker half-open, probing", "breaker", b.name)
		return nil
	case stateHalfOpen:
		// One probe at a time; everything else fails fast
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.probing = false
		if err != nil {
			b.reopen()
			return
		}
		b.state = stateClosed
		b.consecutiveFailures = 0
		b.logger.Info("circuit breaker closed", "breaker", b.name)
		return
	}

	if err != nil {
		b.consecutiveFailures++
		b.lastFailureAt = b.now()
		if b.state == stateClosed && b.consecutiveFailures >= b.threshold {
			b.reopen()
		}
		return
	}
	b.consecutiveFailures = 0
}

// reopen trips the circuit and restarts the cooldown. Caller holds mu.
func (b *Breaker) reopen() {
	b.state = stateOpen
	b.halfOpenAt = b.now().Add(b.cooldown)
	b.logger.Warn("circuit breaker open",
		"breaker", b.name,
		"consecutive_failures", b.consecutiveFailures,
		"half_open_at", b.halfOpenAt,
	)
}
