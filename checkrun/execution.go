package checkrun

import (
	"fmt"
	"time"

	"github.com/evalforge/checkgate/upstream"
)

/* State represents the lifecycle of a check execution
 * Pending -> Resolving -> Evaluating -> Completed | Errored
 * Transitions are monotonic: nothing moves backward. An operator reset
 * creates a fresh execution instead of mutating a terminal one.
 */
type State int

const (
	Pending State = iota + 1
	Resolving
	Evaluating
	Completed
	Errored
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolving:
		return "resolving"
	case Evaluating:
		return "evaluating"
	case Completed:
		return "completed"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Validate checks if the state is valid
func (s State) Validate() error {
	if s < Pending || s > Errored {
		return fmt.Errorf("invalid state: %d", s)
	}
	return nil
}

// IsFinal returns true if the state is a terminal state
func (s State) IsFinal() bool {
	return s == Completed || s == Errored
}

// transitions is the explicit successor table; anything absent is illegal.
var transitions = map[State][]State{
	Pending:    {Resolving},
	Resolving:  {Evaluating, Errored},
	Evaluating: {Completed, Errored},
}

// CanTransition reports whether s -> to is a legal forward move.
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Key identifies the single-flight domain: one repository commit.
type Key struct {
	RepositoryID int64
	HeadSHA      string
}

// ArtifactResult is a parsed evaluation artifact.
type ArtifactResult struct {
	RunID     int64   // workflow run the artifact came from
	WinRate   float64 // fraction of eval cases won, within [0, 1]
	Threshold float64 // minimum win rate for a success conclusion
	Attempts  int     // resolution rounds consumed to obtain it
}

/* Execution is the per-key lifecycle record owned by the engine
 * Uses value semantics in the store so callers can never mutate the
 * stored copy; all changes go through the engine
 */
type Execution struct {
	ID         string
	Key        Key
	Repo       upstream.Repo
	State      State
	Attempts   int
	Result     *ArtifactResult
	Conclusion string
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Transition moves the execution forward, rejecting non-monotonic moves.
func (e *Execution) Transition(to State, now time.Time) error {
	if !e.State.CanTransition(to) {
		return fmt.Errorf("illegal transition %s -> %s for execution %s", e.State, to, e.ID)
	}
	e.State = to
	e.UpdatedAt = now
	return nil
}
