package checkrun_test

import (
	"testing"
	"time"

	"github.com/evalforge/checkgate/checkrun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTransitions(t *testing.T) {
	now := time.Now()

	t.Run("happy path is legal", func(t *testing.T) {
		e := checkrun.Execution{ID: "x", State: checkrun.Pending}

		require.NoError(t, e.Transition(checkrun.Resolving, now))
		require.NoError(t, e.Transition(checkrun.Evaluating, now))
		require.NoError(t, e.Transition(checkrun.Completed, now))
		assert.True(t, e.State.IsFinal())
	})

	t.Run("resolving can error", func(t *testing.T) {
		e := checkrun.Execution{ID: "x", State: checkrun.Resolving}

		require.NoError(t, e.Transition(checkrun.Errored, now))
		assert.True(t, e.State.IsFinal())
	})

	t.Run("no transition out of a terminal state", func(t *testing.T) {
		for _, terminal := range []checkrun.State{checkrun.Completed, checkrun.Errored} {
			e := checkrun.Execution{ID: "x", State: terminal}

			for _, to := range []checkrun.State{checkrun.Pending, checkrun.Resolving, checkrun.Evaluating, checkrun.Completed, checkrun.Errored} {
				assert.Error(t, e.Transition(to, now), "%s -> %s must be illegal", terminal, to)
			}
			assert.Equal(t, terminal, e.State)
		}
	})

	t.Run("no backward moves", func(t *testing.T) {
		e := checkrun.Execution{ID: "x", State: checkrun.Evaluating}

		assert.Error(t, e.Transition(checkrun.Pending, now))
		assert.Error(t, e.Transition(checkrun.Resolving, now))
		assert.Equal(t, checkrun.Evaluating, e.State)
	})

	t.Run("transition stamps UpdatedAt", func(t *testing.T) {
		e := checkrun.Execution{ID: "x", State: checkrun.Pending}

		require.NoError(t, e.Transition(checkrun.Resolving, now))
		assert.Equal(t, now, e.UpdatedAt)
	})
}

func TestStateStrings(t *testing.T) {
	cases := map[checkrun.State]string{
		checkrun.Pending:    "pending",
		checkrun.Resolving:  "resolving",
		checkrun.Evaluating: "evaluating",
		checkrun.Completed:  "completed",
		checkrun.Errored:    "errored",
		checkrun.State(99):  "unknown",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}

	assert.Error(t, checkrun.State(99).Validate())
	assert.NoError(t, checkrun.Resolving.Validate())
}
