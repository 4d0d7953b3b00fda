package upstream

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errUpstream = errors.New("upstream failed")

func failing() error { return errUpstream }
func succeeding() error { return nil }

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker("github", 3, time.Minute, testLogger())
	now := time.Now()
	b.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		err := b.Execute(failing)
		require.ErrorIs(t, err, errUpstream)
		assert.Equal(t, "closed", b.State())
	}

	// Third consecutive failure trips the circuit
	require.ErrorIs(t, b.Execute(failing), errUpstream)
	assert.Equal(t, "open", b.State())

	// Open circuit fails fast without invoking the call
	invoked := false
	err := b.Execute(func() error {
		invoked = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, invoked)
}

func TestBreakerSuccessResetsCounter(t *testing.T) {
	b := NewBreaker("github", 3, time.Minute, testLogger())

	require.Error(t, b.Execute(failing))
	require.Error(t, b.Execute(failing))
	require.NoError(t, b.Execute(succeeding))
	require.Error(t, b.Execute(failing))
	require.Error(t, b.Execute(failing))

	// Never three in a row, so the circuit stays closed
	assert.Equal(t, "closed", b.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	t.Run("successful probe closes the circuit", func(t *testing.T) {
		b := NewBreaker("github", 1, time.Minute, testLogger())
		now := time.Now()
		b.now = func() time.Time { return now }

		require.Error(t, b.Execute(failing))
		require.Equal(t, "open", b.State())

		now = now.Add(2 * time.Minute)
		require.NoError(t, b.Execute(succeeding))
		assert.Equal(t, "closed", b.State())
	})

	t.Run("failed probe reopens and restarts the cooldown", func(t *testing.T) {
		b := NewBreaker("github", 1, time.Minute, testLogger())
		now := time.Now()
		b.now = func() time.Time { return now }

		require.Error(t, b.Execute(failing))
		require.Equal(t, "open", b.State())

		now = now.Add(2 * time.Minute)
		require.ErrorIs(t, b.Execute(failing), errUpstream)
		assert.Equal(t, "open", b.State())

		// Cooldown restarted from the failed probe
		now = now.Add(30 * time.Second)
		assert.ErrorIs(t, b.Execute(succeeding), ErrCircuitOpen)

		now = now.Add(time.Minute)
		require.NoError(t, b.Execute(succeeding))
		assert.Equal(t, "closed", b.State())
	})

	t.Run("exactly one probe is allowed through", func(t *testing.T) {
		b := NewBreaker("github", 1, time.Minute, testLogger())
		now := time.Now()
		b.now = func() time.Time { return now }

		require.Error(t, b.Execute(failing))
		now = now.Add(2 * time.Minute)

		probeStarted := make(chan struct{})
		probeRelease := make(chan struct{})
		probeDone := make(chan error, 1)

		go func() {
			probeDone <- b.Execute(func() error {
				close(probeStarted)
				<-probeRelease
				return nil
			})
		}()

		<-probeStarted
		// Second call while the probe is in flight fails fast
		assert.ErrorIs(t, b.Execute(succeeding), ErrCircuitOpen)

		close(probeRelease)
		require.NoError(t, <-probeDone)
		assert.Equal(t, "closed", b.State())
	})
}
