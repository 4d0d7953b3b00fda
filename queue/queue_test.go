package queue_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/evalforge/checkgate/queue"
	"github.com/evalforge/checkgate/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler collects processed events for assertions.
type recordingHandler struct {
	mu     sync.Mutex
	events []webhook.WorkflowRunEvent
	done   chan struct{}
	want   int
}

func newRecordingHandler(want int) *recordingHandler {
	return &recordingHandler{done: make(chan struct{}), want: want}
}

func (h *recordingHandler) Process(_ context.Context, ev webhook.WorkflowRunEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	if len(h.events) == h.want {
		close(h.done)
	}
	return nil
}

// panicOnceHandler panics on the first event, then delegates.
type panicOnceHandler struct {
	mu       sync.Mutex
	panicked bool
	next     queue.Handler
}

func (h *panicOnceHandler) Process(ctx context.Context, ev webhook.WorkflowRunEvent) error {
	h.mu.Lock()
	first := !h.panicked
	h.panicked = true
	h.mu.Unlock()

	if first {
		panic("poisoned event")
	}
	return h.next.Process(ctx, ev)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnqueue(t *testing.T) {
	t.Run("accepts until capacity", func(t *testing.T) {
		q := queue.New(2)

		require.NoError(t, q.Enqueue(webhook.WorkflowRunEvent{DeliveryID: "d1"}))
		require.NoError(t, q.Enqueue(webhook.WorkflowRunEvent{DeliveryID: "d2"}))
		assert.Equal(t, 2, q.Depth())
	})

	t.Run("rejects with backpressure at capacity", func(t *testing.T) {
		q := queue.New(1)

		require.NoError(t, q.Enqueue(webhook.WorkflowRunEvent{DeliveryID: "d1"}))
		err := q.Enqueue(webhook.WorkflowRunEvent{DeliveryID: "d2"})
		assert.ErrorIs(t, err, queue.ErrFull)
		assert.Equal(t, 1, q.Depth())
	})
}

func TestPool(t *testing.T) {
	t.Run("drains queued events", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.New(16)
		handler := newRecordingHandler(8)
		pool := queue.NewPool(q, handler, 4, testLogger())
		pool.Start(ctx)

		for i := 0; i < 8; i++ {
			require.NoError(t, q.Enqueue(webhook.WorkflowRunEvent{
				DeliveryID: fmt.Sprintf("d%d", i),
				HeadSHA:    fmt.Sprintf("sha%d", i),
			}))
		}

		select {
		case <-handler.done:
		case <-time.After(5 * time.Second):
			t.Fatal("workers did not drain the queue in time")
		}

		handler.mu.Lock()
		defer handler.mu.Unlock()
		assert.Len(t, handler.events, 8)
	})

	t.Run("a panicking handler does not kill the worker", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.New(16)
		handler := newRecordingHandler(2)
		pool := queue.NewPool(q, &panicOnceHandler{next: handler}, 1, testLogger())
		pool.Start(ctx)

		require.NoError(t, q.Enqueue(webhook.WorkflowRunEvent{DeliveryID: "poison"}))
		require.NoError(t, q.Enqueue(webhook.WorkflowRunEvent{DeliveryID: "d1"}))
		require.NoError(t, q.Enqueue(webhook.WorkflowRunEvent{DeliveryID: "d2"}))

		select {
		case <-handler.done:
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not survive the panicking event")
		}

		handler.mu.Lock()
		defer handler.mu.Unlock()
		assert.Equal(t, "d1", handler.events[0].DeliveryID)
		assert.Equal(t, "d2", handler.events[1].DeliveryID)
	})

	t.Run("workers stop on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		q := queue.New(1)
		pool := queue.NewPool(q, newRecordingHandler(1), 2, testLogger())
		pool.Start(ctx)

		cancel()

		done := make(chan struct{})
		go func() {
			pool.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("workers did not stop after cancel")
		}
	})
}
