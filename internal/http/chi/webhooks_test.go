package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalforge/checkgate/metrics"
	"github.com/evalforge/checkgate/queue"
	"github.com/evalforge/checkgate/webhook"
	"github.com/evalforge/checkgate/webhook/ratelimit"
	"github.com/evalforge/checkgate/webhook/replay"
	"github.com/evalforge/checkgate/webhook/signature"
)

const testSecret = "topsecret"

// nopHandler drains the queue without doing work.
type nopHandler struct{}

func (nopHandler) Process(context.Context, webhook.WorkflowRunEvent) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testIngress(t *testing.T, capacity int) Ingress {
	t.Helper()

	verifier, err := signature.NewVerifier(testSecret)
	require.NoError(t, err)

	return Ingress{
		Verifier: verifier,
		Guard:    replay.NewMemoryGuard(time.Hour),
		Limiter:  ratelimit.New(1000, 1000),
		Queue:    queue.New(capacity),
		Counters: metrics.NewDeliveryCounters(),
	}
}

func workflowRunBody(action, headSHA string) []byte {
	return []byte(fmt.Sprintf(`{
		"action": %q,
		"workflow_run": {"id": 42, "head_sha": %q, "status": "completed", "created_at": "2026-08-30T12:00:00Z"},
		"repository": {"id": 7, "name": "prompt-evals", "full_name": "evalforge/prompt-evals", "owner": {"login": "evalforge"}}
	}`, action, headSHA))
}

func signedRequest(t *testing.T, event, deliveryID string, body []byte) *http.Request {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, "/v1/webhooks/github", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(webhook.SignatureHeader, signature.Header([]byte(testSecret), body))
	req.Header.Set(webhook.EventHeader, event)
	req.Header.Set(webhook.DeliveryHeader, deliveryID)
	return req
}

func TestPostWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("valid completed workflow_run is accepted and enqueued", func(t *testing.T) {
		in := testIngress(t, 8)
		h := WebhookHandlers(ctx, in)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, signedRequest(t, "workflow_run", "d-1", workflowRunBody("completed", "abc")))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp deliveryResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "d-1", resp.DeliveryID)
		assert.Equal(t, statusAccepted, resp.Status)
		assert.Equal(t, 1, in.Queue.Depth())
	})

	t.Run("invalid signature is rejected before anything else", func(t *testing.T) {
		in := testIngress(t, 8)
		h := WebhookHandlers(ctx, in)

		body := workflowRunBody("completed", "abc")
		req := signedRequest(t, "workflow_run", "d-1", body)
		req.Header.Set(webhook.SignatureHeader, "sha256=deadbeef")

		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, 0, in.Queue.Depth())
	})

	t.Run("missing signature is rejected", func(t *testing.T) {
		in := testIngress(t, 8)
		h := WebhookHandlers(ctx, in)

		req := signedRequest(t, "workflow_run", "d-1", workflowRunBody("completed", "abc"))
		req.Header.Del(webhook.SignatureHeader)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("redelivery is indistinguishable from the original", func(t *testing.T) {
		in := testIngress(t, 8)
		h := WebhookHandlers(ctx, in)
		body := workflowRunBody("completed", "abc")

		first := httptest.NewRecorder()
		h.ServeHTTP(first, signedRequest(t, "workflow_run", "d-1", body))
		second := httptest.NewRecorder()
		h.ServeHTTP(second, signedRequest(t, "workflow_run", "d-1", body))

		assert.Equal(t, first.Code, second.Code)
		assert.JSONEq(t, first.Body.String(), second.Body.String())
		assert.Equal(t, 1, in.Queue.Depth(), "duplicate must not be enqueued twice")
	})

	t.Run("missing delivery id is a bad request", func(t *testing.T) {
		in := testIngress(t, 8)
		h := WebhookHandlers(ctx, in)

		req := signedRequest(t, "workflow_run", "", workflowRunBody("completed", "abc"))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed payload is a bad request", func(t *testing.T) {
		in := testIngress(t, 8)
		h := WebhookHandlers(ctx, in)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, signedRequest(t, "workflow_run", "d-1", []byte(`{"action":`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ping is acknowledged without enqueueing", func(t *testing.T) {
		in := testIngress(t, 8)
		h := WebhookHandlers(ctx, in)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, signedRequest(t, "ping", "d-1", []byte(`{"zen": "Keep it logically awesome."}`)))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp deliveryResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, statusIgnored, resp.Status)
		assert.Equal(t, 0, in.Queue.Depth())
	})

	t.Run("unsupported event types are acknowledged and dropped", func(t *testing.T) {
		in := testIngress(t, 8)
		h := WebhookHandlers(ctx, in)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, signedRequest(t, "push", "d-1", []byte(`{}`)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, in.Queue.Depth())
	})

	t.Run("non-completed workflow_run actions are ignored", func(t *testing.T) {
		in := testIngress(t, 8)
		h := WebhookHandlers(ctx, in)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, signedRequest(t, "workflow_run", "d-1", workflowRunBody("requested", "abc")))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 0, in.Queue.Depth())
	})

	t.Run("full queue sheds load with 503", func(t *testing.T) {
		in := testIngress(t, 1)
		h := WebhookHandlers(ctx, in)

		first := httptest.NewRecorder()
		h.ServeHTTP(first, signedRequest(t, "workflow_run", "d-1", workflowRunBody("completed", "abc")))
		require.Equal(t, http.StatusOK, first.Code)

		second := httptest.NewRecorder()
		h.ServeHTTP(second, signedRequest(t, "workflow_run", "d-2", workflowRunBody("completed", "def")))
		assert.Equal(t, http.StatusServiceUnavailable, second.Code)
	})

	t.Run("backpressure-rejected delivery can be retried", func(t *testing.T) {
		in := testIngress(t, 1)
		h := WebhookHandlers(ctx, in)

		first := httptest.NewRecorder()
		h.ServeHTTP(first, signedRequest(t, "workflow_run", "d-1", workflowRunBody("completed", "abc")))
		require.Equal(t, http.StatusOK, first.Code)

		rejected := httptest.NewRecorder()
		h.ServeHTTP(rejected, signedRequest(t, "workflow_run", "d-2", workflowRunBody("completed", "def")))
		require.Equal(t, http.StatusServiceUnavailable, rejected.Code)

		// Drain the queue, then stop the workers before the retry arrives
		poolCtx, cancel := context.WithCancel(ctx)
		pool := queue.NewPool(in.Queue, nopHandler{}, 1, testLogger())
		pool.Start(poolCtx)
		require.Eventually(t, func() bool { return in.Queue.Depth() == 0 },
			5*time.Second, time.Millisecond)
		cancel()
		pool.Wait()

		// The 503 told the sender to retry; the retried delivery must be
		// enqueued, not acknowledged as an already-processed duplicate
		retry := httptest.NewRecorder()
		h.ServeHTTP(retry, signedRequest(t, "workflow_run", "d-2", workflowRunBody("completed", "def")))
		assert.Equal(t, http.StatusOK, retry.Code)
		assert.Equal(t, 1, in.Queue.Depth())
		assert.Equal(t, int64(0), in.Counters.Snapshot()[metrics.OutcomeDuplicate])
	})

	t.Run("rate limit rejects the burst overflow", func(t *testing.T) {
		in := testIngress(t, 8)
		in.Limiter = ratelimit.New(0.001, 1)
		h := WebhookHandlers(ctx, in)

		first := httptest.NewRecorder()
		h.ServeHTTP(first, signedRequest(t, "workflow_run", "d-1", workflowRunBody("completed", "abc")))
		require.Equal(t, http.StatusOK, first.Code)

		second := httptest.NewRecorder()
		h.ServeHTTP(second, signedRequest(t, "workflow_run", "d-2", workflowRunBody("completed", "def")))
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
	})

	t.Run("outcomes are tallied", func(t *testing.T) {
		in := testIngress(t, 8)
		h := WebhookHandlers(ctx, in)

		w := httptest.NewRecorder()
		h.ServeHTTP(w, signedRequest(t, "workflow_run", "d-1", workflowRunBody("completed", "abc")))
		w = httptest.NewRecorder()
		h.ServeHTTP(w, signedRequest(t, "workflow_run", "d-1", workflowRunBody("completed", "abc")))

		counts := in.Counters.Snapshot()
		assert.Equal(t, int64(1), counts[metrics.OutcomeAccepted])
		assert.Equal(t, int64(1), counts[metrics.OutcomeDuplicate])
	})
}

func TestHealthEndpoints(t *testing.T) {
	ctx := context.Background()

	t.Run("health is always up", func(t *testing.T) {
		h := WebhookHandlers(ctx, testIngress(t, 8))
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ready reflects the dependency probe", func(t *testing.T) {
		in := testIngress(t, 8)
		in.Ready = func(ctx context.Context) error { return fmt.Errorf("redis down") }
		h := WebhookHandlers(ctx, in)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/ready", nil)
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		in.Ready = nil
		h = WebhookHandlers(ctx, in)
		w = httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
