package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/evalforge/checkgate/metrics"
	"github.com/evalforge/checkgate/queue"
	"github.com/evalforge/checkgate/webhook"
)

/* HTTP layer DTOs for the webhook endpoint
 * Separate from domain entities to avoid leaking internal structure
 */

// deliveryResponse represents the API response for a webhook delivery
type deliveryResponse struct {
	DeliveryID string `json:"delivery_id"`
	Status     string `json:"status"`
}

const (
	statusAccepted = "accepted"
	statusIgnored  = "ignored"
)

// maxBodySize caps how much of a delivery body is read.
const maxBodySize = 1 << 20

// postWebhook handles POST /v1/webhooks/github
func postWebhook(in Ingress) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !in.Limiter.Allow(clientKey(r)) {
			in.Counters.Inc(metrics.OutcomeRateLimited)
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			in.Counters.Inc(metrics.OutcomeMalformed)
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		// Authenticate before trusting anything else about the request
		if !in.Verifier.Verify(body, r.Header.Get(webhook.SignatureHeader)) {
			in.Counters.Inc(metrics.OutcomeInvalidSignature)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		delivery := webhook.Delivery{
			ID:         r.Header.Get(webhook.DeliveryHeader),
			EventType:  r.Header.Get(webhook.EventHeader),
			Body:       body,
			ReceivedAt: in.now(),
		}
		if delivery.ID == "" {
			in.Counters.Inc(metrics.OutcomeMalformed)
			http.Error(w, "missing delivery id", http.StatusBadRequest)
			return
		}

		firstSeen, err := in.Guard.Accept(r.Context(), delivery.ID)
		if err != nil {
			http.Error(w, "replay check unavailable", http.StatusInternalServerError)
			return
		}
		if !firstSeen {
			// A redelivery gets the same answer as the original so the
			// sender has no reason to keep retrying it
			in.Counters.Inc(metrics.OutcomeDuplicate)
			respond(w, deliveryResponse{DeliveryID: delivery.ID, Status: statusAccepted})
			return
		}

		ev, err := webhook.Parse(delivery)
		if err != nil {
			if errors.Is(err, webhook.ErrUnsupportedEvent) {
				in.Counters.Inc(metrics.OutcomeUnsupported)
				respond(w, deliveryResponse{DeliveryID: delivery.ID, Status: statusIgnored})
				return
			}
			in.Counters.Inc(metrics.OutcomeMalformed)
			http.Error(w, "malformed payload", http.StatusBadRequest)
			return
		}

		runEvent, ok := ev.(webhook.WorkflowRunEvent)
		if !ok || runEvent.Action != webhook.ActionCompleted {
			// Pings and non-completed workflow_run actions carry nothing
			// to evaluate
			in.Counters.Inc(metrics.OutcomeUnsupported)
			respond(w, deliveryResponse{DeliveryID: delivery.ID, Status: statusIgnored})
			return
		}

		if err := in.Queue.Enqueue(runEvent); err != nil {
			// The delivery was not processed: release its ID so the 503
			// tells the sender to retry and the retry is not then swallowed
			// as a duplicate. Best effort; a failed release just restores
			// the lost-delivery behavior the rollback exists to avoid.
			_ = in.Guard.Forget(r.Context(), delivery.ID)

			if errors.Is(err, queue.ErrFull) {
				in.Counters.Inc(metrics.OutcomeOverflow)
				http.Error(w, "queue full, retry later", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		in.Counters.Inc(metrics.OutcomeAccepted)
		respond(w, deliveryResponse{DeliveryID: delivery.ID, Status: statusAccepted})
	})
}

func respond(w http.ResponseWriter, response deliveryResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// clientKey buckets rate limiting by caller address.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
