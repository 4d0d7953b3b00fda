package webhook

import "time"

/* Delivery represents one webhook transmission as received on the wire
 * Uses value semantics as it represents data, not behavior
 * Immutable after creation; discarded once the event is enqueued or rejected
 */
type Delivery struct {
	ID         string // X-GitHub-Delivery, the replay-detection key
	EventType  string // X-GitHub-Event
	Body       []byte
	ReceivedAt time.Time
}

// GitHub header keys that drive webhook validation.
const (
	SignatureHeader = "X-Hub-Signature-256"
	EventHeader     = "X-GitHub-Event"
	DeliveryHeader  = "X-GitHub-Delivery"
)
