package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

/* Inbound events are a tagged union: the X-GitHub-Event header selects the
 * payload shape, and parsers is the explicit dispatch table. Event types
 * without a parser are acknowledged and dropped; GitHub retries each
 * delivery independently, so dropping here is safe.
 */

// ErrUnsupportedEvent indicates an event type this service does not consume.
var ErrUnsupportedEvent = errors.New("unsupported event type")

// ActionCompleted is the only workflow_run action that carries artifacts.
const ActionCompleted = "completed"

// Event is the parsed form of a delivery payload.
type Event interface {
	// Delivery returns the delivery ID the event was parsed from
	Delivery() string
}

// PingEvent is GitHub's endpoint-validation handshake.
type PingEvent struct {
	DeliveryID string
	Zen        string
}

func (e PingEvent) Delivery() string { return e.DeliveryID }

// WorkflowRunEvent describes a CI workflow completion for one commit.
type WorkflowRunEvent struct {
	DeliveryID   string
	Action       string
	RunID        int64
	HeadSHA      string
	RunStatus    string
	RunCreatedAt time.Time
	RepositoryID int64
	Owner        string
	Repository   string
	ReceivedAt   time.Time
}

func (e WorkflowRunEvent) Delivery() string { return e.DeliveryID }

// FullName returns the owner/repo form used as the policy lookup key.
func (e WorkflowRunEvent) FullName() string {
	return e.Owner + "/" + e.Repository
}

type parserFunc func(d Delivery) (Event, error)

// parsers is the event dispatch table; extend it to consume new event types.
var parsers = map[string]parserFunc{
	"ping":         parsePing,
	"workflow_run": parseWorkflowRun,
}

// Parse converts a validated delivery into a typed event.
// Returns ErrUnsupportedEvent for event types outside the dispatch table.
func Parse(d Delivery) (Event, error) {
	parse, ok := parsers[d.EventType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, d.EventType)
	}
	return parse(d)
}

// pingPayload models just the fields we rely on from a GitHub ping hook.
type pingPayload struct {
	Zen string `json:"zen"`
}

func parsePing(d Delivery) (Event, error) {
	var payload pingPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling ping payload: %w", err)
	}
	return PingEvent{DeliveryID: d.ID, Zen: payload.Zen}, nil
}

// workflowRunPayload mirrors the subset of the workflow_run hook we consume.
type workflowRunPayload struct {
	Action      string `json:"action"`
	WorkflowRun struct {
		ID        int64     `json:"id"`
		HeadSHA   string    `json:"head_sha"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"workflow_run"`
	Repository struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		FullName string `json:"full_name"`
		Owner    struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

func parseWorkflowRun(d Delivery) (Event, error) {
	var payload workflowRunPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling workflow_run payload: %w", err)
	}

	if payload.Action == "" {
		return nil, fmt.Errorf("workflow_run payload missing action")
	}
	if payload.WorkflowRun.HeadSHA == "" {
		return nil, fmt.Errorf("workflow_run payload missing head_sha")
	}
	if payload.Repository.Owner.Login == "" || payload.Repository.Name == "" {
		return nil, fmt.Errorf("workflow_run payload missing repository identity")
	}

	return WorkflowRunEvent{
		DeliveryID:   d.ID,
		Action:       payload.Action,
		RunID:        payload.WorkflowRun.ID,
		HeadSHA:      payload.WorkflowRun.HeadSHA,
		RunStatus:    payload.WorkflowRun.Status,
		RunCreatedAt: payload.WorkflowRun.CreatedAt,
		RepositoryID: payload.Repository.ID,
		Owner:        payload.Repository.Owner.Login,
		Repository:   payload.Repository.Name,
		ReceivedAt:   d.ReceivedAt,
	}, nil
}
