package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketUpdated EventType = "ticket_updated"
	EventCommentAdded  EventType = "comment_added"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Kind   string `json:"kind"`
	UserID *int64 `json:"user_id,omitempty"`
}

// ActorFromCaller converts a resolved caller into event actor metadata.
func ActorFromCaller(caller domain.Caller) Actor {
	return Actor{Kind: caller.Kind.String(), UserID: caller.UserIDPtr()}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Department   domain.Department     `json:"department"`
	Priority     domain.TicketPriority `json:"priority"`
	Status       domain.TicketStatus   `json:"status"`
	Title        string                `json:"title"`
}

// FieldChange holds the before and after value of one ticket field.
type FieldChange struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// TicketUpdatedPayload lists the fields an update actually changed.
type TicketUpdatedPayload struct {
	Changes []FieldChange `json:"changes"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   int64  `json:"comment_id"`
	AuthorName  string `json:"author_name"`
	BodyPreview string `json:"body_preview"`
}
