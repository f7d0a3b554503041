package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// HistoryRecorder turns domain events into ticket_history rows.
type HistoryRecorder struct {
	dispatcher events.Dispatcher
	history    repository.TicketHistoryRepository
	logger     *zap.Logger
}

// NewHistoryRecorder creates the recorder.
func NewHistoryRecorder(dispatcher events.Dispatcher, history repository.TicketHistoryRepository, logger *zap.Logger) *HistoryRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryRecorder{
		dispatcher: dispatcher,
		history:    history,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (r *HistoryRecorder) RegisterHandlers() {
	if r.dispatcher == nil {
		return
	}
	r.dispatcher.Subscribe(events.EventTicketCreated, r.handleTicketCreated)
	r.dispatcher.Subscribe(events.EventTicketUpdated, r.handleTicketUpdated)
	r.dispatcher.Subscribe(events.EventCommentAdded, r.handleCommentAdded)
}

func (r *HistoryRecorder) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		r.logger.Warn("unexpected payload", zap.String("event_type", string(event.Type)))
		return nil
	}
	r.record(ctx, &domain.TicketHistory{
		TicketID:   event.TicketID,
		ChangedBy:  event.Actor.UserID,
		ChangeType: domain.ChangeTypeCreated,
		NewValue: map[string]any{
			"ticketNumber": payload.TicketNumber,
			"department":   payload.Department,
			"priority":     payload.Priority,
			"status":       payload.Status,
		},
	})
	return nil
}

func (r *HistoryRecorder) handleTicketUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketUpdatedPayload)
	if !ok {
		r.logger.Warn("unexpected payload", zap.String("event_type", string(event.Type)))
		return nil
	}
	for _, change := range payload.Changes {
		r.record(ctx, &domain.TicketHistory{
			TicketID:   event.TicketID,
			ChangedBy:  event.Actor.UserID,
			ChangeType: changeTypeForField(change.Field),
			OldValue:   map[string]any{change.Field: change.Old},
			NewValue:   map[string]any{change.Field: change.New},
		})
	}
	return nil
}

func (r *HistoryRecorder) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CommentAddedPayload)
	if !ok {
		r.logger.Warn("unexpected payload", zap.String("event_type", string(event.Type)))
		return nil
	}
	r.record(ctx, &domain.TicketHistory{
		TicketID:   event.TicketID,
		ChangedBy:  event.Actor.UserID,
		ChangeType: domain.ChangeTypeCommentAdded,
		NewValue: map[string]any{
			"commentId":  payload.CommentID,
			"authorName": payload.AuthorName,
		},
	})
	return nil
}

func (r *HistoryRecorder) record(ctx context.Context, entry *domain.TicketHistory) {
	if err := r.history.Create(ctx, entry); err != nil {
		r.logger.Error("failed to record ticket history",
			zap.Int64("ticket_id", entry.TicketID),
			zap.String("change_type", string(entry.ChangeType)),
			zap.Error(err))
	}
}

func changeTypeForField(field string) domain.TicketChangeType {
	switch field {
	case "status":
		return domain.ChangeTypeStatus
	case "assignedTo":
		return domain.ChangeTypeAssignee
	case "priority":
		return domain.ChangeTypePriority
	default:
		return domain.ChangeTypeDeadline
	}
}
