package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Display names recorded on comments.
const (
	AdminAuthorLabel   = "Administrator"
	GenericAuthorLabel = "User"
)

const previewLength = 80

// CommentService manages ticket comment threads.
type CommentService struct {
	comments   repository.CommentRepository
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	labelMode  config.CommentLabelMode
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	CommentRepo repository.CommentRepository
	TicketRepo  repository.TicketRepository
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	LabelMode   config.CommentLabelMode
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	mode := deps.LabelMode
	if mode == "" {
		mode = config.CommentLabelProfile
	}
	return &CommentService{
		comments:   deps.CommentRepo,
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		labelMode:  mode,
	}
}

// List returns the thread of a ticket in posting order.
func (s *CommentService) List(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	if err := s.ensureTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.comments.ListByTicket(ctx, ticketID)
}

// Add posts a comment as caller. The author name is derived from the caller,
// never taken from input.
func (s *CommentService) Add(ctx context.Context, ticketID int64, content string, caller domain.Caller) (*domain.Comment, error) {
	if err := auth.Authorize(caller, auth.ActionCreateComment); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content is required", map[string]any{"content": "is required"})
	}

	if err := s.ensureTicket(ctx, ticketID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID:   ticketID,
		AuthorID:   caller.UserID,
		AuthorName: s.authorLabel(caller),
		Content:    content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.metrics.CommentAdded()
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			Type:     events.EventCommentAdded,
			TicketID: ticketID,
			Actor:    events.ActorFromCaller(caller),
			Payload: events.CommentAddedPayload{
				CommentID:   comment.ID,
				AuthorName:  comment.AuthorName,
				BodyPreview: preview(comment.Content),
			},
		})
	}
	return comment, nil
}

func (s *CommentService) authorLabel(caller domain.Caller) string {
	if caller.IsAdmin() {
		return AdminAuthorLabel
	}
	if s.labelMode == config.CommentLabelGeneric || strings.TrimSpace(caller.Name) == "" {
		return GenericAuthorLabel
	}
	return caller.Name
}

func (s *CommentService) ensureTicket(ctx context.Context, ticketID int64) error {
	exists, err := s.tickets.Exists(ctx, ticketID)
	if err != nil {
		return err
	}
	if !exists {
		return ticketNotFound(ticketID)
	}
	return nil
}

func preview(content string) string {
	r := []rune(content)
	if len(r) <= previewLength {
		return content
	}
	return string(r[:previewLength]) + "..."
}
