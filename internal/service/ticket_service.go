package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	numbers    repository.TicketNumberGenerator
	files      repository.FileRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	TicketNumbers repository.TicketNumberGenerator
	FileRepo      repository.FileRepository
	HistoryRepo   repository.TicketHistoryRepository
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string `validate:"notblank"`
	Description string `validate:"notblank"`
	Department  string `validate:"notblank"`
	AuthorName  string `validate:"notblank"`
	AuthorEmail string `validate:"notblank,email"`
	Priority    string
	AssignedTo  string
	Deadline    *time.Time
}

// TicketPatch lists the administrator-editable fields. Nil pointers leave the
// field untouched; DeadlineSet with a nil Deadline clears the deadline.
type TicketPatch struct {
	Status      *string
	AssignedTo  *string
	Priority    *string
	DeadlineSet bool
	Deadline    *time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		numbers:    deps.TicketNumbers,
		files:      deps.FileRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
	}
}

// Create validates and stores a new ticket. Anyone may submit; the caller's
// user id is recorded when authenticated.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput, caller domain.Caller) (*domain.Ticket, error) {
	if err := auth.Authorize(caller, auth.ActionCreateTicket); err != nil {
		return nil, err
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Department = strings.TrimSpace(input.Department)
	input.AuthorName = strings.TrimSpace(input.AuthorName)
	input.AuthorEmail = strings.TrimSpace(input.AuthorEmail)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	department := domain.Department(input.Department)
	if !department.Valid() {
		return nil, apperrors.NewValidationError("unknown department", map[string]any{
			"department": input.Department,
			"allowed":    domain.Departments,
		})
	}

	priority := domain.TicketPriorityMedium
	if p := strings.TrimSpace(input.Priority); p != "" {
		priority = domain.TicketPriority(p)
		if !priority.Valid() {
			return nil, invalidPriority(p)
		}
	}

	number, err := s.numbers.NextTicketNumber(ctx)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		TicketNumber: number,
		Title:        input.Title,
		Description:  input.Description,
		Department:   department,
		AuthorName:   input.AuthorName,
		AuthorEmail:  input.AuthorEmail,
		SubmittedBy:  caller.UserIDPtr(),
		AssignedTo:   assigneeOrDefault(input.AssignedTo),
		Priority:     priority,
		Deadline:     input.Deadline,
		Status:       domain.TicketStatusOpen,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("ticket number already taken", map[string]any{"ticketNumber": number})
		}
		return nil, err
	}

	s.metrics.TicketCreated()
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.ActorFromCaller(caller),
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			Department:   ticket.Department,
			Priority:     ticket.Priority,
			Status:       ticket.Status,
			Title:        ticket.Title,
		},
	})
	return ticket, nil
}

// List returns every ticket, newest first.
func (s *TicketService) List(ctx context.Context) ([]domain.Ticket, error) {
	return s.tickets.List(ctx)
}

// GetByID fetches a single ticket.
func (s *TicketService) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ticketNotFound(id)
		}
		return nil, err
	}
	return ticket, nil
}

// Update applies patch on behalf of an administrator. Every field is
// validated before anything is written, so a rejected patch leaves the
// ticket unchanged. Only the fields present in patch are written, against
// the row as it stands when the update runs.
func (s *TicketService) Update(ctx context.Context, id int64, patch TicketPatch, caller domain.Caller) (*domain.Ticket, error) {
	if err := auth.Authorize(caller, auth.ActionUpdateTicket); err != nil {
		return nil, err
	}

	update, err := patch.toUpdate()
	if err != nil {
		return nil, err
	}

	before, after, err := s.tickets.ApplyUpdate(ctx, id, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ticketNotFound(id)
		}
		return nil, err
	}

	changes := diffTicket(before, after)
	if len(changes) == 0 {
		return after, nil
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: after.ID,
		Actor:    events.ActorFromCaller(caller),
		Payload:  events.TicketUpdatedPayload{Changes: changes},
	})
	return after, nil
}

func (p TicketPatch) toUpdate() (domain.TicketUpdate, error) {
	var update domain.TicketUpdate
	if p.Status != nil {
		status := domain.TicketStatus(strings.TrimSpace(*p.Status))
		if !status.Valid() {
			return update, apperrors.NewValidationError("invalid status", map[string]any{
				"status": *p.Status,
				"allowed": []domain.TicketStatus{
					domain.TicketStatusOpen,
					domain.TicketStatusInProgress,
					domain.TicketStatusResolved,
					domain.TicketStatusClosed,
				},
			})
		}
		update.Status = &status
	}
	if p.Priority != nil {
		priority := domain.TicketPriority(strings.TrimSpace(*p.Priority))
		if !priority.Valid() {
			return update, invalidPriority(*p.Priority)
		}
		update.Priority = &priority
	}
	if p.AssignedTo != nil {
		assignee := assigneeOrDefault(*p.AssignedTo)
		update.AssignedTo = &assignee
	}
	if p.DeadlineSet {
		update.DeadlineSet = true
		update.Deadline = p.Deadline
	}
	return update, nil
}

// ListHistory returns the audit trail of a ticket, oldest entry first.
func (s *TicketService) ListHistory(ctx context.Context, id int64) ([]domain.TicketHistory, error) {
	if err := s.ensureTicket(ctx, id); err != nil {
		return nil, err
	}
	return s.history.ListByTicket(ctx, id)
}

// ListFiles returns attachment metadata for a ticket.
func (s *TicketService) ListFiles(ctx context.Context, id int64) ([]domain.File, error) {
	if err := s.ensureTicket(ctx, id); err != nil {
		return nil, err
	}
	return s.files.ListByTicket(ctx, id)
}

func (s *TicketService) ensureTicket(ctx context.Context, id int64) error {
	exists, err := s.tickets.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return ticketNotFound(id)
	}
	return nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func diffTicket(before, after *domain.Ticket) []events.FieldChange {
	var changes []events.FieldChange
	if before.Status != after.Status {
		changes = append(changes, events.FieldChange{Field: "status", Old: before.Status, New: after.Status})
	}
	if before.AssignedTo != after.AssignedTo {
		changes = append(changes, events.FieldChange{Field: "assignedTo", Old: before.AssignedTo, New: after.AssignedTo})
	}
	if before.Priority != after.Priority {
		changes = append(changes, events.FieldChange{Field: "priority", Old: before.Priority, New: after.Priority})
	}
	if !sameDeadline(before.Deadline, after.Deadline) {
		changes = append(changes, events.FieldChange{Field: "deadline", Old: before.Deadline, New: after.Deadline})
	}
	return changes
}

func sameDeadline(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func assigneeOrDefault(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.Unassigned
	}
	return value
}

func invalidPriority(value string) error {
	return apperrors.NewValidationError("invalid priority", map[string]any{
		"priority": value,
		"allowed": []domain.TicketPriority{
			domain.TicketPriorityLow,
			domain.TicketPriorityMedium,
			domain.TicketPriorityHigh,
			domain.TicketPriorityCritical,
		},
	})
}

func ticketNotFound(id int64) error {
	return apperrors.NewNotFound("ticket", map[string]any{"id": id})
}
