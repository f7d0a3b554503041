package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestTicketService_CreateDefaults(t *testing.T) {
	f := newFixture(t, config.CommentLabelProfile)

	ticket := f.createTicket(t)

	assert.NotZero(t, ticket.ID)
	assert.Equal(t, "#000001", ticket.TicketNumber)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, domain.Unassigned, ticket.AssignedTo)
	assert.Nil(t, ticket.SubmittedBy)
	assert.Nil(t, ticket.Deadline)
	assert.Zero(t, ticket.CommentsCount)
	assert.Zero(t, ticket.FilesCount)
}

func TestTicketService_CreateRecordsSubmitter(t *testing.T) {
	f := newFixture(t, config.CommentLabelProfile)
	deadline := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	input := validTicketInput()
	input.Priority = "critical"
	input.AssignedTo = "Sergey Volkov"
	input.Deadline = &deadline

	ticket, err := f.tickets.Create(context.Background(), input, userCaller())
	require.NoError(t, err)

	require.NotNil(t, ticket.SubmittedBy)
	assert.Equal(t, int64(2), *ticket.SubmittedBy)
	assert.Equal(t, domain.TicketPriorityCritical, ticket.Priority)
	assert.Equal(t, "Sergey Volkov", ticket.AssignedTo)
	require.NotNil(t, ticket.Deadline)
	assert.True(t, deadline.Equal(*ticket.Deadline))
}

func TestTicketService_CreateValidation(t *testing.T) {
	f := newFixture(t, config.CommentLabelProfile)

	cases := map[string]func(*service.TicketCreateInput){
		"missing title":       func(in *service.TicketCreateInput) { in.Title = "  " },
		"missing description": func(in *service.TicketCreateInput) { in.Description = "" },
		"missing author":      func(in *service.TicketCreateInput) { in.AuthorName = "" },
		"missing email":       func(in *service.TicketCreateInput) { in.AuthorEmail = "" },
		"malformed email":     func(in *service.TicketCreateInput) { in.AuthorEmail = "ivan-at-example" },
		"unknown department":  func(in *service.TicketCreateInput) { in.Department = "Accounting" },
		"unknown priority":    func(in *service.TicketCreateInput) { in.Priority = "urgent" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := validTicketInput()
			mutate(&input)
			_, err := f.tickets.Create(context.Background(), input, domain.Anonymous())
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)
		})
	}

	tickets, err := f.tickets.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestTicketService_ConcurrentCreateUniqueNumbers(t *testing.T) {
	f := newFixture(t, config.CommentLabelProfile)
	const n = 50

	var wg sync.WaitGroup
	numbers := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := f.tickets.Create(context.Background(), validTicketInput(), domain.Anonymous())
			if assert.NoError(t, err) {
				numbers <- ticket.TicketNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for number := range numbers {
		assert.False(t, seen[number], "duplicate ticket number %s", number)
		seen[number] = true
	}
	assert.Len(t, seen, n)
}

func TestTicketService_ListNewestFirstWithCounts(t *testing.T) {
	f := newFixture(t, config.CommentLabelProfile)
	ctx := context.Background()

	first := f.createTicket(t)
	second := f.createTicket(t)

	_, err := f.comments.Add(ctx, first.ID, "on it", adminCaller())
	require.NoError(t, err)
	f.store.AddFile(domain.File{TicketID: first.ID, Filename: "a.png", OriginalName: "screen.png", Path: "/uploads/a.png", Size: 10, MimeType: "image/png"})

	tickets, err := f.tickets.List(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, second.ID, tickets[0].ID)
	assert.Equal(t, first.ID, tickets[1].ID)
	assert.Equal(t, 1, tickets[1].CommentsCount)
	assert.Equal(t, 1, tickets[1].FilesCount)
}

func TestTicketService_GetByIDNotFound(t *testing.T) {
	f := newFixture(t, config.CommentLabelProfile)

	_, err := f.tickets.GetByID(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestTicketService_UpdateRequiresAdmin(t *testing.T) {
	f := newFixture(t, config.CommentLabelProfile)
	ctx := context.Background()
	ticket := f.createTicket(t)

	for name, caller := range map[string]domain.Caller{"anonymous": domain.Anonymous(), "user": userCaller()} {
		t.Run(name, func(t *testing.T) {
			_, err := f.tickets.Update(ctx, ticket.ID, service.TicketPatch{Status: strPtr("closed")}, caller)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

			stored, err := f.tickets.GetByID(ctx, ticket.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.TicketStatusOpen, stored.Status)
		})
	}
}

func TestTicketService_UpdateRejectsInvalidValues(t *testing.T) {
	f := newFixture(t, config.CommentLabelProfile)
	ctx := context.Background()
	ticket := f.createTicket(t)

	_, err := f.tickets.Update(ctx, ticket.ID, service.TicketPatch{
		Status:     strPtr("archived"),
		AssignedTo: strPtr("Petr Sidorov"),
	}, adminCaller())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.tickets.Update(ctx, ticket.ID, service.TicketPatch{Priority: strPtr("urgent")}, adminCaller())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	stored, err := f.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Equal(t, domain.Unassigned, stored.AssignedTo)
	assert.Equal(t, domain.TicketPriorityMedium, stored.Priority)
}

func TestTicketService_UpdateMissingTicket(t *testing.T) {
	f := newFixture(t, config.CommentLabelProfile)

	_, err := f.tickets.Update(context.Background(), 99, service.TicketPatch{Status: strPtr("closed")}, adminCaller())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestTicketService_UpdatePartialPatch(t *testing.T) {
	f := newFixture(t, config.CommentLabelProfile)
	ctx := context.Background()
	ticket := f.createTicket(t)
	deadline := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	updated, err := f.tickets.Update(ctx, ticket.ID, service.TicketPatch{
		Status:      strPtr("in_progress"),
		Priority:    strPtr("high"),
		AssignedTo:  strPtr("Petr Sidorov"),
		DeadlineSet: true,
		Deadline:    &deadline,
	}, adminCaller())
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, domain.TicketPriorityHigh, updated.Priority)
	assert.Equal(t, "Petr Sidorov", updated.AssignedTo)
	assert.Equal(t, ticket.TicketNumber, updated.TicketNumber)

	// status only: other fields keep their values
	updated, err = f.tickets.Update(ctx, ticket.ID, service.TicketPatch{Status: strPtr("closed")}, adminCaller())
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)
	assert.Equal(t, domain.TicketPriorityHigh, updated.Priority)
	require.NotNil(t, updated.Deadline)

	// closed tickets can be reopened and the deadline cleared
	updated, err = f.tickets.Update(ctx, ticket.ID, service.TicketPatch{
		Status:      strPtr("open"),
		DeadlineSet: true,
		AssignedTo:  strPtr(" "),
	}, adminCaller())
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, updated.Status)
	assert.Nil(t, updated.Deadline)
	assert.Equal(t, domain.Unassigned, updated.AssignedTo)

	stored, err := f.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.Status, stored.Status)
	assert.Nil(t, stored.Deadline)
}

// interleavingTickets runs a competing update the first time ApplyUpdate is
// reached, after the outer call has validated its patch.
type interleavingTickets struct {
	repository.TicketRepository
	fired    atomic.Bool
	interrupt func()
}

func (r *interleavingTickets) ApplyUpdate(ctx context.Context, id int64, update domain.TicketUpdate) (*domain.Ticket, *domain.Ticket, error) {
	if r.fired.CompareAndSwap(false, true) && r.interrupt != nil {
		r.interrupt()
	}
	return r.TicketRepository.ApplyUpdate(ctx, id, update)
}

func TestTicketService_UpdateKeepsConcurrentChangeToOtherField(t *testing.T) {
	ctx := context.Background()
	var competing *interleavingTickets
	f := newFixtureWithTickets(t, config.CommentLabelProfile, func(repo repository.TicketRepository) repository.TicketRepository {
		competing = &interleavingTickets{TicketRepository: repo}
		return competing
	})
	ticket := f.createTicket(t)
	competing.interrupt = func() {
		_, err := f.tickets.Update(ctx, ticket.ID, service.TicketPatch{Status: strPtr("resolved")}, adminCaller())
		require.NoError(t, err)
	}

	updated, err := f.tickets.Update(ctx, ticket.ID, service.TicketPatch{Priority: strPtr("high")}, adminCaller())
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	assert.Equal(t, domain.TicketPriorityHigh, updated.Priority)

	stored, err := f.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, stored.Status)
	assert.Equal(t, domain.TicketPriorityHigh, stored.Priority)

	// each change is recorded once, against the value it replaced
	history, err := f.tickets.ListHistory(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.ChangeTypeStatus, history[1].ChangeType)
	assert.Equal(t, domain.TicketStatusOpen, history[1].OldValue["status"])
	assert.Equal(t, domain.ChangeTypePriority, history[2].ChangeType)
	assert.Equal(t, domain.TicketPriorityMedium, history[2].OldValue["priority"])
}

func TestTicketService_ConcurrentUpdatesToDifferentFields(t *testing.T) {
	f := newFixture(t, config.CommentLabelProfile)
	ctx := context.Background()
	ticket := f.createTicket(t)

	patches := []service.TicketPatch{
		{Status: strPtr("in_progress")},
		{Priority: strPtr("critical")},
		{AssignedTo: strPtr("Petr Sidorov")},
	}
	var wg sync.WaitGroup
	for round := 0; round < 20; round++ {
		for _, patch := range patches {
			wg.Add(1)
			go func(patch service.TicketPatch) {
				defer wg.Done()
				_, err := f.tickets.Update(ctx, ticket.ID, patch, adminCaller())
				assert.NoError(t, err)
			}(patch)
		}
	}
	wg.Wait()

	stored, err := f.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
	assert.Equal(t, domain.TicketPriorityCritical, stored.Priority)
	assert.Equal(t, "Petr Sidorov", stored.AssignedTo)

	// only the first write of each value is a change
	history, err := f.tickets.ListHistory(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestTicketService_HistoryTrail(t *testing.T) {
	f := newFixture(t, config.CommentLabelProfile)
	ctx := context.Background()
	ticket := f.createTicket(t)

	_, err := f.tickets.Update(ctx, ticket.ID, service.TicketPatch{Status: strPtr("resolved"), Priority: strPtr("low")}, adminCaller())
	require.NoError(t, err)
	_, err = f.comments.Add(ctx, ticket.ID, "Fixed the router", adminCaller())
	require.NoError(t, err)

	history, err := f.tickets.ListHistory(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)

	assert.Equal(t, domain.ChangeTypeCreated, history[0].ChangeType)
	assert.Nil(t, history[0].ChangedBy)
	assert.Equal(t, domain.ChangeTypeStatus, history[1].ChangeType)
	assert.Equal(t, domain.TicketStatusOpen, history[1].OldValue["status"])
	assert.Equal(t, domain.TicketStatusResolved, history[1].NewValue["status"])
	require.NotNil(t, history[1].ChangedBy)
	assert.Equal(t, int64(1), *history[1].ChangedBy)
	assert.Equal(t, domain.ChangeTypePriority, history[2].ChangeType)
	assert.Equal(t, domain.ChangeTypeCommentAdded, history[3].ChangeType)

	_, err = f.tickets.ListHistory(ctx, 999)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestTicketService_NoopUpdateWritesNothing(t *testing.T) {
	f := newFixture(t, config.CommentLabelProfile)
	ctx := context.Background()
	ticket := f.createTicket(t)

	updated, err := f.tickets.Update(ctx, ticket.ID, service.TicketPatch{Status: strPtr("open")}, adminCaller())
	require.NoError(t, err)
	assert.Equal(t, ticket.UpdatedAt, updated.UpdatedAt)

	history, err := f.tickets.ListHistory(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestTicketService_ListFiles(t *testing.T) {
	f := newFixture(t, config.CommentLabelProfile)
	ctx := context.Background()
	ticket := f.createTicket(t)
	f.store.AddFile(domain.File{TicketID: ticket.ID, Filename: "f1", OriginalName: "log.txt", Path: "/uploads/f1", Size: 42, MimeType: "text/plain"})

	files, err := f.tickets.ListFiles(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "log.txt", files[0].OriginalName)

	_, err = f.tickets.ListFiles(ctx, 999)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
