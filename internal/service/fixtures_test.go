package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/testutil"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

type fixture struct {
	store    *testutil.Store
	tickets  *service.TicketService
	comments *service.CommentService
}

func newFixture(t *testing.T, labelMode config.CommentLabelMode) *fixture {
	t.Helper()
	return newFixtureWithTickets(t, labelMode, nil)
}

// newFixtureWithTickets lets a test wrap the ticket repository the ticket
// service sees; wrap may be nil.
func newFixtureWithTickets(t *testing.T, labelMode config.CommentLabelMode, wrap func(repository.TicketRepository) repository.TicketRepository) *fixture {
	t.Helper()
	store := testutil.NewStore()
	ticketRepo := store.Tickets()
	if wrap != nil {
		ticketRepo = wrap(ticketRepo)
	}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	worker.StartHistoryWorker(service.NewHistoryRecorder(dispatcher, store.History(), zap.NewNop()))

	return &fixture{
		store: store,
		tickets: service.NewTicketService(service.TicketDependencies{
			TicketRepo:    ticketRepo,
			TicketNumbers: store.TicketNumbers(),
			FileRepo:      store.Files(),
			HistoryRepo:   store.History(),
			Dispatcher:    dispatcher,
		}),
		comments: service.NewCommentService(service.CommentDependencies{
			CommentRepo: store.Comments(),
			TicketRepo:  store.Tickets(),
			Dispatcher:  dispatcher,
			LabelMode:   labelMode,
		}),
	}
}

func validTicketInput() service.TicketCreateInput {
	return service.TicketCreateInput{
		Title:       "Internet connection problem",
		Description: "No internet in office 301 since 10am",
		Department:  string(domain.DepartmentPolarStar),
		AuthorName:  "Ivan Ivanov",
		AuthorEmail: "ivan@example.com",
	}
}

func (f *fixture) createTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Create(context.Background(), validTicketInput(), domain.Anonymous())
	require.NoError(t, err)
	return ticket
}

func adminCaller() domain.Caller {
	return domain.Caller{Kind: domain.CallerAdmin, UserID: 1, Name: "Chief Administrator", Email: "admin@example.com"}
}

func userCaller() domain.Caller {
	return domain.Caller{Kind: domain.CallerUser, UserID: 2, Name: "Regular User", Email: "user@example.com"}
}

func strPtr(s string) *string { return &s }
