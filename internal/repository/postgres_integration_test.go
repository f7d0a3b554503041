package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// openTestPool connects to HELPDESK_TEST_POSTGRES_DSN, applies migrations
// and empties every table. Tests are skipped when the variable is unset.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("HELPDESK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HELPDESK_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, zap.NewNop()))
	_, err = pool.Exec(ctx, `TRUNCATE ticket_history, comments, files, tickets, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

func TestPostgresUsers(t *testing.T) {
	pool := openTestPool(t)
	users := repository.NewUserRepository(pool)
	ctx := context.Background()

	user := &domain.User{Name: "Ivan", Email: "ivan@example.com", PasswordHash: "hash"}
	require.NoError(t, users.Create(ctx, user))
	assert.NotZero(t, user.ID)

	err := users.Create(ctx, &domain.User{Name: "Other", Email: "ivan@example.com", PasswordHash: "hash"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	byID, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, byID.PasswordHash)
	assert.False(t, byID.IsAdmin)

	require.NoError(t, users.SetAdmin(ctx, "ivan@example.com", true))
	byEmail, err := users.GetByEmail(ctx, "ivan@example.com")
	require.NoError(t, err)
	assert.True(t, byEmail.IsAdmin)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	assert.ErrorIs(t, users.SetAdmin(ctx, "ghost@example.com", true), pgx.ErrNoRows)
	_, err = users.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestPostgresTicketsCommentsHistory(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	users := repository.NewUserRepository(pool)
	tickets := repository.NewTicketRepository(pool)
	comments := repository.NewCommentRepository(pool)
	files := repository.NewFileRepository(pool)
	history := repository.NewTicketHistoryRepository(pool)
	numbers := repository.NewTicketNumberGenerator(pool)

	author := &domain.User{Name: "Admin", Email: "admin@example.com", PasswordHash: "hash", IsAdmin: true}
	require.NoError(t, users.Create(ctx, author))

	number, err := numbers.NextTicketNumber(ctx)
	require.NoError(t, err)

	ticket := &domain.Ticket{
		TicketNumber: number,
		Title:        "Printer",
		Description:  "Out of toner",
		Department:   domain.DepartmentPerspective,
		AuthorName:   "Maria",
		AuthorEmail:  "maria@example.com",
		AssignedTo:   domain.Unassigned,
		Priority:     domain.TicketPriorityMedium,
		Status:       domain.TicketStatusOpen,
	}
	require.NoError(t, tickets.Create(ctx, ticket))

	dup := *ticket
	assert.ErrorIs(t, tickets.Create(ctx, &dup), repository.ErrDuplicate)

	deadline := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Microsecond)
	closed := domain.TicketStatusClosed
	before, after, err := tickets.ApplyUpdate(ctx, ticket.ID, domain.TicketUpdate{
		Status:      &closed,
		DeadlineSet: true,
		Deadline:    &deadline,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, before.Status)
	assert.Equal(t, domain.TicketStatusClosed, after.Status)

	_, _, err = tickets.ApplyUpdate(ctx, 9999, domain.TicketUpdate{Status: &closed})
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	for _, body := range []string{"first", "second"} {
		require.NoError(t, comments.Create(ctx, &domain.Comment{TicketID: ticket.ID, AuthorID: author.ID, AuthorName: "Administrator", Content: body}))
	}
	_, err = pool.Exec(ctx, `INSERT INTO files (ticket_id, filename, original_name, path, size, mime_type) VALUES ($1,'f','log.txt','/u/f',10,'text/plain')`, ticket.ID)
	require.NoError(t, err)

	stored, err := tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, number, stored.TicketNumber)
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)
	require.NotNil(t, stored.Deadline)
	assert.True(t, deadline.Equal(*stored.Deadline))
	assert.Equal(t, 2, stored.CommentsCount)
	assert.Equal(t, 1, stored.FilesCount)

	thread, err := comments.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "first", thread[0].Content)
	assert.False(t, thread[1].CreatedAt.Before(thread[0].CreatedAt))

	attachments, err := files.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, attachments, 1)

	require.NoError(t, history.Create(ctx, &domain.TicketHistory{
		TicketID:   ticket.ID,
		ChangedBy:  &author.ID,
		ChangeType: domain.ChangeTypeStatus,
		OldValue:   map[string]any{"status": "open"},
		NewValue:   map[string]any{"status": "closed"},
	}))
	entries, err := history.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "closed", entries[0].NewValue["status"])

	exists, err := tickets.Exists(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	list, err := tickets.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostgresTicketNumbersUnderConcurrency(t *testing.T) {
	pool := openTestPool(t)
	numbers := repository.NewTicketNumberGenerator(pool)

	const n = 40
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := numbers.NextTicketNumber(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seen[number] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestPostgresConcurrentUpdatesKeepEveryField(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	tickets := repository.NewTicketRepository(pool)

	ticket := &domain.Ticket{
		TicketNumber: "#000001",
		Title:        "Printer jam",
		Description:  "Second floor printer",
		Department:   domain.DepartmentPerspective,
		AuthorName:   "Olga",
		AuthorEmail:  "olga@example.com",
		AssignedTo:   domain.Unassigned,
		Priority:     domain.TicketPriorityMedium,
		Status:       domain.TicketStatusOpen,
	}
	require.NoError(t, tickets.Create(ctx, ticket))

	resolved := domain.TicketStatusResolved
	high := domain.TicketPriorityHigh
	assignee := "Petr Sidorov"
	updates := []domain.TicketUpdate{
		{Status: &resolved},
		{Priority: &high},
		{AssignedTo: &assignee},
	}

	var wg sync.WaitGroup
	for round := 0; round < 10; round++ {
		for _, update := range updates {
			wg.Add(1)
			go func(update domain.TicketUpdate) {
				defer wg.Done()
				_, _, err := tickets.ApplyUpdate(ctx, ticket.ID, update)
				assert.NoError(t, err)
			}(update)
		}
	}
	wg.Wait()

	stored, err := tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, resolved, stored.Status)
	assert.Equal(t, high, stored.Priority)
	assert.Equal(t, assignee, stored.AssignedTo)
}
