// Package testutil provides in-memory repository implementations and fixtures
// shared by service and HTTP tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Store keeps every table in memory behind one mutex. Not-found lookups
// return pgx.ErrNoRows and unique violations repository.ErrDuplicate, like
// the Postgres repositories.
type Store struct {
	mu sync.Mutex

	clock    time.Time
	nextID   int64
	sequence atomic.Int64

	users    map[int64]domain.User
	tickets  map[int64]domain.Ticket
	comments []domain.Comment
	files    []domain.File
	history  []domain.TicketHistory
}

// NewStore returns an empty store whose clock starts at a fixed instant.
func NewStore() *Store {
	return &Store{
		clock:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		users:   map[int64]domain.User{},
		tickets: map[int64]domain.Ticket{},
	}
}

// tick advances the clock by one millisecond; callers hold s.mu.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Users returns a UserRepository view.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Tickets returns a TicketRepository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Comments returns a CommentRepository view.
func (s *Store) Comments() repository.CommentRepository { return commentRepo{s} }

// Files returns a FileRepository view.
func (s *Store) Files() repository.FileRepository { return fileRepo{s} }

// History returns a TicketHistoryRepository view.
func (s *Store) History() repository.TicketHistoryRepository { return historyRepo{s} }

// TicketNumbers returns a generator backed by an atomic counter.
func (s *Store) TicketNumbers() repository.TicketNumberGenerator { return numberGen{s} }

// AddFile attaches file metadata to a ticket.
func (s *Store) AddFile(file domain.File) domain.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	file.ID = s.id()
	file.CreatedAt = s.tick()
	s.files = append(s.files, file)
	return file
}

// DeleteUser removes a user, simulating an account deleted after token issue.
func (s *Store) DeleteUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = r.s.id()
	user.CreatedAt = r.s.tick()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	user.PasswordHash = ""
	return &user, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r userRepo) SetAdmin(_ context.Context, email string, isAdmin bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, user := range r.s.users {
		if user.Email == email {
			user.IsAdmin = isAdmin
			user.UpdatedAt = r.s.tick()
			r.s.users[id] = user
			return nil
		}
	}
	return pgx.ErrNoRows
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.tickets {
		if existing.TicketNumber == ticket.TicketNumber {
			return repository.ErrDuplicate
		}
	}
	ticket.ID = r.s.id()
	ticket.CreatedAt = r.s.tick()
	ticket.UpdatedAt = ticket.CreatedAt
	ticket.CommentsCount = 0
	ticket.FilesCount = 0
	r.s.tickets[ticket.ID] = *ticket
	return nil
}

func (r ticketRepo) ApplyUpdate(_ context.Context, id int64, update domain.TicketUpdate) (*domain.Ticket, *domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tickets[id]
	if !ok {
		return nil, nil, pgx.ErrNoRows
	}
	r.s.withCounts(&stored)
	before := stored
	if update.Apply(&stored) {
		stored.UpdatedAt = r.s.tick()
		r.s.tickets[id] = stored
	}
	after := stored
	return &before, &after, nil
}

func (r ticketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	r.s.withCounts(&ticket)
	return &ticket, nil
}

func (r ticketRepo) Exists(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.tickets[id]
	return ok, nil
}

func (r ticketRepo) List(_ context.Context) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]domain.Ticket, 0, len(r.s.tickets))
	for _, ticket := range r.s.tickets {
		r.s.withCounts(&ticket)
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (s *Store) withCounts(ticket *domain.Ticket) {
	ticket.CommentsCount = 0
	ticket.FilesCount = 0
	for _, c := range s.comments {
		if c.TicketID == ticket.ID {
			ticket.CommentsCount++
		}
	}
	for _, f := range s.files {
		if f.TicketID == ticket.ID {
			ticket.FilesCount++
		}
	}
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[comment.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	comment.ID = r.s.id()
	comment.CreatedAt = r.s.tick()
	r.s.comments = append(r.s.comments, *comment)
	return nil
}

func (r commentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []domain.Comment{}
	for _, c := range r.s.comments {
		if c.TicketID == ticketID {
			result = append(result, c)
		}
	}
	return result, nil
}

type fileRepo struct{ s *Store }

func (r fileRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []domain.File{}
	for _, f := range r.s.files {
		if f.TicketID == ticketID {
			result = append(result, f)
		}
	}
	return result, nil
}

type historyRepo struct{ s *Store }

func (r historyRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.id()
	entry.CreatedAt = r.s.tick()
	r.s.history = append(r.s.history, *entry)
	return nil
}

func (r historyRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := []domain.TicketHistory{}
	for _, h := range r.s.history {
		if h.TicketID == ticketID {
			result = append(result, h)
		}
	}
	return result, nil
}

type numberGen struct{ s *Store }

func (g numberGen) NextTicketNumber(context.Context) (string, error) {
	return repository.FormatTicketNumber(g.s.sequence.Add(1)), nil
}
