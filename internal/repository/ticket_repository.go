package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	ApplyUpdate(ctx context.Context, id int64, update domain.TicketUpdate) (before, after *domain.Ticket, err error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]domain.Ticket, error)
}

// TicketNumberGenerator hands out ticket numbers that are unique under
// concurrent creation.
type TicketNumberGenerator interface {
	NextTicketNumber(ctx context.Context) (string, error)
}

const ticketColumns = `
        t.id, t.ticket_number, t.title, t.description, t.department, t.author_name, t.author_email,
        t.submitted_by, t.assigned_to, t.priority, t.deadline, t.status, t.created_at, t.updated_at,
        (SELECT COUNT(*) FROM comments c WHERE c.ticket_id = t.id),
        (SELECT COUNT(*) FROM files f WHERE f.ticket_id = t.id)`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, title, description, department, author_name, author_email,
            submitted_by, assigned_to, priority, deadline, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Title,
		ticket.Description,
		ticket.Department,
		ticket.AuthorName,
		ticket.AuthorEmail,
		ticket.SubmittedBy,
		ticket.AssignedTo,
		ticket.Priority,
		ticket.Deadline,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return mapWriteError(err)
}

// ApplyUpdate locks the ticket row and applies update to the values read
// under the lock, so concurrent patches to different fields never undo each
// other. It returns the locked row and the result; when nothing changes no
// write happens. ticket_number is never written after creation.
func (r *ticketRepository) ApplyUpdate(ctx context.Context, id int64, update domain.TicketUpdate) (*domain.Ticket, *domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked int64
	if err := tx.QueryRow(ctx, `SELECT id FROM tickets WHERE id=$1 FOR UPDATE`, id).Scan(&locked); err != nil {
		return nil, nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets t WHERE t.id=$1`, ticketColumns)
	before, err := scanTicket(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, nil, err
	}

	after := *before
	if !update.Apply(&after) {
		return before, &after, tx.Commit(ctx)
	}

	const write = `
        UPDATE tickets SET assigned_to=$1, priority=$2, deadline=$3, status=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, write,
		after.AssignedTo,
		after.Priority,
		after.Deadline,
		after.Status,
		id,
	).Scan(&after.UpdatedAt); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return before, &after, nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets t WHERE t.id=$1`, ticketColumns)
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *ticketRepository) List(ctx context.Context) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets t ORDER BY t.created_at DESC, t.id DESC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Title,
		&ticket.Description,
		&ticket.Department,
		&ticket.AuthorName,
		&ticket.AuthorEmail,
		&ticket.SubmittedBy,
		&ticket.AssignedTo,
		&ticket.Priority,
		&ticket.Deadline,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.CommentsCount,
		&ticket.FilesCount,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

type sequenceTicketNumbers struct {
	pool *pgxpool.Pool
}

// NewTicketNumberGenerator returns a generator backed by ticket_number_seq.
func NewTicketNumberGenerator(pool *pgxpool.Pool) TicketNumberGenerator {
	return &sequenceTicketNumbers{pool: pool}
}

func (g *sequenceTicketNumbers) NextTicketNumber(ctx context.Context) (string, error) {
	var next int64
	if err := g.pool.QueryRow(ctx, `SELECT nextval('ticket_number_seq')`).Scan(&next); err != nil {
		return "", err
	}
	return FormatTicketNumber(next), nil
}

// FormatTicketNumber renders a sequence value as the human-facing label.
func FormatTicketNumber(seq int64) string {
	return fmt.Sprintf("#%06d", seq)
}
