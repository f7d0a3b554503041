package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// FileRepository reads attachment metadata. Upload storage lives elsewhere.
type FileRepository interface {
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.File, error)
}

type fileRepository struct {
	pool *pgxpool.Pool
}

// NewFileRepository constructs repository.
func NewFileRepository(pool *pgxpool.Pool) FileRepository {
	return &fileRepository{pool: pool}
}

func (r *fileRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.File, error) {
	const query = `
        SELECT id, ticket_id, filename, original_name, path, size, mime_type, created_at
        FROM files WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.File{}
	for rows.Next() {
		var file domain.File
		if err := rows.Scan(
			&file.ID,
			&file.TicketID,
			&file.Filename,
			&file.OriginalName,
			&file.Path,
			&file.Size,
			&file.MimeType,
			&file.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, file)
	}
	return result, rows.Err()
}
