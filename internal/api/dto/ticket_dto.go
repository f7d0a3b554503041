package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Department  string       `json:"department"`
	AuthorName  string       `json:"authorName"`
	AuthorEmail string       `json:"authorEmail"`
	Priority    string       `json:"priority"`
	AssignedTo  string       `json:"assignedTo"`
	Deadline    NullableTime `json:"deadline"`
}

// UpdateTicketRequest is a partial update; absent fields are left untouched.
type UpdateTicketRequest struct {
	Status     *string      `json:"status"`
	AssignedTo *string      `json:"assignedTo"`
	Priority   *string      `json:"priority"`
	Deadline   NullableTime `json:"deadline"`
}

// NullableTime distinguishes an absent field from an explicit null.
type NullableTime struct {
	Set   bool
	Value *time.Time
}

var deadlineLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// UnmarshalJSON accepts RFC3339 timestamps, datetime-local values and plain
// dates. An empty string is treated like null.
func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("deadline must be a string: %w", err)
	}
	if raw == "" {
		n.Value = nil
		return nil
	}
	for _, layout := range deadlineLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			parsed = parsed.UTC()
			n.Value = &parsed
			return nil
		}
	}
	return fmt.Errorf("deadline %q is not a valid timestamp", raw)
}

// TicketResponse is the JSON form of a ticket.
type TicketResponse struct {
	ID            int64                 `json:"id"`
	TicketNumber  string                `json:"ticketNumber"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Department    domain.Department     `json:"department"`
	AuthorName    string                `json:"authorName"`
	AuthorEmail   string                `json:"authorEmail"`
	SubmittedBy   *int64                `json:"submittedBy"`
	AssignedTo    string                `json:"assignedTo"`
	Priority      domain.TicketPriority `json:"priority"`
	Deadline      *time.Time            `json:"deadline"`
	Status        domain.TicketStatus   `json:"status"`
	CommentsCount int                   `json:"commentsCount"`
	FilesCount    int                   `json:"filesCount"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

// NewTicketResponse projects a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:            ticket.ID,
		TicketNumber:  ticket.TicketNumber,
		Title:         ticket.Title,
		Description:   ticket.Description,
		Department:    ticket.Department,
		AuthorName:    ticket.AuthorName,
		AuthorEmail:   ticket.AuthorEmail,
		SubmittedBy:   ticket.SubmittedBy,
		AssignedTo:    ticket.AssignedTo,
		Priority:      ticket.Priority,
		Deadline:      ticket.Deadline,
		Status:        ticket.Status,
		CommentsCount: ticket.CommentsCount,
		FilesCount:    ticket.FilesCount,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
}

// NewTicketList projects a slice of tickets, never returning nil.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

// FileResponse is attachment metadata.
type FileResponse struct {
	ID           int64     `json:"id"`
	TicketID     int64     `json:"ticketId"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimeType"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewFileList projects file metadata.
func NewFileList(files []domain.File) []FileResponse {
	items := make([]FileResponse, 0, len(files))
	for _, f := range files {
		items = append(items, FileResponse{
			ID:           f.ID,
			TicketID:     f.TicketID,
			Filename:     f.Filename,
			OriginalName: f.OriginalName,
			Path:         f.Path,
			Size:         f.Size,
			MimeType:     f.MimeType,
			CreatedAt:    f.CreatedAt,
		})
	}
	return items
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID         int64                   `json:"id"`
	TicketID   int64                   `json:"ticketId"`
	ChangedBy  *int64                  `json:"changedBy"`
	ChangeType domain.TicketChangeType `json:"changeType"`
	OldValue   map[string]any          `json:"oldValue,omitempty"`
	NewValue   map[string]any          `json:"newValue,omitempty"`
	CreatedAt  time.Time               `json:"createdAt"`
}

// NewHistoryList projects audit entries.
func NewHistoryList(entries []domain.TicketHistory) []HistoryResponse {
	items := make([]HistoryResponse, 0, len(entries))
	for _, h := range entries {
		items = append(items, HistoryResponse{
			ID:         h.ID,
			TicketID:   h.TicketID,
			ChangedBy:  h.ChangedBy,
			ChangeType: h.ChangeType,
			OldValue:   h.OldValue,
			NewValue:   h.NewValue,
			CreatedAt:  h.CreatedAt,
		})
	}
	return items
}
