package domain

import "time"

// Comment is an immutable message in a ticket thread.
type Comment struct {
	ID         int64
	TicketID   int64
	AuthorID   int64
	AuthorName string
	Content    string
	CreatedAt  time.Time
}

// File stores metadata for a document attached to a ticket.
type File struct {
	ID           int64
	TicketID     int64
	Filename     string
	OriginalName string
	Path         string
	Size         int64
	MimeType     string
	CreatedAt    time.Time
}
