package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is one of the known statuses.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Valid reports whether p is one of the known priorities.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// Department is the organizational unit a ticket is filed against.
type Department string

const (
	DepartmentPolarStar     Department = "Polar Star"
	DepartmentPerspective   Department = "Perspective"
	DepartmentConstellation Department = "Constellation"
	DepartmentFamilyHouse   Department = "Family House"
)

// Departments lists every recognized department in display order.
var Departments = []Department{
	DepartmentPolarStar,
	DepartmentPerspective,
	DepartmentConstellation,
	DepartmentFamilyHouse,
}

// Valid reports whether d is a recognized department.
func (d Department) Valid() bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}

// Unassigned is stored in AssignedTo until an administrator picks someone.
const Unassigned = "Not assigned"

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            int64
	TicketNumber  string
	Title         string
	Description   string
	Department    Department
	AuthorName    string
	AuthorEmail   string
	SubmittedBy   *int64
	AssignedTo    string
	Priority      TicketPriority
	Deadline      *time.Time
	Status        TicketStatus
	CommentsCount int
	FilesCount    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TicketUpdate is a validated partial change to the administrator-mutable
// fields. Nil fields are left untouched; DeadlineSet with a nil Deadline
// clears it.
type TicketUpdate struct {
	Status      *TicketStatus
	Priority    *TicketPriority
	AssignedTo  *string
	DeadlineSet bool
	Deadline    *time.Time
}

// Apply writes the present fields onto ticket and reports whether any value
// actually changed.
func (u TicketUpdate) Apply(ticket *Ticket) bool {
	changed := false
	if u.Status != nil && *u.Status != ticket.Status {
		ticket.Status = *u.Status
		changed = true
	}
	if u.Priority != nil && *u.Priority != ticket.Priority {
		ticket.Priority = *u.Priority
		changed = true
	}
	if u.AssignedTo != nil && *u.AssignedTo != ticket.AssignedTo {
		ticket.AssignedTo = *u.AssignedTo
		changed = true
	}
	if u.DeadlineSet && !sameInstant(ticket.Deadline, u.Deadline) {
		ticket.Deadline = u.Deadline
		changed = true
	}
	return changed
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
