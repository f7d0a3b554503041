package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTicketUpdateApplyTouchesOnlyPresentFields(t *testing.T) {
	deadline := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	ticket := Ticket{
		Status:     TicketStatusResolved,
		Priority:   TicketPriorityLow,
		AssignedTo: "Petr Sidorov",
		Deadline:   &deadline,
	}

	high := TicketPriorityHigh
	assert.True(t, TicketUpdate{Priority: &high}.Apply(&ticket))
	assert.Equal(t, TicketPriorityHigh, ticket.Priority)
	assert.Equal(t, TicketStatusResolved, ticket.Status)
	assert.Equal(t, "Petr Sidorov", ticket.AssignedTo)
	assert.Equal(t, &deadline, ticket.Deadline)

	assert.False(t, TicketUpdate{Priority: &high}.Apply(&ticket))

	same := deadline.In(time.FixedZone("MSK", 3*60*60))
	assert.False(t, TicketUpdate{DeadlineSet: true, Deadline: &same}.Apply(&ticket))

	assert.True(t, TicketUpdate{DeadlineSet: true}.Apply(&ticket))
	assert.Nil(t, ticket.Deadline)
}
