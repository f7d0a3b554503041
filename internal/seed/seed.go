// Package seed loads demo accounts, tickets and comments into a fresh
// database.
package seed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Demo credentials created by Run.
const (
	AdminEmail    = "admin@example.com"
	AdminPassword = "admin123"
	UserEmail     = "user@example.com"
	UserPassword  = "user123"
)

type sampleTicket struct {
	title       string
	description string
	department  domain.Department
	authorName  string
	authorEmail string
	assignedTo  string
	priority    domain.TicketPriority
	status      domain.TicketStatus
	deadlineIn  time.Duration
}

var sampleTickets = []sampleTicket{
	{
		title:       "Internet connection problem",
		description: "No internet in office 301 since 10am. Packets keep dropping.",
		department:  domain.DepartmentPolarStar,
		authorName:  "Ivan Ivanov",
		authorEmail: "ivan@example.com",
		assignedTo:  "Petr Sidorov",
		priority:    domain.TicketPriorityHigh,
		status:      domain.TicketStatusOpen,
		deadlineIn:  3 * 24 * time.Hour,
	},
	{
		title:       "Printer cartridge replacement",
		description: "The HP LaserJet MFP 135a in accounting is out of toner and needs a new cartridge.",
		department:  domain.DepartmentPerspective,
		authorName:  "Maria Petrova",
		authorEmail: "maria@example.com",
		assignedTo:  "Alexey Komarov",
		priority:    domain.TicketPriorityMedium,
		status:      domain.TicketStatusInProgress,
		deadlineIn:  7 * 24 * time.Hour,
	},
	{
		title:       "Air conditioner not working",
		description: "The conference room air conditioner does not turn on and shows error E5.",
		department:  domain.DepartmentConstellation,
		authorName:  "Alexey Sidorov",
		authorEmail: "alex@example.com",
		assignedTo:  "Sergey Volkov",
		priority:    domain.TicketPriorityCritical,
		status:      domain.TicketStatusOpen,
		deadlineIn:  24 * time.Hour,
	},
	{
		title:       "Meeting room furniture repair",
		description: "The height adjustment of an office chair in meeting room 2 is broken.",
		department:  domain.DepartmentFamilyHouse,
		authorName:  "Olga Nikolaeva",
		authorEmail: "olga@example.com",
		assignedTo:  domain.Unassigned,
		priority:    domain.TicketPriorityLow,
		status:      domain.TicketStatusResolved,
		deadlineIn:  14 * 24 * time.Hour,
	},
}

const (
	acceptedComment = "Ticket accepted. A technician is on the way."
	resolvedComment = "Issue resolved. Equipment is working normally."
)

// Services are the operations the seeder drives.
type Services struct {
	Auth     *service.AuthService
	Tickets  *service.TicketService
	Comments *service.CommentService
}

// Result summarizes what Run created.
type Result struct {
	Skipped  bool
	Tickets  int
	Comments int
}

// Run creates the demo administrator and user, then the sample tickets with
// their comments. It does nothing when the administrator already exists.
func Run(ctx context.Context, svc Services, logger *zap.Logger, now time.Time) (*Result, error) {
	admin, err := svc.Auth.Register(ctx, service.RegisterInput{Email: AdminEmail, Password: AdminPassword, Name: "Chief Administrator"})
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			logger.Info("seed data already present", zap.String("admin", AdminEmail))
			return &Result{Skipped: true}, nil
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	if err := svc.Auth.PromoteToAdmin(ctx, AdminEmail); err != nil {
		return nil, fmt.Errorf("promote admin: %w", err)
	}
	admin.IsAdmin = true
	adminCaller := domain.CallerFromUser(admin)

	user, err := svc.Auth.Register(ctx, service.RegisterInput{Email: UserEmail, Password: UserPassword, Name: "Regular User"})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	userCaller := domain.CallerFromUser(user)

	result := &Result{}
	for _, sample := range sampleTickets {
		deadline := now.Add(sample.deadlineIn).UTC()
		ticket, err := svc.Tickets.Create(ctx, service.TicketCreateInput{
			Title:       sample.title,
			Description: sample.description,
			Department:  string(sample.department),
			AuthorName:  sample.authorName,
			AuthorEmail: sample.authorEmail,
			Priority:    string(sample.priority),
			AssignedTo:  sample.assignedTo,
			Deadline:    &deadline,
		}, userCaller)
		if err != nil {
			return nil, fmt.Errorf("create ticket %q: %w", sample.title, err)
		}
		result.Tickets++

		if sample.status == domain.TicketStatusOpen {
			continue
		}

		status := string(sample.status)
		if _, err := svc.Tickets.Update(ctx, ticket.ID, service.TicketPatch{Status: &status}, adminCaller); err != nil {
			return nil, fmt.Errorf("set status of %s: %w", ticket.TicketNumber, err)
		}

		comments := []string{acceptedComment}
		if sample.status == domain.TicketStatusResolved {
			comments = append(comments, resolvedComment)
		}
		for _, body := range comments {
			if _, err := svc.Comments.Add(ctx, ticket.ID, body, adminCaller); err != nil {
				return nil, fmt.Errorf("comment on %s: %w", ticket.TicketNumber, err)
			}
			result.Comments++
		}
	}

	logger.Info("seed data created",
		zap.Int("tickets", result.Tickets),
		zap.Int("comments", result.Comments))
	return result, nil
}
