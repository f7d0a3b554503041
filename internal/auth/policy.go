package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// Action names an operation subject to authorization.
type Action string

const (
	ActionCreateTicket  Action = "create-ticket"
	ActionReadTicket    Action = "read-ticket"
	ActionUpdateTicket  Action = "update-ticket"
	ActionCreateComment Action = "create-comment"
	ActionReadComment   Action = "read-comment"
)

// policy maps each action to the caller kinds allowed to perform it.
var policy = map[Action]map[domain.CallerKind]bool{
	ActionCreateTicket:  {domain.CallerAnonymous: true, domain.CallerUser: true, domain.CallerAdmin: true},
	ActionReadTicket:    {domain.CallerAnonymous: true, domain.CallerUser: true, domain.CallerAdmin: true},
	ActionReadComment:   {domain.CallerAnonymous: true, domain.CallerUser: true, domain.CallerAdmin: true},
	ActionUpdateTicket:  {domain.CallerAdmin: true},
	ActionCreateComment: {domain.CallerUser: true, domain.CallerAdmin: true},
}

// CanPerform reports whether caller may perform action. Unknown actions are denied.
func CanPerform(caller domain.Caller, action Action) bool {
	return policy[action][caller.Kind]
}

// Authorize returns nil when the action is allowed. Anonymous callers denied
// an action that any authenticated caller could perform get an
// UNAUTHORIZED error; everyone else gets FORBIDDEN.
func Authorize(caller domain.Caller, action Action) error {
	if CanPerform(caller, action) {
		return nil
	}
	if caller.IsAnonymous() && policy[action][domain.CallerUser] {
		return apperrors.NewUnauthorized("authentication required")
	}
	if action == ActionUpdateTicket {
		return apperrors.NewForbidden("administrator rights required")
	}
	return apperrors.NewForbidden("action not permitted")
}

// RequireAction ensures the resolved caller may perform action.
func RequireAction(action Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := Authorize(CallerFromContext(c), action); err != nil {
			return err
		}
		return c.Next()
	}
}
