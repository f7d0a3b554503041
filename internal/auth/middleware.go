package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const callerKey = "auth_caller"

// CallerResolver turns an optional bearer token into a caller identity.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, token string) (domain.Caller, error)
}

// CallerMiddleware resolves the caller for every request. Requests without an
// Authorization header continue as Anonymous.
type CallerMiddleware struct {
	resolver CallerResolver
}

// NewCallerMiddleware constructs middleware.
func NewCallerMiddleware(resolver CallerResolver) *CallerMiddleware {
	return &CallerMiddleware{resolver: resolver}
}

// Handle attaches the resolved caller to the request context.
func (m *CallerMiddleware) Handle(c *fiber.Ctx) error {
	token, err := BearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return err
	}

	caller, err := m.resolver.ResolveCaller(c.UserContext(), token)
	if err != nil {
		return err
	}

	c.Locals(callerKey, caller)
	return c.Next()
}

// BearerToken extracts the token from an Authorization header value. An empty
// header yields an empty token.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// CallerFromContext retrieves the resolved caller, defaulting to Anonymous.
func CallerFromContext(c *fiber.Ctx) domain.Caller {
	if caller, ok := c.Locals(callerKey).(domain.Caller); ok {
		return caller
	}
	return domain.Anonymous()
}
