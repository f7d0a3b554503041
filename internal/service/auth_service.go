package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const invalidCredentials = "invalid email or password"

// LoginThrottle limits repeated failed logins per email. Acquire counts an
// attempt and reports whether it may proceed; Reset runs after a success.
type LoginThrottle interface {
	Acquire(ctx context.Context, email string) bool
	Reset(ctx context.Context, email string)
}

// AuthService coordinates registration, login and caller resolution.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	limiter    LoginThrottle
	metrics    *observability.Metrics
	bcryptCost int

	dummyOnce sync.Once
	dummyHash string
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Limiter  LoginThrottle
	Metrics  *observability.Metrics
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email    string `validate:"notblank,email"`
	Password string `validate:"notblank,min=6,maxbytes=72"`
	Name     string `validate:"notblank"`
}

// LoginResult carries a freshly issued session.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	cost := cfg.Auth.BcryptCost
	if cost < config.MinBcryptCost {
		cost = config.MinBcryptCost
	}
	limiter := deps.Limiter
	if limiter == nil {
		limiter = auth.NewLoginLimiter(nil, 0, 0, nil)
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
		limiter:    limiter,
		metrics:    deps.Metrics,
		bcryptCost: cost,
	}
}

// TokenManager exposes the token manager.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates a new non-admin account.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	input.Email = normalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, emailTaken()
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperrors.NewValidationError("validation failed", map[string]any{
				"password": "must be at most 72 bytes",
			})
		}
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		IsAdmin:      false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, emailTaken()
		}
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a session token. Unknown emails and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	if !s.limiter.Acquire(ctx, email) {
		s.metrics.LoginAttempt("throttled")
		return nil, apperrors.NewTooManyRequests("too many failed login attempts, try again later")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		_ = auth.ComparePassword(s.placeholderHash(), password)
		return nil, s.loginFailed()
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, s.loginFailed()
	}

	s.limiter.Reset(ctx, email)

	token, expiresAt, err := s.tokenMgr.GenerateToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.metrics.LoginAttempt("success")
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// ResolveCaller classifies the bearer of token. An empty token is anonymous;
// the admin flag always comes from the stored user row.
func (s *AuthService) ResolveCaller(ctx context.Context, token string) (domain.Caller, error) {
	if token == "" {
		return domain.Anonymous(), nil
	}

	claims, err := s.parseToken(token)
	if err != nil {
		return domain.Caller{}, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Caller{}, apperrors.NewUnauthorized("user not found")
		}
		return domain.Caller{}, err
	}
	return domain.CallerFromUser(user), nil
}

// Me returns the profile behind token.
func (s *AuthService) Me(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	claims, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	return user, nil
}

// PromoteToAdmin grants administrator rights to an existing account.
func (s *AuthService) PromoteToAdmin(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.NewValidationError("email is required", nil)
	}
	if err := s.users.SetAdmin(ctx, email, true); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return err
	}
	return nil
}

func (s *AuthService) parseToken(token string) (*auth.Claims, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, apperrors.NewUnauthorized("expired token")
		}
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	return claims, nil
}

func (s *AuthService) loginFailed() error {
	s.metrics.LoginAttempt("failure")
	return apperrors.NewUnauthorized(invalidCredentials)
}

// placeholderHash lets unknown-email logins spend the same bcrypt time as
// real ones.
func (s *AuthService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := auth.HashPassword("placeholder-password", s.bcryptCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}

func emailTaken() error {
	return apperrors.NewConflict("email already registered", nil)
}
