package auth

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const loginAttemptPrefix = "login:fail:"

// countAttempt increments the counter and starts its window on the first
// attempt, atomically, so concurrent logins each see a distinct count.
var countAttempt = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n`)

// LoginLimiter caps login attempts per email in Redis. Every attempt is
// counted before the password is checked and a successful login clears the
// counter, so the count is the failures since the last success. Redis errors
// fail open: a login is never refused because Redis is unavailable.
type LoginLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	logger      *zap.Logger
}

// NewLoginLimiter builds a limiter; a nil client disables throttling.
func NewLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration, logger *zap.Logger) *LoginLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, window: window, logger: logger}
}

// Acquire counts one attempt for email and reports whether it is within the
// limit. The increment is the gate, so at most maxAttempts callers pass per
// window however many race.
func (l *LoginLimiter) Acquire(ctx context.Context, email string) bool {
	if l == nil || l.client == nil || l.maxAttempts <= 0 {
		return true
	}
	count, err := countAttempt.Run(ctx, l.client, []string{loginKey(email)}, l.window.Milliseconds()).Int64()
	if err != nil {
		l.logger.Warn("login limiter update failed", zap.Error(err))
		return true
	}
	return count <= int64(l.maxAttempts)
}

// Reset clears the counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) {
	if l == nil || l.client == nil {
		return
	}
	if err := l.client.Del(ctx, loginKey(email)).Err(); err != nil {
		l.logger.Warn("login limiter reset failed", zap.Error(err))
	}
}

func loginKey(email string) string {
	return loginAttemptPrefix + strings.ToLower(strings.TrimSpace(email))
}
