package testutil

import (
	"github.com/spec-kit/helpdesk-service/internal/config"
)

// TestSecret signs tokens in tests.
const TestSecret = "test-secret"

// Config returns a development configuration suitable for tests. Redis
// throttling stays disabled unless a test wires its own limiter.
func Config() config.Config {
	return config.Config{
		App: config.AppConfig{
			Name:    "helpdesk-service",
			Env:     "development",
			Host:    "127.0.0.1",
			Port:    "0",
			Version: "test",
		},
		Logger: config.LoggerConfig{Level: "error"},
		Auth: config.AuthConfig{
			JWTSecret:          TestSecret,
			TokenTTLMinutes:    24 * 60,
			BcryptCost:         config.MinBcryptCost,
			LoginMaxAttempts:   5,
			LoginWindowMinutes: 15,
		},
		Comments: config.CommentsConfig{UserLabel: config.CommentLabelProfile},
	}
}
