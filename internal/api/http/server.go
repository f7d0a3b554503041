package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// NewApp builds the fiber application with the global middleware chain and
// every route registered.
func NewApp(cfg config.AppConfig, mw MiddlewareConfig, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.Name,
		DisableStartupMessage: true,
	})
	app.Use(cors.New())
	RegisterMiddlewares(app, mw)
	RegisterRoutes(app, routes)
	return app
}
