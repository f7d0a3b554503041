package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Tickets  *handlers.TicketsHandler
	Comments *handlers.CommentsHandler
	Caller   *auth.CallerMiddleware
	Metrics  *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if reg := cfg.Metrics.Registry(); reg != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.Auth.Me)

	tickets := app.Group("/tickets", cfg.Caller.Handle)
	tickets.Get("/", auth.RequireAction(auth.ActionReadTicket), cfg.Tickets.ListTickets)
	tickets.Post("/", auth.RequireAction(auth.ActionCreateTicket), cfg.Tickets.CreateTicket)
	tickets.Get("/:id", auth.RequireAction(auth.ActionReadTicket), cfg.Tickets.GetTicket)
	tickets.Put("/:id", auth.RequireAction(auth.ActionUpdateTicket), cfg.Tickets.UpdateTicket)
	tickets.Get("/:id/history", auth.RequireAction(auth.ActionReadTicket), cfg.Tickets.ListHistory)
	tickets.Get("/:id/files", auth.RequireAction(auth.ActionReadTicket), cfg.Tickets.ListFiles)

	tickets.Get("/:ticketId/comments", auth.RequireAction(auth.ActionReadComment), cfg.Comments.List)
	tickets.Post("/:ticketId/comments", auth.RequireAction(auth.ActionCreateComment), cfg.Comments.Create)
}
