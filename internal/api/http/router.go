package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Tickets     *handlers.TicketsHandler
	Session     *handlers.SessionHandler
	SessionGate *auth.SessionGate
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/auth/login", cfg.Session.Login)

	session := app.Group("/session", cfg.SessionGate.Handle)
	session.Get("/role", cfg.Session.GetRole)
	session.Put("/role", cfg.Session.SetRole)
	session.Post("/role/toggle", cfg.Session.ToggleRole)
	session.Get("/sort", cfg.Session.GetSort)
	session.Put("/sort", cfg.Session.SetSort)

	tickets := app.Group("/tickets", cfg.SessionGate.Handle)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Delete("/", cfg.Tickets.ClearTickets)
	tickets.Get("/export", cfg.Tickets.ExportTickets)
	tickets.Post("/import", cfg.Tickets.ImportTickets)
	tickets.Post("/bulk/status", cfg.Tickets.BulkUpdateStatus)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.EditTicket)
	tickets.Put("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Put("/:id/assignee", cfg.Tickets.AssignTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
}
