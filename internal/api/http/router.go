package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-core/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-core/internal/auth"
	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Tickets     *handlers.TicketsHandler
	Comments    *handlers.CommentsHandler
	Attachments *handlers.AttachmentsHandler
	Admin       *handlers.AdminHandler
	Files       *handlers.FilesHandler
}

// RegisterRoutes wires the full HTTP surface. Visibility filtering
// happens in the services; route-level role gates only cover surfaces
// that are staff- or admin-only outright.
func RegisterRoutes(app *fiber.App, h Handlers, authMW *auth.Middleware) {
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)

	// signed URLs carry their own credential
	app.Get("/files/*", h.Files.Download)

	api := app.Group("/api/v1")

	api.Post("/auth/register", h.Auth.Register)
	api.Post("/auth/login", h.Auth.Login)

	authed := api.Group("", authMW.Handle, auth.RequireAuthenticated())

	authed.Get("/categories", h.Admin.ListCategories)

	tickets := authed.Group("/tickets")
	tickets.Post("", h.Tickets.Create)
	tickets.Get("", h.Tickets.List)
	tickets.Get("/:id", h.Tickets.Get)
	tickets.Get("/:id/history", h.Tickets.History)
	tickets.Post("/:id/comments", h.Comments.Create)
	tickets.Get("/:id/comments", h.Comments.List)
	tickets.Post("/:id/attachments", h.Attachments.Upload)
	tickets.Get("/:id/attachments", h.Attachments.List)

	staff := auth.RequireRole(domain.RoleEmployee, domain.RoleAdmin, domain.RoleOwner)
	tickets.Post("/:id/status", staff, h.Tickets.ChangeStatus)
	tickets.Post("/:id/reopen", staff, h.Tickets.Reopen)
	tickets.Post("/:id/duplicate", staff, h.Tickets.MarkDuplicate)
	tickets.Post("/:id/priority", staff, h.Tickets.SetPriority)
	tickets.Post("/:id/due-date", staff, h.Tickets.SetDueDate)

	elevated := auth.RequireRole(domain.RoleAdmin, domain.RoleOwner)
	tickets.Post("/:id/assign", elevated, h.Tickets.Assign)

	attachments := authed.Group("/attachments")
	attachments.Get("/:id/url", h.Attachments.URL)
	attachments.Delete("/:id", h.Attachments.Detach)

	admin := authed.Group("/admin", elevated)
	admin.Get("/notification-rules", h.Admin.ListRules)
	admin.Patch("/notification-rules/:id", h.Admin.ToggleRule)
}
