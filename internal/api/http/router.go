package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/certification-service/internal/api/http/handlers"
	"github.com/spec-kit/certification-service/internal/auth"
	"github.com/spec-kit/certification-service/internal/config"
	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health              *handlers.HealthHandler
	Auth                *handlers.AuthHandler
	Admin               *handlers.AdminHandler
	Organizations       *handlers.EntityHandler
	CertificationBodies *handlers.EntityHandler
	Audits              *handlers.AuditsHandler
	Certifications      *handlers.CertificationsHandler
	Standards           *handlers.StandardsHandler
	AuthMiddleware      *auth.AuthMiddleware
	Metrics             *observability.Metrics
	RateLimit           config.RateLimitConfig
}

// RegisterRoutes wires HTTP routes. Static segments are registered before
// parameterized ones so that /:id does not shadow them.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	guard := func(handler fiber.Handler, roles ...domain.Role) []fiber.Handler {
		check := auth.RequireAuthenticated()
		if len(roles) > 0 {
			check = auth.RequireRole(roles...)
		}
		return []fiber.Handler{cfg.AuthMiddleware.Handle, check, handler}
	}

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth", RateLimitMiddleware(cfg.RateLimit))
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/register-invitation", cfg.Auth.RegisterWithInvitation)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", guard(cfg.Auth.Logout)...)
	authGroup.Get("/confirm/:token", cfg.Auth.ConfirmEmail)
	authGroup.Post("/password-reset-request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password-reset", cfg.Auth.ResetPassword)

	app.Get("/user/profile", guard(cfg.Auth.Profile)...)

	admin := app.Group("/admin")
	admin.Get("/users", guard(cfg.Admin.ListUsers, domain.RoleAdmin)...)
	admin.Get("/creation-requests", guard(cfg.Admin.ListCreationRequests, domain.RoleAdmin)...)
	admin.Post("/creation-requests/:id/approve", guard(cfg.Admin.Approve, domain.RoleAdmin)...)
	admin.Post("/creation-requests/:id/reject", guard(cfg.Admin.Reject, domain.RoleAdmin)...)

	registerEntityRoutes(app.Group("/organization"), cfg.Organizations, guard)
	app.Get("/organizations", guard(cfg.Organizations.List)...)
	registerEntityRoutes(app.Group("/certification_body"), cfg.CertificationBodies, guard)
	app.Get("/certification_bodies", guard(cfg.CertificationBodies.List)...)

	audits := app.Group("/audits")
	audits.Post("/requests", guard(cfg.Audits.RequestAudit, domain.RoleManager)...)
	audits.Get("/requests", guard(cfg.Audits.ListRequests, domain.RoleAdmin, domain.RoleManager)...)
	audits.Post("/requests/:id/action", guard(cfg.Audits.DecideRequest, domain.RoleManager)...)
	audits.Post("", guard(cfg.Audits.Create, domain.RoleManager)...)
	audits.Get("", guard(cfg.Audits.List, domain.RoleAdmin, domain.RoleManager, domain.RoleEmployee)...)
	audits.Get("/:id", guard(cfg.Audits.Get)...)
	audits.Put("/:id", guard(cfg.Audits.Update, domain.RoleManager)...)

	certs := app.Group("/certification")
	certs.Post("/certificates", guard(cfg.Certifications.Issue, domain.RoleManager)...)
	certs.Get("/certificates", guard(cfg.Certifications.List, domain.RoleAdmin, domain.RoleManager, domain.RoleEmployee)...)
	certs.Get("/certificates/:id", guard(cfg.Certifications.Get)...)
	certs.Post("/certificates/:id/revoke", guard(cfg.Certifications.Revoke, domain.RoleManager)...)
	certs.Get("/download/:id", guard(cfg.Certifications.Download)...)

	standards := app.Group("/standards")
	standards.Get("", cfg.Standards.Search)
	standards.Post("", guard(cfg.Standards.Insert, domain.RoleAdmin, domain.RoleManager)...)
	standards.Get("/:id", cfg.Standards.Get)
	standards.Delete("/:iso", guard(cfg.Standards.Retire, domain.RoleAdmin, domain.RoleManager)...)

	app.Post("/chat", guard(cfg.Standards.Chat)...)
}

func registerEntityRoutes(group fiber.Router, h *handlers.EntityHandler, guard func(fiber.Handler, ...domain.Role) []fiber.Handler) {
	group.Post("/requests", guard(h.SubmitRequest, domain.RoleGuest)...)
	group.Get("/requests/mine", guard(h.MyRequests)...)
	group.Post("/invite", guard(h.Invite, domain.RoleManager)...)
	group.Get("/invitations", guard(h.ListInvitations, domain.RoleManager)...)
	group.Post("/invitations/accept", guard(h.Accept, domain.RoleGuest)...)
	group.Get("/invitations/accept", guard(h.AcceptFromLink, domain.RoleGuest)...)
	group.Delete("/invitations/revoke", guard(h.Revoke, domain.RoleManager)...)
	group.Get("/:id", guard(h.Get)...)
}
