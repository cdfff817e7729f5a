package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"incident-workflow/internal/domain"
	"incident-workflow/internal/middleware"
	"incident-workflow/internal/service/auth"
)

// SetupRoutes mounts the API. intakeLimit caps anonymous intake requests
// per client IP and minute; zero disables the cap.
func SetupRoutes(app *fiber.App, h *Handlers, authService auth.Service, intakeLimit int) {
	app.Get("/health", h.Public.Health)

	v1 := app.Group("/api/v1")
	v1.Get("/catalog", h.Public.GetCatalog)

	authGroup := v1.Group("/auth")
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Get("/me", middleware.AuthRequired(authService), h.Auth.Me)

	intake := []fiber.Handler{}
	if intakeLimit > 0 {
		intake = append(intake, limiter.New(limiter.Config{
			Max:        intakeLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return middleware.NewError(fiber.StatusTooManyRequests, "Too many notifications from this address, try again later")
			},
		}))
	}
	intake = append(intake, h.Notification.Create)
	v1.Post("/notifications", intake...)

	protected := v1.Group("", middleware.AuthRequired(authService))

	notifications := protected.Group("/notifications")
	notifications.Get("/", h.Notification.List)
	notifications.Get("/export", h.Notification.Export)
	notifications.Get("/:id", h.Notification.Get)
	notifications.Get("/:id/history", h.Notification.History)
	notifications.Post("/:id/reject", middleware.RequireRole(domain.RoleClassifier), h.Workflow.Reject)
	notifications.Post("/:id/classify", middleware.RequireRole(domain.RoleClassifier), h.Workflow.Classify)
	notifications.Post("/:id/actions", middleware.RequireRole(domain.RoleExecutor), h.Workflow.RecordAction)
	notifications.Post("/:id/conclude", middleware.RequireRole(domain.RoleExecutor), h.Workflow.Conclude)
	notifications.Post("/:id/executors", middleware.RequireRole(domain.RoleExecutor), h.Workflow.AddExecutor)
	notifications.Post("/:id/review", middleware.RequireRole(domain.RoleClassifier), h.Workflow.Review)
	notifications.Post("/:id/approval", middleware.RequireRole(domain.RoleApprover), h.Workflow.Approval)

	protected.Get("/attachments/:token", h.Attachment.Get)
	protected.Get("/dashboard/stats", h.Dashboard.GetStats)

	users := protected.Group("/users")
	users.Get("/assignable", middleware.RequireRole(domain.RoleClassifier), h.User.Assignable)
	users.Get("/", middleware.RequireRole(domain.RoleAdmin), h.User.List)
	users.Post("/", middleware.RequireRole(domain.RoleAdmin), h.User.Create)
	users.Put("/:id", middleware.RequireRole(domain.RoleAdmin), h.User.Update)
	users.Post("/:id/deactivate", middleware.RequireRole(domain.RoleAdmin), h.User.Deactivate)

	admin := protected.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	admin.Get("/backup", h.Admin.Backup)
	admin.Post("/restore", h.Admin.Restore)
}
