package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/course-portal-api/internal/config"
	"github.com/noah-isme/course-portal-api/internal/handler"
	"github.com/noah-isme/course-portal-api/internal/middleware"
	"github.com/noah-isme/course-portal-api/internal/models"
	"github.com/noah-isme/course-portal-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler          *handler.AuthHandler
	ClassHandler         *handler.ClassHandler
	ForumHandler         *handler.ForumHandler
	AssignmentHandler    *handler.AssignmentHandler
	SubmissionHandler    *handler.SubmissionHandler
	GradingHandler       *handler.GradingHandler
	DashboardHandler     *handler.DashboardHandler
	NotificationHandler  *handler.NotificationHandler
	TeacherHandler       *handler.TeacherHandler
	AdminActivityHandler *handler.AdminActivityHandler
	SeedHandler          *handler.SeedHandler
	JWTMiddleware        fiber.Handler
	LoginLimiter         fiber.Handler
	HealthProbes         map[string]handler.HealthProbe
	ExposeMetrics        bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if deps.ExposeMetrics {
		app.Get("/metrics", observability.MetricsHandler(cfg.MetricsToken))
	}

	public := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	public.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}
	loginLimiter := deps.LoginLimiter
	if loginLimiter == nil && cfg.LoginRateLimit > 0 {
		loginLimiter = middleware.RateLimit("login", cfg.LoginRateLimit, time.Minute)
	}

	api := app.Group("/api/v2", jwtMiddleware)

	if deps.AuthHandler != nil {
		deps.AuthHandler.RegisterPublic(public.Group("/auth"), loginLimiter)
		api.Get("/me", deps.AuthHandler.Me)
		api.Post("/admin/teachers", middleware.RequireRole(models.RoleAdmin), deps.AuthHandler.CreateTeacher)
	}

	if deps.ClassHandler != nil {
		deps.ClassHandler.RegisterPublic(public)
		deps.ClassHandler.Register(api.Group("/classes", middleware.RequireRole(models.RoleTeacher)))
	}

	if deps.ForumHandler != nil {
		deps.ForumHandler.Register(api.Group("/forum"))
	}

	if deps.AssignmentHandler != nil {
		assignments := api.Group("/assignments")
		deps.AssignmentHandler.Register(assignments)
		if deps.SubmissionHandler != nil {
			deps.SubmissionHandler.Register(assignments)
		}
		if deps.GradingHandler != nil {
			deps.GradingHandler.Register(assignments)
		}
	}

	if deps.DashboardHandler != nil {
		deps.DashboardHandler.Register(api.Group("/dashboard"))
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(api.Group("/notifications"))
	}

	if deps.TeacherHandler != nil {
		public.Get("/teachers", deps.TeacherHandler.Directory)
		api.Put("/teachers/me/photo", middleware.RequireRole(models.RoleTeacher), deps.TeacherHandler.UploadPhoto)
	}

	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(api.Group("/admin/activities", middleware.RequireRole(models.RoleAdmin)))
	}

	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(public.Group("/seed"))
	}
}
