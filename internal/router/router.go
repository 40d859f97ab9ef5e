package router

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/questionnaire-api/internal/config"
	"github.com/noah-isme/questionnaire-api/internal/handler"
	"github.com/noah-isme/questionnaire-api/internal/middleware"
	"github.com/noah-isme/questionnaire-api/internal/models"
	"github.com/noah-isme/questionnaire-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler          *handler.AuthHandler
	AccountHandler       *handler.AccountHandler
	SurveyHandler        *handler.SurveyHandler
	StudentSurveyHandler *handler.StudentSurveyHandler
	FeedbackHandler      *handler.FeedbackHandler
	ActivityHandler      *handler.ActivityHandler
	AccessHandler        *handler.AccessHandler
	DatabasePing         func(ctx context.Context) error
	DisableMetrics       bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	if !deps.DisableMetrics {
		app.Get("/metrics", observability.MetricsHandler())
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DatabasePing))

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"))
	}

	if deps.AccountHandler != nil {
		deps.AccountHandler.Register(api)
	}

	teacher := api.Group("/teacher", middleware.RequireRole(models.RoleTeacher))
	if deps.SurveyHandler != nil {
		deps.SurveyHandler.Register(teacher)
	}
	if deps.FeedbackHandler != nil {
		deps.FeedbackHandler.RegisterTeacher(teacher.Group("/feedback"))
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(teacher.Group("/activity"))
	}

	student := api.Group("/student", middleware.RequireRole(models.RoleStudent))
	if deps.StudentSurveyHandler != nil {
		deps.StudentSurveyHandler.Register(student)
	}
	if deps.FeedbackHandler != nil {
		deps.FeedbackHandler.RegisterStudent(student.Group("/feedback"))
	}

	if deps.AccessHandler != nil {
		deps.AccessHandler.Register(app.Group("/s"))
	}
}
