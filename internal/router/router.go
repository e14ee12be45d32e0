package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gradia-go-api/internal/config"
	"github.com/noah-isme/gradia-go-api/internal/handler"
	"github.com/noah-isme/gradia-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	WebhookHandler  *handler.WebhookHandler
	TestCaseHandler *handler.TestCaseHandler
	ScheduleHandler *handler.ScheduleHandler
	ResultHandler   *handler.ResultHandler
	ScoreHandler    *handler.ScoreHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	if deps.WebhookHandler != nil {
		webhooks := api.Group("/webhooks")
		deps.WebhookHandler.Register(webhooks)
	}

	if deps.TestCaseHandler != nil || deps.ScheduleHandler != nil {
		exercises := api.Group("/exercises")
		if deps.TestCaseHandler != nil {
			deps.TestCaseHandler.Register(exercises)
		}
		if deps.ScheduleHandler != nil {
			deps.ScheduleHandler.Register(exercises)
		}
	}

	if deps.ResultHandler != nil {
		participations := api.Group("/participations")
		deps.ResultHandler.Register(participations)
	}

	if deps.ScoreHandler != nil {
		scores := api.Group("/scores")
		deps.ScoreHandler.Register(scores)
	}
}
