package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/questionnaire-api/internal/config"
	"github.com/noah-isme/questionnaire-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Database    string    `json:"database"`
}

// HealthCheck returns a handler that reports application health information.
// ping probes the relational store; nil skips the probe.
func HealthCheck(cfg config.Config, ping func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Database:    "unchecked",
		}

		if ping != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				payload.Status = "degraded"
				payload.Database = "unreachable"
				return c.Status(fiber.StatusServiceUnavailable).JSON(utils.APIResponse{
					Success: false,
					Data:    payload,
					Message: "database unreachable",
				})
			}
			payload.Database = "ok"
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
