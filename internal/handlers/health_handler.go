package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports the reachability of the service's dependencies.
type HealthHandler struct {
	checks map[string]HealthCheck
}

// NewHealthHandler creates a new HealthHandler. checks may be empty.
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// RegisterRoutes registers GET /health.
func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HandleHealth)
}

// HandleHealth runs every check and answers 503 if any of them fails.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	components := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			log.Printf("Health check %s failed: %v", name, err)
			components[name] = "down"
			healthy = false
			continue
		}
		components[name] = "up"
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(Response{
			Message: "Service degraded",
			Data:    fiber.Map{"status": "degraded", "components": components},
		})
	}
	return respond(c, fiber.StatusOK, fiber.Map{"status": "ok", "components": components})
}
