// Package server assembles the HTTP application from the services.
package server

import (
	"orderd/internal/handlers"
	"orderd/internal/middleware"
	"orderd/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Dependencies are the components the HTTP surface is built from.
type Dependencies struct {
	Auth     *services.AuthService
	Orders   *services.OrderService
	Payments *services.PaymentService
	// Health checks by component name, reported by GET /health.
	Health map[string]handlers.HealthCheck
	// AccessLog enables the per-request logger.
	AccessLog bool
}

// New builds the fiber app with every route mounted.
func New(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "orderd",
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	if deps.AccessLog {
		app.Use(logger.New())
	}

	handlers.NewHealthHandler(deps.Health).RegisterRoutes(app)

	orderHandler := handlers.NewOrderHandler(deps.Orders)
	paymentHandler := handlers.NewPaymentHandler(deps.Payments)

	apiV1 := app.Group("/api/v1")

	// Public: the payment provider calls back without a bearer credential.
	paymentHandler.RegisterWebhook(apiV1)

	// Protected routes (require JWT authentication). The middleware is scoped to
	// the resource prefixes so unknown paths still answer 404.
	requireAuth := middleware.AuthRequired(deps.Auth)
	for _, prefix := range []string{"/orders", "/payments", "/admin"} {
		apiV1.Use(prefix, requireAuth)
	}
	orderHandler.RegisterRoutes(apiV1)
	paymentHandler.RegisterRoutes(apiV1)

	return app
}
