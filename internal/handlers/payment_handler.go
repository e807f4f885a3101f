package handlers

import (
	"orderd/internal/middleware"
	"orderd/internal/services"

	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	service *services.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service: service,
	}
}

// RegisterWebhook registers the provider callback. It must be mounted outside
// the authenticated group; the provider is expected to be verified upstream.
func (h *PaymentHandler) RegisterWebhook(router fiber.Router) {
	router.Post("/payments/webhook", h.HandleWebhook)
}

// RegisterRoutes registers the payment routes on a router that already requires authentication.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	paymentRoutes := router.Group("/payments")
	paymentRoutes.Post("/process", h.HandleProcessPayment)
	paymentRoutes.Get("/user/history", h.HandlePaymentHistory)
	paymentRoutes.Get("/order/:orderId", h.HandleListByOrder)
	paymentRoutes.Get("/:id", h.HandleGetPayment)
	paymentRoutes.Post("/:id/retry", h.HandleRetryPayment)
	paymentRoutes.Post("/:id/refund", h.HandleRefundPayment)

	router.Get("/admin/payments/stats", h.HandleStats)
}

// HandleProcessPayment settles an order owned by the caller.
func (h *PaymentHandler) HandleProcessPayment(c *fiber.Ctx) error {
	var req services.ProcessPaymentInput
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.service.ProcessPayment(c.UserContext(), middleware.Principal(c), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, result)
}

// HandleRetryPayment completes a failed payment.
func (h *PaymentHandler) HandleRetryPayment(c *fiber.Ctx) error {
	result, err := h.service.RetryPayment(c.UserContext(), middleware.Principal(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, result)
}

// HandleRefundPayment refunds a completed payment. Admin only.
func (h *PaymentHandler) HandleRefundPayment(c *fiber.Ctx) error {
	result, err := h.service.RefundPayment(c.UserContext(), middleware.Principal(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, result)
}

// HandleGetPayment returns one payment.
func (h *PaymentHandler) HandleGetPayment(c *fiber.Ctx) error {
	payment, err := h.service.GetPayment(c.UserContext(), middleware.Principal(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, payment)
}

// HandleListByOrder lists the payments of an order.
func (h *PaymentHandler) HandleListByOrder(c *fiber.Ctx) error {
	payments, err := h.service.ListPaymentsByOrder(c.UserContext(), middleware.Principal(c), c.Params("orderId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, payments)
}

// HandlePaymentHistory lists the caller's payments.
func (h *PaymentHandler) HandlePaymentHistory(c *fiber.Ctx) error {
	payments, err := h.service.ListPaymentHistory(c.UserContext(), middleware.Principal(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, payments)
}

// HandleStats reports payment statistics. Admin only.
func (h *PaymentHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext(), middleware.Principal(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, stats)
}

// HandleWebhook applies a provider settlement callback. No credential is checked.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	var req services.WebhookInput
	if err := bind(c, &req); err != nil {
		return err
	}
	payment, err := h.service.HandleWebhook(c.UserContext(), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, payment)
}
