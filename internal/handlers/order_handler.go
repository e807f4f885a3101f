package handlers

import (
	"time"

	"orderd/internal/apperr"
	"orderd/internal/middleware"
	"orderd/internal/models"
	"orderd/internal/repositories"
	"orderd/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// RegisterRoutes registers the order routes on a router that already requires authentication.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/", h.HandleListOrders)
	orderRoutes.Get("/filter", h.HandleFilterOrders)
	orderRoutes.Get("/status/:status", h.HandleListOrdersByStatus)
	orderRoutes.Get("/number/:orderNumber", h.HandleGetOrderByNumber)
	orderRoutes.Get("/:id", h.HandleGetOrder)
	orderRoutes.Get("/:id/timeline", h.HandleGetTimeline)
	orderRoutes.Get("/:id/receipt", h.HandleGetReceipt)
	orderRoutes.Post("/:id/reorder", h.HandleReorder)
	orderRoutes.Put("/:id/status", h.HandleUpdateStatus)
	orderRoutes.Put("/:id/cancel", h.HandleCancelOrder)

	adminRoutes := router.Group("/admin/orders")
	adminRoutes.Get("/", h.HandleListAllOrders)
	adminRoutes.Get("/stats", h.HandleStats)
	adminRoutes.Put("/bulk-status", h.HandleBulkUpdateStatus)
}

// HandleCreateOrder places a new order for the caller.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req services.CreateOrderInput
	if err := bind(c, &req); err != nil {
		return err
	}
	order, err := h.service.CreateOrder(c.UserContext(), middleware.Principal(c), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, order)
}

// HandleListOrders lists the caller's orders.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext(), middleware.Principal(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, orders)
}

// HandleListOrdersByStatus lists the caller's orders in one status.
func (h *OrderHandler) HandleListOrdersByStatus(c *fiber.Ctx) error {
	orders, err := h.service.ListOrdersByStatus(c.UserContext(), middleware.Principal(c), c.Params("status"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, orders)
}

// HandleFilterOrders lists the caller's orders matching the query predicates
// startDate, endDate, minAmount, maxAmount and status.
func (h *OrderHandler) HandleFilterOrders(c *fiber.Ctx) error {
	filter, err := parseOrderFilter(c)
	if err != nil {
		return err
	}
	orders, err := h.service.FilterOrders(c.UserContext(), middleware.Principal(c), filter)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, orders)
}

// HandleGetOrder returns one order by id.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), middleware.Principal(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, order)
}

// HandleGetOrderByNumber returns one order by order number.
func (h *OrderHandler) HandleGetOrderByNumber(c *fiber.Ctx) error {
	order, err := h.service.GetOrderByNumber(c.UserContext(), middleware.Principal(c), c.Params("orderNumber"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, order)
}

// HandleGetTimeline returns the status timeline of an order.
func (h *OrderHandler) HandleGetTimeline(c *fiber.Ctx) error {
	timeline, err := h.service.GetTimeline(c.UserContext(), middleware.Principal(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, timeline)
}

// HandleGetReceipt returns the receipt of an order.
func (h *OrderHandler) HandleGetReceipt(c *fiber.Ctx) error {
	receipt, err := h.service.GetReceipt(c.UserContext(), middleware.Principal(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, receipt)
}

// HandleReorder places a copy of an existing order.
func (h *OrderHandler) HandleReorder(c *fiber.Ctx) error {
	order, err := h.service.Reorder(c.UserContext(), middleware.Principal(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, order)
}

// HandleUpdateStatus sets an order's status. Admin only.
func (h *OrderHandler) HandleUpdateStatus(c *fiber.Ctx) error {
	var req services.StatusUpdateInput
	if err := bind(c, &req); err != nil {
		return err
	}
	order, err := h.service.UpdateStatus(c.UserContext(), middleware.Principal(c), c.Params("id"), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, order)
}

// HandleCancelOrder cancels the caller's order.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	order, err := h.service.CancelOrder(c.UserContext(), middleware.Principal(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, order)
}

// HandleListAllOrders lists every order. Admin only.
func (h *OrderHandler) HandleListAllOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListAllOrders(c.UserContext(), middleware.Principal(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, orders)
}

// HandleStats reports order statistics. Admin only.
func (h *OrderHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext(), middleware.Principal(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, stats)
}

// HandleBulkUpdateStatus sets one status on many orders. Admin only.
func (h *OrderHandler) HandleBulkUpdateStatus(c *fiber.Ctx) error {
	var req services.BulkStatusInput
	if err := bind(c, &req); err != nil {
		return err
	}
	orders, err := h.service.BulkUpdateStatus(c.UserContext(), middleware.Principal(c), req)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{
		"updated_count": len(orders),
		"orders":        orders,
	})
}

func parseOrderFilter(c *fiber.Ctx) (repositories.OrderFilter, error) {
	var filter repositories.OrderFilter
	fields := make(map[string]string)

	parseDate := func(key string) *time.Time {
		raw := c.Query(key)
		if raw == "" {
			return nil
		}
		for _, layout := range []string{time.RFC3339, time.DateOnly} {
			if t, err := time.Parse(layout, raw); err == nil {
				t = t.UTC()
				return &t
			}
		}
		fields[key] = "must be an RFC 3339 timestamp or a YYYY-MM-DD date"
		return nil
	}
	parseAmount := func(key string) *decimal.Decimal {
		raw := c.Query(key)
		if raw == "" {
			return nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			fields[key] = "must be a decimal number"
			return nil
		}
		return &d
	}

	filter.StartDate = parseDate("startDate")
	filter.EndDate = parseDate("endDate")
	filter.MinAmount = parseAmount("minAmount")
	filter.MaxAmount = parseAmount("maxAmount")
	filter.Status = models.OrderStatus(c.Query("status"))

	if len(fields) > 0 {
		return filter, apperr.Invalid("Invalid filter", fields)
	}
	return filter, nil
}
