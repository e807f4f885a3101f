package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"orderd/internal/apperr"
	"orderd/internal/auth"
	"orderd/internal/models"
	"orderd/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

const defaultBulkConcurrency = 8

// OrderItemInput is one requested line of a new order.
type OrderItemInput struct {
	ProductID string           `json:"product_id" validate:"required"`
	SKU       string           `json:"sku"`
	Name      string           `json:"name"`
	Quantity  int              `json:"quantity" validate:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price" validate:"required,gte=0"`
}

// CreateOrderInput is the request to place an order.
type CreateOrderInput struct {
	Items           []OrderItemInput     `json:"items" validate:"required,min=1,dive"`
	ShippingAddress *models.Address      `json:"shipping_address" validate:"required"`
	BillingAddress  *models.Address      `json:"billing_address"`
	Subtotal        *decimal.Decimal     `json:"subtotal" validate:"required,gte=0"`
	Tax             *decimal.Decimal     `json:"tax" validate:"required,gte=0"`
	ShippingFee     *decimal.Decimal     `json:"shipping_fee" validate:"required,gte=0"`
	Discount        *decimal.Decimal     `json:"discount" validate:"omitempty,gte=0"`
	PaymentMethod   models.PaymentMethod `json:"payment_method" validate:"omitempty,payment_method"`
}

// StatusUpdateInput is an admin-driven status change.
type StatusUpdateInput struct {
	Status            models.OrderStatus `json:"status" validate:"required,order_status"`
	Note              string             `json:"note" validate:"max=255"`
	TrackingNumber    string             `json:"tracking_number" validate:"max=64"`
	EstimatedDelivery *time.Time         `json:"estimated_delivery"`
}

// BulkStatusInput applies one status to many orders.
type BulkStatusInput struct {
	OrderIDs []string           `json:"order_ids" validate:"required,min=1,dive,required"`
	Status   models.OrderStatus `json:"status" validate:"required,order_status"`
	Note     string             `json:"note" validate:"max=255"`
}

type orderEvent struct {
	OrderID       string               `json:"order_id"`
	OrderNumber   string               `json:"order_number"`
	UserID        string               `json:"user_id"`
	Status        models.OrderStatus   `json:"status"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
}

func newOrderEvent(o *models.Order) orderEvent {
	return orderEvent{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		TotalAmount:   o.TotalAmount,
	}
}

// OrderService owns the order lifecycle: creation, status transitions and reads.
type OrderService struct {
	orderRepo       repositories.OrderRepository
	tx              repositories.Transactor
	validate        *validator.Validate
	events          emitter
	bulkConcurrency int
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(orderRepo repositories.OrderRepository, tx repositories.Transactor, publisher EventPublisher) *OrderService {
	return &OrderService{
		orderRepo:       orderRepo,
		tx:              tx,
		validate:        newValidator(),
		events:          emitter{publisher: publisher},
		bulkConcurrency: defaultBulkConcurrency,
	}
}

// loadOrder resolves an order by id, mapping a miss to NotFound.
func loadOrder(ctx context.Context, repo repositories.OrderRepository, id string) (*models.Order, error) {
	order, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Order not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "Could not retrieve order", err)
	}
	return order, nil
}

// saveWithHistory persists the order and appends exactly one history entry.
// Callers run it inside a transaction.
func saveWithHistory(ctx context.Context, repo repositories.OrderRepository, order *models.Order, entry models.StatusHistoryEntry) error {
	order.UpdatedAt = entry.Timestamp
	if err := repo.Update(ctx, order); err != nil {
		return err
	}
	if err := repo.AppendHistory(ctx, order.ID, &entry); err != nil {
		return err
	}
	order.AppendHistory(entry)
	return nil
}

// insert stamps a fresh pending order and stores it, redrawing the order
// number when it collides with an existing one.
func (s *OrderService) insert(ctx context.Context, order *models.Order, note string) error {
	now := time.Now().UTC()
	order.Status = models.OrderStatusPending
	order.PaymentStatus = models.PaymentStatusPending
	order.CreatedAt = now
	order.UpdatedAt = now
	order.StatusHistory = []models.StatusHistoryEntry{{
		Status:    models.OrderStatusPending,
		Note:      note,
		Timestamp: now,
	}}

	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		order.OrderNumber = newOrderNumber(now)
		err = s.orderRepo.Create(ctx, order)
		if !errors.Is(err, repositories.ErrDuplicateKey) {
			break
		}
		log.Printf("Order number %s already taken, drawing another", order.OrderNumber)
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "Could not create order", err)
	}
	return nil
}

// CreateOrder places a new pending order owned by the caller.
func (s *OrderService) CreateOrder(ctx context.Context, p auth.Principal, in CreateOrderInput) (*models.Order, error) {
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}

	discount := decimal.Zero
	if in.Discount != nil {
		discount = *in.Discount
	}
	billing := *in.ShippingAddress
	if in.BillingAddress != nil {
		billing = *in.BillingAddress
	}

	items := make([]models.OrderItem, len(in.Items))
	for i, item := range in.Items {
		items[i] = models.OrderItem{
			ProductID: item.ProductID,
			SKU:       item.SKU,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: *item.UnitPrice,
			LineTotal: item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
	}

	order := &models.Order{
		UserID:          p.UserID,
		Items:           items,
		ShippingAddress: datatypes.NewJSONType(*in.ShippingAddress),
		BillingAddress:  datatypes.NewJSONType(billing),
		Subtotal:        *in.Subtotal,
		Tax:             *in.Tax,
		ShippingFee:     *in.ShippingFee,
		Discount:        discount,
		TotalAmount:     models.ComputeTotal(*in.Subtotal, *in.Tax, *in.ShippingFee, discount),
		PaymentMethod:   in.PaymentMethod,
	}
	if err := s.insert(ctx, order, "Order created"); err != nil {
		return nil, err
	}

	log.Printf("Order %s created for user %s", order.OrderNumber, order.UserID)
	s.events.emit(EventOrderCreated, newOrderEvent(order))
	return order, nil
}

// Reorder places a new order copying an existing one the caller owns.
// The original discount is not carried over.
func (s *OrderService) Reorder(ctx context.Context, p auth.Principal, id string) (*models.Order, error) {
	existing, err := loadOrder(ctx, s.orderRepo, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwner(p, existing.UserID); err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:          existing.UserID,
		Items:           append([]models.OrderItem(nil), existing.Items...),
		ShippingAddress: existing.ShippingAddress,
		BillingAddress:  existing.BillingAddress,
		Subtotal:        existing.Subtotal,
		Tax:             existing.Tax,
		ShippingFee:     existing.ShippingFee,
		Discount:        decimal.Zero,
		TotalAmount:     models.ComputeTotal(existing.Subtotal, existing.Tax, existing.ShippingFee, decimal.Zero),
		PaymentMethod:   existing.PaymentMethod,
	}
	if err := s.insert(ctx, order, fmt.Sprintf("Reordered from %s", existing.OrderNumber)); err != nil {
		return nil, err
	}

	log.Printf("Order %s reordered as %s", existing.OrderNumber, order.OrderNumber)
	s.events.emit(EventOrderCreated, newOrderEvent(order))
	return order, nil
}

// CancelOrder cancels a pending or processing order on behalf of its owner.
func (s *OrderService) CancelOrder(ctx context.Context, p auth.Principal, id string) (*models.Order, error) {
	order, err := loadOrder(ctx, s.orderRepo, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwner(p, order.UserID); err != nil {
		return nil, err
	}
	if !order.Status.Cancellable() {
		return nil, apperr.New(apperr.InvalidState, "Cannot cancel order in current status")
	}

	order.Status = models.OrderStatusCancelled
	entry := models.StatusHistoryEntry{
		Status:    models.OrderStatusCancelled,
		Note:      "Order cancelled by customer",
		Timestamp: time.Now().UTC(),
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return saveWithHistory(ctx, s.orderRepo, order, entry)
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not cancel order", err)
	}

	s.events.emit(EventOrderCancelled, newOrderEvent(order))
	return order, nil
}

// applyStatusUpdate sets the status unconditionally and records one history entry.
func (s *OrderService) applyStatusUpdate(ctx context.Context, order *models.Order, status models.OrderStatus, note string, update func(*models.Order)) error {
	order.Status = status
	if update != nil {
		update(order)
	}
	entry := models.StatusHistoryEntry{Status: status, Note: note, Timestamp: time.Now().UTC()}
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		return saveWithHistory(ctx, s.orderRepo, order, entry)
	})
}

// UpdateStatus is the admin escape hatch: any status may be set from any status.
func (s *OrderService) UpdateStatus(ctx context.Context, p auth.Principal, id string, in StatusUpdateInput) (*models.Order, error) {
	if err := auth.RequireAdmin(p); err != nil {
		return nil, err
	}
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}

	order, err := loadOrder(ctx, s.orderRepo, id)
	if err != nil {
		return nil, err
	}

	note := in.Note
	if note == "" {
		note = fmt.Sprintf("Status updated to %s", in.Status)
	}
	err = s.applyStatusUpdate(ctx, order, in.Status, note, func(o *models.Order) {
		if in.TrackingNumber != "" {
			o.TrackingNumber = in.TrackingNumber
		}
		if in.EstimatedDelivery != nil {
			eta := in.EstimatedDelivery.UTC()
			o.EstimatedDelivery = &eta
		}
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not update order status", err)
	}

	log.Printf("Order %s status set to %s by %s", order.OrderNumber, order.Status, p.UserID)
	s.events.emit(EventOrderStatusChanged, newOrderEvent(order))
	return order, nil
}

// BulkUpdateStatus applies UpdateStatus semantics to many orders concurrently.
// Unknown ids are skipped. The batch is not atomic: on error some orders may
// already be updated.
func (s *OrderService) BulkUpdateStatus(ctx context.Context, p auth.Principal, in BulkStatusInput) ([]models.Order, error) {
	if err := auth.RequireAdmin(p); err != nil {
		return nil, err
	}
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}

	note := in.Note
	if note == "" {
		note = fmt.Sprintf("Bulk status update to %s", in.Status)
	}

	results := make([]*models.Order, len(in.OrderIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.bulkConcurrency)
	for i, id := range in.OrderIDs {
		g.Go(func() error {
			order, err := s.orderRepo.GetByID(gctx, id)
			if errors.Is(err, repositories.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := s.applyStatusUpdate(gctx, order, in.Status, note, nil); err != nil {
				return err
			}
			results[i] = order
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not update orders", err)
	}

	updated := make([]models.Order, 0, len(results))
	for _, order := range results {
		if order != nil {
			updated = append(updated, *order)
			s.events.emit(EventOrderStatusChanged, newOrderEvent(order))
		}
	}
	log.Printf("Bulk status update to %s: %d of %d orders updated", in.Status, len(updated), len(in.OrderIDs))
	return updated, nil
}

// GetOrder returns an order visible to its owner or an admin.
func (s *OrderService) GetOrder(ctx context.Context, p auth.Principal, id string) (*models.Order, error) {
	order, err := loadOrder(ctx, s.orderRepo, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckOwnership(p, order.UserID); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrderByNumber returns an order by its order number.
func (s *OrderService) GetOrderByNumber(ctx context.Context, p auth.Principal, orderNumber string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Order not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "Could not retrieve order", err)
	}
	if err := auth.CheckOwnership(p, order.UserID); err != nil {
		return nil, err
	}
	return order, nil
}

// GetTimeline returns the tracking view of an order.
func (s *OrderService) GetTimeline(ctx context.Context, p auth.Principal, id string) (*models.Timeline, error) {
	order, err := s.GetOrder(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return models.NewTimeline(order), nil
}

// GetReceipt returns the invoice view of an order.
func (s *OrderService) GetReceipt(ctx context.Context, p auth.Principal, id string) (*models.Receipt, error) {
	order, err := s.GetOrder(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return models.NewReceipt(order), nil
}

func (s *OrderService) list(ctx context.Context, filter repositories.OrderFilter) ([]models.Order, error) {
	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not retrieve orders", err)
	}
	return orders, nil
}

// ListOrders returns the caller's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, p auth.Principal) ([]models.Order, error) {
	return s.list(ctx, repositories.OrderFilter{UserID: p.UserID})
}

// ListOrdersByStatus returns the caller's orders in the given status.
func (s *OrderService) ListOrdersByStatus(ctx context.Context, p auth.Principal, status string) ([]models.Order, error) {
	parsed, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Invalid order status", err)
	}
	return s.list(ctx, repositories.OrderFilter{UserID: p.UserID, Status: parsed})
}

// FilterOrders returns the caller's orders matching every supplied predicate.
func (s *OrderService) FilterOrders(ctx context.Context, p auth.Principal, filter repositories.OrderFilter) ([]models.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.New(apperr.Validation, "Invalid order status")
	}
	filter.UserID = p.UserID
	return s.list(ctx, filter)
}

// ListAllOrders returns every order. Admin only.
func (s *OrderService) ListAllOrders(ctx context.Context, p auth.Principal) ([]models.Order, error) {
	if err := auth.RequireAdmin(p); err != nil {
		return nil, err
	}
	return s.list(ctx, repositories.OrderFilter{})
}

// Stats aggregates order counts and revenue. Admin only.
func (s *OrderService) Stats(ctx context.Context, p auth.Principal) (*models.OrderStats, error) {
	if err := auth.RequireAdmin(p); err != nil {
		return nil, err
	}
	stats, err := s.orderRepo.Stats(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not compute order statistics", err)
	}
	stats.AverageOrderValue = stats.AverageOrderValue.Round(2)
	return stats, nil
}
