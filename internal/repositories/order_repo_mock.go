package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"orderd/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// clone copies the order so callers never share the stored slices.
func clone(o models.Order) models.Order {
	o.Items = append(o.Items[:0:0], o.Items...)
	o.StatusHistory = append([]models.StatusHistoryEntry(nil), o.StatusHistory...)
	return o
}

// Create adds a new order.
func (r *MockOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.orders {
		if existing.OrderNumber == order.OrderNumber {
			return fmt.Errorf("order number %s already exists: %w", order.OrderNumber, ErrDuplicateKey)
		}
	}

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt
	for i := range order.StatusHistory {
		order.StatusHistory[i].ID = uint(i + 1)
		order.StatusHistory[i].OrderID = order.ID
	}
	r.orders[order.ID] = clone(*order)
	return nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
	}
	order = clone(order)
	return &order, nil
}

// GetByOrderNumber returns an order by its human-facing number.
func (r *MockOrderRepository) GetByOrderNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.OrderNumber == orderNumber {
			order = clone(order)
			return &order, nil
		}
	}
	return nil, fmt.Errorf("order with number %s: %w", orderNumber, ErrNotFound)
}

func (f OrderFilter) matches(o models.Order) bool {
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.StartDate != nil && o.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && o.CreatedAt.After(*f.EndDate) {
		return false
	}
	if f.MinAmount != nil && o.TotalAmount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && o.TotalAmount.GreaterThan(*f.MaxAmount) {
		return false
	}
	return true
}

// List returns the orders matching filter, newest first.
func (r *MockOrderRepository) List(_ context.Context, filter OrderFilter) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if filter.matches(order) {
			orderList = append(orderList, clone(order))
		}
	}
	sort.SliceStable(orderList, func(i, j int) bool {
		return orderList[i].CreatedAt.After(orderList[j].CreatedAt)
	})
	return orderList, nil
}

// Update replaces the stored order's fields, keeping its status history.
func (r *MockOrderRepository) Update(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	if !ok {
		return fmt.Errorf("order with ID %s for update: %w", order.ID, ErrNotFound)
	}
	order.UpdatedAt = time.Now().UTC()
	updated := clone(*order)
	updated.StatusHistory = stored.StatusHistory
	r.orders[order.ID] = updated
	return nil
}

// AppendHistory adds one status history entry to the stored order.
func (r *MockOrderRepository) AppendHistory(_ context.Context, orderID string, entry *models.StatusHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[orderID]
	if !ok {
		return fmt.Errorf("order with ID %s for history: %w", orderID, ErrNotFound)
	}
	entry.OrderID = orderID
	entry.ID = uint(len(stored.StatusHistory) + 1)
	stored.StatusHistory = append(stored.StatusHistory, *entry)
	r.orders[orderID] = stored
	return nil
}

// Stats aggregates order counts and revenue.
func (r *MockOrderRepository) Stats(_ context.Context) (*models.OrderStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.OrderStats{OrdersByStatus: make(map[models.OrderStatus]int64, len(models.OrderStatuses))}
	for _, s := range models.OrderStatuses {
		stats.OrdersByStatus[s] = 0
	}

	sum := decimal.Zero
	for _, order := range r.orders {
		stats.TotalOrders++
		stats.OrdersByStatus[order.Status]++
		sum = sum.Add(order.TotalAmount)
		if order.PaymentStatus == models.PaymentStatusPaid {
			stats.TotalRevenue = stats.TotalRevenue.Add(order.TotalAmount)
		}
	}
	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = sum.Div(decimal.NewFromInt(stats.TotalOrders))
	}
	return stats, nil
}
