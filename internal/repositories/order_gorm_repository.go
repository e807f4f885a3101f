package repositories

import (
	"context"
	"errors"
	"fmt"

	"orderd/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// moneyPlaces is the scale of every money column. SQLite keeps decimal(12,2)
// as REAL, so its aggregates come back as floats and are rounded here.
const moneyPlaces = 2

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

func withHistory(db *gorm.DB) *gorm.DB {
	return db.Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

// Create inserts the order together with its initial status history.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for i := range order.StatusHistory {
		order.StatusHistory[i].OrderID = order.ID
	}
	if err := conn(ctx, r.db).Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("order number %s already exists: %w", order.OrderNumber, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves a single order by its ID.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := withHistory(conn(ctx, r.db)).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// GetByOrderNumber retrieves a single order by its human-facing number.
func (r *GORMOrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	if err := withHistory(conn(ctx, r.db)).First(&order, "order_number = ?", orderNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with number %s: %w", orderNumber, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by number %s: %w", orderNumber, err)
	}
	return &order, nil
}

// List retrieves the orders matching filter, newest first.
func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := withHistory(conn(ctx, r.db)).Model(&models.Order{})
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.StartDate != nil {
		q = q.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		q = q.Where("created_at <= ?", *filter.EndDate)
	}
	if filter.MinAmount != nil {
		q = q.Where("total_amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		q = q.Where("total_amount <= ?", *filter.MaxAmount)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Update saves the order's scalar and embedded fields. History rows are left untouched.
func (r *GORMOrderRepository) Update(ctx context.Context, order *models.Order) error {
	res := conn(ctx, r.db).Omit(clause.Associations).Save(order)
	if res.Error != nil {
		return fmt.Errorf("failed to update order: %w", res.Error)
	}
	return nil
}

// AppendHistory inserts one status history row for the order.
func (r *GORMOrderRepository) AppendHistory(ctx context.Context, orderID string, entry *models.StatusHistoryEntry) error {
	entry.ID = 0
	entry.OrderID = orderID
	if err := conn(ctx, r.db).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append status history for order %s: %w", orderID, err)
	}
	return nil
}

// Stats aggregates order counts and revenue.
func (r *GORMOrderRepository) Stats(ctx context.Context) (*models.OrderStats, error) {
	db := conn(ctx, r.db)
	stats := &models.OrderStats{OrdersByStatus: make(map[models.OrderStatus]int64, len(models.OrderStatuses))}
	for _, s := range models.OrderStatuses {
		stats.OrdersByStatus[s] = 0
	}

	if err := db.Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := db.Model(&models.Order{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	for _, row := range rows {
		stats.OrdersByStatus[row.Status] = row.Count
	}

	var revenue decimal.Decimal
	if err := db.Model(&models.Order{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("payment_status = ?", models.PaymentStatusPaid).
		Row().Scan(&revenue); err != nil {
		return nil, fmt.Errorf("failed to sum order revenue: %w", err)
	}
	stats.TotalRevenue = revenue.Round(moneyPlaces)

	var average decimal.Decimal
	if err := db.Model(&models.Order{}).Select("COALESCE(AVG(total_amount), 0)").Row().Scan(&average); err != nil {
		return nil, fmt.Errorf("failed to average order value: %w", err)
	}
	stats.AverageOrderValue = average.Round(moneyPlaces)

	return stats, nil
}
