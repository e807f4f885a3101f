package repositories

import (
	"context"
	"errors"
	"time"

	"orderd/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a lookup resolves no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when a unique column already holds the value.
	ErrDuplicateKey = errors.New("duplicate key")
)

// OrderFilter selects orders. Zero-valued fields are ignored; the rest are ANDed.
type OrderFilter struct {
	UserID    string
	Status    models.OrderStatus
	StartDate *time.Time
	EndDate   *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

// OrderRepository defines the interface for order data access.
// List results are ordered by creation time, newest first.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	// Update saves the order's own fields. Status history is never rewritten.
	Update(ctx context.Context, order *models.Order) error
	AppendHistory(ctx context.Context, orderID string, entry *models.StatusHistoryEntry) error
	Stats(ctx context.Context) (*models.OrderStats, error)
}
