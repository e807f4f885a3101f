package repositories

import (
	"context"

	"orderd/internal/models"
)

// PaymentRepository defines the interface for payment data access.
// List results are ordered by creation time, newest first.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	ListByOrder(ctx context.Context, orderID string) ([]models.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
	Stats(ctx context.Context) (*models.PaymentStats, error)
}
