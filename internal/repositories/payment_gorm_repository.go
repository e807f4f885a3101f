package repositories

import (
	"context"
	"errors"
	"fmt"

	"orderd/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GORMPaymentRepository is a GORM implementation of PaymentRepository.
type GORMPaymentRepository struct {
	db *gorm.DB
}

// NewGORMPaymentRepository creates a new instance of GORMPaymentRepository.
func NewGORMPaymentRepository(db *gorm.DB) *GORMPaymentRepository {
	return &GORMPaymentRepository{
		db: db,
	}
}

// Create inserts a new payment.
func (r *GORMPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if err := conn(ctx, r.db).Create(payment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("transaction %s already exists: %w", payment.TransactionID, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByID retrieves a single payment by its ID.
func (r *GORMPaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := conn(ctx, r.db).First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment by ID %s: %w", id, err)
	}
	return &payment, nil
}

// GetByTransactionID retrieves a single payment by its transaction id.
func (r *GORMPaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	if err := conn(ctx, r.db).First(&payment, "transaction_id = ?", transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment with transaction %s: %w", transactionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment by transaction %s: %w", transactionID, err)
	}
	return &payment, nil
}

// ListByOrder retrieves the payments recorded against an order.
func (r *GORMPaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]models.Payment, error) {
	var payments []models.Payment
	if err := conn(ctx, r.db).Where("order_id = ?", orderID).Order("created_at DESC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments for order %s: %w", orderID, err)
	}
	return payments, nil
}

// ListByUser retrieves a user's payment history.
func (r *GORMPaymentRepository) ListByUser(ctx context.Context, userID string) ([]models.Payment, error) {
	var payments []models.Payment
	if err := conn(ctx, r.db).Where("user_id = ?", userID).Order("created_at DESC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments for user %s: %w", userID, err)
	}
	return payments, nil
}

// Update saves every field of the payment.
func (r *GORMPaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	if err := conn(ctx, r.db).Save(payment).Error; err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

// Stats aggregates payment counts, revenue and the per-method breakdown.
func (r *GORMPaymentRepository) Stats(ctx context.Context) (*models.PaymentStats, error) {
	db := conn(ctx, r.db)
	stats := &models.PaymentStats{
		PaymentsByStatus:       make(map[models.SettlementStatus]int64, len(models.SettlementStatuses)),
		PaymentMethodBreakdown: []models.MethodBreakdown{},
	}
	for _, s := range models.SettlementStatuses {
		stats.PaymentsByStatus[s] = 0
	}

	if err := db.Model(&models.Payment{}).Count(&stats.TotalPayments).Error; err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	var rows []struct {
		Status models.SettlementStatus
		Count  int64
	}
	if err := db.Model(&models.Payment{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count payments by status: %w", err)
	}
	for _, row := range rows {
		stats.PaymentsByStatus[row.Status] = row.Count
	}

	var revenue decimal.Decimal
	if err := db.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("status = ?", models.SettlementCompleted).
		Row().Scan(&revenue); err != nil {
		return nil, fmt.Errorf("failed to sum payment revenue: %w", err)
	}
	stats.TotalRevenue = revenue.Round(moneyPlaces)

	if err := db.Model(&models.Payment{}).
		Select("method, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", models.SettlementCompleted).
		Group("method").
		Order("method").
		Scan(&stats.PaymentMethodBreakdown).Error; err != nil {
		return nil, fmt.Errorf("failed to break down payments by method: %w", err)
	}
	for i := range stats.PaymentMethodBreakdown {
		stats.PaymentMethodBreakdown[i].Total = stats.PaymentMethodBreakdown[i].Total.Round(moneyPlaces)
	}

	return stats, nil
}
