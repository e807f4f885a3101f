package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"orderd/internal/models"

	"github.com/google/uuid"
)

// MockPaymentRepository is an in-memory implementation of PaymentRepository.
type MockPaymentRepository struct {
	payments map[string]models.Payment
	mu       sync.RWMutex
}

// NewMockPaymentRepository creates a new instance of MockPaymentRepository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]models.Payment),
	}
}

// Create adds a new payment.
func (r *MockPaymentRepository) Create(_ context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.payments {
		if existing.TransactionID == payment.TransactionID {
			return fmt.Errorf("transaction %s already exists: %w", payment.TransactionID, ErrDuplicateKey)
		}
	}

	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	payment.UpdatedAt = payment.CreatedAt
	r.payments[payment.ID] = *payment
	return nil
}

// GetByID returns a payment by its ID.
func (r *MockPaymentRepository) GetByID(_ context.Context, id string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment with ID %s: %w", id, ErrNotFound)
	}
	return &payment, nil
}

// GetByTransactionID returns a payment by its transaction id.
func (r *MockPaymentRepository) GetByTransactionID(_ context.Context, transactionID string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, payment := range r.payments {
		if payment.TransactionID == transactionID {
			return &payment, nil
		}
	}
	return nil, fmt.Errorf("payment with transaction %s: %w", transactionID, ErrNotFound)
}

func (r *MockPaymentRepository) list(keep func(models.Payment) bool) []models.Payment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paymentList := make([]models.Payment, 0)
	for _, p := range r.payments {
		if keep(p) {
			paymentList = append(paymentList, p)
		}
	}
	sort.SliceStable(paymentList, func(i, j int) bool {
		return paymentList[i].CreatedAt.After(paymentList[j].CreatedAt)
	})
	return paymentList
}

// ListByOrder returns the payments recorded against an order.
func (r *MockPaymentRepository) ListByOrder(_ context.Context, orderID string) ([]models.Payment, error) {
	return r.list(func(p models.Payment) bool { return p.OrderID == orderID }), nil
}

// ListByUser returns a user's payment history.
func (r *MockPaymentRepository) ListByUser(_ context.Context, userID string) ([]models.Payment, error) {
	return r.list(func(p models.Payment) bool { return p.UserID == userID }), nil
}

// Update modifies an existing payment.
func (r *MockPaymentRepository) Update(_ context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[payment.ID]; !ok {
		return fmt.Errorf("payment with ID %s for update: %w", payment.ID, ErrNotFound)
	}
	payment.UpdatedAt = time.Now().UTC()
	r.payments[payment.ID] = *payment
	return nil
}

// Stats aggregates payment counts, revenue and the per-method breakdown.
func (r *MockPaymentRepository) Stats(_ context.Context) (*models.PaymentStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.PaymentStats{
		PaymentsByStatus:       make(map[models.SettlementStatus]int64, len(models.SettlementStatuses)),
		PaymentMethodBreakdown: []models.MethodBreakdown{},
	}
	for _, s := range models.SettlementStatuses {
		stats.PaymentsByStatus[s] = 0
	}

	byMethod := make(map[models.PaymentMethod]*models.MethodBreakdown)
	for _, p := range r.payments {
		stats.TotalPayments++
		stats.PaymentsByStatus[p.Status]++
		if p.Status != models.SettlementCompleted {
			continue
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(p.Amount)
		b, ok := byMethod[p.Method]
		if !ok {
			b = &models.MethodBreakdown{Method: p.Method}
			byMethod[p.Method] = b
		}
		b.Count++
		b.Total = b.Total.Add(p.Amount)
	}
	for _, b := range byMethod {
		stats.PaymentMethodBreakdown = append(stats.PaymentMethodBreakdown, *b)
	}
	sort.Slice(stats.PaymentMethodBreakdown, func(i, j int) bool {
		return stats.PaymentMethodBreakdown[i].Method < stats.PaymentMethodBreakdown[j].Method
	})
	return stats, nil
}
