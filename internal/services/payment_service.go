package services

import (
	"context"
	"errors"
	"log"
	"time"

	"orderd/internal/apperr"
	"orderd/internal/auth"
	"orderd/internal/models"
	"orderd/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ProcessPaymentInput is a request to settle an order. The amount is always
// taken from the order.
type ProcessPaymentInput struct {
	OrderID     string               `json:"order_id" validate:"required"`
	Method      models.PaymentMethod `json:"payment_method" validate:"required,payment_method"`
	CardDetails *models.CardDetails  `json:"card_details"`
}

// WebhookInput is a settlement callback from the payment provider.
type WebhookInput struct {
	TransactionID string `json:"transaction_id" validate:"required"`
	Status        string `json:"status" validate:"required,settlement_status"`
}

// SettlementResult pairs a payment with the order it settled.
type SettlementResult struct {
	Payment *models.Payment `json:"payment"`
	Order   *models.Order   `json:"order,omitempty"`
}

type paymentEvent struct {
	PaymentID     string                  `json:"payment_id"`
	OrderID       string                  `json:"order_id"`
	UserID        string                  `json:"user_id"`
	TransactionID string                  `json:"transaction_id"`
	Amount        decimal.Decimal         `json:"amount"`
	Method        models.PaymentMethod    `json:"method"`
	Status        models.SettlementStatus `json:"status"`
}

func newPaymentEvent(p *models.Payment) paymentEvent {
	return paymentEvent{
		PaymentID:     p.ID,
		OrderID:       p.OrderID,
		UserID:        p.UserID,
		TransactionID: p.TransactionID,
		Amount:        p.Amount,
		Method:        p.Method,
		Status:        p.Status,
	}
}

// PaymentService records payments and propagates their outcome onto orders.
type PaymentService struct {
	paymentRepo repositories.PaymentRepository
	orderRepo   repositories.OrderRepository
	tx          repositories.Transactor
	validate    *validator.Validate
	events      emitter
}

// NewPaymentService creates a new PaymentService. publisher may be nil.
func NewPaymentService(paymentRepo repositories.PaymentRepository, orderRepo repositories.OrderRepository, tx repositories.Transactor, publisher EventPublisher) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		tx:          tx,
		validate:    newValidator(),
		events:      emitter{publisher: publisher},
	}
}

func (s *PaymentService) loadPayment(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Payment not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "Could not retrieve payment", err)
	}
	return payment, nil
}

// markPaid stamps a settled payment onto its order and moves it to processing.
func markPaid(ctx context.Context, repo repositories.OrderRepository, order *models.Order, payment *models.Payment, note string, now time.Time) error {
	order.PaymentStatus = models.PaymentStatusPaid
	order.PaymentDetails = models.PaymentDetails{TransactionID: payment.TransactionID, PaidAt: &now}
	order.Status = models.OrderStatusProcessing
	return saveWithHistory(ctx, repo, order, models.StatusHistoryEntry{
		Status:    models.OrderStatusProcessing,
		Note:      note,
		Timestamp: now,
	})
}

// ProcessPayment creates a completed payment for an order the caller owns
// and marks the order paid in the same transaction.
func (s *PaymentService) ProcessPayment(ctx context.Context, p auth.Principal, in ProcessPaymentInput) (*SettlementResult, error) {
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}

	order, err := loadOrder(ctx, s.orderRepo, in.OrderID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwner(p, order.UserID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		OrderID:       order.ID,
		UserID:        p.UserID,
		Amount:        order.TotalAmount,
		Method:        in.Method,
		Status:        models.SettlementCompleted,
		TransactionID: newTransactionID(now),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.CardDetails != nil {
		payment.CardDetails = *in.CardDetails
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			return err
		}
		return markPaid(ctx, s.orderRepo, order, payment, "Payment received, order is being processed", now)
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not process payment", err)
	}

	log.Printf("Payment %s of %s recorded for order %s", payment.TransactionID, payment.Amount, order.OrderNumber)
	s.events.emit(EventPaymentCompleted, newPaymentEvent(payment))
	return &SettlementResult{Payment: payment, Order: order}, nil
}

// RetryPayment completes a failed payment owned by the caller. The order is
// updated only if it still exists.
func (s *PaymentService) RetryPayment(ctx context.Context, p auth.Principal, id string) (*SettlementResult, error) {
	payment, err := s.loadPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwner(p, payment.UserID); err != nil {
		return nil, err
	}
	if payment.Status != models.SettlementFailed {
		return nil, apperr.New(apperr.InvalidState, "Can only retry failed payments")
	}

	now := time.Now().UTC()
	payment.Status = models.SettlementCompleted
	payment.RetryCount++
	payment.FailureReason = ""

	var order *models.Order
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.paymentRepo.Update(ctx, payment); err != nil {
			return err
		}
		found, err := s.orderRepo.GetByID(ctx, payment.OrderID)
		if errors.Is(err, repositories.ErrNotFound) {
			log.Printf("Order %s of payment %s no longer exists, skipping order update", payment.OrderID, payment.ID)
			return nil
		}
		if err != nil {
			return err
		}
		order = found
		return markPaid(ctx, s.orderRepo, order, payment, "Payment retry successful", now)
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not retry payment", err)
	}

	s.events.emit(EventPaymentRetried, newPaymentEvent(payment))
	return &SettlementResult{Payment: payment, Order: order}, nil
}

// RefundPayment refunds a completed payment. Admin only. The order keeps its
// fulfillment status; only its payment status changes.
func (s *PaymentService) RefundPayment(ctx context.Context, p auth.Principal, id string) (*SettlementResult, error) {
	if err := auth.RequireAdmin(p); err != nil {
		return nil, err
	}
	payment, err := s.loadPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.SettlementCompleted {
		return nil, apperr.New(apperr.InvalidState, "Can only refund completed payments")
	}

	now := time.Now().UTC()
	payment.Status = models.SettlementRefunded

	var order *models.Order
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.paymentRepo.Update(ctx, payment); err != nil {
			return err
		}
		found, err := s.orderRepo.GetByID(ctx, payment.OrderID)
		if errors.Is(err, repositories.ErrNotFound) {
			log.Printf("Order %s of payment %s no longer exists, skipping order update", payment.OrderID, payment.ID)
			return nil
		}
		if err != nil {
			return err
		}
		order = found
		order.PaymentStatus = models.PaymentStatusRefunded
		return saveWithHistory(ctx, s.orderRepo, order, models.StatusHistoryEntry{
			Status:    order.Status,
			Note:      "Payment refunded",
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not refund payment", err)
	}

	log.Printf("Payment %s refunded by %s", payment.TransactionID, p.UserID)
	s.events.emit(EventPaymentRefunded, newPaymentEvent(payment))
	return &SettlementResult{Payment: payment, Order: order}, nil
}

// HandleWebhook overwrites a payment's status from a provider callback.
// No credential is checked and no precondition applies; the order is left
// untouched. Callers must authenticate the provider out of band.
func (s *PaymentService) HandleWebhook(ctx context.Context, in WebhookInput) (*models.Payment, error) {
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}
	status, err := models.ParseSettlementStatus(in.Status)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Invalid payment status", err)
	}

	payment, err := s.paymentRepo.GetByTransactionID(ctx, in.TransactionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Payment not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "Could not retrieve payment", err)
	}

	payment.Status = status
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not update payment", err)
	}

	log.Printf("Webhook set payment %s to %s", payment.TransactionID, status)
	s.events.emit(EventPaymentWebhook, newPaymentEvent(payment))
	return payment, nil
}

// GetPayment returns a payment visible to its owner or an admin.
func (s *PaymentService) GetPayment(ctx context.Context, p auth.Principal, id string) (*models.Payment, error) {
	payment, err := s.loadPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CheckOwnership(p, payment.UserID); err != nil {
		return nil, err
	}
	return payment, nil
}

// ListPaymentsByOrder returns the payments of an order. Access is decided by
// the owner of the first payment; an empty list is returned as is.
func (s *PaymentService) ListPaymentsByOrder(ctx context.Context, p auth.Principal, orderID string) ([]models.Payment, error) {
	payments, err := s.paymentRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not retrieve payments", err)
	}
	if len(payments) > 0 {
		if err := auth.CheckOwnership(p, payments[0].UserID); err != nil {
			return nil, err
		}
	}
	return payments, nil
}

// ListPaymentHistory returns the caller's payments, newest first.
func (s *PaymentService) ListPaymentHistory(ctx context.Context, p auth.Principal) ([]models.Payment, error) {
	payments, err := s.paymentRepo.ListByUser(ctx, p.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not retrieve payments", err)
	}
	return payments, nil
}

// Stats aggregates payment counts and completed revenue. Admin only.
func (s *PaymentService) Stats(ctx context.Context, p auth.Principal) (*models.PaymentStats, error) {
	if err := auth.RequireAdmin(p); err != nil {
		return nil, err
	}
	stats, err := s.paymentRepo.Stats(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not compute payment statistics", err)
	}
	return stats, nil
}
