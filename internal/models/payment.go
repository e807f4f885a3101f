package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how a customer pays.
type PaymentMethod string

const (
	PaymentMethodCreditCard     PaymentMethod = "credit_card"
	PaymentMethodDebitCard      PaymentMethod = "debit_card"
	PaymentMethodPayPal         PaymentMethod = "paypal"
	PaymentMethodGCash          PaymentMethod = "gcash"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// Valid reports whether m is one of the supported payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPayPal, PaymentMethodGCash, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

// SettlementStatus is the state of a single payment record.
type SettlementStatus string

const (
	SettlementPending    SettlementStatus = "pending"
	SettlementProcessing SettlementStatus = "processing"
	SettlementCompleted  SettlementStatus = "completed"
	SettlementFailed     SettlementStatus = "failed"
	SettlementRefunded   SettlementStatus = "refunded"
)

// SettlementStatuses lists every payment record status.
var SettlementStatuses = []SettlementStatus{
	SettlementPending,
	SettlementProcessing,
	SettlementCompleted,
	SettlementFailed,
	SettlementRefunded,
}

// ParseSettlementStatus converts s into a SettlementStatus, rejecting unknown values.
func ParseSettlementStatus(s string) (SettlementStatus, error) {
	status := SettlementStatus(s)
	switch status {
	case SettlementPending, SettlementProcessing, SettlementCompleted, SettlementFailed, SettlementRefunded:
		return status, nil
	}
	return "", fmt.Errorf("invalid payment status: %q", s)
}

// CardDetails is the non-sensitive card snapshot kept with a payment.
type CardDetails struct {
	Last4 string `json:"last4,omitempty" gorm:"type:varchar(4)" validate:"omitempty,len=4,numeric"`
	Brand string `json:"brand,omitempty" gorm:"type:varchar(32)"`
}

// Payment is one settlement attempt against an order.
type Payment struct {
	ID            string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID       string           `json:"order_id" gorm:"index;type:varchar(36);not null"`
	UserID        string           `json:"user_id" gorm:"index;type:varchar(64);not null"`
	Amount        decimal.Decimal  `json:"amount" gorm:"type:decimal(12,2);not null"`
	Method        PaymentMethod    `json:"method" gorm:"type:varchar(32);not null"`
	Status        SettlementStatus `json:"status" gorm:"type:varchar(20);index;not null"`
	TransactionID string           `json:"transaction_id" gorm:"uniqueIndex;type:varchar(40);not null"`
	CardDetails   CardDetails      `json:"card_details" gorm:"embedded;embeddedPrefix:card_"`
	FailureReason string           `json:"failure_reason,omitempty" gorm:"type:varchar(255)"`
	RetryCount    int              `json:"retry_count" gorm:"not null;default:0"`
	CreatedAt     time.Time        `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
