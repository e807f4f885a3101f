package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

func init() {
	// Money is rendered as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every order status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ParseOrderStatus converts s into an OrderStatus, rejecting unknown values.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("invalid order status: %q", s)
	}
	return status, nil
}

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Cancellable reports whether a customer may still cancel an order in this status.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusProcessing
}

// PaymentStatus is the order-side view of settlement.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Address is a postal address snapshot stored with the order.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// OrderItem represents a single line within an order.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// StatusHistoryEntry is one append-only record of an order status change.
type StatusHistoryEntry struct {
	ID        uint        `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderID   string      `json:"-" gorm:"index;type:varchar(36);not null"`
	Status    OrderStatus `json:"status" gorm:"type:varchar(20);not null"`
	Note      string      `json:"note" gorm:"type:varchar(255)"`
	Timestamp time.Time   `json:"timestamp" gorm:"not null"`
}

// TableName keeps history rows in their own table.
func (StatusHistoryEntry) TableName() string {
	return "order_status_history"
}

// PaymentDetails is stamped onto an order once a payment settles.
type PaymentDetails struct {
	TransactionID string     `json:"transaction_id,omitempty" gorm:"type:varchar(64)"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// Order represents a customer order.
type Order struct {
	ID                string                         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderNumber       string                         `json:"order_number" gorm:"uniqueIndex;type:varchar(40);not null"`
	UserID            string                         `json:"user_id" gorm:"index;type:varchar(64);not null"`
	Items             datatypes.JSONSlice[OrderItem] `json:"items"`
	ShippingAddress   datatypes.JSONType[Address]    `json:"shipping_address"`
	BillingAddress    datatypes.JSONType[Address]    `json:"billing_address"`
	Subtotal          decimal.Decimal                `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	Tax               decimal.Decimal                `json:"tax" gorm:"type:decimal(12,2);not null"`
	ShippingFee       decimal.Decimal                `json:"shipping_fee" gorm:"type:decimal(12,2);not null"`
	Discount          decimal.Decimal                `json:"discount" gorm:"type:decimal(12,2);not null"`
	TotalAmount       decimal.Decimal                `json:"total_amount" gorm:"type:decimal(12,2);not null;index"`
	Status            OrderStatus                    `json:"status" gorm:"type:varchar(20);index;not null"`
	StatusHistory     []StatusHistoryEntry           `json:"status_history" gorm:"foreignKey:OrderID"`
	PaymentStatus     PaymentStatus                  `json:"payment_status" gorm:"type:varchar(20);index;not null"`
	PaymentMethod     PaymentMethod                  `json:"payment_method,omitempty" gorm:"type:varchar(32)"`
	PaymentDetails    PaymentDetails                 `json:"payment_details" gorm:"embedded;embeddedPrefix:payment_"`
	TrackingNumber    string                         `json:"tracking_number,omitempty" gorm:"type:varchar(64)"`
	EstimatedDelivery *time.Time                     `json:"estimated_delivery,omitempty"`
	CreatedAt         time.Time                      `json:"created_at" gorm:"index"`
	UpdatedAt         time.Time                      `json:"updated_at"`
}

// ComputeTotal returns subtotal + tax + shippingFee - discount.
func ComputeTotal(subtotal, tax, shippingFee, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax).Add(shippingFee).Sub(discount)
}

// AppendHistory records a status change on the in-memory order.
func (o *Order) AppendHistory(entry StatusHistoryEntry) {
	entry.OrderID = o.ID
	o.StatusHistory = append(o.StatusHistory, entry)
}

// Timeline is the tracking view of an order.
type Timeline struct {
	OrderNumber       string               `json:"order_number"`
	CurrentStatus     OrderStatus          `json:"current_status"`
	TrackingNumber    string               `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time           `json:"estimated_delivery,omitempty"`
	Timeline          []StatusHistoryEntry `json:"timeline"`
}

// NewTimeline projects o onto its tracking view.
func NewTimeline(o *Order) *Timeline {
	return &Timeline{
		OrderNumber:       o.OrderNumber,
		CurrentStatus:     o.Status,
		TrackingNumber:    o.TrackingNumber,
		EstimatedDelivery: o.EstimatedDelivery,
		Timeline:          o.StatusHistory,
	}
}

// Receipt is the invoice view of an order.
type Receipt struct {
	OrderNumber     string          `json:"order_number"`
	OrderDate       time.Time       `json:"order_date"`
	Items           []OrderItem     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	Discount        decimal.Decimal `json:"discount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaymentMethod   PaymentMethod   `json:"payment_method,omitempty"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	ShippingAddress Address         `json:"shipping_address"`
	BillingAddress  Address         `json:"billing_address"`
}

// NewReceipt projects o onto its invoice view.
func NewReceipt(o *Order) *Receipt {
	return &Receipt{
		OrderNumber:     o.OrderNumber,
		OrderDate:       o.CreatedAt,
		Items:           o.Items,
		Subtotal:        o.Subtotal,
		Tax:             o.Tax,
		ShippingFee:     o.ShippingFee,
		Discount:        o.Discount,
		TotalAmount:     o.TotalAmount,
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		ShippingAddress: o.ShippingAddress.Data(),
		BillingAddress:  o.BillingAddress.Data(),
	}
}
