package models

import "github.com/shopspring/decimal"

// OrderStats aggregates the orders collection.
type OrderStats struct {
	TotalOrders       int64                 `json:"total_orders"`
	OrdersByStatus    map[OrderStatus]int64 `json:"orders_by_status"`
	TotalRevenue      decimal.Decimal       `json:"total_revenue"`
	AverageOrderValue decimal.Decimal       `json:"average_order_value"`
}

// MethodBreakdown is the completed-payment volume for one method.
type MethodBreakdown struct {
	Method PaymentMethod   `json:"method"`
	Count  int64           `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// PaymentStats aggregates the payments collection.
type PaymentStats struct {
	TotalPayments          int64                      `json:"total_payments"`
	PaymentsByStatus       map[SettlementStatus]int64 `json:"payments_by_status"`
	TotalRevenue           decimal.Decimal            `json:"total_revenue"`
	PaymentMethodBreakdown []MethodBreakdown          `json:"payment_method_breakdown"`
}
