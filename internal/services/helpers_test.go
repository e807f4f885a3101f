package services_test

import (
	"context"
	"testing"

	"orderd/internal/auth"
	"orderd/internal/models"
	"orderd/internal/repositories"
	"orderd/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, body []byte) error {
	args := m.Called(routingKey, body)
	return args.Error(0)
}

var (
	alice = auth.Principal{UserID: "alice", Role: auth.RoleCustomer}
	bob   = auth.Principal{UserID: "bob", Role: auth.RoleCustomer}
	admin = auth.Principal{UserID: "ops", Role: auth.RoleAdmin}
)

type fixture struct {
	orders    *services.OrderService
	payments  *services.PaymentService
	orderRepo *repositories.MockOrderRepository
	payRepo   *repositories.MockPaymentRepository
	publisher *MockPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	orderRepo := repositories.NewMockOrderRepository()
	payRepo := repositories.NewMockPaymentRepository()
	tx := repositories.MemoryTransactor{}
	return &fixture{
		orders:    services.NewOrderService(orderRepo, tx, publisher),
		payments:  services.NewPaymentService(payRepo, orderRepo, tx, publisher),
		orderRepo: orderRepo,
		payRepo:   payRepo,
		publisher: publisher,
	}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func createInput(subtotal, tax, shipping, discount string) services.CreateOrderInput {
	in := services.CreateOrderInput{
		Items: []services.OrderItemInput{{
			ProductID: "prod-1",
			SKU:       "SKU-1",
			Name:      "Widget",
			Quantity:  2,
			UnitPrice: dec("50"),
		}},
		ShippingAddress: &models.Address{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US"},
		Subtotal:        dec(subtotal),
		Tax:             dec(tax),
		ShippingFee:     dec(shipping),
		PaymentMethod:   models.PaymentMethodCreditCard,
	}
	if discount != "" {
		in.Discount = dec(discount)
	}
	return in
}

func (f *fixture) createOrder(t *testing.T, p auth.Principal) *models.Order {
	t.Helper()
	order, err := f.orders.CreateOrder(context.Background(), p, createInput("100", "10", "5", "0"))
	require.NoError(t, err)
	return order
}

// forceStatus moves an order to status without recording history.
func (f *fixture) forceStatus(t *testing.T, id string, status models.OrderStatus) {
	t.Helper()
	ctx := context.Background()
	order, err := f.orderRepo.GetByID(ctx, id)
	require.NoError(t, err)
	order.Status = status
	require.NoError(t, f.orderRepo.Update(ctx, order))
}
