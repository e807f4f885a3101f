package repositories_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"orderd/internal/config"
	"orderd/internal/database"
	"orderd/internal/models"
	"orderd/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.Config{
		DatabaseDriver: "sqlite",
		DatabaseDSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newOrder(userID, number string, total int64, created time.Time) *models.Order {
	amount := decimal.NewFromInt(total)
	return &models.Order{
		OrderNumber: number,
		UserID:      userID,
		Items: datatypes.JSONSlice[models.OrderItem]{{
			ProductID: "prod-1",
			Name:      "Widget",
			Quantity:  1,
			UnitPrice: amount,
			LineTotal: amount,
		}},
		ShippingAddress: datatypes.NewJSONType(models.Address{City: "Springfield"}),
		BillingAddress:  datatypes.NewJSONType(models.Address{City: "Springfield"}),
		Subtotal:        amount,
		TotalAmount:     amount,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		StatusHistory: []models.StatusHistoryEntry{{
			Status:    models.OrderStatusPending,
			Note:      "Order created",
			Timestamp: created,
		}},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestGORMOrderRepository_CreateAndGet(t *testing.T) {
	repo := repositories.NewGORMOrderRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	order := newOrder("alice", "ORD-1-001", 115, now)
	require.NoError(t, repo.Create(ctx, order))
	assert.NotEmpty(t, order.ID)

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1-001", got.OrderNumber)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(115)))
	assert.Equal(t, "Springfield", got.ShippingAddress.Data().City)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Widget", got.Items[0].Name)
	require.Len(t, got.StatusHistory, 1)
	assert.Equal(t, "Order created", got.StatusHistory[0].Note)

	byNumber, err := repo.GetByOrderNumber(ctx, "ORD-1-001")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	_, err = repo.GetByOrderNumber(ctx, "ORD-0-000")
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	err = repo.Create(ctx, newOrder("bob", "ORD-1-001", 10, now))
	assert.True(t, errors.Is(err, repositories.ErrDuplicateKey))
}

func TestGORMOrderRepository_UpdateKeepsHistory(t *testing.T) {
	repo := repositories.NewGORMOrderRepository(setupDB(t))
	ctx := context.Background()

	order := newOrder("alice", "ORD-2-001", 50, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, order))

	order.Status = models.OrderStatusShipped
	order.TrackingNumber = "1Z999"
	require.NoError(t, repo.Update(ctx, order))
	require.NoError(t, repo.AppendHistory(ctx, order.ID, &models.StatusHistoryEntry{
		Status:    models.OrderStatusShipped,
		Note:      "Status updated to shipped",
		Timestamp: time.Now().UTC(),
	}))

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, got.Status)
	assert.Equal(t, "1Z999", got.TrackingNumber)
	require.Len(t, got.StatusHistory, 2)
	assert.Equal(t, models.OrderStatusPending, got.StatusHistory[0].Status)
	assert.Equal(t, models.OrderStatusShipped, got.StatusHistory[1].Status)
}

func TestGORMOrderRepository_List(t *testing.T) {
	repo := repositories.NewGORMOrderRepository(setupDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newOrder("alice", "ORD-3-001", 20, base)))
	require.NoError(t, repo.Create(ctx, newOrder("alice", "ORD-3-002", 200, base.Add(24*time.Hour))))
	require.NoError(t, repo.Create(ctx, newOrder("alice", "ORD-3-003", 80, base.Add(48*time.Hour))))
	require.NoError(t, repo.Create(ctx, newOrder("bob", "ORD-3-004", 500, base.Add(72*time.Hour))))

	all, err := repo.List(ctx, repositories.OrderFilter{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ORD-3-003", all[0].OrderNumber)
	assert.Equal(t, "ORD-3-001", all[2].OrderNumber)
	assert.Len(t, all[0].StatusHistory, 1)

	minAmount := decimal.NewFromInt(50)
	maxAmount := decimal.NewFromInt(100)
	ranged, err := repo.List(ctx, repositories.OrderFilter{UserID: "alice", MinAmount: &minAmount, MaxAmount: &maxAmount})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "ORD-3-003", ranged[0].OrderNumber)

	start := base.Add(12 * time.Hour)
	end := base.Add(36 * time.Hour)
	dated, err := repo.List(ctx, repositories.OrderFilter{UserID: "alice", StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	require.Len(t, dated, 1)
	assert.Equal(t, "ORD-3-002", dated[0].OrderNumber)

	everyone, err := repo.List(ctx, repositories.OrderFilter{Status: models.OrderStatusPending})
	require.NoError(t, err)
	assert.Len(t, everyone, 4)
}

func TestGORMOrderRepository_Stats(t *testing.T) {
	repo := repositories.NewGORMOrderRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	paid := newOrder("alice", "ORD-4-001", 100, now)
	paid.PaymentStatus = models.PaymentStatusPaid
	paid.Status = models.OrderStatusProcessing
	require.NoError(t, repo.Create(ctx, paid))
	require.NoError(t, repo.Create(ctx, newOrder("bob", "ORD-4-002", 50, now)))

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalOrders)
	assert.EqualValues(t, 1, stats.OrdersByStatus[models.OrderStatusPending])
	assert.EqualValues(t, 1, stats.OrdersByStatus[models.OrderStatusProcessing])
	assert.EqualValues(t, 0, stats.OrdersByStatus[models.OrderStatusDelivered])
	assert.Equal(t, "100", stats.TotalRevenue.String())
	assert.Equal(t, "75", stats.AverageOrderValue.String())
}

func TestGORMOrderRepository_StatsFractionalAmounts(t *testing.T) {
	repo := repositories.NewGORMOrderRepository(setupDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	for i, total := range []string{"0.10", "0.20"} {
		order := newOrder("alice", fmt.Sprintf("ORD-6-%03d", i), 0, now)
		order.TotalAmount = decimal.RequireFromString(total)
		order.PaymentStatus = models.PaymentStatusPaid
		require.NoError(t, repo.Create(ctx, order))
	}

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.3", stats.TotalRevenue.String())
	assert.Equal(t, "0.15", stats.AverageOrderValue.String())
}

func TestGORMOrderRepository_StatsEmpty(t *testing.T) {
	repo := repositories.NewGORMOrderRepository(setupDB(t))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.TotalOrders)
	assert.True(t, stats.TotalRevenue.IsZero())
	assert.True(t, stats.AverageOrderValue.IsZero())
}

func newPayment(orderID, userID, txn string, amount int64, method models.PaymentMethod, status models.SettlementStatus) *models.Payment {
	return &models.Payment{
		OrderID:       orderID,
		UserID:        userID,
		Amount:        decimal.NewFromInt(amount),
		Method:        method,
		Status:        status,
		TransactionID: txn,
	}
}

func TestGORMPaymentRepository(t *testing.T) {
	repo := repositories.NewGORMPaymentRepository(setupDB(t))
	ctx := context.Background()

	card := newPayment("order-1", "alice", "TXN-1-1", 100, models.PaymentMethodCreditCard, models.SettlementCompleted)
	card.CardDetails = models.CardDetails{Last4: "4242", Brand: "visa"}
	require.NoError(t, repo.Create(ctx, card))
	require.NoError(t, repo.Create(ctx, newPayment("order-2", "alice", "TXN-1-2", 40, models.PaymentMethodGCash, models.SettlementCompleted)))
	require.NoError(t, repo.Create(ctx, newPayment("order-3", "bob", "TXN-1-3", 60, models.PaymentMethodCreditCard, models.SettlementCompleted)))
	require.NoError(t, repo.Create(ctx, newPayment("order-3", "bob", "TXN-1-4", 60, models.PaymentMethodCreditCard, models.SettlementFailed)))

	err := repo.Create(ctx, newPayment("order-4", "bob", "TXN-1-1", 1, models.PaymentMethodPayPal, models.SettlementPending))
	assert.True(t, errors.Is(err, repositories.ErrDuplicateKey))

	got, err := repo.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "4242", got.CardDetails.Last4)

	byTxn, err := repo.GetByTransactionID(ctx, "TXN-1-2")
	require.NoError(t, err)
	assert.Equal(t, "order-2", byTxn.OrderID)

	_, err = repo.GetByTransactionID(ctx, "TXN-0-0")
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, repositories.ErrNotFound))

	byOrder, err := repo.ListByOrder(ctx, "order-3")
	require.NoError(t, err)
	assert.Len(t, byOrder, 2)

	byUser, err := repo.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	got.Status = models.SettlementRefunded
	require.NoError(t, repo.Update(ctx, got))
	refunded, err := repo.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SettlementRefunded, refunded.Status)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.TotalPayments)
	assert.EqualValues(t, 2, stats.PaymentsByStatus[models.SettlementCompleted])
	assert.EqualValues(t, 1, stats.PaymentsByStatus[models.SettlementFailed])
	assert.EqualValues(t, 1, stats.PaymentsByStatus[models.SettlementRefunded])
	assert.EqualValues(t, 0, stats.PaymentsByStatus[models.SettlementPending])
	assert.Equal(t, "100", stats.TotalRevenue.String())

	require.Len(t, stats.PaymentMethodBreakdown, 2)
	assert.Equal(t, models.PaymentMethodCreditCard, stats.PaymentMethodBreakdown[0].Method)
	assert.EqualValues(t, 1, stats.PaymentMethodBreakdown[0].Count)
	assert.Equal(t, "60", stats.PaymentMethodBreakdown[0].Total.String())
	assert.Equal(t, models.PaymentMethodGCash, stats.PaymentMethodBreakdown[1].Method)
}

func TestGORMPaymentRepository_StatsFractionalAmounts(t *testing.T) {
	repo := repositories.NewGORMPaymentRepository(setupDB(t))
	ctx := context.Background()

	for i, amount := range []string{"0.10", "0.20"} {
		payment := newPayment(fmt.Sprintf("order-%d", i), "alice", fmt.Sprintf("TXN-7-%d", i), 0, models.PaymentMethodPayPal, models.SettlementCompleted)
		payment.Amount = decimal.RequireFromString(amount)
		require.NoError(t, repo.Create(ctx, payment))
	}

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.3", stats.TotalRevenue.String())
	require.Len(t, stats.PaymentMethodBreakdown, 1)
	assert.Equal(t, models.PaymentMethodPayPal, stats.PaymentMethodBreakdown[0].Method)
	assert.EqualValues(t, 2, stats.PaymentMethodBreakdown[0].Count)
	assert.Equal(t, "0.3", stats.PaymentMethodBreakdown[0].Total.String())
}

func TestGORMTransactor_RollsBack(t *testing.T) {
	db := setupDB(t)
	repo := repositories.NewGORMOrderRepository(db)
	tx := repositories.NewGORMTransactor(db)
	ctx := context.Background()

	order := newOrder("alice", "ORD-5-001", 10, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, order))

	boom := errors.New("boom")
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order.Status = models.OrderStatusCancelled
		if err := repo.Update(ctx, order); err != nil {
			return err
		}
		if err := repo.AppendHistory(ctx, order.ID, &models.StatusHistoryEntry{
			Status:    models.OrderStatusCancelled,
			Timestamp: time.Now().UTC(),
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, got.Status)
	assert.Len(t, got.StatusHistory, 1)
}
