package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"orderd/internal/config"
	"orderd/internal/database"
	"orderd/internal/models"
	"orderd/internal/repositories"
	"orderd/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSQLOrderService wires the order service to SQLite through the GORM transactor.
func newSQLOrderService(t *testing.T) (*services.OrderService, *repositories.GORMOrderRepository) {
	t.Helper()
	db, err := database.Open(&config.Config{
		DatabaseDriver: "sqlite",
		DatabaseDSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	repo := repositories.NewGORMOrderRepository(db)
	return services.NewOrderService(repo, repositories.NewGORMTransactor(db), nil), repo
}

func TestOrderService_ConcurrentStatusUpdatesKeepHistory(t *testing.T) {
	orders, repo := newSQLOrderService(t)
	ctx := context.Background()

	order, err := orders.CreateOrder(ctx, alice, createInput("100", "10", "5", "0"))
	require.NoError(t, err)

	const writers = 20
	statuses := []models.OrderStatus{models.OrderStatusProcessing, models.OrderStatusShipped}
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = orders.UpdateStatus(ctx, admin, order.ID, services.StatusUpdateInput{
				Status: statuses[i%len(statuses)],
				Note:   fmt.Sprintf("writer %d", i),
			})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	stored, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.StatusHistory, writers+1)

	notes := make(map[string]bool, writers)
	for _, entry := range stored.StatusHistory[1:] {
		notes[entry.Note] = true
	}
	assert.Len(t, notes, writers)

	updated, err := orders.BulkUpdateStatus(ctx, admin, services.BulkStatusInput{
		OrderIDs: []string{order.ID, order.ID, "does-not-exist"},
		Status:   models.OrderStatusDelivered,
	})
	require.NoError(t, err)
	assert.Len(t, updated, 2)

	stored, err = repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, stored.Status)
	assert.Len(t, stored.StatusHistory, writers+3)
}
