package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-sync/internal/lifecycle"
	"pos-sync/internal/models"
)

func TestCanAdvanceGrid(t *testing.T) {
	statuses := []string{
		models.StatusNew, models.StatusPreparing, models.StatusReady,
		models.StatusCompleted, models.StatusHeld,
	}
	allowed := map[[2]string]bool{
		{models.StatusNew, models.StatusPreparing}:   true,
		{models.StatusNew, models.StatusHeld}:        true,
		{models.StatusPreparing, models.StatusReady}: true,
		{models.StatusReady, models.StatusCompleted}: true,
		{models.StatusHeld, models.StatusNew}:        true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			got := lifecycle.CanAdvance(from, to)
			assert.Equal(t, allowed[[2]string{from, to}], got, "%s -> %s", from, to)
		}
	}
}

func TestAdvanceRejectionLeavesOrderUntouched(t *testing.T) {
	order := models.Order{ID: "ord-1", Status: models.StatusNew}

	err := lifecycle.Advance(&order, models.StatusReady)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	assert.Equal(t, models.StatusNew, order.Status)
}

func TestAdvanceThroughFullLifecycle(t *testing.T) {
	order := models.Order{ID: "ord-1", Status: models.StatusNew}

	for _, target := range []string{models.StatusPreparing, models.StatusReady, models.StatusCompleted} {
		require.NoError(t, lifecycle.Advance(&order, target))
	}
	assert.Equal(t, models.StatusCompleted, order.Status)

	// Completed is terminal: nothing moves it again.
	err := lifecycle.Advance(&order, models.StatusNew)
	assert.ErrorIs(t, err, lifecycle.ErrOrderCompleted)
}

func TestHoldAndResume(t *testing.T) {
	order := models.Order{ID: "ord-1", Status: models.StatusNew}

	require.NoError(t, lifecycle.Advance(&order, models.StatusHeld))
	assert.Equal(t, models.StatusHeld, order.Status)

	// A held order cannot skip ahead; it resumes at new.
	assert.ErrorIs(t, lifecycle.Advance(&order, models.StatusPreparing), lifecycle.ErrInvalidTransition)
	require.NoError(t, lifecycle.Advance(&order, models.StatusNew))

	// Only new orders can be parked.
	require.NoError(t, lifecycle.Advance(&order, models.StatusPreparing))
	assert.ErrorIs(t, lifecycle.Advance(&order, models.StatusHeld), lifecycle.ErrInvalidTransition)
}

func TestSetItemReadyFlipsEveryMatchingLine(t *testing.T) {
	order := models.Order{
		ID:     "ord-1",
		Status: models.StatusPreparing,
		Items: []models.OrderItem{
			{ItemID: "item-1", Name: "Gyoza", Quantity: 1},
			{ItemID: "item-2", Name: "Ramen", Quantity: 1},
			{ItemID: "item-1", Name: "Gyoza", Quantity: 2},
		},
	}

	require.NoError(t, lifecycle.SetItemReady(&order, "item-1", true))
	assert.True(t, order.Items[0].IsReady)
	assert.False(t, order.Items[1].IsReady)
	assert.True(t, order.Items[2].IsReady)

	// Item readiness never drives the order status.
	assert.Equal(t, models.StatusPreparing, order.Status)

	require.NoError(t, lifecycle.SetItemReady(&order, "item-1", false))
	assert.False(t, order.Items[0].IsReady)
}

func TestSetItemReadyErrors(t *testing.T) {
	order := models.Order{
		ID:     "ord-1",
		Status: models.StatusPreparing,
		Items:  []models.OrderItem{{ItemID: "item-1"}},
	}
	assert.ErrorIs(t, lifecycle.SetItemReady(&order, "ghost", true), lifecycle.ErrItemNotFound)

	order.Status = models.StatusCompleted
	assert.ErrorIs(t, lifecycle.SetItemReady(&order, "item-1", true), lifecycle.ErrOrderCompleted)
}
