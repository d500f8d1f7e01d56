package kitchen_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-sync/internal/kitchen"
	"pos-sync/internal/models"
)

func TestAggregateCountsOnlyPendingQuantities(t *testing.T) {
	orders := []models.Order{
		{
			ID:     "ord-1",
			Status: models.StatusPreparing,
			Items: []models.OrderItem{
				{ItemID: "item-1", Name: "Burger", Quantity: 2, IsReady: false},
				{ItemID: "item-2", Name: "Fries", Quantity: 1, IsReady: false},
			},
		},
		{
			ID:     "ord-2",
			Status: models.StatusPreparing,
			Items: []models.OrderItem{
				{ItemID: "item-1", Name: "Burger", Quantity: 1, IsReady: true},
			},
		},
		{
			ID:     "ord-3",
			Status: models.StatusCompleted,
			Items: []models.OrderItem{
				{ItemID: "item-1", Name: "Burger", Quantity: 5, IsReady: false},
			},
		},
	}

	agg := kitchen.Aggregate(orders)

	burger, ok := agg["Burger"]
	require.True(t, ok)
	assert.Equal(t, 2, burger.Count, "ready lines and completed orders never count")
	assert.Equal(t, []string{"ord-1"}, burger.OrderIDs)

	fries, ok := agg["Fries"]
	require.True(t, ok)
	assert.Equal(t, 1, fries.Count)
}

func TestAggregateSumsAcrossOrdersAndDuplicateLines(t *testing.T) {
	orders := []models.Order{
		{
			ID:     "ord-1",
			Status: models.StatusNew,
			Items: []models.OrderItem{
				{ItemID: "item-1", Name: "Gyoza", Quantity: 1},
				{ItemID: "item-1", Name: "Gyoza", Quantity: 2},
			},
		},
		{
			ID:     "ord-2",
			Status: models.StatusHeld,
			Items: []models.OrderItem{
				{ItemID: "item-1", Name: "Gyoza", Quantity: 3},
			},
		},
	}

	agg := kitchen.Aggregate(orders)
	gyoza := agg["Gyoza"]
	assert.Equal(t, 6, gyoza.Count)
	assert.ElementsMatch(t, []string{"ord-1", "ord-2"}, gyoza.OrderIDs)
}

func TestAggregateCarriesFavoriteFlag(t *testing.T) {
	orders := []models.Order{
		{
			ID:     "ord-1",
			Status: models.StatusNew,
			Items: []models.OrderItem{
				{ItemID: "item-1", Name: "Ramen", Quantity: 1, IsFavoriteKitchen: true},
				{ItemID: "item-2", Name: "Tea", Quantity: 1},
			},
		},
	}

	agg := kitchen.Aggregate(orders)
	assert.True(t, agg["Ramen"].IsFavorite)
	assert.False(t, agg["Tea"].IsFavorite)
}

func TestRankedOrdersByCountThenName(t *testing.T) {
	agg := map[string]kitchen.AggregateEntry{
		"Fries":  {Name: "Fries", Count: 2},
		"Burger": {Name: "Burger", Count: 5},
		"Cola":   {Name: "Cola", Count: 2},
	}

	ranked := kitchen.Ranked(agg)
	require.Len(t, ranked, 3)
	assert.Equal(t, "Burger", ranked[0].Name)
	assert.Equal(t, "Cola", ranked[1].Name)
	assert.Equal(t, "Fries", ranked[2].Name)
}

func TestTicketsExcludeHeldAndCompleted(t *testing.T) {
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	orders := []models.Order{
		{ID: "ord-1", Status: models.StatusPreparing, CreatedAt: now.Add(-12 * time.Minute),
			Items: []models.OrderItem{
				{ItemID: "item-1", Name: "Ramen", Quantity: 1, IsReady: true},
				{ItemID: "item-2", Name: "Gyoza", Quantity: 1},
			}},
		{ID: "ord-2", Status: models.StatusHeld, CreatedAt: now},
		{ID: "ord-3", Status: models.StatusCompleted, CreatedAt: now},
	}

	tickets := kitchen.Tickets(orders, now)
	require.Len(t, tickets, 1)
	assert.Equal(t, "ord-1", tickets[0].ID)
	assert.Equal(t, kitchen.TierWarning, tickets[0].Urgency)
	assert.Equal(t, 1, tickets[0].ReadyCount)
	assert.Equal(t, 2, tickets[0].TotalItems)
}
