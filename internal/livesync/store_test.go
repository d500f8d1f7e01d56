package livesync_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-sync/internal/livesync"
	"pos-sync/internal/models"
)

func makeOrder(id, status string) models.Order {
	return models.Order{
		ID:            id,
		Type:          models.TypeDineIn,
		Status:        status,
		PaymentStatus: models.PaymentUnpaid,
		Items: []models.OrderItem{
			{ItemID: "item-1", Name: "Margherita", Price: 9.5, Quantity: 1},
		},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestReplaceOrdersContentGate(t *testing.T) {
	store := livesync.NewStore()

	orders := []models.Order{makeOrder("ord-1", models.StatusNew)}
	assert.True(t, store.ReplaceOrders(orders), "first install should report a change")

	// A refresh delivering identical content must not count as a change.
	same := []models.Order{makeOrder("ord-1", models.StatusNew)}
	assert.False(t, store.ReplaceOrders(same))

	changed := []models.Order{makeOrder("ord-1", models.StatusPreparing)}
	assert.True(t, store.ReplaceOrders(changed))
}

func TestContentGateSuppressesSubscriberNotification(t *testing.T) {
	store := livesync.NewStore()
	store.ReplaceOrders([]models.Order{makeOrder("ord-1", models.StatusNew)})

	sub := store.Subscribe()
	defer store.Unsubscribe(sub)

	store.ReplaceOrders([]models.Order{makeOrder("ord-1", models.StatusNew)})
	select {
	case <-sub:
		t.Fatal("identical refresh must not notify subscribers")
	case <-time.After(50 * time.Millisecond):
	}

	store.ReplaceOrders([]models.Order{makeOrder("ord-1", models.StatusReady)})
	select {
	case snap := <-sub:
		require.Len(t, snap.Orders, 1)
		assert.Equal(t, models.StatusReady, snap.Orders[0].Status)
	case <-time.After(time.Second):
		t.Fatal("changed refresh should notify subscribers")
	}
}

func TestUpsertOrderPrependsNewAndReplacesKnown(t *testing.T) {
	store := livesync.NewStore()
	store.ReplaceOrders([]models.Order{makeOrder("ord-1", models.StatusNew)})

	store.UpsertOrder(makeOrder("ord-2", models.StatusNew))
	snap := store.Snapshot()
	require.Len(t, snap.Orders, 2)
	assert.Equal(t, "ord-2", snap.Orders[0].ID, "new orders go to the front")

	// A created push for an order the refresh already delivered replaces in
	// place instead of duplicating.
	dup := makeOrder("ord-1", models.StatusPreparing)
	store.UpsertOrder(dup)
	snap = store.Snapshot()
	require.Len(t, snap.Orders, 2)
	assert.Equal(t, models.StatusPreparing, snap.Orders[1].Status)
}

func TestMergeOrderPartialPatch(t *testing.T) {
	store := livesync.NewStore()
	original := makeOrder("ord-1", models.StatusNew)
	original.CashierName = "dana"
	original.Total = 10.45
	store.ReplaceOrders([]models.Order{original})

	err := store.MergeOrder("ord-1", json.RawMessage(`{"status":"preparing"}`))
	require.NoError(t, err)

	got, ok := store.OrderByID("ord-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusPreparing, got.Status)
	assert.Equal(t, "dana", got.CashierName, "fields absent from the patch keep their value")
	assert.Equal(t, 10.45, got.Total)
	assert.Equal(t, original.Items, got.Items)
}

func TestMergeOrderCannotReassignID(t *testing.T) {
	store := livesync.NewStore()
	store.ReplaceOrders([]models.Order{makeOrder("ord-1", models.StatusNew)})

	err := store.MergeOrder("ord-1", json.RawMessage(`{"id":"ord-other","status":"ready"}`))
	require.NoError(t, err)

	got, ok := store.OrderByID("ord-1")
	require.True(t, ok)
	assert.Equal(t, "ord-1", got.ID)
	assert.Equal(t, models.StatusReady, got.Status)
}

func TestMergeOrderUnknownID(t *testing.T) {
	store := livesync.NewStore()
	err := store.MergeOrder("ghost", json.RawMessage(`{"status":"ready"}`))
	assert.ErrorIs(t, err, livesync.ErrOrderNotFound)
}

func TestRemoveOrderUnknownIDIsNoop(t *testing.T) {
	store := livesync.NewStore()
	store.ReplaceOrders([]models.Order{makeOrder("ord-1", models.StatusNew)})

	store.RemoveOrder("ghost")
	assert.Len(t, store.Snapshot().Orders, 1)

	store.RemoveOrder("ord-1")
	assert.Empty(t, store.Snapshot().Orders)
}

func TestMergeTablePartialPatch(t *testing.T) {
	store := livesync.NewStore()
	store.ReplaceTables([]models.Table{{
		ID: "tbl-1", Number: 4, FloorID: "main", Capacity: 4,
		Status: models.TableAvailable,
	}})

	err := store.MergeTable("tbl-1", json.RawMessage(`{"status":"occupied"}`))
	require.NoError(t, err)

	got, ok := store.TableByID("tbl-1")
	require.True(t, ok)
	assert.Equal(t, models.TableOccupied, got.Status)
	assert.Equal(t, 4, got.Number)

	assert.ErrorIs(t, store.MergeTable("ghost", json.RawMessage(`{}`)), livesync.ErrTableNotFound)
}

// Push merges and a later refresh carrying the same end state must converge on
// identical content, with the refresh suppressed by the gate.
func TestPushThenRefreshConverges(t *testing.T) {
	store := livesync.NewStore()
	store.ReplaceOrders([]models.Order{makeOrder("ord-1", models.StatusNew)})

	require.NoError(t, store.MergeOrder("ord-1", json.RawMessage(`{"status":"preparing"}`)))

	refreshed := makeOrder("ord-1", models.StatusPreparing)
	assert.False(t, store.ReplaceOrders([]models.Order{refreshed}),
		"refresh reproducing the pushed state must be a no-op")
}

func TestSnapshotIsACopy(t *testing.T) {
	store := livesync.NewStore()
	store.ReplaceOrders([]models.Order{makeOrder("ord-1", models.StatusNew)})

	snap := store.Snapshot()
	snap.Orders[0].Status = models.StatusCompleted

	got, ok := store.OrderByID("ord-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusNew, got.Status)
}
