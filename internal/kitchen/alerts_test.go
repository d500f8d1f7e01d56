package kitchen_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pos-sync/internal/kitchen"
	"pos-sync/internal/livesync"
	"pos-sync/internal/models"
)

func snapshotOf(ids ...string) livesync.Snapshot {
	snap := livesync.Snapshot{}
	for _, id := range ids {
		snap.Orders = append(snap.Orders, models.Order{ID: id, Status: models.StatusNew})
	}
	return snap
}

func TestNotifierPrimesWithoutFiring(t *testing.T) {
	fired := 0
	n := kitchen.NewNotifier(func(newOrders int) { fired += newOrders })

	// Orders already present at startup never alert retroactively.
	n.Observe(snapshotOf("ord-1", "ord-2", "ord-3"))
	assert.Equal(t, 0, fired)
}

func TestNotifierFiresOncePerNetIncrease(t *testing.T) {
	fired := 0
	n := kitchen.NewNotifier(func(newOrders int) { fired += newOrders })

	n.Observe(snapshotOf("ord-1"))
	n.Observe(snapshotOf("ord-1", "ord-2"))
	assert.Equal(t, 1, fired)

	// The same snapshot again adds nothing.
	n.Observe(snapshotOf("ord-1", "ord-2"))
	assert.Equal(t, 1, fired)

	n.Observe(snapshotOf("ord-1", "ord-2", "ord-3", "ord-4"))
	assert.Equal(t, 3, fired)
}

func TestNotifierIgnoresDecreasesAndChurn(t *testing.T) {
	fired := 0
	n := kitchen.NewNotifier(func(newOrders int) { fired += newOrders })

	n.Observe(snapshotOf("ord-1", "ord-2"))
	n.Observe(snapshotOf("ord-1"))
	assert.Equal(t, 0, fired, "a removal must not alert")

	// One removed, one added in the same snapshot: net zero, no alert.
	n.Observe(snapshotOf("ord-3"))
	assert.Equal(t, 0, fired)

	// Recovery back to the original count after a drop stays quiet only for
	// the replaced portion; a genuine net increase still fires.
	n.Observe(snapshotOf("ord-3", "ord-4"))
	assert.Equal(t, 1, fired)
}

// The startup wiring runs the initial refresh before anyone subscribes, so
// the notifier must be primed from the current snapshot before it starts
// watching. Without that, the first order placed after startup would be
// consumed as the baseline instead of alerting.
func TestFirstNewOrderAfterStartupAlerts(t *testing.T) {
	store := livesync.NewStore()
	store.ReplaceOrders(snapshotOf("ord-1", "ord-2").Orders)

	fired := make(chan int, 1)
	n := kitchen.NewNotifier(func(newOrders int) { fired <- newOrders })
	n.Observe(store.Snapshot())

	sub := store.Subscribe()
	done := make(chan struct{})
	go func() {
		n.Watch(sub)
		close(done)
	}()

	store.UpsertOrder(models.Order{ID: "ord-3", Status: models.StatusNew})

	select {
	case count := <-fired:
		assert.Equal(t, 1, count)
	case <-time.After(time.Second):
		t.Fatal("first new order after startup never alerted")
	}

	store.Unsubscribe(sub)
	<-done
}

func TestNotifierWatchConsumesSubscription(t *testing.T) {
	store := livesync.NewStore()
	store.ReplaceOrders(snapshotOf("ord-1").Orders)

	fired := make(chan int, 4)
	n := kitchen.NewNotifier(func(newOrders int) { fired <- newOrders })

	sub := store.Subscribe()
	done := make(chan struct{})
	go func() {
		n.Watch(sub)
		close(done)
	}()

	// Prime, then one new order.
	store.UpsertOrder(models.Order{ID: "ord-0", Status: models.StatusNew})
	n.Observe(store.Snapshot())

	store.UpsertOrder(models.Order{ID: "ord-2", Status: models.StatusNew})

	assert.Equal(t, 1, <-fired)
	store.Unsubscribe(sub)
	<-done
}
