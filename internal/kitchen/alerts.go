package kitchen

import (
	"sync"

	"pos-sync/internal/livesync"
)

// Notifier detects "a new order arrived" between consecutive cache snapshots
// and fires exactly once per net increase in order count. Counting instead of
// diffing IDs keeps it cheap, and the store's content-equality gate means a
// refresh that reproduces the same set never reaches Observe at all, so a
// duplicate created-push followed by a converging refresh cannot double-fire.
type Notifier struct {
	mu     sync.Mutex
	primed bool
	last   int
	fire   func(newOrders int)
}

// NewNotifier wraps the one-shot side effect (sound, toast, SSE alert). The
// first observed snapshot only sets the baseline: orders already present at
// client start never alert retroactively.
func NewNotifier(fire func(newOrders int)) *Notifier {
	return &Notifier{fire: fire}
}

// Observe inspects one snapshot and fires for any net increase.
func (n *Notifier) Observe(snap livesync.Snapshot) {
	count := len(snap.Orders)

	n.mu.Lock()
	if !n.primed {
		n.primed = true
		n.last = count
		n.mu.Unlock()
		return
	}
	increase := count - n.last
	n.last = count
	n.mu.Unlock()

	if increase > 0 && n.fire != nil {
		n.fire(increase)
	}
}

// Watch consumes snapshots from a store subscription until the channel
// closes. Run it in its own goroutine next to the sync client.
func (n *Notifier) Watch(snapshots <-chan livesync.Snapshot) {
	for snap := range snapshots {
		n.Observe(snap)
	}
}
