package livesync

import (
	"encoding/json"
	"errors"
	"sync"

	"pos-sync/internal/models"
)

// ErrOrderNotFound is returned when a mutation targets an ID the cache does
// not hold.
var ErrOrderNotFound = errors.New("order not found in cache")

// ErrTableNotFound is the table equivalent of ErrOrderNotFound.
var ErrTableNotFound = errors.New("table not found in cache")

// Snapshot is an immutable copy of the cached order and table sets, handed to
// views and subscribers. Orders are newest first.
type Snapshot struct {
	Orders []models.Order `json:"orders"`
	Tables []models.Table `json:"tables"`
}

// Store holds the local order/table caches for one client surface. It is the
// single funnel for every cache mutation: network refreshes, push events and
// optimistic local writes all land here, so merge semantics cannot diverge
// between the two logical writers.
type Store struct {
	mu     sync.RWMutex
	orders []models.Order
	tables []models.Table

	subMu sync.RWMutex
	subs  []chan Snapshot
}

func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a copy of the current cache contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Orders: make([]models.Order, len(s.orders)),
		Tables: make([]models.Table, len(s.tables)),
	}
	copy(snap.Orders, s.orders)
	copy(snap.Tables, s.tables)
	return snap
}

// OrderByID looks up a cached order by its canonical ID.
func (s *Store) OrderByID(id string) (models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

// TableByID looks up a cached table by its canonical ID.
func (s *Store) TableByID(id string) (models.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tables {
		if t.ID == id {
			return t, true
		}
	}
	return models.Table{}, false
}

// ReplaceOrders installs a full refresh snapshot. The replace is gated on
// content equality: when the serialized incoming set matches the serialized
// cache, nothing changes and no subscriber is notified, so a refresh that
// merely re-delivers known state causes no downstream recomputation.
func (s *Store) ReplaceOrders(orders []models.Order) bool {
	s.mu.Lock()
	if contentEqual(s.orders, orders) {
		s.mu.Unlock()
		return false
	}
	s.orders = make([]models.Order, len(orders))
	copy(s.orders, orders)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// ReplaceTables is the table-list counterpart of ReplaceOrders.
func (s *Store) ReplaceTables(tables []models.Table) bool {
	s.mu.Lock()
	if contentEqual(s.tables, tables) {
		s.mu.Unlock()
		return false
	}
	s.tables = make([]models.Table, len(tables))
	copy(s.tables, tables)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// UpsertOrder prepends a new order, or replaces the existing record when the
// ID is already cached. The already-cached case covers a created push
// arriving after a refresh picked the order up.
func (s *Store) UpsertOrder(order models.Order) {
	s.mu.Lock()
	replaced := false
	for i, o := range s.orders {
		if o.ID == order.ID {
			s.orders[i] = order
			replaced = true
			break
		}
	}
	if !replaced {
		s.orders = append([]models.Order{order}, s.orders...)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// MergeOrder applies a partial update to the cached order with the given ID.
// Fields absent from the patch keep their current value.
func (s *Store) MergeOrder(id string, patch []byte) error {
	s.mu.Lock()
	idx := -1
	for i, o := range s.orders {
		if o.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrOrderNotFound
	}

	merged, err := models.MergeOrderPatch(s.orders[idx], patch)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.orders[idx] = merged
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// PutOrder replaces a cached order wholesale. Used for optimistic local
// writes and for installing the authoritative record after confirmation.
func (s *Store) PutOrder(order models.Order) error {
	s.mu.Lock()
	idx := -1
	for i, o := range s.orders {
		if o.ID == order.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrOrderNotFound
	}
	s.orders[idx] = order
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// RemoveOrder drops an order from the cache. Removing an unknown ID is a
// no-op: the delete push may have raced a refresh that already dropped it.
func (s *Store) RemoveOrder(id string) {
	s.mu.Lock()
	idx := -1
	for i, o := range s.orders {
		if o.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.orders = append(s.orders[:idx], s.orders[idx+1:]...)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// MergeTable applies a partial update to the cached table with the given ID.
func (s *Store) MergeTable(id string, patch []byte) error {
	s.mu.Lock()
	idx := -1
	for i, t := range s.tables {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return ErrTableNotFound
	}

	merged, err := models.MergeTablePatch(s.tables[idx], patch)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.tables[idx] = merged
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Subscribe registers a snapshot listener. The channel is buffered and sends
// are non-blocking: a slow consumer misses intermediate snapshots but always
// receives a later, more complete one.
func (s *Store) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 16)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a listener channel.
func (s *Store) Unsubscribe(ch chan Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for i, sub := range s.subs {
		if sub == ch {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func contentEqual(current, incoming any) bool {
	a, errA := json.Marshal(current)
	b, errB := json.Marshal(incoming)
	if errA != nil || errB != nil {
		return false
	}
	return string(a) == string(b)
}
