package tables

import (
	"pos-sync/internal/models"
)

// ExpectedStatus derives what a table's status ought to be from the open
// order set: occupied whenever any non-terminal order references it,
// otherwise the status the server reported (which may be reserved).
func ExpectedStatus(table models.Table, orders []models.Order) string {
	for _, o := range orders {
		if o.TableID == table.ID && !models.IsTerminal(o.Status) {
			return models.TableOccupied
		}
	}
	return table.Status
}

// ApplyDerived recomputes every table's status against the current order set.
// Views render from this, preferring the local recomputation for immediate
// feedback; the server value overwrites the cache on the next refresh, so the
// two can never drift silently.
func ApplyDerived(tbls []models.Table, orders []models.Order) []models.Table {
	out := make([]models.Table, len(tbls))
	copy(out, tbls)
	for i := range out {
		out[i].Status = ExpectedStatus(out[i], orders)
	}
	return out
}

// OpenOrderFor finds the non-terminal order bound to a table, if any. Used by
// the floor view to route a tap either into editing or into a fresh cart.
func OpenOrderFor(tableID string, orders []models.Order) (models.Order, bool) {
	for _, o := range orders {
		if o.TableID == tableID && !models.IsTerminal(o.Status) {
			return o, true
		}
	}
	return models.Order{}, false
}
