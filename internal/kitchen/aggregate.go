package kitchen

import (
	"sort"

	"pos-sync/internal/models"
)

// AggregateEntry is the in-flight tally for one dish across all open orders.
type AggregateEntry struct {
	Name       string   `json:"name"`
	Count      int      `json:"count"`
	OrderIDs   []string `json:"orderIds"`
	IsFavorite bool     `json:"isFavorite"`
}

// Aggregate folds the order set into per-dish not-yet-ready quantities, the
// "mise en place" view. It is a total recomputation every time: incremental
// counters desynchronize the moment a partial update slips past them, so none
// are kept. Cost is O(orders x items), bounded by one restaurant's load.
func Aggregate(orders []models.Order) map[string]AggregateEntry {
	agg := make(map[string]AggregateEntry)
	for _, o := range orders {
		if models.IsTerminal(o.Status) {
			continue
		}
		for _, it := range o.Items {
			if it.IsReady {
				continue
			}
			entry := agg[it.Name]
			entry.Name = it.Name
			entry.Count += it.Quantity
			entry.IsFavorite = entry.IsFavorite || it.IsFavoriteKitchen
			if !containsID(entry.OrderIDs, o.ID) {
				entry.OrderIDs = append(entry.OrderIDs, o.ID)
			}
			agg[it.Name] = entry
		}
	}
	return agg
}

// Ranked returns the aggregate entries busiest-first, ties broken by name so
// the board is stable between recomputations.
func Ranked(agg map[string]AggregateEntry) []AggregateEntry {
	out := make([]AggregateEntry, 0, len(agg))
	for _, e := range agg {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
