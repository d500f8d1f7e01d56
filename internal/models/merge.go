package models

import (
	"encoding/json"
	"fmt"
)

// MergeOrderPatch overlays a partial JSON document onto an order. Fields
// absent from the patch keep their current value. Every merge in the system,
// whether from a push event, an optimistic write confirmation or the
// order-service itself, goes through here so partial updates behave the same
// on both sides of the wire.
func MergeOrderPatch(order Order, patch []byte) (Order, error) {
	var merged Order
	if err := mergeJSON(order, patch, &merged); err != nil {
		return Order{}, err
	}
	// IDs are immutable; a patch must not reassign one.
	merged.ID = order.ID
	return merged, nil
}

// MergeTablePatch is the table equivalent of MergeOrderPatch.
func MergeTablePatch(table Table, patch []byte) (Table, error) {
	var merged Table
	if err := mergeJSON(table, patch, &merged); err != nil {
		return Table{}, err
	}
	merged.ID = table.ID
	return merged, nil
}

func mergeJSON(existing any, patch []byte, out any) error {
	base, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("marshal existing record: %w", err)
	}

	var current map[string]json.RawMessage
	if err := json.Unmarshal(base, &current); err != nil {
		return fmt.Errorf("decode existing record: %w", err)
	}

	var partial map[string]json.RawMessage
	if err := json.Unmarshal(patch, &partial); err != nil {
		return fmt.Errorf("decode patch: %w", err)
	}

	for k, v := range partial {
		current[k] = v
	}

	combined, err := json.Marshal(current)
	if err != nil {
		return err
	}
	return json.Unmarshal(combined, out)
}
