package lifecycle

import (
	"errors"
	"fmt"

	"pos-sync/internal/models"
)

// ErrInvalidTransition is returned for any status change outside the allowed
// set. It is reported to the initiating action only; nothing crashes.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrOrderCompleted guards all mutation of terminal orders.
var ErrOrderCompleted = errors.New("order is completed and can no longer change")

// ErrItemNotFound is returned when an item ID matches no line on the order.
var ErrItemNotFound = errors.New("item not found on order")

// transitions is the complete set of allowed status advances. held is a side
// state for parked orders: reachable only from new and returning only to new.
var transitions = map[string]string{
	models.StatusNew:       models.StatusPreparing,
	models.StatusPreparing: models.StatusReady,
	models.StatusReady:     models.StatusCompleted,
	models.StatusHeld:      models.StatusNew,
}

// CanAdvance reports whether from -> to is an allowed transition.
func CanAdvance(from, to string) bool {
	if from == models.StatusNew && to == models.StatusHeld {
		return true
	}
	return transitions[from] == to
}

// Advance applies a status transition in place. Any disallowed transition
// leaves the order untouched and returns ErrInvalidTransition.
func Advance(order *models.Order, target string) error {
	if models.IsTerminal(order.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrOrderCompleted, order.Status, target)
	}
	if !CanAdvance(order.Status, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, target)
	}
	order.Status = target
	return nil
}

// SetItemReady flips the kitchen-progress flag on every line referencing the
// given menu item. It never touches order.Status: marking the whole ticket
// ready is an operator action, not something derived from the items.
func SetItemReady(order *models.Order, itemID string, ready bool) error {
	if models.IsTerminal(order.Status) {
		return ErrOrderCompleted
	}
	found := false
	for i := range order.Items {
		if order.Items[i].ItemID == itemID {
			order.Items[i].IsReady = ready
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return nil
}
