package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-sync/internal/livesync"
	"pos-sync/internal/logger"
	"pos-sync/internal/models"
)

// ErrPaymentDue blocks closing an order that has not been paid.
var ErrPaymentDue = errors.New("order must be paid before closing")

// OrderAPI is the slice of the order-service surface the mutation paths need.
type OrderAPI interface {
	CreateOrder(ctx context.Context, order models.Order) (*models.Order, error)
	UpdateOrder(ctx context.Context, id string, patch map[string]any) (*models.Order, error)
	UpdateTable(ctx context.Context, id string, patch map[string]any) (*models.Table, error)
}

// Draft is a cart about to become an order, or the replacement contents of an
// order re-opened for editing.
type Draft struct {
	Type          string             `json:"type"`
	Items         []models.OrderItem `json:"items"`
	Discount      float64            `json:"discount"`
	CashierName   string             `json:"cashierName"`
	TableID       string             `json:"tableId,omitempty"`
	TableNumber   int                `json:"tableNumber,omitempty"`
	FloorName     string             `json:"floorName,omitempty"`
	CustomerName  string             `json:"customerName,omitempty"`
	DeliveryPhone string             `json:"deliveryPhone,omitempty"`
	DeliveryAddr  string             `json:"deliveryAddress,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	Source        string             `json:"source,omitempty"`
}

// Actions implements the optimistic mutation entry points. Every mutation is
// applied to the local cache first, then sent to the order-service; the
// confirmed record replaces the optimistic one, and a rejection rolls the
// cache back to the retained pre-write state.
type Actions struct {
	Store   *livesync.Store
	API     OrderAPI
	Log     *logger.Logger
	TaxRate float64
}

func NewActions(store *livesync.Store, api OrderAPI, log *logger.Logger, taxRate float64) *Actions {
	return &Actions{Store: store, API: api, Log: log, TaxRate: taxRate}
}

// Advance moves an order to the target status. Completing a dine-in order
// releases its table as part of the same action, so occupancy changes are
// visible before the next refresh.
func (a *Actions) Advance(ctx context.Context, orderID, target string) (*models.Order, error) {
	prev, ok := a.Store.OrderByID(orderID)
	if !ok {
		return nil, livesync.ErrOrderNotFound
	}

	optimistic := prev
	if err := Advance(&optimistic, target); err != nil {
		return nil, err
	}
	optimistic.UpdatedAt = time.Now()
	if err := a.Store.PutOrder(optimistic); err != nil {
		return nil, err
	}

	confirmed, err := a.API.UpdateOrder(ctx, orderID, map[string]any{"status": target})
	if err != nil {
		a.rollbackOrder(prev)
		return nil, fmt.Errorf("advance %s rejected: %w", orderID, err)
	}
	a.Store.PutOrder(*confirmed)
	a.Log.LogOrder("advance", orderID, fmt.Sprintf("%s -> %s confirmed", prev.Status, target))

	if target == models.StatusCompleted && confirmed.TableID != "" {
		a.releaseTable(ctx, confirmed.TableID)
	}
	return confirmed, nil
}

// SetItemReady toggles a line's kitchen-progress flag, optimistically and
// then on the order-service.
func (a *Actions) SetItemReady(ctx context.Context, orderID, itemID string, ready bool) (*models.Order, error) {
	prev, ok := a.Store.OrderByID(orderID)
	if !ok {
		return nil, livesync.ErrOrderNotFound
	}

	optimistic := prev
	optimistic.Items = make([]models.OrderItem, len(prev.Items))
	copy(optimistic.Items, prev.Items)
	if err := SetItemReady(&optimistic, itemID, ready); err != nil {
		return nil, err
	}
	optimistic.UpdatedAt = time.Now()
	if err := a.Store.PutOrder(optimistic); err != nil {
		return nil, err
	}

	confirmed, err := a.API.UpdateOrder(ctx, orderID, map[string]any{"items": optimistic.Items})
	if err != nil {
		a.rollbackOrder(prev)
		return nil, fmt.Errorf("item update on %s rejected: %w", orderID, err)
	}
	a.Store.PutOrder(*confirmed)
	a.Log.LogOrder("item-ready", orderID, fmt.Sprintf("%s ready=%t confirmed", itemID, ready))
	return confirmed, nil
}

// SetPaymentStatus records a payment state change. Payment status is not
// governed by the kitchen state machine, but terminal orders stay frozen.
func (a *Actions) SetPaymentStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	prev, ok := a.Store.OrderByID(orderID)
	if !ok {
		return nil, livesync.ErrOrderNotFound
	}
	if models.IsTerminal(prev.Status) {
		return nil, ErrOrderCompleted
	}

	optimistic := prev
	optimistic.PaymentStatus = status
	optimistic.UpdatedAt = time.Now()
	if err := a.Store.PutOrder(optimistic); err != nil {
		return nil, err
	}

	confirmed, err := a.API.UpdateOrder(ctx, orderID, map[string]any{"paymentStatus": status})
	if err != nil {
		a.rollbackOrder(prev)
		return nil, fmt.Errorf("payment update on %s rejected: %w", orderID, err)
	}
	a.Store.PutOrder(*confirmed)
	a.Log.LogOrder("payment", orderID, fmt.Sprintf("paymentStatus=%s confirmed", status))
	return confirmed, nil
}

// CloseOrder completes a paid order and releases its table. The order must be
// ready: closing rides the same state machine as every other advance.
func (a *Actions) CloseOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, ok := a.Store.OrderByID(orderID)
	if !ok {
		return nil, livesync.ErrOrderNotFound
	}
	if order.PaymentStatus != models.PaymentPaid {
		return nil, ErrPaymentDue
	}
	return a.Advance(ctx, orderID, models.StatusCompleted)
}

// CreateOrder turns a draft cart into a new order. Totals are computed
// locally for the optimistic record and recomputed authoritatively by the
// order-service; marking the bound table occupied is part of this action.
func (a *Actions) CreateOrder(ctx context.Context, draft Draft) (*models.Order, error) {
	if len(draft.Items) == 0 {
		return nil, errors.New("draft has no items")
	}

	totals := models.ComputeTotals(draft.Items, a.TaxRate, draft.Discount)
	order := models.Order{
		Type:          draft.Type,
		Status:        models.StatusNew,
		PaymentStatus: models.PaymentUnpaid,
		Items:         draft.Items,
		Subtotal:      totals.Subtotal,
		Tax:           totals.Tax,
		Discount:      draft.Discount,
		Total:         totals.Total,
		CashierName:   draft.CashierName,
		TableID:       draft.TableID,
		TableNumber:   draft.TableNumber,
		FloorName:     draft.FloorName,
		CustomerName:  draft.CustomerName,
		DeliveryPhone: draft.DeliveryPhone,
		DeliveryAddr:  draft.DeliveryAddr,
		Notes:         draft.Notes,
		Source:        draft.Source,
		CreatedAt:     time.Now(),
	}
	if order.Type == "" {
		order.Type = models.TypeDineIn
	}
	if order.Source == "" {
		order.Source = "pos"
	}

	confirmed, err := a.API.CreateOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("create order rejected: %w", err)
	}
	a.Store.UpsertOrder(*confirmed)
	a.Log.LogOrder("create", confirmed.ID, fmt.Sprintf("%d items, total %.2f", len(confirmed.Items), confirmed.Total))

	if confirmed.TableID != "" {
		a.occupyTable(ctx, confirmed.TableID)
	}
	return confirmed, nil
}

// UpdateDraft replaces the contents of a re-opened order with the edited
// cart. Terminal orders cannot be re-opened.
func (a *Actions) UpdateDraft(ctx context.Context, orderID string, draft Draft) (*models.Order, error) {
	prev, ok := a.Store.OrderByID(orderID)
	if !ok {
		return nil, livesync.ErrOrderNotFound
	}
	if models.IsTerminal(prev.Status) {
		return nil, ErrOrderCompleted
	}

	totals := models.ComputeTotals(draft.Items, a.TaxRate, draft.Discount)
	patch := map[string]any{
		"items":    draft.Items,
		"subtotal": totals.Subtotal,
		"tax":      totals.Tax,
		"discount": draft.Discount,
		"total":    totals.Total,
	}
	if draft.Notes != "" {
		patch["notes"] = draft.Notes
	}

	optimistic := prev
	optimistic.Items = draft.Items
	optimistic.Subtotal = totals.Subtotal
	optimistic.Tax = totals.Tax
	optimistic.Discount = draft.Discount
	optimistic.Total = totals.Total
	optimistic.UpdatedAt = time.Now()
	if err := a.Store.PutOrder(optimistic); err != nil {
		return nil, err
	}

	confirmed, err := a.API.UpdateOrder(ctx, orderID, patch)
	if err != nil {
		a.rollbackOrder(prev)
		return nil, fmt.Errorf("draft update on %s rejected: %w", orderID, err)
	}
	a.Store.PutOrder(*confirmed)
	a.Log.LogOrder("edit", orderID, "cart update confirmed")
	return confirmed, nil
}

// BindTable attaches an open order to a table, marking the table occupied in
// the same action.
func (a *Actions) BindTable(ctx context.Context, orderID, tableID string) (*models.Order, error) {
	prev, ok := a.Store.OrderByID(orderID)
	if !ok {
		return nil, livesync.ErrOrderNotFound
	}
	if models.IsTerminal(prev.Status) {
		return nil, ErrOrderCompleted
	}
	table, ok := a.Store.TableByID(tableID)
	if !ok {
		return nil, livesync.ErrTableNotFound
	}

	optimistic := prev
	optimistic.TableID = table.ID
	optimistic.TableNumber = table.Number
	optimistic.UpdatedAt = time.Now()
	if err := a.Store.PutOrder(optimistic); err != nil {
		return nil, err
	}

	confirmed, err := a.API.UpdateOrder(ctx, orderID, map[string]any{
		"tableId":     table.ID,
		"tableNumber": table.Number,
	})
	if err != nil {
		a.rollbackOrder(prev)
		return nil, fmt.Errorf("table binding on %s rejected: %w", orderID, err)
	}
	a.Store.PutOrder(*confirmed)
	a.occupyTable(ctx, table.ID)
	a.Log.LogTable("bind", table.ID, fmt.Sprintf("bound to order %s", orderID))
	return confirmed, nil
}

func (a *Actions) occupyTable(ctx context.Context, tableID string) {
	a.setTableStatus(ctx, tableID, models.TableOccupied)
}

func (a *Actions) releaseTable(ctx context.Context, tableID string) {
	a.setTableStatus(ctx, tableID, models.TableAvailable)
}

// setTableStatus applies the table side effect locally first so occupancy is
// visible immediately, then confirms with the order-service. A failure is
// logged, not surfaced: the next refresh restores the authoritative value.
func (a *Actions) setTableStatus(ctx context.Context, tableID, status string) {
	patch := fmt.Sprintf(`{"status":%q}`, status)
	if err := a.Store.MergeTable(tableID, []byte(patch)); err != nil {
		a.Log.Warn("TABLE", fmt.Sprintf("local status update for %s failed: %v", tableID, err))
	}
	if _, err := a.API.UpdateTable(ctx, tableID, map[string]any{"status": status}); err != nil {
		a.Log.Warn("TABLE", fmt.Sprintf("status update for %s not confirmed: %v", tableID, err))
	}
}

func (a *Actions) rollbackOrder(prev models.Order) {
	if err := a.Store.PutOrder(prev); err != nil {
		a.Log.Error("ORDER", fmt.Sprintf("rollback of %s failed: %v", prev.ID, err))
	}
	a.Log.LogOrder("rollback", prev.ID, fmt.Sprintf("restored status=%s", prev.Status))
}
