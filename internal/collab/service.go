package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pos-sync/internal/lifecycle"
	"pos-sync/internal/logger"
	"pos-sync/internal/models"
)

// ErrInvalidStatus is returned when a patch asks for a status change the
// lifecycle does not allow. Clients treat the rejection as the signal to roll
// back their optimistic write.
var ErrInvalidStatus = errors.New("status change not allowed")

// ErrTableBusy is returned when another order holds the seating lock for the
// requested table.
var ErrTableBusy = errors.New("table is being seated by another order")

// Publisher is the push side of the order-service: every accepted mutation is
// streamed out so client caches converge before their next refresh.
type Publisher interface {
	PublishOrderCreated(order models.Order) error
	PublishOrderUpdated(id string, changed map[string]any) error
	PublishOrderDeleted(id string) error
	PublishTableUpdated(id string, changed map[string]any) error
}

// Service is the authoritative order/table logic behind the order-service
// endpoints. It owns ID assignment, totals recomputation, status validation
// and event publication.
type Service struct {
	Store     *Store
	Locks     *Locks
	Publisher Publisher
	Log       *logger.Logger
	TaxRate   float64
}

func NewService(store *Store, locks *Locks, pub Publisher, log *logger.Logger, taxRate float64) *Service {
	return &Service{Store: store, Locks: locks, Publisher: pub, Log: log, TaxRate: taxRate}
}

// ListOrders returns every stored order, newest first.
func (s *Service) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.Store.ListOrders(ctx)
}

// GetOrder returns one order.
func (s *Service) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.Store.GetOrder(ctx, id)
}

// CreateOrder accepts a new order from a terminal. The service assigns the ID
// and recomputes the money fields; whatever the terminal calculated for its
// optimistic record is discarded.
func (s *Service) CreateOrder(ctx context.Context, order models.Order) (*models.Order, error) {
	if len(order.Items) == 0 {
		return nil, errors.New("order has no items")
	}

	order.ID = uuid.New().String()
	if order.Status == "" {
		order.Status = models.StatusNew
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentUnpaid
	}
	if order.Type == "" {
		order.Type = models.TypeDineIn
	}
	if order.Source == "" {
		order.Source = "pos"
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt

	totals := models.ComputeTotals(order.Items, s.TaxRate, order.Discount)
	order.Subtotal = totals.Subtotal
	order.Tax = totals.Tax
	order.Total = totals.Total

	if order.TableID != "" {
		if err := s.seatTable(ctx, order.TableID, order.ID); err != nil {
			return nil, err
		}
	}

	if err := s.Store.InsertOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	s.Log.LogOrder("create", order.ID, fmt.Sprintf("%d items, total %.2f", len(order.Items), order.Total))

	s.publishOrderCreated(order)
	return &order, nil
}

// UpdateOrder overlays a partial patch onto a stored order. A "status" field
// in the patch is validated against the lifecycle first and the whole patch is
// rejected if the transition is not allowed. Patched items trigger a totals
// recomputation so the money fields can never drift from the lines.
func (s *Service) UpdateOrder(ctx context.Context, id string, patch json.RawMessage) (*models.Order, error) {
	current, err := s.Store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	var probe struct {
		Status *string            `json:"status"`
		Items  []models.OrderItem `json:"items"`
	}
	if err := json.Unmarshal(patch, &probe); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}

	if models.IsTerminal(current.Status) {
		return nil, fmt.Errorf("%w: order %s is completed", ErrInvalidStatus, id)
	}
	if probe.Status != nil && *probe.Status != current.Status {
		if !lifecycle.CanAdvance(current.Status, *probe.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, current.Status, *probe.Status)
		}
	}

	merged, err := models.MergeOrderPatch(*current, patch)
	if err != nil {
		return nil, err
	}
	if probe.Items != nil {
		totals := models.ComputeTotals(merged.Items, s.TaxRate, merged.Discount)
		merged.Subtotal = totals.Subtotal
		merged.Tax = totals.Tax
		merged.Total = totals.Total
	}
	merged.UpdatedAt = time.Now()

	if err := s.Store.UpdateOrder(ctx, merged); err != nil {
		return nil, err
	}
	s.Log.LogOrder("update", id, fmt.Sprintf("status=%s payment=%s", merged.Status, merged.PaymentStatus))

	if merged.Status == models.StatusCompleted && merged.TableID != "" {
		s.releaseSeatedTable(ctx, merged.TableID, merged.ID)
	}

	s.publishOrderUpdated(id, patch, merged)
	return &merged, nil
}

// DeleteOrder removes an order and frees its table.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	order, err := s.Store.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteOrder(ctx, id); err != nil {
		return err
	}
	s.Log.LogOrder("delete", id, "order removed")

	if order.TableID != "" && !models.IsTerminal(order.Status) {
		s.releaseSeatedTable(ctx, order.TableID, id)
	}

	if s.Publisher != nil {
		if err := s.Publisher.PublishOrderDeleted(id); err != nil {
			s.Log.Warn("KAFKA", fmt.Sprintf("orderDeleted %s not published: %v", id, err))
		}
	}
	return nil
}

// ListTables returns every table ordered by floor and number.
func (s *Service) ListTables(ctx context.Context) ([]models.Table, error) {
	return s.Store.ListTables(ctx)
}

// GetTable returns one table.
func (s *Service) GetTable(ctx context.Context, id string) (*models.Table, error) {
	return s.Store.GetTable(ctx, id)
}

// UpdateTable overlays a partial patch onto a stored table.
func (s *Service) UpdateTable(ctx context.Context, id string, patch json.RawMessage) (*models.Table, error) {
	current, err := s.Store.GetTable(ctx, id)
	if err != nil {
		return nil, err
	}

	merged, err := models.MergeTablePatch(*current, patch)
	if err != nil {
		return nil, err
	}
	if err := s.Store.UpdateTable(ctx, merged); err != nil {
		return nil, err
	}
	s.Log.LogTable("update", id, fmt.Sprintf("status=%s", merged.Status))

	s.publishTableUpdated(id, patch)
	return &merged, nil
}

// SeedTables populates the floor plan on first boot.
func (s *Service) SeedTables(ctx context.Context, tbls []models.Table) error {
	count, err := s.Store.CountTables(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, tbl := range tbls {
		if tbl.ID == "" {
			tbl.ID = uuid.New().String()
		}
		if tbl.Status == "" {
			tbl.Status = models.TableAvailable
		}
		if err := s.Store.InsertTable(ctx, tbl); err != nil {
			return fmt.Errorf("seed table %d: %w", tbl.Number, err)
		}
	}
	s.Log.LogTable("seed", "floor", fmt.Sprintf("%d tables created", len(tbls)))
	return nil
}

// seatTable takes the table lock and marks the table occupied.
func (s *Service) seatTable(ctx context.Context, tableID, orderID string) error {
	if s.Locks != nil {
		ok, err := s.Locks.LockTable(ctx, tableID, orderID)
		if err != nil {
			return fmt.Errorf("lock table %s: %w", tableID, err)
		}
		if !ok {
			return ErrTableBusy
		}
	}

	tbl, err := s.Store.GetTable(ctx, tableID)
	if err != nil {
		return err
	}
	tbl.Status = models.TableOccupied
	if err := s.Store.UpdateTable(ctx, *tbl); err != nil {
		return err
	}
	s.publishTableUpdated(tableID, []byte(fmt.Sprintf(`{"status":%q}`, models.TableOccupied)))
	return nil
}

// releaseSeatedTable frees the table and its lock. Failures are logged, not
// surfaced; the order mutation that triggered the release already succeeded.
func (s *Service) releaseSeatedTable(ctx context.Context, tableID, orderID string) {
	if s.Locks != nil {
		if err := s.Locks.UnlockTable(ctx, tableID, orderID); err != nil {
			s.Log.Warn("TABLE", fmt.Sprintf("unlock of %s failed: %v", tableID, err))
		}
	}

	tbl, err := s.Store.GetTable(ctx, tableID)
	if err != nil {
		s.Log.Warn("TABLE", fmt.Sprintf("release of %s failed: %v", tableID, err))
		return
	}
	tbl.Status = models.TableAvailable
	if err := s.Store.UpdateTable(ctx, *tbl); err != nil {
		s.Log.Warn("TABLE", fmt.Sprintf("release of %s failed: %v", tableID, err))
		return
	}
	s.Log.LogTable("release", tableID, fmt.Sprintf("freed by order %s", orderID))
	s.publishTableUpdated(tableID, []byte(fmt.Sprintf(`{"status":%q}`, models.TableAvailable)))
}

func (s *Service) publishOrderCreated(order models.Order) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishOrderCreated(order); err != nil {
		s.Log.Warn("KAFKA", fmt.Sprintf("orderCreated %s not published: %v", order.ID, err))
	}
}

// publishOrderUpdated streams the accepted patch fields, with the
// authoritative money values swapped in when the patch touched the items.
func (s *Service) publishOrderUpdated(id string, patch json.RawMessage, merged models.Order) {
	if s.Publisher == nil {
		return
	}
	var changed map[string]any
	if err := json.Unmarshal(patch, &changed); err != nil {
		return
	}
	if _, ok := changed["items"]; ok {
		changed["subtotal"] = merged.Subtotal
		changed["tax"] = merged.Tax
		changed["total"] = merged.Total
	}
	changed["updatedAt"] = merged.UpdatedAt
	if err := s.Publisher.PublishOrderUpdated(id, changed); err != nil {
		s.Log.Warn("KAFKA", fmt.Sprintf("orderUpdated %s not published: %v", id, err))
	}
}

func (s *Service) publishTableUpdated(id string, patch json.RawMessage) {
	if s.Publisher == nil {
		return
	}
	var changed map[string]any
	if err := json.Unmarshal(patch, &changed); err != nil {
		return
	}
	if err := s.Publisher.PublishTableUpdated(id, changed); err != nil {
		s.Log.Warn("KAFKA", fmt.Sprintf("tableUpdated %s not published: %v", id, err))
	}
}
