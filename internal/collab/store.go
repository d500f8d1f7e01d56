package collab

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"pos-sync/internal/models"
)

// ErrNotFound covers lookups of IDs the store does not hold.
var ErrNotFound = errors.New("record not found")

// orderRow is the storage shape of an order. Line items and positions are
// JSON columns; sqlite keeps the reference service self-contained.
type orderRow struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID            string    `bun:"id,pk"`
	Type          string    `bun:"type"`
	Status        string    `bun:"status"`
	PaymentStatus string    `bun:"payment_status"`
	Items         []byte    `bun:"items"`
	Subtotal      float64   `bun:"subtotal"`
	Tax           float64   `bun:"tax"`
	Discount      float64   `bun:"discount"`
	Total         float64   `bun:"total"`
	CashierName   string    `bun:"cashier_name"`
	TableID       string    `bun:"table_id"`
	TableNumber   int       `bun:"table_number"`
	FloorName     string    `bun:"floor_name"`
	CustomerName  string    `bun:"customer_name"`
	DeliveryPhone string    `bun:"delivery_phone"`
	DeliveryAddr  string    `bun:"delivery_address"`
	Notes         string    `bun:"notes"`
	Source        string    `bun:"source"`
	CreatedAt     time.Time `bun:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero"`
}

type tableRow struct {
	bun.BaseModel `bun:"table:tables,alias:t"`

	ID       string `bun:"id,pk"`
	Number   int    `bun:"number"`
	FloorID  string `bun:"floor_id"`
	Capacity int    `bun:"capacity"`
	Shape    string `bun:"shape"`
	Status   string `bun:"status"`
	Position []byte `bun:"position"`
}

// Store is the authoritative order/table storage behind the order-service.
type Store struct {
	Bun *bun.DB
}

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.Bun.NewCreateTable().Model((*orderRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create orders table: %w", err)
	}
	if _, err := s.Bun.NewCreateTable().Model((*tableRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create tables table: %w", err)
	}
	return nil
}

// ListOrders returns every order, newest first.
func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	var rows []orderRow
	err := s.Bun.NewSelect().
		Model(&rows).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(rows))
	for _, row := range rows {
		order, err := row.toOrder()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// GetOrder fetches one order by ID.
func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var row orderRow
	err := s.Bun.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	order, err := row.toOrder()
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// InsertOrder persists a new order.
func (s *Store) InsertOrder(ctx context.Context, order models.Order) error {
	row, err := toOrderRow(order)
	if err != nil {
		return err
	}
	_, err = s.Bun.NewInsert().Model(&row).Exec(ctx)
	return err
}

// UpdateOrder replaces a stored order wholesale.
func (s *Store) UpdateOrder(ctx context.Context, order models.Order) error {
	row, err := toOrderRow(order)
	if err != nil {
		return err
	}
	res, err := s.Bun.NewUpdate().
		Model(&row).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOrder removes an order by ID.
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	res, err := s.Bun.NewDelete().
		Model((*orderRow)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTables returns every table ordered by floor and number.
func (s *Store) ListTables(ctx context.Context) ([]models.Table, error) {
	var rows []tableRow
	err := s.Bun.NewSelect().
		Model(&rows).
		Order("floor_id ASC", "number ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	tbls := make([]models.Table, 0, len(rows))
	for _, row := range rows {
		tbl, err := row.toTable()
		if err != nil {
			return nil, err
		}
		tbls = append(tbls, tbl)
	}
	return tbls, nil
}

// GetTable fetches one table by ID.
func (s *Store) GetTable(ctx context.Context, id string) (*models.Table, error) {
	var row tableRow
	err := s.Bun.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	tbl, err := row.toTable()
	if err != nil {
		return nil, err
	}
	return &tbl, nil
}

// InsertTable persists a table. Used by seeding.
func (s *Store) InsertTable(ctx context.Context, tbl models.Table) error {
	row, err := toTableRow(tbl)
	if err != nil {
		return err
	}
	_, err = s.Bun.NewInsert().Model(&row).Exec(ctx)
	return err
}

// UpdateTable replaces a stored table wholesale.
func (s *Store) UpdateTable(ctx context.Context, tbl models.Table) error {
	row, err := toTableRow(tbl)
	if err != nil {
		return err
	}
	res, err := s.Bun.NewUpdate().
		Model(&row).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountTables reports how many tables exist; seeding runs only on zero.
func (s *Store) CountTables(ctx context.Context) (int, error) {
	return s.Bun.NewSelect().Model((*tableRow)(nil)).Count(ctx)
}

func (r orderRow) toOrder() (models.Order, error) {
	var items []models.OrderItem
	if len(r.Items) > 0 {
		if err := json.Unmarshal(r.Items, &items); err != nil {
			return models.Order{}, fmt.Errorf("decode items for order %s: %w", r.ID, err)
		}
	}
	return models.Order{
		ID:            r.ID,
		Type:          r.Type,
		Status:        r.Status,
		PaymentStatus: r.PaymentStatus,
		Items:         items,
		Subtotal:      r.Subtotal,
		Tax:           r.Tax,
		Discount:      r.Discount,
		Total:         r.Total,
		CashierName:   r.CashierName,
		TableID:       r.TableID,
		TableNumber:   r.TableNumber,
		FloorName:     r.FloorName,
		CustomerName:  r.CustomerName,
		DeliveryPhone: r.DeliveryPhone,
		DeliveryAddr:  r.DeliveryAddr,
		Notes:         r.Notes,
		Source:        r.Source,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}, nil
}

func toOrderRow(o models.Order) (orderRow, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return orderRow{}, fmt.Errorf("encode items for order %s: %w", o.ID, err)
	}
	return orderRow{
		ID:            o.ID,
		Type:          o.Type,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Items:         items,
		Subtotal:      o.Subtotal,
		Tax:           o.Tax,
		Discount:      o.Discount,
		Total:         o.Total,
		CashierName:   o.CashierName,
		TableID:       o.TableID,
		TableNumber:   o.TableNumber,
		FloorName:     o.FloorName,
		CustomerName:  o.CustomerName,
		DeliveryPhone: o.DeliveryPhone,
		DeliveryAddr:  o.DeliveryAddr,
		Notes:         o.Notes,
		Source:        o.Source,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}, nil
}

func (r tableRow) toTable() (models.Table, error) {
	var pos models.Position
	if len(r.Position) > 0 {
		if err := json.Unmarshal(r.Position, &pos); err != nil {
			return models.Table{}, fmt.Errorf("decode position for table %s: %w", r.ID, err)
		}
	}
	return models.Table{
		ID:       r.ID,
		Number:   r.Number,
		FloorID:  r.FloorID,
		Capacity: r.Capacity,
		Shape:    r.Shape,
		Status:   r.Status,
		Position: pos,
	}, nil
}

func toTableRow(t models.Table) (tableRow, error) {
	pos, err := json.Marshal(t.Position)
	if err != nil {
		return tableRow{}, fmt.Errorf("encode position for table %s: %w", t.ID, err)
	}
	return tableRow{
		ID:       t.ID,
		Number:   t.Number,
		FloorID:  t.FloorID,
		Capacity: t.Capacity,
		Shape:    t.Shape,
		Status:   t.Status,
		Position: pos,
	}, nil
}
