package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. Transitions between them are owned by the lifecycle package.
const (
	StatusNew       = "new"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusCompleted = "completed"
	StatusHeld      = "held"
)

// Order types.
const (
	TypeDineIn   = "dine-in"
	TypeTakeaway = "takeaway"
	TypeDelivery = "delivery"
)

// Payment statuses.
const (
	PaymentUnpaid  = "unpaid"
	PaymentPartial = "partial"
	PaymentPaid    = "paid"
)

// OrderItem is a single line on an order. The same menu item may appear as
// separate lines, so ItemID is not unique within an order.
type OrderItem struct {
	ItemID            string  `json:"id"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Quantity          int     `json:"quantity"`
	IsReady           bool    `json:"isReady"`
	Notes             string  `json:"notes,omitempty"`
	IsFavoriteKitchen bool    `json:"isFavoriteKitchen,omitempty"`
	PlatingMediaURL   string  `json:"platingMediaUrl,omitempty"`
}

// Order is the canonical shape of a customer transaction as served by the
// order-service and cached by every client surface.
type Order struct {
	ID            string      `json:"id"`
	Type          string      `json:"type"`
	Status        string      `json:"status"`
	PaymentStatus string      `json:"paymentStatus"`
	Items         []OrderItem `json:"items"`
	Subtotal      float64     `json:"subtotal"`
	Tax           float64     `json:"tax"`
	Discount      float64     `json:"discount"`
	Total         float64     `json:"total"`
	CashierName   string      `json:"cashierName,omitempty"`
	TableID       string      `json:"tableId,omitempty"`
	TableNumber   int         `json:"tableNumber,omitempty"`
	FloorName     string      `json:"floorName,omitempty"`
	CustomerName  string      `json:"customerName,omitempty"`
	DeliveryPhone string      `json:"deliveryPhone,omitempty"`
	DeliveryAddr  string      `json:"deliveryAddress,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	Source        string      `json:"source,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt,omitempty"`
}

// IsTerminal reports whether an order status permits no further mutation.
func IsTerminal(status string) bool {
	return status == StatusCompleted
}

// Totals holds the computed money fields of an order.
type Totals struct {
	Subtotal float64
	Tax      float64
	Total    float64
}

// ComputeTotals derives subtotal, tax and total from the line items. The math
// runs in decimal and is rounded to currency scale so repeated recomputation
// never drifts; total is always subtotal + tax - discount.
func ComputeTotals(items []OrderItem, taxRate, discount float64) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(decimal.NewFromFloat(taxRate)).Round(2)
	total := subtotal.Add(tax).Sub(decimal.NewFromFloat(discount)).Round(2)

	sub, _ := subtotal.Float64()
	tx, _ := tax.Float64()
	tot, _ := total.Float64()
	return Totals{Subtotal: sub, Tax: tx, Total: tot}
}
