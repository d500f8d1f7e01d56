package livesync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"pos-sync/internal/logger"
	"pos-sync/internal/models"
)

// Fetcher is the polling side of the order-service surface.
type Fetcher interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListTables(ctx context.Context) ([]models.Table, error)
}

// EventSource is a long-lived push subscription. Run blocks, invoking handle
// for every delivered event, and returns when the subscription breaks or the
// context is cancelled. The Client reconnects with backoff around it.
type EventSource interface {
	Run(ctx context.Context, handle func(models.Event)) error
}

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second

	// Consecutive refresh failures beyond this are logged as errors rather
	// than warnings; the loop itself never stops.
	failureWarnThreshold = 3
)

// Client keeps the Store converged with the authoritative order-service. Two
// independent producers feed the store's merge functions: a recurring full
// refresh and the push subscription. Either may fail without affecting the
// other; the worst case is a stale cache, never an empty or corrupt one.
type Client struct {
	store    *Store
	fetcher  Fetcher
	source   EventSource
	log      *logger.Logger
	interval time.Duration

	connected atomic.Bool
	failures  int
}

func NewClient(store *Store, fetcher Fetcher, source EventSource, log *logger.Logger, interval time.Duration) *Client {
	return &Client{
		store:    store,
		fetcher:  fetcher,
		source:   source,
		log:      log,
		interval: interval,
	}
}

// Start begins continuous operation: an immediate refresh, the refresh
// ticker, and the push subscription. It returns once the loops are running;
// cancel the context to stop them.
func (c *Client) Start(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		c.log.Warn("SYNC", fmt.Sprintf("initial refresh failed: %v", err))
	}

	go c.refreshLoop(ctx)
	if c.source != nil {
		go c.subscribeLoop(ctx)
	}
}

// Connected reports whether the push subscription is currently live. While
// false the refresh ticker is the sole source of truth; it never pauses.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Refresh performs one full fetch of orders and tables and installs whichever
// of them actually changed. A failed fetch leaves the existing cache intact.
func (c *Client) Refresh(ctx context.Context) error {
	var firstErr error

	orders, err := c.fetcher.ListOrders(ctx)
	if err != nil {
		firstErr = fmt.Errorf("fetch orders: %w", err)
	} else if c.store.ReplaceOrders(orders) {
		c.log.LogSync("refresh", fmt.Sprintf("orders replaced (%d records)", len(orders)))
	}

	tables, err := c.fetcher.ListTables(ctx)
	if err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("fetch tables: %w", err)
		}
	} else if c.store.ReplaceTables(tables) {
		c.log.LogSync("refresh", fmt.Sprintf("tables replaced (%d records)", len(tables)))
	}

	return firstErr
}

func (c *Client) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.failures++
				if c.failures > failureWarnThreshold {
					c.log.Error("SYNC", fmt.Sprintf("refresh failing repeatedly (%d in a row): %v", c.failures, err))
				} else {
					c.log.Warn("SYNC", fmt.Sprintf("refresh failed, keeping cached state: %v", err))
				}
			} else {
				c.failures = 0
			}
		}
	}
}

func (c *Client) subscribeLoop(ctx context.Context) {
	backoff := reconnectBase
	for {
		if ctx.Err() != nil {
			return
		}

		c.connected.Store(true)
		c.log.LogSync("subscribe", "push subscription established")

		started := time.Now()
		err := c.source.Run(ctx, c.Apply)

		c.connected.Store(false)
		if ctx.Err() != nil {
			return
		}
		backoff = nextBackoff(backoff, time.Since(started))
		c.log.Warn("SYNC", fmt.Sprintf("push subscription lost, reconnecting in %s: %v", backoff, err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

// nextBackoff picks the delay before the next subscribe attempt. A session
// that outlived the pending delay was a healthy connection, so the ladder
// restarts at the base instead of carrying doubling accumulated before it.
func nextBackoff(pending, session time.Duration) time.Duration {
	if session > pending {
		return reconnectBase
	}
	return pending
}

// Apply is the reducer for push events: each event becomes a targeted merge
// against the store. Malformed payloads are logged and dropped; they never
// stop the loop or touch the cache.
func (c *Client) Apply(ev models.Event) {
	switch ev.Type {
	case models.EventOrderCreated:
		obj := ExtractObject(ev.Payload)
		if obj == nil {
			c.log.Warn("SYNC", "orderCreated payload carries no object, dropped")
			return
		}
		var order models.Order
		if err := json.Unmarshal(obj, &order); err != nil {
			c.log.Warn("SYNC", fmt.Sprintf("orderCreated payload dropped: %v", err))
			return
		}
		if order.ID == "" {
			// Some producers carry the identifier as _id or only in the
			// surrounding envelope; resolve it the way every event does.
			id, err := NormalizeID(ev.Payload)
			if err != nil {
				c.log.Warn("SYNC", fmt.Sprintf("orderCreated payload dropped: %v", err))
				return
			}
			order.ID = id
		}
		c.store.UpsertOrder(order)
		c.log.LogOrder("created", order.ID, "merged from push")

	case models.EventOrderUpdated:
		id, err := NormalizeID(ev.Payload)
		if err != nil {
			c.log.Warn("SYNC", fmt.Sprintf("orderUpdated payload dropped: %v", err))
			return
		}
		obj := ExtractObject(ev.Payload)
		if obj == nil {
			return
		}
		if err := c.store.MergeOrder(id, obj); err != nil {
			// Unknown ID: the next refresh will reconcile it.
			c.log.Debug("SYNC", fmt.Sprintf("orderUpdated for %s not merged: %v", id, err))
			return
		}
		c.log.LogOrder("updated", id, "merged from push")

	case models.EventOrderDeleted:
		id, err := NormalizeID(ev.Payload)
		if err != nil {
			c.log.Warn("SYNC", fmt.Sprintf("orderDeleted payload dropped: %v", err))
			return
		}
		c.store.RemoveOrder(id)
		c.log.LogOrder("deleted", id, "removed from cache")

	case models.EventTableUpdated:
		id, err := NormalizeID(ev.Payload)
		if err != nil {
			c.log.Warn("SYNC", fmt.Sprintf("tableUpdated payload dropped: %v", err))
			return
		}
		obj := ExtractObject(ev.Payload)
		if obj == nil {
			return
		}
		if err := c.store.MergeTable(id, obj); err != nil {
			c.log.Debug("SYNC", fmt.Sprintf("tableUpdated for %s not merged: %v", id, err))
			return
		}
		c.log.LogTable("updated", id, "merged from push")

	default:
		c.log.Warn("SYNC", fmt.Sprintf("unrecognized push event %q dropped", ev.Type))
	}
}
