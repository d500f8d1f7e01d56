package collab

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Lock TTL bounds the window in which a crashed terminal could leave a table
// half-seated.
const tableLockTTL = 2 * time.Minute

// Locks guards table seating against two cashier terminals creating orders
// for the same table at the same moment. The lock only covers the creation
// window; occupancy itself lives on the table record.
type Locks struct {
	Client *redis.Client
}

// LockTable takes the seating lock for a table on behalf of an order. Returns
// false when another order holds it.
func (l *Locks) LockTable(ctx context.Context, tableID, orderID string) (bool, error) {
	key := "table_lock:" + tableID
	return l.Client.SetNX(ctx, key, orderID, tableLockTTL).Result()
}

// UnlockTable releases the seating lock if this order still holds it.
func (l *Locks) UnlockTable(ctx context.Context, tableID, orderID string) error {
	key := "table_lock:" + tableID
	val, err := l.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read table lock %s: %w", tableID, err)
	}
	if val == orderID {
		_, err := l.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}
