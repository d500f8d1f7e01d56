package kitchen

import (
	"context"
	"time"

	"pos-sync/internal/models"
)

// Tier is the time-based severity classification of an open order.
type Tier string

const (
	TierFresh    Tier = "fresh"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
)

const (
	warningAfter  = 10 * time.Minute
	criticalAfter = 20 * time.Minute
)

// Classify derives the urgency tier for an order at the given instant.
// Terminal orders are always fresh regardless of age.
func Classify(order models.Order, now time.Time) Tier {
	if models.IsTerminal(order.Status) {
		return TierFresh
	}
	elapsed := now.Sub(order.CreatedAt)
	switch {
	case elapsed > criticalAfter:
		return TierCritical
	case elapsed >= warningAfter:
		return TierWarning
	default:
		return TierFresh
	}
}

// Tick invokes fn on a fixed interval until the context is cancelled. Urgency
// is time-driven, not event-driven: elapsed time moves even when no network
// event arrives, so the kitchen view re-derives tiers on this tick rather
// than waiting for a cache change.
func Tick(ctx context.Context, interval time.Duration, fn func(now time.Time)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			fn(now)
		}
	}
}
