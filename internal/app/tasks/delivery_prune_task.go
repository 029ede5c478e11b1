package tasks

import (
	"context"
	"fmt"
)

// newDeliveryPruneTask removes delivery records older than the configured retention.
func newDeliveryPruneTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "delivery_prune")

	return func(ctx context.Context) error {
		retention := deps.Config.Push.DeliveryRetention
		cutoff := deps.Now().Add(-retention)

		removed, err := deps.Store.PruneDeliveries(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Delivery prune failed", "error", err, "cutoff", cutoff)
			return fmt.Errorf("delivery prune failed: %w", err)
		}

		log.InfoContext(ctx, "Pruned delivery records", "removed", removed, "retention", retention)
		return nil
	}
}
