package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask prunes the handled-message ledger and then optimizes
// and vacuums the database.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", TaskSQLMaintenance)

	return func(ctx context.Context) error {
		startTime := time.Now()

		retention := deps.Config.Scheduler.HandledRetention
		if retention > 0 {
			cutoff := deps.now().Add(-retention)
			n, err := deps.Store.PruneHandledMessages(ctx, cutoff)
			if err != nil {
				log.ErrorContext(ctx, "Pruning handled messages failed", "error", err)
				return fmt.Errorf("sql maintenance failed: %w", err)
			}
			log.InfoContext(ctx, "Pruned handled messages", "deleted", n, "cutoff", cutoff)
		}

		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance failed", "error", err, "duration", time.Since(startTime))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "SQL maintenance completed", "duration", time.Since(startTime))
		return nil
	}
}
