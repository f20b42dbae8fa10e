package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask optimizes the database and drops conversation states
// idle longer than database.state_ttl.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", SQLMaintenanceTask)

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled SQL maintenance task")
		startTime := time.Now()

		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance task failed", "error", err, "duration", time.Since(startTime))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		var pruned int64
		if ttl := deps.Config.Database.StateTTL; ttl > 0 {
			n, err := deps.Store.PruneStates(ctx, deps.wallClock().Now().Add(-ttl))
			if err != nil {
				log.ErrorContext(ctx, "Failed to prune conversation states", "error", err)
				return fmt.Errorf("state pruning failed: %w", err)
			}
			pruned = n
		}

		log.InfoContext(ctx, "Scheduled SQL maintenance task completed",
			"duration", time.Since(startTime),
			"states_pruned", pruned)
		return nil
	}
}
