package tasks

import (
	"context"
	"time"
)

// ScheduledTaskFunc is the signature of every scheduled task.
// Tasks must respect cancellation of ctx.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns every task keyed by the name used under
// scheduler.tasks in the configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	tasks := make(map[string]ScheduledTaskFunc)
	tasks["sql_maintenance"] = newSQLMaintenanceTask(deps)
	tasks["delivery_prune"] = newDeliveryPruneTask(deps)

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
