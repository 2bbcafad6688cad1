package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/bachat/bachat/internal/catalog"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogSync reconciles the action catalog against the route
	// manifest and deactivates removed endpoints.
	TaskCatalogSync = "catalog:sync"
)

// NewCatalogSyncTask constructs an Asynq task.
func NewCatalogSyncTask() *asynq.Task {
	return asynq.NewTask(TaskCatalogSync, nil)
}

// Syncer is the slice of the discovery engine the worker invokes.
type Syncer interface {
	Sync(ctx context.Context) (catalog.SyncReport, error)
}

// NewCatalogSyncHandler processes TaskCatalogSync tasks.
func NewCatalogSyncHandler(syncer Syncer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		report, err := syncer.Sync(ctx)
		if err != nil {
			logger.Error("catalog sync task", slog.Any("error", err))
			return err
		}
		if summary, err := json.Marshal(report); err == nil {
			logger.Info("catalog sync complete", slog.String("report", string(summary)))
		}
		return nil
	}
}
