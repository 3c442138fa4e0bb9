// Package store persists the tasks of each run to a local SQLite file so
// runs can be inspected or diffed later.
package store

import (
	"context"
	"time"

	"github.com/nhle/task-consolidator/internal/model"
)

// Run describes one fetch invocation.
type Run struct {
	ID        string
	StartedAt time.Time
	Format    string
	TaskCount int
}

// Store defines the persistence interface for exported runs.
type Store interface {
	// SaveRun writes run and its tasks in one transaction and returns the
	// run ID (generated when run.ID is empty).
	SaveRun(ctx context.Context, run Run, tasks []model.Task) (string, error)

	// GetRuns lists runs, most recent first.
	GetRuns(ctx context.Context) ([]Run, error)

	// GetRunTasks returns a run's tasks in their original order.
	GetRunTasks(ctx context.Context, runID string) ([]model.Task, error)

	Close() error
}
