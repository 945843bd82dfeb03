// Package runstore persists the history of processing runs.
package runstore

import (
	"context"
	"time"
)

// Run records a single processing run and its merge outcome.
type Run struct {
	ID         string    `json:"id"`
	Snapshot   string    `json:"snapshot"`
	Sources    []string  `json:"sources"`
	Stats      RunStats  `json:"stats"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// RunStats summarizes what a run contributed to the aggregate.
type RunStats struct {
	OPs       int `json:"ops"`
	Questions int `json:"questions"`
	NewOPs    int `json:"new_ops"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
}

// Store is the persistence interface for run history.
type Store interface {
	Migrate(ctx context.Context) error
	RecordRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}
