// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"time"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

// StatsLoaded carries a stats snapshot back to the model.
type StatsLoaded struct {
	Stats *domain.SyncStats
	Err   error
}

// FailedLoaded carries the exhausted items across all queues.
type FailedLoaded struct {
	Items []domain.QueueItem
	Err   error
}

// SyncCompleted is sent when a manual pass ends.
// Result is nil when the pass did not run.
type SyncCompleted struct {
	Result *domain.PassResult
	Err    error
}

// RetryCompleted is sent after a retry request.
type RetryCompleted struct {
	Count int
	Err   error
}

// Tick drives the periodic refresh.
type Tick struct {
	At time.Time
}
