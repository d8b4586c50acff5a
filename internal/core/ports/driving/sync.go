package driving

import (
	"context"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

// SyncService is the offline mutation queue and its sync engine.
type SyncService interface {
	// Enqueue persists an item and triggers a best-effort sync when online.
	// Returns once the item is stored locally.
	Enqueue(ctx context.Context, item *domain.QueueItem) error

	// SyncNow drains every queue in order.
	// Returns domain.ErrNetworkUnavailable when offline and
	// domain.ErrSyncInProgress when a pass is already running.
	SyncNow(ctx context.Context) (*domain.PassResult, error)

	// Stats returns the pending and failed counts per queue.
	Stats(ctx context.Context) (*domain.SyncStats, error)

	// Retry resets one item's retry state and triggers a sync attempt.
	// Returns domain.ErrItemNotFound if the key is not queued.
	Retry(ctx context.Context, queue domain.QueueName, key string) error

	// RetryAllFailed resets every exhausted item and returns how many.
	RetryAllFailed(ctx context.Context) (int, error)

	// ClearAll empties every queue. Irreversible.
	ClearAll(ctx context.Context) error

	// ListItems returns the items in a queue, oldest first.
	ListItems(ctx context.Context, queue domain.QueueName) ([]domain.QueueItem, error)

	// History returns recent sync passes, most recent first.
	History(ctx context.Context, limit int) ([]domain.PassResult, error)
}
