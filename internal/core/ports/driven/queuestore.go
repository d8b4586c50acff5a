package driven

import (
	"context"
	"time"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

// QueueStore is the durable, transactional store holding the mutation queues.
//
// Every method except Initialize and Close fails with
// domain.ErrStorageUnavailable until Initialize has succeeded.
type QueueStore interface {
	// Initialize opens the store and creates its partitions if absent.
	// It is idempotent and safe to call from multiple goroutines.
	Initialize(ctx context.Context) error

	// Put inserts or replaces an item by key and assigns item.Revision.
	// Revisions are unique across the store, including after Clear.
	Put(ctx context.Context, item *domain.QueueItem) error

	// Update replaces an item only while its stored revision equals
	// item.Revision, then assigns the new revision. It reports false,
	// without error, when the item changed or is gone.
	Update(ctx context.Context, item *domain.QueueItem) (bool, error)

	// Get retrieves an item by key.
	// Returns domain.ErrNotFound if the item is absent.
	Get(ctx context.Context, queue domain.QueueName, key string) (*domain.QueueItem, error)

	// Delete removes an item. It is a no-op if the item is absent.
	Delete(ctx context.Context, queue domain.QueueName, key string) error

	// DeleteRevision removes an item only while its stored revision equals
	// revision. It reports whether the item was removed.
	DeleteRevision(ctx context.Context, queue domain.QueueName, key string, revision int64) (bool, error)

	// List returns all items in a queue. Order is not part of the contract.
	List(ctx context.Context, queue domain.QueueName) ([]domain.QueueItem, error)

	// Count returns the number of items without materialising them.
	Count(ctx context.Context, queue domain.QueueName) (int, error)

	// Clear removes every item from a queue.
	Clear(ctx context.Context, queue domain.QueueName) error

	// Close releases the underlying storage.
	Close() error
}

// MetadataStore persists process-wide sync flags.
type MetadataStore interface {
	// GetMetadata returns the current flags.
	GetMetadata(ctx context.Context) (*domain.SyncMetadata, error)

	// SetLastSyncTime records when the last pass completed.
	SetLastSyncTime(ctx context.Context, t time.Time) error

	// SetSyncInProgress records the single-flight flag.
	SetSyncInProgress(ctx context.Context, inProgress bool) error
}

// HistoryStore persists completed sync passes.
type HistoryStore interface {
	// RecordPass logs a pass result.
	RecordPass(ctx context.Context, result *domain.PassResult) error

	// ListPasses returns recent passes, most recent first.
	ListPasses(ctx context.Context, limit int) ([]domain.PassResult, error)

	// PruneHistory keeps only the most recent 'keep' passes.
	PruneHistory(ctx context.Context, keep int) error
}
