package memory

import (
	"context"
	"sync"
	"time"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driven"
)

// Ensure Store implements the storage interfaces.
var (
	_ driven.QueueStore    = (*Store)(nil)
	_ driven.MetadataStore = (*Store)(nil)
	_ driven.HistoryStore  = (*Store)(nil)
)

// Store is an in-memory queue, metadata and history store.
//
// Like the SQLite store it rejects calls until Initialize has run, so
// callers exercise the same lifecycle against both.
type Store struct {
	mu          sync.RWMutex
	initialized bool
	closed      bool
	queues      map[domain.QueueName]map[string]domain.QueueItem
	meta        domain.SyncMetadata
	passes      []domain.PassResult
	revision    int64

	// InitErr, when set, is returned (wrapped) by Initialize.
	InitErr error
}

// NewStore creates an empty, uninitialised store.
func NewStore() *Store {
	return &Store{
		queues: make(map[domain.QueueName]map[string]domain.QueueItem),
	}
}

// Initialize prepares the queues. Subsequent calls are no-ops.
func (s *Store) Initialize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}
	if s.InitErr != nil {
		return errStorage(s.InitErr)
	}

	for _, q := range domain.SyncOrder() {
		if s.queues[q] == nil {
			s.queues[q] = make(map[string]domain.QueueItem)
		}
	}
	s.initialized = true
	s.closed = false
	return nil
}

// Put inserts or replaces an item by key.
func (s *Store) Put(_ context.Context, item *domain.QueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if item == nil || item.Key == "" {
		return domain.ErrInvalidInput
	}
	q, ok := s.queues[item.Queue]
	if !ok {
		return domain.ErrInvalidInput
	}
	s.revision++
	item.Revision = s.revision
	q[item.Key] = *item
	return nil
}

// Update replaces an item only if its revision is unchanged.
func (s *Store) Update(_ context.Context, item *domain.QueueItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return false, err
	}
	if item == nil || item.Key == "" {
		return false, domain.ErrInvalidInput
	}
	current, ok := s.queues[item.Queue][item.Key]
	if !ok || current.Revision != item.Revision {
		return false, nil
	}
	s.revision++
	item.Revision = s.revision
	s.queues[item.Queue][item.Key] = *item
	return true, nil
}

// Get retrieves an item by key.
func (s *Store) Get(_ context.Context, queue domain.QueueName, key string) (*domain.QueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	item, ok := s.queues[queue][key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

// Delete removes an item by key.
func (s *Store) Delete(_ context.Context, queue domain.QueueName, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	delete(s.queues[queue], key)
	return nil
}

// DeleteRevision removes an item only if its revision is unchanged.
func (s *Store) DeleteRevision(_ context.Context, queue domain.QueueName, key string, revision int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return false, err
	}
	current, ok := s.queues[queue][key]
	if !ok || current.Revision != revision {
		return false, nil
	}
	delete(s.queues[queue], key)
	return true, nil
}

// List returns all items in a queue in no particular order.
func (s *Store) List(_ context.Context, queue domain.QueueName) ([]domain.QueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	items := make([]domain.QueueItem, 0, len(s.queues[queue]))
	for _, item := range s.queues[queue] {
		items = append(items, item)
	}
	return items, nil
}

// Count returns the number of items in a queue.
func (s *Store) Count(_ context.Context, queue domain.QueueName) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready(); err != nil {
		return 0, err
	}
	return len(s.queues[queue]), nil
}

// Clear removes every item from a queue.
func (s *Store) Clear(_ context.Context, queue domain.QueueName) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if _, ok := s.queues[queue]; ok {
		s.queues[queue] = make(map[string]domain.QueueItem)
	}
	return nil
}

// Close marks the store unusable until Initialize is called again.
// Queued items are kept.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
	s.closed = true
	return nil
}

// ==================== Metadata ====================

// GetMetadata returns the current sync flags.
func (s *Store) GetMetadata(_ context.Context) (*domain.SyncMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	meta := s.meta
	return &meta, nil
}

// SetLastSyncTime records when the last pass completed.
func (s *Store) SetLastSyncTime(_ context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	s.meta.LastSyncTime = t
	return nil
}

// SetSyncInProgress records the single-flight flag.
func (s *Store) SetSyncInProgress(_ context.Context, inProgress bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	s.meta.SyncInProgress = inProgress
	return nil
}

// ==================== History ====================

// RecordPass logs a pass result.
func (s *Store) RecordPass(_ context.Context, result *domain.PassResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	s.passes = append(s.passes, *result)
	return nil
}

// ListPasses returns recent passes, most recent first.
func (s *Store) ListPasses(_ context.Context, limit int) ([]domain.PassResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(s.passes) {
		limit = len(s.passes)
	}
	out := make([]domain.PassResult, 0, limit)
	for i := len(s.passes) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.passes[i])
	}
	return out, nil
}

// PruneHistory keeps only the most recent 'keep' passes.
func (s *Store) PruneHistory(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if keep >= 0 && len(s.passes) > keep {
		s.passes = append([]domain.PassResult(nil), s.passes[len(s.passes)-keep:]...)
	}
	return nil
}

// ready reports whether the store can serve calls (caller must hold lock).
func (s *Store) ready() error {
	if !s.initialized {
		if s.closed {
			return errStorage(errClosed)
		}
		return errStorage(errNotInitialized)
	}
	return nil
}
