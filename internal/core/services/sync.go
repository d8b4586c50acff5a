package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driven"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driving"
	"github.com/safeworkpro/fieldsync/internal/logger"
)

// Ensure SyncEngine implements the interface.
var _ driving.SyncService = (*SyncEngine)(nil)

// SyncEngine drains the mutation queues against the remote API.
//
// At most one pass runs at a time. The in-memory running flag is the
// authority; the persisted SyncInProgress flag only mirrors it.
type SyncEngine struct {
	config  domain.SyncConfig
	store   driven.QueueStore
	meta    driven.MetadataStore
	history driven.HistoryStore
	remote  driven.RemoteClient
	conn    driven.ConnectivityProvider

	mu      sync.Mutex
	running bool

	listenersMu sync.RWMutex
	listeners   []driven.SyncListener

	// background tracks passes started by Enqueue.
	background sync.WaitGroup

	now func() time.Time
}

// NewSyncEngine creates a sync engine.
// The history store is optional; pass nil to disable pass history.
func NewSyncEngine(
	config domain.SyncConfig,
	store driven.QueueStore,
	meta driven.MetadataStore,
	history driven.HistoryStore,
	remote driven.RemoteClient,
	conn driven.ConnectivityProvider,
) *SyncEngine {
	return &SyncEngine{
		config:  config.WithDefaults(),
		store:   store,
		meta:    meta,
		history: history,
		remote:  remote,
		conn:    conn,
		now:     time.Now,
	}
}

// Config returns the effective engine configuration.
func (e *SyncEngine) Config() domain.SyncConfig {
	return e.config
}

// AddListener registers a progress listener.
func (e *SyncEngine) AddListener(l driven.SyncListener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Recover clears a SyncInProgress flag left behind by a previous process.
// No pass can be running in a process that has just started, so a persisted
// true value is stale.
func (e *SyncEngine) Recover(ctx context.Context) error {
	if err := e.store.Initialize(ctx); err != nil {
		return err
	}

	meta, err := e.meta.GetMetadata(ctx)
	if err != nil {
		return fmt.Errorf("get metadata: %w", err)
	}
	if !meta.SyncInProgress {
		return nil
	}

	logger.Warn("sync: clearing stale in-progress flag from a previous run")
	if err := e.meta.SetSyncInProgress(ctx, false); err != nil {
		return fmt.Errorf("reset sync flag: %w", err)
	}
	return nil
}

// Enqueue persists an item and, when online, starts a background pass.
func (e *SyncEngine) Enqueue(ctx context.Context, item *domain.QueueItem) error {
	if item == nil {
		return fmt.Errorf("%w: nil item", domain.ErrInvalidInput)
	}
	if item.Key == "" {
		item.Key = uuid.NewString()
	}
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = e.now()
	}
	item.ResetRetry()

	if err := item.Validate(); err != nil {
		return err
	}

	if err := e.store.Initialize(ctx); err != nil {
		return err
	}
	if err := e.store.Put(ctx, item); err != nil {
		return fmt.Errorf("enqueue %s/%s: %w", item.Queue, item.Key, err)
	}

	logger.Debug("sync: enqueued %s %s (%s)", item.Queue, item.Operation, item.Key)

	if e.conn.Online(ctx) {
		e.background.Add(1)
		go func() {
			defer e.background.Done()
			if _, err := e.SyncNow(context.Background()); err != nil && !isSkip(err) {
				logger.Error("sync: background pass failed: %v", err)
			}
		}()
	}

	return nil
}

// Wait blocks until background passes started by Enqueue have finished.
func (e *SyncEngine) Wait() {
	e.background.Wait()
}

// SyncNow runs one pass over every queue in order.
//
// Per-item failures are recorded on the items and do not fail the pass.
// A storage failure aborts the pass and is returned.
func (e *SyncEngine) SyncNow(ctx context.Context) (*domain.PassResult, error) {
	if err := e.store.Initialize(ctx); err != nil {
		return nil, err
	}

	if !e.conn.Online(ctx) {
		logger.Debug("sync: offline, pass skipped")
		return nil, domain.ErrNetworkUnavailable
	}

	if !e.acquire(ctx) {
		logger.Info("sync: pass already running, request ignored")
		return nil, domain.ErrSyncInProgress
	}
	defer e.release(ctx)

	result := &domain.PassResult{StartedAt: e.now()}
	e.notifyStarted(e.countEligible(ctx))

	logger.Section("Sync pass")

	var passErr error
	for _, queue := range domain.SyncOrder() {
		if err := e.drainQueue(ctx, queue, result); err != nil {
			passErr = err
			break
		}
	}

	result.EndedAt = e.now()
	switch {
	case errors.Is(passErr, context.Canceled):
		result.Error = passErr.Error()
		logger.Info("sync: pass cancelled")
	case passErr != nil:
		result.Error = passErr.Error()
		logger.Error("sync: pass aborted: %v", passErr)
	default:
		if err := e.meta.SetLastSyncTime(ctx, result.EndedAt); err != nil {
			logger.Warn("sync: failed to record last sync time: %v", err)
		}
		logger.Info("sync: pass complete: %d attempted, %d succeeded, %d failed, %d skipped",
			result.Attempted, result.Succeeded, result.Failed, result.Skipped)
	}

	e.recordHistory(context.WithoutCancel(ctx), result)
	e.notifyCompleted(*result)

	return result, passErr
}

// drainQueue attempts every item in one queue.
// It stops early, returning the context error, once ctx is done.
func (e *SyncEngine) drainQueue(ctx context.Context, queue domain.QueueName, result *domain.PassResult) error {
	items, err := e.store.List(ctx, queue)
	if err != nil {
		return fmt.Errorf("list %s: %w", queue, err)
	}
	sortByEnqueued(items)

	for i := range items {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pass cancelled: %w", err)
		}

		item := &items[i]

		if item.IsExhausted(e.config.MaxRetries) {
			result.Skipped++
			continue
		}

		outcome := e.syncItem(ctx, item)
		switch {
		case outcome.Deferred:
			result.Skipped++
		case outcome.Success:
			result.Attempted++
			result.Succeeded++
		default:
			result.Attempted++
			result.Failed++
			if outcome.Failed {
				result.Exhausted++
			}
		}
		e.notifyItem(outcome)
	}

	return nil
}

// syncItem pushes one item and writes the outcome back to the store.
//
// Write-backs are conditional on the revision read at the start of the
// pass. An item re-enqueued, retried or cleared while its push was in
// flight keeps its newer state.
func (e *SyncEngine) syncItem(ctx context.Context, item *domain.QueueItem) domain.ItemOutcome {
	outcome := domain.ItemOutcome{
		Queue:      item.Queue,
		Key:        item.Key,
		Operation:  item.Operation,
		RetryCount: item.RetryCount,
	}

	callCtx, cancel := context.WithTimeout(ctx, e.config.RequestTimeout)
	pushErr := e.remote.Push(callCtx, item)
	cancel()

	// The push has completed either way; record it even if ctx is now done.
	writeCtx := context.WithoutCancel(ctx)

	if pushErr == nil {
		removed, err := e.store.DeleteRevision(writeCtx, item.Queue, item.Key, item.Revision)
		if err != nil {
			// The server has the mutation; the next pass resends it with the
			// same idempotency key.
			logger.Warn("sync: delete %s/%s after success: %v", item.Queue, item.Key, err)
			outcome.Error = err.Error()
			return outcome
		}
		if !removed {
			outcome.Stale = true
			logger.Debug("sync: %s/%s changed during push, newer version kept", item.Queue, item.Key)
		}
		logger.Debug("sync: %s %s (%s) ok", item.Queue, item.Operation, item.Key)
		outcome.Success = true
		return outcome
	}

	if errors.Is(pushErr, domain.ErrRateLimited) || ctx.Err() != nil {
		outcome.Deferred = true
		outcome.Error = pushErr.Error()
		logger.Debug("sync: %s/%s deferred: %v", item.Queue, item.Key, pushErr)
		return outcome
	}

	item.RecordFailure(pushErr, e.config.MaxRetries)
	outcome.RetryCount = item.RetryCount
	outcome.Failed = item.Failed
	outcome.Error = item.LastError
	outcome.Rejected = !domain.IsRetryable(pushErr)

	switch {
	case item.Failed:
		logger.Warn("sync: %s/%s failed %d times, needs manual retry: %v",
			item.Queue, item.Key, item.RetryCount, pushErr)
	case outcome.Rejected:
		logger.Warn("sync: %s/%s rejected by server: %v", item.Queue, item.Key, pushErr)
	default:
		logger.Debug("sync: %s/%s attempt %d failed: %v", item.Queue, item.Key, item.RetryCount, pushErr)
	}

	updated, err := e.store.Update(writeCtx, item)
	if err != nil {
		logger.Warn("sync: write back %s/%s: %v", item.Queue, item.Key, err)
	} else if !updated {
		outcome.Stale = true
		logger.Debug("sync: %s/%s changed during push, failure not recorded", item.Queue, item.Key)
	}

	return outcome
}

// Stats returns pending and failed counts per queue.
func (e *SyncEngine) Stats(ctx context.Context) (*domain.SyncStats, error) {
	if err := e.store.Initialize(ctx); err != nil {
		return nil, err
	}

	stats := &domain.SyncStats{
		Queues:         make([]domain.QueueStats, 0, len(domain.SyncOrder())),
		SyncInProgress: e.isRunning(),
		Online:         e.conn.Online(ctx),
	}

	for _, queue := range domain.SyncOrder() {
		items, err := e.store.List(ctx, queue)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", queue, err)
		}

		qs := domain.QueueStats{Queue: queue}
		for i := range items {
			if items[i].IsExhausted(e.config.MaxRetries) {
				qs.Failed++
			} else {
				qs.Pending++
			}
		}
		stats.Queues = append(stats.Queues, qs)
	}

	meta, err := e.meta.GetMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	stats.LastSyncTime = meta.LastSyncTime

	return stats, nil
}

// Retry resets one item's retry state and attempts a pass.
func (e *SyncEngine) Retry(ctx context.Context, queue domain.QueueName, key string) error {
	if !queue.IsValid() {
		return fmt.Errorf("%w: unknown queue %q", domain.ErrInvalidInput, queue)
	}
	if err := e.store.Initialize(ctx); err != nil {
		return err
	}

	item, err := e.store.Get(ctx, queue, key)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s/%s", domain.ErrItemNotFound, queue, key)
	}
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", queue, key, err)
	}

	item.ResetRetry()
	if err := e.store.Put(ctx, item); err != nil {
		return fmt.Errorf("reset %s/%s: %w", queue, key, err)
	}
	logger.Info("sync: retry requested for %s/%s", queue, key)

	if _, err := e.SyncNow(ctx); err != nil && !isSkip(err) {
		return err
	}
	return nil
}

// RetryAllFailed resets every exhausted item and returns how many were reset.
// It does not start a pass.
func (e *SyncEngine) RetryAllFailed(ctx context.Context) (int, error) {
	if err := e.store.Initialize(ctx); err != nil {
		return 0, err
	}

	reset := 0
	for _, queue := range domain.SyncOrder() {
		items, err := e.store.List(ctx, queue)
		if err != nil {
			return reset, fmt.Errorf("list %s: %w", queue, err)
		}
		for i := range items {
			item := &items[i]
			if !item.IsExhausted(e.config.MaxRetries) {
				continue
			}
			item.ResetRetry()
			if err := e.store.Put(ctx, item); err != nil {
				return reset, fmt.Errorf("reset %s/%s: %w", queue, item.Key, err)
			}
			reset++
		}
	}

	logger.Info("sync: reset %d failed items", reset)
	return reset, nil
}

// ClearAll empties every queue.
func (e *SyncEngine) ClearAll(ctx context.Context) error {
	if err := e.store.Initialize(ctx); err != nil {
		return err
	}

	var errs []error
	for _, queue := range domain.SyncOrder() {
		if err := e.store.Clear(ctx, queue); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", queue, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logger.Info("sync: all queues cleared")
	return nil
}

// ListItems returns the items in a queue, oldest first.
func (e *SyncEngine) ListItems(ctx context.Context, queue domain.QueueName) ([]domain.QueueItem, error) {
	if !queue.IsValid() {
		return nil, fmt.Errorf("%w: unknown queue %q", domain.ErrInvalidInput, queue)
	}
	if err := e.store.Initialize(ctx); err != nil {
		return nil, err
	}

	items, err := e.store.List(ctx, queue)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", queue, err)
	}
	sortByEnqueued(items)
	return items, nil
}

// History returns recent passes, most recent first.
func (e *SyncEngine) History(ctx context.Context, limit int) ([]domain.PassResult, error) {
	if e.history == nil {
		return nil, nil
	}
	if err := e.store.Initialize(ctx); err != nil {
		return nil, err
	}
	return e.history.ListPasses(ctx, limit)
}

// ==================== Single-flight ====================

func (e *SyncEngine) acquire(ctx context.Context) bool {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return false
	}
	e.running = true
	e.mu.Unlock()

	if err := e.meta.SetSyncInProgress(ctx, true); err != nil {
		logger.Warn("sync: failed to persist in-progress flag: %v", err)
	}
	return true
}

func (e *SyncEngine) release(ctx context.Context) {
	if err := e.meta.SetSyncInProgress(context.WithoutCancel(ctx), false); err != nil {
		logger.Warn("sync: failed to clear in-progress flag: %v", err)
	}

	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

func (e *SyncEngine) isRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// ==================== Listeners ====================

func (e *SyncEngine) snapshotListeners() []driven.SyncListener {
	e.listenersMu.RLock()
	defer e.listenersMu.RUnlock()
	return append([]driven.SyncListener(nil), e.listeners...)
}

func (e *SyncEngine) notifyStarted(eligible int) {
	for _, l := range e.snapshotListeners() {
		l.PassStarted(eligible)
	}
}

func (e *SyncEngine) notifyItem(outcome domain.ItemOutcome) {
	for _, l := range e.snapshotListeners() {
		l.ItemProcessed(outcome)
	}
}

func (e *SyncEngine) notifyCompleted(result domain.PassResult) {
	for _, l := range e.snapshotListeners() {
		l.PassCompleted(result)
	}
}

// countEligible counts the items the pass is expected to attempt.
// It is only used for progress reporting.
func (e *SyncEngine) countEligible(ctx context.Context) int {
	if len(e.snapshotListeners()) == 0 {
		return 0
	}
	n := 0
	for _, queue := range domain.SyncOrder() {
		items, err := e.store.List(ctx, queue)
		if err != nil {
			return 0
		}
		for i := range items {
			if !items[i].IsExhausted(e.config.MaxRetries) {
				n++
			}
		}
	}
	return n
}

func (e *SyncEngine) recordHistory(ctx context.Context, result *domain.PassResult) {
	if e.history == nil {
		return
	}
	if err := e.history.RecordPass(ctx, result); err != nil {
		logger.Warn("sync: failed to record pass: %v", err)
		return
	}
	if err := e.history.PruneHistory(ctx, e.config.HistoryKeep); err != nil {
		logger.Warn("sync: failed to prune history: %v", err)
	}
}

// isSkip reports whether err means the pass did not run.
func isSkip(err error) bool {
	return errors.Is(err, domain.ErrNetworkUnavailable) || errors.Is(err, domain.ErrSyncInProgress)
}

func sortByEnqueued(items []domain.QueueItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].EnqueuedAt.Before(items[j].EnqueuedAt)
	})
}
