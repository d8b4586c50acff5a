package sqlite

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

// setupTestStore creates an initialised SQLite store in a temp directory.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "fieldsync-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

func testSession(key string, enqueuedAt time.Time) *domain.QueueItem {
	return &domain.QueueItem{
		Key:       key,
		Queue:     domain.QueueSessions,
		Operation: domain.OpCreate,
		Payload: &domain.SessionPayload{
			ProjectID: "proj-9",
			TRAID:     "tra-3",
			Status:    "in_progress",
			Data:      json.RawMessage(`{"answers":{"q1":"yes"}}`),
		},
		EnqueuedAt: enqueuedAt,
	}
}

// ==================== Lifecycle Tests ====================

func TestNewStore_DoesNotOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	store, err := NewStore(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "queue.db"), store.Path())
	assert.NoDirExists(t, dir)
}

func TestNewStore_DefaultDirectory(t *testing.T) {
	store, err := NewStore("")
	require.NoError(t, err)

	assert.Contains(t, store.Path(), filepath.Join(".fieldsync", "data", "queue.db"))
}

func TestStore_OperationsBeforeInitialize(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, store.Put(ctx, testSession("k", time.Now())), domain.ErrStorageUnavailable)

	_, err = store.List(ctx, domain.QueueSessions)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	_, err = store.Count(ctx, domain.QueueSessions)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	_, err = store.GetMetadata(ctx)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	_, err = store.ListPasses(ctx, 10)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestStore_InitializeFailure(t *testing.T) {
	// A regular file where the data directory should be.
	parent := t.TempDir()
	blocker := filepath.Join(parent, "data")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	store, err := NewStore(blocker)
	require.NoError(t, err)

	err = store.Initialize(context.Background())
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	// Later success once the cause is removed.
	require.NoError(t, os.Remove(blocker))
	require.NoError(t, store.Initialize(context.Background()))
	defer store.Close()

	_, err = store.Count(context.Background(), domain.QueueSessions)
	assert.NoError(t, err)
}

func TestStore_InitializeConcurrent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Initialize(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestStore_MigrationsRecorded(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	db, err := store.conn()
	require.NoError(t, err)

	var version int
	require.NoError(t, db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)

	// Reopening does not re-run applied migrations.
	require.NoError(t, store.Close())
	require.NoError(t, store.Initialize(context.Background()))

	db, err = store.conn()
	require.NoError(t, err)
	var rows int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&rows))
	assert.Equal(t, 2, rows)
}

func TestStore_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Initialize(ctx))
	require.NoError(t, first.Put(ctx, testSession("persisted", time.Now())))
	require.NoError(t, first.SetSyncInProgress(ctx, true))
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, second.Initialize(ctx))
	defer second.Close()

	item, err := second.Get(ctx, domain.QueueSessions, "persisted")
	require.NoError(t, err)
	assert.Equal(t, "persisted", item.Key)

	meta, err := second.GetMetadata(ctx)
	require.NoError(t, err)
	assert.True(t, meta.SyncInProgress, "flag survives; the engine decides it is stale")
}

// ==================== Queue Store Tests ====================

func TestStore_PutAndGet_RoundTripsPayloads(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	enqueued := time.Date(2026, 5, 1, 9, 30, 15, 123456789, time.UTC)

	t.Run("session", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, testSession("s1", enqueued)))

		got, err := store.Get(ctx, domain.QueueSessions, "s1")
		require.NoError(t, err)
		assert.Equal(t, domain.OpCreate, got.Operation)
		assert.True(t, got.EnqueuedAt.Equal(enqueued))

		payload, ok := got.Payload.(*domain.SessionPayload)
		require.True(t, ok)
		assert.Equal(t, "proj-9", payload.ProjectID)
		assert.JSONEq(t, `{"answers":{"q1":"yes"}}`, string(payload.Data))
	})

	t.Run("entity membership", func(t *testing.T) {
		item := &domain.QueueItem{
			Key:       "e1",
			Queue:     domain.QueueEntities,
			Operation: domain.OpUpdateMemberRole,
			Payload: &domain.EntityPayload{
				ID:     "proj-9",
				Member: &domain.MemberChange{UserID: "u-7", Role: "supervisor"},
			},
			EnqueuedAt: enqueued,
		}
		require.NoError(t, store.Put(ctx, item))

		got, err := store.Get(ctx, domain.QueueEntities, "e1")
		require.NoError(t, err)
		payload, ok := got.Payload.(*domain.EntityPayload)
		require.True(t, ok)
		require.NotNil(t, payload.Member)
		assert.Equal(t, "supervisor", payload.Member.Role)
	})

	t.Run("attachment", func(t *testing.T) {
		item := &domain.QueueItem{
			Key:       "a1",
			Queue:     domain.QueueAttachments,
			Operation: domain.OpUpload,
			Payload: &domain.AttachmentPayload{
				SessionID:   "sess-1",
				FileName:    "scaffold.jpg",
				ContentType: "image/jpeg",
				Data:        []byte{0xff, 0xd8, 0x00, 0x01},
			},
			EnqueuedAt: enqueued,
		}
		require.NoError(t, store.Put(ctx, item))

		got, err := store.Get(ctx, domain.QueueAttachments, "a1")
		require.NoError(t, err)
		payload, ok := got.Payload.(*domain.AttachmentPayload)
		require.True(t, ok)
		assert.Equal(t, []byte{0xff, 0xd8, 0x00, 0x01}, payload.Data)
	})
}

func TestStore_PutReplacesByKey(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	item := testSession("s1", time.Now())
	require.NoError(t, store.Put(ctx, item))

	item.RetryCount = 3
	item.LastError = "remote rejected POST /lmra-sessions: status 500"
	item.Failed = true
	require.NoError(t, store.Put(ctx, item))

	n, err := store.Count(ctx, domain.QueueSessions)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Get(ctx, domain.QueueSessions, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.RetryCount)
	assert.Equal(t, item.LastError, got.LastError)
	assert.True(t, got.Failed)

	// Resetting clears the stored error.
	item.ResetRetry()
	require.NoError(t, store.Put(ctx, item))
	got, err = store.Get(ctx, domain.QueueSessions, "s1")
	require.NoError(t, err)
	assert.Empty(t, got.LastError)
	assert.False(t, got.Failed)
}

func TestStore_PutValidation(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	assert.ErrorIs(t, store.Put(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.Put(ctx, testSession("", time.Now())), domain.ErrInvalidInput)

	bad := testSession("k", time.Now())
	bad.Queue = "outbox"
	assert.ErrorIs(t, store.Put(ctx, bad), domain.ErrInvalidInput)
}

func TestStore_GetNotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.Get(context.Background(), domain.QueueSessions, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ListOrderAndIsolation(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now()
	require.NoError(t, store.Put(ctx, testSession("third", base.Add(3*time.Second))))
	require.NoError(t, store.Put(ctx, testSession("first", base.Add(1*time.Second))))
	require.NoError(t, store.Put(ctx, testSession("second", base.Add(1500*time.Millisecond))))

	items, err := store.List(ctx, domain.QueueSessions)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "first", items[0].Key)
	assert.Equal(t, "second", items[1].Key)
	assert.Equal(t, "third", items[2].Key)

	entities, err := store.List(ctx, domain.QueueEntities)
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestStore_DeleteAndClear(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testSession("s1", time.Now())))
	require.NoError(t, store.Put(ctx, testSession("s2", time.Now())))

	require.NoError(t, store.Delete(ctx, domain.QueueSessions, "s1"))
	require.NoError(t, store.Delete(ctx, domain.QueueSessions, "s1"))

	n, err := store.Count(ctx, domain.QueueSessions)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.Clear(ctx, domain.QueueSessions))
	n, err = store.Count(ctx, domain.QueueSessions)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_RevisionAdvancesOnEveryWrite(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	first := testSession("s1", time.Now())
	require.NoError(t, store.Put(ctx, first))
	second := testSession("s2", time.Now())
	require.NoError(t, store.Put(ctx, second))
	assert.Greater(t, second.Revision, first.Revision)

	got, err := store.Get(ctx, domain.QueueSessions, "s1")
	require.NoError(t, err)
	assert.Equal(t, first.Revision, got.Revision)

	// Clearing does not reset the counter.
	require.NoError(t, store.Clear(ctx, domain.QueueSessions))
	again := testSession("s1", time.Now())
	require.NoError(t, store.Put(ctx, again))
	assert.Greater(t, again.Revision, second.Revision)
}

func TestStore_UpdateChecksRevision(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	item := testSession("s1", time.Now())
	require.NoError(t, store.Put(ctx, item))
	read := *item

	// The key is re-enqueued with new data.
	replacement := testSession("s1", time.Now())
	replacement.Payload = &domain.SessionPayload{ProjectID: "proj-10", TRAID: "tra-3"}
	require.NoError(t, store.Put(ctx, replacement))

	read.RetryCount = 1
	read.LastError = "timeout"
	ok, err := store.Update(ctx, &read)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Get(ctx, domain.QueueSessions, "s1")
	require.NoError(t, err)
	assert.Zero(t, got.RetryCount)
	assert.Equal(t, "proj-10", got.Payload.(*domain.SessionPayload).ProjectID)

	got.RetryCount = 1
	ok, err = store.Update(ctx, got)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := store.Get(ctx, domain.QueueSessions, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Equal(t, got.Revision, stored.Revision)
}

func TestStore_UpdateDoesNotRecreate(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	item := testSession("s1", time.Now())
	require.NoError(t, store.Put(ctx, item))
	require.NoError(t, store.Clear(ctx, domain.QueueSessions))

	item.RetryCount = 1
	ok, err := store.Update(ctx, item)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := store.Count(ctx, domain.QueueSessions)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_DeleteRevision(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	item := testSession("s1", time.Now())
	require.NoError(t, store.Put(ctx, item))
	stale := item.Revision

	replacement := testSession("s1", time.Now())
	require.NoError(t, store.Put(ctx, replacement))

	ok, err := store.DeleteRevision(ctx, domain.QueueSessions, "s1", stale)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.DeleteRevision(ctx, domain.QueueSessions, "s1", replacement.Revision)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := store.Count(ctx, domain.QueueSessions)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ==================== Metadata Store Tests ====================

func TestStore_Metadata(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	meta, err := store.GetMetadata(ctx)
	require.NoError(t, err)
	assert.True(t, meta.LastSyncTime.IsZero())
	assert.False(t, meta.SyncInProgress)

	synced := time.Date(2026, 6, 12, 14, 0, 0, 500, time.UTC)
	require.NoError(t, store.SetLastSyncTime(ctx, synced))
	require.NoError(t, store.SetSyncInProgress(ctx, true))

	meta, err = store.GetMetadata(ctx)
	require.NoError(t, err)
	assert.True(t, meta.LastSyncTime.Equal(synced))
	assert.True(t, meta.SyncInProgress)

	require.NoError(t, store.SetSyncInProgress(ctx, false))
	meta, err = store.GetMetadata(ctx)
	require.NoError(t, err)
	assert.False(t, meta.SyncInProgress)
}
