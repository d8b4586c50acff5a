package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

func newInitialisedStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore()
	require.NoError(t, store.Initialize(context.Background()))
	return store
}

func sessionItem(key string) *domain.QueueItem {
	return &domain.QueueItem{
		Key:       key,
		Queue:     domain.QueueSessions,
		Operation: domain.OpCreate,
		Payload: &domain.SessionPayload{
			ProjectID: "p-1",
			TRAID:     "tra-1",
			Data:      json.RawMessage(`{"answers":[]}`),
		},
		EnqueuedAt: time.Now(),
	}
}

func TestStore_RequiresInitialize(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.Put(ctx, sessionItem("k1"))
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	_, err = store.List(ctx, domain.QueueSessions)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	_, err = store.GetMetadata(ctx)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestStore_InitializeFailure(t *testing.T) {
	store := NewStore()
	store.InitErr = errors.New("quota exceeded")

	err := store.Initialize(context.Background())

	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "quota exceeded")

	// A later Initialize can succeed.
	store.InitErr = nil
	assert.NoError(t, store.Initialize(context.Background()))
}

func TestStore_InitializeIsIdempotent(t *testing.T) {
	store := newInitialisedStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, sessionItem("k1")))

	require.NoError(t, store.Initialize(ctx))

	n, err := store.Count(ctx, domain.QueueSessions)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_PutReplacesByKey(t *testing.T) {
	store := newInitialisedStore(t)
	ctx := context.Background()

	first := sessionItem("k1")
	require.NoError(t, store.Put(ctx, first))

	second := sessionItem("k1")
	second.RetryCount = 2
	second.LastError = "boom"
	require.NoError(t, store.Put(ctx, second))

	n, err := store.Count(ctx, domain.QueueSessions)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.Get(ctx, domain.QueueSessions, "k1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, "boom", got.LastError)
}

func TestStore_GetDeleteClear(t *testing.T) {
	store := newInitialisedStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sessionItem("a")))
	require.NoError(t, store.Put(ctx, sessionItem("b")))

	_, err := store.Get(ctx, domain.QueueSessions, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Same key in a different queue is a different item.
	_, err = store.Get(ctx, domain.QueueEntities, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Delete(ctx, domain.QueueSessions, "a"))
	require.NoError(t, store.Delete(ctx, domain.QueueSessions, "a"), "delete of absent key is a no-op")

	items, err := store.List(ctx, domain.QueueSessions)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].Key)

	require.NoError(t, store.Clear(ctx, domain.QueueSessions))
	n, err := store.Count(ctx, domain.QueueSessions)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_UpdateChecksRevision(t *testing.T) {
	store := newInitialisedStore(t)
	ctx := context.Background()

	item := sessionItem("k1")
	require.NoError(t, store.Put(ctx, item))
	read := *item

	replacement := sessionItem("k1")
	replacement.Payload = &domain.SessionPayload{ProjectID: "p-2", TRAID: "tra-1"}
	require.NoError(t, store.Put(ctx, replacement))
	assert.Greater(t, replacement.Revision, read.Revision)

	read.RetryCount = 1
	ok, err := store.Update(ctx, &read)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Get(ctx, domain.QueueSessions, "k1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.RetryCount)
	assert.Equal(t, "p-2", got.Payload.(*domain.SessionPayload).ProjectID)

	got.RetryCount = 2
	ok, err = store.Update(ctx, got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Greater(t, got.Revision, replacement.Revision)
}

func TestStore_UpdateAfterClear(t *testing.T) {
	store := newInitialisedStore(t)
	ctx := context.Background()

	item := sessionItem("k1")
	require.NoError(t, store.Put(ctx, item))
	require.NoError(t, store.Clear(ctx, domain.QueueSessions))

	ok, err := store.Update(ctx, item)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := store.Count(ctx, domain.QueueSessions)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStore_DeleteRevision(t *testing.T) {
	store := newInitialisedStore(t)
	ctx := context.Background()

	item := sessionItem("k1")
	require.NoError(t, store.Put(ctx, item))
	stale := item.Revision

	require.NoError(t, store.Put(ctx, sessionItem("k1")))

	ok, err := store.DeleteRevision(ctx, domain.QueueSessions, "k1", stale)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Get(ctx, domain.QueueSessions, "k1")
	require.NoError(t, err)

	ok, err = store.DeleteRevision(ctx, domain.QueueSessions, "k1", got.Revision)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.Get(ctx, domain.QueueSessions, "k1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_PutRejectsUnknownQueue(t *testing.T) {
	store := newInitialisedStore(t)

	item := sessionItem("k")
	item.Queue = "bogus"

	assert.ErrorIs(t, store.Put(context.Background(), item), domain.ErrInvalidInput)
}

func TestStore_CloseKeepsItems(t *testing.T) {
	store := newInitialisedStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, sessionItem("k1")))

	require.NoError(t, store.Close())
	_, err := store.Count(ctx, domain.QueueSessions)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	require.NoError(t, store.Initialize(ctx))
	n, err := store.Count(ctx, domain.QueueSessions)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_Metadata(t *testing.T) {
	store := newInitialisedStore(t)
	ctx := context.Background()

	meta, err := store.GetMetadata(ctx)
	require.NoError(t, err)
	assert.True(t, meta.LastSyncTime.IsZero())
	assert.False(t, meta.SyncInProgress)

	now := time.Now()
	require.NoError(t, store.SetLastSyncTime(ctx, now))
	require.NoError(t, store.SetSyncInProgress(ctx, true))

	meta, err = store.GetMetadata(ctx)
	require.NoError(t, err)
	assert.True(t, meta.LastSyncTime.Equal(now))
	assert.True(t, meta.SyncInProgress)
}

func TestStore_History(t *testing.T) {
	store := newInitialisedStore(t)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordPass(ctx, &domain.PassResult{
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Attempted: i,
		}))
	}

	passes, err := store.ListPasses(ctx, 2)
	require.NoError(t, err)
	require.Len(t, passes, 2)
	assert.Equal(t, 4, passes[0].Attempted)
	assert.Equal(t, 3, passes[1].Attempted)

	require.NoError(t, store.PruneHistory(ctx, 3))
	passes, err = store.ListPasses(ctx, 0)
	require.NoError(t, err)
	require.Len(t, passes, 3)
	assert.Equal(t, 2, passes[2].Attempted)
}
