package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

func newTestServer(t *testing.T, svc *mockSyncService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Sync: svc})
	require.NoError(t, err)
	return server
}

func TestServer_handleStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("returns queue counts", func(t *testing.T) {
		last := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
		svc := &mockSyncService{stats: &domain.SyncStats{
			Queues: []domain.QueueStats{
				{Queue: domain.QueueSessions, Pending: 2},
				{Queue: domain.QueueEntities, Pending: 1, Failed: 1},
				{Queue: domain.QueueAttachments},
			},
			LastSyncTime: last,
			Online:       true,
		}}
		server := newTestServer(t, svc)

		_, output, err := server.handleStatus(ctx, nil, StatusInput{})

		require.NoError(t, err)
		require.Len(t, output.Queues, 3)
		assert.Equal(t, "sessions", output.Queues[0].Queue)
		assert.Equal(t, 3, output.TotalPending)
		assert.Equal(t, 1, output.TotalFailed)
		assert.True(t, output.Online)
		assert.Equal(t, "2026-05-01T08:30:00Z", output.LastSyncTime)
	})

	t.Run("omits zero last sync time", func(t *testing.T) {
		server := newTestServer(t, &mockSyncService{stats: &domain.SyncStats{}})

		_, output, err := server.handleStatus(ctx, nil, StatusInput{})

		require.NoError(t, err)
		assert.Empty(t, output.LastSyncTime)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		server := newTestServer(t, &mockSyncService{err: domain.ErrStorageUnavailable})

		_, _, err := server.handleStatus(ctx, nil, StatusInput{})
		assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	})
}

func TestServer_handleSyncNow(t *testing.T) {
	ctx := context.Background()

	t.Run("reports pass result", func(t *testing.T) {
		server := newTestServer(t, &mockSyncService{
			result: &domain.PassResult{Attempted: 3, Succeeded: 2, Failed: 1},
		})

		_, output, err := server.handleSyncNow(ctx, nil, SyncNowInput{})

		require.NoError(t, err)
		assert.True(t, output.Ran)
		assert.Equal(t, 3, output.Attempted)
		assert.Equal(t, 2, output.Succeeded)
		assert.Equal(t, 1, output.Failed)
	})

	t.Run("offline is not an error", func(t *testing.T) {
		server := newTestServer(t, &mockSyncService{syncErr: domain.ErrNetworkUnavailable})

		_, output, err := server.handleSyncNow(ctx, nil, SyncNowInput{})

		require.NoError(t, err)
		assert.False(t, output.Ran)
		assert.Equal(t, "offline", output.Reason)
	})

	t.Run("in progress is not an error", func(t *testing.T) {
		server := newTestServer(t, &mockSyncService{syncErr: domain.ErrSyncInProgress})

		_, output, err := server.handleSyncNow(ctx, nil, SyncNowInput{})

		require.NoError(t, err)
		assert.False(t, output.Ran)
		assert.Contains(t, output.Reason, "in progress")
	})

	t.Run("aborted pass reports its error", func(t *testing.T) {
		server := newTestServer(t, &mockSyncService{
			result:  &domain.PassResult{Error: "list entities: disk I/O error"},
			syncErr: errors.New("list entities: disk I/O error"),
		})

		_, output, err := server.handleSyncNow(ctx, nil, SyncNowInput{})

		require.NoError(t, err)
		assert.True(t, output.Ran)
		assert.Contains(t, output.Error, "disk I/O")
	})

	t.Run("storage failure is returned", func(t *testing.T) {
		server := newTestServer(t, &mockSyncService{syncErr: domain.ErrStorageUnavailable})

		_, _, err := server.handleSyncNow(ctx, nil, SyncNowInput{})
		assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	})
}

func TestServer_handleRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("retries one item", func(t *testing.T) {
		svc := &mockSyncService{}
		server := newTestServer(t, svc)

		_, output, err := server.handleRetry(ctx, nil, RetryInput{Queue: "photos", Key: "k1"})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Retried)
		assert.Equal(t, []string{"attachments/k1"}, svc.retried)
	})

	t.Run("retries all without key", func(t *testing.T) {
		server := newTestServer(t, &mockSyncService{retriedAll: 4})

		_, output, err := server.handleRetry(ctx, nil, RetryInput{})

		require.NoError(t, err)
		assert.Equal(t, 4, output.Retried)
	})

	t.Run("unknown queue", func(t *testing.T) {
		server := newTestServer(t, &mockSyncService{})

		_, _, err := server.handleRetry(ctx, nil, RetryInput{Queue: "bogus", Key: "k1"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("missing item", func(t *testing.T) {
		server := newTestServer(t, &mockSyncService{err: domain.ErrItemNotFound})

		_, _, err := server.handleRetry(ctx, nil, RetryInput{Queue: "sessions", Key: "k1"})
		assert.ErrorIs(t, err, domain.ErrItemNotFound)
	})
}
