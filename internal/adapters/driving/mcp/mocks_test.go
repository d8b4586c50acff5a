package mcp

import (
	"context"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driving"
)

// mockSyncService is a mock implementation of driving.SyncService.
type mockSyncService struct {
	stats      *domain.SyncStats
	result     *domain.PassResult
	items      []domain.QueueItem
	syncErr    error
	err        error
	retried    []string
	retriedAll int
}

var _ driving.SyncService = (*mockSyncService)(nil)

func (m *mockSyncService) Enqueue(_ context.Context, _ *domain.QueueItem) error {
	return m.err
}

func (m *mockSyncService) SyncNow(_ context.Context) (*domain.PassResult, error) {
	return m.result, m.syncErr
}

func (m *mockSyncService) Stats(_ context.Context) (*domain.SyncStats, error) {
	return m.stats, m.err
}

func (m *mockSyncService) Retry(_ context.Context, queue domain.QueueName, key string) error {
	if m.err != nil {
		return m.err
	}
	m.retried = append(m.retried, queue.String()+"/"+key)
	return nil
}

func (m *mockSyncService) RetryAllFailed(_ context.Context) (int, error) {
	return m.retriedAll, m.err
}

func (m *mockSyncService) ClearAll(_ context.Context) error {
	return m.err
}

func (m *mockSyncService) ListItems(_ context.Context, _ domain.QueueName) ([]domain.QueueItem, error) {
	return m.items, m.err
}

func (m *mockSyncService) History(_ context.Context, _ int) ([]domain.PassResult, error) {
	return nil, m.err
}
