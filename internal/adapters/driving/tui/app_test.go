package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeworkpro/fieldsync/internal/adapters/driving/tui/components/status"
	"github.com/safeworkpro/fieldsync/internal/adapters/driving/tui/messages"
	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

// mockSyncService implements driving.SyncService for TUI tests.
type mockSyncService struct {
	stats      *domain.SyncStats
	items      map[domain.QueueName][]domain.QueueItem
	result     *domain.PassResult
	syncErr    error
	listErr    error
	retryErr   error
	retried    []string
	retriedAll int
	syncCalls  int
}

func (m *mockSyncService) Enqueue(context.Context, *domain.QueueItem) error { return nil }

func (m *mockSyncService) SyncNow(context.Context) (*domain.PassResult, error) {
	m.syncCalls++
	return m.result, m.syncErr
}

func (m *mockSyncService) Stats(context.Context) (*domain.SyncStats, error) {
	return m.stats, nil
}

func (m *mockSyncService) Retry(_ context.Context, q domain.QueueName, key string) error {
	if m.retryErr != nil {
		return m.retryErr
	}
	m.retried = append(m.retried, string(q)+"/"+key)
	return nil
}

func (m *mockSyncService) RetryAllFailed(context.Context) (int, error) {
	return m.retriedAll, m.retryErr
}

func (m *mockSyncService) ClearAll(context.Context) error { return nil }

func (m *mockSyncService) ListItems(_ context.Context, q domain.QueueName) ([]domain.QueueItem, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.items[q], nil
}

func (m *mockSyncService) History(context.Context, int) ([]domain.PassResult, error) {
	return nil, nil
}

func newTestApp(t *testing.T, svc *mockSyncService) *App {
	t.Helper()
	app, err := NewApp(&Ports{Sync: svc})
	require.NoError(t, err)
	return app
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func failedItems() map[domain.QueueName][]domain.QueueItem {
	return map[domain.QueueName][]domain.QueueItem{
		domain.QueueSessions: {
			{Key: "s-ok", Queue: domain.QueueSessions, Operation: domain.OpCreate},
			{Key: "s-bad", Queue: domain.QueueSessions, Operation: domain.OpUpdate, Failed: true, LastError: "status 500"},
		},
		domain.QueueAttachments: {
			{Key: "a-bad", Queue: domain.QueueAttachments, Operation: domain.OpUpload, Failed: true},
		},
	}
}

func TestNewApp(t *testing.T) {
	_, err := NewApp(nil)
	assert.ErrorIs(t, err, ErrMissingSyncService)

	_, err = NewApp(&Ports{})
	assert.ErrorIs(t, err, ErrMissingSyncService)

	app := newTestApp(t, &mockSyncService{})
	assert.NotNil(t, app.Init())
	assert.Equal(t, app, app.WithContext(context.Background()))
}

func TestApp_LoadFailed(t *testing.T) {
	app := newTestApp(t, &mockSyncService{items: failedItems()})

	msg := app.loadFailed()()
	app.Update(msg)

	require.Len(t, app.Failed(), 2)
	assert.Equal(t, "s-bad", app.Failed()[0].Key)
	assert.Equal(t, "a-bad", app.Failed()[1].Key)
}

func TestApp_LoadFailedError(t *testing.T) {
	app := newTestApp(t, &mockSyncService{listErr: domain.ErrStorageUnavailable})

	app.Update(app.loadFailed()())

	assert.Equal(t, status.StateError, app.StatusBar().State())
}

func TestApp_StatsOffline(t *testing.T) {
	app := newTestApp(t, &mockSyncService{})

	app.Update(messages.StatsLoaded{Stats: &domain.SyncStats{Online: false}})
	assert.Equal(t, status.StateOffline, app.StatusBar().State())

	app.Update(messages.StatsLoaded{Stats: &domain.SyncStats{Online: true}})
	assert.Equal(t, status.StateReady, app.StatusBar().State())
	assert.NotNil(t, app.Stats())
}

func TestApp_SyncKey(t *testing.T) {
	svc := &mockSyncService{result: &domain.PassResult{Attempted: 2, Succeeded: 2}}
	app := newTestApp(t, svc)

	_, cmd := app.Update(keyMsg("s"))
	require.NotNil(t, cmd)
	assert.True(t, app.Syncing())
	assert.Equal(t, status.StateSyncing, app.StatusBar().State())

	// A second press while syncing does nothing.
	_, again := app.Update(keyMsg("s"))
	assert.Nil(t, again)

	msg := cmd()
	assert.Equal(t, 1, svc.syncCalls)

	app.Update(msg)
	assert.False(t, app.Syncing())
	assert.Equal(t, "Synced 2 of 2", app.StatusBar().Message())
}

func TestApp_SyncOffline(t *testing.T) {
	app := newTestApp(t, &mockSyncService{syncErr: domain.ErrNetworkUnavailable})

	_, cmd := app.Update(keyMsg("s"))
	app.Update(cmd())

	assert.Equal(t, status.StateOffline, app.StatusBar().State())
}

func TestApp_SyncInProgress(t *testing.T) {
	app := newTestApp(t, &mockSyncService{syncErr: domain.ErrSyncInProgress})

	_, cmd := app.Update(keyMsg("s"))
	app.Update(cmd())

	assert.Equal(t, "Sync already running", app.StatusBar().Message())
}

func TestApp_RetrySelected(t *testing.T) {
	svc := &mockSyncService{items: failedItems()}
	app := newTestApp(t, svc)
	app.Update(app.loadFailed()())

	app.Update(keyMsg("j"))
	assert.Equal(t, 1, app.Cursor())

	// Cursor stops at the last item.
	app.Update(keyMsg("j"))
	assert.Equal(t, 1, app.Cursor())

	_, cmd := app.Update(keyMsg("r"))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, []string{"attachments/a-bad"}, svc.retried)

	app.Update(msg)
	assert.Equal(t, "Retried 1 item(s)", app.StatusBar().Message())

	app.Update(keyMsg("k"))
	assert.Equal(t, 0, app.Cursor())
}

func TestApp_RetryNothingSelected(t *testing.T) {
	app := newTestApp(t, &mockSyncService{})

	_, cmd := app.Update(keyMsg("r"))
	assert.Nil(t, cmd)
}

func TestApp_RetryAll(t *testing.T) {
	app := newTestApp(t, &mockSyncService{retriedAll: 3})

	_, cmd := app.Update(keyMsg("a"))
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Equal(t, "Retried 3 item(s)", app.StatusBar().Message())
}

func TestApp_RetryError(t *testing.T) {
	app := newTestApp(t, &mockSyncService{retryErr: errors.New("boom")})

	_, cmd := app.Update(keyMsg("a"))
	app.Update(cmd())

	assert.Equal(t, status.StateError, app.StatusBar().State())
	assert.Equal(t, "boom", app.StatusBar().Message())
}

func TestApp_Quit(t *testing.T) {
	app := newTestApp(t, &mockSyncService{})

	_, cmd := app.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_WindowSize(t *testing.T) {
	app := newTestApp(t, &mockSyncService{})

	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, 120, app.StatusBar().Width())
}

func TestApp_View(t *testing.T) {
	app := newTestApp(t, &mockSyncService{items: failedItems()})
	app.Update(tea.WindowSizeMsg{Width: 140, Height: 40})

	assert.Contains(t, app.View(), "Loading...")

	app.Update(messages.StatsLoaded{Stats: &domain.SyncStats{
		Queues: []domain.QueueStats{{Queue: domain.QueueSessions, Pending: 4, Failed: 1}},
		Online: true,
	}})
	app.Update(app.loadFailed()())

	view := app.View()
	assert.Contains(t, view, "LMRA sessions")
	assert.Contains(t, view, "Photo attachments")
	assert.Contains(t, view, "online")
	assert.Contains(t, view, "Failed items (2)")
	assert.Contains(t, view, "s-bad")
	assert.Contains(t, view, "never")

	app.Update(keyMsg("?"))
	assert.Contains(t, app.View(), "retry all")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
