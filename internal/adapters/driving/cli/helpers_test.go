package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driven"
)

// mockSyncService implements driving.SyncService for CLI tests.
type mockSyncService struct {
	mu sync.Mutex

	enqueued   []*domain.QueueItem
	enqueueErr error

	result  *domain.PassResult
	syncErr error
	onSync  func()

	stats    *domain.SyncStats
	statsErr error

	items map[domain.QueueName][]domain.QueueItem

	retried    []string
	retryErr   error
	retriedAll int

	cleared  bool
	clearErr error

	history []domain.PassResult
	limit   int

	waited bool
}

func (m *mockSyncService) Enqueue(_ context.Context, item *domain.QueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	if err := item.Validate(); err != nil {
		return err
	}
	m.enqueued = append(m.enqueued, item)
	return nil
}

func (m *mockSyncService) SyncNow(_ context.Context) (*domain.PassResult, error) {
	if m.onSync != nil {
		m.onSync()
	}
	return m.result, m.syncErr
}

func (m *mockSyncService) Stats(_ context.Context) (*domain.SyncStats, error) {
	return m.stats, m.statsErr
}

func (m *mockSyncService) Retry(_ context.Context, q domain.QueueName, key string) error {
	if m.retryErr != nil {
		return m.retryErr
	}
	m.retried = append(m.retried, string(q)+"/"+key)
	return nil
}

func (m *mockSyncService) RetryAllFailed(_ context.Context) (int, error) {
	return m.retriedAll, m.retryErr
}

func (m *mockSyncService) ClearAll(_ context.Context) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.cleared = true
	return nil
}

func (m *mockSyncService) ListItems(_ context.Context, q domain.QueueName) ([]domain.QueueItem, error) {
	return m.items[q], nil
}

func (m *mockSyncService) History(_ context.Context, limit int) ([]domain.PassResult, error) {
	m.limit = limit
	return m.history, nil
}

func (m *mockSyncService) Wait() {
	m.waited = true
}

// mockSettingsService implements driving.SettingsService for CLI tests.
type mockSettingsService struct {
	settings domain.AppSettings
	set      map[string]string
	setErr   error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		set:      make(map[string]string),
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"sync.max_retries", "api.base_url"}
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// mockRegistry records listeners.
type mockRegistry struct {
	listeners []driven.SyncListener
}

func (m *mockRegistry) AddListener(l driven.SyncListener) {
	m.listeners = append(m.listeners, l)
}

// withServices installs services for one test and restores the old ones.
func withServices(t *testing.T, s *Services) {
	t.Helper()

	oldSync, oldSettings, oldMonitor, oldListeners := syncService, settingsService, monitor, listeners
	oldBootstrap := bootstrap

	syncService, settingsService, monitor, listeners = nil, nil, nil, nil
	bootstrap = nil
	SetServices(s)

	t.Cleanup(func() {
		syncService, settingsService, monitor, listeners = oldSync, oldSettings, oldMonitor, oldListeners
		bootstrap = oldBootstrap
	})
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeCommandWithInput(t, "", args...)
}

// executeCommandWithInput is executeCommand with stdin set to input.
func executeCommandWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(bytes.NewBufferString(input))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so tests do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
