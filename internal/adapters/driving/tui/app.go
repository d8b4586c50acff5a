package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/safeworkpro/fieldsync/internal/adapters/driving/tui/components/status"
	"github.com/safeworkpro/fieldsync/internal/adapters/driving/tui/keymap"
	"github.com/safeworkpro/fieldsync/internal/adapters/driving/tui/messages"
	"github.com/safeworkpro/fieldsync/internal/adapters/driving/tui/styles"
	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

// DefaultRefreshInterval is how often stats are reloaded.
const DefaultRefreshInterval = 2 * time.Second

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	statusBar *status.Bar

	// stats is the latest snapshot; nil until the first load.
	stats *domain.SyncStats

	// failed holds exhausted items across all queues, in sync order.
	failed []domain.QueueItem

	// cursor indexes the selected failed item.
	cursor int

	syncing  bool
	showHelp bool

	lastResult *domain.PassResult

	refreshInterval time.Duration
	width           int
	height          int
}

// NewApp creates a new TUI application.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, ErrMissingSyncService
	}
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:           ports,
		ctx:             context.Background(),
		styles:          s,
		keymap:          km,
		statusBar:       status.NewBar(s, km),
		refreshInterval: DefaultRefreshInterval,
		width:           80,
		height:          24,
	}, nil
}

// WithContext sets the context used for service calls.
func (a *App) WithContext(ctx context.Context) *App {
	if ctx != nil {
		a.ctx = ctx
	}
	return a
}

// WithRefreshInterval overrides the stats reload period.
func (a *App) WithRefreshInterval(d time.Duration) *App {
	if d > 0 {
		a.refreshInterval = d
	}
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadStats(), a.loadFailed(), a.tick())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.statusBar.SetWidth(msg.Width)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.StatsLoaded:
		a.applyStats(msg)
		return a, nil

	case messages.FailedLoaded:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.failed = msg.Items
		if a.cursor >= len(a.failed) {
			a.cursor = max(len(a.failed)-1, 0)
		}
		return a, nil

	case messages.SyncCompleted:
		a.applySyncResult(msg)
		return a, a.reload()

	case messages.RetryCompleted:
		if msg.Err != nil {
			a.setError(msg.Err)
		} else {
			a.statusBar.SetState(status.StateReady)
			a.statusBar.SetMessage(fmt.Sprintf("Retried %d item(s)", msg.Count))
		}
		return a, a.reload()

	case messages.Tick:
		return a, tea.Batch(a.reload(), a.tick())
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()

	switch {
	case keymap.Matches(k, a.keymap.Quit):
		return a, tea.Quit

	case keymap.Matches(k, a.keymap.Help):
		a.showHelp = !a.showHelp

	case keymap.Matches(k, a.keymap.Sync):
		if a.syncing {
			return a, nil
		}
		a.syncing = true
		a.statusBar.SetMessage("")
		a.statusBar.SetState(status.StateSyncing)
		return a, a.runSync()

	case keymap.Matches(k, a.keymap.Retry):
		if a.cursor < len(a.failed) {
			item := a.failed[a.cursor]
			return a, a.retry(item.Queue, item.Key)
		}

	case keymap.Matches(k, a.keymap.RetryAll):
		return a, a.retryAll()

	case keymap.Matches(k, a.keymap.Refresh):
		return a, a.reload()

	case keymap.Matches(k, a.keymap.Up):
		if a.cursor > 0 {
			a.cursor--
		}

	case keymap.Matches(k, a.keymap.Down):
		if a.cursor < len(a.failed)-1 {
			a.cursor++
		}
	}

	return a, nil
}

func (a *App) applyStats(msg messages.StatsLoaded) {
	if msg.Err != nil {
		a.setError(msg.Err)
		return
	}
	if msg.Stats == nil {
		return
	}
	a.stats = msg.Stats
	a.statusBar.SetCounts(msg.Stats.TotalPending(), msg.Stats.TotalFailed())

	if a.syncing {
		return
	}
	switch {
	case !msg.Stats.Online:
		a.statusBar.SetState(status.StateOffline)
	case a.statusBar.State() == status.StateOffline:
		a.statusBar.SetState(status.StateReady)
	}
}

func (a *App) applySyncResult(msg messages.SyncCompleted) {
	a.syncing = false
	a.lastResult = msg.Result

	switch {
	case errors.Is(msg.Err, domain.ErrNetworkUnavailable):
		a.statusBar.SetState(status.StateOffline)
		a.statusBar.SetMessage("")
	case errors.Is(msg.Err, domain.ErrSyncInProgress):
		a.statusBar.SetState(status.StateReady)
		a.statusBar.SetMessage("Sync already running")
	case msg.Err != nil:
		a.setError(msg.Err)
	case msg.Result != nil:
		a.statusBar.SetState(status.StateReady)
		a.statusBar.SetMessage(fmt.Sprintf("Synced %d of %d", msg.Result.Succeeded, msg.Result.Attempted))
	}
}

func (a *App) setError(err error) {
	a.statusBar.SetState(status.StateError)
	a.statusBar.SetMessage(err.Error())
}

// ==================== Commands ====================

func (a *App) reload() tea.Cmd {
	return tea.Batch(a.loadStats(), a.loadFailed())
}

func (a *App) loadStats() tea.Cmd {
	return func() tea.Msg {
		stats, err := a.ports.Sync.Stats(a.ctx)
		return messages.StatsLoaded{Stats: stats, Err: err}
	}
}

func (a *App) loadFailed() tea.Cmd {
	return func() tea.Msg {
		var failed []domain.QueueItem
		for _, q := range domain.SyncOrder() {
			items, err := a.ports.Sync.ListItems(a.ctx, q)
			if err != nil {
				return messages.FailedLoaded{Err: err}
			}
			for i := range items {
				if items[i].Failed {
					failed = append(failed, items[i])
				}
			}
		}
		return messages.FailedLoaded{Items: failed}
	}
}

func (a *App) runSync() tea.Cmd {
	return func() tea.Msg {
		result, err := a.ports.Sync.SyncNow(a.ctx)
		return messages.SyncCompleted{Result: result, Err: err}
	}
}

func (a *App) retry(queue domain.QueueName, key string) tea.Cmd {
	return func() tea.Msg {
		if err := a.ports.Sync.Retry(a.ctx, queue, key); err != nil {
			return messages.RetryCompleted{Err: err}
		}
		return messages.RetryCompleted{Count: 1}
	}
}

func (a *App) retryAll() tea.Cmd {
	return func() tea.Msg {
		n, err := a.ports.Sync.RetryAllFailed(a.ctx)
		return messages.RetryCompleted{Count: n, Err: err}
	}
}

func (a *App) tick() tea.Cmd {
	return tea.Tick(a.refreshInterval, func(t time.Time) tea.Msg {
		return messages.Tick{At: t}
	})
}

// ==================== View ====================

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("fieldsync"))
	b.WriteString(a.styles.Muted.Render("  offline queue"))
	b.WriteString("\n\n")

	b.WriteString(a.renderQueues())
	b.WriteString("\n")
	b.WriteString(a.renderFailed())
	b.WriteString("\n")

	if a.showHelp {
		b.WriteString(a.renderHelp())
		b.WriteString("\n")
	}

	b.WriteString(a.statusBar.View())
	return b.String()
}

func (a *App) renderQueues() string {
	if a.stats == nil {
		return a.styles.Panel.Render(a.styles.Muted.Render("Loading..."))
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		a.styles.TableHeader.Width(22).Render("Queue"),
		a.styles.TableHeader.Width(10).Render("Pending"),
		a.styles.TableHeader.Width(10).Render("Failed"),
	)
	rows := []string{header}
	for _, q := range domain.SyncOrder() {
		qs := a.stats.Queue(q)
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			a.styles.Cell.Width(22).Render(q.Description()),
			a.styles.Cell.Width(10).Render(a.styles.Count(qs.Pending, a.styles.Warning)),
			a.styles.Cell.Width(10).Render(a.styles.Count(qs.Failed, a.styles.Error)),
		))
	}

	network := a.styles.Success.Render("online")
	if !a.stats.Online {
		network = a.styles.Error.Render("offline")
	}
	last := "never"
	if !a.stats.LastSyncTime.IsZero() {
		last = a.stats.LastSyncTime.Local().Format("2006-01-02 15:04:05")
	}
	rows = append(rows, "", a.styles.Muted.Render("Network: ")+network+
		a.styles.Muted.Render("   Last sync: "+last))

	return a.styles.Panel.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a *App) renderFailed() string {
	title := a.styles.Subtitle.Render(fmt.Sprintf("Failed items (%d)", len(a.failed)))
	if len(a.failed) == 0 {
		return title + "\n" + a.styles.Muted.Render("  none")
	}

	lines := []string{title}
	for i := range a.failed {
		item := a.failed[i]
		line := fmt.Sprintf("%-12s %-20s %-36s %s",
			item.Queue, item.Operation, item.Key, truncate(item.LastError, 40))
		if i == a.cursor {
			lines = append(lines, a.styles.Selected.Render("> "+line))
		} else {
			lines = append(lines, a.styles.Normal.Render("  "+line))
		}
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderHelp() string {
	var parts []string
	for _, group := range a.keymap.FullHelp() {
		for _, b := range group {
			h := b.Help()
			parts = append(parts, fmt.Sprintf("%s %s", h.Key, h.Desc))
		}
	}
	return a.styles.Muted.Render(strings.Join(parts, " • "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// ==================== Accessors ====================

// Stats returns the latest stats snapshot.
func (a *App) Stats() *domain.SyncStats {
	return a.stats
}

// Failed returns the loaded failed items.
func (a *App) Failed() []domain.QueueItem {
	return a.failed
}

// Cursor returns the selected failed item index.
func (a *App) Cursor() int {
	return a.cursor
}

// Syncing returns true while a manual pass is running.
func (a *App) Syncing() bool {
	return a.syncing
}

// StatusBar returns the status bar component.
func (a *App) StatusBar() *status.Bar {
	return a.statusBar
}
