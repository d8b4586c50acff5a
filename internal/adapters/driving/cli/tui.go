package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/safeworkpro/fieldsync/internal/adapters/driving/tui"
	"github.com/safeworkpro/fieldsync/internal/logger"
)

// runProgram is swapped in tests to avoid taking over the terminal.
var runProgram = func(m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch a live view of the queues.

Controls:
  s        - Sync now
  ↑/k, ↓/j - Select a failed item
  r        - Retry the selected item
  a        - Retry all failed items
  ctrl+r   - Refresh
  ?        - Toggle help
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().Bool("watch", false, "Also sync automatically on reconnect while the UI is open")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := tui.NewApp(&tui.Ports{Sync: syncService})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	watch, _ := cmd.Flags().GetBool("watch")
	if watch && monitor != nil {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		go func() {
			if err := monitor.Start(ctx); err != nil {
				logger.Warn("monitor stopped: %v", err)
			}
		}()
		defer func() { _ = monitor.Stop() }()
	}

	if err := runProgram(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
