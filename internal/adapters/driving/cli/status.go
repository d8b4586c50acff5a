package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/safeworkpro/fieldsync/internal/adapters/driving/tui/styles"
	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue counts and network state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "Print the stats as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}

	stats, err := syncService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	cmd.Println(renderStats(styles.DefaultStyles(), stats))
	return nil
}

func renderStats(s *styles.Styles, stats *domain.SyncStats) string {
	rows := []string{lipgloss.JoinHorizontal(lipgloss.Top,
		s.TableHeader.Width(22).Render("Queue"),
		s.TableHeader.Width(10).Render("Pending"),
		s.TableHeader.Width(10).Render("Failed"),
	)}
	for _, q := range domain.SyncOrder() {
		qs := stats.Queue(q)
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			s.Cell.Width(22).Render(q.Description()),
			s.Cell.Width(10).Render(s.Count(qs.Pending, s.Warning)),
			s.Cell.Width(10).Render(s.Count(qs.Failed, s.Error)),
		))
	}

	network := s.Success.Render("online")
	if !stats.Online {
		network = s.Error.Render("offline")
	}
	last := "never"
	if !stats.LastSyncTime.IsZero() {
		last = stats.LastSyncTime.Local().Format("2006-01-02 15:04:05")
	}

	rows = append(rows, "",
		"Network:   "+network,
		"Last sync: "+last,
	)
	if stats.SyncInProgress {
		rows = append(rows, s.Warning.Render("A sync pass is running."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
