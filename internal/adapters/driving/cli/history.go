package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync passes",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 10, "Number of passes to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}

	limit, _ := cmd.Flags().GetInt("limit")
	passes, err := syncService.History(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(passes) == 0 {
		cmd.Println("No sync passes recorded.")
		return nil
	}

	for i := range passes {
		p := &passes[i]
		cmd.Printf("%s  %d/%d synced, %d failed, %d skipped (%s)\n",
			p.StartedAt.Local().Format(time.DateTime),
			p.Succeeded, p.Attempted, p.Failed, p.Skipped,
			p.Duration().Round(time.Millisecond))
		if p.Error != "" {
			cmd.Printf("    aborted: %s\n", p.Error)
		}
	}
	return nil
}
