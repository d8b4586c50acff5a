package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

var listCmd = &cobra.Command{
	Use:   "list [queue]",
	Short: "List queued items",
	Long: `List the items waiting in a queue, oldest first. Without a queue
argument every queue is listed in sync order.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().Bool("failed", false, "Only show items that reached the retry limit")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}

	queues := domain.SyncOrder()
	if len(args) > 0 {
		q, err := domain.ParseQueueName(args[0])
		if err != nil {
			return err
		}
		queues = []domain.QueueName{q}
	}

	onlyFailed, _ := cmd.Flags().GetBool("failed")

	total := 0
	for _, q := range queues {
		items, err := syncService.ListItems(cmd.Context(), q)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", q, err)
		}

		shown := 0
		for i := range items {
			item := &items[i]
			if onlyFailed && !item.Failed {
				continue
			}
			if shown == 0 {
				cmd.Printf("%s:\n", q.Description())
			}
			printItem(cmd, item)
			shown++
		}
		total += shown
	}

	if total == 0 {
		cmd.Println("No queued items.")
	}
	return nil
}

func printItem(cmd *cobra.Command, item *domain.QueueItem) {
	state := "pending"
	if item.Failed {
		state = "failed"
	}
	cmd.Printf("  %-36s %-20s %-8s retries=%d queued=%s\n",
		item.Key, item.Operation, state, item.RetryCount,
		item.EnqueuedAt.Local().Format(time.DateTime))
	if item.LastError != "" {
		cmd.Printf("      last error: %s\n", item.LastError)
	}
}
