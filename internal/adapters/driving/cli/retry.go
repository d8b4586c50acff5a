package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

var retryCmd = &cobra.Command{
	Use:   "retry [queue key]",
	Short: "Retry items that reached the retry limit",
	Long: `Reset the retry count of a queued item so the next pass picks it up
again. Use --all to reset every failed item across all queues.`,
	Args: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runRetry,
}

func init() {
	retryCmd.Flags().Bool("all", false, "Retry every failed item")
	rootCmd.AddCommand(retryCmd)
}

func runRetry(cmd *cobra.Command, args []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}

	all, _ := cmd.Flags().GetBool("all")
	if all {
		n, err := syncService.RetryAllFailed(cmd.Context())
		if err != nil {
			return fmt.Errorf("retry failed: %w", err)
		}
		cmd.Printf("Reset %d failed item(s).\n", n)
		waitForBackground()
		return nil
	}

	queue, err := domain.ParseQueueName(args[0])
	if err != nil {
		return err
	}
	key := args[1]

	if err := syncService.Retry(cmd.Context(), queue, key); err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return fmt.Errorf("no item %q in %s", key, queue)
		}
		return fmt.Errorf("retry failed: %w", err)
	}

	cmd.Printf("Item %s in %s will be retried.\n", key, queue)
	waitForBackground()
	return nil
}
