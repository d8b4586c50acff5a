package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// stdinIsTerminal reports whether a confirmation prompt can be shown.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every queued item",
	Long: `Delete every item in every queue. Items that were never synced are
lost. This cannot be undone.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		if !stdinIsTerminal() {
			return errors.New("refusing to clear queues without --yes")
		}
		cmd.Print("Delete all queued items? Unsynced changes will be lost [y/N]: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	if err := syncService.ClearAll(cmd.Context()); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}

	cmd.Println("All queues cleared.")
	return nil
}
