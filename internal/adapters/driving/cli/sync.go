package cli

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Send queued mutations to the API",
	Long: `Runs one sync pass: sessions first, then projects, then photo
attachments. Items that fail stay queued and are retried on the next pass.

Nothing is sent while the device is offline.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Bool("no-progress", false, "Do not draw a progress bar")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}

	noProgress, _ := cmd.Flags().GetBool("no-progress")

	progress := newProgressListener(cmd.ErrOrStderr(), !noProgress)
	if listeners != nil {
		listeners.AddListener(progress)
	}

	result, err := syncService.SyncNow(cmd.Context())
	switch {
	case errors.Is(err, domain.ErrNetworkUnavailable):
		cmd.Println("Device is offline; nothing was sent.")
		return nil
	case errors.Is(err, domain.ErrSyncInProgress):
		cmd.Println("A sync pass is already running.")
		return nil
	case err != nil:
		return fmt.Errorf("sync failed: %w", err)
	case result == nil:
		return nil
	}

	cmd.Printf("Synced %d of %d item(s)", result.Succeeded, result.Attempted)
	if result.Skipped > 0 {
		cmd.Printf(", %d skipped", result.Skipped)
	}
	cmd.Printf(" in %s\n", result.Duration().Round(time.Millisecond))

	for _, o := range progress.Failures() {
		label := "failed"
		if o.Rejected {
			label = "rejected"
		}
		cmd.Printf("  %s %s/%s (attempt %d): %s\n", label, o.Queue, o.Key, o.RetryCount, o.Error)
	}
	if n := progress.Deferred(); n > 0 {
		cmd.Printf("%d item(s) deferred while the API asked to back off.\n", n)
	}
	if result.Exhausted > 0 {
		cmd.Printf("%d item(s) reached the retry limit; run 'fieldsync retry --all' to try again.\n", result.Exhausted)
	}
	return nil
}

// progressListener draws a progress bar for a pass and collects failures.
type progressListener struct {
	out  io.Writer
	draw bool

	mu       sync.Mutex
	bar      *pb.ProgressBar
	failures []domain.ItemOutcome
	deferred int
}

func newProgressListener(out io.Writer, draw bool) *progressListener {
	return &progressListener{out: out, draw: draw}
}

// PassStarted implements driven.SyncListener.
func (p *progressListener) PassStarted(eligible int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failures = nil
	p.deferred = 0
	if !p.draw || eligible == 0 {
		return
	}
	p.bar = pb.New(eligible)
	p.bar.SetWriter(p.out)
	p.bar.SetTemplate(`{{counters . }} {{bar . }} {{percent . }}`)
	p.bar.Start()
}

// ItemProcessed implements driven.SyncListener.
func (p *progressListener) ItemProcessed(outcome domain.ItemOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case outcome.Deferred:
		p.deferred++
	case !outcome.Success:
		p.failures = append(p.failures, outcome)
	}
	if p.bar != nil {
		p.bar.Increment()
	}
}

// PassCompleted implements driven.SyncListener.
func (p *progressListener) PassCompleted(_ domain.PassResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}

// Failures returns the failed outcomes of the last pass.
func (p *progressListener) Failures() []domain.ItemOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ItemOutcome(nil), p.failures...)
}

// Deferred returns how many items the last pass did not send.
func (p *progressListener) Deferred() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deferred
}
