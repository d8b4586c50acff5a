// Package cli provides the fieldsync command-line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safeworkpro/fieldsync/internal/core/ports/driven"
	"github.com/safeworkpro/fieldsync/internal/core/ports/driving"
	"github.com/safeworkpro/fieldsync/internal/logger"
)

// annotationNoServices marks commands that run without the sync stack.
const annotationNoServices = "no-services"

var (
	version = "dev"

	syncService     driving.SyncService
	settingsService driving.SettingsService
	monitor         driving.Monitor
	listeners       ListenerRegistry

	bootstrap Bootstrap
	cleanup   func()

	globalOpts Options
)

// ListenerRegistry accepts sync progress listeners.
type ListenerRegistry interface {
	AddListener(l driven.SyncListener)
}

// Services holds the dependencies the commands run against.
type Services struct {
	Sync      driving.SyncService
	Settings  driving.SettingsService
	Monitor   driving.Monitor
	Listeners ListenerRegistry
}

// Options are the global flags handed to the bootstrap function.
type Options struct {
	Verbose   bool
	DataDir   string
	ConfigDir string
	Ephemeral bool
}

// Bootstrap builds the services from the global flags.
// The returned function releases them and may be nil.
type Bootstrap func(ctx context.Context, opts Options) (*Services, func(), error)

var rootCmd = &cobra.Command{
	Use:   "fieldsync",
	Short: "Offline mutation queue for SafeWork Pro field devices",
	Long: `fieldsync queues LMRA sessions, project changes and photos while a
device is offline and replays them against the SafeWork Pro API once the
network returns.

Items are drained in order: sessions, then projects, then photo
attachments. Failed items are retried on later passes until they reach
the retry ceiling, after which they wait for a manual retry.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&globalOpts.Verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&globalOpts.DataDir, "data-dir", "", "Directory for the queue database (default ~/.fieldsync/data)")
	flags.StringVar(&globalOpts.ConfigDir, "config-dir", "", "Directory for config.toml (default ~/.fieldsync)")
	flags.BoolVar(&globalOpts.Ephemeral, "ephemeral", false, "Keep the queue in memory only")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap registers the function that builds services on first use.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices installs already-built services.
func SetServices(s *Services) {
	if s == nil {
		return
	}
	syncService = s.Sync
	settingsService = s.Settings
	monitor = s.Monitor
	listeners = s.Listeners
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	}()
	return rootCmd.Execute()
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(globalOpts.Verbose)

	if cmd.Annotations[annotationNoServices] == "true" {
		return nil
	}
	if bootstrap == nil || syncService != nil {
		return nil
	}

	services, release, err := bootstrap(cmd.Context(), globalOpts)
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	SetServices(services)
	cleanup = release
	return nil
}

// waitForBackground blocks until passes started by Enqueue or Retry finish,
// so a short-lived command does not exit mid-request.
func waitForBackground() {
	if w, ok := syncService.(interface{ Wait() }); ok {
		w.Wait()
	}
}
