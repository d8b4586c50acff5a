package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/safeworkpro/fieldsync/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change settings",
	Long: `View and change settings stored in config.toml.

Keys use dot notation, e.g.:
  fieldsync config set api.base_url https://app.safeworkpro.com/api
  fieldsync config set sync.max_retries 5
  fieldsync config set connectivity.mode file`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the known setting keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Sync")
	cmd.Printf("  Max retries:      %d\n", settings.Sync.MaxRetries)
	cmd.Printf("  Interval:         %s\n", settings.Sync.Interval)
	cmd.Printf("  Request timeout:  %s\n", settings.Sync.RequestTimeout)
	cmd.Println()
	cmd.Println("API")
	cmd.Printf("  Base URL:         %s\n", settings.API.BaseURL)
	cmd.Printf("  Token:            %s\n", maskSecret(settings.API.Token))
	cmd.Printf("  Rate limit:       %g/s (burst %d)\n", settings.API.RateLimit, settings.API.RateBurst)
	cmd.Println()
	cmd.Println("Connectivity")
	cmd.Printf("  Mode:             %s\n", settings.Connectivity.Mode.Description())
	if settings.Connectivity.Mode == domain.ConnectivityFile {
		cmd.Printf("  State file:       %s\n", valueOr(settings.Connectivity.StateFile, "(config dir)/network.state"))
	}
	if settings.Connectivity.Mode == domain.ConnectivityProbe {
		cmd.Printf("  Probe interval:   %s\n", settings.Connectivity.ProbeInterval)
	}
	cmd.Println()
	cmd.Println("Object store")
	if settings.ObjectStore.IsConfigured() {
		cmd.Printf("  Endpoint:         %s\n", settings.ObjectStore.Endpoint)
		cmd.Printf("  Bucket:           %s\n", settings.ObjectStore.Bucket)
		cmd.Printf("  Access key:       %s\n", maskSecret(settings.ObjectStore.AccessKey))
	} else {
		cmd.Println("  Not configured (photos upload through the API)")
	}
	cmd.Println()
	cmd.Printf("Dashboard:          %s\n", settings.Dashboard.Addr)
	cmd.Printf("Log file:           %s\n", valueOr(settings.Log.File, "(stderr)"))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return err
	}

	cmd.Printf("Set %s\n", key)
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println(strings.Join(settingsService.Keys(), "\n"))
	return nil
}

// maskSecret shows only the last four characters of a secret.
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
