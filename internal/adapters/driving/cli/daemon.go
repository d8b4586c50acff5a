package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/safeworkpro/fieldsync/internal/adapters/driving/dashboard"
	"github.com/safeworkpro/fieldsync/internal/adapters/driving/mcp"
	"github.com/safeworkpro/fieldsync/internal/logger"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Sync in the background",
	Long: `Run until interrupted, starting a sync pass whenever the device comes
back online and on the configured interval.

The daemon also serves a status dashboard:
  GET /status   queue counts as JSON
  GET /ws       live pass progress over WebSocket
  /mcp          Model Context Protocol endpoint (unless --no-mcp)`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().String("addr", "", "Dashboard listen address (default from dashboard.addr, \"off\" disables)")
	daemonCmd.Flags().Bool("no-mcp", false, "Do not mount the MCP endpoint on the dashboard")
	daemonCmd.Flags().String("log-file", "", "Write logs to a rotating file (default from log.file)")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if syncService == nil {
		return errors.New("sync service not configured")
	}
	if monitor == nil {
		return errors.New("connectivity monitor not configured")
	}

	addr, _ := cmd.Flags().GetString("addr")
	logFile, _ := cmd.Flags().GetString("log-file")
	noMCP, _ := cmd.Flags().GetBool("no-mcp")

	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			if addr == "" {
				addr = settings.Dashboard.Addr
			}
			if logFile == "" {
				logFile = settings.Log.File
			}
		}
	}

	if logFile != "" {
		closer := logger.ToFile(logFile)
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr != "" && addr != "off" {
		dash, err := startDashboard(addr, !noMCP)
		if err != nil {
			return err
		}
		defer func() {
			if err := dash.Close(); err != nil {
				logger.Warn("daemon: %v", err)
			}
		}()
		cmd.Printf("Dashboard listening on http://%s\n", dash.Addr())
	}

	cmd.Println("Watching connectivity. Press Ctrl+C to stop.")
	logger.Info("daemon: started")

	go func() {
		<-ctx.Done()
		_ = monitor.Stop()
	}()

	if err := monitor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("monitor stopped: %w", err)
	}

	logger.Info("daemon: stopped")
	return nil
}

func startDashboard(addr string, withMCP bool) (*dashboard.Server, error) {
	dash := dashboard.NewServer(syncService)
	if listeners != nil {
		listeners.AddListener(dash)
	}

	if withMCP {
		server, err := mcp.NewServer(&mcp.Ports{Sync: syncService})
		if err != nil {
			_ = dash.Close()
			return nil, err
		}
		dash.Handle("/mcp", server.Handler())
	}

	if err := dash.Start(addr); err != nil {
		_ = dash.Close()
		return nil, err
	}
	return dash, nil
}
