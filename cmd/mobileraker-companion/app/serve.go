package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moni11811/mobileraker-companion-rinkhals/internal/config"
	"github.com/moni11811/mobileraker-companion-rinkhals/internal/datasync"
	"github.com/moni11811/mobileraker-companion-rinkhals/internal/datasync/coordinator"
	"github.com/moni11811/mobileraker-companion-rinkhals/internal/jsonrpc"
	"github.com/moni11811/mobileraker-companion-rinkhals/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the companion sync daemon",
	Long: `Start the companion daemon that mirrors printer state from Moonraker.

The daemon requires a configuration file (--config) that lists the printers
to watch:
- Moonraker websocket URL per printer
- Optional per-printer sync interval and klippy readiness timeout

See examples/ directory for sample configurations.`,
	RunE: runServe,
}

// dialTimeout bounds how long serve waits for each printer's websocket
// on startup. Printers routinely boot slower than the daemon
// supervising them.
const dialTimeout = 1 * time.Minute

func init() {
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config"))
	if err != nil {
		logger.Fatalf("Failed to bind config flag: %v", err)
	}

	// Mark config as required
	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
}

// dialPrinter connects to a Moonraker websocket endpoint, retrying with
// backoff until the startup timeout elapses.
func dialPrinter(ctx context.Context, printerURL string) (*jsonrpc.WebsocketClient, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	return backoff.Retry(dialCtx, func() (*jsonrpc.WebsocketClient, error) {
		client, err := jsonrpc.Dial(dialCtx, printerURL)
		if err != nil {
			slog.Debug("Websocket dial failed, retrying", "url", printerURL, "error", err)
			return nil, err
		}
		return client, nil
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()))
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Load and validate configuration (required)
	configPath := viper.GetString("config")
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Infof("Loaded configuration from %s (%d printers)", configPath, len(cfg.Printers))

	// Connect to each printer and build its sync engine
	printers := make([]coordinator.Printer, 0, len(cfg.Printers))
	clients := make([]*jsonrpc.WebsocketClient, 0, len(cfg.Printers))
	defer func() {
		for _, client := range clients {
			if err := client.Close(); err != nil {
				logger.Warnf("Failed to close websocket client: %v", err)
			}
		}
	}()

	for _, printerCfg := range cfg.Printers {
		client, err := dialPrinter(ctx, printerCfg.Moonraker.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to printer %q at %s: %w",
				printerCfg.Name, printerCfg.Moonraker.URL, err)
		}
		clients = append(clients, client)

		engine := datasync.New(client,
			datasync.WithPrinterName(printerCfg.Name),
			datasync.WithKlippyTimeout(printerCfg.GetKlippyTimeout()),
		)

		printers = append(printers, coordinator.Printer{
			Engine:   engine,
			Interval: printerCfg.GetSyncInterval(),
		})

		logger.Infof("Connected to printer '%s' at %s", engine.PrinterName(), printerCfg.Moonraker.URL)
	}

	// Create and start the background sync coordinator
	syncCoordinator := coordinator.New(printers)

	syncCtx, syncCancel := context.WithCancel(ctx)
	defer syncCancel()
	go func() {
		if err := syncCoordinator.Start(syncCtx); err != nil {
			logger.Errorf("Sync coordinator failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	// Stop sync coordinator before tearing down the connections it uses
	if err := syncCoordinator.Stop(); err != nil {
		logger.Errorf("Failed to stop sync coordinator: %v", err)
	}

	logger.Info("Shutdown complete")
	return nil
}
