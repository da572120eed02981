package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/moni11811/mobileraker-companion-rinkhals/internal/datasync"
)

// runPrinterSync drives the resync loop for a single printer until the
// context is cancelled. The first cycle runs immediately so callers see
// populated state before the first tick.
func (c *defaultCoordinator) runPrinterSync(ctx context.Context, printer Printer) {
	interval := printer.Interval
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	slog.Info("Starting printer resync loop",
		"printer", printer.Engine.PrinterName(),
		"interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.resyncPrinter(ctx, printer.Engine)

	for {
		select {
		case <-ticker.C:
			c.resyncPrinter(ctx, printer.Engine)
		case <-ctx.Done():
			slog.Debug("Printer resync loop stopping", "printer", printer.Engine.PrinterName())
			return
		}
	}
}

// resyncPrinter executes one full resync cycle and reports the outcome.
// Failures leave the engine on its last known state; the next tick
// retries from scratch, so nothing here is fatal to the loop.
func (c *defaultCoordinator) resyncPrinter(ctx context.Context, engine datasync.Syncer) {
	printerName := engine.PrinterName()
	startTime := time.Now()

	err := engine.Resync(ctx)
	syncDuration := time.Since(startTime)

	var timeoutErr *datasync.TimeoutError
	switch {
	case err == nil:
		slog.Debug("Resync completed",
			"printer", printerName,
			"duration", syncDuration)
	case errors.Is(err, context.Canceled):
		// Shutdown in progress, nothing to report
	case errors.As(err, &timeoutErr):
		slog.Warn("Klippy not ready, deferring sync to next interval",
			"printer", printerName,
			"timeout", timeoutErr.Timeout)
	default:
		slog.Error("Resync failed",
			"printer", printerName,
			"duration", syncDuration,
			"error", err)
	}
}
