package coordinator

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moni11811/mobileraker-companion-rinkhals/internal/datasync"
)

// DefaultSyncInterval is used for printers that do not configure their
// own refresh interval.
const DefaultSyncInterval = 30 * time.Second

// Printer couples a sync engine with the interval at which the
// coordinator refreshes it.
type Printer struct {
	Engine   datasync.Syncer
	Interval time.Duration
}

// Coordinator manages background resync scheduling for multiple printers
type Coordinator interface {
	// Start begins the background resync loops for all printers
	// Blocks until context is cancelled
	Start(ctx context.Context) error

	// Stop gracefully stops the coordinator and all printer resync loops
	Stop() error
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	printers []Printer

	// Lifecycle management
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// New creates a new coordinator driving the given printers
func New(printers []Printer) Coordinator {
	return &defaultCoordinator{
		printers: printers,
		done:     make(chan struct{}),
	}
}

// Start begins the background resync loops for all printers
func (c *defaultCoordinator) Start(ctx context.Context) error {
	slog.Info("Starting sync coordinator", "printer_count", len(c.printers))

	// Create cancellable context for this coordinator
	coordCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	defer func() {
		close(c.done)
		slog.Info("Sync coordinator shut down")
	}()

	group, groupCtx := errgroup.WithContext(coordCtx)
	for _, printer := range c.printers {
		group.Go(func() error {
			c.runPrinterSync(groupCtx, printer)
			return nil
		})
	}

	return group.Wait()
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	if c.cancelFunc != nil {
		slog.Info("Stopping sync coordinator")
		c.cancelFunc()
		// Wait for all resync loops to finish
		<-c.done
	}
	return nil
}
