// Package coordinator provides background resync scheduling for printers.
//
// This package implements the orchestration layer that keeps printer
// state fresh. It sits on top of datasync.Syncer and handles:
//
//   - One background resync loop per printer using time.Ticker
//   - Initial resync on startup
//   - Graceful shutdown
//
// # Architecture
//
// The coordinator separates concerns between:
//
//   - internal/datasync: Domain logic (readiness gate, discovery, status query)
//   - internal/datasync/coordinator: Orchestration (scheduling, lifecycle)
//   - cmd/app/serve: Process lifecycle (just starts/stops the coordinator)
//
// # Usage Example
//
//	engine := datasync.New(client, datasync.WithPrinterName("voron"))
//
//	coord := coordinator.New([]coordinator.Printer{
//	    {Engine: engine, Interval: 30 * time.Second},
//	})
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	go coord.Start(ctx)
//
//	// ... run until shutdown ...
//
//	coord.Stop()
//
// # Error Handling
//
// The coordinator handles resync errors gracefully:
//
//   - A klippy readiness timeout is expected while the printer boots and
//     is logged at warn level
//   - Connection failures are logged and the engine keeps its last known
//     state
//   - The loop keeps running after failures; the next tick retries the
//     full cycle from scratch
//
// All sync semantics live in internal/datasync; the coordinator is only
// concerned with when cycles run, not what they do.
package coordinator
