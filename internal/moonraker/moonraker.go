// Package moonraker defines the wire vocabulary of the Moonraker API used
// by the companion: JSON-RPC method names, klippy and print job states,
// printer object names, and the typed records mirroring printer subsystem
// state.
package moonraker

// JSON-RPC method names exposed by Moonraker. These are the wire contract
// and must match the remote verbatim.
const (
	// MethodServerInfo reports connection state and klippy readiness.
	MethodServerInfo = "server.info"

	// MethodObjectsList enumerates the printer objects the remote
	// currently exposes.
	MethodObjectsList = "printer.objects.list"

	// MethodObjectsQuery returns the current status of the named
	// printer objects in one batch.
	MethodObjectsQuery = "printer.objects.query"

	// MethodFileMetadata returns slicer metadata for a gcode file.
	MethodFileMetadata = "server.files.metadata"
)

// KlippyState represents the state of the klippy host process as reported
// by server.info.
type KlippyState string

const (
	// KlippyStateReady means klippy can answer object queries
	KlippyStateReady KlippyState = "ready"

	// KlippyStateError means klippy hit an error during startup
	KlippyStateError KlippyState = "error"

	// KlippyStateShutdown means klippy was shut down
	KlippyStateShutdown KlippyState = "shutdown"

	// KlippyStateStartup means klippy is still initializing
	KlippyStateStartup KlippyState = "startup"
)

// PrintState represents the state of the current print job as reported by
// the print_stats object.
type PrintState string

const (
	// PrintStateStandby means no job is active
	PrintStateStandby PrintState = "standby"

	// PrintStatePrinting means a job is in progress
	PrintStatePrinting PrintState = "printing"

	// PrintStatePaused means the active job is paused
	PrintStatePaused PrintState = "paused"

	// PrintStateComplete means the last job finished successfully
	PrintStateComplete PrintState = "complete"

	// PrintStateCancelled means the last job was cancelled
	PrintStateCancelled PrintState = "cancelled"

	// PrintStateError means the last job failed
	PrintStateError PrintState = "error"
)

// Printer object names tracked by the companion. The remote may expose
// arbitrary additional objects; those are ignored.
const (
	// ObjectPrintStats carries job filename and state
	ObjectPrintStats = "print_stats"

	// ObjectDisplayStatus carries the M117 display message
	ObjectDisplayStatus = "display_status"

	// ObjectVirtualSDCard carries print progress
	ObjectVirtualSDCard = "virtual_sdcard"
)
