// Package datasync keeps an in-process mirror of a Moonraker instance's
// live printer state current.
//
// The Service owns one typed record per tracked printer subsystem
// (server info, print_stats, display_status, virtual_sdcard, plus slicer
// metadata for the active job) and refreshes them through Resync, a
// synchronous cycle of four steps:
//
//   - Readiness gate: poll server.info with backoff until klippy reports
//     "ready" or the configured bound elapses
//   - Inventory discovery: printer.objects.list for the objects the
//     remote currently exposes
//   - Batched status query: printer.objects.query for all discovered
//     objects at once, folded into the records with malformed fields
//     ignored
//   - Best-effort metadata: server.files.metadata for the active job file
//
// # Record Semantics
//
// Every record exists from construction with its default values. A status
// payload updates a record as a whole; object names absent from a payload,
// unknown object names, and mistyped fields are all no-ops, so a record
// never regresses to defaults once observed. Callers read records through
// snapshot accessors that return deep copies.
//
// # Failure Model
//
// Two failures end a cycle: *TimeoutError when the readiness bound is
// exhausted, and *ConnectionError on any transport failure. Neither is
// retried internally; the caller (usually the coordinator) owns the retry
// cadence. Malformed payload data is never an error. A failed cycle
// leaves the last fully applied values readable.
//
// # Concurrency
//
// Resync cycles are serialized by an internal mutex, and the records are
// guarded separately so snapshot reads are safe while a cycle is in
// flight. Cancellation is honored at every request through the supplied
// context.
package datasync
