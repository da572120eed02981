package datasync

import (
	"fmt"
	"time"
)

// TimeoutError indicates that klippy did not report ready within the
// configured bound. The records keep their last known values.
type TimeoutError struct {
	Printer string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("printer %s: klippy not ready within %s", e.Printer, e.Timeout)
}

// ConnectionError indicates a transport-level failure while talking to
// Moonraker. It aborts the current resync cycle; record updates applied
// before the failure are kept.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failure during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
