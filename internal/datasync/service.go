package datasync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"

	"github.com/moni11811/mobileraker-companion-rinkhals/internal/jsonrpc"
	"github.com/moni11811/mobileraker-companion-rinkhals/internal/moonraker"
	"github.com/moni11811/mobileraker-companion-rinkhals/internal/versions"
)

const (
	// DefaultPrinterName labels engines constructed without an explicit
	// printer name.
	DefaultPrinterName = "_Default"

	// DefaultKlippyTimeout bounds the readiness gate when no timeout is
	// configured.
	DefaultKlippyTimeout = 60 * time.Second

	// readyPollInitialInterval and readyPollMaxInterval bound the pause
	// between readiness polls.
	readyPollInitialInterval = 250 * time.Millisecond
	readyPollMaxInterval     = 2 * time.Second

	// readyPollTimeout bounds a single readiness request so an
	// unanswered poll counts as not ready instead of stalling the gate.
	readyPollTimeout = 2 * time.Second

	// minMoonrakerVersion is the oldest Moonraker release the companion
	// is tested against. Older remotes still sync but trigger a warning.
	minMoonrakerVersion = "v0.8.0"
)

// errKlippyNotReady marks a readiness poll that completed without seeing
// the ready state.
var errKlippyNotReady = errors.New("klippy not ready")

// Syncer is the engine surface consumed by the sync coordinator.
//
//go:generate mockgen -destination=mocks/mock_syncer.go -package=mocks github.com/moni11811/mobileraker-companion-rinkhals/internal/datasync Syncer
type Syncer interface {
	// Resync runs one full synchronization cycle against the remote.
	Resync(ctx context.Context) error

	// PrinterName returns the identifying label of the mirrored printer.
	PrinterName() string
}

// Service mirrors the live state of one Moonraker instance. All records
// exist from construction with their defaults and are only mutated inside
// a resync cycle; callers read them through snapshot accessors.
type Service struct {
	client        jsonrpc.Client
	printerName   string
	klippyTimeout time.Duration

	// cycleMu serializes resync cycles
	cycleMu sync.Mutex

	// mu guards the records
	mu             sync.RWMutex
	serverInfo     moonraker.ServerInfo
	printStats     moonraker.PrintStats
	displayStatus  moonraker.DisplayStatus
	virtualSDCard  moonraker.VirtualSDCard
	metadata       moonraker.FileMetadata
	versionChecked bool
}

var _ Syncer = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithPrinterName sets the identifying label used in logs and errors.
// An empty name keeps the default.
func WithPrinterName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.printerName = name
		}
	}
}

// WithKlippyTimeout bounds how long a resync waits for klippy readiness.
// A non-positive timeout keeps the default.
func WithKlippyTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.klippyTimeout = timeout
		}
	}
}

// New creates a sync engine for one printer with all records at their
// default values.
func New(client jsonrpc.Client, opts ...Option) *Service {
	s := &Service{
		client:        client,
		printerName:   DefaultPrinterName,
		klippyTimeout: DefaultKlippyTimeout,
		serverInfo:    moonraker.NewServerInfo(),
		printStats:    moonraker.NewPrintStats(),
		displayStatus: moonraker.NewDisplayStatus(),
		virtualSDCard: moonraker.NewVirtualSDCard(),
		metadata:      moonraker.NewFileMetadata(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Resync runs one full synchronization cycle: wait for klippy readiness,
// discover the exposed printer objects, query their status in one batch,
// and fold the result into the records. Readiness is re-verified on every
// call. A failed cycle returns *TimeoutError or *ConnectionError and
// leaves the last fully applied values in place. Cycles are serialized;
// a concurrent call blocks until the one in flight finishes.
func (s *Service) Resync(ctx context.Context) error {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	if err := s.awaitKlippyReady(ctx); err != nil {
		return err
	}

	objects, err := s.listObjects(ctx)
	if err != nil {
		return err
	}

	if err := s.queryStatus(ctx, objects); err != nil {
		return err
	}

	s.fetchMetadata(ctx)

	slog.Debug("Resync complete", "printer", s.printerName, "objects", len(objects))
	return nil
}

// PrinterName returns the identifying label of the mirrored printer.
func (s *Service) PrinterName() string {
	return s.printerName
}

// KlippyReady reports whether the most recent readiness observation saw
// klippy in the ready state.
func (s *Service) KlippyReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverInfo.KlippyState == moonraker.KlippyStateReady
}

// ServerInfo returns a snapshot of the server info record.
func (s *Service) ServerInfo() moonraker.ServerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverInfo
}

// PrintStats returns a snapshot of the print_stats record.
func (s *Service) PrintStats() moonraker.PrintStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.printStats.Clone()
}

// DisplayStatus returns a snapshot of the display_status record.
func (s *Service) DisplayStatus() moonraker.DisplayStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.displayStatus.Clone()
}

// VirtualSDCard returns a snapshot of the virtual_sdcard record.
func (s *Service) VirtualSDCard() moonraker.VirtualSDCard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.virtualSDCard
}

// Metadata returns a snapshot of the file metadata record.
func (s *Service) Metadata() moonraker.FileMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata
}

// awaitKlippyReady polls server.info until klippy reports ready or the
// configured bound elapses. A poll that goes unanswered or sees a
// non-ready state keeps polling; a transport failure aborts immediately.
func (s *Service) awaitKlippyReady(ctx context.Context) error {
	gateCtx, cancel := context.WithTimeout(ctx, s.klippyTimeout)
	defer cancel()

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = readyPollInitialInterval
	expo.MaxInterval = readyPollMaxInterval

	operation := func() (bool, error) {
		ready, err := s.pollKlippyState(gateCtx)
		if err != nil {
			return false, backoff.Permanent(err)
		}
		if !ready {
			return false, errKlippyNotReady
		}
		return true, nil
	}

	_, err := backoff.Retry(gateCtx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxElapsedTime(s.klippyTimeout))
	if err != nil {
		var connErr *ConnectionError
		switch {
		case errors.As(err, &connErr):
			return connErr
		case errors.Is(err, context.Canceled):
			return err
		default:
			return &TimeoutError{Printer: s.printerName, Timeout: s.klippyTimeout}
		}
	}

	s.checkMoonrakerVersion()
	return nil
}

// pollKlippyState issues one readiness request and folds the reported
// server info into the record. It returns true when klippy is ready,
// false when the remote reported another state or did not answer in
// time, and an error only on failures that end the gate.
func (s *Service) pollKlippyState(ctx context.Context) (bool, error) {
	pollCtx, cancel := context.WithTimeout(ctx, readyPollTimeout)
	defer cancel()

	result, err := s.client.Call(pollCtx, moonraker.MethodServerInfo, nil)
	if err != nil {
		var rpcErr *jsonrpc.RPCError
		switch {
		case errors.Is(err, context.Canceled):
			return false, err
		case errors.Is(err, jsonrpc.ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
			// Unanswered poll counts as not ready
			return false, nil
		case errors.As(err, &rpcErr):
			// The remote answered; klippy just cannot report yet
			slog.Debug("Readiness query rejected", "printer", s.printerName, "error", err)
			return false, nil
		default:
			return false, &ConnectionError{Op: moonraker.MethodServerInfo, Err: err}
		}
	}

	s.mu.Lock()
	s.serverInfo.Apply(gjson.ParseBytes(result))
	state := s.serverInfo.KlippyState
	s.mu.Unlock()

	if state != moonraker.KlippyStateReady {
		slog.Debug("Klippy not ready", "printer", s.printerName, "state", string(state))
		return false, nil
	}
	return true, nil
}

// listObjects asks the remote which printer objects it currently exposes.
// An empty inventory is valid.
func (s *Service) listObjects(ctx context.Context) ([]string, error) {
	result, err := s.client.Call(ctx, moonraker.MethodObjectsList, nil)
	if err != nil {
		return nil, s.connectionError(moonraker.MethodObjectsList, err)
	}

	var names []string
	gjson.GetBytes(result, "objects").ForEach(func(_, value gjson.Result) bool {
		if value.Type == gjson.String {
			names = append(names, value.String())
		}
		return true
	})
	return names, nil
}

// queryStatus fetches the current values of the named objects in one
// batched request and folds them into the records.
func (s *Service) queryStatus(ctx context.Context, objects []string) error {
	names := make(map[string]any, len(objects))
	for _, name := range objects {
		// nil selects every field of the object
		names[name] = nil
	}

	result, err := s.client.Call(ctx, moonraker.MethodObjectsQuery, map[string]any{"objects": names})
	if err != nil {
		return s.connectionError(moonraker.MethodObjectsQuery, err)
	}

	s.applyStatus(gjson.GetBytes(result, "status"))
	return nil
}

// applyStatus folds a status payload (object name to value mapping) into
// the records. Known objects present in the payload update their record
// as a whole; absent and unknown names are no-ops. Malformed data is
// ignored, so parsing cannot fail.
func (s *Service) applyStatus(status gjson.Result) {
	if !status.IsObject() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if res := status.Get(moonraker.ObjectPrintStats); res.IsObject() {
		s.printStats.Apply(res)
	}
	if res := status.Get(moonraker.ObjectDisplayStatus); res.IsObject() {
		s.displayStatus.Apply(res)
	}
	if res := status.Get(moonraker.ObjectVirtualSDCard); res.IsObject() {
		s.virtualSDCard.Apply(res)
	}
}

// fetchMetadata retrieves slicer metadata for the current job file. It is
// best effort: any failure is logged and the resync still succeeds.
func (s *Service) fetchMetadata(ctx context.Context) {
	s.mu.RLock()
	filename := s.printStats.Filename
	s.mu.RUnlock()

	if filename == nil || *filename == "" {
		return
	}

	result, err := s.client.Call(ctx, moonraker.MethodFileMetadata, map[string]any{"filename": *filename})
	if err != nil {
		slog.Debug("File metadata fetch failed",
			"printer", s.printerName,
			"filename", *filename,
			"error", err)
		return
	}

	s.mu.Lock()
	s.metadata.Apply(gjson.ParseBytes(result))
	s.mu.Unlock()
}

// checkMoonrakerVersion warns once per engine when the remote runs a
// Moonraker release older than the minimum tested one.
func (s *Service) checkMoonrakerVersion() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.versionChecked || s.serverInfo.MoonrakerVersion == "" {
		return
	}
	s.versionChecked = true

	if !versions.IsAtLeast(s.serverInfo.MoonrakerVersion, minMoonrakerVersion) {
		slog.Warn("Moonraker is older than the minimum tested release",
			"printer", s.printerName,
			"version", s.serverInfo.MoonrakerVersion,
			"minimum", minMoonrakerVersion)
	}
}

// connectionError classifies a transport failure, letting caller
// cancellation pass through untouched.
func (s *Service) connectionError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &ConnectionError{Op: op, Err: err}
}
