package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/moni11811/mobileraker-companion-rinkhals/internal/datasync"
	datasyncmocks "github.com/moni11811/mobileraker-companion-rinkhals/internal/datasync/mocks"
)

func TestCoordinator_New(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := datasyncmocks.NewMockSyncer(ctrl)

	coord := New([]Printer{{Engine: engine, Interval: time.Minute}})

	require.NotNil(t, coord)
}

func TestCoordinator_Stop_BeforeStart(t *testing.T) {
	t.Parallel()

	coord := New(nil)

	// Stop should not panic if called before Start
	err := coord.Stop()
	assert.NoError(t, err)
}

func TestStart_ReturnsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := datasyncmocks.NewMockSyncer(ctrl)
	engine.EXPECT().PrinterName().Return("printer").AnyTimes()
	engine.EXPECT().Resync(gomock.Any()).Return(context.Canceled).AnyTimes()

	coord := New([]Printer{{Engine: engine, Interval: time.Minute}})

	// Cancel immediately to exit Start quickly
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := coord.Start(ctx)
	assert.NoError(t, err)
}

func TestStartStop_DrivesAllPrinters(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	synced := make(chan string, 4)
	newEngine := func(name string) *datasyncmocks.MockSyncer {
		engine := datasyncmocks.NewMockSyncer(ctrl)
		engine.EXPECT().PrinterName().Return(name).AnyTimes()
		engine.EXPECT().Resync(gomock.Any()).
			DoAndReturn(func(context.Context) error {
				select {
				case synced <- name:
				default:
				}
				return nil
			}).
			AnyTimes()
		return engine
	}

	// Long intervals so only the initial resyncs fire
	coord := New([]Printer{
		{Engine: newEngine("alpha"), Interval: time.Hour},
		{Engine: newEngine("beta"), Interval: time.Hour},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startErr := make(chan error, 1)
	go func() { startErr <- coord.Start(ctx) }()

	seen := make(map[string]bool)
	for len(seen) < 2 {
		select {
		case name := <-synced:
			seen[name] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for initial resyncs")
		}
	}

	require.NoError(t, coord.Stop())

	select {
	case err := <-startErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestRunPrinterSync_PerformsInitialAndPeriodicResyncs(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := datasyncmocks.NewMockSyncer(ctrl)
	engine.EXPECT().PrinterName().Return("printer").AnyTimes()

	// We expect at least 2 cycles: initial + at least one periodic
	engine.EXPECT().Resync(gomock.Any()).Return(nil).MinTimes(2)

	coord := &defaultCoordinator{}

	// Run the loop with a context that times out
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// Very short interval for testing
	coord.runPrinterSync(ctx, Printer{Engine: engine, Interval: 10 * time.Millisecond})
}

func TestRunPrinterSync_DefaultsInterval(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := datasyncmocks.NewMockSyncer(ctrl)
	engine.EXPECT().PrinterName().Return("printer").AnyTimes()

	// Only the initial resync fires before the cancelled context stops the loop
	engine.EXPECT().Resync(gomock.Any()).Return(context.Canceled).Times(1)

	coord := &defaultCoordinator{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	coord.runPrinterSync(ctx, Printer{Engine: engine})
}

func TestResyncPrinter_ToleratesFailures(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := datasyncmocks.NewMockSyncer(ctrl)
	engine.EXPECT().PrinterName().Return("flaky").AnyTimes()

	gomock.InOrder(
		engine.EXPECT().Resync(gomock.Any()).
			Return(&datasync.ConnectionError{Op: "printer.objects.list", Err: errors.New("broken pipe")}),
		engine.EXPECT().Resync(gomock.Any()).
			Return(&datasync.TimeoutError{Printer: "flaky", Timeout: time.Minute}),
		engine.EXPECT().Resync(gomock.Any()).Return(context.Canceled),
		engine.EXPECT().Resync(gomock.Any()).Return(nil),
	)

	coord := &defaultCoordinator{}
	ctx := context.Background()

	// None of these outcomes may panic or abort the caller
	coord.resyncPrinter(ctx, engine)
	coord.resyncPrinter(ctx, engine)
	coord.resyncPrinter(ctx, engine)
	coord.resyncPrinter(ctx, engine)
}
