package measure

import (
	"context"
	"log"
	"time"

	"github.com/kvistgaard/gripforce/pkg/adc"
	"github.com/kvistgaard/gripforce/pkg/cal"
	"github.com/kvistgaard/gripforce/pkg/nvm"
	"github.com/kvistgaard/gripforce/pkg/sample"
)

const (
	// commandQueueSize bounds the inbound command FIFO. Senders use
	// TrySend; a full queue drops the command with a logged error.
	commandQueueSize = 5
	// idleSleep yields the processor between loop iterations while no
	// measurement is active. It also bounds idle command latency.
	idleSleep = 100 * time.Millisecond
)

// state is the measurement state machine: idle, or actively streaming one
// sample kind since a start instant.
type state struct {
	active   bool
	kind     SampleKind
	onRaw    RawFunc
	onWeight WeightFunc
	start    time.Time
}

// Task owns the measurement pipeline for the lifetime of the process. The
// pipeline stages are never handed out; external callers interact only
// through commands and per-sample callbacks.
type Task struct {
	cmds chan Command
	hz   int

	device     adc.ADC
	median     *sample.Median
	calibrator *sample.Calibrator
	tarer      *sample.Tarer
	store      *nvm.Store
	factory    cal.TwoPoint

	state state
}

// New builds the pipeline over device, loading calibration constants from
// store. samplingRateHz is the configured conversion rate; it fixes the
// warm-up and averaging windows used by Tare and AddCalibrationPoint so the
// physical settle time stays constant across hardware revisions, and must
// not change once the task is running.
func New(device adc.ADC, store *nvm.Store, samplingRateHz int) *Task {
	if samplingRateHz < 2 {
		samplingRateHz = 2
	}
	m := store.ReadCalM()
	b := store.ReadCalB()
	log.Printf("measure: loaded calibration: m=%v b=%d", m, b)

	median := sample.NewMedian(device)
	calibrator := sample.NewCalibrator(median, m, b)
	tarer := sample.NewTarer(calibrator)
	return &Task{
		cmds:       make(chan Command, commandQueueSize),
		hz:         samplingRateHz,
		device:     device,
		median:     median,
		calibrator: calibrator,
		tarer:      tarer,
		store:      store,
	}
}

// Calibration returns the constants currently applied to calibrated
// samples. Safe to call from any goroutine.
func (t *Task) Calibration() (m float32, b int32) {
	return t.calibrator.Calibration()
}

// TrySend enqueues a command without blocking. It reports false and logs
// when the queue is full; callers must not assume delivery.
func (t *Task) TrySend(cmd Command) bool {
	select {
	case t.cmds <- cmd:
		return true
	default:
		log.Printf("measure: command queue full, dropping %s", cmd)
		return false
	}
}

// Run executes the task loop until ctx is cancelled. Each iteration drains
// at most one pending command, then performs one measurement cycle if
// active, or sleeps a fixed slice if idle. Under sustained sampling the
// command latency is therefore bounded by one sample period.
func (t *Task) Run(ctx context.Context) {
	log.Printf("measure: task started")
	for {
		if !t.state.active {
			// Idle: block on the next command, waking periodically.
			select {
			case <-ctx.Done():
				return
			case cmd := <-t.cmds:
				log.Printf("measure: received command: %s", cmd)
				t.handle(ctx, cmd)
			case <-time.After(idleSleep):
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case cmd := <-t.cmds:
			log.Printf("measure: received command: %s", cmd)
			t.handle(ctx, cmd)
		default:
		}
		if t.state.active {
			t.measure(ctx)
		}
	}
}

func (t *Task) handle(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case startSampling:
		if t.state.active {
			log.Printf("measure: can't start sampling while already measuring")
			return
		}
		if err := t.device.PowerUp(ctx); err != nil {
			log.Printf("measure: power up failed: %v", err)
			return
		}
		t.state = state{
			active:   true,
			kind:     c.kind,
			onRaw:    c.onRaw,
			onWeight: c.onWeight,
			start:    time.Now(),
		}

	case StopSampling:
		if err := t.device.PowerDown(); err != nil {
			log.Printf("measure: power down failed: %v", err)
		}
		t.state = state{}

	case Tare:
		if t.state.active {
			log.Printf("measure: can't tare while measuring")
			return
		}
		t.tare(ctx)

	case AddCalibrationPoint:
		if t.state.active {
			log.Printf("measure: can't run factory cal while measuring")
			return
		}
		t.addCalibrationPoint(ctx, c.Weight)

	case SaveCalibration:
		t.saveCalibration()

	default:
		log.Printf("measure: unknown command %s", cmd)
	}
}

// tare lets the output settle after power-up for half a second of samples,
// averages the next half second of calibrated readings and installs the
// result as the tare offset.
func (t *Task) tare(ctx context.Context) {
	warmup := t.hz / 2
	windowSize := t.hz / 2
	for i := 0; i < warmup; i++ {
		if _, err := t.calibrator.Sample(ctx); err != nil {
			log.Printf("measure: tare aborted: %v", err)
			return
		}
	}
	window := sample.NewWindowFloat32(windowSize, false)
	for {
		s, err := t.calibrator.Sample(ctx)
		if err != nil {
			log.Printf("measure: tare aborted: %v", err)
			return
		}
		if avg, ok := window.Add(s.Value); ok {
			t.tarer.SetOffset(avg)
			break
		}
	}
	if err := t.device.PowerDown(); err != nil {
		log.Printf("measure: power down failed: %v", err)
	}
}

// addCalibrationPoint mirrors tare at full-second timing; factory
// calibration tolerates the slower settle in exchange for better averaging.
// The window reads the median stage rather than the calibrator, since this
// measurement is building the calibration itself.
func (t *Task) addCalibrationPoint(ctx context.Context, weight float32) {
	warmup := t.hz
	windowSize := t.hz
	for i := 0; i < warmup; i++ {
		if _, err := t.calibrator.Sample(ctx); err != nil {
			log.Printf("measure: factory cal aborted: %v", err)
			return
		}
	}
	window := sample.NewWindowInt32(windowSize, false)
	for {
		s, err := t.median.Sample(ctx)
		if err != nil {
			log.Printf("measure: factory cal aborted: %v", err)
			return
		}
		if avg, ok := window.Add(s.Value); ok {
			t.factory.AddPoint(cal.Point{Expected: weight, Measured: avg})
			break
		}
	}
}

func (t *Task) saveCalibration() {
	constants, ok := t.factory.Constants()
	if !ok {
		log.Printf("measure: not enough data points to calibrate")
		return
	}
	log.Printf("measure: new calibration: m=%v b=%d", constants.M, constants.B)
	t.store.WriteCalM(constants.M)
	t.store.WriteCalB(constants.B)
	if err := t.store.Flush(); err != nil {
		// A failed flush leaves flash in an unknown state; continuing on
		// stale contents is worse than dying.
		log.Fatalf("measure: persisting calibration failed: %v", err)
	}
	t.calibrator.SetCalibration(constants.M, constants.B)
}

// measure performs exactly one measurement cycle for the active kind.
func (t *Task) measure(ctx context.Context) {
	switch t.state.kind {
	case Raw:
		s, err := t.device.Sample(ctx)
		if err != nil {
			log.Printf("measure: sample failed: %v", err)
			return
		}
		if t.state.onRaw != nil {
			t.state.onRaw(t.elapsed(s.At), s.Value)
		}
	case FilteredRaw:
		s, err := t.median.Sample(ctx)
		if err != nil {
			log.Printf("measure: sample failed: %v", err)
			return
		}
		if t.state.onRaw != nil {
			t.state.onRaw(t.elapsed(s.At), s.Value)
		}
	case Calibrated:
		s, err := t.calibrator.Sample(ctx)
		if err != nil {
			log.Printf("measure: sample failed: %v", err)
			return
		}
		if t.state.onWeight != nil {
			t.state.onWeight(t.elapsed(s.At), s.Value)
		}
	case Tared:
		s, err := t.tarer.Sample(ctx)
		if err != nil {
			log.Printf("measure: sample failed: %v", err)
			return
		}
		if t.state.onWeight != nil {
			t.state.onWeight(t.elapsed(s.At), s.Value)
		}
	}
}

// elapsed computes the duration since sampling started. A timestamp before
// the start reference means the clock misbehaved; reset the reference
// instead of reporting a negative duration.
func (t *Task) elapsed(at time.Time) time.Duration {
	if at.Before(t.state.start) {
		t.state.start = at
		return 0
	}
	return at.Sub(t.state.start)
}
