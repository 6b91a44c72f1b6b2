// Package measure runs the command-driven measurement task. It owns the
// sample pipeline (ADC, median filter, calibrator, tarer), the persisted
// calibration store and the factory-calibration state, and arbitrates all
// access to them through a bounded command channel.
package measure

import (
	"fmt"
	"time"
)

// SampleKind selects which pipeline stage feeds an active measurement.
type SampleKind int

const (
	// Raw streams unfiltered ADC readings.
	Raw SampleKind = iota
	// FilteredRaw streams median-filtered readings.
	FilteredRaw
	// Calibrated streams weights without the tare offset applied.
	Calibrated
	// Tared streams weights with the tare offset applied.
	Tared
)

func (k SampleKind) String() string {
	switch k {
	case Raw:
		return "Raw"
	case FilteredRaw:
		return "FilteredRaw"
	case Calibrated:
		return "Calibrated"
	case Tared:
		return "Tared"
	default:
		return fmt.Sprintf("SampleKind(%d)", int(k))
	}
}

// RawFunc receives one raw measurement per cycle: the elapsed time since
// sampling started and the reading. It runs synchronously inside the task
// loop and must not block for long, or it starves command processing.
type RawFunc func(elapsed time.Duration, value int32)

// WeightFunc is the weight-unit counterpart of RawFunc.
type WeightFunc func(elapsed time.Duration, value float32)

// Command is a request processed by the task loop, in FIFO order, at most
// one per loop iteration.
type Command interface {
	fmt.Stringer
	isCommand()
}

// startSampling carries the sample kind and the callback matching it. Use
// the Start* constructors; they keep the two consistent.
type startSampling struct {
	kind     SampleKind
	onRaw    RawFunc
	onWeight WeightFunc
}

func (c startSampling) isCommand()     {}
func (c startSampling) String() string { return "StartSampling (" + c.kind.String() + ")" }

// StartRaw starts continuous raw sampling. cb may be nil.
func StartRaw(cb RawFunc) Command { return startSampling{kind: Raw, onRaw: cb} }

// StartFilteredRaw starts continuous median-filtered sampling. cb may be nil.
func StartFilteredRaw(cb RawFunc) Command { return startSampling{kind: FilteredRaw, onRaw: cb} }

// StartCalibrated starts continuous calibrated sampling. cb may be nil.
func StartCalibrated(cb WeightFunc) Command { return startSampling{kind: Calibrated, onWeight: cb} }

// StartTared starts continuous tared sampling. cb may be nil.
func StartTared(cb WeightFunc) Command { return startSampling{kind: Tared, onWeight: cb} }

// StopSampling halts measurement and powers the ADC down. Legal any time.
type StopSampling struct{}

func (StopSampling) isCommand()     {}
func (StopSampling) String() string { return "StopSampling" }

// Tare zeroes out the currently applied load. Only legal while idle.
type Tare struct{}

func (Tare) isCommand()     {}
func (Tare) String() string { return "Tare" }

// AddCalibrationPoint measures the current load and records it against the
// known applied weight. Only legal while idle.
type AddCalibrationPoint struct {
	Weight float32
}

func (AddCalibrationPoint) isCommand() {}
func (c AddCalibrationPoint) String() string {
	return fmt.Sprintf("AddCalibrationPoint: %v", c.Weight)
}

// SaveCalibration derives constants from the recorded points, persists them
// and hot-swaps them into the live calibrator.
type SaveCalibration struct{}

func (SaveCalibration) isCommand()     {}
func (SaveCalibration) String() string { return "SaveCalibration" }
