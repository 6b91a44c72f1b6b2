package sample

import (
	"context"
	"sync"
)

// Calibrator converts raw readings to weight units with the affine transform
// weight = m * (raw - b). Constants are mutable at runtime and a change takes
// effect on the very next sample.
type Calibrator struct {
	mu     sync.Mutex
	source RawSource
	m      float32
	b      int32
}

var _ WeightSource = (*Calibrator)(nil)

// NewCalibrator wraps source with calibration constants m and b.
func NewCalibrator(source RawSource, m float32, b int32) *Calibrator {
	return &Calibrator{source: source, m: m, b: b}
}

// SetCalibration replaces the calibration constants.
func (c *Calibrator) SetCalibration(m float32, b int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = m
	c.b = b
}

// Calibration returns the constants currently in effect.
func (c *Calibrator) Calibration() (m float32, b int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m, c.b
}

// Sample pulls one raw reading and returns it calibrated, keeping the raw
// sample's timestamp.
func (c *Calibrator) Sample(ctx context.Context) (Sample[float32], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.source.Sample(ctx)
	if err != nil {
		return Sample[float32]{}, err
	}
	return Sample[float32]{
		At:    s.At,
		Value: float32(s.Value-c.b) * c.m,
	}, nil
}
