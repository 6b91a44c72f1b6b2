package adc

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/kvistgaard/gripforce/pkg/sample"
)

// Mock simulates an amplifier for tests and hardware-less bench runs. It
// produces a configurable base reading plus uniform noise, optionally paced
// at a fixed interval.
type Mock struct {
	mu       sync.Mutex
	value    int32
	noise    int32
	interval time.Duration
	powered  bool
	rng      *rand.Rand
}

var _ ADC = (*Mock)(nil)

// NewMock creates a mock amplifier. noise is the half-width of the uniform
// noise band; interval of zero produces samples as fast as they are pulled.
func NewMock(value, noise int32, interval time.Duration) *Mock {
	return &Mock{
		value:    value,
		noise:    noise,
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetValue changes the simulated base reading.
func (m *Mock) SetValue(value int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
}

// PowerUp marks the mock powered.
func (m *Mock) PowerUp(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.powered = true
	return nil
}

// PowerDown marks the mock unpowered.
func (m *Mock) PowerDown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.powered = false
	return nil
}

// Powered reports the simulated power state.
func (m *Mock) Powered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.powered
}

// Sample returns the simulated reading, powering up first like the real
// drivers do.
func (m *Mock) Sample(ctx context.Context) (sample.Sample[int32], error) {
	m.mu.Lock()
	if !m.powered {
		m.powered = true
	}
	v := m.value
	if m.noise > 0 {
		v += m.rng.Int31n(2*m.noise+1) - m.noise
	}
	interval := m.interval
	m.mu.Unlock()

	if interval > 0 {
		if err := sleep(ctx, interval); err != nil {
			return sample.Sample[int32]{}, err
		}
	}
	return sample.Sample[int32]{At: time.Now(), Value: v}, nil
}
