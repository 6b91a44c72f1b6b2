// Package adc drives the strain-gauge amplifiers (HX711 and ADS1230) over
// bit-banged synchronous serial through periph.io GPIO pins, and provides a
// mock source for tests and bench runs without hardware.
package adc

import (
	"context"
	"fmt"
	"time"

	"github.com/kvistgaard/gripforce/pkg/sample"
)

// ADC is a powered raw sample source. Sample powers the amplifier up
// automatically when needed; PowerDown drops it into its low-power state by
// parking the clock line.
type ADC interface {
	sample.RawSource
	PowerUp(ctx context.Context) error
	PowerDown() error
}

// badReadingRetries bounds how many times a spurious all-ones conversion
// word (value == -1) is re-read before being accepted as genuine.
const badReadingRetries = 3

// pulseWidth is the half-period of a bit-bang clock pulse. The HX711 and
// ADS1230 both require T_high > 0.2 us; scheduler jitter only stretches
// pulses, which both parts tolerate up to their 50 us power-down threshold.
const pulseWidth = time.Microsecond

// readyPollInterval paces the data-ready poll between conversions.
const readyPollInterval = 100 * time.Microsecond

// SignExtend converts an n-bit two's-complement integer packed in the low
// bits of a uint32 container to a signed 32-bit integer. bits must be in
// [1, 32] and value must fit in bits; both drivers mask their shift result,
// so a violation is a programming error and panics.
func SignExtend(value uint32, bits uint) int32 {
	if bits == 0 || bits > 32 {
		panic(fmt.Sprintf("adc: invalid bit width %d", bits))
	}
	if bits < 32 {
		if value >= 1<<bits {
			panic(fmt.Sprintf("adc: value %#x out of range for %d bits", value, bits))
		}
		if value&(1<<(bits-1)) != 0 {
			value |= ^uint32(0) &^ (1<<bits - 1)
		}
	}
	return int32(value)
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
