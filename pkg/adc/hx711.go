package adc

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/kvistgaard/gripforce/pkg/sample"
)

const (
	hx711Bits = 24
	// Typical output settling time is 400 ms at 10 Hz or 50 ms at 80 Hz.
	hx711SettleTime = 50 * time.Millisecond
	// Trailing pulses after the conversion word select the next input and
	// gain: 1 = channel A gain 128, 2 = channel B gain 32, 3 = channel A
	// gain 64. The load cell hangs off channel A.
	hx711GainPulses = 1
)

// HX711 reads an Avia HX711 load-cell amplifier. The clock line doubles as
// the power control: holding it high for more than 60 us puts the part to
// sleep, pulling it low wakes it.
type HX711 struct {
	mu      sync.Mutex
	data    gpio.PinIn
	clock   gpio.PinOut
	powered bool
}

var _ ADC = (*HX711)(nil)

// NewHX711 configures the pins and leaves the amplifier powered down.
func NewHX711(data gpio.PinIn, clock gpio.PinOut) (*HX711, error) {
	if err := data.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("hx711: configuring data pin: %w", err)
	}
	if err := clock.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("hx711: configuring clock pin: %w", err)
	}
	return &HX711{data: data, clock: clock}, nil
}

// PowerUp wakes the amplifier and waits for its output to settle.
func (h *HX711) PowerUp(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.powerUpLocked(ctx)
}

func (h *HX711) powerUpLocked(ctx context.Context) error {
	if err := h.clock.Out(gpio.Low); err != nil {
		return fmt.Errorf("hx711: power up: %w", err)
	}
	if err := sleep(ctx, hx711SettleTime); err != nil {
		return err
	}
	h.powered = true
	return nil
}

// PowerDown parks the clock line high, dropping the part into sleep.
func (h *HX711) PowerDown() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.powered = false
	if err := h.clock.Out(gpio.High); err != nil {
		return fmt.Errorf("hx711: power down: %w", err)
	}
	return nil
}

// Sample performs one full conversion-word read, powering the amplifier up
// first if needed.
func (h *HX711) Sample(ctx context.Context) (sample.Sample[int32], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.powered {
		if err := h.powerUpLocked(ctx); err != nil {
			return sample.Sample[int32]{}, err
		}
	}

	skips := 0
	for {
		if err := h.waitReady(ctx); err != nil {
			return sample.Sample[int32]{}, err
		}
		at := time.Now()

		raw, err := h.readWord()
		if err != nil {
			return sample.Sample[int32]{}, err
		}
		value := SignExtend(raw, hx711Bits)
		// The HX711 sometimes spontaneously returns 0xFFFFFF.
		if value == -1 && skips < badReadingRetries {
			skips++
			log.Printf("hx711: skipping -1 reading")
			continue
		}
		return sample.Sample[int32]{At: at, Value: value}, nil
	}
}

// waitReady polls until the amplifier pulls the data line low, signalling
// that a conversion word is ready. A wedged bus never asserts data-ready;
// cancellation is the caller's only way out.
func (h *HX711) waitReady(ctx context.Context) error {
	for h.data.Read() != gpio.Low {
		if err := sleep(ctx, readyPollInterval); err != nil {
			return err
		}
	}
	return nil
}

// readWord clocks out the 24-bit conversion word MSB first, then issues the
// gain-select pulses that schedule the next conversion.
func (h *HX711) readWord() (uint32, error) {
	var raw uint32
	for i := hx711Bits - 1; i >= 0; i-- {
		if err := h.clock.Out(gpio.High); err != nil {
			return 0, fmt.Errorf("hx711: clock: %w", err)
		}
		time.Sleep(pulseWidth)
		if h.data.Read() == gpio.High {
			raw |= 1 << i
		}
		if err := h.clock.Out(gpio.Low); err != nil {
			return 0, fmt.Errorf("hx711: clock: %w", err)
		}
		time.Sleep(pulseWidth)
	}
	for p := 0; p < hx711GainPulses; p++ {
		if err := h.pulse(); err != nil {
			return 0, err
		}
	}
	return raw, nil
}

func (h *HX711) pulse() error {
	if err := h.clock.Out(gpio.High); err != nil {
		return fmt.Errorf("hx711: clock: %w", err)
	}
	time.Sleep(pulseWidth)
	if err := h.clock.Out(gpio.Low); err != nil {
		return fmt.Errorf("hx711: clock: %w", err)
	}
	time.Sleep(pulseWidth)
	return nil
}
