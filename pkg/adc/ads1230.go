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
	ads1230Bits = 20
	// Generous settling time for the analog supply rail after the enable
	// pin switches, relative to the board's RC time constants.
	ads1230SettleTime = 100 * time.Microsecond
)

// followup selects the trailing clock pulses issued after a conversion word.
type followup int

const (
	// followupNone forces the data line back high.
	followupNone followup = iota
	// followupOffsetCal runs offset calibration after the measurement.
	followupOffsetCal
	// followupStandbyOffsetCal schedules offset calibration for the wakeup
	// from standby.
	followupStandbyOffsetCal
)

func (f followup) pulses() int {
	switch f {
	case followupOffsetCal:
		return 6
	case followupStandbyOffsetCal:
		return 5
	default:
		return 1
	}
}

// ADS1230 reads a TI ADS1230 load-cell amplifier. Besides the clock-parking
// power control it drives an active-low enable for the analog supply rail.
type ADS1230 struct {
	mu      sync.Mutex
	data    gpio.PinIn
	clock   gpio.PinOut
	vddaOn  gpio.PinOut
	powered bool
}

var _ ADC = (*ADS1230)(nil)

// NewADS1230 configures the pins and leaves the amplifier powered down.
func NewADS1230(data gpio.PinIn, clock, vddaOn gpio.PinOut) (*ADS1230, error) {
	if err := data.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("ads1230: configuring data pin: %w", err)
	}
	if err := clock.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("ads1230: configuring clock pin: %w", err)
	}
	if err := vddaOn.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("ads1230: configuring vdda pin: %w", err)
	}
	return &ADS1230{data: data, clock: clock, vddaOn: vddaOn}, nil
}

// PowerUp enables the analog supply, wakes the amplifier and waits for the
// rail to settle.
func (a *ADS1230) PowerUp(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.powerUpLocked(ctx)
}

func (a *ADS1230) powerUpLocked(ctx context.Context) error {
	if err := a.clock.Out(gpio.Low); err != nil {
		return fmt.Errorf("ads1230: power up: %w", err)
	}
	if err := a.vddaOn.Out(gpio.Low); err != nil {
		return fmt.Errorf("ads1230: power up: %w", err)
	}
	if err := sleep(ctx, ads1230SettleTime); err != nil {
		return err
	}
	a.powered = true
	return nil
}

// PowerDown parks the clock high and cuts the analog supply.
func (a *ADS1230) PowerDown() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.powerDownLocked()
}

func (a *ADS1230) powerDownLocked() error {
	a.powered = false
	if err := a.clock.Out(gpio.High); err != nil {
		return fmt.Errorf("ads1230: power down: %w", err)
	}
	if err := a.vddaOn.Out(gpio.High); err != nil {
		return fmt.Errorf("ads1230: power down: %w", err)
	}
	return nil
}

// Sample performs one full conversion-word read, powering the amplifier up
// first if needed.
func (a *ADS1230) Sample(ctx context.Context) (sample.Sample[int32], error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.powered {
		if err := a.powerUpLocked(ctx); err != nil {
			return sample.Sample[int32]{}, err
		}
	}
	return a.takeMeasurement(ctx, followupNone)
}

// ImmediateOffsetCalibration reads one word and runs the part's internal
// offset calibration right after it.
func (a *ADS1230) ImmediateOffsetCalibration(ctx context.Context) (sample.Sample[int32], error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.powered {
		if err := a.powerUpLocked(ctx); err != nil {
			return sample.Sample[int32]{}, err
		}
	}
	return a.takeMeasurement(ctx, followupOffsetCal)
}

// ScheduleOffsetCalibration puts the part in standby with offset calibration
// queued for the next wakeup, and powers it down.
func (a *ADS1230) ScheduleOffsetCalibration(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.powered {
		if err := a.powerUpLocked(ctx); err != nil {
			return err
		}
	}
	_, err := a.takeMeasurement(ctx, followupStandbyOffsetCal)
	return err
}

func (a *ADS1230) takeMeasurement(ctx context.Context, action followup) (sample.Sample[int32], error) {
	skips := 0
	for {
		if err := a.waitReady(ctx); err != nil {
			return sample.Sample[int32]{}, err
		}
		at := time.Now()

		raw, err := a.readWord(action)
		if err != nil {
			return sample.Sample[int32]{}, err
		}
		value := SignExtend(raw, ads1230Bits)
		// Same spurious all-ones defect as the HX711.
		if value == -1 && skips < badReadingRetries {
			skips++
			log.Printf("ads1230: skipping -1 reading")
			continue
		}
		return sample.Sample[int32]{At: at, Value: value}, nil
	}
}

func (a *ADS1230) waitReady(ctx context.Context) error {
	for a.data.Read() != gpio.Low {
		if err := sleep(ctx, readyPollInterval); err != nil {
			return err
		}
	}
	return nil
}

// readWord clocks out the 20-bit conversion word MSB first, then issues the
// followup pulses. A standby followup leaves the part powered down.
func (a *ADS1230) readWord(action followup) (uint32, error) {
	var raw uint32
	for i := ads1230Bits - 1; i >= 0; i-- {
		if err := a.clock.Out(gpio.High); err != nil {
			return 0, fmt.Errorf("ads1230: clock: %w", err)
		}
		time.Sleep(pulseWidth)
		if a.data.Read() == gpio.High {
			raw |= 1 << i
		}
		if err := a.clock.Out(gpio.Low); err != nil {
			return 0, fmt.Errorf("ads1230: clock: %w", err)
		}
		time.Sleep(pulseWidth)
	}
	for p := 0; p < action.pulses(); p++ {
		if err := a.pulse(); err != nil {
			return 0, err
		}
	}
	if action == followupStandbyOffsetCal {
		if err := a.powerDownLocked(); err != nil {
			return 0, err
		}
	}
	return raw, nil
}

func (a *ADS1230) pulse() error {
	if err := a.clock.Out(gpio.High); err != nil {
		return fmt.Errorf("ads1230: clock: %w", err)
	}
	time.Sleep(pulseWidth)
	if err := a.clock.Out(gpio.Low); err != nil {
		return fmt.Errorf("ads1230: clock: %w", err)
	}
	time.Sleep(pulseWidth)
	return nil
}
