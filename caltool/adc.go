package main

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/kvistgaard/gripforce/pkg/adc"
	"github.com/kvistgaard/gripforce/pkg/config"
)

// openADC builds the configured converter.
func openADC(cfg *config.Config) (adc.ADC, error) {
	switch cfg.ADC.Driver {
	case "mock":
		return adc.NewMock(cfg.Mock.Value, cfg.Mock.Noise, cfg.Mock.Interval), nil

	case "hx711":
		data, clock, _, err := openPins(cfg, false)
		if err != nil {
			return nil, err
		}
		return adc.NewHX711(data, clock)

	case "ads1230":
		data, clock, vdda, err := openPins(cfg, true)
		if err != nil {
			return nil, err
		}
		return adc.NewADS1230(data, clock, vdda)

	default:
		return nil, fmt.Errorf("unknown ADC driver %q", cfg.ADC.Driver)
	}
}

func openPins(cfg *config.Config, wantVdda bool) (gpio.PinIn, gpio.PinOut, gpio.PinOut, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize GPIO host: %w", err)
	}
	data := gpioreg.ByName(cfg.ADC.DataPin)
	if data == nil {
		return nil, nil, nil, fmt.Errorf("unknown data pin %q", cfg.ADC.DataPin)
	}
	clock := gpioreg.ByName(cfg.ADC.ClockPin)
	if clock == nil {
		return nil, nil, nil, fmt.Errorf("unknown clock pin %q", cfg.ADC.ClockPin)
	}
	var vdda gpio.PinOut
	if wantVdda {
		pin := gpioreg.ByName(cfg.ADC.VddaPin)
		if pin == nil {
			return nil, nil, nil, fmt.Errorf("unknown vdda pin %q", cfg.ADC.VddaPin)
		}
		vdda = pin
	}
	return data, clock, vdda, nil
}
