// Command dongle runs the force gauge daemon: it owns the measurement task
// over the configured load-cell ADC and exposes it over BLE, a serial
// console and a websocket monitor, all optional per configuration.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/kvistgaard/gripforce/pkg/adc"
	"github.com/kvistgaard/gripforce/pkg/ble"
	"github.com/kvistgaard/gripforce/pkg/config"
	"github.com/kvistgaard/gripforce/pkg/console"
	"github.com/kvistgaard/gripforce/pkg/measure"
	"github.com/kvistgaard/gripforce/pkg/monitor"
	"github.com/kvistgaard/gripforce/pkg/nvm"
)

// progressorID is reported over BLE in response to GetProgressorID.
const progressorID = 42

func main() {
	var (
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		driverFlag = flag.String("driver", "", "ADC driver override (hx711, ads1230 or mock)")
		portFlag   = flag.String("p", "", "Console serial port override (e.g., /dev/ttyACM0)")
		streamFlag = flag.String("stream", "", "Start streaming this sample kind to the monitor (raw, filtered, calibrated or tared)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *driverFlag != "" {
		cfg.ADC.Driver = *driverFlag
	}
	if *portFlag != "" {
		cfg.Console.Port = *portFlag
	}

	device, err := openADC(cfg)
	if err != nil {
		log.Fatalf("Failed to open ADC: %v", err)
	}

	flash, err := nvm.OpenFileFlash(cfg.Flash.Path, cfg.Flash.PageSize)
	if err != nil {
		log.Fatalf("Failed to open calibration flash: %v", err)
	}
	store, err := nvm.Open(flash)
	if err != nil {
		log.Fatalf("Failed to open calibration store: %v", err)
	}

	task := measure.New(device, store, cfg.Measurement.SamplingRateHz)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Console.Port != "" {
		cons, conn, err := console.OpenPort(cfg.Console.Port, cfg.Console.BaudRate, task)
		if err != nil {
			log.Fatalf("Failed to open console: %v", err)
		}
		defer conn.Close()
		go cons.Run()
		log.Printf("console listening on %s", cfg.Console.Port)
	}

	if cfg.Monitor.Enabled {
		hub := monitor.NewHub()
		srv := &http.Server{Addr: cfg.Monitor.Listen, Handler: hub}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("monitor server failed: %v", err)
			}
		}()
		defer srv.Close()
		log.Printf("monitor listening on ws://%s", cfg.Monitor.Listen)

		if *streamFlag != "" {
			cmd, err := streamCommand(*streamFlag, hub)
			if err != nil {
				log.Fatalf("Invalid -stream flag: %v", err)
			}
			task.TrySend(cmd)
		}
	}

	if cfg.BLE.Enabled {
		svc := ble.NewService(cfg.BLE.Name, progressorID, task)
		if err := svc.Start(); err != nil {
			log.Fatalf("Failed to start BLE service: %v", err)
		}
	}

	task.Run(ctx)
	log.Printf("shutting down")
}

// openADC builds the configured converter. Driver selection happens once,
// here; the rest of the daemon only sees the adc.ADC interface.
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

func streamCommand(kind string, hub *monitor.Hub) (measure.Command, error) {
	switch kind {
	case "raw":
		return measure.StartRaw(hub.OnRaw()), nil
	case "filtered":
		return measure.StartFilteredRaw(hub.OnRaw()), nil
	case "calibrated":
		return measure.StartCalibrated(hub.OnWeight()), nil
	case "tared":
		return measure.StartTared(hub.OnWeight()), nil
	default:
		return nil, fmt.Errorf("unknown sample kind %q", kind)
	}
}
