// Command caltool performs two-point factory calibration against the
// configured ADC: an unloaded reading, a reading under a known weight, then
// persists the derived constants.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/eiannone/keyboard"

	"github.com/kvistgaard/gripforce/pkg/config"
	"github.com/kvistgaard/gripforce/pkg/measure"
	"github.com/kvistgaard/gripforce/pkg/nvm"
)

func main() {
	var (
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		driverFlag = flag.String("driver", "", "ADC driver override (hx711, ads1230 or mock)")
		weightFlag = flag.Float64("weight", 0, "Known calibration weight (required)")
	)
	flag.Parse()

	if *weightFlag <= 0 {
		log.Fatalf("A positive -weight is required")
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *driverFlag != "" {
		cfg.ADC.Driver = *driverFlag
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
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		task.Run(ctx)
	}()

	if err := keyboard.Open(); err != nil {
		log.Fatalf("Failed to open keyboard: %v", err)
	}
	defer keyboard.Close()

	// Each calibration point settles for one second of samples and averages
	// the next second; wait their combined duration plus a margin before
	// moving on.
	pointDuration := 2*time.Second + 500*time.Millisecond

	fmt.Println("Unload the cell completely, then press any key.")
	waitKey()
	send(task, measure.AddCalibrationPoint{Weight: 0})
	fmt.Println("Measuring zero point...")
	time.Sleep(pointDuration)

	fmt.Printf("Apply the known %.3f load, then press any key.\n", *weightFlag)
	waitKey()
	send(task, measure.AddCalibrationPoint{Weight: float32(*weightFlag)})
	fmt.Println("Measuring loaded point...")
	time.Sleep(pointDuration)

	send(task, measure.SaveCalibration{})
	time.Sleep(500 * time.Millisecond)

	cancel()
	<-done

	// Re-read the page to show what was actually persisted.
	saved, err := nvm.Open(flash)
	if err != nil {
		log.Fatalf("Failed to re-read calibration: %v", err)
	}
	fmt.Printf("Saved calibration: m=%v b=%d\n", saved.ReadCalM(), saved.ReadCalB())
}

func send(task *measure.Task, cmd measure.Command) {
	if !task.TrySend(cmd) {
		log.Fatalf("Failed to send %s", cmd)
	}
}

func waitKey() {
	if _, _, err := keyboard.GetKey(); err != nil {
		log.Fatalf("Failed to read key: %v", err)
	}
}
