package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Measurement MeasurementConfig `yaml:"measurement"`
	ADC         ADCConfig         `yaml:"adc"`
	Flash       FlashConfig       `yaml:"flash"`
	BLE         BLEConfig         `yaml:"ble"`
	Console     ConsoleConfig     `yaml:"console"`
	Monitor     MonitorConfig     `yaml:"monitor"`
	Mock        MockConfig        `yaml:"mock"`
}

// MeasurementConfig contains measurement parameters.
type MeasurementConfig struct {
	SamplingRateHz int `yaml:"sampling_rate_hz"` // Conversion rate of the ADC; also sizes tare/cal windows
}

// ADCConfig selects and wires the converter hardware.
type ADCConfig struct {
	Driver   string `yaml:"driver"`    // "hx711", "ads1230" or "mock"
	DataPin  string `yaml:"data_pin"`  // GPIO name of DOUT
	ClockPin string `yaml:"clock_pin"` // GPIO name of SCLK/PD_SCK
	VddaPin  string `yaml:"vdda_pin"`  // GPIO name of the analog supply enable (ads1230 only)
}

// FlashConfig contains the calibration store backing file.
type FlashConfig struct {
	Path     string `yaml:"path"`
	PageSize int    `yaml:"page_size"`
}

// BLEConfig contains the Bluetooth service configuration.
type BLEConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name"` // Advertised local name
}

// ConsoleConfig contains the serial console configuration.
type ConsoleConfig struct {
	Port     string `yaml:"port"` // Empty disables the console
	BaudRate int    `yaml:"baud_rate"`
}

// MonitorConfig contains the websocket monitor configuration.
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// MockConfig contains mock converter configuration.
type MockConfig struct {
	Value    int32         `yaml:"value"`    // Base raw reading
	Noise    int32         `yaml:"noise"`    // Uniform noise amplitude in counts
	Interval time.Duration `yaml:"interval"` // Pacing between samples (0 = free running)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Measurement: MeasurementConfig{
			SamplingRateHz: 80,
		},
		ADC: ADCConfig{
			Driver:   "mock",
			DataPin:  "GPIO5",
			ClockPin: "GPIO6",
			VddaPin:  "GPIO4",
		},
		Flash: FlashConfig{
			Path:     "calibration.bin",
			PageSize: 4096,
		},
		BLE: BLEConfig{
			Enabled: false,
			Name:    "Progressor_7125",
		},
		Console: ConsoleConfig{
			Port:     "", // No console unless a port is named
			BaudRate: 115200,
		},
		Monitor: MonitorConfig{
			Enabled: false,
			Listen:  "localhost:8080",
		},
		Mock: MockConfig{
			Value:    -100598, // Sits at the default zero offset
			Noise:    25,
			Interval: 12500 * time.Microsecond, // 80 Hz
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Measurement.SamplingRateHz == 0 {
		c.Measurement.SamplingRateHz = def.Measurement.SamplingRateHz
	}

	if c.ADC.Driver == "" {
		c.ADC.Driver = def.ADC.Driver
	}
	if c.ADC.DataPin == "" {
		c.ADC.DataPin = def.ADC.DataPin
	}
	if c.ADC.ClockPin == "" {
		c.ADC.ClockPin = def.ADC.ClockPin
	}
	if c.ADC.VddaPin == "" {
		c.ADC.VddaPin = def.ADC.VddaPin
	}

	if c.Flash.Path == "" {
		c.Flash.Path = def.Flash.Path
	}
	if c.Flash.PageSize == 0 {
		c.Flash.PageSize = def.Flash.PageSize
	}

	if c.BLE.Name == "" {
		c.BLE.Name = def.BLE.Name
	}

	if c.Console.BaudRate == 0 {
		c.Console.BaudRate = def.Console.BaudRate
	}

	if c.Monitor.Listen == "" {
		c.Monitor.Listen = def.Monitor.Listen
	}

	if c.Mock.Value == 0 {
		c.Mock.Value = def.Mock.Value
	}
	if c.Mock.Interval == 0 {
		c.Mock.Interval = def.Mock.Interval
	}
}
