package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, 80, cfg.Measurement.SamplingRateHz)
	assert.Equal(t, "mock", cfg.ADC.Driver)
	assert.Equal(t, "calibration.bin", cfg.Flash.Path)
	assert.Equal(t, 4096, cfg.Flash.PageSize)
	assert.False(t, cfg.BLE.Enabled)
	assert.Equal(t, "Progressor_7125", cfg.BLE.Name)
	assert.Equal(t, 115200, cfg.Console.BaudRate)
	assert.Equal(t, "localhost:8080", cfg.Monitor.Listen)
	assert.Equal(t, int32(-100598), cfg.Mock.Value)
	assert.Equal(t, 12500*time.Microsecond, cfg.Mock.Interval)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "mock", cfg.ADC.Driver)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
measurement:
  sampling_rate_hz: 10

adc:
  driver: "ads1230"
  data_pin: "GPIO17"
  clock_pin: "GPIO27"
  vdda_pin: "GPIO22"

flash:
  path: "/var/lib/gripforce/calibration.bin"
  page_size: 4096

ble:
  enabled: true
  name: "Progressor_1234"

console:
  port: "/dev/ttyAMA0"
  baud_rate: 9600

monitor:
  enabled: true
  listen: "0.0.0.0:9000"
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, 10, cfg.Measurement.SamplingRateHz)
	assert.Equal(t, "ads1230", cfg.ADC.Driver)
	assert.Equal(t, "GPIO17", cfg.ADC.DataPin)
	assert.Equal(t, "GPIO27", cfg.ADC.ClockPin)
	assert.Equal(t, "GPIO22", cfg.ADC.VddaPin)
	assert.Equal(t, "/var/lib/gripforce/calibration.bin", cfg.Flash.Path)
	assert.True(t, cfg.BLE.Enabled)
	assert.Equal(t, "Progressor_1234", cfg.BLE.Name)
	assert.Equal(t, "/dev/ttyAMA0", cfg.Console.Port)
	assert.Equal(t, 9600, cfg.Console.BaudRate)
	assert.True(t, cfg.Monitor.Enabled)
	assert.Equal(t, "0.0.0.0:9000", cfg.Monitor.Listen)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
adc:
  driver: "hx711"
  data_pin: "GPIO17"
  clock_pin: "GPIO27"
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// Should use defaults for missing fields
	assert.Equal(t, "hx711", cfg.ADC.Driver)
	assert.Equal(t, "GPIO17", cfg.ADC.DataPin)
	assert.Equal(t, 80, cfg.Measurement.SamplingRateHz) // default
	assert.Equal(t, "calibration.bin", cfg.Flash.Path)  // default
	assert.Equal(t, 115200, cfg.Console.BaudRate)       // default
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.ADC.Driver = "hx711"
	cfg.Measurement.SamplingRateHz = 10

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	// Load it back and verify
	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "hx711", loaded.ADC.Driver)
	assert.Equal(t, 10, loaded.Measurement.SamplingRateHz)
}
