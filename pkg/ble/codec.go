// Package ble exposes the measurement task over a vendor GATT service
// compatible with the Progressor API: one notify characteristic streaming
// data points, one write characteristic accepting control opcodes.
package ble

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Vendor service and characteristic UUIDs.
const (
	ServiceUUID     = "7e4e1701-1ea6-40c9-9dcc-13d34ffead57"
	DataCharUUID    = "7e4e1702-1ea6-40c9-9dcc-13d34ffead57"
	ControlCharUUID = "7e4e1703-1ea6-40c9-9dcc-13d34ffead57"
)

// Control opcodes written to the control characteristic.
const (
	OpTare                = 0x64
	OpStartMeasurement    = 0x65
	OpStopMeasurement     = 0x66
	OpAddCalibrationPoint = 0x69
	OpSaveCalibration     = 0x6A
	OpGetAppVersion       = 0x6B
	OpShutdown            = 0x6E
	OpSampleBattery       = 0x6F
	OpGetProgressorID     = 0x70
)

// Data point opcodes carried in notifications.
const (
	dataOpResponse        = 0x00 // battery voltage, app version, ID
	dataOpWeight          = 0x01
	dataOpLowPowerWarning = 0x04
)

// Control is a decoded control-characteristic write.
type Control struct {
	Opcode byte
	Weight float32 // AddCalibrationPoint payload
}

func (c Control) String() string {
	switch c.Opcode {
	case OpTare:
		return "Tare"
	case OpStartMeasurement:
		return "StartMeasurement"
	case OpStopMeasurement:
		return "StopMeasurement"
	case OpAddCalibrationPoint:
		return fmt.Sprintf("AddCalibrationPoint: %v", c.Weight)
	case OpSaveCalibration:
		return "SaveCalibration"
	case OpGetAppVersion:
		return "GetAppVersion"
	case OpShutdown:
		return "Shutdown"
	case OpSampleBattery:
		return "SampleBattery"
	case OpGetProgressorID:
		return "GetProgressorID"
	default:
		return fmt.Sprintf("Unknown (0x%02X)", c.Opcode)
	}
}

// ParseControl decodes a control-characteristic write. AddCalibrationPoint
// carries a little-endian f32; the length byte between opcode and payload
// may be omitted by the peer.
func ParseControl(data []byte) (Control, error) {
	if len(data) < 1 || len(data) > 6 {
		return Control{}, fmt.Errorf("control payload size out of range: %d", len(data))
	}
	opcode := data[0]
	if opcode != OpAddCalibrationPoint {
		return Control{Opcode: opcode}, nil
	}

	var raw []byte
	switch len(data) {
	case 5:
		raw = data[1:5]
	case 6:
		raw = data[2:6]
	default:
		return Control{}, fmt.Errorf("invalid calibration point payload: % X", data)
	}
	weight := math.Float32frombits(binary.LittleEndian.Uint32(raw))
	return Control{Opcode: opcode, Weight: weight}, nil
}

// Data notifications are {opcode u8, length u8, payload}.

// EncodeWeight encodes one weight sample: f32 LE weight followed by the
// elapsed time since measurement start in µs, u32 LE.
func EncodeWeight(weight float32, elapsed time.Duration) []byte {
	buf := make([]byte, 10)
	buf[0] = dataOpWeight
	buf[1] = 8
	binary.LittleEndian.PutUint32(buf[2:6], math.Float32bits(weight))
	binary.LittleEndian.PutUint32(buf[6:10], uint32(elapsed.Microseconds()))
	return buf
}

// EncodeBatteryVoltage encodes a SampleBattery response in millivolts.
func EncodeBatteryVoltage(mv uint32) []byte {
	buf := make([]byte, 6)
	buf[0] = dataOpResponse
	buf[1] = 4
	binary.LittleEndian.PutUint32(buf[2:6], mv)
	return buf
}

// EncodeAppVersion encodes a GetAppVersion response.
func EncodeAppVersion(version string) []byte {
	buf := make([]byte, 2+len(version))
	buf[0] = dataOpResponse
	buf[1] = byte(len(version))
	copy(buf[2:], version)
	return buf
}

// EncodeProgressorID encodes a GetProgressorID response.
func EncodeProgressorID(id uint32) []byte {
	buf := make([]byte, 6)
	buf[0] = dataOpResponse
	buf[1] = 4
	binary.LittleEndian.PutUint32(buf[2:6], id)
	return buf
}

// EncodeLowPowerWarning encodes the zero-payload low power warning.
func EncodeLowPowerWarning() []byte {
	return []byte{dataOpLowPowerWarning, 0}
}
