package ble

import (
	"fmt"
	"log"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/kvistgaard/gripforce/pkg/measure"
)

// AppVersion is reported in response to GetAppVersion.
const AppVersion = "1.2.3.4"

// Sender enqueues measurement commands. *measure.Task satisfies it.
type Sender interface {
	TrySend(measure.Command) bool
}

// Service runs the Progressor GATT service on the default adapter.
type Service struct {
	name   string
	sender Sender
	id     uint32

	adapter *bluetooth.Adapter
	data    bluetooth.Characteristic
}

// NewService returns a service advertised under name. id is reported in
// response to GetProgressorID.
func NewService(name string, id uint32, sender Sender) *Service {
	return &Service{
		name:    name,
		sender:  sender,
		id:      id,
		adapter: bluetooth.DefaultAdapter,
	}
}

// Start enables the adapter, registers the service and begins advertising.
// It returns once the service is up; the BLE stack serves connections on
// its own goroutines.
func (s *Service) Start() error {
	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE stack: %w", err)
	}

	serviceUUID, err := bluetooth.ParseUUID(ServiceUUID)
	if err != nil {
		return fmt.Errorf("failed to parse service UUID: %w", err)
	}
	dataUUID, err := bluetooth.ParseUUID(DataCharUUID)
	if err != nil {
		return fmt.Errorf("failed to parse data UUID: %w", err)
	}
	controlUUID, err := bluetooth.ParseUUID(ControlCharUUID)
	if err != nil {
		return fmt.Errorf("failed to parse control UUID: %w", err)
	}

	err = s.adapter.AddService(&bluetooth.Service{
		UUID: serviceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &s.data,
				UUID:   dataUUID,
				Flags:  bluetooth.CharacteristicNotifyPermission,
			},
			{
				UUID: controlUUID,
				Flags: bluetooth.CharacteristicWritePermission |
					bluetooth.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					s.onControlWrite(value)
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to add GATT service: %w", err)
	}

	adv := s.adapter.DefaultAdvertisement()
	err = adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    s.name,
		ServiceUUIDs: []bluetooth.UUID{serviceUUID},
	})
	if err != nil {
		return fmt.Errorf("failed to configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("failed to start advertising: %w", err)
	}

	log.Printf("ble: advertising as %q", s.name)
	return nil
}

func (s *Service) onControlWrite(value []byte) {
	ctrl, err := ParseControl(value)
	if err != nil {
		log.Printf("ble: bad control write: %v", err)
		return
	}
	log.Printf("ble: control write: %s", ctrl)

	switch ctrl.Opcode {
	case OpTare:
		s.send(measure.Tare{})

	case OpStartMeasurement:
		s.send(measure.StartTared(s.notifyWeight))

	case OpStopMeasurement:
		s.send(measure.StopSampling{})

	case OpAddCalibrationPoint:
		s.send(measure.AddCalibrationPoint{Weight: ctrl.Weight})

	case OpSaveCalibration:
		s.send(measure.SaveCalibration{})

	case OpSampleBattery:
		s.notify(EncodeBatteryVoltage(batteryVoltageMV()))

	case OpGetAppVersion:
		s.notify(EncodeAppVersion(AppVersion))

	case OpGetProgressorID:
		s.notify(EncodeProgressorID(s.id))

	case OpShutdown:
		// The peer disconnects after this; nothing to do on our side.

	default:
		// Unknown opcodes are logged above and ignored.
	}
}

// batteryVoltageMV reports the supply voltage. Hosted builds have no
// battery ADC; report a healthy nominal reading.
func batteryVoltageMV() uint32 { return 3000 }

func (s *Service) send(cmd measure.Command) {
	if !s.sender.TrySend(cmd) {
		log.Printf("ble: failed to send %s", cmd)
	}
}

func (s *Service) notifyWeight(elapsed time.Duration, weight float32) {
	s.notify(EncodeWeight(weight, elapsed))
}

func (s *Service) notify(frame []byte) {
	if _, err := s.data.Write(frame); err != nil {
		log.Printf("ble: notify failed: %v", err)
	}
}
