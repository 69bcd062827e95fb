// Package ble exposes the device over Bluetooth Low Energy as a
// Progressor-compatible GATT peripheral: a control characteristic the peer
// writes command frames to, and a data characteristic the device notifies
// weight and response frames on.
package ble

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"github.com/crimpworks/hangboard"
)

var (
	// ServiceUUID identifies the Progressor service.
	ServiceUUID, _ = bluetooth.ParseUUID("7e4e1701-1ea6-40c9-9dcc-13d34ffead57")
	// DataUUID is the notify characteristic carrying data frames.
	DataUUID, _ = bluetooth.ParseUUID("7e4e1702-1ea6-40c9-9dcc-13d34ffead57")
	// ControlUUID is the write characteristic receiving control frames.
	ControlUUID, _ = bluetooth.ParseUUID("7e4e1703-1ea6-40c9-9dcc-13d34ffead57")
)

// Transport is a BLE peripheral implementing hangboard.Transport.
type Transport struct {
	adapter  *bluetooth.Adapter
	dataChar bluetooth.Characteristic
	log      *logrus.Entry
	closed   atomic.Bool
}

var _ hangboard.Transport = (*Transport)(nil)

// Start enables the adapter, registers the GATT service and begins
// advertising under the given name. Received control writes are forwarded
// to handler.
func Start(name string, handler hangboard.FrameHandler) (*Transport, error) {
	t := &Transport{
		adapter: bluetooth.DefaultAdapter,
		log:     logrus.WithField("component", "ble"),
	}

	if err := t.adapter.Enable(); err != nil {
		return nil, err
	}

	err := t.adapter.AddService(&bluetooth.Service{
		UUID: ServiceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &t.dataChar,
				UUID:   DataUUID,
				Flags:  bluetooth.CharacteristicNotifyPermission | bluetooth.CharacteristicReadPermission,
			},
			{
				UUID: ControlUUID,
				Flags: bluetooth.CharacteristicWritePermission |
					bluetooth.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					if offset != 0 || len(value) == 0 {
						t.log.Warnf("ignoring control write at offset %d (%d bytes)", offset, len(value))
						return
					}
					frame := make([]byte, len(value))
					copy(frame, value)
					handler(frame)
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	adv := t.adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    name,
		ServiceUUIDs: []bluetooth.UUID{ServiceUUID},
	}); err != nil {
		return nil, err
	}
	if err := adv.Start(); err != nil {
		return nil, err
	}
	t.log.WithField("name", name).Info("advertising")
	return t, nil
}

// Notify pushes a data frame to the subscribed peer.
func (t *Transport) Notify(frame []byte) error {
	if t.closed.Load() {
		return hangboard.ErrNotConnected
	}
	if _, err := t.dataChar.Write(frame); err != nil {
		// The stack reports delivery problems as opaque errors; without a
		// subscribed peer there is nobody to notify.
		return hangboard.ErrNotConnected
	}
	return nil
}

// Close stops accepting traffic. Advertising teardown is left to the
// process exiting; the tinygo stack has no portable stop-advertising call
// on all backends.
func (t *Transport) Close() error {
	t.closed.Store(true)
	return nil
}
