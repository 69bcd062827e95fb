// Package serialio carries protocol frames over a serial port, for bench
// setups where the sensor hangs off a UART dongle instead of a radio.
package serialio

import (
	"io"
	"sync/atomic"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	goserial "github.com/tarm/serial"

	"github.com/crimpworks/hangboard"
)

// Transport implements hangboard.Transport over a serial port.
type Transport struct {
	port   *goserial.Port
	log    *logrus.Entry
	closed atomic.Bool
}

var _ hangboard.Transport = (*Transport)(nil)

// Open opens the port and starts the receive loop, forwarding decoded
// control frames to handler.
func Open(portName string, baud int, handler hangboard.FrameHandler) (*Transport, error) {
	port, err := goserial.OpenPort(&goserial.Config{
		Name:        portName,
		Baud:        baud,
		Parity:      goserial.ParityNone,
		Size:        8,
		StopBits:    goserial.Stop1,
		ReadTimeout: 300 * time.Millisecond,
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open serial port %s", portName)
	}
	t := &Transport{
		port: port,
		log:  logrus.WithField("component", "serialio"),
	}
	go t.readLoop(handler)
	return t, nil
}

func (t *Transport) readLoop(handler hangboard.FrameHandler) {
	var sc scanner
	buf := make([]byte, 64)
	for !t.closed.Load() {
		n, err := t.port.Read(buf)
		if err != nil && err != io.EOF {
			if !t.closed.Load() {
				t.log.WithError(err).Warn("serial read failed")
			}
			return
		}
		for _, b := range buf[:n] {
			if frame, ok := sc.feed(b); ok {
				handler(frame)
			}
		}
	}
}

// Notify writes a framed notification to the port.
func (t *Transport) Notify(frame []byte) error {
	if t.closed.Load() {
		return hangboard.ErrNotConnected
	}
	if _, err := t.port.Write(encodeFrame(frame)); err != nil {
		t.log.WithError(err).Debug("serial write failed")
		return hangboard.ErrNotConnected
	}
	return nil
}

// Close shuts the port down.
func (t *Transport) Close() error {
	t.closed.Store(true)
	return t.port.Close()
}
