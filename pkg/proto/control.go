package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrMalformedFrame is returned when a frame's payload length does not
	// match what its opcode requires.
	ErrMalformedFrame = errors.New("malformed control frame")

	// ErrUnknownOpcode is returned for opcodes outside the documented set.
	ErrUnknownOpcode = errors.New("unknown control opcode")
)

// FloatOrder selects how the 4-byte reference weight in an
// AddCalibrationPoint payload is decoded. Different controlling applications
// disagree on the byte order of this field, so it is configurable rather
// than hard-coded.
type FloatOrder int

const (
	// OrderLittle decodes the payload as little-endian IEEE-754.
	OrderLittle FloatOrder = iota
	// OrderBig decodes the payload as big-endian IEEE-754.
	OrderBig
	// OrderAuto decodes little-endian first and retries big-endian when the
	// result is not a plausible weight for the configured capacity.
	OrderAuto
)

func (o FloatOrder) String() string {
	switch o {
	case OrderLittle:
		return "little"
	case OrderBig:
		return "big"
	case OrderAuto:
		return "auto"
	default:
		return fmt.Sprintf("FloatOrder(%d)", int(o))
	}
}

// ParseFloatOrder maps a configuration string to a FloatOrder.
func ParseFloatOrder(s string) (FloatOrder, error) {
	switch s {
	case "little", "":
		return OrderLittle, nil
	case "big":
		return OrderBig, nil
	case "auto":
		return OrderAuto, nil
	}
	return OrderLittle, fmt.Errorf("unrecognized byte order %q", s)
}

// Command is a decoded control frame.
type Command interface {
	Opcode() byte
}

type simpleCommand struct{ op byte }

func (c simpleCommand) Opcode() byte { return c.op }

// Tare zeroes the live weight output.
type Tare struct{ simpleCommand }

// StartMeasurement begins streaming weight notifications.
type StartMeasurement struct{ simpleCommand }

// StopMeasurement stops streaming weight notifications.
type StopMeasurement struct{ simpleCommand }

// StartPeakRFD is recognized for wire compatibility but not supported.
type StartPeakRFD struct {
	simpleCommand
	Series bool
}

// AddCalibrationPoint records a calibration point at the current filtered
// reading, declared by the operator to weigh Reference kilograms.
type AddCalibrationPoint struct {
	simpleCommand
	Reference float32
}

// SaveCalibration derives and persists the calibration mapping.
type SaveCalibration struct{ simpleCommand }

// GetAppVersion requests the firmware version string.
type GetAppVersion struct{ simpleCommand }

// GetErrorInfo requests the most recent recorded error.
type GetErrorInfo struct{ simpleCommand }

// ClearErrorInfo resets the recorded error.
type ClearErrorInfo struct{ simpleCommand }

// Shutdown asks the device to power down.
type Shutdown struct{ simpleCommand }

// SampleBattery requests the battery voltage in millivolts.
type SampleBattery struct{ simpleCommand }

// GetProgressorID requests the device identifier.
type GetProgressorID struct{ simpleCommand }

// DecodeControl decodes a control frame. order and capacityKg only affect
// the AddCalibrationPoint payload; capacityKg bounds the plausibility check
// used by OrderAuto.
func DecodeControl(data []byte, order FloatOrder, capacityKg float32) (Command, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: empty frame", ErrMalformedFrame)
	}
	op := data[0]
	payload := data[1:]

	// AddCalibrationPoint is the only command with a payload.
	if op != CmdAddCalibrationPoint && len(payload) != 0 {
		return nil, fmt.Errorf("%w: opcode 0x%02X expects no payload, got %d bytes", ErrMalformedFrame, op, len(payload))
	}

	switch op {
	case CmdTare:
		return Tare{simpleCommand{op}}, nil
	case CmdStartMeasurement:
		return StartMeasurement{simpleCommand{op}}, nil
	case CmdStopMeasurement:
		return StopMeasurement{simpleCommand{op}}, nil
	case CmdStartPeakRFDMeasurement:
		return StartPeakRFD{simpleCommand: simpleCommand{op}}, nil
	case CmdStartPeakRFDSeries:
		return StartPeakRFD{simpleCommand: simpleCommand{op}, Series: true}, nil
	case CmdAddCalibrationPoint:
		ref, err := decodeReference(payload, order, capacityKg)
		if err != nil {
			return nil, err
		}
		return AddCalibrationPoint{simpleCommand{op}, ref}, nil
	case CmdSaveCalibration:
		return SaveCalibration{simpleCommand{op}}, nil
	case CmdGetAppVersion:
		return GetAppVersion{simpleCommand{op}}, nil
	case CmdGetErrorInfo:
		return GetErrorInfo{simpleCommand{op}}, nil
	case CmdClearErrorInfo:
		return ClearErrorInfo{simpleCommand{op}}, nil
	case CmdShutdown:
		return Shutdown{simpleCommand{op}}, nil
	case CmdSampleBattery:
		return SampleBattery{simpleCommand{op}}, nil
	case CmdGetProgressorID:
		return GetProgressorID{simpleCommand{op}}, nil
	}
	return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownOpcode, op)
}

// decodeReference extracts the 4-byte reference weight. Some controlling
// applications send [opcode, f32] and others [opcode, length, f32]; both
// forms are accepted, matching the original firmware.
func decodeReference(payload []byte, order FloatOrder, capacityKg float32) (float32, error) {
	var raw []byte
	switch len(payload) {
	case 4:
		raw = payload
	case 5:
		if payload[0] != 4 {
			return 0, fmt.Errorf("%w: calibration payload length byte %d", ErrMalformedFrame, payload[0])
		}
		raw = payload[1:]
	default:
		return 0, fmt.Errorf("%w: calibration payload of %d bytes", ErrMalformedFrame, len(payload))
	}

	le := math.Float32frombits(binary.LittleEndian.Uint32(raw))
	be := math.Float32frombits(binary.BigEndian.Uint32(raw))

	switch order {
	case OrderLittle:
		return le, nil
	case OrderBig:
		return be, nil
	}
	// Auto: prefer little-endian, fall back when the decoded value is not a
	// plausible reference weight for this scale.
	if plausibleReference(le, capacityKg) || !plausibleReference(be, capacityKg) {
		return le, nil
	}
	return be, nil
}

// plausibleReference accepts exact zero (the tare point) and anything from
// one gram up to the scale's capacity. Decoding a float with the wrong byte
// order typically yields a denormal or an enormous value, both of which
// fall outside this band.
func plausibleReference(v, capacityKg float32) bool {
	if v != v { // NaN
		return false
	}
	if v == 0 {
		return true
	}
	return v >= 0.001 && v <= capacityKg
}
