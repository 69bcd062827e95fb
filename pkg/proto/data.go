package proto

import (
	"encoding/binary"
	"math"
)

// encodeData builds a [opcode, length, value...] data frame. Values longer
// than MaxDataPayload are truncated; the protocol has no continuation
// mechanism.
func encodeData(opcode byte, value []byte) []byte {
	if len(value) > MaxDataPayload {
		value = value[:MaxDataPayload]
	}
	frame := make([]byte, 2+len(value))
	frame[0] = opcode
	frame[1] = byte(len(value))
	copy(frame[2:], value)
	return frame
}

// WeightFrame encodes a streamed weight sample: float32 kilograms and the
// elapsed microseconds since measurement start, both little-endian.
func WeightFrame(weightKg float32, elapsedMicros uint32) []byte {
	value := make([]byte, 8)
	binary.LittleEndian.PutUint32(value[0:4], math.Float32bits(weightKg))
	binary.LittleEndian.PutUint32(value[4:8], elapsedMicros)
	return encodeData(DataWeight, value)
}

// BatteryFrame encodes a battery voltage response in millivolts.
func BatteryFrame(millivolts uint32) []byte {
	value := make([]byte, 4)
	binary.LittleEndian.PutUint32(value, millivolts)
	return encodeData(DataResponse, value)
}

// AppVersionFrame encodes the firmware version string response.
func AppVersionFrame(version string) []byte {
	return encodeData(DataResponse, []byte(version))
}

// ErrorInfoFrame encodes the recorded error string response.
func ErrorInfoFrame(info string) []byte {
	return encodeData(DataResponse, []byte(info))
}

// IDFrame encodes the device identifier, little-endian with trailing zero
// bytes trimmed as the reference protocol does.
func IDFrame(id uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], id)
	n := 8
	for n > 1 && buf[n-1] == 0 {
		n--
	}
	return encodeData(DataResponse, buf[:n])
}

// LowPowerFrame encodes the low-battery warning notification.
func LowPowerFrame() []byte {
	return encodeData(DataLowPowerWarning, nil)
}

// CommandFailedFrame encodes an explicit failure response for a well-formed
// command that could not be carried out. The value holds the request opcode
// and one of the FailCode constants.
func CommandFailedFrame(requestOpcode, failCode byte) []byte {
	return encodeData(DataCommandFailed, []byte{requestOpcode, failCode})
}

// DecodeWeightFrame parses a WeightMeasurement data frame. It is used by
// client-side tooling such as the dongle monitor.
func DecodeWeightFrame(frame []byte) (weightKg float32, elapsedMicros uint32, ok bool) {
	if len(frame) < 10 || frame[0] != DataWeight || frame[1] != 8 {
		return 0, 0, false
	}
	weightKg = math.Float32frombits(binary.LittleEndian.Uint32(frame[2:6]))
	elapsedMicros = binary.LittleEndian.Uint32(frame[6:10])
	return weightKg, elapsedMicros, true
}
