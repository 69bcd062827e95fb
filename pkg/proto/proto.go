// Package proto implements the Progressor-compatible control and data frame
// codec used over the sensor's wireless link.
//
// Control frames travel from the peer to the device and consist of a single
// opcode byte followed by a fixed, opcode-defined payload. Data frames travel
// from the device to the peer and carry an opcode byte, a length byte, and up
// to MaxDataPayload value bytes.
//
// Wire-boundary error policy: frames that cannot be decoded (unknown opcode,
// payload length mismatch) are reported to the caller as ErrUnknownOpcode or
// ErrMalformedFrame and are expected to be logged and dropped. Failures of
// well-formed commands (e.g. saving a degenerate calibration) are answered
// with an explicit CommandFailed (0x05) data frame so that the controlling
// application can surface the problem to the operator.
package proto

// Control opcodes written by the peer to the control characteristic.
const (
	CmdTare                    byte = 0x64
	CmdStartMeasurement        byte = 0x65
	CmdStopMeasurement         byte = 0x66
	CmdStartPeakRFDMeasurement byte = 0x67
	CmdStartPeakRFDSeries      byte = 0x68
	CmdAddCalibrationPoint     byte = 0x69
	CmdSaveCalibration         byte = 0x6A
	CmdGetAppVersion           byte = 0x6B
	CmdGetErrorInfo            byte = 0x6C
	CmdClearErrorInfo          byte = 0x6D
	CmdShutdown                byte = 0x6E
	CmdSampleBattery           byte = 0x6F
	CmdGetProgressorID         byte = 0x70
)

// Data opcodes notified by the device on the data characteristic.
const (
	DataResponse        byte = 0x00
	DataWeight          byte = 0x01
	DataLowPowerWarning byte = 0x04
	DataCommandFailed   byte = 0x05
)

// MaxDataPayload is the largest value field carried by a data frame.
const MaxDataPayload = 12

// Error codes carried in the second value byte of a CommandFailed frame.
const (
	FailCodeNoSample     byte = 0x01
	FailCodeInsufficient byte = 0x02
	FailCodeDegenerate   byte = 0x03
	FailCodeStorage      byte = 0x04
	FailCodeBusy         byte = 0x05
	FailCodeUncalibrated byte = 0x06
)
