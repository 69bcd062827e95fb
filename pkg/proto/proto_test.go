package proto

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSimpleCommands(t *testing.T) {
	tests := []struct {
		name   string
		opcode byte
		want   Command
	}{
		{"tare", CmdTare, Tare{}},
		{"start", CmdStartMeasurement, StartMeasurement{}},
		{"stop", CmdStopMeasurement, StopMeasurement{}},
		{"save", CmdSaveCalibration, SaveCalibration{}},
		{"version", CmdGetAppVersion, GetAppVersion{}},
		{"errorInfo", CmdGetErrorInfo, GetErrorInfo{}},
		{"clearError", CmdClearErrorInfo, ClearErrorInfo{}},
		{"shutdown", CmdShutdown, Shutdown{}},
		{"battery", CmdSampleBattery, SampleBattery{}},
		{"id", CmdGetProgressorID, GetProgressorID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := DecodeControl([]byte{tt.opcode}, OrderLittle, 150)
			require.NoError(t, err)
			assert.IsType(t, tt.want, cmd)
			assert.Equal(t, tt.opcode, cmd.Opcode())
		})
	}
}

func TestDecodeEmptyFrame(t *testing.T) {
	_, err := DecodeControl(nil, OrderLittle, 150)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeUnknownOpcode(t *testing.T) {
	_, err := DecodeControl([]byte{0x42}, OrderLittle, 150)
	assert.ErrorIs(t, err, ErrUnknownOpcode)
}

func TestDecodeUnexpectedPayload(t *testing.T) {
	_, err := DecodeControl([]byte{CmdTare, 0x01}, OrderLittle, 150)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestDecodeAddCalibrationPoint(t *testing.T) {
	le := make([]byte, 4)
	binary.LittleEndian.PutUint32(le, math.Float32bits(50))

	t.Run("bare float form", func(t *testing.T) {
		cmd, err := DecodeControl(append([]byte{CmdAddCalibrationPoint}, le...), OrderLittle, 150)
		require.NoError(t, err)
		assert.Equal(t, float32(50), cmd.(AddCalibrationPoint).Reference)
	})

	t.Run("length-prefixed form", func(t *testing.T) {
		frame := append([]byte{CmdAddCalibrationPoint, 4}, le...)
		cmd, err := DecodeControl(frame, OrderLittle, 150)
		require.NoError(t, err)
		assert.Equal(t, float32(50), cmd.(AddCalibrationPoint).Reference)
	})

	t.Run("wrong payload length", func(t *testing.T) {
		// A 3-byte payload must not be partially interpreted as a float.
		_, err := DecodeControl([]byte{CmdAddCalibrationPoint, 1, 2, 3}, OrderLittle, 150)
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("bad length byte", func(t *testing.T) {
		frame := append([]byte{CmdAddCalibrationPoint, 3}, le...)
		_, err := DecodeControl(frame, OrderLittle, 150)
		assert.ErrorIs(t, err, ErrMalformedFrame)
	})
}

func TestDecodeReferenceByteOrder(t *testing.T) {
	le := make([]byte, 4)
	binary.LittleEndian.PutUint32(le, math.Float32bits(50))
	be := make([]byte, 4)
	binary.BigEndian.PutUint32(be, math.Float32bits(50))

	decode := func(t *testing.T, payload []byte, order FloatOrder) float32 {
		t.Helper()
		cmd, err := DecodeControl(append([]byte{CmdAddCalibrationPoint}, payload...), order, 150)
		require.NoError(t, err)
		return cmd.(AddCalibrationPoint).Reference
	}

	assert.Equal(t, float32(50), decode(t, le, OrderLittle))
	assert.Equal(t, float32(50), decode(t, be, OrderBig))

	// Auto accepts either order by rejecting implausible decodes.
	assert.Equal(t, float32(50), decode(t, le, OrderAuto))
	assert.Equal(t, float32(50), decode(t, be, OrderAuto))
	assert.Equal(t, float32(0), decode(t, []byte{0, 0, 0, 0}, OrderAuto))
}

func TestWeightFrame(t *testing.T) {
	frame := WeightFrame(12.5, 1000000)
	require.Len(t, frame, 10)
	assert.Equal(t, DataWeight, frame[0])
	assert.Equal(t, byte(8), frame[1])

	kg, us, ok := DecodeWeightFrame(frame)
	require.True(t, ok)
	assert.Equal(t, float32(12.5), kg)
	assert.Equal(t, uint32(1000000), us)
}

func TestDecodeWeightFrameRejectsOthers(t *testing.T) {
	_, _, ok := DecodeWeightFrame(BatteryFrame(3700))
	assert.False(t, ok)
	_, _, ok = DecodeWeightFrame([]byte{DataWeight, 8, 0})
	assert.False(t, ok)
}

func TestIDFrameTrimsTrailingZeros(t *testing.T) {
	frame := IDFrame(42)
	assert.Equal(t, []byte{DataResponse, 1, 42}, frame)

	frame = IDFrame(0x0102)
	assert.Equal(t, []byte{DataResponse, 2, 0x02, 0x01}, frame)
}

func TestCommandFailedFrame(t *testing.T) {
	frame := CommandFailedFrame(CmdSaveCalibration, FailCodeDegenerate)
	assert.Equal(t, []byte{DataCommandFailed, 2, CmdSaveCalibration, FailCodeDegenerate}, frame)
}

func TestAppVersionFrameTruncates(t *testing.T) {
	frame := AppVersionFrame("0123456789abcdefgh")
	assert.Equal(t, byte(MaxDataPayload), frame[1])
	assert.Len(t, frame, 2+MaxDataPayload)
}
