// Package hangboard is the core of a battery-powered BLE force sensor
// speaking the Progressor-compatible wire protocol. It wires the sampling
// pipeline (median filter, two-point calibration, tare) to a transport
// adapter and dispatches the command protocol.
package hangboard

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/crimpworks/hangboard/pkg/config"
	"github.com/crimpworks/hangboard/pkg/nvm"
	"github.com/crimpworks/hangboard/pkg/proto"
	"github.com/crimpworks/hangboard/pkg/weight"
)

// BatteryReader reports the battery voltage in millivolts. It stands in
// for the battery-measurement collaborator, which is outside this core.
type BatteryReader func() (uint32, error)

// Options configure a Device.
type Options struct {
	Config    config.Config
	Source    weight.Source
	Store     *nvm.Store
	Transport Transport

	// Battery is optional; without it SampleBattery reports failure and
	// the low-power warning is never emitted.
	Battery BatteryReader
	// OnShutdown is invoked for the Shutdown command; power sequencing
	// itself is outside this core. Optional.
	OnShutdown func()
}

// Device is the protocol engine: it decodes control frames, dispatches to
// the calibration engine and measurement pipeline, and encodes outgoing
// data frames. Its streaming state is just Idle or Streaming; it never
// halts on peer-caused errors.
type Device struct {
	cfg      config.Config
	order    proto.FloatOrder
	engine   *weight.Engine
	pipeline *weight.Pipeline
	tarer    *weight.Tarer
	tr       Transport
	notifier *notifier
	battery  BatteryReader
	shutdown func()
	log      *logrus.Entry

	errMu   sync.Mutex
	lastErr string
}

// New assembles a device from its collaborators.
func New(opts Options) (*Device, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	order, err := proto.ParseFloatOrder(opts.Config.ByteOrder)
	if err != nil {
		return nil, err
	}
	filter, err := weight.NewMedian(opts.Config.MedianWindow)
	if err != nil {
		return nil, err
	}

	d := &Device{
		cfg:      opts.Config,
		order:    order,
		engine:   weight.NewEngine(opts.Store),
		tarer:    &weight.Tarer{},
		tr:       opts.Transport,
		notifier: newNotifier(),
		battery:  opts.Battery,
		shutdown: opts.OnShutdown,
		log:      logrus.WithField("component", "device"),
	}
	d.pipeline = weight.NewPipeline(opts.Source, filter, d.engine, d.tarer, d.onMeasurement)
	return d, nil
}

// Run drives the sampling pipeline and the notification sender until ctx
// is done. Control frames are handled on the transport's receive path via
// HandleFrame.
func (d *Device) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.notifier.run(ctx, d.tr)
	}()
	d.pipeline.Run(ctx)
	wg.Wait()
}

// HandleFrame processes one received control frame. Malformed frames and
// unknown opcodes are logged and dropped; failures of well-formed commands
// are answered with an explicit CommandFailed frame. No frame, however
// hostile, may stop the sampling loop.
func (d *Device) HandleFrame(frame []byte) {
	d.warnIfLowBattery()

	cmd, err := proto.DecodeControl(frame, d.order, d.cfg.CapacityKg)
	if err != nil {
		d.log.WithError(err).Warn("dropping control frame")
		return
	}
	d.log.WithField("opcode", cmd.Opcode()).Debug("control frame")

	switch c := cmd.(type) {
	case proto.Tare:
		if err := d.pipeline.Tare(); err != nil {
			d.fail(c.Opcode(), err)
		}
	case proto.StartMeasurement:
		d.pipeline.StartStreaming()
	case proto.StopMeasurement:
		d.pipeline.StopStreaming()
	case proto.StartPeakRFD:
		d.log.Warn("peak RFD measurement not supported")
	case proto.AddCalibrationPoint:
		if err := d.engine.AddPoint(c.Reference); err != nil {
			d.fail(c.Opcode(), err)
		}
	case proto.SaveCalibration:
		if err := d.engine.Save(); err != nil {
			d.fail(c.Opcode(), err)
		}
	case proto.GetAppVersion:
		d.respond(proto.AppVersionFrame(d.cfg.AppVersion))
	case proto.GetErrorInfo:
		d.respond(proto.ErrorInfoFrame(d.errorInfo()))
	case proto.ClearErrorInfo:
		d.setErrorInfo("")
	case proto.Shutdown:
		if d.shutdown != nil {
			d.shutdown()
		}
	case proto.SampleBattery:
		d.respondBattery(c.Opcode())
	case proto.GetProgressorID:
		d.respond(proto.IDFrame(d.cfg.ProgressorID))
	}
}

// HandleDisconnect is invoked by transports when the peer goes away.
// Streaming stops; calibration state and any in-flight save are untouched,
// since calibration persistence is independent of a live connection.
func (d *Device) HandleDisconnect() {
	d.log.Info("peer disconnected")
	d.pipeline.StopStreaming()
}

// onMeasurement frames a converted weight and queues it with latest-wins
// semantics. Uncalibrated readings are streamed as NaN so the peer sees a
// distinctly implausible value instead of a fabricated zero.
func (d *Device) onMeasurement(m weight.Measurement) {
	kg := float32(m.Kg)
	if !m.Calibrated {
		kg = float32(math.NaN())
	}
	micros := m.Elapsed.Microseconds()
	d.notifier.offer(proto.WeightFrame(kg, uint32(micros)))
}

// respond sends a command response directly; command responses are rare
// and not subject to the latest-wins telemetry policy.
func (d *Device) respond(frame []byte) {
	if err := d.tr.Notify(frame); err != nil {
		d.log.WithError(err).Warn("response not delivered")
	}
}

func (d *Device) respondBattery(op byte) {
	if d.battery == nil {
		d.fail(op, errors.New("no battery reader"))
		return
	}
	mv, err := d.battery()
	if err != nil {
		d.fail(op, err)
		return
	}
	d.respond(proto.BatteryFrame(mv))
}

// fail records the error and reports it to the peer. Calibration errors
// are operator-visible: a silent failure would read as "calibration did
// nothing" with no diagnosis path.
func (d *Device) fail(op byte, err error) {
	d.log.WithError(err).WithField("opcode", op).Warn("command failed")
	d.setErrorInfo(err.Error())
	d.respond(proto.CommandFailedFrame(op, failCode(err)))
}

func failCode(err error) byte {
	switch {
	case errors.Is(err, weight.ErrNoSample):
		return proto.FailCodeNoSample
	case errors.Is(err, weight.ErrInsufficientPoints):
		return proto.FailCodeInsufficient
	case errors.Is(err, weight.ErrDegenerateCalibration):
		return proto.FailCodeDegenerate
	case errors.Is(err, weight.ErrSaveBusy), errors.Is(err, nvm.ErrCommitInFlight):
		return proto.FailCodeBusy
	case errors.Is(err, weight.ErrUncalibrated):
		return proto.FailCodeUncalibrated
	default:
		return proto.FailCodeStorage
	}
}

func (d *Device) warnIfLowBattery() {
	if d.battery == nil {
		return
	}
	mv, err := d.battery()
	if err != nil || mv >= d.cfg.LowBatteryMillivolts {
		return
	}
	d.log.WithField("millivolts", mv).Warn("battery low")
	d.respond(proto.LowPowerFrame())
}

func (d *Device) setErrorInfo(msg string) {
	d.errMu.Lock()
	d.lastErr = msg
	d.errMu.Unlock()
}

func (d *Device) errorInfo() string {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.lastErr
}
