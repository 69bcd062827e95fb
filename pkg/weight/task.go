package weight

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Measurement is one converted weight reading handed to the protocol layer
// while streaming is active.
type Measurement struct {
	Kg         float64
	Calibrated bool
	Elapsed    time.Duration
}

// Pipeline runs the sampling loop: raw samples are filtered, observed by
// the calibration engine, and (while streaming) converted, tared and
// emitted in arrival order. The loop never blocks on the consumer; the
// emit callback must not block.
type Pipeline struct {
	source Source
	filter *Median
	engine *Engine
	tarer  *Tarer
	emit   func(Measurement)
	log    *logrus.Entry

	streaming atomic.Bool
	mu        sync.Mutex // guards start
	start     time.Time
}

// NewPipeline wires the pipeline stages. emit may be nil, in which case
// streaming output is discarded.
func NewPipeline(source Source, filter *Median, engine *Engine, tarer *Tarer, emit func(Measurement)) *Pipeline {
	if emit == nil {
		emit = func(Measurement) {}
	}
	return &Pipeline{
		source: source,
		filter: filter,
		engine: engine,
		tarer:  tarer,
		emit:   emit,
		log:    logrus.WithField("component", "pipeline"),
	}
}

// Run consumes samples until ctx is done. Samples are processed in arrival
// order with no duplication; the pump discards stale samples if this loop
// ever falls behind the sampling cadence.
func (p *Pipeline) Run(ctx context.Context) {
	p.log.Debug("pipeline started")
	defer p.log.Debug("pipeline stopped")
	for s := range Pump(ctx, p.source) {
		filtered, ok := p.filter.Push(s.Count)
		if !ok {
			continue // cold start, window not yet full
		}
		p.engine.Observe(filtered)

		if !p.streaming.Load() {
			continue
		}
		kg, calibrated := p.engine.Convert(filtered)
		if calibrated {
			kg = p.tarer.Apply(kg)
		}
		p.emit(Measurement{
			Kg:         kg,
			Calibrated: calibrated,
			Elapsed:    s.At.Sub(p.startTime()),
		})
	}
}

// StartStreaming enables measurement output. Starting while already
// streaming is idempotent and does not reset the timestamp base.
func (p *Pipeline) StartStreaming() {
	if p.streaming.Swap(true) {
		return
	}
	p.mu.Lock()
	p.start = time.Now()
	p.mu.Unlock()
	p.log.Info("streaming started")
}

// StopStreaming disables measurement output.
func (p *Pipeline) StopStreaming() {
	if p.streaming.Swap(false) {
		p.log.Info("streaming stopped")
	}
}

// Streaming reports whether measurement output is active.
func (p *Pipeline) Streaming() bool { return p.streaming.Load() }

// Tare captures the current converted weight as the tare offset. The
// capture races with the sampling cadence by design: the operator holds the
// load steady and any recent representative reading is acceptable.
func (p *Pipeline) Tare() error {
	raw, ok := p.engine.Latest()
	if !ok {
		return ErrNoSample
	}
	kg, calibrated := p.engine.Convert(raw)
	if !calibrated {
		return ErrUncalibrated
	}
	p.tarer.SetOffset(kg)
	p.log.WithField("offsetKg", kg).Info("tared")
	return nil
}

func (p *Pipeline) startTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.start
}
