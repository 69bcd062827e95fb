package weight

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/crimpworks/hangboard/pkg/nvm"
)

// Engine owns the calibration state: the point-capture session, the active
// mapping, and the handle to the persistent store. The active mapping is
// swapped atomically so the conversion path never observes a half-updated
// mapping, and the swap happens only after the store confirms the record is
// durable.
type Engine struct {
	store *nvm.Store
	log   *logrus.Entry

	mapping atomic.Pointer[Mapping]

	mu        sync.Mutex // guards session and latest
	session   Session
	latest    int32
	hasLatest bool

	saveMu sync.Mutex // single-flights Save
}

// NewEngine creates an engine and loads any stored mapping. A blank or
// corrupt store leaves the engine uncalibrated; only unexpected read errors
// are reported, and even those are non-fatal to the caller by design.
func NewEngine(store *nvm.Store) *Engine {
	e := &Engine{
		store: store,
		log:   logrus.WithField("component", "calibration"),
	}
	rec, err := store.Load()
	switch {
	case err != nil:
		e.log.WithError(err).Warn("could not read calibration store, starting uncalibrated")
	case rec == nil:
		e.log.Info("no stored calibration, starting uncalibrated")
	default:
		e.mapping.Store(&Mapping{ZeroRaw: rec.ZeroRaw, Gradient: rec.Gradient})
		e.log.WithFields(logrus.Fields{
			"zeroRaw":  rec.ZeroRaw,
			"gradient": rec.Gradient,
		}).Info("loaded calibration")
	}
	return e
}

// Observe records the latest filtered count. Called by the pipeline on
// every filter output.
func (e *Engine) Observe(filtered int32) {
	e.mu.Lock()
	e.latest = filtered
	e.hasLatest = true
	e.mu.Unlock()
}

// Latest returns the most recent filtered count, if any has been produced.
func (e *Engine) Latest() (int32, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latest, e.hasLatest
}

// AddPoint captures the current filtered count against the operator's
// reference weight. Zero and non-zero references are handled identically;
// which one acts as the tare anchor is decided when the mapping is derived.
func (e *Engine) AddPoint(reference float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasLatest {
		return ErrNoSample
	}
	p := Point{Raw: e.latest, Reference: reference}
	e.session.Add(p)
	e.log.WithFields(logrus.Fields{
		"raw":       p.Raw,
		"reference": p.Reference,
		"points":    e.session.Len(),
	}).Info("calibration point captured")
	return nil
}

// Save derives the mapping from the session, persists it, and only then
// swaps it in as the active mapping. If the flash write fails the active
// mapping is left untouched: an in-memory update that raced ahead of a
// failed write would report a calibration that cannot survive a reset.
func (e *Engine) Save() error {
	if !e.saveMu.TryLock() {
		return ErrSaveBusy
	}
	defer e.saveMu.Unlock()

	e.mu.Lock()
	m, err := e.session.Mapping()
	e.mu.Unlock()
	if err != nil {
		return err
	}

	if err := e.store.Commit(m.ZeroRaw, m.Gradient); err != nil {
		e.log.WithError(err).Error("calibration commit failed")
		return err
	}
	e.mapping.Store(&m)
	e.log.WithFields(logrus.Fields{
		"zeroRaw":  m.ZeroRaw,
		"gradient": m.Gradient,
	}).Info("calibration saved")
	return nil
}

// Convert maps a filtered count to kilograms. ok is false while no mapping
// has ever been established, in which case the weight is NaN: the caller
// must surface the uncalibrated state distinctly instead of streaming a
// fabricated zero.
func (e *Engine) Convert(filtered int32) (kg float64, ok bool) {
	m := e.mapping.Load()
	if m == nil {
		return math.NaN(), false
	}
	return m.Convert(filtered), true
}

// Calibrated reports whether an active mapping exists.
func (e *Engine) Calibrated() bool { return e.mapping.Load() != nil }
