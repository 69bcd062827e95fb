package weight

import (
	"context"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// SimSource is a simulated load cell for development and testing when no
// hardware is attached. It produces a slow random walk around a baseline
// count with Gaussian sensor noise on top, at a fixed cadence.
type SimSource struct {
	interval time.Duration
	baseline float64
	drift    float64
	noise    distuv.Normal
	walk     distuv.Normal
}

// NewSimSource creates a simulated source sampling at hz.
func NewSimSource(hz int) *SimSource {
	if hz <= 0 {
		hz = 80
	}
	return &SimSource{
		interval: time.Second / time.Duration(hz),
		baseline: 120000,
		noise:    distuv.Normal{Mu: 0, Sigma: 40},
		walk:     distuv.Normal{Mu: 0, Sigma: 8},
	}
}

var _ Source = (*SimSource)(nil)

// Sample blocks for one sampling interval and returns the next reading.
func (s *SimSource) Sample(ctx context.Context) (Sample, error) {
	select {
	case <-ctx.Done():
		return Sample{}, ctx.Err()
	case <-time.After(s.interval):
	}
	// Random walk with a weak pull back toward the baseline so the value
	// stays in a realistic band.
	s.drift += s.walk.Rand() - s.drift*0.01
	count := s.baseline + s.drift + s.noise.Rand()
	return Sample{Count: int32(count), At: time.Now()}, nil
}
