package weight

import (
	"math"
	"sync/atomic"
)

// Tarer subtracts a settable offset from converted weights. The offset is
// stored atomically because it is written from the protocol path while the
// pipeline reads it on every sample.
type Tarer struct {
	offsetBits atomic.Uint64
}

// SetOffset records the weight (kg) to subtract from subsequent readings.
func (t *Tarer) SetOffset(kg float64) {
	t.offsetBits.Store(math.Float64bits(kg))
}

// Reset clears the tare offset.
func (t *Tarer) Reset() { t.SetOffset(0) }

// Apply returns kg minus the current offset.
func (t *Tarer) Apply(kg float64) float64 {
	return kg - math.Float64frombits(t.offsetBits.Load())
}
