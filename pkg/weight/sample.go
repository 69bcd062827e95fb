// Package weight implements the measurement pipeline: raw ADC counts from a
// sample source pass through a sliding-window median filter, are converted
// to kilograms by the two-point calibration mapping, and are optionally
// tared before being handed to the protocol layer.
package weight

import (
	"context"
	"time"
)

// Sample is one raw ADC reading with its capture time.
type Sample struct {
	Count int32
	At    time.Time
}

// Source produces raw samples at the sensor's fixed cadence. Sample blocks
// until the next reading is available or ctx is done.
type Source interface {
	Sample(ctx context.Context) (Sample, error)
}

// Pump decouples the fixed-rate source from the pipeline consumer. It
// forwards samples through a capacity-1 channel and overwrites the pending
// sample when the consumer falls behind, so the producer side never blocks
// and the sampling cadence is preserved. The returned channel closes when
// ctx is done or the source fails.
func Pump(ctx context.Context, src Source) <-chan Sample {
	out := make(chan Sample, 1)
	go func() {
		defer close(out)
		for {
			s, err := src.Sample(ctx)
			if err != nil {
				return
			}
			select {
			case out <- s:
			default:
				// Consumer is behind: drop the stale sample in favor of
				// the fresh one.
				select {
				case <-out:
				default:
				}
				select {
				case out <- s:
				default:
				}
			}
		}
	}()
	return out
}
