package hangboard

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// retryDelay paces resend attempts while the transport reports busy.
const retryDelay = 5 * time.Millisecond

// notifier delivers weight frames with latest-value-wins semantics: a
// single-slot buffer holds at most one undelivered frame, and a newer frame
// replaces it. Weight telemetry is not a durable log, so dropping stale
// values under backpressure is the correct behavior; what must never happen
// is the pipeline blocking on the transport.
type notifier struct {
	slot chan []byte
	log  *logrus.Entry
}

func newNotifier() *notifier {
	return &notifier{
		slot: make(chan []byte, 1),
		log:  logrus.WithField("component", "notifier"),
	}
}

// offer stores a frame for delivery, replacing any pending one. Never
// blocks.
func (n *notifier) offer(frame []byte) {
	for {
		select {
		case n.slot <- frame:
			return
		default:
		}
		// Slot full: evict the stale frame and retry.
		select {
		case <-n.slot:
		default:
		}
	}
}

// run delivers frames until ctx is done. On ErrBusy the frame is re-queued
// unless a newer one has arrived; on ErrNotConnected it is dropped.
func (n *notifier) run(ctx context.Context, t Transport) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-n.slot:
			err := t.Notify(frame)
			switch {
			case err == nil:
			case errors.Is(err, ErrBusy):
				select {
				case n.slot <- frame:
				default: // a newer frame won the slot
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(retryDelay):
				}
			case errors.Is(err, ErrNotConnected):
				n.log.Debug("dropping notification, no peer")
			default:
				n.log.WithError(err).Warn("notify failed")
			}
		}
	}
}
