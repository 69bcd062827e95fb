package hangboard

import "errors"

var (
	// ErrNotConnected is returned by Transport.Notify when no peer is
	// connected or subscribed.
	ErrNotConnected = errors.New("transport not connected")

	// ErrBusy is returned by Transport.Notify when the peer is not ready
	// to receive; the caller keeps only the newest undelivered frame.
	ErrBusy = errors.New("transport busy")
)

// FrameHandler consumes a control frame received from the peer. Transports
// invoke it from their receive path; it must not be called concurrently
// with itself.
type FrameHandler func(frame []byte)

// Transport is the wireless (or wired) link boundary. The device core is
// transport-agnostic: it only pushes outgoing frames here and receives
// incoming frames through the FrameHandler registered with the transport.
type Transport interface {
	// Notify pushes a data frame to the peer. May fail with
	// ErrNotConnected or ErrBusy.
	Notify(frame []byte) error
	// Close tears the link down.
	Close() error
}
