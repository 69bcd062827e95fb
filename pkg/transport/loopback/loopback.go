// Package loopback provides an in-memory Transport for tests and the
// simulator: the "peer" is a callback in the same process.
package loopback

import (
	"sync"
	"sync/atomic"

	"github.com/crimpworks/hangboard"
)

// Transport is an in-process link between a device and a fake peer.
type Transport struct {
	mu      sync.Mutex
	handler hangboard.FrameHandler
	onPeer  func(frame []byte)
	closed  atomic.Bool
	busy    atomic.Bool
}

var _ hangboard.Transport = (*Transport)(nil)

// New creates a loopback transport. onPeer receives frames the device
// notifies; it may be nil.
func New(onPeer func(frame []byte)) *Transport {
	return &Transport{onPeer: onPeer}
}

// Bind registers the device's frame handler.
func (t *Transport) Bind(h hangboard.FrameHandler) {
	t.mu.Lock()
	t.handler = h
	t.mu.Unlock()
}

// Inject delivers a control frame to the device, as if the peer had
// written it.
func (t *Transport) Inject(frame []byte) {
	t.mu.Lock()
	h := t.handler
	t.mu.Unlock()
	if h != nil {
		h(frame)
	}
}

// SetBusy makes Notify report backpressure, emulating a peer that is not
// ready to receive.
func (t *Transport) SetBusy(busy bool) { t.busy.Store(busy) }

// Notify forwards a data frame to the peer callback.
func (t *Transport) Notify(frame []byte) error {
	if t.closed.Load() {
		return hangboard.ErrNotConnected
	}
	if t.busy.Load() {
		return hangboard.ErrBusy
	}
	if t.onPeer != nil {
		// Hand the peer its own copy; the device may reuse the buffer.
		cp := make([]byte, len(frame))
		copy(cp, frame)
		t.onPeer(cp)
	}
	return nil
}

// Close disconnects the loopback.
func (t *Transport) Close() error {
	t.closed.Store(true)
	return nil
}
