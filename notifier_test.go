package hangboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordTransport captures notified frames; err, when set, is returned by
// Notify instead.
type recordTransport struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (t *recordTransport) Notify(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.frames = append(t.frames, append([]byte(nil), frame...))
	return nil
}

func (t *recordTransport) Close() error { return nil }

func (t *recordTransport) setErr(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
}

func (t *recordTransport) snapshot() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.frames...)
}

func TestNotifierOfferNeverBlocksAndKeepsNewest(t *testing.T) {
	n := newNotifier()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := byte(0); i < 10; i++ {
			n.offer([]byte{i})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("offer blocked")
	}

	frame := <-n.slot
	assert.Equal(t, []byte{9}, frame)
	select {
	case extra := <-n.slot:
		t.Fatalf("unexpected second frame %v", extra)
	default:
	}
}

func TestNotifierDelivers(t *testing.T) {
	n := newNotifier()
	tr := &recordTransport{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.run(ctx, tr)

	n.offer([]byte{1})
	require.Eventually(t, func() bool {
		return len(tr.snapshot()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, []byte{1}, tr.snapshot()[0])
}

// While the transport reports busy, only the newest frame survives; once it
// unblocks, exactly that frame arrives.
func TestNotifierBusyDeliversNewestOnly(t *testing.T) {
	n := newNotifier()
	tr := &recordTransport{}
	tr.setErr(ErrBusy)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.run(ctx, tr)

	for i := byte(1); i <= 10; i++ {
		n.offer([]byte{i})
		time.Sleep(time.Millisecond)
	}
	tr.setErr(nil)

	require.Eventually(t, func() bool {
		return len(tr.snapshot()) >= 1
	}, time.Second, time.Millisecond)

	frames := tr.snapshot()
	assert.Equal(t, []byte{10}, frames[len(frames)-1])
	// The busy window must have collapsed the backlog, not queued it.
	assert.LessOrEqual(t, len(frames), 2)
}

func TestNotifierDropsWhenNotConnected(t *testing.T) {
	n := newNotifier()
	tr := &recordTransport{}
	tr.setErr(ErrNotConnected)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.run(ctx, tr)

	n.offer([]byte{1})
	time.Sleep(20 * time.Millisecond)

	tr.setErr(nil)
	n.offer([]byte{2})
	require.Eventually(t, func() bool {
		return len(tr.snapshot()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, []byte{2}, tr.snapshot()[0])
}
