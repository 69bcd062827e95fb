package weight

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimpworks/hangboard/pkg/nvm"
)

// chanSource delivers scripted samples; Sample blocks until fed.
type chanSource struct {
	ch chan int32
}

func newChanSource() *chanSource {
	return &chanSource{ch: make(chan int32)}
}

func (s *chanSource) feed(v int32) { s.ch <- v }

func (s *chanSource) Sample(ctx context.Context) (Sample, error) {
	select {
	case <-ctx.Done():
		return Sample{}, ctx.Err()
	case v := <-s.ch:
		return Sample{Count: v, At: time.Now()}, nil
	}
}

// collector gathers emitted measurements.
type collector struct {
	mu sync.Mutex
	ms []Measurement
}

func (c *collector) emit(m Measurement) {
	c.mu.Lock()
	c.ms = append(c.ms, m)
	c.mu.Unlock()
}

func (c *collector) snapshot() []Measurement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Measurement(nil), c.ms...)
}

// identityEngine returns an engine whose mapping is weight = raw.
func identityEngine(t *testing.T) *Engine {
	t.Helper()
	store, err := nvm.NewStore(nvm.NewMemDevice(64, 2))
	require.NoError(t, err)
	require.NoError(t, store.Commit(0, 1.0))
	return NewEngine(store)
}

func TestPumpKeepsNewestSample(t *testing.T) {
	src := newChanSource()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := Pump(ctx, src)
	// Fill the slot, then overwrite it several times without consuming.
	for v := int32(1); v <= 5; v++ {
		src.feed(v)
	}
	// Let the pump finish forwarding the last sample.
	require.Eventually(t, func() bool {
		select {
		case s := <-out:
			if s.Count != 5 {
				t.Fatalf("expected newest sample 5, got %d", s.Count)
			}
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestPipelineStreamsInOrder(t *testing.T) {
	src := newChanSource()
	filter, err := NewMedian(3)
	require.NoError(t, err)
	engine := identityEngine(t)
	col := &collector{}

	p := NewPipeline(src, filter, engine, &Tarer{}, col.emit)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.StartStreaming()
	require.True(t, p.Streaming())

	for _, v := range []int32{10, 20, 30, 40} {
		src.feed(v)
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return len(col.snapshot()) >= 2
	}, time.Second, time.Millisecond)

	ms := col.snapshot()
	// Window fills at the third sample: medians are 20 then 30.
	assert.InDelta(t, 20.0, ms[0].Kg, 1e-9)
	assert.InDelta(t, 30.0, ms[1].Kg, 1e-9)
	assert.True(t, ms[0].Calibrated)
}

func TestPipelineIdleEmitsNothing(t *testing.T) {
	src := newChanSource()
	filter, err := NewMedian(1)
	require.NoError(t, err)
	col := &collector{}

	p := NewPipeline(src, filter, identityEngine(t), &Tarer{}, col.emit)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	src.feed(10)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, col.snapshot())
}

func TestPipelineStartIdempotent(t *testing.T) {
	p := NewPipeline(newChanSource(), mustMedian(t, 1), identityEngine(t), &Tarer{}, nil)
	p.StartStreaming()
	base := p.startTime()
	time.Sleep(5 * time.Millisecond)
	p.StartStreaming() // must not reset the timestamp base
	assert.Equal(t, base, p.startTime())
}

func TestPipelineTare(t *testing.T) {
	src := newChanSource()
	col := &collector{}
	p := NewPipeline(src, mustMedian(t, 1), identityEngine(t), &Tarer{}, col.emit)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	assert.ErrorIs(t, p.Tare(), ErrNoSample)

	src.feed(50)
	require.Eventually(t, func() bool { return p.Tare() == nil }, time.Second, time.Millisecond)

	p.StartStreaming()
	src.feed(70)
	require.Eventually(t, func() bool { return len(col.snapshot()) >= 1 }, time.Second, time.Millisecond)
	assert.InDelta(t, 20.0, col.snapshot()[0].Kg, 1e-9)
}

func TestPipelineTareUncalibrated(t *testing.T) {
	store, err := nvm.NewStore(nvm.NewMemDevice(64, 2))
	require.NoError(t, err)
	src := newChanSource()
	p := NewPipeline(src, mustMedian(t, 1), NewEngine(store), &Tarer{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	src.feed(50)
	require.Eventually(t, func() bool {
		return p.Tare() != ErrNoSample
	}, time.Second, time.Millisecond)
	assert.ErrorIs(t, p.Tare(), ErrUncalibrated)
}

func mustMedian(t *testing.T, size int) *Median {
	t.Helper()
	m, err := NewMedian(size)
	require.NoError(t, err)
	return m
}
