package pipeline

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edge-gradient-stream/internal/core"
	"edge-gradient-stream/internal/metrics"
)

const waitFor = 2 * time.Second

func newTestLive(t *testing.T, algo *probeAlgorithm, sink Sink, workers int) *Live {
	t.Helper()
	logger := testLogger()
	l := NewLive(LiveConfig{
		Processor:   NewProcessor(algo, logger),
		Parallelism: newParallelism(workers, 8),
		Rate:        metrics.NewRateMonitor(nil),
		Logger:      logger,
	}, sink, core.OrientationNormal)
	t.Cleanup(l.Stop)
	return l
}

func receive(t *testing.T, ch <-chan uint8) uint8 {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for the worker")
		return 0
	}
}

func TestLiveDropsStaleFrames(t *testing.T) {
	t.Parallel()

	frames := newFrameTracker()
	probe := newProbe()
	probe.gate = make(chan struct{})
	probe.started = make(chan uint8, 8)
	sink := &recordingSink{}

	l := newTestLive(t, probe, sink, 2)
	require.NoError(t, l.Start(context.Background()))

	// Frame 1 is claimed and held inside the engine.
	assert.False(t, l.Submit(frames.frame(1, 4, 4)))
	assert.Equal(t, uint8(1), receive(t, probe.started))

	// Frames 2 and 3 arrive before the worker is free: 3 wins.
	assert.False(t, l.Submit(frames.frame(2, 4, 4)))
	assert.True(t, l.Submit(frames.frame(3, 4, 4)))
	assert.Equal(t, 1, frames.releases(2), "dropped frame must go back to its source")

	close(probe.gate)
	assert.Equal(t, uint8(3), receive(t, probe.started))

	require.Eventually(t, func() bool { return l.Stats().Processed == 2 }, waitFor, time.Millisecond)
	assert.Equal(t, []uint8{1, 3}, probe.Seen())
	assert.Len(t, sink.Images(), 2)

	stats := l.Stats()
	assert.Equal(t, uint64(3), stats.Submitted)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.NotEmpty(t, stats.ID)
	assert.Equal(t, l.ID(), stats.ID)
}

func TestLiveSingleFrameInFlight(t *testing.T) {
	t.Parallel()

	frames := newFrameTracker()
	probe := newProbe()
	probe.delay = time.Millisecond
	sink := &LatestSink{}

	l := newTestLive(t, probe, sink, 4)
	require.NoError(t, l.Start(context.Background()))

	var producers sync.WaitGroup
	for p := 0; p < 4; p++ {
		producers.Add(1)
		go func() {
			defer producers.Done()
			for i := 0; i < 100; i++ {
				l.Submit(frames.frame(uint8(1+i%200), 8, 6))
				if i%10 == 0 {
					time.Sleep(time.Millisecond)
				}
			}
		}()
	}
	producers.Wait()

	require.Eventually(t, func() bool { return l.Stats().Processed > 0 }, waitFor, time.Millisecond)
	l.Stop()

	assert.Equal(t, int32(1), probe.maxActive.Load(), "more than one frame was filtered at once")

	stats := l.Stats()
	assert.Equal(t, uint64(400), stats.Submitted)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, stats.Submitted, stats.Processed+stats.Dropped+stats.Discarded)
	assert.Equal(t, int64(400), frames.total.Load(), "every frame must be released exactly once")

	_, delivered := sink.Latest()
	assert.Equal(t, stats.Processed, delivered)
}

func TestLiveRebindDiscardsInFlightResult(t *testing.T) {
	t.Parallel()

	frames := newFrameTracker()
	probe := newProbe()
	probe.gate = make(chan struct{})
	probe.started = make(chan uint8, 8)
	first := &recordingSink{}
	second := &recordingSink{}

	l := newTestLive(t, probe, first, 1)
	require.NoError(t, l.Start(context.Background()))

	l.Submit(frames.frame(1, 5, 4))
	receive(t, probe.started)
	l.Rebind(second, core.OrientationRotated90)
	close(probe.gate)

	require.Eventually(t, func() bool { return l.Stats().Discarded == 1 }, waitFor, time.Millisecond)
	assert.Empty(t, first.Images())
	assert.Empty(t, second.Images())

	l.Submit(frames.frame(2, 5, 4))
	receive(t, probe.started)
	require.Eventually(t, func() bool { return len(second.Images()) == 1 }, waitFor, time.Millisecond)

	// rotated: 5x4 becomes 4x5
	assert.Equal(t, image.Rect(0, 0, 4, 5), second.Images()[0].Bounds())
	assert.Empty(t, first.Images())
}

func TestLiveStopLetsFrameFinishAndDiscardsIt(t *testing.T) {
	t.Parallel()

	frames := newFrameTracker()
	probe := newProbe()
	probe.gate = make(chan struct{})
	probe.started = make(chan uint8, 8)
	sink := &recordingSink{}

	l := newTestLive(t, probe, sink, 1)
	require.NoError(t, l.Start(context.Background()))

	l.Submit(frames.frame(1, 4, 4))
	receive(t, probe.started)
	l.Submit(frames.frame(2, 4, 4)) // waiting in the slot

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		close(stopped)
	}()

	assert.Never(t, func() bool {
		select {
		case <-stopped:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond, "Stop must wait for the frame in flight")

	close(probe.gate)
	select {
	case <-stopped:
	case <-time.After(waitFor):
		t.Fatal("Stop did not return")
	}

	assert.Empty(t, sink.Images())
	assert.Equal(t, []uint8{1}, probe.Seen())
	assert.Equal(t, 1, frames.releases(2), "pending frame must be released on stop")
	assert.Equal(t, uint64(1), l.Stats().Discarded)

	// Submissions after Stop are released right away.
	l.Submit(frames.frame(3, 4, 4))
	assert.Equal(t, 1, frames.releases(3))
}

func TestLiveFailureDoesNotStopPipeline(t *testing.T) {
	t.Parallel()

	frames := newFrameTracker()
	probe := newProbe()
	probe.failID = 1
	probe.started = make(chan uint8, 8)
	sink := &recordingSink{}

	l := newTestLive(t, probe, sink, 2)
	require.NoError(t, l.Start(context.Background()))

	l.Submit(frames.frame(1, 4, 4))
	receive(t, probe.started)
	require.Eventually(t, func() bool { return l.Stats().Failed == 1 }, waitFor, time.Millisecond)
	assert.Empty(t, sink.Images(), "a failed frame must not reach the sink")

	// unknown format fails in the normalizer, before the engine
	l.Submit(core.NewRawFrame(core.FormatUnknown, 4, 4, nil, nil))
	require.Eventually(t, func() bool { return l.Stats().Failed == 2 }, waitFor, time.Millisecond)

	l.Submit(frames.frame(2, 4, 4))
	receive(t, probe.started)
	require.Eventually(t, func() bool { return len(sink.Images()) == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, 1, frames.releases(1))
}

func TestLiveLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("start twice", func(t *testing.T) {
		t.Parallel()
		l := newTestLive(t, newProbe(), &LatestSink{}, 1)
		require.NoError(t, l.Start(context.Background()))
		assert.ErrorIs(t, l.Start(context.Background()), ErrAlreadyStarted)
	})

	t.Run("start after stop", func(t *testing.T) {
		t.Parallel()
		l := newTestLive(t, newProbe(), &LatestSink{}, 1)
		l.Stop()
		l.Stop()
		assert.ErrorIs(t, l.Start(context.Background()), ErrStopped)
	})

	t.Run("context cancellation tears down", func(t *testing.T) {
		t.Parallel()
		frames := newFrameTracker()
		l := newTestLive(t, newProbe(), &LatestSink{}, 1)
		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, l.Start(ctx))
		cancel()

		require.Eventually(t, func() bool {
			l.Submit(frames.frame(9, 3, 3))
			return frames.releases(9) > 0 && l.Stats().Processed == 0
		}, waitFor, 5*time.Millisecond)
	})
}

func TestLiveDeliversRealGradient(t *testing.T) {
	t.Parallel()

	logger := testLogger()
	sink := &LatestSink{}
	l := NewLive(LiveConfig{
		Processor:   NewProcessor(newProbe(), logger),
		Parallelism: newParallelism(3, 4),
		Logger:      logger,
	}, sink, core.OrientationNormal)
	t.Cleanup(l.Stop)
	require.NoError(t, l.Start(context.Background()))

	rows := [][]uint8{
		{10, 10, 10, 10},
		{10, 200, 200, 10},
		{10, 200, 200, 10},
		{10, 10, 10, 10},
	}
	var data []byte
	for _, r := range rows {
		data = append(data, r...)
	}
	l.Submit(core.NewRawFrame(core.FormatGray8, 4, 4, []core.Plane{{Data: data, Stride: 4}}, nil))

	require.Eventually(t, func() bool {
		_, n := sink.Latest()
		return n == 1
	}, waitFor, time.Millisecond)

	img, _ := sink.Latest()
	gray, ok := img.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, []uint8{
		0, 0, 0, 0,
		0, 255, 255, 0,
		0, 255, 255, 0,
		0, 0, 0, 0,
	}, gray.Pix)
}
