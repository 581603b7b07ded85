package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edge-gradient-stream/internal/core"
)

// tickerSource emits tracked frames every interval until cancelled.
type tickerSource struct {
	frames   *frameTracker
	interval time.Duration
	emitted  int
}

func (s *tickerSource) Run(ctx context.Context, submit func(*core.RawFrame)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.interval):
		}
		s.emitted++
		submit(s.frames.frame(uint8(s.emitted), 4, 4))
	}
}

type failingSource struct{}

func (failingSource) Run(context.Context, func(*core.RawFrame)) error {
	return errors.New("device lost")
}

func TestStreamReleasesEveryFrameOnStop(t *testing.T) {
	t.Parallel()

	sink := &LatestSink{}
	probe := newProbe()
	probe.delay = 3 * time.Millisecond
	live := newTestLive(t, probe, sink, 2)
	src := &tickerSource{frames: newFrameTracker(), interval: time.Millisecond}

	stream, err := StartStream(context.Background(), src, live, testLogger())
	require.NoError(t, err)
	assert.Same(t, live, stream.Live())

	require.Eventually(t, func() bool {
		_, n := sink.Latest()
		return n >= 3
	}, waitFor, time.Millisecond)

	require.NoError(t, stream.Stop())
	require.NoError(t, stream.Stop())

	assert.Equal(t, int64(src.emitted), src.frames.total.Load())
	stats := live.Stats()
	assert.Equal(t, uint64(src.emitted), stats.Submitted)
	assert.Equal(t, stats.Submitted, stats.Dropped+stats.Processed+stats.Discarded+stats.Failed)

	img, _ := sink.Latest()
	require.NotNil(t, img)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestStreamReportsSourceFailure(t *testing.T) {
	t.Parallel()

	live := newTestLive(t, newProbe(), &LatestSink{}, 1)
	stream, err := StartStream(context.Background(), failingSource{}, live, testLogger())
	require.NoError(t, err)

	select {
	case <-stream.Done():
	case <-time.After(waitFor):
		t.Fatal("stream did not end")
	}
	assert.EqualError(t, stream.Err(), "device lost")
	assert.EqualError(t, stream.Stop(), "device lost")
}

func TestStreamRefusesStoppedPipeline(t *testing.T) {
	t.Parallel()

	live := newTestLive(t, newProbe(), &LatestSink{}, 1)
	live.Stop()

	_, err := StartStream(context.Background(), failingSource{}, live, testLogger())
	assert.ErrorIs(t, err, ErrStopped)
}
