package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"edge-gradient-stream/internal/core"
)

// FrameSource pushes frames to submit until ctx is done or the source fails.
type FrameSource interface {
	Run(ctx context.Context, submit func(*core.RawFrame)) error
}

// Stream couples one frame source to one live pipeline. Stopping a stream
// stops both; switching sources means stopping one stream and starting another.
type Stream struct {
	live   *Live
	logger *logrus.Logger

	cancel context.CancelFunc
	done   chan struct{}
	err    error

	stopOnce sync.Once
}

// StartStream starts live and then source. The source runs on its own goroutine.
func StartStream(ctx context.Context, source FrameSource, live *Live, logger *logrus.Logger) (*Stream, error) {
	if err := live.Start(ctx); err != nil {
		return nil, fmt.Errorf("start live pipeline: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		live:   live,
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		s.err = source.Run(ctx, func(f *core.RawFrame) { live.Submit(f) })
		if s.err != nil {
			logger.WithFields(logrus.Fields{
				"pipeline_id": live.ID(),
				"error":       s.err,
			}).Error("PIPELINE: Frame source failed")
		}
	}()

	return s, nil
}

// Done is closed when the source stops producing frames.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the source's terminal error. Valid after Done is closed.
func (s *Stream) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *Stream) Live() *Live {
	return s.live
}

// Stop cancels the source, waits for it to return and stops the pipeline.
// Every frame the source submitted has been released once Stop returns. Idempotent.
func (s *Stream) Stop() error {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done
		s.live.Stop()
	})
	return s.Err()
}
