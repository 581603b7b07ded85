package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"edge-gradient-stream/internal/core"
	"edge-gradient-stream/internal/metrics"
)

var (
	ErrAlreadyStarted = errors.New("live pipeline already started")
	ErrStopped        = errors.New("live pipeline stopped")
)

// LiveConfig holds the collaborators of a live pipeline. Rate may be nil.
type LiveConfig struct {
	Processor   *Processor
	Parallelism *Parallelism
	Rate        *metrics.RateMonitor
	Logger      *logrus.Logger
}

// binding is the sink a result goes to. It is replaced, never mutated.
type binding struct {
	sink        Sink
	orientation core.Orientation
}

// LiveStats is a snapshot of a live pipeline's counters.
type LiveStats struct {
	ID        string
	Submitted uint64
	Dropped   uint64
	Processed uint64
	Failed    uint64
	Discarded uint64
}

// Live drives frames from a live source through the pipeline.
//
// Producers call Submit, which never blocks: the newest frame replaces an
// unclaimed one in a single Slot. One worker goroutine claims frames and runs
// them through the Processor, so at most one frame is ever being filtered.
type Live struct {
	id          string
	slot        *Slot
	proc        *Processor
	parallelism *Parallelism
	rate        *metrics.RateMonitor
	logger      *logrus.Logger

	binding atomic.Pointer[binding]
	seq     atomic.Uint64

	processed atomic.Uint64
	failed    atomic.Uint64
	discarded atomic.Uint64

	cancel context.CancelFunc
	wg     sync.WaitGroup

	stateMu sync.Mutex
	started bool
	stopped bool
}

// NewLive creates a live pipeline bound to sink. It does nothing until Start.
func NewLive(cfg LiveConfig, sink Sink, orientation core.Orientation) *Live {
	l := &Live{
		id:          uuid.NewString(),
		slot:        NewSlot(),
		proc:        cfg.Processor,
		parallelism: cfg.Parallelism,
		rate:        cfg.Rate,
		logger:      cfg.Logger,
	}
	l.binding.Store(&binding{sink: sink, orientation: orientation})
	return l
}

// ID identifies this pipeline instance in logs.
func (l *Live) ID() string {
	return l.id
}

// Start spawns the worker goroutine. It returns immediately.
// Cancelling ctx has the same effect as Stop, except that a frame in flight is aborted.
func (l *Live) Start(ctx context.Context) error {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()

	if l.stopped {
		return ErrStopped
	}
	if l.started {
		return ErrAlreadyStarted
	}
	l.started = true

	ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(2)
	go l.run(ctx)
	go func() {
		defer l.wg.Done()
		<-ctx.Done()
		l.binding.Store(nil)
		l.slot.Close()
	}()

	l.logger.WithFields(logrus.Fields{
		"pipeline_id": l.id,
		"workers":     l.parallelism.Load(),
	}).Info("PIPELINE: Live pipeline started")
	return nil
}

// Submit hands a frame to the pipeline without blocking. It reports whether an
// older unclaimed frame was dropped in its favour.
func (l *Live) Submit(frame *core.RawFrame) (dropped bool) {
	frame.Seq = l.seq.Add(1)
	return l.slot.Put(frame)
}

// Rebind redirects future results to sink with a new orientation.
// Results of frames claimed before the call are discarded.
func (l *Live) Rebind(sink Sink, orientation core.Orientation) {
	l.binding.Store(&binding{sink: sink, orientation: orientation})
	l.logger.WithFields(logrus.Fields{
		"pipeline_id": l.id,
		"orientation": orientation.String(),
	}).Debug("PIPELINE: Sink rebound")
}

// Stop tears the pipeline down and waits for the worker to exit.
// A frame being processed finishes but its result is dropped. Idempotent.
func (l *Live) Stop() {
	l.stateMu.Lock()
	if l.stopped {
		l.stateMu.Unlock()
		return
	}
	l.stopped = true
	started := l.started
	l.stateMu.Unlock()

	l.binding.Store(nil)
	l.slot.Close()
	if !started {
		return
	}
	l.wg.Wait()
	l.cancel()

	stats := l.Stats()
	l.logger.WithFields(logrus.Fields{
		"pipeline_id": l.id,
		"submitted":   stats.Submitted,
		"dropped":     stats.Dropped,
		"processed":   stats.Processed,
		"failed":      stats.Failed,
		"discarded":   stats.Discarded,
	}).Info("PIPELINE: Live pipeline stopped")
}

// Stats returns a snapshot of the counters.
func (l *Live) Stats() LiveStats {
	puts, drops := l.slot.Counts()
	return LiveStats{
		ID:        l.id,
		Submitted: puts,
		Dropped:   drops,
		Processed: l.processed.Load(),
		Failed:    l.failed.Load(),
		Discarded: l.discarded.Load(),
	}
}

func (l *Live) run(ctx context.Context) {
	defer l.wg.Done()
	// wake the watcher goroutine when the slot is closed by Stop
	defer l.cancel()

	for {
		frame := l.slot.Take()
		if frame == nil {
			return
		}

		bound := l.binding.Load()
		if bound == nil {
			frame.Release()
			l.discarded.Add(1)
			continue
		}

		seq := frame.Seq
		img, err := l.proc.Run(ctx, frame, bound.orientation, l.parallelism.Load())
		if err != nil {
			l.failed.Add(1)
			l.logger.WithFields(logrus.Fields{
				"pipeline_id": l.id,
				"seq":         seq,
				"error":       err,
			}).Warn("PIPELINE: Frame failed, waiting for the next one")
			continue
		}

		if l.binding.Load() != bound {
			l.discarded.Add(1)
			continue
		}
		bound.sink.Deliver(img)
		l.processed.Add(1)
		if l.rate != nil {
			l.rate.Tick()
		}
	}
}
