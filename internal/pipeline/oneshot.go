package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"edge-gradient-stream/internal/core"
)

// OneShot processes a single still image off the caller's goroutine.
// There is no slot and nothing is ever dropped.
type OneShot struct {
	proc   *Processor
	logger *logrus.Logger
}

func NewOneShot(proc *Processor, logger *logrus.Logger) *OneShot {
	return &OneShot{
		proc:   proc,
		logger: logger,
	}
}

// Process runs frame through the pipeline on a new goroutine and delivers the
// result to sink. The sink is marked busy for the duration of the call.
// The returned channel yields exactly one value: nil on success or the failure.
func (o *OneShot) Process(ctx context.Context, frame *core.RawFrame, orientation core.Orientation, workers int, sink Sink) <-chan error {
	done := make(chan error, 1)

	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in one-shot processing: %v", r)
			}
			sink.SetBusy(false)
			if err != nil {
				o.logger.WithError(err).Error("PIPELINE: One-shot processing failed")
			}
			done <- err
		}()

		sink.SetBusy(true)
		o.logger.WithFields(logrus.Fields{
			"size":    fmt.Sprintf("%dx%d", frame.Width, frame.Height),
			"format":  frame.Format.String(),
			"workers": workers,
		}).Info("PIPELINE: One-shot processing started")

		img, runErr := o.proc.Run(ctx, frame, orientation, workers)
		if runErr != nil {
			err = runErr
			return
		}
		sink.Deliver(img)
		o.logger.Info("PIPELINE: One-shot processing completed")
	}()

	return done
}
