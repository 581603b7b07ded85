// Frame sources for live mode
package capture

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"edge-gradient-stream/internal/core"
)

// ErrCameraUnavailable is returned when a capture device cannot be opened or stops producing frames.
var ErrCameraUnavailable = errors.New("camera unavailable")

// SyntheticDevice selects the built-in test pattern instead of a real device.
const SyntheticDevice = "synthetic"

// Source produces raw frames until its context is cancelled.
//
// Run blocks. Every frame handed to submit must eventually be released by the
// receiver; sources may stall when too many frames are outstanding.
type Source interface {
	Run(ctx context.Context, submit func(*core.RawFrame)) error
	Facing() core.Facing
	Close() error
}

// Options configures any Source.
type Options struct {
	Device string
	Facing core.Facing
	Width  int
	Height int
	FPS    float64
}

// Open returns the synthetic source for SyntheticDevice and an OpenCV camera otherwise.
func Open(opts Options, logger *logrus.Logger) (Source, error) {
	if opts.Device == SyntheticDevice {
		return NewSynthetic(opts, logger), nil
	}
	return OpenCamera(opts, logger)
}
