package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"edge-gradient-stream/internal/core"
)

const (
	// matPoolSize bounds frames outstanding between the camera and the pipeline:
	// one in the slot, one being normalized, one being filled.
	matPoolSize = 3
	// maxReadMisses consecutive empty reads end the stream.
	maxReadMisses = 30
)

// Camera reads BGR frames from an OpenCV video capture. Device is either a
// numeric index or a file/URL understood by OpenCV.
type Camera struct {
	opts    Options
	capture *gocv.VideoCapture
	pool    chan *gocv.Mat
	mats    []*gocv.Mat
	logger  *logrus.Logger

	closeOnce sync.Once
}

// OpenCamera opens the device and requests the configured frame size.
// It fails with ErrCameraUnavailable before any frame is produced.
func OpenCamera(opts Options, logger *logrus.Logger) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(opts.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCameraUnavailable, opts.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", ErrCameraUnavailable, opts.Device)
	}

	if opts.Width > 0 && opts.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	}

	c := &Camera{
		opts:    opts,
		capture: vc,
		pool:    make(chan *gocv.Mat, matPoolSize),
		logger:  logger,
	}
	for i := 0; i < matPoolSize; i++ {
		m := gocv.NewMat()
		c.mats = append(c.mats, &m)
		c.pool <- &m
	}

	logger.WithFields(logrus.Fields{
		"device":    opts.Device,
		"facing":    opts.Facing.String(),
		"requested": fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"actual": fmt.Sprintf("%.0fx%.0f",
			vc.Get(gocv.VideoCaptureFrameWidth), vc.Get(gocv.VideoCaptureFrameHeight)),
	}).Info("CAPTURE: Camera opened")

	return c, nil
}

func (c *Camera) Facing() core.Facing { return c.opts.Facing }

// Run reads frames until ctx is done. Each frame wraps a pooled Mat without
// copying; releasing the frame returns the Mat to the pool.
func (c *Camera) Run(ctx context.Context, submit func(*core.RawFrame)) error {
	misses := 0
	var seq uint64

	for {
		var mat *gocv.Mat
		select {
		case <-ctx.Done():
			return nil
		case mat = <-c.pool:
		}

		if ok := c.capture.Read(mat); !ok || mat.Empty() {
			c.pool <- mat
			misses++
			if misses >= maxReadMisses {
				return fmt.Errorf("%w: %s stopped producing frames", ErrCameraUnavailable, c.opts.Device)
			}
			continue
		}
		misses = 0

		frame, err := c.wrap(mat)
		if err != nil {
			c.pool <- mat
			c.logger.WithError(err).Warn("CAPTURE: Skipping unreadable frame")
			continue
		}
		seq++
		frame.Seq = seq
		submit(frame)
	}
}

func (c *Camera) wrap(mat *gocv.Mat) (*core.RawFrame, error) {
	var format core.PixelFormat
	switch mat.Channels() {
	case 1:
		format = core.FormatGray8
	case 3:
		format = core.FormatBGR
	case 4:
		format = core.FormatBGRA
	default:
		return nil, fmt.Errorf("%w: %d channels", core.ErrUnknownFormat, mat.Channels())
	}

	data, err := mat.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("mat data: %w", err)
	}

	release := func() { c.pool <- mat }
	return core.NewRawFrame(format, mat.Cols(), mat.Rows(),
		[]core.Plane{{Data: data, Stride: mat.Step()}}, release), nil
}

// Close releases the device and the Mat pool. Call it after Run has returned
// and every submitted frame has been released.
func (c *Camera) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.capture.Close()
		for _, m := range c.mats {
			m.Close()
		}
		c.logger.WithField("device", c.opts.Device).Info("CAPTURE: Camera closed")
	})
	return err
}
