package capture

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"edge-gradient-stream/internal/core"
)

const defaultSyntheticFPS = 30

// Synthetic renders a moving bar pattern as BGR frames. It stands in for a
// camera in headless runs and tests.
type Synthetic struct {
	opts     Options
	pool     chan []byte
	logger   *logrus.Logger
	produced atomic.Uint64
}

func NewSynthetic(opts Options, logger *logrus.Logger) *Synthetic {
	if opts.Width <= 0 {
		opts.Width = 320
	}
	if opts.Height <= 0 {
		opts.Height = 240
	}
	if opts.FPS <= 0 {
		opts.FPS = defaultSyntheticFPS
	}

	s := &Synthetic{
		opts:   opts,
		pool:   make(chan []byte, matPoolSize),
		logger: logger,
	}
	for i := 0; i < matPoolSize; i++ {
		s.pool <- make([]byte, opts.Width*opts.Height*3)
	}

	logger.WithFields(logrus.Fields{
		"size":   [2]int{opts.Width, opts.Height},
		"fps":    opts.FPS,
		"facing": opts.Facing.String(),
	}).Info("CAPTURE: Synthetic source ready")
	return s
}

func (s *Synthetic) Facing() core.Facing { return s.opts.Facing }

// Produced reports how many frames Run has submitted.
func (s *Synthetic) Produced() uint64 { return s.produced.Load() }

func (s *Synthetic) Run(ctx context.Context, submit func(*core.RawFrame)) error {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / s.opts.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		var buf []byte
		select {
		case <-ctx.Done():
			return nil
		case buf = <-s.pool:
		}

		n := s.produced.Add(1)
		s.render(buf, int(n))
		frame := core.NewRawFrame(core.FormatBGR, s.opts.Width, s.opts.Height,
			[]core.Plane{{Data: buf, Stride: s.opts.Width * 3}}, func() { s.pool <- buf })
		frame.Seq = n
		submit(frame)
	}
}

// render draws a bright vertical bar that advances 4 pixels per frame.
func (s *Synthetic) render(buf []byte, n int) {
	w, h := s.opts.Width, s.opts.Height
	barWidth := max(w/8, 1)
	start := (n * 4) % w

	for y := 0; y < h; y++ {
		row := buf[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			v := byte(32)
			if d := (x - start + w) % w; d < barWidth {
				v = 224
			}
			row[x*3], row[x*3+1], row[x*3+2] = v, v, v
		}
	}
}

func (s *Synthetic) Close() error { return nil }
