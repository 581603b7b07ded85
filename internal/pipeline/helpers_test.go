package pipeline

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"edge-gradient-stream/internal/algorithms"
	"edge-gradient-stream/internal/core"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

// frameTracker builds gray frames whose pixels all hold id and counts releases.
type frameTracker struct {
	mu       sync.Mutex
	released map[uint8]int
	total    atomic.Int64
}

func newFrameTracker() *frameTracker {
	return &frameTracker{released: make(map[uint8]int)}
}

func (ft *frameTracker) frame(id uint8, width, height int) *core.RawFrame {
	data := make([]byte, width*height)
	for i := range data {
		data[i] = id
	}
	return core.NewRawFrame(core.FormatGray8, width, height, []core.Plane{{Data: data, Stride: width}}, func() {
		ft.mu.Lock()
		ft.released[id]++
		ft.mu.Unlock()
		ft.total.Add(1)
	})
}

func (ft *frameTracker) releases(id uint8) int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.released[id]
}

// probeAlgorithm records what it filters and how many calls overlap.
type probeAlgorithm struct {
	gate    chan struct{} // when non-nil, each call blocks until it can receive or it is closed
	started chan uint8    // when non-nil, receives the frame id on entry
	delay   time.Duration
	failID  int // frame id that fails; -1 for none

	active    atomic.Int32
	maxActive atomic.Int32

	mu   sync.Mutex
	seen []uint8
}

func newProbe() *probeAlgorithm {
	return &probeAlgorithm{failID: -1}
}

func (p *probeAlgorithm) Apply(ctx context.Context, in *core.IntensityBuffer, workers int) (*core.GradientBuffer, error) {
	n := p.active.Add(1)
	defer p.active.Add(-1)
	for {
		prev := p.maxActive.Load()
		if n <= prev || p.maxActive.CompareAndSwap(prev, n) {
			break
		}
	}

	id := in.Pix[0]
	if p.started != nil {
		p.started <- id
	}
	if p.gate != nil {
		<-p.gate
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	p.mu.Lock()
	p.seen = append(p.seen, id)
	p.mu.Unlock()

	if int(id) == p.failID {
		return nil, errors.New("injected failure")
	}
	return algorithms.Sobel(ctx, in, workers)
}

func (p *probeAlgorithm) GetName() string        { return "probe" }
func (p *probeAlgorithm) GetDescription() string { return "test probe" }

func (p *probeAlgorithm) Seen() []uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uint8(nil), p.seen...)
}

// recordingSink logs every call in order.
type recordingSink struct {
	mu     sync.Mutex
	events []string
	images []image.Image
}

func (s *recordingSink) Deliver(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "deliver")
	s.images = append(s.images, img)
}

func (s *recordingSink) SetBusy(busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if busy {
		s.events = append(s.events, "busy")
	} else {
		s.events = append(s.events, "idle")
	}
}

func (s *recordingSink) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *recordingSink) Images() []image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]image.Image(nil), s.images...)
}
