package pipeline

import (
	"image"
	"sync"
)

// Sink receives presentation-ready images.
// Live mode may replace the previous image before anyone looked at it.
type Sink interface {
	Deliver(img image.Image)
	SetBusy(busy bool)
}

// LatestSink keeps only the most recent image. Used by headless runs.
type LatestSink struct {
	mu        sync.Mutex
	latest    image.Image
	delivered uint64
	busy      bool
}

func (s *LatestSink) Deliver(img image.Image) {
	s.mu.Lock()
	s.latest = img
	s.delivered++
	s.mu.Unlock()
}

func (s *LatestSink) SetBusy(busy bool) {
	s.mu.Lock()
	s.busy = busy
	s.mu.Unlock()
}

// Latest returns the newest image and how many images were delivered in total.
func (s *LatestSink) Latest() (image.Image, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.delivered
}

// Busy reports the last busy signal.
func (s *LatestSink) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}
