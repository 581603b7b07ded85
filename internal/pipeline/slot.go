package pipeline

import (
	"sync"

	"edge-gradient-stream/internal/core"
)

// Slot is a single-frame mailbox with overwrite semantics.
//
//   - Put never blocks. An unclaimed frame is replaced and released back to its source.
//   - Take blocks until a frame is available or the slot is closed.
//   - A taken frame belongs to the caller; the slot never touches it again.
//
// Put may be called from any goroutine; Take must only be called by a single consumer.
type Slot struct {
	mu    sync.Mutex
	cond  *sync.Cond
	frame *core.RawFrame // nil = empty

	puts   uint64
	drops  uint64
	closed bool
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	s := &Slot{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Put stores frame, replacing any unclaimed one. It reports whether a frame was dropped.
// After Close the frame is released immediately.
func (s *Slot) Put(frame *core.RawFrame) (dropped bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		frame.Release()
		return false
	}

	stale := s.frame
	s.frame = frame
	s.puts++
	if stale != nil {
		s.drops++
	}
	s.cond.Signal()
	s.mu.Unlock()

	// release outside the lock; a source may recycle synchronously
	if stale != nil {
		stale.Release()
		return true
	}
	return false
}

// Take claims the current frame, blocking while the slot is empty.
// It returns nil once the slot is closed.
func (s *Slot) Take() *core.RawFrame {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.frame == nil && !s.closed {
		s.cond.Wait()
	}
	if s.closed {
		return nil
	}

	frame := s.frame
	s.frame = nil
	return frame
}

// Close wakes the consumer and releases any unclaimed frame. Idempotent.
func (s *Slot) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	pending := s.frame
	s.frame = nil
	if pending != nil {
		s.drops++
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	pending.Release()
}

// Counts returns the number of frames put and the number dropped unprocessed,
// either by overwrite or by Close.
func (s *Slot) Counts() (puts, drops uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts, s.drops
}
