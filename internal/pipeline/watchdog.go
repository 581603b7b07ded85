package pipeline

import (
	"sync"
	"time"
)

// DefaultIdleTimeout is how long a live view may sit without user activity
// before the controlling context tears it down.
const DefaultIdleTimeout = 60 * time.Second

// Watchdog calls onIdle once if Kick is not called for period.
type Watchdog struct {
	mu      sync.Mutex
	timer   *time.Timer
	period  time.Duration
	fired   bool
	stopped bool
}

// NewWatchdog arms a watchdog. A non-positive period disables it.
func NewWatchdog(period time.Duration, onIdle func()) *Watchdog {
	w := &Watchdog{period: period}
	if period <= 0 {
		w.stopped = true
		return w
	}
	w.timer = time.AfterFunc(period, func() {
		w.mu.Lock()
		if w.stopped || w.fired {
			w.mu.Unlock()
			return
		}
		w.fired = true
		w.mu.Unlock()
		onIdle()
	})
	return w
}

// Kick records activity and restarts the countdown. No effect after firing or Stop.
func (w *Watchdog) Kick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped || w.fired {
		return
	}
	w.timer.Reset(w.period)
}

// Stop disarms the watchdog.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Fired reports whether onIdle has been called.
func (w *Watchdog) Fired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}
