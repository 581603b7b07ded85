// Throughput measurement for delivered frames
package metrics

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// ReportInterval is the minimum wall-clock time between two rate reports.
	ReportInterval = time.Second

	// maxHistory caps the number of reports kept for Summary (one hour at one report per second).
	maxHistory = 3600
)

// RateMonitor counts delivered results and reports frames per second
// roughly once per ReportInterval. It never influences the pipeline.
type RateMonitor struct {
	mu       sync.Mutex
	now      func() time.Time
	onReport func(fps float64)

	frames     int
	lastReport time.Time
	history    []float64
}

// NewRateMonitor creates a monitor. onReport may be nil.
func NewRateMonitor(onReport func(fps float64)) *RateMonitor {
	return newRateMonitorWithClock(onReport, time.Now)
}

func newRateMonitorWithClock(onReport func(fps float64), now func() time.Time) *RateMonitor {
	return &RateMonitor{
		now:        now,
		onReport:   onReport,
		lastReport: now(),
	}
}

// Tick records one delivered result. Once ReportInterval has elapsed since the
// last report it emits frames*1000/elapsedMillis and resets the counter.
func (m *RateMonitor) Tick() {
	m.mu.Lock()
	m.frames++
	now := m.now()
	elapsed := now.Sub(m.lastReport).Milliseconds()
	if elapsed < ReportInterval.Milliseconds() {
		m.mu.Unlock()
		return
	}

	fps := float64(m.frames) * 1000 / float64(elapsed)
	m.frames = 0
	m.lastReport = now
	if len(m.history) == maxHistory {
		m.history = m.history[1:]
	}
	m.history = append(m.history, fps)
	onReport := m.onReport
	m.mu.Unlock()

	if onReport != nil {
		onReport(fps)
	}
}

// Summary describes every rate reported so far.
type Summary struct {
	Reports int
	MeanFPS float64
	StdDev  float64
	MinFPS  float64
	MaxFPS  float64
}

// Summary returns statistics over the reported rates. It is zero before the first report.
func (m *RateMonitor) Summary() Summary {
	m.mu.Lock()
	history := append([]float64(nil), m.history...)
	m.mu.Unlock()

	if len(history) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(history, nil)
	if len(history) == 1 {
		std = 0
	}
	return Summary{
		Reports: len(history),
		MeanFPS: mean,
		StdDev:  std,
		MinFPS:  floats.Min(history),
		MaxFPS:  floats.Max(history),
	}
}

// Fields renders the summary for structured logging.
func (s Summary) Fields() logrus.Fields {
	return logrus.Fields{
		"fps_reports": s.Reports,
		"fps_mean":    s.MeanFPS,
		"fps_stddev":  s.StdDev,
		"fps_min":     s.MinFPS,
		"fps_max":     s.MaxFPS,
	}
}
