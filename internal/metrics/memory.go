package metrics

import (
	"runtime"

	"github.com/sirupsen/logrus"
)

const mib = 1024 * 1024

// MemorySnapshot is a point-in-time view of the Go heap and goroutine count.
// Logged at the end of a run to spot leaked frames or stuck workers.
type MemorySnapshot struct {
	AllocMB      float64
	TotalAllocMB float64
	SysMB        float64
	NumGC        uint32
	Goroutines   int
}

func ReadMemory() MemorySnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemorySnapshot{
		AllocMB:      float64(m.Alloc) / mib,
		TotalAllocMB: float64(m.TotalAlloc) / mib,
		SysMB:        float64(m.Sys) / mib,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
	}
}

func (s MemorySnapshot) Fields() logrus.Fields {
	return logrus.Fields{
		"alloc_mb":       s.AllocMB,
		"total_alloc_mb": s.TotalAllocMB,
		"sys_mb":         s.SysMB,
		"num_gc":         s.NumGC,
		"goroutines":     s.Goroutines,
	}
}
