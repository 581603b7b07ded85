// Frame processing: normalize -> filter -> present
package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"edge-gradient-stream/internal/algorithms"
	"edge-gradient-stream/internal/core"
)

// Processor runs one frame through the full pipeline. It holds no per-frame state.
type Processor struct {
	algorithm algorithms.Algorithm
	logger    *logrus.Logger
}

func NewProcessor(algorithm algorithms.Algorithm, logger *logrus.Logger) *Processor {
	return &Processor{
		algorithm: algorithm,
		logger:    logger,
	}
}

// Run normalizes frame, releases it back to its source, filters with workers
// goroutines and presents the result in orientation o.
// frame is always released, even on error.
func (p *Processor) Run(ctx context.Context, frame *core.RawFrame, o core.Orientation, workers int) (image.Image, error) {
	start := time.Now()

	intensity, err := core.Normalize(frame)
	frame.Release()
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	normalized := time.Since(start)

	gradient, err := p.algorithm.Apply(ctx, intensity, workers)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	filtered := time.Since(start)

	img, err := core.Present(gradient, o)
	if err != nil {
		return nil, fmt.Errorf("present: %w", err)
	}

	if p.logger.IsLevelEnabled(logrus.DebugLevel) {
		p.logger.WithFields(logrus.Fields{
			"seq":          frame.Seq,
			"size":         fmt.Sprintf("%dx%d", intensity.Width, intensity.Height),
			"workers":      workers,
			"orientation":  o.String(),
			"normalize_ms": normalized.Milliseconds(),
			"filter_ms":    (filtered - normalized).Milliseconds(),
			"total_ms":     time.Since(start).Milliseconds(),
		}).Debug("PIPELINE: Frame processed")
	}
	return img, nil
}
