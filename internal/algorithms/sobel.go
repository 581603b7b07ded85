// Parallel Sobel gradient magnitude
package algorithms

import (
	"context"
	"fmt"
	"math"

	"edge-gradient-stream/internal/core"
)

// SobelName is the registry name of the Sobel filter.
const SobelName = "sobel"

// SobelFilter implements Algorithm with the 3x3 Sobel kernel pair.
type SobelFilter struct{}

// NewSobelFilter creates a new Sobel filter algorithm
func NewSobelFilter() *SobelFilter {
	return &SobelFilter{}
}

func (s *SobelFilter) Apply(ctx context.Context, input *core.IntensityBuffer, workers int) (*core.GradientBuffer, error) {
	return Sobel(ctx, input, workers)
}

func (s *SobelFilter) GetName() string {
	return "Sobel Filter"
}

func (s *SobelFilter) GetDescription() string {
	return "3x3 Sobel gradient magnitude, saturated to 8 bits, zero border"
}

// Sobel returns the gradient magnitude of src computed by workers goroutines.
//
// Each output pixel is min(255, round(sqrt(Gx²+Gy²))) where Gx and Gy are the
// correlations of the 8-neighbourhood with
//
//	Gx = [-1 0 1; -2 0 2; -1 0 1]    Gy = [-1 -2 -1; 0 0 0; 1 2 1]
//
// Pixels whose neighbourhood leaves the image are 0. The result does not
// depend on workers. On error no buffer is returned.
func Sobel(ctx context.Context, src *core.IntensityBuffer, workers int) (*core.GradientBuffer, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	dst, err := core.NewGradientBuffer(src.Width, src.Height)
	if err != nil {
		return nil, err
	}
	if err := SobelInto(ctx, src, dst, workers); err != nil {
		return nil, err
	}
	return dst, nil
}

// SobelInto writes the gradient magnitude of src into dst, which must have the same shape.
// Every pixel of dst is overwritten. dst contents are undefined when an error is returned.
func SobelInto(ctx context.Context, src *core.IntensityBuffer, dst *core.GradientBuffer, workers int) error {
	if err := src.Validate(); err != nil {
		return err
	}
	if err := dst.MatchesShape(src); err != nil {
		return err
	}
	if workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", core.ErrInvalidShape, workers)
	}

	return runPartitions(ctx, Partitions(src.Height, workers), func(ctx context.Context, p Partition) error {
		return sobelRows(ctx, src, dst, p.RowStart, p.RowEnd)
	})
}

// sobelRows computes output rows [start, end). It reads rows start-1..end and writes only its own rows.
func sobelRows(ctx context.Context, src *core.IntensityBuffer, dst *core.GradientBuffer, start, end int) error {
	w, h := src.Width, src.Height
	for y := start; y < end; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		out := dst.Row(y)
		if y == 0 || y == h-1 || w < 3 {
			clear(out)
			continue
		}

		above := src.Row(y - 1)
		row := src.Row(y)
		below := src.Row(y + 1)

		out[0] = 0
		out[w-1] = 0
		for x := 1; x < w-1; x++ {
			a0, a1, a2 := int(above[x-1]), int(above[x]), int(above[x+1])
			m0, m2 := int(row[x-1]), int(row[x+1])
			b0, b1, b2 := int(below[x-1]), int(below[x]), int(below[x+1])

			gx := (a2 + 2*m2 + b2) - (a0 + 2*m0 + b0)
			gy := (b0 + 2*b1 + b2) - (a0 + 2*a1 + a2)
			out[x] = magnitude(gx, gy)
		}
	}
	return nil
}

// magnitude rounds the Euclidean norm and saturates at 255.
func magnitude(gx, gy int) uint8 {
	m := math.Round(math.Sqrt(float64(gx*gx + gy*gy)))
	if m >= 255 {
		return 255
	}
	return uint8(m)
}
