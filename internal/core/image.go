// Core buffer types shared by the normalizer, the gradient engine and the presentation adapter
package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidShape is returned for non-positive dimensions, short pixel slices
	// and mismatched buffer shapes.
	ErrInvalidShape = errors.New("invalid buffer shape")

	// ErrUnknownFormat is returned when a raw frame's pixel format is not supported.
	ErrUnknownFormat = errors.New("unknown pixel format")
)

// maxDimension bounds either side of an image to keep allocations sane.
const maxDimension = 16384

// IntensityBuffer is a single-channel 8-bit luminance image.
// Rows are Stride bytes apart; Stride may exceed Width to carry source padding.
// It is never mutated once built.
type IntensityBuffer struct {
	Width  int
	Height int
	Stride int
	Pix    []uint8
}

// NewIntensityBuffer allocates a zeroed, tightly packed intensity buffer.
func NewIntensityBuffer(width, height int) (*IntensityBuffer, error) {
	if err := validateDimensions(width, height); err != nil {
		return nil, err
	}
	return &IntensityBuffer{
		Width:  width,
		Height: height,
		Stride: width,
		Pix:    make([]uint8, width*height),
	}, nil
}

// IntensityFromRows builds a buffer from row slices. All rows must share one length.
func IntensityFromRows(rows [][]uint8) (*IntensityBuffer, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidShape)
	}
	buf, err := NewIntensityBuffer(len(rows[0]), len(rows))
	if err != nil {
		return nil, err
	}
	for y, row := range rows {
		if len(row) != buf.Width {
			return nil, fmt.Errorf("%w: row %d has %d samples, want %d", ErrInvalidShape, y, len(row), buf.Width)
		}
		copy(buf.Pix[y*buf.Stride:], row)
	}
	return buf, nil
}

// Row returns the Width samples of row y.
func (b *IntensityBuffer) Row(y int) []uint8 {
	off := y * b.Stride
	return b.Pix[off : off+b.Width]
}

// At returns the sample at (x, y).
func (b *IntensityBuffer) At(x, y int) uint8 {
	return b.Pix[y*b.Stride+x]
}

// Validate checks dimensions, stride and pixel slice length.
func (b *IntensityBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil intensity buffer", ErrInvalidShape)
	}
	if err := validateDimensions(b.Width, b.Height); err != nil {
		return err
	}
	if b.Stride < b.Width {
		return fmt.Errorf("%w: stride %d smaller than width %d", ErrInvalidShape, b.Stride, b.Width)
	}
	if need := b.Stride*(b.Height-1) + b.Width; len(b.Pix) < need {
		return fmt.Errorf("%w: %d samples, need %d", ErrInvalidShape, len(b.Pix), need)
	}
	return nil
}

// GradientBuffer holds one saturated 8-bit edge magnitude per pixel.
// It is always tightly packed: row y starts at y*Width.
type GradientBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewGradientBuffer allocates a zeroed gradient buffer.
func NewGradientBuffer(width, height int) (*GradientBuffer, error) {
	if err := validateDimensions(width, height); err != nil {
		return nil, err
	}
	return &GradientBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}, nil
}

// Row returns row y.
func (g *GradientBuffer) Row(y int) []uint8 {
	off := y * g.Width
	return g.Pix[off : off+g.Width]
}

// At returns the magnitude at (x, y).
func (g *GradientBuffer) At(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

// Rows copies the buffer into row slices. Handy for tests and debugging.
func (g *GradientBuffer) Rows() [][]uint8 {
	rows := make([][]uint8, g.Height)
	for y := range rows {
		rows[y] = append([]uint8(nil), g.Row(y)...)
	}
	return rows
}

// Validate checks dimensions and pixel slice length.
func (g *GradientBuffer) Validate() error {
	if g == nil {
		return fmt.Errorf("%w: nil gradient buffer", ErrInvalidShape)
	}
	if err := validateDimensions(g.Width, g.Height); err != nil {
		return err
	}
	if len(g.Pix) != g.Width*g.Height {
		return fmt.Errorf("%w: %d samples, want %d", ErrInvalidShape, len(g.Pix), g.Width*g.Height)
	}
	return nil
}

// MatchesShape reports an error unless g can receive the gradient of src.
func (g *GradientBuffer) MatchesShape(src *IntensityBuffer) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if g.Width != src.Width || g.Height != src.Height {
		return fmt.Errorf("%w: destination %dx%d, source %dx%d",
			ErrInvalidShape, g.Width, g.Height, src.Width, src.Height)
	}
	return nil
}

func validateDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrInvalidShape, width, height)
	}
	if width > maxDimension || height > maxDimension {
		return fmt.Errorf("%w: image too large %dx%d (max: %d)", ErrInvalidShape, width, height, maxDimension)
	}
	return nil
}
