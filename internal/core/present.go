package core

import (
	"fmt"
	"image"
	"strings"
)

// Orientation is the transform applied to a gradient buffer before it reaches a sink.
type Orientation int

const (
	OrientationNormal Orientation = iota
	// OrientationRotated90 rotates 90 degrees clockwise (back camera on a portrait device).
	OrientationRotated90
	// OrientationRotated270Mirrored rotates 270 degrees clockwise then flips horizontally (front camera).
	OrientationRotated270Mirrored
)

func (o Orientation) String() string {
	switch o {
	case OrientationNormal:
		return "normal"
	case OrientationRotated90:
		return "rot90"
	case OrientationRotated270Mirrored:
		return "rot270m"
	}
	return fmt.Sprintf("Orientation(%d)", int(o))
}

// ParseOrientation accepts the names produced by Orientation.String.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return OrientationNormal, nil
	case "rot90", "rotated90":
		return OrientationRotated90, nil
	case "rot270m", "rotated270mirrored":
		return OrientationRotated270Mirrored, nil
	}
	return OrientationNormal, fmt.Errorf("unknown orientation %q", s)
}

// Facing is the direction a capture device points.
type Facing int

const (
	FacingExternal Facing = iota
	FacingBack
	FacingFront
)

func (f Facing) String() string {
	switch f {
	case FacingExternal:
		return "external"
	case FacingBack:
		return "back"
	case FacingFront:
		return "front"
	}
	return fmt.Sprintf("Facing(%d)", int(f))
}

// ParseFacing accepts "external", "back" and "front".
func ParseFacing(s string) (Facing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "external":
		return FacingExternal, nil
	case "back", "rear":
		return FacingBack, nil
	case "front", "user":
		return FacingFront, nil
	}
	return FacingExternal, fmt.Errorf("unknown camera facing %q", s)
}

// Opposite swaps front and back. External stays external.
func (f Facing) Opposite() Facing {
	switch f {
	case FacingBack:
		return FacingFront
	case FacingFront:
		return FacingBack
	}
	return f
}

// OrientationForFacing maps the active capture device to its presentation transform.
func OrientationForFacing(f Facing) Orientation {
	switch f {
	case FacingBack:
		return OrientationRotated90
	case FacingFront:
		return OrientationRotated270Mirrored
	}
	return OrientationNormal
}

// Present converts a gradient buffer into a grayscale image in the requested orientation.
// The returned image never aliases g.
func Present(g *GradientBuffer, o Orientation) (*image.Gray, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	w, h := g.Width, g.Height
	switch o {
	case OrientationNormal:
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			copy(img.Pix[y*img.Stride:], g.Row(y))
		}
		return img, nil

	case OrientationRotated90:
		// (x, y) -> (h-1-y, x)
		img := image.NewGray(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			row := g.Row(y)
			dx := h - 1 - y
			for x, v := range row {
				img.Pix[x*img.Stride+dx] = v
			}
		}
		return img, nil

	case OrientationRotated270Mirrored:
		// rotate 270: (x, y) -> (y, w-1-x); mirror: (x', y') -> (h-1-x', y')
		img := image.NewGray(image.Rect(0, 0, h, w))
		for y := 0; y < h; y++ {
			row := g.Row(y)
			dx := h - 1 - y
			for x, v := range row {
				img.Pix[(w-1-x)*img.Stride+dx] = v
			}
		}
		return img, nil
	}
	return nil, fmt.Errorf("unsupported orientation %s", o)
}
