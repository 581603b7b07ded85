package core

import "fmt"

// Fixed-point BT.601 weights, scaled by 1<<14, as used by OpenCV's BGR2GRAY.
const (
	lumaR     = 4899
	lumaG     = 9617
	lumaB     = 1868
	lumaShift = 14
	lumaRound = 1 << (lumaShift - 1)
)

// packedLayout describes where R, G and B live inside one packed pixel.
type packedLayout struct {
	bytesPerPixel int
	r, g, b       int
}

var packedLayouts = map[PixelFormat]packedLayout{
	FormatRGB:  {bytesPerPixel: 3, r: 0, g: 1, b: 2},
	FormatBGR:  {bytesPerPixel: 3, r: 2, g: 1, b: 0},
	FormatRGBA: {bytesPerPixel: 4, r: 0, g: 1, b: 2},
	FormatBGRA: {bytesPerPixel: 4, r: 2, g: 1, b: 0},
}

// Normalize converts a raw frame into a freshly allocated intensity buffer.
// Chroma-subsampled frames only have their luma plane read.
func Normalize(frame *RawFrame) (*IntensityBuffer, error) {
	if frame == nil {
		return nil, fmt.Errorf("%w: nil frame", ErrInvalidShape)
	}
	if err := validateDimensions(frame.Width, frame.Height); err != nil {
		return nil, err
	}

	switch frame.Format {
	case FormatGray8, FormatYUV420:
		return copyLumaPlane(frame)
	}

	layout, ok := packedLayouts[frame.Format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, frame.Format)
	}
	return reducePacked(frame, layout)
}

// copyLumaPlane copies plane 0 keeping its stride.
func copyLumaPlane(frame *RawFrame) (*IntensityBuffer, error) {
	plane, err := firstPlane(frame, 1)
	if err != nil {
		return nil, err
	}

	need := plane.Stride*(frame.Height-1) + frame.Width
	pix := make([]uint8, need)
	copy(pix, plane.Data[:need])

	return &IntensityBuffer{
		Width:  frame.Width,
		Height: frame.Height,
		Stride: plane.Stride,
		Pix:    pix,
	}, nil
}

func reducePacked(frame *RawFrame, layout packedLayout) (*IntensityBuffer, error) {
	plane, err := firstPlane(frame, layout.bytesPerPixel)
	if err != nil {
		return nil, err
	}

	out, err := NewIntensityBuffer(frame.Width, frame.Height)
	if err != nil {
		return nil, err
	}

	bpp := layout.bytesPerPixel
	for y := 0; y < frame.Height; y++ {
		src := plane.Data[y*plane.Stride : y*plane.Stride+frame.Width*bpp]
		dst := out.Row(y)
		for x := range dst {
			px := src[x*bpp : x*bpp+bpp]
			r := uint32(px[layout.r])
			g := uint32(px[layout.g])
			b := uint32(px[layout.b])
			dst[x] = uint8((r*lumaR + g*lumaG + b*lumaB + lumaRound) >> lumaShift)
		}
	}
	return out, nil
}

// firstPlane returns plane 0 after checking it can hold width*bpp bytes per row.
func firstPlane(frame *RawFrame, bpp int) (Plane, error) {
	if len(frame.Planes) == 0 {
		return Plane{}, fmt.Errorf("%w: %s frame has no planes", ErrInvalidShape, frame.Format)
	}
	plane := frame.Planes[0]
	rowBytes := frame.Width * bpp
	if plane.Stride < rowBytes {
		return Plane{}, fmt.Errorf("%w: stride %d smaller than row size %d", ErrInvalidShape, plane.Stride, rowBytes)
	}
	if need := plane.Stride*(frame.Height-1) + rowBytes; len(plane.Data) < need {
		return Plane{}, fmt.Errorf("%w: plane holds %d bytes, need %d", ErrInvalidShape, len(plane.Data), need)
	}
	return plane, nil
}
