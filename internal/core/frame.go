package core

import (
	"fmt"
	"sync"
	"time"
)

// PixelFormat identifies the memory layout of a RawFrame.
type PixelFormat int

const (
	FormatUnknown PixelFormat = iota
	// FormatGray8 is one 8-bit luminance plane.
	FormatGray8
	// FormatYUV420 is any 4:2:0 chroma-subsampled layout whose first plane is full-resolution luma
	// (I420, NV12, NV21, YUV_420_888).
	FormatYUV420
	FormatRGB
	FormatBGR
	FormatRGBA
	FormatBGRA
)

var formatNames = map[PixelFormat]string{
	FormatUnknown: "unknown",
	FormatGray8:   "gray8",
	FormatYUV420:  "yuv420",
	FormatRGB:     "rgb",
	FormatBGR:     "bgr",
	FormatRGBA:    "rgba",
	FormatBGRA:    "bgra",
}

func (f PixelFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// Plane is one memory plane of a raw frame.
type Plane struct {
	Data   []byte
	Stride int
}

// RawFrame is a frame as delivered by a source, before normalization.
// The planes may alias source-owned storage; Release hands it back.
type RawFrame struct {
	Format    PixelFormat
	Width     int
	Height    int
	Planes    []Plane
	Seq       uint64
	Timestamp time.Time

	release     func()
	releaseOnce sync.Once
}

// NewRawFrame wraps planes in a frame. release may be nil.
func NewRawFrame(format PixelFormat, width, height int, planes []Plane, release func()) *RawFrame {
	return &RawFrame{
		Format:    format,
		Width:     width,
		Height:    height,
		Planes:    planes,
		Timestamp: time.Now(),
		release:   release,
	}
}

// Release returns the frame's storage to its source. Safe to call more than once.
func (f *RawFrame) Release() {
	if f == nil {
		return
	}
	f.releaseOnce.Do(func() {
		if f.release != nil {
			f.release()
		}
	})
}
