// Still image loading and result saving
package io

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"edge-gradient-stream/internal/core"
)

// ErrUnsupportedFormat is returned for file extensions the loader cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ImageLoader handles image file operations
type ImageLoader struct {
	logger *logrus.Logger
}

func NewImageLoader(logger *logrus.Logger) *ImageLoader {
	return &ImageLoader{
		logger: logger,
	}
}

// LoadImage decodes a still image into a raw frame ready for normalization.
func (il *ImageLoader) LoadImage(path string) (*core.RawFrame, error) {
	il.logger.WithField("filepath", path).Debug("LOADER: Loading image")

	if !il.isSupportedImageFormat(path, readFormats) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	frame, err := FrameFromImage(img)
	if err != nil {
		return nil, err
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"decoder":  format,
		"width":    frame.Width,
		"height":   frame.Height,
		"layout":   frame.Format.String(),
	}).Info("LOADER: Image loaded successfully")

	return frame, nil
}

// FrameFromImage wraps a decoded image as a raw frame without copying when the
// pixel layout is directly usable. The frame aliases img.
func FrameFromImage(img image.Image) (*core.RawFrame, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: invalid image dimensions %dx%d", core.ErrInvalidShape, w, h)
	}

	switch src := img.(type) {
	case *image.Gray:
		off := src.PixOffset(b.Min.X, b.Min.Y)
		return core.NewRawFrame(core.FormatGray8, w, h, []core.Plane{{Data: src.Pix[off:], Stride: src.Stride}}, nil), nil

	case *image.YCbCr:
		// luma first; chroma planes ride along but are never read
		return core.NewRawFrame(core.FormatYUV420, w, h, []core.Plane{
			{Data: src.Y[src.YOffset(b.Min.X, b.Min.Y):], Stride: src.YStride},
			{Data: src.Cb, Stride: src.CStride},
			{Data: src.Cr, Stride: src.CStride},
		}, nil), nil

	case *image.RGBA:
		off := src.PixOffset(b.Min.X, b.Min.Y)
		return core.NewRawFrame(core.FormatRGBA, w, h, []core.Plane{{Data: src.Pix[off:], Stride: src.Stride}}, nil), nil

	case *image.NRGBA:
		off := src.PixOffset(b.Min.X, b.Min.Y)
		return core.NewRawFrame(core.FormatRGBA, w, h, []core.Plane{{Data: src.Pix[off:], Stride: src.Stride}}, nil), nil
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	return core.NewRawFrame(core.FormatRGBA, w, h, []core.Plane{{Data: rgba.Pix, Stride: rgba.Stride}}, nil), nil
}

// SaveImage encodes img to path, choosing the encoder from the extension.
// Any write or close failure is reported.
func (il *ImageLoader) SaveImage(img image.Image, path string) (err error) {
	il.logger.WithField("filepath", path).Debug("LOADER: Saving image")

	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("cannot save empty image")
	}
	if !il.isSupportedImageFormat(path, writeFormats) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to save image %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if err := encode(w, img, getFileExtension(path)); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    img.Bounds().Dx(),
		"height":   img.Bounds().Dy(),
	}).Info("LOADER: Image saved successfully")
	return nil
}

func encode(w *bufio.Writer, img image.Image, ext string) error {
	switch ext {
	case ".png":
		return png.Encode(w, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case ".bmp":
		return bmp.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

var (
	readFormats  = []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp", ".webp"}
	writeFormats = []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp"}
)

func (il *ImageLoader) isSupportedImageFormat(path string, formats []string) bool {
	ext := getFileExtension(path)
	for _, format := range formats {
		if ext == format {
			return true
		}
	}
	return false
}

func getFileExtension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func (il *ImageLoader) GetSupportedFormats() []string {
	return []string{"JPEG", "PNG", "TIFF", "BMP", "WEBP (read only)"}
}
