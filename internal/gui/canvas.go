// Gradient image display
package gui

import (
	"image"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"
)

// Viewer shows the newest gradient image. It implements pipeline.Sink and may
// be called from any goroutine; widget updates are marshalled with fyne.Do.
type Viewer struct {
	logger *logrus.Logger

	image *canvas.Image
	busy  *widget.ProgressBarInfinite
	card  *widget.Card
	root  fyne.CanvasObject

	mu        sync.Mutex
	latest    image.Image
	delivered uint64

	// set while a refresh is queued on the UI goroutine
	refreshQueued atomic.Bool
}

func NewViewer(logger *logrus.Logger) *Viewer {
	v := &Viewer{logger: logger}
	v.initializeUI()
	return v
}

func (v *Viewer) initializeUI() {
	placeholder := image.NewGray(image.Rect(0, 0, 320, 240))
	for i := range placeholder.Pix {
		placeholder.Pix[i] = 24
	}

	v.image = canvas.NewImageFromImage(placeholder)
	v.image.FillMode = canvas.ImageFillContain
	v.image.ScaleMode = canvas.ImageScaleFastest
	v.image.SetMinSize(fyne.NewSize(320, 240))

	v.busy = widget.NewProgressBarInfinite()
	v.busy.Stop()
	v.busy.Hide()

	v.card = widget.NewCard("Edges", "", v.image)
	v.root = container.NewBorder(nil, v.busy, nil, nil, v.card)
}

func (v *Viewer) GetContainer() fyne.CanvasObject {
	return v.root
}

// Deliver stores img and schedules a repaint. Repaints coalesce, so a slow UI
// only ever shows the newest image.
func (v *Viewer) Deliver(img image.Image) {
	v.mu.Lock()
	v.latest = img
	v.delivered++
	v.mu.Unlock()

	if !v.refreshQueued.CompareAndSwap(false, true) {
		return
	}
	fyne.Do(func() {
		v.refreshQueued.Store(false)
		current, _ := v.Latest()
		v.image.Image = current
		v.image.Refresh()
	})
}

func (v *Viewer) SetBusy(busy bool) {
	v.logger.WithField("busy", busy).Debug("GUI: Busy state changed")
	fyne.Do(func() {
		if busy {
			v.busy.Show()
			v.busy.Start()
			return
		}
		v.busy.Stop()
		v.busy.Hide()
	})
}

// Latest returns the image on display and the number of images delivered so far.
func (v *Viewer) Latest() (image.Image, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latest, v.delivered
}

// SetSubtitle labels the view. Must run on the UI goroutine.
func (v *Viewer) SetSubtitle(s string) {
	v.card.SetSubTitle(s)
}
