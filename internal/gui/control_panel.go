package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"edge-gradient-stream/internal/pipeline"
)

// ControlPanel holds the worker slider, the FPS readout and the action buttons.
type ControlPanel struct {
	parallelism *pipeline.Parallelism
	logger      *logrus.Logger

	container *fyne.Container

	threadsSlider *widget.Slider
	threadsLabel  *widget.Label
	fpsLabel      *widget.Label
	statusLabel   *widget.Label

	openBtn   *widget.Button
	saveBtn   *widget.Button
	toggleBtn *widget.Button

	// Callbacks
	onInteraction func()
	onOpen        func()
	onSave        func()
	onToggle      func()
}

func NewControlPanel(parallelism *pipeline.Parallelism, logger *logrus.Logger) *ControlPanel {
	cp := &ControlPanel{
		parallelism: parallelism,
		logger:      logger,
	}

	cp.initializeUI()
	return cp
}

func (cp *ControlPanel) initializeUI() {
	cp.threadsLabel = widget.NewLabel("")
	cp.threadsSlider = widget.NewSlider(1, float64(cp.parallelism.Max()))
	cp.threadsSlider.Step = 1
	cp.threadsSlider.SetValue(float64(cp.parallelism.Load()))
	cp.updateThreadsLabel(cp.parallelism.Load())
	cp.threadsSlider.OnChanged = func(value float64) {
		n := cp.parallelism.Set(int(value))
		cp.updateThreadsLabel(n)
		cp.interacted()
	}
	cp.threadsSlider.OnChangeEnded = func(value float64) {
		cp.logger.WithField("workers", cp.parallelism.Load()).Info("GUI: Worker count changed")
	}

	cp.fpsLabel = widget.NewLabelWithStyle("FPS: -", fyne.TextAlignTrailing, fyne.TextStyle{Monospace: true})
	cp.statusLabel = widget.NewLabel("Ready")
	cp.statusLabel.Truncation = fyne.TextTruncateEllipsis

	cp.openBtn = widget.NewButtonWithIcon("Open", theme.FolderOpenIcon(), func() {
		cp.interacted()
		if cp.onOpen != nil {
			cp.onOpen()
		}
	})
	cp.saveBtn = widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), func() {
		cp.interacted()
		if cp.onSave != nil {
			cp.onSave()
		}
	})
	cp.saveBtn.Importance = widget.HighImportance
	cp.toggleBtn = widget.NewButtonWithIcon("Switch camera", theme.ViewRefreshIcon(), func() {
		cp.interacted()
		if cp.onToggle != nil {
			cp.onToggle()
		}
	})

	threads := container.NewBorder(nil, nil, widget.NewLabel("Threads"), cp.threadsLabel, cp.threadsSlider)
	buttons := container.NewHBox(cp.openBtn, cp.saveBtn, cp.toggleBtn)

	cp.container = container.NewVBox(
		widget.NewSeparator(),
		container.NewBorder(nil, nil, buttons, cp.fpsLabel, threads),
		cp.statusLabel,
	)
}

func (cp *ControlPanel) GetContainer() fyne.CanvasObject {
	return cp.container
}

func (cp *ControlPanel) SetCallbacks(onInteraction, onOpen, onSave, onToggle func()) {
	cp.onInteraction = onInteraction
	cp.onOpen = onOpen
	cp.onSave = onSave
	cp.onToggle = onToggle
}

// SetCameraMode shows the controls that only make sense for one of the two modes.
// Must run on the UI goroutine.
func (cp *ControlPanel) SetCameraMode(camera bool) {
	if camera {
		cp.openBtn.Hide()
		cp.toggleBtn.Show()
		cp.fpsLabel.Show()
		return
	}
	cp.openBtn.Show()
	cp.toggleBtn.Hide()
	cp.fpsLabel.Hide()
}

// SetFPS may be called from any goroutine.
func (cp *ControlPanel) SetFPS(fps float64) {
	fyne.Do(func() {
		cp.fpsLabel.SetText(fmt.Sprintf("FPS: %.0f", fps))
	})
}

// SetStatus may be called from any goroutine.
func (cp *ControlPanel) SetStatus(msg string) {
	fyne.Do(func() {
		cp.statusLabel.SetText(msg)
	})
}

func (cp *ControlPanel) updateThreadsLabel(n int) {
	cp.threadsLabel.SetText(fmt.Sprintf("%d / %d", n, cp.parallelism.Max()))
}

func (cp *ControlPanel) interacted() {
	if cp.onInteraction != nil {
		cp.onInteraction()
	}
}

// SetThreads moves the slider, which updates the shared worker count.
// Must run on the UI goroutine.
func (cp *ControlPanel) SetThreads(n int) {
	cp.threadsSlider.SetValue(float64(n))
}
