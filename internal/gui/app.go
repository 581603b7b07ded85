// Main window: live camera view or still image view
package gui

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"github.com/sirupsen/logrus"

	"edge-gradient-stream/internal/algorithms"
	"edge-gradient-stream/internal/capture"
	"edge-gradient-stream/internal/config"
	"edge-gradient-stream/internal/core"
	"edge-gradient-stream/internal/io"
	"edge-gradient-stream/internal/metrics"
	"edge-gradient-stream/internal/pipeline"
)

// Application owns the window and whichever pipeline feeds it.
type Application struct {
	app    fyne.App
	window fyne.Window
	logger *logrus.Logger
	cfg    *config.Config

	// Core components
	loader      *io.ImageLoader
	processor   *pipeline.Processor
	oneShot     *pipeline.OneShot
	parallelism *pipeline.Parallelism
	rate        *metrics.RateMonitor
	watchdog    *pipeline.Watchdog
	runTimer    *time.Timer

	// GUI components
	viewer      *Viewer
	controls    *ControlPanel
	menuHandler *MenuHandler

	ctx    context.Context
	cancel context.CancelFunc

	// camera state, guarded by mu
	mu     sync.Mutex
	stream *pipeline.Stream
	source capture.Source
	facing core.Facing

	cleanupOnce sync.Once
}

func NewApplication(app fyne.App, cfg *config.Config, logger *logrus.Logger) (*Application, error) {
	algorithm, ok := algorithms.Get(cfg.Algorithm)
	if !ok {
		return nil, fmt.Errorf("unknown algorithm %q", cfg.Algorithm)
	}

	window := app.NewWindow("Edge Gradient Stream")
	window.Resize(fyne.NewSize(1280, 800))
	window.CenterOnScreen()

	a := &Application{
		app:    app,
		window: window,
		logger: logger,
		cfg:    cfg,
		facing: cfg.FacingValue(),
	}

	a.initializeCore(algorithm)
	a.initializeGUI()
	a.setupLayout()
	a.setupCallbacks()

	return a, nil
}

func (a *Application) initializeCore(algorithm algorithms.Algorithm) {
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.loader = io.NewImageLoader(a.logger)
	a.processor = pipeline.NewProcessor(algorithm, a.logger)
	a.oneShot = pipeline.NewOneShot(a.processor, a.logger)
	a.parallelism = pipeline.NewParallelism(a.cfg.Threads)
	a.rate = metrics.NewRateMonitor(a.onRate)

	idle := time.Duration(0)
	if a.cfg.CameraMode() {
		idle = a.cfg.IdleTimeout
	}
	a.watchdog = pipeline.NewWatchdog(idle, a.onIdle)
}

func (a *Application) initializeGUI() {
	a.viewer = NewViewer(a.logger)
	a.controls = NewControlPanel(a.parallelism, a.logger)
	a.menuHandler = NewMenuHandler(a.window, a.viewer, a.loader, a.logger)
}

func (a *Application) setupLayout() {
	a.window.SetMainMenu(a.menuHandler.GetMainMenu(a.cfg.CameraMode()))
	a.window.SetContent(container.NewBorder(nil, a.controls.GetContainer(), nil, nil, a.viewer.GetContainer()))
	a.controls.SetCameraMode(a.cfg.CameraMode())
}

func (a *Application) setupCallbacks() {
	a.controls.SetCallbacks(
		a.watchdog.Kick,
		a.menuHandler.OpenImage,
		a.menuHandler.SaveImage,
		a.SwitchCamera,
	)

	a.menuHandler.SetCallbacks(
		// onImageSelected
		func(path string) {
			go a.ProcessStill(path)
		},
		// onImageSaved
		func(path string) {
			a.watchdog.Kick()
			a.controls.SetStatus("Saved " + path)
		},
		a.SwitchCamera,
	)

	// keys of the original camera tool: s saves, digits set workers, q quits
	a.window.Canvas().SetOnTypedRune(func(r rune) {
		a.watchdog.Kick()
		switch {
		case r == 's':
			go a.quickSave()
		case r == 'q':
			a.Quit()
		case r >= '1' && r <= '9':
			a.controls.SetThreads(int(r - '0'))
		}
	})
}

func (a *Application) ShowAndRun() {
	a.logger.WithFields(logrus.Fields{
		"camera_mode": a.cfg.CameraMode(),
		"workers":     a.parallelism.Load(),
		"max_workers": a.parallelism.Max(),
	}).Info("GUI: Showing main window")

	a.window.SetCloseIntercept(a.Quit)

	if a.cfg.CameraMode() {
		go a.startCamera(a.facing)
		if d := a.cfg.RunTime(); d > 0 {
			a.runTimer = time.AfterFunc(d, func() {
				a.logger.WithField("run_time", d).Info("GUI: Run time elapsed")
				fyne.Do(a.Quit)
			})
		}
	} else if a.cfg.Input != "" {
		go a.ProcessStill(a.cfg.Input)
	}

	a.window.ShowAndRun()
}

// Quit stops all processing and exits the event loop. Safe to call repeatedly.
func (a *Application) Quit() {
	a.cleanup()
	a.app.Quit()
}

func (a *Application) cleanup() {
	a.cleanupOnce.Do(func() {
		a.logger.Info("GUI: Cleaning up application resources")
		if a.runTimer != nil {
			a.runTimer.Stop()
		}
		a.watchdog.Stop()
		a.cancel()

		a.mu.Lock()
		a.stopCameraLocked()
		a.mu.Unlock()

		if a.cfg.CameraMode() {
			a.logger.WithFields(a.rate.Summary().Fields()).Info("GUI: Frame rate summary")
		}
		if a.logger.IsLevelEnabled(logrus.DebugLevel) {
			a.logger.WithFields(metrics.ReadMemory().Fields()).Debug("GUI: Memory at exit")
		}
	})
}

func (a *Application) startCamera(facing core.Facing) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ctx.Err() != nil {
		return
	}

	src, err := capture.Open(capture.Options{
		Device: a.deviceFor(facing),
		Facing: facing,
		Width:  a.cfg.FrameWidth,
		Height: a.cfg.FrameHeight,
		FPS:    a.cfg.FPS,
	}, a.logger)
	if err != nil {
		a.showError("Camera Unavailable", err)
		return
	}

	orientation := a.cfg.OrientationFor(facing)
	live := pipeline.NewLive(pipeline.LiveConfig{
		Processor:   a.processor,
		Parallelism: a.parallelism,
		Rate:        a.rate,
		Logger:      a.logger,
	}, a.viewer, orientation)

	stream, err := pipeline.StartStream(a.ctx, src, live, a.logger)
	if err != nil {
		src.Close()
		a.showError("Camera Unavailable", err)
		return
	}

	a.stream, a.source, a.facing = stream, src, facing
	a.watchdog.Kick()
	go a.watchStream(stream)

	a.controls.SetStatus(fmt.Sprintf("Streaming from %s", a.deviceFor(facing)))
	fyne.Do(func() {
		a.viewer.SetSubtitle(fmt.Sprintf("%s camera, %s", facing, orientation))
	})
}

func (a *Application) watchStream(stream *pipeline.Stream) {
	<-stream.Done()
	if err := stream.Err(); err != nil {
		a.showError("Camera Stopped", err)
	}
}

// stopCameraLocked tears down the running stream. Every frame is back with
// its source before the source is closed.
func (a *Application) stopCameraLocked() {
	if a.stream == nil {
		return
	}
	a.stream.Stop()
	if err := a.source.Close(); err != nil {
		a.logger.WithError(err).Warn("GUI: Closing camera failed")
	}
	a.stream, a.source = nil, nil
}

// SwitchCamera toggles between front and back facing. With a second device
// configured the stream is rebuilt on it; otherwise only the orientation changes.
func (a *Application) SwitchCamera() {
	go func() {
		a.mu.Lock()
		next := a.facing.Opposite()
		if next == core.FacingExternal {
			next = core.FacingFront
		}
		a.logger.WithFields(logrus.Fields{
			"from": a.facing.String(),
			"to":   next.String(),
		}).Info("GUI: Switching camera")

		if a.cfg.FrontCamera == "" {
			if a.stream != nil {
				orientation := a.cfg.OrientationFor(next)
				a.stream.Live().Rebind(a.viewer, orientation)
				fyne.Do(func() {
					a.viewer.SetSubtitle(fmt.Sprintf("%s camera, %s", next, orientation))
				})
			}
			a.facing = next
			a.mu.Unlock()
			return
		}

		a.stopCameraLocked()
		a.mu.Unlock()
		a.startCamera(next)
	}()
}

func (a *Application) deviceFor(facing core.Facing) string {
	if facing == core.FacingFront && a.cfg.FrontCamera != "" {
		return a.cfg.FrontCamera
	}
	return a.cfg.Camera
}

// ProcessStill filters one image file and shows the result. Blocks until done.
func (a *Application) ProcessStill(path string) {
	frame, err := a.loader.LoadImage(path)
	if err != nil {
		a.showError("Failed to Load Image", err)
		return
	}

	workers := a.parallelism.Load()
	a.controls.SetStatus("Processing " + filepath.Base(path))
	start := time.Now()

	done := a.oneShot.Process(a.ctx, frame, a.cfg.OrientationFor(core.FacingExternal), workers, a.viewer)
	if err := <-done; err != nil {
		a.showError("Processing Failed", err)
		return
	}

	elapsed := time.Since(start)
	a.controls.SetStatus(fmt.Sprintf("%s processed in %s with %d workers", filepath.Base(path), elapsed.Round(time.Millisecond), workers))
	fyne.Do(func() {
		a.viewer.SetSubtitle(filepath.Base(path))
	})
}

// quickSave writes the current image without a dialog, like the original 's' key.
func (a *Application) quickSave() {
	img, _ := a.viewer.Latest()
	if img == nil {
		return
	}
	path := a.cfg.Output
	if path == "" {
		path = "sobel.png"
	}
	if err := a.loader.SaveImage(img, path); err != nil {
		a.showError("Failed to Save Image", err)
		return
	}
	a.controls.SetStatus("Saved " + path)
}

func (a *Application) onRate(fps float64) {
	a.controls.SetFPS(fps)
	a.logger.WithField("fps", fps).Debug("GUI: Frame rate")
}

func (a *Application) onIdle() {
	a.logger.WithField("idle_timeout", a.cfg.IdleTimeout).Info("GUI: No interaction, closing camera view")
	fyne.Do(a.Quit)
}

// showError may be called from any goroutine.
func (a *Application) showError(title string, err error) {
	a.logger.WithError(err).Error("GUI: " + title)
	a.controls.SetStatus(fmt.Sprintf("%s: %v", title, err))
	fyne.Do(func() {
		dialog.ShowError(err, a.window)
	})
}
