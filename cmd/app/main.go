// Edge Gradient Stream: Sobel edge magnitude for live cameras and still images

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"

	"edge-gradient-stream/internal/algorithms"
	"edge-gradient-stream/internal/capture"
	"edge-gradient-stream/internal/config"
	"edge-gradient-stream/internal/core"
	"edge-gradient-stream/internal/gui"
	"edge-gradient-stream/internal/io"
	"edge-gradient-stream/internal/metrics"
	"edge-gradient-stream/internal/pipeline"
)

const (
	AppName    = "Edge Gradient Stream"
	AppID      = "io.github.edge-gradient-stream"
	AppVersion = "1.0.0"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger := initLogger(cfg.Debug)
	logger.WithFields(logrus.Fields{
		"version":   AppVersion,
		"algorithm": cfg.Algorithm,
		"threads":   cfg.Threads,
		"camera":    cfg.Camera,
		"input":     cfg.Input,
		"headless":  cfg.Headless,
	}).Info("Starting " + AppName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case cfg.CameraMode() && cfg.Headless:
		return runCamera(ctx, cfg, logger)
	case !cfg.CameraMode() && cfg.Output != "":
		return runFile(ctx, cfg, logger)
	}
	return runGUI(cfg, logger)
}

// runFile filters one image and writes it. Any failure, including a failed
// write, exits non-zero.
func runFile(ctx context.Context, cfg *config.Config, logger *logrus.Logger) int {
	loader := io.NewImageLoader(logger)
	frame, err := loader.LoadImage(cfg.Input)
	if err != nil {
		logger.WithError(err).Error("Failed to load input")
		return 1
	}

	proc := pipeline.NewProcessor(algorithms.MustGet(cfg.Algorithm), logger)
	workers := pipeline.NewParallelism(cfg.Threads).Load()
	sink := &pipeline.LatestSink{}

	start := time.Now()
	if err := <-pipeline.NewOneShot(proc, logger).Process(ctx, frame, cfg.OrientationFor(core.FacingExternal), workers, sink); err != nil {
		logger.WithError(err).Error("Processing failed")
		return 1
	}
	elapsed := time.Since(start)

	img, _ := sink.Latest()
	if err := loader.SaveImage(img, cfg.Output); err != nil {
		logger.WithError(err).Error("Failed to write output")
		return 1
	}

	logger.WithFields(logrus.Fields{
		"input":      cfg.Input,
		"output":     cfg.Output,
		"workers":    workers,
		"elapsed_ms": elapsed.Milliseconds(),
	}).Info("Image processed")
	return 0
}

// runCamera streams until interrupted, the run time elapses or the source
// fails. With -output the last result is written on exit.
func runCamera(ctx context.Context, cfg *config.Config, logger *logrus.Logger) int {
	facing := cfg.FacingValue()
	device := cfg.Camera
	if facing == core.FacingFront && cfg.FrontCamera != "" {
		device = cfg.FrontCamera
	}

	src, err := capture.Open(capture.Options{
		Device: device,
		Facing: facing,
		Width:  cfg.FrameWidth,
		Height: cfg.FrameHeight,
		FPS:    cfg.FPS,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Cannot start camera mode")
		return 1
	}
	defer src.Close()

	rate := metrics.NewRateMonitor(func(fps float64) {
		logger.WithField("fps", fps).Info("Frame rate")
	})
	sink := &pipeline.LatestSink{}
	live := pipeline.NewLive(pipeline.LiveConfig{
		Processor:   pipeline.NewProcessor(algorithms.MustGet(cfg.Algorithm), logger),
		Parallelism: pipeline.NewParallelism(cfg.Threads),
		Rate:        rate,
		Logger:      logger,
	}, sink, cfg.OrientationFor(facing))

	stream, err := pipeline.StartStream(ctx, src, live, logger)
	if err != nil {
		logger.WithError(err).Error("Cannot start camera mode")
		return 1
	}

	var deadline <-chan time.Time
	if d := cfg.RunTime(); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-ctx.Done():
		logger.Info("Interrupted")
	case <-deadline:
		logger.WithField("run_time", cfg.RunTime()).Info("Run time elapsed")
	case <-stream.Done():
	}

	streamErr := stream.Stop()
	stats := live.Stats()
	logger.WithFields(rate.Summary().Fields()).WithFields(logrus.Fields{
		"submitted": stats.Submitted,
		"dropped":   stats.Dropped,
		"processed": stats.Processed,
		"failed":    stats.Failed,
	}).Info("Camera mode finished")
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.WithFields(metrics.ReadMemory().Fields()).Debug("Memory at exit")
	}

	status := 0
	if streamErr != nil {
		status = 1
	}

	if cfg.Output != "" {
		img, _ := sink.Latest()
		if img == nil {
			logger.Error("No frame was processed, nothing to save")
			return 1
		}
		if err := io.NewImageLoader(logger).SaveImage(img, cfg.Output); err != nil {
			logger.WithError(err).Error("Failed to write output")
			return 1
		}
	}
	return status
}

func runGUI(cfg *config.Config, logger *logrus.Logger) int {
	myApp := app.NewWithID(AppID)
	myApp.SetIcon(theme.MediaVideoIcon())
	myApp.Settings().SetTheme(theme.DefaultTheme())

	mainApp, err := gui.NewApplication(myApp, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to create application")
		return 1
	}
	mainApp.ShowAndRun()

	logger.Info("Application shutting down gracefully")
	return 0
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
