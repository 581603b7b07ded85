package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"edge-gradient-stream/internal/algorithms"
	"edge-gradient-stream/internal/core"
	"edge-gradient-stream/internal/pipeline"
)

// Config is the process configuration. Precedence: defaults, then the YAML
// file named by -config, then command line flags.
type Config struct {
	ConfigFile string `yaml:"-"`

	Input  string `yaml:"input"`
	Output string `yaml:"output"`

	Camera      string  `yaml:"camera"`       // device index, video file/URL, or "synthetic"
	FrontCamera string  `yaml:"front_camera"` // optional second device for the camera toggle
	Facing      string  `yaml:"facing"`       // external, back, front
	Orientation string  `yaml:"orientation"`  // overrides the facing-derived orientation
	FrameWidth  int     `yaml:"frame_width"`
	FrameHeight int     `yaml:"frame_height"`
	FPS         float64 `yaml:"fps"` // synthetic source only

	Threads        int           `yaml:"threads"`
	Algorithm      string        `yaml:"algorithm"`
	RunTimeSeconds int           `yaml:"run_time_s"` // 0 runs until interrupted
	IdleTimeout    time.Duration `yaml:"idle_timeout"`

	Headless bool `yaml:"headless"`
	Debug    bool `yaml:"debug"`
}

// Default mirrors the original tool: one thread, 1920x1080 capture, 60 s idle close.
func Default() *Config {
	return &Config{
		Facing:      "external",
		FrameWidth:  1920,
		FrameHeight: 1080,
		FPS:         30,
		Threads:     1,
		Algorithm:   algorithms.SobelName,
		IdleTimeout: pipeline.DefaultIdleTimeout,
	}
}

// RegisterFlags binds every option to fs. Short aliases follow the original CLI.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "YAML configuration file")

	fs.StringVar(&c.Input, "input", c.Input, "Still image to filter")
	fs.StringVar(&c.Input, "i", c.Input, "Shorthand for -input")
	fs.StringVar(&c.Output, "output", c.Output, "Where to write the filtered image")
	fs.StringVar(&c.Output, "o", c.Output, "Shorthand for -output")

	fs.StringVar(&c.Camera, "camera", c.Camera, `Camera index, video file/URL, or "synthetic"`)
	fs.StringVar(&c.Camera, "c", c.Camera, "Shorthand for -camera")
	fs.StringVar(&c.FrontCamera, "front-camera", c.FrontCamera, "Second camera used by the front/back toggle")
	fs.StringVar(&c.Facing, "facing", c.Facing, "Camera facing: external, back or front")
	fs.StringVar(&c.Orientation, "orientation", c.Orientation, "Override output orientation: normal, rot90 or rot270m")
	fs.IntVar(&c.FrameWidth, "frame-width", c.FrameWidth, "Requested capture width")
	fs.IntVar(&c.FrameHeight, "frame-height", c.FrameHeight, "Requested capture height")
	fs.Float64Var(&c.FPS, "fps", c.FPS, "Frame rate of the synthetic source")

	fs.IntVar(&c.Threads, "threads", c.Threads, "Initial number of filter workers")
	fs.IntVar(&c.Threads, "t", c.Threads, "Shorthand for -threads")
	fs.StringVar(&c.Algorithm, "algorithm", c.Algorithm, "Gradient algorithm")
	fs.IntVar(&c.RunTimeSeconds, "run-time", c.RunTimeSeconds, "Stop camera mode after this many seconds (0 = unlimited)")
	fs.IntVar(&c.RunTimeSeconds, "T", c.RunTimeSeconds, "Shorthand for -run-time")
	fs.DurationVar(&c.IdleTimeout, "idle-timeout", c.IdleTimeout, "Close the camera view after this long without interaction (0 disables)")

	fs.BoolVar(&c.Headless, "headless", c.Headless, "Run without a window")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Enable debug mode with verbose logging")
}

// Load builds a Config from args. output receives flag usage text.
func Load(args []string, output io.Writer) (*Config, error) {
	cfg := Default()
	if err := cfg.parse(args, output); err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		path := cfg.ConfigFile
		cfg = Default()
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
		// flags win over the file
		if err := cfg.parse(args, output); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parse(args []string, output io.Writer) error {
	fs := flag.NewFlagSet("edge-gradient-stream", flag.ContinueOnError)
	fs.SetOutput(output)
	c.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.ConfigFile = path
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.Input == "" && c.Camera == "":
		errs = append(errs, errors.New("either -input or -camera is required"))
	case c.Input != "" && c.Camera != "":
		errs = append(errs, errors.New("-input and -camera are mutually exclusive"))
	}
	if c.Input != "" && c.Headless && c.Output == "" {
		errs = append(errs, errors.New("headless file mode requires -output"))
	}

	if c.Threads < 1 {
		errs = append(errs, fmt.Errorf("threads must be >= 1, got %d", c.Threads))
	}
	if c.RunTimeSeconds < 0 {
		errs = append(errs, fmt.Errorf("run-time must be >= 0, got %d", c.RunTimeSeconds))
	}
	if c.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("idle-timeout must be >= 0, got %s", c.IdleTimeout))
	}
	if c.FrameWidth < 0 || c.FrameHeight < 0 {
		errs = append(errs, fmt.Errorf("invalid frame size %dx%d", c.FrameWidth, c.FrameHeight))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be > 0, got %g", c.FPS))
	}
	if !algorithms.IsValidAlgorithm(c.Algorithm) {
		errs = append(errs, fmt.Errorf("unknown algorithm %q (available: %v)", c.Algorithm, algorithms.Names()))
	}
	if _, err := core.ParseFacing(c.Facing); err != nil {
		errs = append(errs, err)
	}
	if c.Orientation != "" {
		if _, err := core.ParseOrientation(c.Orientation); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// FacingValue returns the parsed facing. Call after Validate.
func (c *Config) FacingValue() core.Facing {
	f, _ := core.ParseFacing(c.Facing)
	return f
}

// OrientationFor returns the explicit orientation if one is configured,
// otherwise the orientation matching facing.
func (c *Config) OrientationFor(facing core.Facing) core.Orientation {
	if c.Orientation != "" {
		if o, err := core.ParseOrientation(c.Orientation); err == nil {
			return o
		}
	}
	return core.OrientationForFacing(facing)
}

func (c *Config) RunTime() time.Duration {
	return time.Duration(c.RunTimeSeconds) * time.Second
}

// CameraMode reports whether frames come from a live source.
func (c *Config) CameraMode() bool { return c.Camera != "" }
