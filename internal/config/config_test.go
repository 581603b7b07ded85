package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edge-gradient-stream/internal/core"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load([]string{"-camera", "0"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "0", cfg.Camera)
	assert.Equal(t, 1, cfg.Threads)
	assert.Equal(t, 1920, cfg.FrameWidth)
	assert.Equal(t, 1080, cfg.FrameHeight)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	assert.Equal(t, "sobel", cfg.Algorithm)
	assert.True(t, cfg.CameraMode())
	assert.Zero(t, cfg.RunTime())
}

func TestLoadShortFlags(t *testing.T) {
	t.Parallel()

	cfg, err := Load([]string{"-i", "in.png", "-o", "out.png", "-t", "4", "-headless"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "in.png", cfg.Input)
	assert.Equal(t, "out.png", cfg.Output)
	assert.Equal(t, 4, cfg.Threads)
	assert.False(t, cfg.CameraMode())

	cfg, err = Load([]string{"-c", "synthetic", "-T", "5"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.RunTime())
}

func TestLoadFileThenFlags(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
camera: synthetic
facing: front
threads: 3
idle_timeout: 5s
run_time_s: 10
frame_width: 640
frame_height: 480
`), 0o644))

	cfg, err := Load([]string{"-config", path, "-threads", "2"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "synthetic", cfg.Camera)
	assert.Equal(t, core.FacingFront, cfg.FacingValue())
	assert.Equal(t, 2, cfg.Threads, "flag overrides file")
	assert.Equal(t, 5*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.RunTime())
	assert.Equal(t, 640, cfg.FrameWidth)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := Load([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}, io.Discard)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("threads: [1, 2"), 0o644))
	_, err = Load([]string{"-config", bad}, io.Discard)
	assert.Error(t, err)

	_, err = Load([]string{"-no-such-flag"}, io.Discard)
	assert.Error(t, err)

	_, err = Load([]string{"-camera", "0", "extra"}, io.Discard)
	assert.ErrorContains(t, err, "unexpected arguments")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"no source", func(c *Config) { c.Camera = "" }, "either -input or -camera"},
		{"both sources", func(c *Config) { c.Input = "a.png" }, "mutually exclusive"},
		{"headless file without output", func(c *Config) { c.Camera, c.Input, c.Headless = "", "a.png", true }, "requires -output"},
		{"zero threads", func(c *Config) { c.Threads = 0 }, "threads"},
		{"negative run time", func(c *Config) { c.RunTimeSeconds = -1 }, "run-time"},
		{"negative idle timeout", func(c *Config) { c.IdleTimeout = -time.Second }, "idle-timeout"},
		{"bad frame size", func(c *Config) { c.FrameWidth = -1 }, "frame size"},
		{"bad fps", func(c *Config) { c.FPS = 0 }, "fps"},
		{"unknown algorithm", func(c *Config) { c.Algorithm = "canny" }, "unknown algorithm"},
		{"unknown facing", func(c *Config) { c.Facing = "up" }, "facing"},
		{"unknown orientation", func(c *Config) { c.Orientation = "upside" }, "orientation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			cfg.Camera = "0"
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}

	cfg := Default()
	cfg.Camera = "0"
	assert.NoError(t, cfg.Validate())
}

func TestOrientationFor(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, core.OrientationRotated90, cfg.OrientationFor(core.FacingBack))
	assert.Equal(t, core.OrientationRotated270Mirrored, cfg.OrientationFor(core.FacingFront))
	assert.Equal(t, core.OrientationNormal, cfg.OrientationFor(core.FacingExternal))

	cfg.Orientation = "rot90"
	assert.Equal(t, core.OrientationRotated90, cfg.OrientationFor(core.FacingFront))
}
