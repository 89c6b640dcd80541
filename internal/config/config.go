// Package config loads and saves the editor settings file.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/ha1tch/netcanvas/pkg/viewport"
)

// Config holds netcanvas settings.
type Config struct {
	Viewport ViewportConfig `toml:"viewport"`
	Editor   EditorConfig   `toml:"editor"`
	Export   ExportConfig   `toml:"export"`
}

// ViewportConfig bounds zoom and sets the keyboard steps.
type ViewportConfig struct {
	MinScale float64 `toml:"min_scale"`
	MaxScale float64 `toml:"max_scale"`
	ZoomStep float64 `toml:"zoom_step"`
	PanStep  float64 `toml:"pan_step"`
}

// EditorConfig controls the terminal editor.
type EditorConfig struct {
	LastDir      string `toml:"last_dir"`
	ExportFormat string `toml:"export_format"` // "png" or "svg"
	CellWidth    int    `toml:"cell_width"`
	CellHeight   int    `toml:"cell_height"`
}

// ExportConfig sizes rendered images.
type ExportConfig struct {
	Width   int `toml:"width"`
	Height  int `toml:"height"`
	Padding int `toml:"padding"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Viewport: ViewportConfig{
			MinScale: viewport.DefaultMinScale,
			MaxScale: viewport.DefaultMaxScale,
			ZoomStep: 0.1,
			PanStep:  20,
		},
		Editor: EditorConfig{ExportFormat: "png", CellWidth: 8, CellHeight: 16},
		Export: ExportConfig{Width: 1200, Height: 800, Padding: 40},
	}
}

// Dir returns the netcanvas config directory.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "netcanvas")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the file at path. A missing file yields the defaults; a file
// that does not parse yields the defaults and a warning.
func Load(path string, logger *slog.Logger) *Config {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("config unreadable, using defaults", "path", path, "err", err)
		}
		return cfg
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		logger.Warn("config malformed, using defaults", "path", path, "err", err)
		return Default()
	}
	cfg.normalize()
	return cfg
}

// normalize replaces out-of-range values with their defaults.
func (c *Config) normalize() {
	d := Default()
	if c.Viewport.MinScale <= 0 {
		c.Viewport.MinScale = d.Viewport.MinScale
	}
	if c.Viewport.MaxScale < c.Viewport.MinScale {
		c.Viewport.MaxScale = max(d.Viewport.MaxScale, c.Viewport.MinScale)
	}
	if c.Viewport.ZoomStep <= 0 {
		c.Viewport.ZoomStep = d.Viewport.ZoomStep
	}
	if c.Viewport.PanStep <= 0 {
		c.Viewport.PanStep = d.Viewport.PanStep
	}
	if c.Editor.ExportFormat != "png" && c.Editor.ExportFormat != "svg" {
		c.Editor.ExportFormat = d.Editor.ExportFormat
	}
	if c.Editor.CellWidth <= 0 {
		c.Editor.CellWidth = d.Editor.CellWidth
	}
	if c.Editor.CellHeight <= 0 {
		c.Editor.CellHeight = d.Editor.CellHeight
	}
	if c.Export.Width <= 0 {
		c.Export.Width = d.Export.Width
	}
	if c.Export.Height <= 0 {
		c.Export.Height = d.Export.Height
	}
	if c.Export.Padding < 0 {
		c.Export.Padding = d.Export.Padding
	}
}

// Save writes cfg to path, creating its directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// NewViewport builds a viewport with the configured zoom bounds.
func (c *Config) NewViewport() *viewport.Viewport {
	return viewport.New(c.Viewport.MinScale, c.Viewport.MaxScale)
}
