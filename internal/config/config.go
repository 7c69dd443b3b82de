// Package config loads viewer and tool settings from YAML.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Faultbox/plyview/pkg/mesh"
)

// Config holds all settings.
type Config struct {
	Window    WindowConfig    `yaml:"window"`
	Loop      LoopConfig      `yaml:"loop"`
	Render    RenderConfig    `yaml:"render"`
	Wireframe WireframeConfig `yaml:"wireframe"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// WindowConfig holds viewer window settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// LoopConfig holds the time slice each long running stage may use per frame.
type LoopConfig struct {
	ParseBudget    time.Duration `yaml:"parse_budget"`
	GenerateBudget time.Duration `yaml:"generate_budget"`
	RenderBudget   time.Duration `yaml:"render_budget"`
}

// RenderConfig holds 3D view settings.
type RenderConfig struct {
	ColorMode    string     `yaml:"color_mode"`  // normals, object_space, uv, colors, matcap
	Shade        string     `yaml:"shade"`       // vert, tri, face
	Orientation  string     `yaml:"orientation"` // up axis then right axis, e.g. "zx"
	Orthographic bool       `yaml:"orthographic"`
	FOVDegrees   float32    `yaml:"fov_degrees"`
	Background   [3]float32 `yaml:"background"`
}

// WireframeConfig holds UV wireframe export settings.
type WireframeConfig struct {
	Size       int    `yaml:"size"`
	Style      string `yaml:"style"` // faces, triangles, vertices
	LineColor  string `yaml:"line_color"`
	Background string `yaml:"background"`
}

// FetchConfig limits URL downloads.
type FetchConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "plyview",
			Width:  1280,
			Height: 800,
			VSync:  true,
		},
		Loop: LoopConfig{
			ParseBudget:    50 * time.Millisecond,
			GenerateBudget: 80 * time.Millisecond,
			RenderBudget:   12 * time.Millisecond,
		},
		Render: RenderConfig{
			ColorMode:   "normals",
			Shade:       "vert",
			Orientation: "zx",
			FOVDegrees:  45,
			Background:  [3]float32{0.12, 0.12, 0.14},
		},
		Wireframe: WireframeConfig{
			Size:       1024,
			Style:      "faces",
			LineColor:  "#ffffff",
			Background: "#000000",
		},
		Fetch: FetchConfig{
			Timeout:  60 * time.Second,
			MaxBytes: 1 << 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Loop.ParseBudget <= 0 || c.Loop.GenerateBudget <= 0 || c.Loop.RenderBudget <= 0 {
		errs = append(errs, errors.New("loop budgets must be positive"))
	}
	if _, err := mesh.ParseColorMode(c.Render.ColorMode); err != nil {
		errs = append(errs, err)
	}
	if _, err := mesh.ParseShade(c.Render.Shade); err != nil {
		errs = append(errs, err)
	}
	if len(c.Render.Orientation) != 2 {
		errs = append(errs, fmt.Errorf("orientation %q must name two axes", c.Render.Orientation))
	}
	if c.Wireframe.Size < 16 {
		errs = append(errs, fmt.Errorf("wireframe size %d too small", c.Wireframe.Size))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
