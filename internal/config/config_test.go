package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Window.Width != 1280 || cfg.Window.Height != 800 {
		t.Errorf("expected window 1280x800, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if !cfg.Window.VSync {
		t.Error("expected vsync to be true by default")
	}
	if cfg.Loop.ParseBudget != 50*time.Millisecond {
		t.Errorf("expected parse budget 50ms, got %v", cfg.Loop.ParseBudget)
	}
	if cfg.Loop.GenerateBudget != 80*time.Millisecond {
		t.Errorf("expected generate budget 80ms, got %v", cfg.Loop.GenerateBudget)
	}
	if cfg.Loop.RenderBudget != 12*time.Millisecond {
		t.Errorf("expected render budget 12ms, got %v", cfg.Loop.RenderBudget)
	}
	if cfg.Render.ColorMode != "normals" || cfg.Render.Shade != "vert" || cfg.Render.Orientation != "zx" {
		t.Errorf("unexpected render defaults: %+v", cfg.Render)
	}
	if cfg.Wireframe.Style != "faces" || cfg.Wireframe.Size != 1024 {
		t.Errorf("unexpected wireframe defaults: %+v", cfg.Wireframe)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.LogFile != "" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	yamlContent := `
window:
  width: 1920
  height: 1080
  vsync: false

loop:
  parse_budget: 20ms
  generate_budget: 30ms

render:
  color_mode: matcap
  shade: face
  orthographic: true
  orientation: yx

wireframe:
  size: 4096
  style: triangles

logging:
  level: "debug"
  log_file: "plyview.log"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Window.Width != 1920 || cfg.Window.Height != 1080 || cfg.Window.VSync {
		t.Errorf("unexpected window: %+v", cfg.Window)
	}
	if cfg.Loop.ParseBudget != 20*time.Millisecond || cfg.Loop.GenerateBudget != 30*time.Millisecond {
		t.Errorf("unexpected budgets: %+v", cfg.Loop)
	}
	// Unset keys keep their defaults.
	if cfg.Loop.RenderBudget != 12*time.Millisecond {
		t.Errorf("expected render budget to keep default, got %v", cfg.Loop.RenderBudget)
	}
	if cfg.Render.ColorMode != "matcap" || cfg.Render.Shade != "face" || !cfg.Render.Orthographic {
		t.Errorf("unexpected render: %+v", cfg.Render)
	}
	if cfg.Wireframe.Size != 4096 || cfg.Wireframe.Style != "triangles" {
		t.Errorf("unexpected wireframe: %+v", cfg.Wireframe)
	}
	if cfg.Logging.LogFile != "plyview.log" {
		t.Errorf("expected log file 'plyview.log', got %s", cfg.Logging.LogFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	invalidYAML := `
window:
  width: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if err := loadFromFile(Default(), configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
	if _, err := LoadFrom(configPath); err == nil {
		t.Error("expected LoadFrom to fail on invalid YAML")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if err := loadFromFile(Default(), "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad color mode", func(c *Config) { c.Render.ColorMode = "rainbow" }, true},
		{"bad shade", func(c *Config) { c.Render.Shade = "phong" }, true},
		{"zero budget", func(c *Config) { c.Loop.GenerateBudget = 0 }, true},
		{"one axis", func(c *Config) { c.Render.Orientation = "z" }, true},
		{"tiny wireframe", func(c *Config) { c.Wireframe.Size = 4 }, true},
		{"zero window", func(c *Config) { c.Window.Width = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile("plyview.yaml", []byte("window:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path == "" {
		t.Error("expected to find plyview.yaml in current directory")
	}

	cfg, err := LoadFrom("")
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Window.Width != 800 {
		t.Errorf("expected width 800 from discovered file, got %d", cfg.Window.Width)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Render.ColorMode = "uv"
	cfg.Loop.RenderBudget = 7 * time.Millisecond
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if loaded.Render.ColorMode != "uv" || loaded.Loop.RenderBudget != 7*time.Millisecond {
		t.Errorf("saved config did not load back: %+v %+v", loaded.Render, loaded.Loop)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name: "view flags",
			setup: func() {
				*flagOrtho = true
				*flagColor = "uv"
				*flagShade = "tri"
				*flagOrientation = "yx"
			},
			verify: func(cfg *Config) {
				if !cfg.Render.Orthographic || cfg.Render.ColorMode != "uv" ||
					cfg.Render.Shade != "tri" || cfg.Render.Orientation != "yx" {
					t.Errorf("unexpected render config: %+v", cfg.Render)
				}
			},
			teardown: func() {
				*flagOrtho = false
				*flagColor = ""
				*flagShade = ""
				*flagOrientation = ""
			},
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(cfg *Config) {
				if cfg.Window.Width != 2560 || cfg.Window.Height != 1440 {
					t.Errorf("expected 2560x1440, got %dx%d", cfg.Window.Width, cfg.Window.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(cfg)
		})
	}
}
