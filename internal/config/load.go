package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg, err := LoadFrom(ConfigPath())
	if err != nil {
		return nil, err
	}
	applyFlags(cfg)
	return cfg, cfg.Validate()
}

// LoadFrom loads defaults merged with the file at path. An empty path
// searches the standard locations and falls back to defaults alone.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}
	return cfg, nil
}

func findConfigFile() string {
	candidates := []string{
		"./plyview.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "plyview")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "plyview")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "plyview")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "plyview")
	}
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
