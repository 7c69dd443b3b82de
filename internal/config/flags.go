package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagWidth       = flag.Int("width", 0, "Window width")
	flagHeight      = flag.Int("height", 0, "Window height")
	flagOrtho       = flag.Bool("ortho", false, "Start with an orthographic camera")
	flagColor       = flag.String("color", "", "Color mode: normals, object_space, uv, colors, matcap")
	flagShade       = flag.String("shade", "", "Shading: vert, tri, face")
	flagOrientation = flag.String("orientation", "", "World up and right axes, e.g. zx or yx")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the path given with -config.
func ConfigPath() string {
	return *flagConfig
}

// Args returns the positional arguments left after flags.
func Args() []string {
	return flag.Args()
}

func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
	if *flagOrtho {
		cfg.Render.Orthographic = true
	}
	if *flagColor != "" {
		cfg.Render.ColorMode = *flagColor
	}
	if *flagShade != "" {
		cfg.Render.Shade = *flagShade
	}
	if *flagOrientation != "" {
		cfg.Render.Orientation = *flagOrientation
	}
}
