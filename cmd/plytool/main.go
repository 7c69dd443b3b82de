// Package main is plytool, a command line inspector for PLY models.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Faultbox/plyview/internal/config"
	"github.com/Faultbox/plyview/internal/engine/wireframe"
	"github.com/Faultbox/plyview/internal/logger"
	"github.com/Faultbox/plyview/internal/pipeline"
	"github.com/Faultbox/plyview/internal/source"
	"github.com/Faultbox/plyview/pkg/ply"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "plytool: %v\n", err)
		os.Exit(1)
	}
}

// tool is the state shared by every command once Before has run.
type tool struct {
	cfg     *config.Config
	fetcher *source.Fetcher
	loader  *pipeline.Loader
}

func newApp() *cli.App {
	t := &tool{}
	return &cli.App{
		Name:      "plytool",
		Usage:     "Inspect PLY models and export their UV layout",
		ArgsUsage: "<file|url>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a plyview YAML config",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "also write JSON logs to this file",
			},
		},
		Before: t.setup,
		After: func(*cli.Context) error {
			logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "print the header and per property statistics",
				ArgsUsage: "<file|url>",
				Action:    t.info,
			},
			{
				Name:      "attributes",
				Usage:     "generate render data and print counts, capabilities and bounds",
				ArgsUsage: "<file|url>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "dump",
						Usage: "print the first `N` vertex slots",
					},
				},
				Action: t.attributes,
			},
			{
				Name:      "wireframe",
				Usage:     "render the UV wireframe to a PNG",
				ArgsUsage: "<file|url>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "style",
						Usage: "faces, triangles or vertices",
					},
					&cli.IntFlag{
						Name:  "size",
						Usage: "image edge in pixels",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Value:   "uv.png",
						Usage:   "output PNG path",
					},
				},
				Action: t.wireframe,
			},
		},
	}
}

func (t *tool) setup(c *cli.Context) error {
	cfg := config.Default()
	if p := c.String("config"); p != "" {
		var err error
		if cfg, err = config.LoadFrom(p); err != nil {
			return err
		}
	}
	if c.Bool("debug") {
		cfg.Logging.Level = "debug"
	}
	if f := c.String("log-file"); f != "" {
		cfg.Logging.LogFile = f
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	t.cfg = cfg
	t.fetcher = &source.Fetcher{
		Client:   &http.Client{Timeout: cfg.Fetch.Timeout},
		MaxBytes: cfg.Fetch.MaxBytes,
	}
	t.loader = pipeline.New(pipeline.Options{
		ParseBudget:    cfg.Loop.ParseBudget,
		GenerateBudget: cfg.Loop.GenerateBudget,
		Reporter:       logger.NewProgressReporter(logger.Named("progress"), 10),
		Logger:         logger.Log,
	})
	return nil
}

func (t *tool) open(c *cli.Context) (source.File, error) {
	if c.NArg() != 1 {
		return source.File{}, fmt.Errorf("%s needs exactly one <file|url>", c.Command.Name)
	}
	return t.fetcher.Open(c.Context, c.Args().First())
}

func (t *tool) load(c *cli.Context) (*pipeline.Result, error) {
	f, err := t.open(c)
	if err != nil {
		return nil, err
	}
	return t.loader.Load(c.Context, f)
}

func (t *tool) info(c *cli.Context) error {
	f, err := t.open(c)
	if err != nil {
		return err
	}
	parser := ply.NewParser(ply.Options{
		Budget:   t.cfg.Loop.ParseBudget,
		Reporter: logger.NewProgressReporter(logger.Named("progress"), 10),
		Logger:   logger.Named("ply"),
	})
	model, err := parser.Parse(c.Context, f.Data)
	if err != nil {
		return err
	}
	writeInfo(c.App.Writer, f.Name, model)
	return nil
}

func (t *tool) attributes(c *cli.Context) error {
	res, err := t.load(c)
	if err != nil {
		return err
	}
	writeAttributes(c.App.Writer, res)
	if n := c.Int("dump"); n > 0 {
		writeDump(c.App.Writer, res.Attributes, n)
	}
	return nil
}

func (t *tool) wireframe(c *cli.Context) error {
	wf := t.cfg.Wireframe
	style := wf.Style
	if c.IsSet("style") {
		style = c.String("style")
	}
	size := wf.Size
	if c.IsSet("size") {
		size = c.Int("size")
	}
	line, err := wireframe.ParseHexColor(wf.LineColor)
	if err != nil {
		return err
	}
	bg, err := wireframe.ParseHexColor(wf.Background)
	if err != nil {
		return err
	}

	res, err := t.load(c)
	if err != nil {
		return err
	}

	r := wireframe.NewRenderer(wireframe.Options{
		Size:       size,
		LineColor:  line,
		Background: bg,
		Budget:     t.cfg.Loop.RenderBudget,
		Reporter:   logger.NewProgressReporter(logger.Named("progress"), 10),
		Logger:     logger.Named("wireframe"),
	})
	img, renderErr := r.Render(c.Context, res.Attributes, wireframe.ParseStyle(style))
	if renderErr != nil && !errors.Is(renderErr, wireframe.ErrNoUVs) {
		return renderErr
	}

	out := c.String("out")
	if err := wireframe.SavePNG(img, out); err != nil {
		return err
	}
	logger.Info("wireframe saved", zap.String("path", out), zap.Int("size", size))
	return renderErr
}
