package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/plyview/internal/config"
	"github.com/Faultbox/plyview/internal/engine/camera"
	"github.com/Faultbox/plyview/internal/engine/input"
	"github.com/Faultbox/plyview/internal/engine/renderer"
	"github.com/Faultbox/plyview/internal/engine/wireframe"
	"github.com/Faultbox/plyview/internal/engine/window"
	"github.com/Faultbox/plyview/internal/logger"
	"github.com/Faultbox/plyview/internal/pipeline"
	"github.com/Faultbox/plyview/internal/source"
	"github.com/Faultbox/plyview/internal/viewer"
	"github.com/Faultbox/plyview/pkg/loop"
	"github.com/Faultbox/plyview/pkg/mesh"
)

type loadResult struct {
	res *pipeline.Result
	err error
}

// App is the viewer instance. Everything except the load and export
// goroutines runs on the main thread, which owns the GL context.
type App struct {
	cfg     *config.Config
	running bool

	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera

	queue    *loop.FrameQueue
	progress *viewer.TitleReporter
	fetcher  *source.Fetcher
	loader   *pipeline.Loader
	wire     *wireframe.Renderer

	state      viewer.State
	model      *pipeline.Result
	name       string
	title      string
	screenshot bool // capture after the next render

	ctx    context.Context
	cancel context.CancelFunc
	paths  chan string
	loads  chan loadResult
}

func newApp(cfg *config.Config) (*App, error) {
	logger.Info("initializing viewer",
		zap.String("title", cfg.Window.Title),
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
	)

	color, err := mesh.ParseColorMode(cfg.Render.ColorMode)
	if err != nil {
		return nil, err
	}
	shade, err := mesh.ParseShade(cfg.Render.Shade)
	if err != nil {
		return nil, err
	}
	line, err := wireframe.ParseHexColor(cfg.Wireframe.LineColor)
	if err != nil {
		return nil, err
	}
	bg, err := wireframe.ParseHexColor(cfg.Wireframe.Background)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		queue:    loop.NewFrameQueue(),
		progress: &viewer.TitleReporter{},
		state: viewer.State{
			Color:       color,
			Shade:       shade,
			Ortho:       cfg.Render.Orthographic,
			Orientation: cfg.Render.Orientation,
		},
		paths: make(chan string, 4),
		loads: make(chan loadResult, 4),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	// Window first, the renderer needs its GL context.
	a.window, err = window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	w, h := a.window.DrawableSize()
	a.renderer, err = renderer.New(renderer.Config{
		Width:      w,
		Height:     h,
		Background: cfg.Render.Background,
	})
	if err != nil {
		a.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	a.renderer.Resize(w, h)

	a.input = input.New()
	a.camera = camera.NewOrbitCamera(cfg.Render.FOVDegrees)
	if !a.camera.SetOrientation(cfg.Render.Orientation) {
		logger.Warn("unknown orientation, keeping default",
			zap.String("orientation", cfg.Render.Orientation),
			zap.String("using", a.camera.Orientation()))
	}
	a.state.Orientation = a.camera.Orientation()

	a.fetcher = &source.Fetcher{
		Client:   &http.Client{Timeout: cfg.Fetch.Timeout},
		MaxBytes: cfg.Fetch.MaxBytes,
	}
	a.loader = pipeline.New(pipeline.Options{
		ParseBudget:    cfg.Loop.ParseBudget,
		GenerateBudget: cfg.Loop.GenerateBudget,
		Scheduler:      a.queue,
		Reporter:       a.progress,
		Logger:         logger.Log,
	})
	a.wire = wireframe.NewRenderer(wireframe.Options{
		Size:       cfg.Wireframe.Size,
		LineColor:  line,
		Background: bg,
		Budget:     cfg.Loop.RenderBudget,
		Scheduler:  a.queue,
		Reporter:   a.progress,
		Logger:     logger.Named("wireframe"),
	})

	logger.Info("viewer initialized")
	return a, nil
}

// Run drives the frame loop until the window closes.
func (a *App) Run() error {
	a.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	logger.Info("starting frame loop")

	for a.running {
		now := time.Now()
		dt := now.Sub(lastTime)
		lastTime = now

		if a.input.Update() {
			a.running = false
			break
		}
		for _, ev := range a.input.Events() {
			a.handleEvent(ev)
		}

		// Continue any time-sliced work posted last frame.
		a.queue.Pump()
		a.collect()

		if t := a.progress.Title(a.cfg.Window.Title, a.name); t != a.title {
			a.window.SetTitle(t)
			a.title = t
		}

		a.render()
		if a.screenshot {
			a.screenshot = false
			go saveScreenshot(a.renderer.ReadPixels(), a.name)
		}
		a.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			logger.Debug("fps", zap.Int("count", frameCount), zap.Duration("dt", dt))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

// Close cleans up viewer resources.
func (a *App) Close() {
	logger.Info("closing viewer")

	a.cancel()
	a.loader.Cancel()
	a.wire.Cancel()
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}

func (a *App) handleEvent(ev input.Event) {
	switch ev.Type {
	case input.EventWindowResize:
		a.renderer.Resize(a.window.DrawableSize())
	case input.EventDrag:
		// Normalize by window width so drag speed is resolution independent.
		w, _ := a.window.GetSize()
		if w > 0 {
			scale := 1000 / float32(w)
			a.camera.Orbit(ev.DX*scale, ev.DY*scale)
		}
	case input.EventWheel:
		a.camera.Zoom(ev.DY)
	case input.EventDropFile:
		a.open(ev.Path)
	case input.EventKeyDown:
		a.handleAction(a.state.HandleKey(rune(ev.Key)))
	}
}

func (a *App) handleAction(act viewer.Action) {
	switch act {
	case viewer.ActionQuit:
		a.running = false
	case viewer.ActionOpen:
		go a.openDialog()
	case viewer.ActionRebind:
		a.upload()
	case viewer.ActionResetCamera:
		a.camera.Reset()
	case viewer.ActionOrientation:
		a.camera.SetOrientation(a.state.Orientation)
		logger.Info("orientation changed", zap.String("up_right", a.state.Orientation))
	case viewer.ActionExportWireframe:
		if a.model != nil {
			go a.exportWireframe(a.model)
		}
	case viewer.ActionScreenshot:
		a.screenshot = true
	}
}

// open starts loading s in the background. Any load in flight is cancelled
// and the current model is dropped.
func (a *App) open(s string) {
	a.model = nil
	a.renderer.Clear()
	a.wire.Cancel()
	a.wire.Reset()
	a.name = filepath.Base(s)

	go func() {
		f, err := a.fetcher.Open(a.ctx, s)
		if err != nil {
			a.deliver(loadResult{err: err})
			return
		}
		res, err := a.loader.Load(a.ctx, f)
		a.deliver(loadResult{res: res, err: err})
	}()
}

func (a *App) deliver(r loadResult) {
	select {
	case a.loads <- r:
	case <-a.ctx.Done():
	}
}

// collect applies finished background work on the main thread.
func (a *App) collect() {
	for {
		select {
		case p := <-a.paths:
			a.open(p)
		case r := <-a.loads:
			a.finishLoad(r)
		default:
			return
		}
	}
}

func (a *App) finishLoad(r loadResult) {
	if r.err != nil {
		if errors.Is(r.err, loop.ErrCancelled) || errors.Is(r.err, pipeline.ErrSuperseded) {
			logger.Debug("load dropped", zap.Error(r.err))
			return
		}
		a.progress.Done()
		a.name = ""
		go showError("Could not load model", r.err)
		return
	}

	// A newer open may already have replaced this result.
	if cur, ok := a.loader.Current(); !ok || cur != r.res {
		return
	}

	a.model = r.res
	a.name = r.res.Name
	a.upload()

	b := r.res.Attributes.Bounds
	a.camera.SetBounds(float32(b.MaxDelta()),
		mgl32.Vec3{float32(b.Mids[0]), float32(b.Mids[1]), float32(b.Mids[2])})
}

func (a *App) upload() {
	if a.model == nil {
		return
	}
	used := a.renderer.SetAttributes(a.model.Attributes, a.state.Color, a.state.Shade)
	logger.Info("display updated",
		zap.Stringer("color", used),
		zap.Stringer("shade", a.state.Shade),
	)
}

func (a *App) render() {
	a.renderer.Begin()
	if a.state.UVView {
		a.renderer.DrawUV()
		return
	}
	a.renderer.DrawOrbit(a.camera.View(), a.camera.Projection(a.renderer.Aspect(), a.state.Ortho))
}

// openDialog shows a native file dialog and queues the chosen path for the
// main thread.
func (a *App) openDialog() {
	filename, err := dialog.File().
		Filter("PLY models", "ply").
		Filter("All Files", "*").
		Title("Open PLY model").
		Load()
	if err != nil {
		if err != dialog.ErrCancelled {
			logger.Warn("file dialog error", zap.Error(err))
		}
		return
	}
	if !source.HasPLYExtension(filename) {
		showError("Unsupported file", fmt.Errorf("%s is not a .ply file", filepath.Base(filename)))
		return
	}

	select {
	case a.paths <- filename:
	case <-a.ctx.Done():
	}
}

// exportWireframe renders the UV wireframe through the frame queue and asks
// where to save it.
func (a *App) exportWireframe(res *pipeline.Result) {
	style := wireframe.ParseStyle(a.cfg.Wireframe.Style)
	img, err := a.wire.Render(a.ctx, res.Attributes, style)
	if err != nil {
		switch {
		case errors.Is(err, wireframe.ErrNoUVs):
			showError("No UV data", err)
		case errors.Is(err, loop.ErrCancelled):
			a.progress.Done()
		default:
			showError("Wireframe failed", err)
		}
		return
	}

	path, err := dialog.File().
		Filter("PNG image", "png").
		Title(fmt.Sprintf("Export %s UV wireframe", strings.TrimSuffix(res.Name, filepath.Ext(res.Name)))).
		Save()
	if err != nil {
		if err != dialog.ErrCancelled {
			logger.Warn("file dialog error", zap.Error(err))
		}
		return
	}
	if filepath.Ext(path) == "" {
		path += ".png"
	}

	if err := wireframe.SavePNG(img, path); err != nil {
		showError("Could not save wireframe", err)
		return
	}
	logger.Info("wireframe exported", zap.String("path", path), zap.Stringer("style", style))
}

// saveScreenshot writes a frame read back from the renderer under
// screenshots/ in the working directory.
func saveScreenshot(img *image.RGBA, model string) {
	stem := "plyview"
	if model != "" {
		stem = strings.TrimSuffix(model, filepath.Ext(model))
	}
	path := filepath.Join("screenshots",
		fmt.Sprintf("%s_%s.png", stem, time.Now().Format("2006-01-02_15-04-05")))

	if err := wireframe.SavePNG(img, path); err != nil {
		showError("Could not save screenshot", err)
		return
	}
	logger.Info("screenshot saved", zap.String("path", path))
}

func showError(title string, err error) {
	logger.Error(strings.ToLower(title), zap.Error(err))
	dialog.Message("%v", err).Title(title).Error()
}
