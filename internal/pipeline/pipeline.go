// Package pipeline runs a model load from raw bytes to render data and keeps
// the latest completed result.
//
// Starting a new load cancels the one in flight. A result is published only
// when both parsing and attribute generation complete.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/plyview/internal/source"
	"github.com/Faultbox/plyview/pkg/loop"
	"github.com/Faultbox/plyview/pkg/mesh"
	"github.com/Faultbox/plyview/pkg/ply"
)

// ErrSuperseded is returned by a load that finished after a newer load began.
var ErrSuperseded = errors.New("load superseded by a newer load")

// Options configures a Loader.
type Options struct {
	ParseBudget    time.Duration
	GenerateBudget time.Duration
	Scheduler      loop.Scheduler
	Reporter       loop.Reporter
	Logger         *zap.Logger
}

// Result is one fully loaded model.
type Result struct {
	Name         string
	Header       *ply.Header
	Model        *ply.Model
	Attributes   *mesh.Attributes
	ParseTime    time.Duration
	GenerateTime time.Duration
}

// Loader owns the parse and generate stages.
type Loader struct {
	log       *zap.Logger
	parser    *ply.Parser
	generator *mesh.Generator

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	current *Result
}

// New creates a loader.
func New(opts Options) *Loader {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Loader{
		log: opts.Logger,
		parser: ply.NewParser(ply.Options{
			Budget:    opts.ParseBudget,
			Scheduler: opts.Scheduler,
			Reporter:  opts.Reporter,
			Logger:    opts.Logger.Named("ply"),
		}),
		generator: mesh.NewGenerator(mesh.Options{
			Budget:    opts.GenerateBudget,
			Scheduler: opts.Scheduler,
			Reporter:  opts.Reporter,
			Logger:    opts.Logger.Named("mesh"),
		}),
	}
}

// Load parses and generates f, cancelling any load still running. It blocks
// until done; cancellation returns an error wrapping loop.ErrCancelled.
func (l *Loader) Load(ctx context.Context, f source.File) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	seq := l.seq
	l.cancel = cancel
	l.current = nil
	l.mu.Unlock()

	log := l.log.With(zap.String("file", f.Name))
	log.Info("loading model", zap.Int("bytes", len(f.Data)))

	start := time.Now()
	model, err := l.parser.Parse(ctx, f.Data)
	if err != nil {
		return nil, l.fail(log, err)
	}
	parsed := time.Now()

	attrs, err := l.generator.Generate(ctx, model.Header, model)
	if err != nil {
		return nil, l.fail(log, err)
	}

	res := &Result{
		Name:         f.Name,
		Header:       model.Header,
		Model:        model,
		Attributes:   attrs,
		ParseTime:    parsed.Sub(start),
		GenerateTime: time.Since(parsed),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		return nil, ErrSuperseded
	}
	l.current = res
	l.cancel = nil
	log.Info("model ready",
		zap.Int("faces", attrs.Counts.Faces),
		zap.Int("triangles", attrs.Counts.Triangles),
		zap.Int("vertices", attrs.Counts.Vertices),
		zap.Duration("parse", res.ParseTime),
		zap.Duration("generate", res.GenerateTime))
	return res, nil
}

func (l *Loader) fail(log *zap.Logger, err error) error {
	if errors.Is(err, loop.ErrCancelled) {
		log.Info("load cancelled")
	} else {
		log.Error("load failed", zap.Error(err))
	}
	return err
}

// Current returns the latest completed result. ok is false while nothing is
// available, including during a load.
func (l *Loader) Current() (res *Result, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current, l.current != nil
}

// Cancel stops the load in flight, if any.
func (l *Loader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// Reset cancels any load and drops the current result.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.seq++
	l.current = nil
}
