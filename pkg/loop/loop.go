// Package loop runs long for-loops in time-sliced batches so the host can keep
// drawing frames between them.
//
// A Loop executes step(i, state) for i in [0, n) strictly in order. Each turn
// runs as many iterations as fit in the budget, reports progress, then hands a
// continuation to the Scheduler. Cancel stops future turns; a batch that is
// already running always finishes first.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultBudget is the time slice used when Options.Budget is zero.
const DefaultBudget = 12 * time.Millisecond

var (
	ErrNilStep        = errors.New("loop: nil step function")
	ErrAlreadyStarted = errors.New("loop: already started")
	ErrCancelled      = errors.New("loop: cancelled")
)

// StepFunc is one iteration. Returning an error aborts the loop.
type StepFunc[S any] func(i int, state S) error

// Options configures a Loop.
type Options struct {
	// Budget is the wall-clock time a single turn may use.
	Budget time.Duration

	// Scheduler posts the next turn. Defaults to GoScheduler.
	Scheduler Scheduler

	// Progress is called after every turn with round(100*next/n).
	Progress func(percent int)

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Budget <= 0 {
		o.Budget = DefaultBudget
	}
	if o.Scheduler == nil {
		o.Scheduler = GoScheduler{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Result is the outcome of a run.
type Result[S any] struct {
	Completed bool
	State     S
	Elapsed   time.Duration
	// Err is ErrCancelled after Cancel, or the error returned by a step.
	Err error
}

// Loop is a single-use time-sliced loop. Create a fresh one per run.
type Loop[S any] struct {
	opts Options

	n     int
	next  int
	state S
	step  StepFunc[S]
	start time.Time

	mu        sync.Mutex
	started   bool
	running   bool
	cancelled bool
	finished  bool
	result    Result[S]
	done      chan struct{}
}

// New creates a loop.
func New[S any](opts Options) *Loop[S] {
	return &Loop[S]{
		opts: opts.withDefaults(),
		done: make(chan struct{}),
	}
}

// Start schedules the first turn and returns immediately.
func (l *Loop[S]) Start(n int, state S, step StepFunc[S]) error {
	if step == nil {
		return ErrNilStep
	}

	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrAlreadyStarted
	}
	l.started = true
	l.n = max(n, 0)
	l.state = state
	l.step = step
	l.start = l.opts.Now()

	if l.n == 0 {
		l.running = true
		l.mu.Unlock()
		l.settle(100, true)
		return nil
	}
	l.mu.Unlock()

	l.opts.Scheduler.Schedule(l.turn)
	return nil
}

func (l *Loop[S]) turn() {
	l.mu.Lock()
	if l.finished {
		l.mu.Unlock()
		return
	}
	if l.cancelled {
		l.finishLocked(ErrCancelled)
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()

	deadline := l.opts.Now().Add(l.opts.Budget)
	var stepErr error
	for l.next < l.n {
		i := l.next
		l.next++
		if err := l.step(i, l.state); err != nil {
			stepErr = err
			break
		}
		if !l.opts.Now().Before(deadline) {
			break
		}
	}
	next := l.next

	l.mu.Lock()
	switch {
	case l.finished:
		l.running = false
		l.mu.Unlock()
		return
	case stepErr != nil:
		l.running = false
		l.finishLocked(stepErr)
		l.mu.Unlock()
		return
	case l.cancelled:
		l.running = false
		l.finishLocked(ErrCancelled)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	l.settle(Percent(next, l.n), next >= l.n)
}

// settle reports progress for the turn that just ran, then publishes the
// result or schedules the next turn. The loop counts as running until the
// report returns, so no report happens after Done is closed.
func (l *Loop[S]) settle(percent int, complete bool) {
	l.report(percent)

	l.mu.Lock()
	l.running = false
	switch {
	case l.finished:
		l.mu.Unlock()
		return
	case l.cancelled:
		l.finishLocked(ErrCancelled)
		l.mu.Unlock()
		return
	case complete:
		l.finishLocked(nil)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	l.opts.Scheduler.Schedule(l.turn)
}

// finishLocked publishes the result exactly once. l.mu must be held.
func (l *Loop[S]) finishLocked(err error) {
	if l.finished {
		return
	}
	l.finished = true
	l.result = Result[S]{
		Completed: err == nil,
		State:     l.state,
		Elapsed:   l.opts.Now().Sub(l.start),
		Err:       err,
	}
	close(l.done)
}

func (l *Loop[S]) report(percent int) {
	if l.opts.Progress != nil {
		l.opts.Progress(percent)
	}
}

// Cancel stops the loop. If a batch is running it finishes first and the loop
// then resolves as cancelled. Cancel on a finished loop is a no-op.
func (l *Loop[S]) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.finished {
		return
	}
	l.cancelled = true
	if !l.running {
		l.finishLocked(ErrCancelled)
	}
}

// Done is closed once the loop has a result.
func (l *Loop[S]) Done() <-chan struct{} {
	return l.done
}

// Result returns the outcome. It is only meaningful after Done is closed.
func (l *Loop[S]) Result() Result[S] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result
}

// Run starts the loop and blocks until it finishes or ctx is done, in which
// case the loop is cancelled. The scheduler must make progress without the
// calling goroutine, e.g. GoScheduler or a FrameQueue pumped elsewhere.
func (l *Loop[S]) Run(ctx context.Context, n int, state S, step StepFunc[S]) (Result[S], error) {
	if err := l.Start(n, state, step); err != nil {
		return Result[S]{}, err
	}

	select {
	case <-l.done:
	case <-ctx.Done():
		l.Cancel()
		<-l.done
	}

	res := l.Result()
	return res, res.Err
}

// Run is a shorthand for New(opts).Run(ctx, n, state, step).
func Run[S any](ctx context.Context, opts Options, n int, state S, step StepFunc[S]) (Result[S], error) {
	return New[S](opts).Run(ctx, n, state, step)
}
