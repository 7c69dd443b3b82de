package logger

import (
	"sync"

	"go.uber.org/zap"
)

// ProgressReporter logs task titles at info and percentages at debug. Repeated
// percentages and steps smaller than Step are dropped.
type ProgressReporter struct {
	log  *zap.Logger
	step int

	mu    sync.Mutex
	title string
	last  int
}

// NewProgressReporter reports through log, emitting at most one update every
// step percent.
func NewProgressReporter(log *zap.Logger, step int) *ProgressReporter {
	if log == nil {
		log = Log
	}
	return &ProgressReporter{log: log, step: max(step, 1), last: -1}
}

// SetTitle starts a new task.
func (p *ProgressReporter) SetTitle(title string) {
	p.mu.Lock()
	p.title = title
	p.last = -1
	p.mu.Unlock()

	p.log.Info(title)
}

// Update records the current percentage.
func (p *ProgressReporter) Update(percent int) {
	p.mu.Lock()
	if percent == p.last || (percent < 100 && p.last >= 0 && percent-p.last < p.step) {
		p.mu.Unlock()
		return
	}
	p.last = percent
	title := p.title
	p.mu.Unlock()

	p.log.Debug("progress", zap.String("task", title), zap.Int("percent", percent))
}
