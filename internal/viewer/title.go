package viewer

import (
	"fmt"
	"sync"
)

// TitleReporter collects loop progress from any goroutine so the render
// thread can show it in the window title.
type TitleReporter struct {
	mu      sync.Mutex
	task    string
	percent int
	busy    bool
}

// SetTitle starts a new task at 0%.
func (r *TitleReporter) SetTitle(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.task = title
	r.percent = 0
	r.busy = true
}

// Update records progress. Reaching 100 ends the task.
func (r *TitleReporter) Update(percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.percent = percent
	if percent >= 100 {
		r.busy = false
	}
}

// Done ends the current task early, e.g. after a cancellation.
func (r *TitleReporter) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy = false
}

// Title formats the window title: "base - model" when idle, with the task
// and percentage appended while one runs.
func (r *TitleReporter) Title(base, model string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := base
	if model != "" {
		t = fmt.Sprintf("%s - %s", base, model)
	}
	if r.busy {
		t = fmt.Sprintf("%s [%s %d%%]", t, r.task, r.percent)
	}
	return t
}
