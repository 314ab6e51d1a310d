package jobs

import (
	"context"
	"sync"
	"time"
)

// Debouncer runs the most recently triggered function once the quiet window has elapsed
// (trailing edge). Each Trigger replaces any pending run.
type Debouncer struct {
	window time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
}

// NewDebouncer builds a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = 300 * time.Millisecond
	}
	return &Debouncer{window: window}
}

// Trigger schedules fn to run after the window unless another Trigger arrives first.
func (d *Debouncer) Trigger(ctx context.Context, fn func(context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	gen := d.generation
	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		current := d.generation == gen
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if !current || ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any pending run.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.generation++
}
