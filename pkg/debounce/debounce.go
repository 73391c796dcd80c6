// Package debounce delays an action until its trigger has been quiet for a fixed window.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs the most recently triggered function once no new trigger
// arrives within the window. Safe for concurrent use.
type Debouncer struct {
	window time.Duration

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// New returns a Debouncer with the given quiet window
func New(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Trigger (re)starts the window; f runs after it elapses unless another
// Trigger or Cancel happens first. A zero window runs f synchronously.
func (d *Debouncer) Trigger(f func()) {
	if d.window <= 0 {
		d.Cancel()
		f()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		current := gen == d.gen
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		// a timer that already fired may race a later Trigger
		if current {
			f()
		}
	})
}

// Cancel drops any pending action
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether an action is waiting for the window to elapse
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
