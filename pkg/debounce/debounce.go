// Package debounce delays an action until a quiet period has passed since the
// last trigger.
package debounce

import (
	"sync"
	"time"
)

// DefaultWindow is the quiet period used by storefront navigation and search.
const DefaultWindow = 500 * time.Millisecond

// Debouncer runs the most recently triggered function once no new trigger
// arrived for the configured window. Every Trigger restarts the window.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	timer   *time.Timer
	pending func()
	seq     uint64
	stopped bool
}

// New creates a Debouncer. A non-positive window selects DefaultWindow.
func New(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{window: window}
}

// Window returns the configured quiet period.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Trigger schedules fn, replacing any function still waiting for its window.
// It returns false once the Debouncer has been stopped.
func (d *Debouncer) Trigger(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = fn
	d.timer = time.AfterFunc(d.window, func() { d.fire(seq) })
	return true
}

// fire runs the pending function if no later Trigger or Cancel superseded seq.
func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	stopped := d.stopped
	d.mu.Unlock()

	if fn != nil && !stopped {
		fn()
	}
}

// Cancel drops the pending function, if any, without stopping the Debouncer.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = nil
}

// Pending reports whether a function is waiting for its window to elapse.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Stop cancels the pending function and rejects later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	d.Cancel()
}
