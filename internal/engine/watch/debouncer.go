package watch

import (
	"slices"
	"sync"
	"time"
)

// Debouncer coalesces rapid change events into one batch.
// Every Add restarts the window; the batch keeps first-seen order.
type Debouncer struct {
	mu      sync.Mutex
	pending []string
	timer   *time.Timer
	// gen identifies the current window. A timer that fires for an older
	// window lost the race with Add or Stop and must not flush.
	gen      uint64
	window   time.Duration
	callback func(paths []string)
}

// NewDebouncer creates a debouncer that hands each batch to callback.
func NewDebouncer(window time.Duration, callback func(paths []string)) *Debouncer {
	return &Debouncer{
		window:   window,
		callback: callback,
	}
}

// Add adds a path to the pending batch and restarts the window.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !slices.Contains(d.pending, path) {
		d.pending = append(d.pending, path)
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
}

// Pending returns the number of paths waiting for the window to expire.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// fire is called when the window gen expires.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	paths := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	if len(paths) > 0 && d.callback != nil {
		d.callback(paths)
	}
}

// Stop cancels the window and drops the pending batch.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = nil
}
