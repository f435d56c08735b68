package watch

// Window returns the generation of the current debounce window.
func (d *Debouncer) Window() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

// Expire runs the timer callback of window gen.
func (d *Debouncer) Expire(gen uint64) {
	d.fire(gen)
}
