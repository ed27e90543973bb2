package tasks

import (
	"sync"
	"time"
)

// Debouncer keeps at most one pending job per name. Scheduling a name that
// is already pending replaces the job and restarts its timer.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]*time.Timer),
	}
}

func (d *Debouncer) Schedule(name string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if t, ok := d.pending[name]; ok {
		t.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A newer Schedule may have replaced this timer after it fired.
		current := d.pending[name] == timer
		if current {
			delete(d.pending, name)
		}
		d.mu.Unlock()

		if current {
			fn()
		}
	})
	d.pending[name] = timer
}

func (d *Debouncer) Pending(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[name]
	return ok
}

// Stop drops every pending job. Later Schedule calls are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for name, t := range d.pending {
		t.Stop()
		delete(d.pending, name)
	}
	d.stopped = true
}
