package reconcile

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a synthesis trigger fires.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer runs a function once input for a key has been quiet for the
// configured delay. Each new trigger for a key replaces the pending one.
type Debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	timers  map[Key]*debounceTimer
	seq     uint64
	stopped bool
}

type debounceTimer struct {
	timer *time.Timer
	gen   uint64
}

// NewDebouncer returns a debouncer with the given delay. A delay <= 0
// selects [DefaultDebounce].
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, timers: map[Key]*debounceTimer{}}
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration { return d.delay }

// Trigger schedules fn for key, cancelling any pending call for key.
// Triggers after Stop are ignored.
func (d *Debouncer) Trigger(key Key, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if prev, ok := d.timers[key]; ok {
		prev.timer.Stop()
	}
	d.seq++
	gen := d.seq
	t := &debounceTimer{gen: gen}
	t.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		cur, ok := d.timers[key]
		if !ok || cur.gen != gen {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
	d.timers[key] = t
}

// Cancel drops the pending call for key. It reports whether one was pending.
func (d *Debouncer) Cancel(key Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.timers[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(d.timers, key)
	return true
}

// Pending reports whether a call for key is scheduled.
func (d *Debouncer) Pending(key Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[key]
	return ok
}

// Stop cancels every pending call and rejects further triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for k, t := range d.timers {
		t.timer.Stop()
		delete(d.timers, k)
	}
}
