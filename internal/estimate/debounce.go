package estimate

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls per key. Scheduling a key again
// supersedes whatever was pending for it, so only the latest call runs, once
// the key has been quiet for the delay.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	seq     uint64
	pending map[string]*pendingCall
}

type pendingCall struct {
	token uint64
	timer *time.Timer
	fn    func()
}

// NewDebouncer returns a debouncer that waits delay after the last call.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, pending: make(map[string]*pendingCall)}
}

// Schedule arranges for fn to run after the delay unless key is scheduled,
// cancelled or flushed again first. It returns the token of the new call.
func (d *Debouncer) Schedule(key string, fn func()) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}
	d.seq++
	token := d.seq
	call := &pendingCall{token: token, fn: fn}
	call.timer = time.AfterFunc(d.delay, func() { d.fire(key, token) })
	d.pending[key] = call
	return token
}

func (d *Debouncer) fire(key string, token uint64) {
	d.mu.Lock()
	call, ok := d.pending[key]
	// A timer that lost the race with a newer Schedule must not run.
	if !ok || call.token != token {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	call.fn()
}

// Pending reports whether a call is waiting for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Cancel drops the pending call for key. It reports whether one was pending.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	call, ok := d.pending[key]
	if !ok {
		return false
	}
	call.timer.Stop()
	delete(d.pending, key)
	return true
}

// Flush runs the pending call for key now, on the caller's goroutine.
// It reports whether anything ran.
func (d *Debouncer) Flush(key string) bool {
	d.mu.Lock()
	call, ok := d.pending[key]
	if ok {
		call.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()

	if ok {
		call.fn()
	}
	return ok
}

// Stop cancels everything pending.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, call := range d.pending {
		call.timer.Stop()
		delete(d.pending, key)
	}
}
