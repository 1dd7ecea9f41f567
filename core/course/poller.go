package course

import (
	"context"
	"sync"
	"time"
)

const defaultPollInterval = 3 * time.Second

// Poller re-fetches a course while any of its videos is still being
// processed. The timer starts on the transition into "has in-progress
// video" and stops on the transition out; at most one refresh is ever
// in flight, and a tick that finds one still running skips the fetch
// but keeps the loop alive.
type Poller struct {
	interval time.Duration
	courseFn func() *Course              // current-course accessor, never a captured value
	refresh  func(context.Context) error // the re-fetch callback

	mu       sync.Mutex
	timer    *time.Timer
	active   bool
	inFlight bool
	disabled bool
}

func NewPoller(courseFn func() *Course, refresh func(context.Context) error, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		interval: interval,
		courseFn: courseFn,
		refresh:  refresh,
	}
}

// Update re-evaluates the polling condition; callers invoke it after
// every course change. Starting is edge-triggered: an already-running
// loop is left alone, so unrelated updates never restart the timer.
func (p *Poller) Update() {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.disabled || !HasInProgressVideo(p.courseFn()):
		p.stopLocked()
	case !p.active:
		p.active = true
		p.scheduleLocked()
	}
}

// Stop disables the poller and clears any pending timer; no tick fires
// after it returns the lock.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disabled = true
	p.stopLocked()
}

// SetEnabled toggles the poller. Re-enabling re-evaluates the polling
// condition immediately.
func (p *Poller) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disabled = !enabled
	if p.disabled {
		p.stopLocked()
		return
	}
	if !p.active && HasInProgressVideo(p.courseFn()) {
		p.active = true
		p.scheduleLocked()
	}
}

// Active reports whether the polling loop is currently running.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *Poller) scheduleLocked() {
	p.timer = time.AfterFunc(p.interval, p.tick)
}

func (p *Poller) stopLocked() {
	p.active = false
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Poller) tick() {
	p.mu.Lock()
	if p.disabled || !p.active || !HasInProgressVideo(p.courseFn()) {
		p.stopLocked()
		p.mu.Unlock()
		return
	}
	if p.inFlight {
		// the previous refresh is still running; no overlapping requests
		p.scheduleLocked()
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	p.mu.Unlock()

	// refresh failures are tolerated: server state is idempotently
	// re-derivable on the next tick
	_ = p.refresh(context.Background())

	p.mu.Lock()
	p.inFlight = false
	if p.disabled || !p.active || !HasInProgressVideo(p.courseFn()) {
		p.stopLocked()
	} else {
		p.scheduleLocked()
	}
	p.mu.Unlock()
}
