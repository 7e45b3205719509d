package session

import (
	"sync"
	"time"

	"github.com/smallbiznis/rebateplan/internal/clock"
)

// Debouncer coalesces bursts of triggers: only the last callback within the
// delay window runs.
type Debouncer struct {
	mu    sync.Mutex
	clk   clock.Clock
	delay time.Duration
	timer clock.Timer
	fn    func()
}

func NewDebouncer(clk clock.Clock, delay time.Duration) *Debouncer {
	return &Debouncer{clk: clk, delay: delay}
}

// Trigger schedules fn after the delay, replacing any callback still pending.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.fn = fn
	d.timer = d.clk.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.fn = nil
}
