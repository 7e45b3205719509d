// Package clock abstracts wall time so debounce and save-state timers can be
// driven deterministically in tests.
package clock

import (
	"time"

	"go.uber.org/fx"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop cancels the timer. Returns false when the callback already fired.
	Stop() bool
}

// Clock provides the current time and deferred callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

type systemClock struct{}

// New returns the wall clock.
func New() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Module provides the wall clock.
var Module = fx.Module("clock",
	fx.Provide(New),
)
