// Package clock abstracts time reads and timer arming so that strategies
// depending on elapsed time can be driven deterministically in tests.
package clock

import "time"

// Timer is a handle to a scheduled callback. Stop cancels the callback if
// it has not already fired; it reports whether the cancellation was in
// time, matching the contract of time.Timer.Stop.
type Timer interface {
	Stop() bool
}

// Provider reads the current time and arms callbacks to run after a delay.
// The default Provider wraps the standard library; tests substitute a
// FakeProvider to advance time explicitly instead of sleeping.
type Provider interface {
	// Now returns the provider's current time.
	Now() time.Time

	// AfterFunc arms f to run after d elapses, returning a Timer that can
	// cancel the pending call. f runs on its own goroutine, as with
	// time.AfterFunc.
	AfterFunc(d time.Duration, f func()) Timer
}

// System is the Provider backed by the real wall clock and the runtime's
// timer heap.
var System Provider = systemProvider{}

type systemProvider struct{}

func (systemProvider) Now() time.Time { return time.Now() }

func (systemProvider) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
