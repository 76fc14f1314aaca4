// Package clock provides an injectable time source so timer driven code
// (grace periods, rate windows) can be tested deterministically.
//
// Production code uses Real(); tests use Fake() and call Advance.
package clock

import "time"

type Clock interface {
	Now() time.Time
	// AfterFunc calls f after d elapses. The returned Timer can cancel
	// the pending call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop reports true if it prevented the call from running.
	Stop() bool
}

type realClock struct{}

func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
