// Package clock lets OTP expiry, cooldown and session code read time through
// an interface so tests can pin it.
package clock

import "time"

type Clocker interface {
	Now() time.Time
}

// Func adapts a plain function to Clocker.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// New returns the wall clock in UTC.
func New() Clocker {
	return Func(func() time.Time { return time.Now().UTC() })
}
