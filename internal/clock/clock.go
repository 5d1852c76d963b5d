// Package clock provides the wall-clock source used for cache expiry.
//
// Components take a Clock instead of calling time.Now directly so that TTL
// behaviour can be tested with testutil.FakeClock.
package clock

import "time"

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// System is the production Clock backed by time.Now.
//
// Thread-safety: System is stateless and safe for concurrent use.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// Func adapts an ordinary function to the Clock interface.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}
