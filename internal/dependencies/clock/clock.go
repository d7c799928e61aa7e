package clock

import "time"

// Clock abstracts wall-clock reads so the ping estimator's timing behaviour
// can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

var _ Clock = (*RealClock)(nil)

// New creates a RealClock.
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time.
func (c *RealClock) Now() time.Time {
	return time.Now()
}
