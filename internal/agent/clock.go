package agent

import "time"

// Clock provides the current time. Tests replace it with a TestClock.
type Clock interface {
	Now() time.Time
}

// RealClock provides actual system time
type RealClock struct{}

// Now returns the current system time
func (RealClock) Now() time.Time {
	return time.Now()
}

// TestClock provides a settable time for tests
type TestClock struct {
	CurrentTime time.Time
}

// Now returns the test time
func (t *TestClock) Now() time.Time {
	return t.CurrentTime
}

// Advance moves the test time forward by d
func (t *TestClock) Advance(d time.Duration) {
	t.CurrentTime = t.CurrentTime.Add(d)
}
