// Package clock provides a monotonic, wrap-safe time source for the core
// tick loop. All components take a Time by value each tick rather than
// reading a global clock, so they stay trivially testable with a Manual
// source.
package clock

import "time"

// Time is elapsed milliseconds since an arbitrary epoch. It wraps at
// roughly 49.7 days; Since and Before are defined so that wraparound never
// produces a negative interval.
type Time uint32

// Since returns the elapsed time from start to t, correct across a single
// wraparound of the uint32 counter.
func (t Time) Since(start Time) Time {
	return t - start
}

// Before reports whether t is strictly earlier than other, accounting for
// wraparound by comparing the signed difference.
func (t Time) Before(other Time) bool {
	return int32(t-other) < 0
}

// Add returns t shifted forward by d milliseconds.
func (t Time) Add(d Time) Time {
	return t + d
}

// Source produces the current Time once per tick.
type Source interface {
	Now() Time
}

// Real is a Source backed by the runtime monotonic clock.
type Real struct {
	start time.Time
}

// NewReal returns a Real clock whose epoch is the moment of construction.
func NewReal() *Real {
	return &Real{start: time.Now()}
}

// Now returns elapsed milliseconds since the clock was constructed,
// wrapping into Time's uint32 range like a free-running hardware timer.
func (r *Real) Now() Time {
	return Time(uint32(time.Since(r.start).Milliseconds()))
}

// Manual is a Source for tests: Now returns whatever was last set, and
// Advance moves it forward by an explicit delta (itself wrap-safe, since
// Time addition is modular uint32 arithmetic).
type Manual struct {
	t Time
}

// NewManual returns a Manual clock starting at t0.
func NewManual(t0 Time) *Manual {
	return &Manual{t: t0}
}

// Now returns the clock's current value.
func (m *Manual) Now() Time {
	return m.t
}

// Advance moves the clock forward by d milliseconds.
func (m *Manual) Advance(d Time) {
	m.t += d
}

// Set pins the clock to an explicit value, useful for exercising
// wraparound directly in tests.
func (m *Manual) Set(t Time) {
	m.t = t
}
