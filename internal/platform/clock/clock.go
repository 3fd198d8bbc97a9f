// Package clock provides an injectable time source so components that apply
// TTLs and cooldowns can be tested deterministically.
package clock

import "time"

// Clock supplies the current time. Production code uses System; tests use Fake.
type Clock interface {
	Now() time.Time
}

// System is a Clock backed by time.Now. All timestamps are UTC.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time { return time.Now().UTC() }

// Fake is a manually advanced Clock for tests.
type Fake struct {
	Current time.Time
}

// NewFake returns a Fake clock starting at t (normalized to UTC).
func NewFake(t time.Time) *Fake {
	return &Fake{Current: t.UTC()}
}

// Now returns the fake's current time.
func (f *Fake) Now() time.Time { return f.Current }

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.Current = f.Current.Add(d)
}
