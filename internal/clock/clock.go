// Package clock abstracts wall-clock reads so expiry logic can be tested
// without sleeping.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

// Now returns time.Now with its monotonic reading intact, so expiry
// arithmetic is unaffected by wall-clock steps. Convert to UTC at the edges.
func (Real) Now() time.Time { return time.Now() }

// Fake is a manually driven Clock for tests. Safe for concurrent use.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake pinned at t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

// Now returns the pinned time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set pins the clock at t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

var (
	_ Clock = Real{}
	_ Clock = (*Fake)(nil)
)
