// Package clock abstracts the wall-clock reader the daily pruner consumes,
// so a test can start the clock just before the daily local-time cutoff
// instead of waiting for the real one. The pruner's wait itself runs on a
// real timer armed from the clock's reading.
package clock

import (
	"sync"
	"time"
)

// Clock is a monotonic wall-clock reader.
type Clock interface {
	Now() time.Time
}

// Real wraps time.Now in the given location.
type Real struct {
	Location *time.Location
}

// NewReal returns a Real clock. A nil location defaults to time.Local.
func NewReal(location *time.Location) Real {
	if location == nil {
		location = time.Local
	}
	return Real{Location: location}
}

func (r Real) Now() time.Time { return time.Now().In(r.Location) }

// Fake is a settable clock for tests. Zero value reports the zero time.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake clock initialized to now.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the fake clock to now.
func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
