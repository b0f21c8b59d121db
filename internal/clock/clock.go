// README: Clock abstraction; every time-dependent fare rule reads time through it.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// System reads the wall clock in a fixed location so weekday and time-of-day
// windows are evaluated in local transit time.
type System struct {
	loc *time.Location
}

func NewSystem(loc *time.Location) System {
	if loc == nil {
		loc = time.Local
	}
	return System{loc: loc}
}

func (s System) Now() time.Time {
	return time.Now().In(s.loc)
}

// Manual is a settable clock for tests and replays.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// AdvanceDays moves the clock by whole calendar days, keeping the wall time.
func (m *Manual) AdvanceDays(n int) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.AddDate(0, 0, n)
	return m.now
}

func (m *Manual) AdvanceMonths(n int) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.AddDate(0, n, 0)
	return m.now
}
