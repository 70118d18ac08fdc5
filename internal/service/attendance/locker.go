package attendance

import (
	"sync"
	"time"
)

// dayLocks serializes evaluations of the same (employee, date) pair.
// Different pairs never block each other.
type dayLocks struct {
	mu    sync.Mutex
	locks map[string]*dayLock
}

type dayLock struct {
	mu   sync.Mutex
	refs int
}

func newDayLocks() *dayLocks {
	return &dayLocks{locks: make(map[string]*dayLock)}
}

func dayKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format("2006-01-02")
}

// Lock blocks until the pair is free and returns its unlock function.
func (d *dayLocks) Lock(employeeID string, date time.Time) func() {
	key := dayKey(employeeID, date)

	d.mu.Lock()
	l, ok := d.locks[key]
	if !ok {
		l = &dayLock{}
		d.locks[key] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, key)
		}
		d.mu.Unlock()
	}
}
