// Package watermark hands out change-feed timestamps and the sync watermark that trails them.
//
// Items and stock entries are stamped by the service before their transaction commits. A sync
// that reads the feed up to time W must not report W while a write stamped at or below W is
// still open, otherwise that write commits behind the client's watermark and is never delivered.
package watermark

import (
	"sync"
	"time"
)

// Resolution is the stamp precision; Postgres timestamptz keeps microseconds.
const Resolution = time.Microsecond

// Tracker records the stamps of writes that have not committed yet. A nil Tracker stamps with the
// current time and reports a watermark one tick in the past.
type Tracker struct {
	mu   sync.Mutex
	lag  time.Duration
	now  func() time.Time
	next uint64
	open map[uint64]time.Time
}

// NewTracker returns a tracker whose watermark additionally trails the clock by lag. A non-zero
// lag covers writes made by other service instances against the same database.
func NewTracker(lag time.Duration) *Tracker {
	if lag < 0 {
		lag = 0
	}
	return &Tracker{lag: lag, now: time.Now, open: make(map[uint64]time.Time)}
}

// Begin stamps a write. The returned func must be called once the write has committed or failed.
func (t *Tracker) Begin() (time.Time, func()) {
	if t == nil {
		return stamp(time.Now()), func() {}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ts := stamp(t.now())
	t.next++
	id := t.next
	t.open[id] = ts

	var once sync.Once
	return ts, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.open, id)
			t.mu.Unlock()
		})
	}
}

// Watermark is the latest time up to which every write stamped by this tracker has finished.
// Any later write is stamped after it.
func (t *Tracker) Watermark() time.Time {
	if t == nil {
		return stamp(time.Now()).Add(-Resolution)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	w := stamp(t.now())
	for _, ts := range t.open {
		if ts.Before(w) {
			w = ts
		}
	}
	return w.Add(-Resolution - t.lag)
}

// InFlight reports how many stamped writes are still open.
func (t *Tracker) InFlight() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.open)
}

func stamp(ts time.Time) time.Time {
	return ts.UTC().Truncate(Resolution)
}
