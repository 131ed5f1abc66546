package resilience

import (
	"sync"
	"time"
)

// Stats accumulates call timing for one wrapped method.
type Stats struct {
	Calls    int64
	Failures int64
	Total    time.Duration
	Max      time.Duration
}

// Average returns the mean call duration, zero when no calls were made.
func (s Stats) Average() time.Duration {
	if s.Calls == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Calls)
}

// Tracker is the process-wide performance tracking registry, keyed by
// stable method identity.
type Tracker struct {
	mu    sync.Mutex
	stats map[string]*Stats
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{stats: make(map[string]*Stats)}
}

// Observe records one call's duration and outcome.
func (t *Tracker) Observe(name string, d time.Duration, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.stats[name]
	if !ok {
		s = &Stats{}
		t.stats[name] = s
	}
	s.Calls++
	if failed {
		s.Failures++
	}
	s.Total += d
	if d > s.Max {
		s.Max = d
	}
}

// Snapshot returns a copy of the stats for name.
func (t *Tracker) Snapshot(name string) Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.stats[name]; ok {
		return *s
	}
	return Stats{}
}

// Reset clears the tracker (used for testing).
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = make(map[string]*Stats)
}

var defaultTracker = NewTracker()

// Timings returns the process-wide tracker the generated wrappers use.
func Timings() *Tracker { return defaultTracker }

// Timed runs op and records its duration and outcome under name.
// The result and error pass through unchanged.
func Timed[T any](t *Tracker, name string, op func() (T, error)) (T, error) {
	start := time.Now()
	result, err := op()
	t.Observe(name, time.Since(start), err != nil)
	return result, err
}
