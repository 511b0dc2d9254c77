package engine

import (
	"sync"
	"time"
)

// DefaultQuietInterval is how long the trigger feed must stay silent
// before a pending refresh fires.
const DefaultQuietInterval = 1000 * time.Millisecond

// Scheduler coalesces bursts of change notifications into a single
// invocation of its action after a quiet period. It is either Idle (no
// timer armed) or Pending (one timer armed); a trigger while Pending
// resets the deadline, it never enqueues additional work.
type Scheduler struct {
	mu       sync.Mutex
	interval time.Duration
	action   func()
	timer    *time.Timer
	// gen invalidates timer callbacks that committed to firing just
	// before a Trigger or Stop reset the deadline: Timer.Stop reports
	// false for such a timer, and its fire must then be a no-op instead
	// of running the action and clobbering the replacement timer.
	gen uint64
}

// NewScheduler creates an idle scheduler. The action runs on the
// timer's goroutine when a quiet interval elapses uninterrupted.
func NewScheduler(interval time.Duration, action func()) *Scheduler {
	return &Scheduler{interval: interval, action: action}
}

// Trigger records one change notification: arms the timer if idle,
// resets the deadline if pending. The notification carries no payload;
// only arrival matters.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.interval, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		// The deadline was reset after this timer committed to firing.
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()
	s.action()
}

// Pending reports whether a refresh is armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Stop cancels any outstanding timer. The scheduler remains usable;
// system teardown simply never triggers it again.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}
