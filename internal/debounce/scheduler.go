// Package debounce coalesces bursts of triggers into a single call.
package debounce

import (
	"sync"
	"time"
)

// DefaultWait is the quiescence window used when none is configured.
const DefaultWait = 500 * time.Millisecond

// Scheduler runs fn once the wait period has passed without a new Schedule
// call. Every Schedule replaces the pending timer, so at most one timer is
// outstanding and the last trigger of a burst always fires.
type Scheduler struct {
	wait time.Duration
	fn   func()

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	stopped    bool

	// serializes fn so a timer firing during Flush cannot overlap it
	run sync.Mutex
}

// New creates a scheduler. A non-positive wait falls back to DefaultWait.
func New(wait time.Duration, fn func()) *Scheduler {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Scheduler{wait: wait, fn: fn}
}

// Schedule (re)arms the timer.
func (s *Scheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.generation++
	gen := s.generation
	s.timer = time.AfterFunc(s.wait, func() { s.fire(gen) })
}

// CancelPending drops the pending trigger, if any, and reports whether one
// was dropped.
func (s *Scheduler) CancelPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

// Flush runs fn immediately if a trigger is pending and reports whether it
// ran. With nothing pending it only waits for a run already in progress.
func (s *Scheduler) Flush() bool {
	s.mu.Lock()
	pending := s.clearLocked()
	s.mu.Unlock()

	if !pending {
		s.run.Lock()
		s.run.Unlock()
		return false
	}
	s.invoke()
	return true
}

// Pending reports whether a trigger is waiting to fire.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Stop cancels any pending trigger and ignores later Schedule calls.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.stopped = true
}

func (s *Scheduler) clearLocked() bool {
	if s.timer == nil {
		return false
	}
	s.timer.Stop()
	s.timer = nil
	s.generation++
	return true
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	// a newer Schedule, CancelPending or Flush has superseded this timer
	if gen != s.generation || s.timer == nil {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	s.invoke()
}

func (s *Scheduler) invoke() {
	s.run.Lock()
	defer s.run.Unlock()
	s.fn()
}
