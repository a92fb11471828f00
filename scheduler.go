package main

import "sort"

// Timer is a pending callback on a Scheduler
type Timer struct {
	id       int
	deadline float64
	fn       func()
	active   bool
	sched    *Scheduler
}

// Cancel stops the timer if it has not fired yet
func (t *Timer) Cancel() {
	if t == nil || !t.active {
		return
	}
	t.active = false
	t.sched.drop(t)
}

// Active reports whether the timer is still pending
func (t *Timer) Active() bool { return t != nil && t.active }

// Scheduler runs delayed callbacks against tick time. It never spawns
// goroutines: everything fires from Advance on the caller's loop, so
// callbacks can touch the match state without locking.
type Scheduler struct {
	now    float64
	nextID int
	timers []*Timer
}

// NewScheduler creates an empty scheduler at time zero
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the elapsed tick time in seconds
func (s *Scheduler) Now() float64 { return s.now }

// After schedules fn to run once d seconds from now
func (s *Scheduler) After(d float64, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	s.nextID++
	t := &Timer{id: s.nextID, deadline: s.now + d, fn: fn, active: true, sched: s}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves time forward by dt and fires every due timer in deadline
// order. Timers scheduled by a callback fire in the same call when they
// are already due.
func (s *Scheduler) Advance(dt float64) {
	target := s.now + dt
	for {
		t := s.nextDue(target)
		if t == nil {
			break
		}
		if t.deadline > s.now {
			s.now = t.deadline
		}
		t.active = false
		s.drop(t)
		t.fn()
	}
	s.now = target
}

// Pending returns the number of timers that have not fired
func (s *Scheduler) Pending() int { return len(s.timers) }

// Stop cancels every pending timer
func (s *Scheduler) Stop() {
	for _, t := range s.timers {
		t.active = false
	}
	s.timers = nil
}

func (s *Scheduler) nextDue(target float64) *Timer {
	if len(s.timers) == 0 {
		return nil
	}
	sort.SliceStable(s.timers, func(i, j int) bool {
		if s.timers[i].deadline != s.timers[j].deadline {
			return s.timers[i].deadline < s.timers[j].deadline
		}
		return s.timers[i].id < s.timers[j].id
	})
	if t := s.timers[0]; t.deadline <= target+1e-9 {
		return t
	}
	return nil
}

func (s *Scheduler) drop(t *Timer) {
	for i, x := range s.timers {
		if x == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return
		}
	}
}
