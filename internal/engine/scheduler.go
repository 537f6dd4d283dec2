// Package engine provides the discrete-event scheduler that drives a run.
package engine

import (
	"container/heap"
	"context"
	"errors"
	"time"
)

// ErrPastEvent is returned by ScheduleAt for a timestamp before Now.
var ErrPastEvent = errors.New("event scheduled in the past")

// Event is a pending action. It can be cancelled until it has run.
type Event struct {
	at        time.Duration
	seq       uint64
	action    func()
	index     int
	cancelled bool
}

// At returns the simulated time the event fires at.
func (e *Event) At() time.Duration { return e.at }

// Cancel prevents a pending event from running.
func (e *Event) Cancel() {
	if e != nil {
		e.cancelled = true
	}
}

type eventQueue []*Event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	e := x.(*Event)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

// Scheduler owns simulated time and the pending event queue. Events with
// equal timestamps run in the order they were scheduled. A Scheduler is
// driven from a single goroutine.
type Scheduler struct {
	now      time.Duration
	seq      uint64
	queue    eventQueue
	executed uint64
	stopped  bool
	err      error
}

// NewScheduler returns a scheduler at time zero with no pending events.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Now returns the current simulated time.
func (s *Scheduler) Now() time.Duration { return s.now }

// Schedule runs action after delay. Negative delays are treated as zero.
func (s *Scheduler) Schedule(delay time.Duration, action func()) *Event {
	if delay < 0 {
		delay = 0
	}
	return s.push(s.now+delay, action)
}

// ScheduleAt runs action at the absolute time at.
func (s *Scheduler) ScheduleAt(at time.Duration, action func()) (*Event, error) {
	if at < s.now {
		return nil, ErrPastEvent
	}
	return s.push(at, action), nil
}

func (s *Scheduler) push(at time.Duration, action func()) *Event {
	s.seq++
	e := &Event{at: at, seq: s.seq, action: action}
	heap.Push(&s.queue, e)
	return e
}

// Stop ends Run after the current event.
func (s *Scheduler) Stop() { s.stopped = true }

// Abort ends Run after the current event and makes it return err.
// Only the first abort error is kept.
func (s *Scheduler) Abort(err error) {
	if s.err == nil {
		s.err = err
	}
	s.stopped = true
}

// Run executes events in timestamp order until the queue is empty, the
// next event lies beyond until, Stop or Abort is called, or ctx is done.
// When the horizon is reached the clock is advanced to until.
func (s *Scheduler) Run(ctx context.Context, until time.Duration) error {
	s.stopped = false
	for len(s.queue) > 0 && !s.stopped {
		if err := ctx.Err(); err != nil {
			return err
		}
		next := s.queue[0]
		if next.at > until {
			break
		}
		heap.Pop(&s.queue)
		if next.cancelled {
			continue
		}
		s.now = next.at
		s.executed++
		next.action()
	}
	if s.err != nil {
		return s.err
	}
	if !s.stopped && s.now < until {
		s.now = until
	}
	return nil
}

// Pending returns the number of queued events, cancelled ones included.
func (s *Scheduler) Pending() int { return len(s.queue) }

// Executed returns how many events have run so far.
func (s *Scheduler) Executed() uint64 { return s.executed }
