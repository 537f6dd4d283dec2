package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSchedulerOrdersByTimeThenInsertion(t *testing.T) {
	s := NewScheduler()
	var got []string
	s.Schedule(2*time.Second, func() { got = append(got, "c") })
	s.Schedule(time.Second, func() { got = append(got, "a") })
	s.Schedule(time.Second, func() { got = append(got, "b") })
	s.Schedule(0, func() { got = append(got, "zero") })

	if err := s.Run(context.Background(), 10*time.Second); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"zero", "a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if s.Now() != 10*time.Second {
		t.Fatalf("clock = %s, want 10s", s.Now())
	}
	if s.Executed() != 4 {
		t.Fatalf("executed = %d", s.Executed())
	}
}

func TestSchedulerHorizon(t *testing.T) {
	s := NewScheduler()
	ran := 0
	s.Schedule(time.Second, func() { ran++ })
	s.Schedule(3*time.Second, func() { ran++ })
	if err := s.Run(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("run: %v", err)
	}
	if ran != 1 || s.Pending() != 1 || s.Now() != 2*time.Second {
		t.Fatalf("ran=%d pending=%d now=%s", ran, s.Pending(), s.Now())
	}
}

func TestSchedulerNestedScheduling(t *testing.T) {
	s := NewScheduler()
	var times []time.Duration
	var tick func()
	tick = func() {
		times = append(times, s.Now())
		if len(times) < 3 {
			s.Schedule(100*time.Millisecond, tick)
		}
	}
	s.Schedule(0, tick)
	s.Run(context.Background(), time.Second)
	if len(times) != 3 || times[2] != 200*time.Millisecond {
		t.Fatalf("unexpected times %v", times)
	}
}

func TestScheduleAtPast(t *testing.T) {
	s := NewScheduler()
	s.Schedule(time.Second, func() {})
	s.Run(context.Background(), time.Second)
	if _, err := s.ScheduleAt(500*time.Millisecond, func() {}); !errors.Is(err, ErrPastEvent) {
		t.Fatalf("expected ErrPastEvent, got %v", err)
	}
	if _, err := s.ScheduleAt(time.Second, func() {}); err != nil {
		t.Fatalf("scheduling at now: %v", err)
	}
}

func TestCancelAndAbort(t *testing.T) {
	s := NewScheduler()
	ran := false
	e := s.Schedule(time.Second, func() { ran = true })
	e.Cancel()
	boom := errors.New("boom")
	s.Schedule(2*time.Second, func() { s.Abort(boom) })
	after := false
	s.Schedule(3*time.Second, func() { after = true })

	err := s.Run(context.Background(), 10*time.Second)
	if !errors.Is(err, boom) {
		t.Fatalf("expected abort error, got %v", err)
	}
	if ran || after {
		t.Fatalf("ran=%v after=%v", ran, after)
	}
	if s.Now() != 2*time.Second {
		t.Fatalf("clock = %s", s.Now())
	}
}

func TestRunHonoursContext(t *testing.T) {
	s := NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	var loop func()
	loop = func() {
		count++
		if count == 5 {
			cancel()
		}
		s.Schedule(time.Millisecond, loop)
	}
	s.Schedule(0, loop)
	if err := s.Run(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if count != 5 {
		t.Fatalf("count = %d", count)
	}
}
