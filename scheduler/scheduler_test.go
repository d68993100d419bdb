package scheduler

import "testing"

// TestSelfReschedulingCallback implements the scenario: a callback
// scheduled at t=1s reschedules itself 1s later each time it fires.
// Ticking from t=0 to t=3 in 0.5s increments must fire it exactly 3
// times, at virtual times 1, 2, 3, each observed no later than 0.5s
// after its due time.
func TestSelfReschedulingCallback(t *testing.T) {
	s := New()

	var fireTimes []float64
	var cb Callback
	cb = func(s *Scheduler, now float64) {
		fireTimes = append(fireTimes, now)
		s.ScheduleAfter(1, cb)
	}
	s.ScheduleAt(1, cb)

	for i := 0; i < 6; i++ {
		s.Tick(0.5)
	}

	if len(fireTimes) != 3 {
		t.Fatalf("fired %d times, want 3: %v", len(fireTimes), fireTimes)
	}
	want := []float64{1, 2, 3}
	for i, w := range want {
		if fireTimes[i] != w {
			t.Errorf("fire %d at %v, want %v", i, fireTimes[i], w)
		}
		if fireTimes[i]-w > 0.5 {
			t.Errorf("fire %d too late: %v is more than 0.5s past due time %v", i, fireTimes[i], w)
		}
	}
}

func TestTickDispatchesInTimeOrder(t *testing.T) {
	s := New()
	var order []string

	s.ScheduleAt(2, func(s *Scheduler, now float64) { order = append(order, "b") })
	s.ScheduleAt(1, func(s *Scheduler, now float64) { order = append(order, "a") })
	s.ScheduleAt(1, func(s *Scheduler, now float64) { order = append(order, "a2") })

	s.Tick(3)

	want := []string{"a", "a2", "b"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestRescheduleDuringTickDoesNotRunSameTick(t *testing.T) {
	s := New()
	calls := 0
	var cb Callback
	cb = func(s *Scheduler, now float64) {
		calls++
		s.ScheduleAt(now, cb) // due immediately, but must wait for the next Tick
	}
	s.ScheduleAt(0, cb)

	s.Tick(0)
	if calls != 1 {
		t.Fatalf("calls after first tick = %d, want 1", calls)
	}
	s.Tick(0)
	if calls != 2 {
		t.Fatalf("calls after second tick = %d, want 2", calls)
	}
}

func TestPendingCounts(t *testing.T) {
	s := New()
	if s.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0", s.Pending())
	}
	s.ScheduleAt(5, func(s *Scheduler, now float64) {})
	s.ScheduleAt(10, func(s *Scheduler, now float64) {})
	if s.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", s.Pending())
	}
}
