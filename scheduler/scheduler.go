// Package scheduler implements the simulation's virtual clock and the
// time-triggered callback queue used by particle sources: a
// min-priority ordered multi-map from time point to callback, ticked
// forward by the driver's main loop.
package scheduler

import "container/heap"

// Callback is invoked when its scheduled time has been reached. now is
// the scheduler's virtual time at the moment of dispatch (which may be
// later than the requested time by up to one tick's duration). A
// callback reschedules itself by calling Scheduler methods again from
// within its own body.
type Callback func(s *Scheduler, now float64)

type entry struct {
	time float64
	seq  int64
	cb   Callback
}

type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)        { *h = append(*h, x.(entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Scheduler owns the virtual clock and the callback queue. Callbacks
// scheduled from inside a dispatch go to a staging slice first and are
// merged into the live heap only after the current Tick's dispatch
// pass finishes, so a callback rescheduling itself can never be
// re-invoked within the same Tick and never corrupts the heap being
// drained.
type Scheduler struct {
	now     float64
	queue   entryHeap
	staging []entry
	nextSeq int64
	ticking bool
}

// New constructs a scheduler with virtual time starting at 0.
func New() *Scheduler {
	return &Scheduler{}
}

// Now returns the scheduler's current virtual time.
func (s *Scheduler) Now() float64 { return s.now }

// ScheduleAt queues cb to run no earlier than the given virtual time.
func (s *Scheduler) ScheduleAt(time float64, cb Callback) {
	e := entry{time: time, seq: s.nextSeq, cb: cb}
	s.nextSeq++
	if s.ticking {
		s.staging = append(s.staging, e)
		return
	}
	heap.Push(&s.queue, e)
}

// ScheduleAfter queues cb to run no earlier than duration past the
// scheduler's current virtual time.
func (s *Scheduler) ScheduleAfter(duration float64, cb Callback) {
	s.ScheduleAt(s.now+duration, cb)
}

// Tick advances the virtual clock by dt and dispatches, in time order,
// every callback whose scheduled time is now <= the clock. Callbacks
// dispatched during this call that reschedule themselves run again on
// a later Tick, never the current one.
func (s *Scheduler) Tick(dt float64) {
	s.now += dt
	s.ticking = true

	for s.queue.Len() > 0 && s.queue[0].time <= s.now {
		e := heap.Pop(&s.queue).(entry)
		e.cb(s, s.now)
	}

	s.ticking = false
	for _, e := range s.staging {
		heap.Push(&s.queue, e)
	}
	s.staging = s.staging[:0]
}

// Pending returns the number of callbacks currently queued (including
// any staged during an in-progress Tick).
func (s *Scheduler) Pending() int {
	return s.queue.Len() + len(s.staging)
}
