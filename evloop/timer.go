package evloop

import "container/heap"

// Timer is a single scheduled callback: a request timeout or a backend
// reconnect backoff, per SPEC_FULL.md's design notes calling for a
// min-heap timing wheel rather than a linear scan of pending deadlines.
type Timer struct {
	DeadlineMs int64
	Callback   func()
	index      int // heap index, maintained by container/heap
	canceled   bool
}

// Cancel marks the timer so it is skipped when its deadline is reached
// and popped, without needing to search the heap for it.
func (t *Timer) Cancel() {
	if t != nil {
		t.canceled = true
	}
}

type timerHeap []*Timer

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].DeadlineMs < h[j].DeadlineMs }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x interface{}) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// TimerWheel is a min-heap of pending Timers ordered by deadline, used by
// EventBase to compute how long PollIO should block and to fire expired
// callbacks once it returns.
type TimerWheel struct {
	h timerHeap
}

// Schedule adds a timer firing at deadlineMs (an absolute millisecond
// timestamp on whatever clock the caller uses consistently).
func (w *TimerWheel) Schedule(deadlineMs int64, cb func()) *Timer {
	t := &Timer{DeadlineMs: deadlineMs, Callback: cb}
	heap.Push(&w.h, t)
	return t
}

// NextDeadline returns the soonest non-canceled timer's deadline and true,
// or (0, false) if the wheel is empty. Canceled timers at the heap's root
// are popped and discarded as a side effect.
func (w *TimerWheel) NextDeadline() (int64, bool) {
	for w.h.Len() > 0 {
		t := w.h[0]
		if t.canceled {
			heap.Pop(&w.h)
			continue
		}
		return t.DeadlineMs, true
	}
	return 0, false
}

// FireDue pops and invokes every non-canceled timer whose deadline is <=
// nowMs, in deadline order.
func (w *TimerWheel) FireDue(nowMs int64) {
	for w.h.Len() > 0 {
		t := w.h[0]
		if t.DeadlineMs > nowMs {
			return
		}
		heap.Pop(&w.h)
		if !t.canceled && t.Callback != nil {
			t.Callback()
		}
	}
}

// Len reports the number of timers still pending (including canceled ones
// not yet popped).
func (w *TimerWheel) Len() int { return w.h.Len() }
