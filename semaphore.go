package task

import "slices"

// Semaphore bounds concurrent access to a resource with a weighted
// counter. Acquire returns a Task that resolves once the requested weight
// is available; unlike the source's version (built on a Coroutine awaiting
// a waiter Signal), this one is a direct consumer of [Fulfiller]: each
// blocked Acquire holds the Fulfiller for its own Task, and Release walks
// the waiter queue fulfilling as many as now fit.
//
// A Semaphore must not be shared by more than one Loop.
type Semaphore struct {
	loop    *Loop
	size    int64
	cur     int64
	waiters []*semWaiter
}

type semWaiter struct {
	n int64
	f Fulfiller[struct{}]
}

// NewSemaphore returns a new Semaphore with the given maximum combined
// weight, bound to l for Tasks created when Acquire must block.
func NewSemaphore(l *Loop, n int64) *Semaphore {
	return &Semaphore{loop: l, size: n}
}

// Acquire returns a Task that resolves once a weight of n has been
// acquired from s. A request for more than s's total size blocks forever.
func (s *Semaphore) Acquire(n int64) Task[struct{}] {
	if n < 0 {
		panic("task: negative semaphore weight")
	}
	if len(s.waiters) == 0 && s.size-s.cur >= n {
		s.cur += n
		return Value(struct{}{})
	}
	t, f := NewTaskAndFulfiller[struct{}](s.loop)
	s.waiters = append(s.waiters, &semWaiter{n: n, f: f})
	return t
}

// Release releases a weight of n back to s, fulfilling as many queued
// Acquire calls, in FIFO order, as now fit.
func (s *Semaphore) Release(n int64) {
	if n < 0 {
		panic("task: negative semaphore weight")
	}
	s.cur -= n
	if s.cur < 0 {
		panic("task: semaphore released more than held")
	}
	i := 0
	for i < len(s.waiters) {
		w := s.waiters[i]
		if s.size-s.cur < w.n {
			break
		}
		s.cur += w.n
		w.f.Fulfill(struct{}{})
		i++
	}
	s.waiters = slices.Delete(s.waiters, 0, i)
}
