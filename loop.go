package task

import (
	"sync"

	"github.com/petermattis/goid"
)

// A tier selects which of a [Loop]'s three queues an [event] is armed on.
//
// See the package doc for the scheduling intent behind each tier.
type tier int

const (
	tierDepthFirst tier = iota
	tierBreadthFirst
	tierLast
)

// IdleHook is invoked by a [Loop] whenever all three of its queues are
// empty. A well-behaved implementation blocks until external work (I/O, a
// cross-thread event, a timer) becomes available, then returns, so that
// [Loop.Run] can resume draining. [Loop.Poll] never calls this hook.
type IdleHook interface {
	// Wait blocks until the loop should resume draining, or returns an
	// error to abort Run.
	Wait(l *Loop) error
}

// IdleHookFunc adapts a func(*Loop) error to an [IdleHook].
type IdleHookFunc func(l *Loop) error

// Wait implements [IdleHook].
func (f IdleHookFunc) Wait(l *Loop) error { return f(l) }

// event is a loop-resident, intrusively linked callback. Every concrete node
// type in this package that needs to be scheduled (as opposed to merely
// being a passive dependency) embeds an *event as part of its internal
// bookkeeping. An event belongs to exactly one [Loop] for its lifetime.
type event struct {
	loop       *Loop
	prev, next *event
	queued     *eventList // non-nil while linked into one of the loop's queues
	fire       func()
}

// eventList is an intrusive doubly-linked FIFO queue of *event. The zero
// value is an empty list.
type eventList struct {
	head, tail *event
}

func (q *eventList) empty() bool { return q.head == nil }

func (q *eventList) pushBack(e *event) {
	e.queued = q
	e.prev, e.next = q.tail, nil
	if q.tail != nil {
		q.tail.next = e
	} else {
		q.head = e
	}
	q.tail = e
}

func (q *eventList) pushFront(e *event) {
	e.queued = q
	e.prev, e.next = nil, q.head
	if q.head != nil {
		q.head.prev = e
	} else {
		q.tail = e
	}
	q.head = e
}

func (q *eventList) popFront() *event {
	e := q.head
	q.remove(e)
	return e
}

func (q *eventList) remove(e *event) {
	if e.queued != q {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		q.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		q.tail = e.prev
	}
	e.prev, e.next, e.queued = nil, nil, nil
}

// A Loop is a single-threaded, cooperative event loop. It owns three FIFO
// queues — depth-first, breadth-first and last — and drains them in that
// order. A Loop must only be driven by one goroutine at a time; concurrent
// calls to [Loop.Run] or [Loop.Poll] on the same Loop race.
//
// Other goroutines may still interact with a Loop through [Executor],
// obtained with [Loop.Executor], which is the only part of this package
// safe for concurrent use.
type Loop struct {
	mu                              sync.Mutex
	depthFirst, breadthFirst, last  eventList
	idle                            IdleHook
	onUnhandledPanic                func(error)
	driving                         bool
	driverGoid                      int64

	xmu      sync.Mutex
	incoming []xThreadWork
	cancel   []xThreadWork
	replies  []xThreadReply
	wake     chan struct{}
	exec     *Executor
	xLive    map[xThreadWork]struct{}

	detached map[any]struct{}
}

// keepAlive roots v (typically an *eagerNode created by [Detach]) so it
// is not garbage-collected while its dependency is still in flight, even
// though nothing else in the program holds a reference to it. The returned
// func removes the root once the work completes.
func (l *Loop) keepAlive(v any) (release func()) {
	if l.detached == nil {
		l.detached = make(map[any]struct{})
	}
	l.detached[v] = struct{}{}
	return func() { delete(l.detached, v) }
}

// NewLoop returns a new [Loop] using idle as its idle hook. idle may be nil,
// in which case [Loop.Run] returns as soon as its queues first empty out.
func NewLoop(idle IdleHook) *Loop {
	l := &Loop{idle: idle, wake: make(chan struct{}, 1)}
	return l
}

// OnUnhandledPanic sets the callback invoked when a [Task] passed to
// [Detach] fails and no error handler was supplied. f may be nil to
// discard such failures silently.
func (l *Loop) OnUnhandledPanic(f func(error)) {
	l.onUnhandledPanic = f
}

func (l *Loop) arm(e *event, t tier) {
	l.unarm(e)
	switch t {
	case tierDepthFirst:
		l.depthFirst.pushFront(e)
	case tierBreadthFirst:
		l.breadthFirst.pushBack(e)
	case tierLast:
		l.last.pushBack(e)
	}
}

func (l *Loop) unarm(e *event) {
	switch e.queued {
	case &l.depthFirst:
		l.depthFirst.remove(e)
	case &l.breadthFirst:
		l.breadthFirst.remove(e)
	case &l.last:
		l.last.remove(e)
	}
}

func (l *Loop) newEvent(fire func()) *event {
	return &event{loop: l, fire: fire}
}

func (l *Loop) empty() bool {
	return l.depthFirst.empty() && l.breadthFirst.empty() && l.last.empty()
}

// turn pops and fires at most one event from the first non-empty queue, in
// depth-first, breadth-first, last order. It reports whether an event was
// fired.
func (l *Loop) turn() bool {
	var q *eventList
	switch {
	case !l.depthFirst.empty():
		q = &l.depthFirst
	case !l.breadthFirst.empty():
		q = &l.breadthFirst
	case !l.last.empty():
		q = &l.last
	default:
		return false
	}

	e := q.popFront()
	fire := e.fire
	fire()
	return true
}

// Run drains the loop: it pops and fires events, waiting on the idle hook
// whenever all three queues empty out, for as long as the hook keeps
// returning nil. It returns only when the idle hook returns an error, or,
// for a nil idle hook, as soon as the queues first empty out. A hook that
// wakes for cross-thread work must let Run loop back around to drain it
// rather than returning early, which is why Run never checks emptiness
// again right after a successful wait.
//
// Once Run returns, l will never again pick up incoming cross-thread work
// on its own goroutine. Any call still owned by l and not yet DONE — queued,
// executing, or mid-cancel — is synthetically completed with a disconnection
// error before Run returns, so a goroutine blocked in [ExecuteSync] or in
// [Loop.Executor]'s cancellation path never hangs just because the loop it
// was calling into stopped running.
func (l *Loop) Run() error {
	l.beginDriving()
	defer l.endDriving()
	defer l.disconnectLiveCrossThreadEvents()

	for {
		for l.turn() {
		}
		l.drainCrossThread()
		if !l.empty() {
			continue
		}
		if l.idle == nil {
			return nil
		}
		if err := l.idle.Wait(l); err != nil {
			return err
		}
	}
}

// Poll drains the loop without ever invoking the idle hook, stopping as
// soon as either ready reports true or there is no more queued work. It
// must not be called while l is already being driven; [Task.Poll], which
// runs inside a fiber of an already-driven loop, steps the queues the same
// way without taking over the drive.
func (l *Loop) Poll(ready func() bool) bool {
	l.beginDriving()
	defer l.endDriving()

	for {
		if ready() {
			return true
		}
		if l.turn() {
			continue
		}
		l.drainCrossThread()
		if ready() {
			return true
		}
		if !l.turn() {
			return false
		}
	}
}

func (l *Loop) beginDriving() {
	l.mu.Lock()
	if l.driving {
		l.mu.Unlock()
		panic("task: Loop driven recursively")
	}
	l.driving = true
	l.driverGoid = goid.Get()
	l.mu.Unlock()
}

func (l *Loop) endDriving() {
	l.mu.Lock()
	l.driving = false
	l.mu.Unlock()
}

// assertOnLoopGoroutine panics if l is being driven and the caller is not
// the goroutine driving it. No node in this package calls it: node methods
// do not check which goroutine runs them.
func (l *Loop) assertOnLoopGoroutine() {
	l.mu.Lock()
	driving, driverGoid := l.driving, l.driverGoid
	l.mu.Unlock()
	if driving && goid.Get() != driverGoid {
		panic("task: called from a goroutine other than the one driving the loop")
	}
}

func (l *Loop) reportUnhandled(err error) {
	if l.onUnhandledPanic != nil {
		l.onUnhandledPanic(err)
	}
}
