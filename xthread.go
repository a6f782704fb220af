package task

import "sync"

// xState is the cross-thread event lifecycle: a call starts UNUSED, is
// QUEUED on the target loop once the requester sends it, becomes EXECUTING once the target loop picks it up, optionally
// passes through CANCELING if the requester abandons it mid-flight, and
// always ends DONE.
type xState int32

const (
	xUnused xState = iota
	xQueued
	xExecuting
	xCanceling
	xDone
)

// Executor is a stable, concurrency-safe handle onto a [Loop], obtained
// with [Loop.Executor]. It is the only part of this package meant to be
// called from goroutines other than the one driving its Loop.
type Executor struct {
	loop *Loop
}

// Executor returns the stable [Executor] handle for l, creating it on first
// use.
func (l *Loop) Executor() *Executor {
	l.xmu.Lock()
	defer l.xmu.Unlock()
	if l.exec == nil {
		l.exec = &Executor{loop: l}
	}
	return l.exec
}

// signalWake is called with xmu held (or right after releasing it); it tells a
// loop that might be parked in its idle hook that cross-thread work is
// available. Loops using [Loop.DefaultIdleHook] observe this immediately;
// loops with a custom hook must themselves select on [Loop.WakeChannel].
func (l *Loop) signalWake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// WakeChannel exposes the channel signaled whenever cross-thread work
// arrives for l, for use by a custom [IdleHook].
func (l *Loop) WakeChannel() <-chan struct{} { return l.wake }

// DefaultIdleHook returns an [IdleHook] that parks until cross-thread work
// arrives. It never observes timers, sockets, or other I/O; hosts that need
// those provide their own [IdleHook] and select on [Loop.WakeChannel] too.
func (l *Loop) DefaultIdleHook() IdleHook {
	return IdleHookFunc(func(l *Loop) error {
		<-l.wake
		return nil
	})
}

// xThreadWork is the type-erased interface an *xThreadEvent[T] satisfies so
// that a Loop's incoming-work queue can be homogeneous across T.
type xThreadWork interface {
	runOnTarget()
	reviewCancelOnTarget()
	forceDisconnect()
}

// xThreadReply is the type-erased interface for completed async events
// waiting to be armed on their reply loop.
type xThreadReply interface {
	armOnRequester()
}

func (l *Loop) drainCrossThread() {
	l.xmu.Lock()
	work := l.incoming
	l.incoming = nil
	cancels := l.cancel
	l.cancel = nil
	l.xmu.Unlock()

	for _, w := range work {
		w.runOnTarget()
	}
	for _, w := range cancels {
		w.reviewCancelOnTarget()
	}

	l.xmu.Lock()
	replies := l.replies
	l.replies = nil
	l.xmu.Unlock()
	for _, r := range replies {
		r.armOnRequester()
	}
}

// disconnectLiveCrossThreadEvents synthetically completes, with a
// disconnection error, every cross-thread event still owned by l — queued,
// executing, or mid-cancel — so that no goroutine calling into l through an
// [Executor] is left blocked forever just because l stopped running. It is
// called once, from a defer in [Loop.Run], right before Run returns.
func (l *Loop) disconnectLiveCrossThreadEvents() {
	l.xmu.Lock()
	live := make([]xThreadWork, 0, len(l.xLive))
	for w := range l.xLive {
		live = append(live, w)
	}
	l.incoming = nil
	l.cancel = nil
	l.xmu.Unlock()

	for _, w := range live {
		w.forceDisconnect()
	}
}

// xThreadEvent is simultaneously an event in the target loop (its
// runOnTarget method is invoked there) and a node in the requesting loop
// (its result is delivered through ordinary node machinery once it's
// marked DONE and armed).
type xThreadEvent[T any] struct {
	target *Loop
	reply  *Loop // nil for a purely synchronous call
	f      func() Task[T]

	mu    sync.Mutex
	state xState
	done  chan struct{}

	inner     Task[T]
	hasInner  bool
	result    ResultCell[T]

	innerEvent event
	forward    *event
}

func newXThreadEvent[T any](target, reply *Loop, f func() Task[T]) *xThreadEvent[T] {
	return &xThreadEvent[T]{target: target, reply: reply, f: f, state: xUnused, done: make(chan struct{})}
}

func (xe *xThreadEvent[T]) enqueue() {
	xe.mu.Lock()
	xe.state = xQueued
	xe.mu.Unlock()

	xe.target.xmu.Lock()
	xe.target.incoming = append(xe.target.incoming, xe)
	if xe.target.xLive == nil {
		xe.target.xLive = make(map[xThreadWork]struct{})
	}
	xe.target.xLive[xe] = struct{}{}
	xe.target.xmu.Unlock()
	xe.target.signalWake()
}

// runOnTarget executes on the target loop's own goroutine, after it was
// dequeued from the incoming-work list.
func (xe *xThreadEvent[T]) runOnTarget() {
	xe.mu.Lock()
	if xe.state != xQueued {
		xe.mu.Unlock()
		return
	}
	xe.state = xExecuting
	xe.mu.Unlock()

	t := xe.f()
	xe.inner = t
	xe.hasInner = true
	xe.innerEvent = event{loop: xe.target, fire: xe.onInnerReady}
	t.node().registerConsumer(&xe.innerEvent)
}

func (xe *xThreadEvent[T]) onInnerReady() {
	xe.finish(func() { xe.inner.node().extract(&xe.result) })
}

// reviewCancelOnTarget is invoked on the target loop's goroutine for any
// event a requester marked CANCELING. Cancellation of work that is still
// EXECUTING is cooperative and happens here, on the target's own thread,
// never on the requester's.
func (xe *xThreadEvent[T]) reviewCancelOnTarget() {
	xe.mu.Lock()
	state := xe.state
	xe.mu.Unlock()
	if state != xCanceling {
		return
	}
	if xe.hasInner {
		xe.inner.node().registerConsumer(nil)
		xe.inner.Close()
	}
	xe.finish(func() { xe.result.SetError(Canceledf("cross-thread call canceled")) })
}

// finish is the sole path to DONE, reached from four independent callers —
// normal completion, cooperative cancellation on the target, cancellation
// of a call that never started, and forced disconnection when the target
// loop exits — any of which may race to call it. Only the first call takes
// effect; setResult runs at most once, and xe.done is closed at most once.
func (xe *xThreadEvent[T]) finish(setResult func()) {
	xe.mu.Lock()
	if xe.state == xDone {
		xe.mu.Unlock()
		return
	}
	xe.state = xDone
	if setResult != nil {
		setResult()
	}
	reply := xe.reply
	xe.mu.Unlock()

	xe.target.xmu.Lock()
	delete(xe.target.xLive, xThreadWork(xe))
	xe.target.xmu.Unlock()

	close(xe.done)

	if reply != nil {
		reply.xmu.Lock()
		reply.replies = append(reply.replies, xe)
		reply.xmu.Unlock()
		reply.signalWake()
	}
}

// forceDisconnect synthetically completes xe with a disconnection error. It
// is called only from [Loop.disconnectLiveCrossThreadEvents], on the target
// loop's own goroutine as Run is about to return, for any event that is
// still QUEUED, EXECUTING, or CANCELING at that point.
func (xe *xThreadEvent[T]) forceDisconnect() {
	if xe.hasInner {
		xe.inner.node().registerConsumer(nil)
		xe.inner.Close()
	}
	xe.finish(func() {
		xe.result.SetError(Disconnectedf("owning loop exited before the cross-thread call completed"))
	})
}

func (xe *xThreadEvent[T]) armOnRequester() {
	if xe.forward != nil {
		xe.forward.loop.arm(xe.forward, tierBreadthFirst)
	}
}

// requestCancel is called by the requester (any goroutine) to abandon an
// async call. If the event is still QUEUED it is removed outright; if it
// is EXECUTING, cancellation is deferred to the target's own goroutine by
// moving the event to CANCELING, and this call blocks until DONE.
func (xe *xThreadEvent[T]) requestCancel() {
	xe.mu.Lock()
	switch xe.state {
	case xQueued:
		xe.mu.Unlock()
		xe.target.xmu.Lock()
		for i, w := range xe.target.incoming {
			if w == xThreadWork(xe) {
				xe.target.incoming = append(xe.target.incoming[:i], xe.target.incoming[i+1:]...)
				break
			}
		}
		xe.target.xmu.Unlock()
		xe.finish(func() { xe.result.SetError(Canceledf("cross-thread call canceled before it started")) })
		return
	case xExecuting:
		xe.state = xCanceling
		xe.mu.Unlock()
		xe.target.xmu.Lock()
		xe.target.cancel = append(xe.target.cancel, xe)
		xe.target.xmu.Unlock()
		xe.target.signalWake()
		<-xe.done
		return
	default:
		xe.mu.Unlock()
		return
	}
}

// xThreadNode adapts an *xThreadEvent[T] into a node[T] for use on the
// requesting loop.
type xThreadNode[T any] struct {
	xe *xThreadEvent[T]
}

func (n *xThreadNode[T]) registerConsumer(e *event) {
	n.xe.forward = e
	n.xe.mu.Lock()
	done := n.xe.state == xDone
	n.xe.mu.Unlock()
	if done && e != nil {
		e.loop.arm(e, tierBreadthFirst)
	}
}

func (n *xThreadNode[T]) extract(cell *ResultCell[T]) {
	cell.set(&n.xe.result)
}

func (n *xThreadNode[T]) trace() traceNode {
	return traceNode{kind: "cross-thread", origin: funcOrigin(n.xe.f)}
}

func (n *xThreadNode[T]) cancel() {
	n.xe.requestCancel()
}

// ExecuteSync sends f to target's loop and blocks the calling goroutine
// until it completes, then returns its result (or re-raises its error).
// f runs on the target loop's own goroutine, exactly like any other node's
// continuation.
func ExecuteSync[T any](target *Executor, f func() Task[T]) (T, error) {
	xe := newXThreadEvent[T](target.loop, nil, f)
	xe.enqueue()
	<-xe.done
	return xe.result.Get()
}

// ExecuteAsync sends f to target's loop and returns immediately with a
// [Task] on requester that becomes ready when the call completes. Dropping
// that Task (via [Task.Close]) before it completes cancels the call.
func ExecuteAsync[T any](requester *Loop, target *Executor, f func() Task[T]) Task[T] {
	xe := newXThreadEvent[T](target.loop, requester, f)
	xe.enqueue()
	return newTaskFromNode[T](&xThreadNode[T]{xe: xe})
}
