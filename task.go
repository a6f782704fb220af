package task

// Task is the public, generic handle onto a node graph — the analogue of
// the source's Promise<T>, specialized to exactly one consumer per node.
// Go has no destructors, so unlike the source, letting every copy
// of a Task go out of scope does nothing by itself: call [Task.Close] to
// cancel the subtree it owns.
type Task[T any] struct {
	box *rootBox[T]
}

// rootBox is the one level of indirection a Task points through. It exists
// so that [ThenTask]'s chain node can collapse itself out of the path once
// its inner Task resolves: the chain swaps box.root to point
// directly at the inner node, and every existing copy of the Task sees the
// shorter path on its next use without needing to be reconstructed.
type rootBox[T any] struct {
	root   node[T]
	closed bool
}

func newTaskFromNode[T any](n node[T]) Task[T] {
	return Task[T]{box: &rootBox[T]{root: n}}
}

func (t Task[T]) node() node[T] { return t.box.root }

// Close synchronously cancels t and everything it owns. It is
// idempotent: calling it more than once does nothing after the first call,
// and calling it after t has already delivered a result is safe.
func (t Task[T]) Close() {
	if t.box.closed {
		return
	}
	t.box.closed = true
	t.box.root.cancel()
}

// Trace returns a diagnostic description of t's node graph, from t down to
// its leaves, as a trace hook rather than exposing raw node pointers, since
// this package has no analogue of the source's trace() virtual that walks
// live C++ objects.
func (t Task[T]) Trace() traceNode {
	return t.box.root.trace()
}

// Fork returns a reference-counted hub over t's result, from which
// independent branches can be created with [ForkedTask.AddBranch].
func (t Task[T]) Fork() ForkedTask[T] {
	return ForkedTask[T]{hub: newForkHub[T](t.node())}
}

// Poll drives ws's loop until t becomes ready or there is no more queued
// work, without ever invoking the idle hook, and reports whether t is
// ready. It must only be called from inside the fiber body that produced
// ws, mirroring [Wait]'s restriction.
func (t Task[T]) Poll(ws WaitScope) bool {
	var ready bool
	l := ws.core.loop
	e := event{loop: l, fire: func() { ready = true }}
	t.node().registerConsumer(&e)
	// The loop's driving goroutine is parked handing control to this fiber,
	// so the fiber steps the queues itself rather than calling Loop.Poll,
	// which would reject the loop as already driven.
	for !ready {
		if l.turn() {
			continue
		}
		l.drainCrossThread()
		if !ready && !l.turn() {
			break
		}
	}
	return ready
}

// Value returns a Task that is already resolved with v.
func Value[T any](v T) Task[T] {
	return newTaskFromNode[T](newImmediateValueNode(v))
}

// Rejected returns a Task that is already resolved with err.
func Rejected[T any](err error) Task[T] {
	return newTaskFromNode[T](newImmediateErrorNode[T](err))
}

// Attach returns a Task that behaves exactly like t but also keeps cargo
// alive until t's subtree is canceled or has fully delivered, and releases
// cargo only after that.
func Attach[T any](t Task[T], cargo ...any) Task[T] {
	return newTaskFromNode[T](newAttachmentNode[T](t.node(), cargo...))
}

// Then attaches a value continuation to t, producing a Task[U]. An error on
// t's side skips valueFn and propagates unchanged. Go methods cannot carry
// their own type parameters, so this is a free function rather than a
// method on Task, the same reasoning as [Wait] on [WaitScope].
func Then[T, U any](t Task[T], valueFn func(T) (U, error)) Task[U] {
	return ThenCatch(t, valueFn, func(err error) (U, error) {
		var zero U
		return zero, err
	})
}

// ThenCatch is [Then] plus an explicit error continuation. errFn
// also runs when the dependency produced a value alongside a recoverable
// error; it may recover by returning a value, or propagate by returning
// its own error.
func ThenCatch[T, U any](t Task[T], valueFn func(T) (U, error), errFn func(error) (U, error)) Task[U] {
	return newTaskFromNode[U](newTransformNode[T, U](t.node(), valueFn, errFn))
}

// ThenTask flattens a continuation that itself returns a Task, collapsing
// the two resulting levels of waiting into one.
func ThenTask[T, U any](t Task[T], f func(T) (Task[U], error)) Task[U] {
	return ThenTaskCatch(t, f, func(err error) (Task[U], error) {
		return Task[U]{}, err
	})
}

// ThenTaskCatch is [ThenTask] with an explicit error continuation that may
// itself produce a replacement Task, flattened the same way.
func ThenTaskCatch[T, U any](t Task[T], valueFn func(T) (Task[U], error), errFn func(error) (Task[U], error)) Task[U] {
	step1 := ThenCatch(t, valueFn, errFn) // Task[Task[U]]
	cn := newChainNode[U](step1.node())
	box := &rootBox[U]{root: cn}
	cn.owner = box
	return Task[U]{box: box}
}

// ExclusiveJoin returns a Task that resolves with whichever of a or b
// becomes ready first, canceling the other.
func ExclusiveJoin[T any](a, b Task[T]) Task[T] {
	return newTaskFromNode[T](newExclusiveJoinNode[T](a.node(), b.node()))
}

// JoinTasks returns a Task that resolves once every element of ts has
// settled, preserving order. Partial failure never short-circuits the
// wait; once every element has settled, the first error by ascending
// index is surfaced, if any.
func JoinTasks[T any](ts []Task[T]) Task[[]T] {
	deps := make([]node[T], len(ts))
	for i, t := range ts {
		deps[i] = t.node()
	}
	return newTaskFromNode[[]T](newArrayJoinNode[T](deps))
}

// EagerlyEvaluate drives t to completion even without an external
// consumer ever registering, buffering its result until one does. onErr,
// if non-nil, is invoked if t fails before any consumer has registered.
func EagerlyEvaluate[T any](l *Loop, t Task[T], onErr func(error)) Task[T] {
	return newTaskFromNode[T](newEagerNode[T](l, t.node(), onErr))
}

// Detach is EagerlyEvaluate with no handle returned: it starts t running
// and roots it against l for as long as it's in flight, since nothing else
// in the program will hold a reference once the caller's own locals go out
// of scope. onErr reports failures that would otherwise have nowhere to
// go; if onErr is nil, failures go to the callback set with
// [Loop.OnUnhandledPanic]. Compare the source's Promise::detach.
func Detach[T any](l *Loop, t Task[T], onErr func(error)) {
	if onErr == nil {
		onErr = l.reportUnhandled
	}
	en := newEagerNode[T](l, t.node(), onErr)
	en.release = l.keepAlive(en)
}

// NewTaskAndFulfiller returns a Task together with the [Fulfiller] that
// resolves it — the primitive bridge from an externally-driven completion
// (a callback API, a channel receive) into the node graph.
func NewTaskAndFulfiller[T any](l *Loop) (Task[T], Fulfiller[T]) {
	n := newAdapterNode[T](l, func(Fulfiller[T]) {})
	return newTaskFromNode[T](n), n
}

// NewAdaptedTask wires adapter into a fresh Task by calling adapter.Init
// with that Task's Fulfiller, mirroring the source's templated
// PromiseAdapter pattern.
func NewAdaptedTask[T any](l *Loop, adapter Adapter[T]) Task[T] {
	n := newAdapterNode[T](l, adapter.Init)
	return newTaskFromNode[T](n)
}

// WeakFulfiller is a [Fulfiller] with an extra DropHandle for bridges where
// the application-held handle and the adapter's own reference are tracked
// with an explicit two-count refcount, rather than the Fulfiller being the
// adapter's sole owner.
type WeakFulfiller[T any] interface {
	Fulfiller[T]
	DropHandle()
}

// NewTaskAndWeakFulfiller is [NewTaskAndFulfiller]'s counterpart for that
// two-count refcount case.
func NewTaskAndWeakFulfiller[T any](l *Loop) (Task[T], WeakFulfiller[T]) {
	n := newAdapterNode[T](l, func(Fulfiller[T]) {})
	return newTaskFromNode[T](n), newWeakFulfiller[T](n)
}

// RetryOnDisconnect runs t; if it fails with a [Disconnected] error, it
// calls makeTask once more and returns that Task's result instead —
// disconnection is the one error kind with its own built-in recovery
// policy. Any other error, or a successful result, passes through
// unchanged.
func RetryOnDisconnect[T any](t Task[T], makeTask func() Task[T]) Task[T] {
	return ThenTaskCatch(t, func(v T) (Task[T], error) {
		return Value(v), nil
	}, func(err error) (Task[T], error) {
		if !IsDisconnected(err) {
			return Task[T]{}, err
		}
		return makeTask(), nil
	})
}
