package task

// Fulfiller drives an [adapterNode] from outside the loop-owned node
// graph. The first of Fulfill or Reject wins; later calls are ignored.
type Fulfiller[T any] interface {
	Fulfill(v T)
	Reject(err error)
	IsWaiting() bool
	// RejectIfThrows runs f; if f panics, the panic is captured and
	// delivered via Reject instead of propagating.
	RejectIfThrows(f func())
}

// Adapter is implemented by application types constructed by
// [NewAdaptedTask] to bridge externally-fulfilled results into the node
// graph.
type Adapter[T any] interface {
	// Init is called once, synchronously, with the Fulfiller the adapter
	// should call exactly once (via Fulfill or Reject) when the external
	// result becomes available.
	Init(f Fulfiller[T])
}

// adapterNode is the node half of the adapter bridge. The first of
// fulfill/reject transitions it to ready and arms its consumer
// breadth-first; later calls are silently ignored.
type adapterNode[T any] struct {
	loop    *Loop
	waiting bool
	done    bool
	result  ResultCell[T]
	forward *event

	disposer func() // runs once, when the node is abandoned without a result
	origin   uintptr
}

func newAdapterNode[T any](l *Loop, build func(Fulfiller[T])) *adapterNode[T] {
	n := &adapterNode[T]{loop: l, waiting: true, origin: funcOrigin(build)}
	build(n)
	return n
}

func (n *adapterNode[T]) Fulfill(v T) {
	if n.done {
		return
	}
	n.waiting = false
	n.done = true
	n.result.SetValue(v)
	n.arm()
}

func (n *adapterNode[T]) Reject(err error) {
	if n.done {
		return
	}
	n.waiting = false
	n.done = true
	n.result.SetError(err)
	n.arm()
}

func (n *adapterNode[T]) IsWaiting() bool { return n.waiting }

func (n *adapterNode[T]) RejectIfThrows(f func()) {
	defer func() {
		if v := recover(); v != nil {
			n.Reject(asPanicError(v))
		}
	}()
	f()
}

func (n *adapterNode[T]) arm() {
	if n.forward != nil {
		n.forward.loop.arm(n.forward, tierBreadthFirst)
	}
}

func (n *adapterNode[T]) registerConsumer(e *event) {
	n.forward = e
	if n.done && e != nil {
		e.loop.arm(e, tierBreadthFirst)
	}
}

func (n *adapterNode[T]) extract(cell *ResultCell[T]) {
	cell.set(&n.result)
}

func (n *adapterNode[T]) trace() traceNode {
	return traceNode{kind: "adapter", origin: n.origin}
}

// cancel runs the disposer, if one was registered, and synchronously
// releases the adapter: destroying the adapter node is itself the
// cancellation signal, exactly as it would be for any other node.
func (n *adapterNode[T]) cancel() {
	n.waiting = false
	if n.disposer != nil {
		d := n.disposer
		n.disposer = nil
		d()
	}
}

// weakFulfiller mediates between an adapterNode and an application-held
// detachable handle via a manual two-count refcount: one count for
// the node's own side, released through its disposer when the owning Task
// is canceled, and one for the application's handle, released explicitly
// with DropHandle. If the application drops its handle while the adapter
// is still waiting, a canceled error is synthesized so the task
// fails instead of hanging.
type weakFulfiller[T any] struct {
	node  *adapterNode[T]
	count int
}

func newWeakFulfiller[T any](n *adapterNode[T]) *weakFulfiller[T] {
	w := &weakFulfiller[T]{node: n, count: 2}
	n.disposer = w.dropAdapterSide
	return w
}

// dropAdapterSide releases the reference the adapterNode itself holds,
// run as that node's disposer when its owning Task is canceled.
func (w *weakFulfiller[T]) dropAdapterSide() {
	w.count--
}

// DropHandle releases the application's reference to w. If the adapter is
// still waiting, the underlying task fails with a canceled-by-drop error.
func (w *weakFulfiller[T]) DropHandle() {
	if w.node.IsWaiting() {
		w.node.Reject(Canceledf("weak fulfiller handle dropped while waiting"))
	}
	w.count--
}

func (w *weakFulfiller[T]) Fulfill(v T)            { w.node.Fulfill(v) }
func (w *weakFulfiller[T]) Reject(err error)       { w.node.Reject(err) }
func (w *weakFulfiller[T]) IsWaiting() bool        { return w.node.IsWaiting() }
func (w *weakFulfiller[T]) RejectIfThrows(f func()) { w.node.RejectIfThrows(f) }
