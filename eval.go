package task

// evalNode defers running f until the loop reaches it, on the tier chosen
// at construction. It is the machinery behind [EvalLater] and [EvalLast].
type evalNode[T any] struct {
	loop *Loop
	f    func() (T, error)
	self event

	ready   bool
	result  ResultCell[T]
	forward *event
}

func newEvalNode[T any](l *Loop, t tier, f func() (T, error)) *evalNode[T] {
	n := &evalNode[T]{loop: l, f: f}
	n.self = event{loop: l, fire: n.run}
	l.arm(&n.self, t)
	return n
}

func (n *evalNode[T]) run() {
	v, err := func() (v T, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = asPanicError(p)
			}
		}()
		return n.f()
	}()
	if err != nil {
		n.result.SetError(err)
	} else {
		n.result.SetValue(v)
	}
	n.ready = true
	if n.forward != nil {
		n.forward.loop.arm(n.forward, tierDepthFirst)
	}
}

func (n *evalNode[T]) registerConsumer(e *event) {
	n.forward = e
	if n.ready && e != nil {
		e.loop.arm(e, tierBreadthFirst)
	}
}

func (n *evalNode[T]) extract(cell *ResultCell[T]) { cell.set(&n.result) }

func (n *evalNode[T]) trace() traceNode { return traceNode{kind: "eval", origin: funcOrigin(n.f)} }

func (n *evalNode[T]) cancel() {
	n.loop.unarm(&n.self)
}

// EvalLater schedules f to run once the loop's depth-first work for this
// turn has drained, on the breadth-first tier, and returns a Task for its
// result (compare the source's kj::evalLater).
func EvalLater[T any](l *Loop, f func() (T, error)) Task[T] {
	return newTaskFromNode[T](newEvalNode[T](l, tierBreadthFirst, f))
}

// EvalLast schedules f to run only once every other queued event —
// depth-first and breadth-first alike — has drained, on the last tier
// (compare the source's kj::evalLast).
func EvalLast[T any](l *Loop, f func() (T, error)) Task[T] {
	return newTaskFromNode[T](newEvalNode[T](l, tierLast, f))
}

// EvalNow runs f immediately, on the calling goroutine, and wraps its
// result (or a recovered panic) as an already-resolved Task. Use it to
// normalize a synchronous computation into the same Task[T] shape as
// everything else, without going through the loop at all (compare the
// source's kj::evalNow).
func EvalNow[T any](f func() (T, error)) Task[T] {
	v, err := func() (v T, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = asPanicError(p)
			}
		}()
		return f()
	}()
	if err != nil {
		return Rejected[T](err)
	}
	return Value(v)
}
