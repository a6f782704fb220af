package task

// transformNode wraps one dependency plus a value continuation and an error
// continuation. Exactly one of the two is invoked once the
// dependency is ready: valueFn on a value, errFn on a fatal error. If the
// dependency produced both a value and a recoverable error, errFn runs
// (recoverable semantics: errFn may recover by returning a value, or
// propagate by returning its own error).
//
// A panic inside either continuation is captured and becomes the node's
// error leg, never escaping to the loop.
type transformNode[T, U any] struct {
	dep     node[T]
	valueFn func(T) (U, error)
	errFn   func(error) (U, error)

	result  ResultCell[U]
	done    bool
	forward *event // the consumer registered on us, if any

	depEvent     event
	depCell      ResultCell[T]
	depRegistered bool
}

func newTransformNode[T, U any](dep node[T], valueFn func(T) (U, error), errFn func(error) (U, error)) *transformNode[T, U] {
	n := &transformNode[T, U]{dep: dep, valueFn: valueFn, errFn: errFn}
	return n
}

func (n *transformNode[T, U]) registerConsumer(e *event) {
	n.forward = e
	if n.done {
		if e != nil {
			e.loop.arm(e, tierBreadthFirst)
		}
		return
	}
	if e == nil || n.depRegistered {
		return
	}
	n.depRegistered = true
	n.depEvent = event{loop: e.loop, fire: n.onDepReady}
	n.dep.registerConsumer(&n.depEvent)
}

func (n *transformNode[T, U]) onDepReady() {
	n.dep.extract(&n.depCell)
	n.run()
	if n.forward != nil {
		n.forward.loop.arm(n.forward, tierDepthFirst)
	}
}

func (n *transformNode[T, U]) run() {
	v, err := n.depCell.Get()
	hasValue := n.depCell.HasValue()

	var outV U
	var outErr error
	var panicked any

	func() {
		defer func() {
			if p := recover(); p != nil {
				panicked = p
			}
		}()
		switch {
		case err != nil:
			outV, outErr = n.errFn(err)
		case hasValue:
			outV, outErr = n.valueFn(v)
		default:
			panic("task: transform dependency delivered neither value nor error")
		}
	}()

	if panicked != nil {
		n.result.SetError(asPanicError(panicked))
	} else if outErr != nil {
		n.result.SetError(outErr)
	} else {
		n.result.SetValue(outV)
	}
	n.done = true
}

func (n *transformNode[T, U]) extract(cell *ResultCell[U]) {
	cell.set(&n.result)
}

func (n *transformNode[T, U]) trace() traceNode {
	return traceNode{kind: "transform", origin: funcOrigin(n.valueFn), inner: []traceNode{n.dep.trace()}}
}

// cancel tears down the dependency before the node's own continuations
// become unreachable, the same ordering rationale as attachmentNode.
func (n *transformNode[T, U]) cancel() {
	n.dep.cancel()
}
