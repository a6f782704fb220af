package task

// immediateNode is a leaf node whose result is already known at
// construction time. registerConsumer arms its consumer breadth-first
// immediately.
type immediateNode[T any] struct {
	result ResultCell[T]
}

func newImmediateValueNode[T any](v T) *immediateNode[T] {
	n := new(immediateNode[T])
	n.result.SetValue(v)
	return n
}

func newImmediateErrorNode[T any](err error) *immediateNode[T] {
	n := new(immediateNode[T])
	n.result.SetError(err)
	return n
}

func (n *immediateNode[T]) registerConsumer(e *event) {
	if e == nil {
		return
	}
	e.loop.arm(e, tierBreadthFirst)
}

func (n *immediateNode[T]) extract(cell *ResultCell[T]) {
	cell.set(&n.result)
}

func (n *immediateNode[T]) trace() traceNode {
	return traceNode{kind: "immediate"}
}

func (n *immediateNode[T]) cancel() {}

// attachmentNode is a pass-through node that additionally owns an arbitrary
// cargo value for the lifetime of the wrapped subtree. Cargo is released
// only after the dependency has fully delivered — achieved here simply by
// holding a reference to cargo for as long as the attachmentNode itself is
// reachable; Go's GC finalizes it no earlier than that.
type attachmentNode[T any] struct {
	dep   node[T]
	cargo any
}

func newAttachmentNode[T any](dep node[T], cargo ...any) *attachmentNode[T] {
	var c any
	if len(cargo) == 1 {
		c = cargo[0]
	} else if len(cargo) > 1 {
		c = cargo
	}
	return &attachmentNode[T]{dep: dep, cargo: c}
}

func (n *attachmentNode[T]) registerConsumer(e *event) {
	n.dep.registerConsumer(e)
}

func (n *attachmentNode[T]) extract(cell *ResultCell[T]) {
	n.dep.extract(cell)
}

func (n *attachmentNode[T]) trace() traceNode {
	return traceNode{kind: "attach", inner: []traceNode{n.dep.trace()}}
}

// cancel tears down the dependency before releasing cargo: the dependency
// may reference cargo (e.g. a buffer it borrows), so it must be gone
// first.
func (n *attachmentNode[T]) cancel() {
	n.dep.cancel()
	n.cargo = nil
}
