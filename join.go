package task

// exclusiveJoinNode holds two dependencies and delivers whichever becomes
// ready first, discarding the other. Once one side fires, the other's
// extract is never called.
type exclusiveJoinNode[T any] struct {
	left, right node[T]

	leftEvent, rightEvent event
	leftCell, rightCell   ResultCell[T]

	forward *event
	done    bool
	result  ResultCell[T]
}

func newExclusiveJoinNode[T any](left, right node[T]) *exclusiveJoinNode[T] {
	return &exclusiveJoinNode[T]{left: left, right: right}
}

func (n *exclusiveJoinNode[T]) registerConsumer(e *event) {
	n.forward = e
	if n.done {
		if e != nil {
			e.loop.arm(e, tierBreadthFirst)
		}
		return
	}
	if e == nil {
		return
	}
	n.leftEvent = event{loop: e.loop, fire: n.onLeftReady}
	n.rightEvent = event{loop: e.loop, fire: n.onRightReady}
	n.left.registerConsumer(&n.leftEvent)
	n.right.registerConsumer(&n.rightEvent)
}

func (n *exclusiveJoinNode[T]) onLeftReady() {
	if n.done {
		return
	}
	n.left.extract(&n.leftCell)
	n.right.cancel()
	n.result.set(&n.leftCell)
	n.finish()
}

func (n *exclusiveJoinNode[T]) onRightReady() {
	if n.done {
		return
	}
	n.right.extract(&n.rightCell)
	n.left.cancel()
	n.result.set(&n.rightCell)
	n.finish()
}

func (n *exclusiveJoinNode[T]) finish() {
	n.done = true
	if n.forward != nil {
		n.forward.loop.arm(n.forward, tierDepthFirst)
	}
}

func (n *exclusiveJoinNode[T]) extract(cell *ResultCell[T]) {
	cell.set(&n.result)
}

func (n *exclusiveJoinNode[T]) trace() traceNode {
	return traceNode{kind: "exclusive-join", inner: []traceNode{n.left.trace(), n.right.trace()}}
}

func (n *exclusiveJoinNode[T]) cancel() {
	n.left.cancel()
	n.right.cancel()
}

// arrayJoinNode holds N dependencies and a per-dependency cell, collecting
// them into an ordered slice once every dependency has settled. Partial
// failure never short-circuits: aggregation waits for every branch.
// On extract, the first error by ascending index is surfaced; otherwise the
// values are returned in order.
type arrayJoinNode[T any] struct {
	deps    []node[T]
	events  []event
	cells   []ResultCell[T]
	pending int

	forward *event
	done    bool
	result  ResultCell[[]T]
}

func newArrayJoinNode[T any](deps []node[T]) *arrayJoinNode[T] {
	n := &arrayJoinNode[T]{
		deps:    deps,
		events:  make([]event, len(deps)),
		cells:   make([]ResultCell[T], len(deps)),
		pending: len(deps),
	}
	return n
}

func (n *arrayJoinNode[T]) registerConsumer(e *event) {
	n.forward = e
	if n.done {
		if e != nil {
			e.loop.arm(e, tierBreadthFirst)
		}
		return
	}
	if e == nil {
		return
	}
	if n.pending == 0 {
		n.settle()
		return
	}
	for i := range n.deps {
		i := i
		n.events[i] = event{loop: e.loop, fire: func() { n.onBranchReady(i) }}
		n.deps[i].registerConsumer(&n.events[i])
	}
}

func (n *arrayJoinNode[T]) onBranchReady(i int) {
	n.deps[i].extract(&n.cells[i])
	n.pending--
	if n.pending == 0 {
		n.settle()
	}
}

func (n *arrayJoinNode[T]) settle() {
	n.done = true
	for i := range n.cells {
		if err := n.cells[i].Err(); err != nil {
			n.result.SetError(err)
			n.arm()
			return
		}
	}
	values := make([]T, len(n.cells))
	for i := range n.cells {
		values[i], _ = n.cells[i].Get()
	}
	n.result.SetValue(values)
	n.arm()
}

func (n *arrayJoinNode[T]) arm() {
	if n.forward != nil {
		n.forward.loop.arm(n.forward, tierDepthFirst)
	}
}

func (n *arrayJoinNode[T]) extract(cell *ResultCell[[]T]) {
	cell.set(&n.result)
}

func (n *arrayJoinNode[T]) cancel() {
	for _, d := range n.deps {
		d.cancel()
	}
}

func (n *arrayJoinNode[T]) trace() traceNode {
	inner := make([]traceNode, len(n.deps))
	for i, d := range n.deps {
		inner[i] = d.trace()
	}
	return traceNode{kind: "array-join", inner: inner}
}
