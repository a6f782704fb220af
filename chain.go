package task

// chainNode flattens a dependency whose value is itself a [Task].
// It runs through two states. In state 1 it owns the outer dependency,
// whose eventual value is a Task[U]; on readiness, the inner Task's node
// replaces the owned dependency and the chain transitions to state 2, where
// it simply forwards the inner node's result.
type chainNode[U any] struct {
	loop  *Loop
	state int8 // 1 or 2

	step1 node[Task[U]]
	step2 node[U]

	cell1 ResultCell[Task[U]]

	forward       *event
	depEvent      event
	depRegistered bool

	result ResultCell[U]
	done   bool

	// owner, if non-nil, is the rootBox whose root this chain currently
	// occupies. On the state 1 -> 2 transition the chain replaces
	// owner.root with step2 directly, collapsing itself out of future
	// lookups instead of staying in the chain forever as dead weight.
	owner *rootBox[U]
}

func newChainNode[U any](dep node[Task[U]]) *chainNode[U] {
	return &chainNode[U]{state: 1, step1: dep}
}

func (n *chainNode[U]) registerConsumer(e *event) {
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
	n.loop = e.loop
	if n.depRegistered {
		return
	}
	n.depRegistered = true
	n.registerDep()
}

func (n *chainNode[U]) registerDep() {
	n.depEvent = event{loop: n.loop, fire: n.onReady}
	if n.state == 1 {
		n.step1.registerConsumer(&n.depEvent)
	} else {
		n.step2.registerConsumer(&n.depEvent)
	}
}

func (n *chainNode[U]) onReady() {
	switch n.state {
	case 1:
		n.step1.extract(&n.cell1)
		v, err := n.cell1.Get()
		if !n.cell1.HasValue() {
			n.result.SetError(err)
			n.done = true
			n.armForward()
			return
		}

		n.step2 = v.node()
		n.state = 2

		if n.owner != nil {
			n.owner.root = n.step2
			n.owner = nil
		}

		n.registerDep()
	case 2:
		n.step2.extract(&n.result)
		n.done = true
		n.armForward()
	}
}

func (n *chainNode[U]) armForward() {
	if n.forward != nil {
		n.forward.loop.arm(n.forward, tierDepthFirst)
	}
}

func (n *chainNode[U]) extract(cell *ResultCell[U]) {
	cell.set(&n.result)
}

func (n *chainNode[U]) cancel() {
	if n.state == 1 {
		n.step1.cancel()
	} else {
		n.step2.cancel()
	}
}

func (n *chainNode[U]) trace() traceNode {
	inner := n.step1.trace()
	if n.state == 2 {
		inner = n.step2.trace()
	}
	return traceNode{kind: "chain", inner: []traceNode{inner}}
}
