package task

// Cloner is implemented by value types that need explicit, shared-ownership
// style cloning when broadcast to multiple [Fork] branches (for example, a
// type wrapping a reference-counted buffer). Types that don't implement
// Cloner are copied with a plain Go assignment, which is correct for any
// ordinary value type.
type Cloner[T any] interface {
	Clone() T
}

func cloneValue[T any](v T) T {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	return v
}

// forkHub is the fan-out point created by [Task.Fork]. It owns one inner
// node and, once that node becomes ready, extracts its result exactly once
// into its own cell and arms every branch registered so far. Branches added
// afterward arm immediately.
type forkHub[T any] struct {
	loop     *Loop
	refs     int
	dep      node[T]
	depEvent event

	ready  bool
	result ResultCell[T]

	branches []*forkBranch[T]
}

func newForkHub[T any](dep node[T]) *forkHub[T] {
	// refs starts at 1: the ForkedTask handle returned to the caller holds
	// the first reference, released by ForkedTask.Close.
	h := &forkHub[T]{dep: dep, refs: 1}
	return h
}

func (h *forkHub[T]) armDep(l *Loop) {
	if h.loop != nil {
		return
	}
	h.loop = l
	h.depEvent = event{loop: l, fire: h.onDepReady}
	h.dep.registerConsumer(&h.depEvent)
}

func (h *forkHub[T]) onDepReady() {
	h.dep.extract(&h.result)
	h.ready = true

	branches := h.branches
	h.branches = nil
	for _, b := range branches {
		b.armSelf()
	}
}

// addBranch returns a new branch reading from h's cell. If h is already
// ready, the branch arms its own eventual consumer immediately once one is
// registered; otherwise it joins the pending list and arms when h arms.
func (h *forkHub[T]) addBranch() *forkBranch[T] {
	h.refs++
	b := &forkBranch[T]{hub: h}
	if h.ready {
		b.ready = true
	} else {
		h.branches = append(h.branches, b)
	}
	return b
}

// release drops one reference. When the last branch releases and the hub
// itself has no outstanding [ForkedTask] handle, the hub cancels its
// dependency: an unreferenced hub has nothing left to deliver its result
// to, so there is no reason to keep running it.
func (h *forkHub[T]) release() {
	h.refs--
	if h.refs <= 0 {
		h.dep.cancel()
	}
}

type forkBranch[T any] struct {
	hub      *forkHub[T]
	forward  *event
	ready    bool
	extracted bool
	cell     ResultCell[T]
}

func (b *forkBranch[T]) registerConsumer(e *event) {
	b.forward = e
	if b.ready {
		if e != nil {
			e.loop.arm(e, tierBreadthFirst)
		}
		return
	}
	if e != nil {
		b.hub.armDep(e.loop)
	}
}

func (b *forkBranch[T]) armSelf() {
	b.ready = true
	if b.forward != nil {
		b.forward.loop.arm(b.forward, tierDepthFirst)
	}
}

func (b *forkBranch[T]) extract(cell *ResultCell[T]) {
	if b.extracted {
		panic("task: fork branch extracted twice")
	}
	b.extracted = true
	v, err := b.hub.result.Get()
	if !b.hub.result.HasValue() {
		cell.SetError(err)
		return
	}
	if err != nil {
		cell.SetValueAndError(cloneValue(v), err)
		return
	}
	cell.SetValue(cloneValue(v))
}

func (b *forkBranch[T]) trace() traceNode {
	return traceNode{kind: "fork-branch", inner: []traceNode{b.hub.dep.trace()}}
}

func (b *forkBranch[T]) cancel() {
	b.hub.release()
}

// ForkedTask is a reference-counted hub over a shared result, created by
// [Task.Fork]. Call AddBranch to create another consumer of the same
// result.
type ForkedTask[T any] struct {
	hub *forkHub[T]
}

// AddBranch returns a new [Task] that will deliver a copy (or clone, if T
// implements [Cloner]) of the shared result.
func (f ForkedTask[T]) AddBranch() Task[T] {
	return newTaskFromNode[T](f.hub.addBranch())
}

// Close releases the ForkedTask handle's own reference to the underlying
// hub. Once every branch and the handle itself have released their
// reference, the hub cancels its dependency.
func (f ForkedTask[T]) Close() {
	f.hub.release()
}

// Pair holds the two components of a tuple-typed task, for use with
// [Split2].
type Pair[A, B any] struct {
	First  A
	Second B
}

// Split2 forks t and returns one branch per element of the pair. There is
// exactly one underlying computation regardless of how many typed
// accessors read from it; each branch observes the same error, if any.
func Split2[A, B any](t Task[Pair[A, B]]) (Task[A], Task[B]) {
	forked := t.Fork()
	a := Then(forked.AddBranch(), func(p Pair[A, B]) (A, error) { return p.First, nil })
	b := Then(forked.AddBranch(), func(p Pair[A, B]) (B, error) { return p.Second, nil })
	return a, b
}
