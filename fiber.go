package task

const (
	fiberWaiting = iota
	fiberRunning
	fiberCanceled
	fiberFinished
)

// fiberStep is handed from the fiber goroutine to the loop goroutine over
// the yield channel each time the fiber body calls [Wait], or finishes.
type fiberStep struct {
	finished    bool
	registerDep func(e *event)        // non-nil unless finished
	extract     func() (any, error)   // non-nil unless finished
}

type fiberResumeResult struct {
	value     any
	err       error
	canceled  bool
}

// fiberCore is the non-generic half of a fiber: the goroutine-handoff
// machinery. The generic half ([fiberNode]) holds the typed result.
//
// Only one of {the loop goroutine, the fiber goroutine} ever runs at a
// time: runFirst and onDepReady, called only from the loop goroutine, hand
// control to the fiber and then block in awaitStep until the fiber either
// finishes or asks to wait on something else. This is the idiomatic-Go stand-in for a
// platform stackful fiber: no stack is allocated by this package at all,
// a goroutine's already is.
type fiberCore struct {
	loop   *Loop
	resume chan struct{}
	result chan fiberResumeResult
	yield  chan fiberStep

	state int
	self  event
	wait  event

	onFinish func() // arms the outer node's forward consumer; loop-goroutine only
}

func newFiberCore(l *Loop) *fiberCore {
	return &fiberCore{
		loop:   l,
		resume: make(chan struct{}),
		result: make(chan fiberResumeResult),
		yield:  make(chan fiberStep),
		state:  fiberWaiting,
	}
}

// start arms the fiber for its first run, depth-first, the same tier a
// freshly-ready continuation would use.
func (c *fiberCore) start() {
	c.self = event{loop: c.loop, fire: c.runFirst}
	c.loop.arm(&c.self, tierDepthFirst)
}

func (c *fiberCore) runFirst() {
	c.state = fiberRunning
	c.resume <- struct{}{}
	c.awaitStep()
}

func (c *fiberCore) awaitStep() {
	step := <-c.yield
	if step.finished {
		c.state = fiberFinished
		if c.onFinish != nil {
			c.onFinish()
		}
		return
	}
	c.state = fiberWaiting
	c.wait = event{loop: c.loop, fire: func() { c.onDepReady(step) }}
	step.registerDep(&c.wait)
}

func (c *fiberCore) onDepReady(step fiberStep) {
	c.state = fiberRunning
	v, err := step.extract()
	c.result <- fiberResumeResult{value: v, err: err}
	c.awaitStep()
}

// cancel unblocks a pending Wait call with a canceled error so the fiber's
// body can unwind via ordinary Go control flow (early return / propagated
// error), then waits for it to actually finish. This must never be called
// while the fiber is RUNNING: a fiber can only be canceled while it is
// parked in a Wait call, waiting on the loop goroutine to resume it.
func (c *fiberCore) cancel() {
	if c.state == fiberRunning {
		panic("task: fiber canceled while running")
	}
	if c.state == fiberFinished || c.state == fiberCanceled {
		return
	}
	c.state = fiberRunning
	c.result <- fiberResumeResult{canceled: true}
	step := <-c.yield
	c.state = fiberCanceled
	_ = step
}

// WaitScope is the capability required to call [Wait] or [Task.Poll]. It is
// obtainable only from inside a fiber body, by the function passed to
// [StartFiber].
type WaitScope struct {
	core *fiberCore
}

// fiberNode is the outer node produced by [StartFiber]: a node[T] whose
// result is the fiber body's return value.
type fiberNode[T any] struct {
	core    *fiberCore
	forward *event
	result  ResultCell[T]
	origin  uintptr
}

// StartFiber runs f on a dedicated goroutine, handed off to and from the
// driving Loop's goroutine so that only one of the two ever runs at a time.
// stackSize is accepted for API parity with the source design but unused:
// a goroutine's stack already grows and shrinks on demand, so there is
// nothing to size up front.
func StartFiber[T any](l *Loop, stackSize int, f func(ws WaitScope) (T, error)) Task[T] {
	core := newFiberCore(l)
	fn := &fiberNode[T]{core: core, origin: funcOrigin(f)}

	core.onFinish = func() {
		if fn.forward != nil {
			fn.forward.loop.arm(fn.forward, tierDepthFirst)
		}
	}

	go func() {
		<-core.resume
		v, err := func() (v T, err error) {
			defer func() {
				if p := recover(); p != nil {
					err = asPanicError(p)
				}
			}()
			return f(WaitScope{core: core})
		}()
		if err != nil {
			fn.result.SetError(err)
		} else {
			fn.result.SetValue(v)
		}
		core.yield <- fiberStep{finished: true}
	}()

	core.start()

	return newTaskFromNode[T](fn)
}

func (n *fiberNode[T]) registerConsumer(e *event) {
	n.forward = e
	if n.core.state == fiberFinished && e != nil {
		e.loop.arm(e, tierBreadthFirst)
	}
}

func (n *fiberNode[T]) extract(cell *ResultCell[T]) {
	cell.set(&n.result)
}

func (n *fiberNode[T]) trace() traceNode {
	return traceNode{kind: "fiber", origin: n.origin}
}

func (n *fiberNode[T]) cancel() {
	n.core.cancel()
}

// Wait suspends the fiber identified by ws until t becomes ready, and
// returns its value and error directly — the Go equivalent of the source's
// "throw on error, return on value": since Go already threads errors
// through return values, Wait need not choose between the two, it returns
// both exactly as the result cell held them.
//
// Wait must only be called from inside the function passed to [StartFiber]
// that produced ws.
func Wait[T any](ws WaitScope, t Task[T]) (T, error) {
	core := ws.core
	dep := t.node()

	step := fiberStep{
		registerDep: func(e *event) { dep.registerConsumer(e) },
		extract: func() (any, error) {
			var cell ResultCell[T]
			dep.extract(&cell)
			v, err := cell.Get()
			return v, err
		},
	}

	core.yield <- step
	res := <-core.resume2()
	if res.canceled {
		var zero T
		return zero, Canceledf("fiber canceled while waiting")
	}
	v, _ := res.value.(T)
	return v, res.err
}

// resume2 exists only so Wait can read from core.result with the same
// method-call shape regardless of whether the wait is the first one in the
// fiber or not; core.result is the channel the loop goroutine sends the
// extracted dependency result on.
func (c *fiberCore) resume2() <-chan fiberResumeResult {
	return c.result
}

// FiberPool bundles a Loop and a default stack size for starting fibers.
// Real platform fiber pools exist to amortize stack allocation; a
// goroutine's stack is already cheap and reclaimed automatically, so
// FiberPool here simply remembers a default stack size and a Loop to start
// on. Every fiber it starts runs on a new goroutine; none are reused.
type FiberPool struct {
	Loop      *Loop
	StackSize int
}

// FiberPoolStartFiber runs f as a new fiber on p's Loop. Go methods cannot
// carry their own type parameters, so this is a free function rather than
// a method on [FiberPool], mirroring how [Wait] is a free function rather
// than a method on [WaitScope].
func FiberPoolStartFiber[T any](p FiberPool, f func(ws WaitScope) (T, error)) Task[T] {
	return StartFiber(p.Loop, p.StackSize, f)
}
