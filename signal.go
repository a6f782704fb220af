package task

// A Signal is a broadcast notification point. Calling Notify resolves
// every Task currently waiting on it and clears the waiter list; Tasks
// created by Wait after that point wait for the next Notify instead.
//
// Unlike the rest of this package, Signal has no event of its own on a
// Loop to deliver its notification: Notify arms every waiter's forward
// consumer directly, on whatever Loop that consumer belongs to.
// A Signal must not be shared by more than one Loop's node graph at a
// time, the same restriction the source places on its own Signal.
type Signal struct {
	waiters   []*signalWaitNode
	listeners []func()
}

// Notify resolves every Task currently waiting on s and runs every plain
// listener added with onNotify (used internally by [Memo]).
func (s *Signal) Notify() {
	waiters := s.waiters
	s.waiters = nil
	for _, w := range waiters {
		w.fire()
	}
	for _, f := range s.listeners {
		f()
	}
}

// Wait returns a Task that resolves the next time s is notified.
func (s *Signal) Wait() Task[struct{}] {
	n := &signalWaitNode{sig: s}
	s.waiters = append(s.waiters, n)
	return newTaskFromNode[struct{}](n)
}

func (s *Signal) onNotify(f func()) {
	s.listeners = append(s.listeners, f)
}

func (s *Signal) removeWaiter(n *signalWaitNode) {
	for i, w := range s.waiters {
		if w == n {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

type signalWaitNode struct {
	sig     *Signal
	done    bool
	forward *event
}

func (n *signalWaitNode) fire() {
	n.done = true
	if n.forward != nil {
		n.forward.loop.arm(n.forward, tierBreadthFirst)
	}
}

func (n *signalWaitNode) registerConsumer(e *event) {
	n.forward = e
	if n.done && e != nil {
		e.loop.arm(e, tierBreadthFirst)
	}
}

func (n *signalWaitNode) extract(cell *ResultCell[struct{}]) { cell.SetValue(struct{}{}) }

func (n *signalWaitNode) trace() traceNode { return traceNode{kind: "signal-wait"} }

func (n *signalWaitNode) cancel() {
	if !n.done {
		n.sig.removeWaiter(n)
	}
}
