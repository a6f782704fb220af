package task

// A WaitGroup is a [Signal] with a counter, the same role as its source
// counterpart: Add/Done track outstanding work, and Wait returns a Task
// that resolves once the counter reaches zero.
//
// A WaitGroup must not be shared by more than one Loop.
type WaitGroup struct {
	Signal
	n int
}

// Add adds delta, which may be negative, to wg's counter. If the counter
// reaches zero, every Task currently waiting on wg resolves. Add panics if
// the counter would go negative.
func (wg *WaitGroup) Add(delta int) {
	wg.n += delta
	if wg.n < 0 {
		panic("task: negative WaitGroup counter")
	}
	if wg.n == 0 && delta != 0 {
		wg.Notify()
	}
}

// Done decrements wg's counter by one.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Wait returns a Task that resolves once wg's counter reaches zero. If the
// counter is already zero when Wait is called, it resolves immediately.
func (wg *WaitGroup) Wait() Task[struct{}] {
	if wg.n == 0 {
		return Value(struct{}{})
	}
	return ThenTask(wg.Signal.Wait(), func(struct{}) (Task[struct{}], error) {
		return wg.Wait(), nil
	})
}
