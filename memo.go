package task

// A Memo caches the result of a computation until one of its declared
// dependency Signals notifies, then recomputes lazily on the next Get.
// Compare the source's Memo, which achieved the same laziness by parking
// an internal Coroutine; here a Memo has no internal scheduling unit at
// all, since going stale is just setting a bool from a plain closure
// registered with [Signal.onNotify].
//
// A Memo must not be shared across more Loops than its dependency Signals
// are.
type Memo[T any] struct {
	compute func() (T, error)
	stale   bool
	value   T
	err     error
}

// NewMemo returns a new Memo that recomputes its value with f whenever
// Get is called while stale, and goes stale again the next time any
// Signal in deps notifies.
//
// The source distinguished a strict variant that tore down its internal
// Coroutine as soon as its last watcher left, against a non-strict one
// that kept it alive to avoid a redundant recompute. Here the
// invalidation hook is a zero-cost closure rather than a coroutine, so
// there is nothing to tear down and that distinction does not apply.
func NewMemo[T any](deps []*Signal, f func() (T, error)) *Memo[T] {
	m := &Memo[T]{compute: f, stale: true}
	for _, d := range deps {
		d.onNotify(func() { m.stale = true })
	}
	return m
}

// Get retrieves the value of m, recomputing it first if m is stale.
func (m *Memo[T]) Get() (T, error) {
	if m.stale {
		m.value, m.err = m.compute()
		m.stale = false
	}
	return m.value, m.err
}
