package task

// A State is a [Signal] that carries a value. Set updates the value and
// notifies every current waiter; Get reads it synchronously.
type State[T any] struct {
	Signal
	value T
}

// NewState returns a new State with its initial value set to v.
func NewState[T any](v T) *State[T] {
	return &State[T]{value: v}
}

// Get retrieves the current value of s.
func (s *State[T]) Get() T {
	return s.value
}

// Set updates the value of s and notifies every Task currently waiting on
// s.
func (s *State[T]) Set(v T) {
	s.value = v
	s.Notify()
}

// Update sets the value of s to f(s.Get()) and notifies every Task
// currently waiting on s.
func (s *State[T]) Update(f func(T) T) {
	s.Set(f(s.value))
}
