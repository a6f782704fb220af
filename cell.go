package task

// A ResultCell is a typed container holding either a value, an error, both
// (a value produced, then a recoverable error recorded alongside it), or
// neither (a transient state, never observable outside the node that owns
// the cell once that node has claimed readiness).
//
// ResultCell is not safe for concurrent use; it is written and read only by
// the loop goroutine that owns the node producing it.
type ResultCell[T any] struct {
	hasValue bool
	value    T
	err      error
}

// SetValue records v as the cell's value, clearing any previously recorded
// error.
func (c *ResultCell[T]) SetValue(v T) {
	c.hasValue = true
	c.value = v
	c.err = nil
}

// SetError records err as the cell's sole occupant: a fatal error.
func (c *ResultCell[T]) SetError(err error) {
	if err == nil {
		panic("task: SetError called with nil error")
	}
	var zero T
	c.hasValue = false
	c.value = zero
	c.err = err
}

// SetValueAndError records both v and err: a value produced, followed by a
// recoverable error. A consumer observing this state may still use v.
func (c *ResultCell[T]) SetValueAndError(v T, err error) {
	c.hasValue = true
	c.value = v
	c.err = err
}

// Get returns the cell's value and error. If the cell holds a fatal error
// only, the returned value is the zero value of T.
func (c *ResultCell[T]) Get() (T, error) {
	return c.value, c.err
}

// HasValue reports whether the cell holds a value (with or without an
// accompanying recoverable error).
func (c *ResultCell[T]) HasValue() bool {
	return c.hasValue
}

// Err returns the cell's error, or nil.
func (c *ResultCell[T]) Err() error {
	return c.err
}

// set copies the contents of other into c. Used when propagating a result
// from a dependency cell into a consumer's own cell unchanged.
func (c *ResultCell[T]) set(other *ResultCell[T]) {
	c.hasValue = other.hasValue
	c.value = other.value
	c.err = other.err
}
