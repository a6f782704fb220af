package task

import "reflect"

// traceNode is the result of walking a node graph for [Task.Trace]: a flat,
// human-readable description of each node from the outermost handle down to
// its leaves. It deliberately carries no raw pointers, only opaque origin
// ids and kind labels, so that tracing never becomes a way to reach back
// into the graph and mutate it.
type traceNode struct {
	kind   string
	origin uintptr
	inner  []traceNode
}

// funcOrigin returns a stable-for-the-process identifier for f, suitable
// only for diagnostic grouping in a [traceNode] — never for calling f back
// through it. This is the generics-and-reflection-safe replacement for
// extracting a raw pointer-to-member-function address.
func funcOrigin(f any) uintptr {
	if f == nil {
		return 0
	}
	return reflect.ValueOf(f).Pointer()
}

// node is the internal contract every node implementation satisfies:
// registerConsumer arms e when the node becomes ready (immediately, if
// already ready); extract moves the node's result into cell and must not
// be called more than once; trace describes the node for diagnostics.
//
// Because Go generics carry T in the type itself, there is no analogue of
// the source's raw-pointer downcast: extract always receives a *ResultCell[T]
// of the right type.
type node[T any] interface {
	registerConsumer(e *event)
	extract(cell *ResultCell[T])
	trace() traceNode

	// cancel synchronously tears down this node and everything it owns.
	// It is the sole cancellation mechanism: there are no async
	// cancellation tokens. cancel is idempotent and must be safe to call
	// whether or not the node has already delivered a result.
	cancel()
}
