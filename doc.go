// Package task is a single-threaded, cooperative execution runtime built
// around a pull-based graph of nodes: a [Task] does no work until a
// consumer registers interest in it, and every node is extracted at most
// once.
//
// # The Loop
//
// A [Loop] owns three FIFO queues — depth-first, breadth-first and last —
// and drains them in that order, always running at most one callback at a
// time. Depth-first is for continuations of work already in flight (so a
// long dependency chain finishes before sibling work starts); breadth-first
// is for newly-ready results reaching a fresh consumer; last is for
// cleanup-like work that should only run once everything else has settled.
// [Loop.Run] drains until idle, then asks its [IdleHook] to park for
// external events; [Loop.Poll] never parks, and [Task.Poll] drains the same
// way from inside a fiber.
//
// # Building Task graphs
//
// [Value] and [Rejected] create leaf Tasks. [Then] and [ThenCatch] attach
// continuations; [ThenTask] and [ThenTaskCatch] flatten a continuation that
// itself returns a Task. [Attach] extends a Task's owned lifetime to cover
// an arbitrary piece of cargo. [Task.Fork] and [Split2] broadcast one
// result to multiple independent branches. [ExclusiveJoin] and [JoinTasks]
// combine several Tasks into one. [EagerlyEvaluate] and [Detach] drive a
// Task to completion without an external consumer. [NewTaskAndFulfiller]
// and [NewAdaptedTask] bridge externally-driven completions — callback
// APIs, channel receives — into the graph.
//
// # Fibers
//
// [StartFiber] runs ordinary, sequential-looking Go code that can suspend
// mid-function with [Wait]. Rather than a platform stack, a fiber here is a
// dedicated goroutine handed control over an unbuffered channel by its
// driving Loop: only one of the two goroutines ever runs at a time, so a
// fiber body behaves, from the graph's perspective, exactly like any other
// node — no locking, no concurrent mutation of node state.
//
// # Cancellation
//
// Go has no destructors, so dropping the last reference to a [Task] does
// nothing by itself. Call [Task.Close] to synchronously tear down a Task
// and everything it owns; it is idempotent and safe whether or not the
// Task has already delivered a result.
//
// # Cross-thread calls
//
// [Loop.Executor] returns a stable handle that other goroutines may call
// into via [ExecuteSync] and [ExecuteAsync], the only part of this package
// safe to use from outside the goroutine driving its Loop.
//
// # Synchronization primitives
//
// [Signal], [State], [Memo], [Semaphore] and [WaitGroup] are small
// Task-producing utilities built entirely on the combinators above,
// included because real programs using this runtime need them constantly:
// a [Semaphore] bounds concurrent access with [Fulfiller]-backed waiters, a
// [WaitGroup] composes [ThenTask] to re-wait after every notification, and
// a [Memo] goes stale from a plain closure rather than any scheduling unit
// of its own.
package task
