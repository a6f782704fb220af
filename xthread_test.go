package task

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// runningIdleHook drives a Loop on a background goroutine until stop is
// flagged, waking on whatever wakes DefaultIdleHook would wake on.
func runningIdleHook(l *Loop, stopped *atomic.Bool) IdleHook {
	return IdleHookFunc(func(l *Loop) error {
		if stopped.Load() {
			return errors.New("stopped")
		}
		<-l.WakeChannel()
		if stopped.Load() {
			return errors.New("stopped")
		}
		return nil
	})
}

func startBackgroundLoop() (*Loop, func()) {
	var stopped atomic.Bool
	l := NewLoop(nil)
	l.idle = runningIdleHook(l, &stopped)
	done := make(chan struct{})
	go func() {
		_ = l.Run()
		close(done)
	}()
	stop := func() {
		stopped.Store(true)
		l.signalWake()
		<-done
	}
	return l, stop
}

func TestExecuteSyncRunsOnTargetAndReturns(t *testing.T) {
	target, stop := startBackgroundLoop()
	defer stop()

	v, err := ExecuteSync[int](target.Executor(), func() Task[int] {
		return Value(41)
	})
	if err != nil || v != 41 {
		t.Fatalf("ExecuteSync result = %v, %v", v, err)
	}
}

func TestExecuteSyncPropagatesError(t *testing.T) {
	target, stop := startBackgroundLoop()
	defer stop()

	wantErr := errors.New("boom")
	_, err := ExecuteSync[int](target.Executor(), func() Task[int] {
		return Rejected[int](wantErr)
	})
	if err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestExecuteAsyncCancelDuringExecuteReachesDone(t *testing.T) {
	target, stop := startBackgroundLoop()
	defer stop()

	requester := NewLoop(nil)
	var stoppedReq atomic.Bool
	requester.idle = runningIdleHook(requester, &stoppedReq)

	started := make(chan struct{})
	tsk := ExecuteAsync[int](requester, target.Executor(), func() Task[int] {
		// pending never resolves, so the event stays EXECUTING until
		// something cancels it.
		pending, _ := NewTaskAndFulfiller[int](target)
		close(started)
		return pending
	})

	<-started // the target goroutine has set the event to EXECUTING

	tsk.Close() // requestCancel's EXECUTING branch blocks until DONE

	// A fresh call against the same target proves its loop goroutine is
	// still healthy and processing work after the cancellation round trip.
	v, err := ExecuteSync[int](target.Executor(), func() Task[int] {
		return Value(7)
	})
	if err != nil || v != 7 {
		t.Fatalf("target loop unresponsive after cancel: %v, %v", v, err)
	}
}

func TestExecuteSyncDisconnectsWhenTargetLoopExits(t *testing.T) {
	target, stop := startBackgroundLoop()

	started := make(chan struct{})
	type result struct {
		v   int
		err error
	}
	resultCh := make(chan result, 1)

	go func() {
		v, err := ExecuteSync[int](target.Executor(), func() Task[int] {
			// pending never resolves, so the event is still EXECUTING when
			// the target loop exits.
			pending, _ := NewTaskAndFulfiller[int](target)
			close(started)
			return pending
		})
		resultCh <- result{v, err}
	}()

	<-started
	stop() // target.Run returns while the call is still EXECUTING

	select {
	case r := <-resultCh:
		if !IsDisconnected(r.err) {
			t.Fatalf("err = %v, want a disconnected error", r.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ExecuteSync never returned after its target loop exited")
	}
}

func TestExecuteAsyncDeliversResultToRequester(t *testing.T) {
	target, stop := startBackgroundLoop()
	defer stop()

	requester := NewLoop(nil)
	var stoppedReq atomic.Bool
	requester.idle = runningIdleHook(requester, &stoppedReq)

	tsk := ExecuteAsync[int](requester, target.Executor(), func() Task[int] {
		return Value(9)
	})

	done := make(chan struct{})
	go func() {
		var cell ResultCell[int]
		e := requester.newEvent(func() {
			tsk.node().extract(&cell)
			stoppedReq.Store(true)
			requester.signalWake()
			close(done)
		})
		tsk.node().registerConsumer(e)
		_ = requester.Run()
	}()

	<-done
	var cell ResultCell[int]
	tsk.node().extract(&cell)
	v, err := cell.Get()
	if err != nil || v != 9 {
		t.Fatalf("ExecuteAsync result = %v, %v", v, err)
	}
}
