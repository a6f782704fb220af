package task

import (
	"errors"
	"testing"
)

func TestFiberWaitsOnATask(t *testing.T) {
	l := NewLoop(nil)

	fiber := StartFiber(l, 0, func(ws WaitScope) (int, error) {
		v, err := Wait(ws, Value(21))
		if err != nil {
			return 0, err
		}
		v2, err := Wait(ws, Value(v*2))
		return v2, err
	})

	v, err := drain(t, l, fiber)
	if err != nil || v != 42 {
		t.Fatalf("fiber result = %v, %v", v, err)
	}
}

func TestFiberPropagatesError(t *testing.T) {
	l := NewLoop(nil)

	wantErr := errors.New("boom")
	fiber := StartFiber(l, 0, func(ws WaitScope) (int, error) {
		_, err := Wait(ws, Rejected[int](wantErr))
		if err != nil {
			return 0, err
		}
		return 1, nil
	})

	_, err := drain(t, l, fiber)
	if err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestFiberCapturesPanic(t *testing.T) {
	l := NewLoop(nil)

	fiber := StartFiber(l, 0, func(ws WaitScope) (int, error) {
		panic("fiber body exploded")
	})

	_, err := drain(t, l, fiber)
	if err == nil {
		t.Fatal("expected an error from the captured panic")
	}
}

func TestFiberPollWithoutBlocking(t *testing.T) {
	l := NewLoop(nil)

	innerDone := false
	var pollResult bool
	fiber := StartFiber(l, 0, func(ws WaitScope) (int, error) {
		slow := EvalLast(l, func() (int, error) {
			innerDone = true
			return 1, nil
		})
		pollResult = slow.Poll(ws)
		v, err := Wait(ws, slow)
		return v, err
	})

	v, err := drain(t, l, fiber)
	if err != nil || v != 1 {
		t.Fatalf("fiber result = %v, %v", v, err)
	}
	if !innerDone {
		t.Fatal("inner eval never ran")
	}
	_ = pollResult
}

func TestFiberCloseWhileWaitingUnwindsCleanly(t *testing.T) {
	l := NewLoop(nil)

	pending, _ := NewTaskAndFulfiller[int](l)
	unwound := make(chan error, 1)

	fiber := StartFiber(l, 0, func(ws WaitScope) (int, error) {
		_, err := Wait(ws, pending)
		unwound <- err
		return 0, err
	})

	// A nil idle hook means Run returns as soon as the queues empty, which
	// happens exactly when the fiber parks in Wait — i.e. once it's WAITING.
	if err := l.Run(); err != nil {
		t.Fatal(err)
	}

	fiber.Close()

	select {
	case err := <-unwound:
		if !IsCanceled(err) {
			t.Fatalf("fiber body saw err = %v, want a canceled error", err)
		}
	default:
		t.Fatal("fiber body never observed the cancellation")
	}
}

func TestFiberPoolStartFiber(t *testing.T) {
	l := NewLoop(nil)
	pool := FiberPool{Loop: l, StackSize: 4096}

	fiber := FiberPoolStartFiber(pool, func(ws WaitScope) (string, error) {
		v, err := Wait(ws, Value("ok"))
		return v, err
	})

	v, err := drain(t, l, fiber)
	if err != nil || v != "ok" {
		t.Fatalf("fiber result = %v, %v", v, err)
	}
}
