package task

import (
	"errors"
	"testing"
)

func TestSignalWaitResolvesOnNotify(t *testing.T) {
	l := NewLoop(nil)

	var sig Signal
	waiter := sig.Wait()

	done := false
	e := l.newEvent(func() { done = true })
	waiter.node().registerConsumer(e)

	sig.Notify()
	if err := l.Run(); err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Fatal("waiter never resolved after Notify")
	}
}

func TestSignalWaitAfterNotifyWaitsForTheNextOne(t *testing.T) {
	l := NewLoop(nil)

	var sig Signal
	sig.Notify() // nothing waiting yet; must not affect a later Wait

	second := sig.Wait()
	var cell ResultCell[struct{}]
	e := l.newEvent(func() {})
	second.node().registerConsumer(e)
	if l.Poll(func() bool { return false }) {
		t.Fatal("second waiter resolved before a fresh Notify")
	}

	sig.Notify()
	if err := l.Run(); err != nil {
		t.Fatal(err)
	}
	second.node().extract(&cell)
	if _, err := cell.Get(); err != nil {
		t.Fatal(err)
	}
}

func TestSignalCancelRemovesWaiter(t *testing.T) {
	var sig Signal
	w := sig.Wait()
	w.Close()
	if len(sig.waiters) != 0 {
		t.Fatalf("waiters = %d, want 0 after cancel", len(sig.waiters))
	}
}

func TestStateGetSet(t *testing.T) {
	l := NewLoop(nil)

	s := NewState(1)
	if s.Get() != 1 {
		t.Fatalf("Get = %v, want 1", s.Get())
	}

	waiter := s.Wait()
	s.Set(2)
	if s.Get() != 2 {
		t.Fatalf("Get = %v, want 2", s.Get())
	}

	_, err := drain(t, l, waiter)
	if err != nil {
		t.Fatal(err)
	}
}

func TestStateUpdate(t *testing.T) {
	s := NewState(10)
	s.Update(func(v int) int { return v + 5 })
	if s.Get() != 15 {
		t.Fatalf("Get = %v, want 15", s.Get())
	}
}

func TestMemoRecomputesOnlyWhenStale(t *testing.T) {
	var dep Signal
	calls := 0
	m := NewMemo([]*Signal{&dep}, func() (int, error) {
		calls++
		return calls, nil
	})

	v, err := m.Get()
	if err != nil || v != 1 {
		t.Fatalf("first Get = %v, %v", v, err)
	}
	v, err = m.Get()
	if err != nil || v != 1 {
		t.Fatalf("cached Get = %v, %v, want 1 (no recompute)", v, err)
	}

	dep.Notify()
	v, err = m.Get()
	if err != nil || v != 2 {
		t.Fatalf("Get after Notify = %v, %v, want 2", v, err)
	}
	if calls != 2 {
		t.Fatalf("compute ran %d times, want 2", calls)
	}
}

func TestMemoPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	m := NewMemo[int](nil, func() (int, error) { return 0, wantErr })

	_, err := m.Get()
	if err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestSemaphoreAcquireFastPath(t *testing.T) {
	l := NewLoop(nil)
	s := NewSemaphore(l, 4)

	_, err := drain(t, l, s.Acquire(3))
	if err != nil {
		t.Fatal(err)
	}
}

func TestSemaphoreQueuesAndReleasesInFIFOOrder(t *testing.T) {
	l := NewLoop(nil)
	s := NewSemaphore(l, 1)

	if _, err := drain(t, l, s.Acquire(1)); err != nil {
		t.Fatal(err)
	}

	var order []int
	a := s.Acquire(1)
	b := s.Acquire(1)

	for i, tsk := range []Task[struct{}]{a, b} {
		idx := i
		cur := tsk
		e := l.newEvent(func() { order = append(order, idx) })
		cur.node().registerConsumer(e)
	}

	s.Release(1) // frees exactly enough for "a"
	if err := l.Run(); err != nil {
		t.Fatal(err)
	}
	if len(order) != 1 || order[0] != 0 {
		t.Fatalf("order = %v, want [0] (a released first)", order)
	}

	s.Release(1) // frees enough for "b"
	if err := l.Run(); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[1] != 1 {
		t.Fatalf("order = %v, want [0 1]", order)
	}
}

func TestSemaphorePanicsOnOverRelease(t *testing.T) {
	l := NewLoop(nil)
	s := NewSemaphore(l, 2)

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on over-release")
		}
	}()
	s.Release(1)
}

func TestWaitGroupWaitResolvesAtZero(t *testing.T) {
	l := NewLoop(nil)

	var wg WaitGroup
	wg.Add(2)
	waiter := wg.Wait()

	wg.Done()
	wg.Done()

	_, err := drain(t, l, waiter)
	if err != nil {
		t.Fatal(err)
	}
}

func TestWaitGroupWaitResolvesImmediatelyWhenAlreadyZero(t *testing.T) {
	l := NewLoop(nil)

	var wg WaitGroup
	v, err := drain(t, l, wg.Wait())
	if err != nil {
		t.Fatal(err)
	}
	_ = v
}

func TestWaitGroupPanicsOnNegativeCounter(t *testing.T) {
	var wg WaitGroup
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on a negative counter")
		}
	}()
	wg.Done()
}
