package task

import (
	"errors"
	"testing"
)

func TestEvalLaterRunsAfterDepthFirstWork(t *testing.T) {
	l := NewLoop(nil)

	var order []string
	depthFirst := l.newEvent(func() { order = append(order, "depth") })
	l.arm(depthFirst, tierDepthFirst)

	later := EvalLater(l, func() (int, error) {
		order = append(order, "later")
		return 1, nil
	})

	v, err := drain(t, l, later)
	if err != nil || v != 1 {
		t.Fatalf("EvalLater result = %v, %v", v, err)
	}
	if len(order) != 2 || order[0] != "depth" || order[1] != "later" {
		t.Fatalf("order = %v, want [depth later]", order)
	}
}

func TestEvalLastRunsAfterEvalLater(t *testing.T) {
	l := NewLoop(nil)

	var order []string
	last := EvalLast(l, func() (int, error) {
		order = append(order, "last")
		return 1, nil
	})
	later := EvalLater(l, func() (int, error) {
		order = append(order, "later")
		return 2, nil
	})

	if _, err := drain(t, l, later); err != nil {
		t.Fatal(err)
	}
	if _, err := drain(t, l, last); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "later" || order[1] != "last" {
		t.Fatalf("order = %v, want [later last]", order)
	}
}

func TestEvalLaterCapturesPanic(t *testing.T) {
	l := NewLoop(nil)

	bad := EvalLater(l, func() (int, error) { panic("nope") })
	_, err := drain(t, l, bad)
	if err == nil {
		t.Fatal("expected an error from the captured panic")
	}
}

func TestEvalNowRunsImmediatelyWithoutALoop(t *testing.T) {
	ran := false
	v := EvalNow(func() (int, error) {
		ran = true
		return 7, nil
	})
	if !ran {
		t.Fatal("EvalNow did not run its function synchronously")
	}

	l := NewLoop(nil)
	got, err := drain(t, l, v)
	if err != nil || got != 7 {
		t.Fatalf("EvalNow result = %v, %v", got, err)
	}
}

func TestEvalNowWrapsAnError(t *testing.T) {
	wantErr := errors.New("boom")
	v := EvalNow(func() (int, error) { return 0, wantErr })

	l := NewLoop(nil)
	_, err := drain(t, l, v)
	if err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}
