package task

import "testing"

func TestLoopDepthFirstIsLIFO(t *testing.T) {
	l := NewLoop(nil)
	var order []string

	record := func(name string) func() { return func() { order = append(order, name) } }

	a := l.newEvent(record("a"))
	b := l.newEvent(record("b"))
	c := l.newEvent(record("c"))

	l.arm(a, tierDepthFirst)
	l.arm(b, tierDepthFirst)
	l.arm(c, tierDepthFirst)

	if err := l.Run(); err != nil {
		t.Fatal(err)
	}

	want := []string{"c", "b", "a"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestLoopBreadthFirstIsFIFO(t *testing.T) {
	l := NewLoop(nil)
	var order []string

	record := func(name string) func() { return func() { order = append(order, name) } }

	a := l.newEvent(record("a"))
	b := l.newEvent(record("b"))
	c := l.newEvent(record("c"))

	l.arm(a, tierBreadthFirst)
	l.arm(b, tierBreadthFirst)
	l.arm(c, tierBreadthFirst)

	if err := l.Run(); err != nil {
		t.Fatal(err)
	}

	want := []string{"a", "b", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestLoopDepthFirstBeatsBreadthFirstBeatsLast(t *testing.T) {
	l := NewLoop(nil)
	var order []string

	record := func(name string) func() { return func() { order = append(order, name) } }

	last := l.newEvent(record("last"))
	breadth := l.newEvent(record("breadth"))
	depth := l.newEvent(record("depth"))

	l.arm(last, tierLast)
	l.arm(breadth, tierBreadthFirst)
	l.arm(depth, tierDepthFirst)

	if err := l.Run(); err != nil {
		t.Fatal(err)
	}

	want := []string{"depth", "breadth", "last"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestLoopUnarmRemovesFromWhicheverQueue(t *testing.T) {
	l := NewLoop(nil)
	fired := false
	e := l.newEvent(func() { fired = true })

	l.arm(e, tierDepthFirst)
	l.arm(e, tierBreadthFirst) // re-arming moves it, doesn't duplicate it
	l.unarm(e)

	if err := l.Run(); err != nil {
		t.Fatal(err)
	}
	if fired {
		t.Fatal("event fired after being unarmed")
	}
}

func TestLoopRunPanicsOnRecursiveDrive(t *testing.T) {
	l := NewLoop(nil)
	e := l.newEvent(func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic from recursive Run")
			}
		}()
		l.Run()
	})
	l.arm(e, tierDepthFirst)
	if err := l.Run(); err != nil {
		t.Fatal(err)
	}
}
