package arbor

import "testing"

// mockListener records MarkDirty calls for subscription tests.
type mockListener struct {
	id    uint64
	dirty int
}

func (m *mockListener) MarkDirty() { m.dirty++ }
func (m *mockListener) ID() uint64 { return m.id }

func newMockListener() *mockListener {
	return &mockListener{id: nextID()}
}

func TestSignalGetSet(t *testing.T) {
	s := NewSignal(1)

	if s.Get() != 1 {
		t.Errorf("expected 1, got %d", s.Get())
	}

	if !s.Set(2) {
		t.Error("Set with a new value should report a change")
	}
	if s.Get() != 2 {
		t.Errorf("expected 2, got %d", s.Get())
	}
}

func TestSignalEqualSetIsNoop(t *testing.T) {
	s := NewSignal("a")
	l := newMockListener()

	WithListener(l, func() { s.Get() })

	if s.Set("a") {
		t.Error("Set with an equal value should report no change")
	}
	if l.dirty != 0 {
		t.Errorf("equal Set should not notify, got %d notifications", l.dirty)
	}

	s.Set("b")
	if l.dirty != 1 {
		t.Errorf("unequal Set should notify once, got %d", l.dirty)
	}
}

func TestSignalGetSubscribesCurrentListener(t *testing.T) {
	s := NewSignal(0)
	l := newMockListener()

	// Read outside tracking: no subscription
	s.Get()
	s.Set(1)
	if l.dirty != 0 {
		t.Error("untracked read should not subscribe")
	}

	WithListener(l, func() { s.Get() })
	s.Set(2)
	if l.dirty != 1 {
		t.Errorf("tracked read should subscribe, got %d notifications", l.dirty)
	}
}

func TestSignalPeekDoesNotSubscribe(t *testing.T) {
	s := NewSignal(0)
	l := newMockListener()

	WithListener(l, func() { s.Peek() })
	s.Set(1)

	if l.dirty != 0 {
		t.Error("Peek should not subscribe")
	}
}

func TestSignalSubscribeDeduplicates(t *testing.T) {
	s := NewSignal(0)
	l := newMockListener()

	WithListener(l, func() {
		s.Get()
		s.Get()
		s.Get()
	})

	s.Set(1)
	if l.dirty != 1 {
		t.Errorf("duplicate subscriptions should collapse, got %d notifications", l.dirty)
	}
}

func TestSignalUnsubscribe(t *testing.T) {
	s := NewSignal(0)
	l := newMockListener()

	WithListener(l, func() { s.Get() })
	s.base.unsubscribe(l)
	s.Set(1)

	if l.dirty != 0 {
		t.Error("unsubscribed listener should not be notified")
	}
}

func TestSignalUpdate(t *testing.T) {
	s := NewSignal(10)

	if !s.Update(func(n int) int { return n + 5 }) {
		t.Error("Update producing a new value should report a change")
	}
	if s.Peek() != 15 {
		t.Errorf("expected 15, got %d", s.Peek())
	}

	if s.Update(func(n int) int { return n }) {
		t.Error("Update producing an equal value should report no change")
	}
}

func TestSignalWithEquals(t *testing.T) {
	type point struct{ X, Y int }

	// Compare by X only
	s := NewSignal(point{1, 1}).WithEquals(func(a, b point) bool {
		return a.X == b.X
	})
	l := newMockListener()
	WithListener(l, func() { s.Get() })

	s.Set(point{1, 99})
	if l.dirty != 0 {
		t.Error("same X should count as equal under the custom policy")
	}

	s.Set(point{2, 99})
	if l.dirty != 1 {
		t.Error("different X should count as a change")
	}
}

func TestSignalSetQuietly(t *testing.T) {
	s := NewSignal("v1")
	l := newMockListener()
	WithListener(l, func() { s.Get() })

	s.setQuietly("v2")

	if s.Peek() != "v2" {
		t.Errorf("expected v2, got %s", s.Peek())
	}
	if l.dirty != 0 {
		t.Error("setQuietly must not notify subscribers")
	}
}

func TestDefaultEqualsDeepFallback(t *testing.T) {
	a := []int{1, 2, 3}
	b := []int{1, 2, 3}
	if !defaultEquals(a, b) {
		t.Error("equal slices should compare equal via DeepEqual fallback")
	}

	c := []int{1, 2, 4}
	if defaultEquals(a, c) {
		t.Error("different slices should compare unequal")
	}
}

func TestScopeDisposeDetachesSubscription(t *testing.T) {
	s := NewSignal(0)
	l := newMockListener()
	scope := NewScope(nil)

	WithScope(scope, func() {
		WithListener(l, func() { s.Get() })
	})
	if s.base.subscriberCount() != 1 {
		t.Fatalf("subscribers = %d, want 1", s.base.subscriberCount())
	}

	scope.Dispose()
	if s.base.subscriberCount() != 0 {
		t.Errorf("subscribers after dispose = %d, want 0", s.base.subscriberCount())
	}

	s.Set(1)
	if l.dirty != 0 {
		t.Error("listener in a disposed scope should not be notified")
	}
}

func TestRepeatedTrackedReadsRegisterOneCleanup(t *testing.T) {
	s := NewSignal(0)
	l := newMockListener()
	scope := NewScope(nil)

	// A listener re-reading the same signal (as a re-rendering component
	// does) must not stack detach cleanups on its scope.
	for i := 0; i < 10; i++ {
		WithScope(scope, func() {
			WithListener(l, func() { s.Get() })
		})
	}
	if s.base.subscriberCount() != 1 {
		t.Fatalf("subscribers = %d, want 1", s.base.subscriberCount())
	}

	scope.Dispose()
	if s.base.subscriberCount() != 0 {
		t.Errorf("subscribers after dispose = %d, want 0", s.base.subscriberCount())
	}
}
