package arbor

import (
	"reflect"
	"sync"
)

// signalBase provides type-erased subscriber management, shared by every
// Signal instantiation.
type signalBase struct {
	id uint64

	// subs are the listeners subscribed to this signal.
	subs  []Listener
	subMu sync.RWMutex
}

// subscribe adds a listener, deduplicating by listener ID.
// Returns true when the listener was newly added.
func (s *signalBase) subscribe(l Listener) bool {
	if l == nil {
		return false
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	lid := l.ID()
	for _, existing := range s.subs {
		if existing.ID() == lid {
			return false
		}
	}

	s.subs = append(s.subs, l)
	return true
}

// unsubscribe removes a listener from this signal's subscribers.
func (s *signalBase) unsubscribe(l Listener) {
	if l == nil {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	lid := l.ID()
	for i, existing := range s.subs {
		if existing.ID() == lid {
			// Swap with last; subscriber order does not matter.
			s.subs[i] = s.subs[len(s.subs)-1]
			s.subs = s.subs[:len(s.subs)-1]
			return
		}
	}
}

// notifySubscribers marks every subscriber dirty.
// Copy-before-notify so no lock is held while listeners run.
func (s *signalBase) notifySubscribers() {
	s.subMu.RLock()
	subs := make([]Listener, len(s.subs))
	copy(subs, s.subs)
	s.subMu.RUnlock()

	for _, sub := range subs {
		sub.MarkDirty()
	}
}

// subscriberCount reports how many listeners are currently subscribed.
func (s *signalBase) subscriberCount() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return len(s.subs)
}

// Signal is a reactive value container. Reading a Signal during a tracked
// render subscribes the current listener to changes; writing an unequal
// value notifies subscribers.
type Signal[T any] struct {
	base signalBase

	value T
	mu    sync.RWMutex

	// equal determines whether a written value counts as a change.
	// nil selects defaultEquals.
	equal func(T, T) bool
}

// NewSignal creates a signal with the given initial value.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{
		base: signalBase{
			id: nextID(),
		},
		value: initial,
	}
}

// Get returns the current value and subscribes the current listener, if any.
// The subscription is bound to the current scope's lifetime: disposing the
// scope detaches the listener, so a torn-down subtree stops receiving
// notifications and does not linger in the subscriber list.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	value := s.value
	s.mu.RUnlock()

	// Track dependency after releasing the value lock.
	if l := getCurrentListener(); l != nil {
		if s.base.subscribe(l) {
			if scope := CurrentScope(); scope != nil {
				scope.OnCleanup(func() { s.base.unsubscribe(l) })
			}
		}
	}

	return value
}

// Peek returns the current value without subscribing.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set updates the value and notifies subscribers if it changed under the
// configured equality. Returns true when a change was applied.
func (s *Signal[T]) Set(value T) bool {
	s.mu.Lock()
	changed := !s.equals(s.value, value)
	if changed {
		s.value = value
	}
	s.mu.Unlock()

	if changed {
		s.base.notifySubscribers()
	}
	return changed
}

// setQuietly replaces the value without notifying subscribers.
// Used when the provider's own subtree is about to re-render anyway.
func (s *Signal[T]) setQuietly(value T) {
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()
}

// Update atomically reads and updates the value.
func (s *Signal[T]) Update(fn func(T) T) bool {
	s.mu.Lock()
	oldValue := s.value
	newValue := fn(oldValue)
	changed := !s.equals(oldValue, newValue)
	if changed {
		s.value = newValue
	}
	s.mu.Unlock()

	if changed {
		s.base.notifySubscribers()
	}
	return changed
}

// WithEquals configures a custom equality function and returns the signal.
// Useful where reflect.DeepEqual is too expensive or has the wrong semantics.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.equal = fn
	return s
}

// ID returns the unique identifier for this signal.
func (s *Signal[T]) ID() uint64 {
	return s.base.id
}

func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals provides type-appropriate equality: == for the common
// comparable kinds, reflect.DeepEqual for everything else.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int8:
		return av == any(b).(int8)
	case int16:
		return av == any(b).(int16)
	case int32:
		return av == any(b).(int32)
	case int64:
		return av == any(b).(int64)
	case uint:
		return av == any(b).(uint)
	case uint8:
		return av == any(b).(uint8)
	case uint16:
		return av == any(b).(uint16)
	case uint32:
		return av == any(b).(uint32)
	case uint64:
		return av == any(b).(uint64)
	case float32:
		return av == any(b).(float32)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	default:
		return reflect.DeepEqual(a, b)
	}
}
