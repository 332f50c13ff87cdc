package arbor

import (
	"sync"
	"sync/atomic"
)

// Scope represents a component's position in the tree for the purposes of
// context resolution and resource ownership. Scopes form a hierarchy that
// mirrors the component tree: each mounted component owns a Scope whose
// parent is its parent component's Scope.
//
// Provider frames are stored in the providing component's own Scope, so a
// lookup from any descendant is a walk up the parent chain and the nearest
// frame wins. Disposing a Scope disposes its children (reverse order), runs
// registered cleanups, and drops its frames, which is what makes lookups
// from former descendants miss after a provider is unmounted.
type Scope struct {
	id uint64

	// parent is nil for a root Scope (typically one per session).
	parent *Scope

	children   []*Scope
	childrenMu sync.Mutex

	// values stores provider frames for this scope, keyed by context identity.
	values   map[any]any
	valuesMu sync.RWMutex

	// cleanups run in reverse order on Dispose.
	cleanups   []Cleanup
	cleanupsMu sync.Mutex

	disposed atomic.Bool
}

// NewScope creates a Scope with the given parent and registers it as a
// child. A nil parent creates a root Scope.
func NewScope(parent *Scope) *Scope {
	s := &Scope{
		id:     nextID(),
		parent: parent,
	}

	if parent != nil {
		parent.addChild(s)
	}

	return s
}

// ID returns the unique identifier for this Scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Parent returns the parent Scope, or nil for a root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsDisposed reports whether this Scope has been disposed.
func (s *Scope) IsDisposed() bool {
	return s.disposed.Load()
}

func (s *Scope) addChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()
	s.children = append(s.children, child)
}

func (s *Scope) removeChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()

	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// OnCleanup registers a cleanup function to run when this Scope is disposed.
// If the Scope is already disposed the function runs immediately.
func (s *Scope) OnCleanup(fn Cleanup) {
	if s.disposed.Load() {
		fn()
		return
	}

	s.cleanupsMu.Lock()
	defer s.cleanupsMu.Unlock()
	s.cleanups = append(s.cleanups, fn)
}

// setValue installs a provider frame on this Scope.
func (s *Scope) setValue(key, value any) {
	s.valuesMu.Lock()
	defer s.valuesMu.Unlock()

	if s.values == nil {
		s.values = make(map[any]any)
	}
	s.values[key] = value
}

// valueLocal returns the frame stored on this Scope itself, ignoring
// ancestors. nil when absent.
func (s *Scope) valueLocal(key any) any {
	s.valuesMu.RLock()
	defer s.valuesMu.RUnlock()

	if s.values == nil {
		return nil
	}
	return s.values[key]
}

// value resolves a frame by walking from this Scope toward the root.
// The nearest frame wins; nil when no ancestor holds one.
func (s *Scope) value(key any) any {
	self := s
	for self != nil {
		if v := self.valueLocal(key); v != nil {
			return v
		}
		self = self.parent
	}
	return nil
}

// Ancestors returns the scopes above this one, nearest first.
// This is the ancestry query the embedding runtime exposes to the core.
func (s *Scope) Ancestors() []*Scope {
	var out []*Scope
	for p := s.parent; p != nil; p = p.parent {
		out = append(out, p)
	}
	return out
}

// DisposeChildren disposes all child scopes while leaving this Scope alive.
// The runtime calls this before re-rendering a component so the subtree is
// rebuilt from scratch.
func (s *Scope) DisposeChildren() {
	s.childrenMu.Lock()
	children := make([]*Scope, len(s.children))
	copy(children, s.children)
	s.children = nil
	s.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].dispose(false)
	}
}

// Dispose disposes this Scope, its children (reverse order), and its
// provider frames, and runs cleanups. After disposal the Scope cannot be
// reused.
func (s *Scope) Dispose() {
	s.dispose(true)
}

func (s *Scope) dispose(detach bool) {
	if s.disposed.Swap(true) {
		return
	}

	if detach && s.parent != nil {
		s.parent.removeChild(s)
	}

	s.childrenMu.Lock()
	children := make([]*Scope, len(s.children))
	copy(children, s.children)
	s.children = nil
	s.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].dispose(false)
	}

	s.cleanupsMu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}

	s.valuesMu.Lock()
	s.values = nil
	s.valuesMu.Unlock()
}
