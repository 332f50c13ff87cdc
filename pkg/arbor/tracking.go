package arbor

import (
	"runtime"
	"sync"
)

// trackingState holds the reactive state for a goroutine.
// Each goroutine has its own state so concurrent sessions can render
// independently.
type trackingState struct {
	// currentScope is the Scope that provider frames are installed into and
	// lookups resolve from. Set for the duration of a component render.
	currentScope *Scope

	// currentListener is what is currently tracking dependencies.
	// When a signal is read, it subscribes this listener.
	// nil means reads do not create subscriptions.
	currentListener Listener
}

// trackingStates stores per-goroutine tracking state.
var trackingStates sync.Map

// getGoroutineID returns a unique identifier for the current goroutine,
// parsed from the runtime stack header. Implementation detail; never exposed.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	// The stack starts with "goroutine <id> ".
	var id uint64
	for i := 10; i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// getTrackingState returns the tracking state for the current goroutine,
// creating it on first use.
func getTrackingState() *trackingState {
	gid := getGoroutineID()

	if st, ok := trackingStates.Load(gid); ok {
		return st.(*trackingState)
	}

	st := &trackingState{}
	trackingStates.Store(gid, st)
	return st
}

// CurrentScope returns the scope active on this goroutine, or nil when no
// render is in progress.
func CurrentScope() *Scope {
	return getTrackingState().currentScope
}

// setCurrentScope sets the current scope and returns the previous one so it
// can be restored.
func setCurrentScope(s *Scope) *Scope {
	st := getTrackingState()
	old := st.currentScope
	st.currentScope = s
	return old
}

// getCurrentListener returns the listener currently tracking dependencies,
// or nil when no tracking is active.
func getCurrentListener() Listener {
	return getTrackingState().currentListener
}

// setCurrentListener sets the current listener and returns the previous one.
func setCurrentListener(l Listener) Listener {
	st := getTrackingState()
	old := st.currentListener
	st.currentListener = l
	return old
}

// WithScope runs fn with the given scope as the current scope.
// The runtime wraps every component render in WithScope so that Provide and
// Use resolve against the component's position in the tree.
func WithScope(scope *Scope, fn func()) {
	old := setCurrentScope(scope)
	defer setCurrentScope(old)
	fn()
}

// WithListener runs fn with the given listener tracking dependencies.
// Signal reads inside fn subscribe the listener.
func WithListener(l Listener, fn func()) {
	old := setCurrentListener(l)
	defer setCurrentListener(old)
	fn()
}
