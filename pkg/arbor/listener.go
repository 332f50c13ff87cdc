package arbor

// Listener is anything that can be notified when a dependency changes.
// The runtime's component instances implement it: MarkDirty schedules a
// re-render on the next pass.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies changed.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used to deduplicate subscriptions.
	ID() uint64
}

// Cleanup is a function registered on a Scope to release resources when the
// scope is disposed.
type Cleanup func()
