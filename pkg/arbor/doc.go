// Package arbor provides the reactive core for the Arbor runtime.
//
// The central facility is scoped context propagation: a component anywhere
// in the tree publishes a typed value, and any descendant reads it without
// the value being threaded through every intermediate component's inputs.
// Resolution is nearest-wins: the deepest enclosing provider for a context
// shadows any outer one, and a sibling subtree's provider is never visible.
//
// # Core Types
//
// Context[T] is the typed slot a provider publishes into:
//
//	var Theme = arbor.NewContext[string]()
//
//	func Page() tree.Component {
//	    return tree.Func(func() *tree.Node {
//	        return Theme.Provide("dark",
//	            Header(),
//	            Body(),
//	        )
//	    })
//	}
//
//	func Button() *tree.Node {
//	    theme, ok := Theme.Use()
//	    if !ok {
//	        theme = "light"
//	    }
//	    return tree.Button(tree.Class("btn-" + theme))
//	}
//
// Use never invents a default: absence is reported explicitly (the bool
// result, or ErrNoProvider from Lookup) and the caller decides whether
// that is fatal or a fall-back case. UseOr exists for the common fall-back.
//
// Provider[T] is the long-lived handle for a value that changes over time:
//
//	theme := Theme.NewProvider("light")
//	// in render: theme.Wrap(children...)
//	// later:     theme.Set("dark")  // re-renders subscribed descendants
//
// Set is equality-gated: writing a value equal to the current one (under
// the context's equality policy, see Context.WithEquals) notifies nobody.
//
// # Scopes
//
// Scope mirrors the component tree. Each mounted component owns a Scope
// whose parent is its parent component's Scope; provider frames live in the
// provider's own Scope, so a lookup is a walk up the parent chain. Disposing
// a Scope tears down the subtree and invalidates its provider frames.
//
// # Thread Safety
//
// The tracking context (current scope, current listener) is per-goroutine.
// All rendering for one runtime session happens on that session's single
// pass; external goroutines hand updates in via the session's Dispatch.
package arbor
