// Package runtime is the component-tree runtime that embeds the arbor core.
//
// It owns the three facilities the core's contract requires:
//
//   - Ancestry: every mounted component gets an Instance with a Scope whose
//     parent chain mirrors the component tree, so context lookups resolve
//     nearest-first.
//   - Scheduling: Instance implements arbor.Listener; a provider update
//     marks subscribed instances dirty and the next Flush re-renders them.
//   - Construction: MountRoot builds the instance tree, expanding component
//     nodes into child instances with child scopes.
//
// The model is single-threaded and cooperative: all renders and context
// resolutions happen inside Flush on one goroutine. Work from other
// goroutines is handed in via Dispatch and runs at the start of the next
// Flush, so a lookup during a pass always observes the values committed
// before the pass began.
package runtime
