package arbor

import (
	"github.com/arbor-ui/arbor/pkg/tree"
)

// Instrument carries optional observation callbacks for the reactive core.
// The core stays dependency-free; the metrics package wires these to
// Prometheus counters. Callbacks must be cheap and must not call back into
// the core.
var Instrument struct {
	// LookupDone is called after every Use/Lookup with the hit/miss result.
	LookupDone func(hit bool)

	// ProviderUpdate is called after every Provider.Set with whether the
	// write counted as a change under the context's equality.
	ProviderUpdate func(changed bool)
}

// Context identifies one typed slot that providers publish into and
// descendants read from. Create one per logical value, typically as a
// package-level var:
//
//	var Theme = arbor.NewContext[string]()
//
// The zero value is not usable; always create through NewContext.
type Context[T any] struct {
	// key uniquely identifies this context in scope value maps.
	key any

	// equal determines change detection for providers of this context.
	// nil selects the default policy (== for common comparable kinds,
	// reflect.DeepEqual otherwise).
	equal func(T, T) bool
}

// contextKey wraps Context to create a unique key type.
type contextKey[T any] struct {
	ctx *Context[T]
}

// NewContext creates a context for values of type T.
//
// There is deliberately no default value parameter: a lookup with no
// enclosing provider reports absence, and the caller chooses between
// failing and falling back (UseOr).
func NewContext[T any]() *Context[T] {
	ctx := &Context[T]{}
	// The context pointer itself is the key, so two contexts of the same
	// value type never collide.
	ctx.key = contextKey[T]{ctx: ctx}
	return ctx
}

// WithEquals sets the change-detection policy for providers of this
// context and returns it. Call before any provider is created.
//
//	var Options = arbor.NewContext[*Options]().WithEquals(func(a, b *Options) bool {
//	    return a == b // identity, not deep equality
//	})
func (c *Context[T]) WithEquals(fn func(T, T) bool) *Context[T] {
	c.equal = fn
	return c
}

// Provider owns one current value of the context for a subtree. The value
// flows strictly downward: descendants read it via Use, and any
// child-initiated update must go through an update capability carried
// inside the value itself (or through Set called by the owning side),
// never through a back-reference.
type Provider[T any] struct {
	ctx    *Context[T]
	signal *Signal[T]
}

// NewProvider creates a provider handle with an initial value. The handle
// is installed into the tree with Wrap and updated with Set.
func (c *Context[T]) NewProvider(initial T) *Provider[T] {
	sig := NewSignal(initial)
	if c.equal != nil {
		sig.WithEquals(c.equal)
	}
	return &Provider[T]{ctx: c, signal: sig}
}

// Value returns the provider's current value without subscribing.
func (p *Provider[T]) Value() T {
	return p.signal.Peek()
}

// Set replaces the provider's value. When the new value is unequal to the
// current one under the context's equality policy, every descendant that
// performed a Use for this context is marked for re-render; an equal value
// schedules nothing. Returns whether a change was applied.
//
// Set only marks listeners dirty; actually re-rendering is the embedding
// runtime's job on its next pass.
func (p *Provider[T]) Set(value T) bool {
	changed := p.signal.Set(value)
	if Instrument.ProviderUpdate != nil {
		Instrument.ProviderUpdate(changed)
	}
	return changed
}

// Update atomically derives the next value from the current one.
// Subject to the same equality gate as Set.
func (p *Provider[T]) Update(fn func(T) T) bool {
	changed := p.signal.Update(fn)
	if Instrument.ProviderUpdate != nil {
		Instrument.ProviderUpdate(changed)
	}
	return changed
}

// Subscribers reports how many listeners currently depend on this provider.
func (p *Provider[T]) Subscribers() int {
	return p.signal.base.subscriberCount()
}

// Wrap returns a component node that publishes this provider's value to
// the given children. Only descendants of the returned node see the value;
// siblings never do.
func (p *Provider[T]) Wrap(children ...any) *tree.Node {
	return &tree.Node{
		Kind: tree.KindComponent,
		Comp: &providerComponent[T]{provider: p, children: children},
	}
}

// Provide is the render-inline form: it creates (or updates) a provider
// frame with the given value and wraps the children in it. Use it when the
// value is derived during the parent's render; use NewProvider/Wrap when an
// external owner drives the value over time.
func (c *Context[T]) Provide(value T, children ...any) *tree.Node {
	return &tree.Node{
		Kind: tree.KindComponent,
		Comp: &inlineProvider[T]{ctx: c, value: value, children: children},
	}
}

// providerComponent installs a provider frame into its own scope during
// render and emits its children as a fragment.
type providerComponent[T any] struct {
	provider *Provider[T]
	children []any
}

// Render implements tree.Component.
func (pc *providerComponent[T]) Render() *tree.Node {
	if scope := CurrentScope(); scope != nil {
		scope.setValue(pc.provider.ctx.key, pc.provider)
	}
	return tree.Fragment(pc.children...)
}

// inlineProvider is the Provide form. On first render it creates the frame;
// on a re-render of the same scope it updates the frame quietly, because
// the subtree below it is being rebuilt in the same pass anyway.
type inlineProvider[T any] struct {
	ctx      *Context[T]
	value    T
	children []any
}

// Render implements tree.Component.
func (ip *inlineProvider[T]) Render() *tree.Node {
	scope := CurrentScope()
	if scope == nil {
		return tree.Fragment(ip.children...)
	}

	if existing, ok := scope.valueLocal(ip.ctx.key).(*Provider[T]); ok {
		existing.signal.setQuietly(ip.value)
	} else {
		scope.setValue(ip.ctx.key, ip.ctx.NewProvider(ip.value))
	}
	return tree.Fragment(ip.children...)
}

// Use retrieves the value of the nearest enclosing provider for this
// context. The second result is false when no provider exists on the
// ancestry path; the core never substitutes a default.
//
// Use is reactive: it subscribes the current listener (the rendering
// component) to the provider, so an unequal Set re-renders the caller.
// Like all hook-style calls it must run during a render, with the scope
// and listener established by the runtime.
func (c *Context[T]) Use() (T, bool) {
	if scope := CurrentScope(); scope != nil {
		if p, ok := scope.value(c.key).(*Provider[T]); ok {
			v := p.signal.Get()
			if Instrument.LookupDone != nil {
				Instrument.LookupDone(true)
			}
			return v, true
		}
	}

	if Instrument.LookupDone != nil {
		Instrument.LookupDone(false)
	}
	var zero T
	return zero, false
}

// UseOr is Use with a caller-supplied fallback for the absent case.
func (c *Context[T]) UseOr(fallback T) T {
	if v, ok := c.Use(); ok {
		return v
	}
	return fallback
}

// Lookup resolves the nearest provider value from an explicit scope,
// without subscribing. It returns ErrNoProvider when no provider for this
// context exists on the scope's ancestor chain, and ErrScopeDisposed when
// the scope is no longer live.
func (c *Context[T]) Lookup(scope *Scope) (T, error) {
	var zero T
	if scope == nil {
		return zero, ErrNoProvider
	}
	if scope.IsDisposed() {
		return zero, ErrScopeDisposed
	}

	if p, ok := scope.value(c.key).(*Provider[T]); ok {
		if Instrument.LookupDone != nil {
			Instrument.LookupDone(true)
		}
		return p.signal.Peek(), nil
	}

	if Instrument.LookupDone != nil {
		Instrument.LookupDone(false)
	}
	return zero, ErrNoProvider
}
