package runtime

import (
	"sync/atomic"

	"github.com/arbor-ui/arbor/pkg/arbor"
	"github.com/arbor-ui/arbor/pkg/tree"
)

// Instance is a mounted component: the component itself, its Scope in the
// context hierarchy, its cached render output, and its dirty flag.
//
// Instance implements arbor.Listener. When a provider this instance
// subscribed to (by calling Use during render) changes, MarkDirty flags the
// instance and wakes the session; the next Flush re-renders it.
type Instance struct {
	id      uint64
	comp    tree.Component
	scope   *arbor.Scope
	session *Session
	parent  *Instance

	// children are the component instances mounted by the last render,
	// in tree order.
	children []*Instance

	// rendered is the output of the last render. Component child nodes
	// stay in place; mounts maps them to their instances so the assembled
	// tree is always read through the live instances.
	rendered *tree.Node
	mounts   map[*tree.Node]*Instance

	dirty    atomic.Bool
	disposed atomic.Bool
}

func newInstance(comp tree.Component, parent *Instance, session *Session) *Instance {
	var parentScope *arbor.Scope
	if parent != nil {
		parentScope = parent.scope
	}
	inst := &Instance{
		id:      nextInstanceID(),
		comp:    comp,
		scope:   arbor.NewScope(parentScope),
		session: session,
		parent:  parent,
	}
	if parent != nil {
		parent.children = append(parent.children, inst)
	}
	return inst
}

// ID implements arbor.Listener.
func (i *Instance) ID() uint64 {
	return i.id
}

// MarkDirty implements arbor.Listener. Safe to call from any goroutine;
// the re-render itself happens on the session's next pass.
func (i *Instance) MarkDirty() {
	if i.disposed.Load() {
		return
	}
	if i.dirty.CompareAndSwap(false, true) {
		i.session.wake()
	}
}

// IsDirty reports whether this instance is scheduled for re-render.
func (i *Instance) IsDirty() bool {
	return i.dirty.Load()
}

// Scope returns the instance's scope. Useful for explicit, non-reactive
// context lookups (arbor.Context.Lookup) from outside a render.
func (i *Instance) Scope() *arbor.Scope {
	return i.scope
}

// Parent returns the parent instance, or nil for the root.
func (i *Instance) Parent() *Instance {
	return i.parent
}

// Ancestors returns the instances above this one, nearest first.
func (i *Instance) Ancestors() []*Instance {
	var out []*Instance
	for p := i.parent; p != nil; p = p.parent {
		out = append(out, p)
	}
	return out
}

// Tree assembles the instance's current output, reading component children
// through their live instances so a re-rendered descendant is always seen
// fresh. The returned tree contains no KindComponent nodes.
func (i *Instance) Tree() *tree.Node {
	return i.assemble(i.rendered)
}

func (i *Instance) assemble(n *tree.Node) *tree.Node {
	if n == nil {
		return nil
	}

	if n.Kind == tree.KindComponent {
		if child, ok := i.mounts[n]; ok && !child.disposed.Load() {
			return child.Tree()
		}
		return nil
	}

	if len(n.Children) == 0 {
		return n
	}

	out := &tree.Node{
		Kind:  n.Kind,
		Tag:   n.Tag,
		Props: n.Props,
		Key:   n.Key,
		Text:  n.Text,
		HID:   n.HID,
	}
	for _, c := range n.Children {
		if ac := i.assemble(c); ac != nil {
			out.Children = append(out.Children, ac)
		}
	}
	return out
}

// instanceIDCounter feeds Instance.ID; shared with no one else.
var instanceIDCounter uint64

func nextInstanceID() uint64 {
	return atomic.AddUint64(&instanceIDCounter, 1)
}
