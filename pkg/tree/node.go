package tree

import "strings"

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement   Kind = iota // <div>, <button>, etc.
	KindText                  // Plain text node
	KindFragment              // Grouping without wrapper
	KindComponent             // Nested component
	KindRaw                   // Raw HTML (dangerous)
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindComponent:
		return "Component"
	case KindRaw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// Node is a node in the component tree.
type Node struct {
	Kind     Kind      // Node type
	Tag      string    // Element tag name (e.g., "div")
	Props    Props     // Attributes and event handlers
	Children []*Node   // Child nodes
	Key      string    // Reconciliation key
	Text     string    // For KindText and KindRaw
	Comp     Component // For KindComponent
	HID      string    // Handler ID (assigned during render)
}

// Props holds attributes and event handlers.
type Props map[string]any

// IsInteractive returns true if this node has event handlers and needs a HID.
func (n *Node) IsInteractive() bool {
	if n == nil || n.Kind != KindElement {
		return false
	}
	for key := range n.Props {
		if strings.HasPrefix(key, "on") {
			return true
		}
	}
	return false
}

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// Component is anything that can render to a Node.
type Component interface {
	Render() *Node
}

// FuncComponent wraps a render function.
type FuncComponent struct {
	render func() *Node
}

// Render implements Component.
func (f *FuncComponent) Render() *Node {
	return f.render()
}

// Func creates a component from a render function.
func Func(render func() *Node) Component {
	return &FuncComponent{render: render}
}
