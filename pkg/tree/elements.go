package tree

import "strings"

// voidElements are elements that cannot have children.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// createElement creates a new Node with the given tag and arguments.
// Arguments can be: nil, Attr, []Attr, *Node, []*Node, Component, string.
func createElement(tag string, args []any) *Node {
	node := &Node{
		Kind:     KindElement,
		Tag:      tag,
		Props:    make(Props),
		Children: make([]*Node, 0),
	}

	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			// Ignore nil (allows conditional attributes)
			continue

		case Attr:
			if v.Key != "" {
				if v.Key == "key" {
					if s, ok := v.Value.(string); ok {
						node.Key = s
					}
				}
				node.Props[v.Key] = v.Value
			}

		case []Attr:
			for _, a := range v {
				if a.Key != "" {
					node.Props[a.Key] = a.Value
				}
			}

		case *Node:
			if v != nil {
				node.Children = append(node.Children, v)
			}

		case []*Node:
			for _, c := range v {
				if c != nil {
					node.Children = append(node.Children, c)
				}
			}

		case string:
			node.Children = append(node.Children, Text(v))

		case Component:
			node.Children = append(node.Children, &Node{
				Kind: KindComponent,
				Comp: v,
			})
		}
	}

	return node
}

// Element creates an element node with an arbitrary tag.
func Element(tag string, args ...any) *Node {
	return createElement(tag, args)
}

// Structural elements

func Div(args ...any) *Node     { return createElement("div", args) }
func Span(args ...any) *Node    { return createElement("span", args) }
func P(args ...any) *Node       { return createElement("p", args) }
func Main(args ...any) *Node    { return createElement("main", args) }
func Header(args ...any) *Node  { return createElement("header", args) }
func Footer(args ...any) *Node  { return createElement("footer", args) }
func Section(args ...any) *Node { return createElement("section", args) }
func Nav(args ...any) *Node     { return createElement("nav", args) }

// Headings

func H1(args ...any) *Node { return createElement("h1", args) }
func H2(args ...any) *Node { return createElement("h2", args) }
func H3(args ...any) *Node { return createElement("h3", args) }

// Lists

func Ul(args ...any) *Node { return createElement("ul", args) }
func Li(args ...any) *Node { return createElement("li", args) }

// Interactive elements

func Button(args ...any) *Node { return createElement("button", args) }
func A(args ...any) *Node      { return createElement("a", args) }
func Input(args ...any) *Node  { return createElement("input", args) }

// attr creates an Attr with the given key and value.
func attr(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// ID sets the id attribute.
func ID(id string) Attr { return attr("id", id) }

// Class sets the class attribute, joining multiple classes with spaces.
func Class(classes ...string) Attr { return attr("class", strings.Join(classes, " ")) }

// StyleAttr sets the style attribute (named to avoid conflict with a Style element).
func StyleAttr(style string) Attr { return attr("style", style) }

// Href sets the href attribute.
func Href(href string) Attr { return attr("href", href) }

// Data creates a data-* attribute.
// Example: Data("id", "123") sets data-id="123".
func Data(key, value string) Attr { return attr("data-"+key, value) }

// OnClick attaches a click handler.
func OnClick(handler func()) Attr { return attr("onclick", handler) }
