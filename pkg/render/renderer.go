package render

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/arbor-ui/arbor/pkg/tree"
)

// RendererConfig configures the HTML renderer.
type RendererConfig struct {
	// Pretty enables pretty-printed HTML output with indentation.
	// Development only; it increases output size.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces.
	Indent string
}

// Renderer handles rendering of node trees to HTML.
type Renderer struct {
	config     RendererConfig
	hidCounter uint32
	handlers   map[string]any
}

// NewRenderer creates a Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{
		config:   config,
		handlers: make(map[string]any),
	}
}

// RenderToString renders a node tree to an HTML string.
func (r *Renderer) RenderToString(node *tree.Node) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams a node tree to the given writer.
func (r *Renderer) RenderToWriter(w io.Writer, node *tree.Node) error {
	return r.renderNode(w, node, 0)
}

// Handlers returns the handler registry collected during rendering.
// Keys are in the format "hid_eventname" (e.g., "h1_onclick").
func (r *Renderer) Handlers() map[string]any {
	return r.handlers
}

// Reset clears the HID counter and handler registry for reuse.
func (r *Renderer) Reset() {
	r.hidCounter = 0
	r.handlers = make(map[string]any)
}

// renderNode dispatches rendering based on node kind.
func (r *Renderer) renderNode(w io.Writer, node *tree.Node, depth int) error {
	if node == nil {
		return nil
	}

	switch node.Kind {
	case tree.KindElement:
		return r.renderElement(w, node, depth)
	case tree.KindText:
		return r.renderText(w, node)
	case tree.KindFragment:
		return r.renderFragment(w, node, depth)
	case tree.KindComponent:
		return r.renderComponent(w, node, depth)
	case tree.KindRaw:
		return r.renderRaw(w, node)
	default:
		return fmt.Errorf("unknown node kind: %d", node.Kind)
	}
}

func (r *Renderer) renderElement(w io.Writer, node *tree.Node, depth int) error {
	tag := node.Tag

	if r.config.Pretty && depth > 0 {
		if err := r.writeIndent(w, depth); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(w, "<"+tag); err != nil {
		return err
	}

	if err := r.renderAttributes(w, node); err != nil {
		return err
	}

	if tree.IsVoidElement(tag) {
		_, err := io.WriteString(w, ">")
		if err == nil && r.config.Pretty {
			_, err = io.WriteString(w, "\n")
		}
		return err
	}

	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}
	if r.config.Pretty && len(node.Children) > 0 {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}

	for _, child := range node.Children {
		if err := r.renderNode(w, child, depth+1); err != nil {
			return err
		}
	}

	if r.config.Pretty && len(node.Children) > 0 {
		if err := r.writeIndent(w, depth); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "</"+tag+">"); err != nil {
		return err
	}
	if r.config.Pretty {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}

// renderAttributes renders attributes in sorted order for stable output.
// Event handlers are not emitted as attributes; they are registered under
// a generated HID, which is emitted as data-hid.
func (r *Renderer) renderAttributes(w io.Writer, node *tree.Node) error {
	if len(node.Props) == 0 {
		return nil
	}

	keys := make([]string, 0, len(node.Props))
	hasHandlers := false
	for key := range node.Props {
		if strings.HasPrefix(key, "on") {
			hasHandlers = true
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := r.writeAttr(w, key, node.Props[key]); err != nil {
			return err
		}
	}

	if hasHandlers {
		// Always assign a fresh HID. Cached subtrees can hand the same
		// node back across renders, and a HID carried over from before a
		// Reset would collide with one handed out by the restarted
		// counter.
		r.hidCounter++
		hid := fmt.Sprintf("h%d", r.hidCounter)
		node.HID = hid
		for key, value := range node.Props {
			if strings.HasPrefix(key, "on") {
				r.handlers[hid+"_"+key] = value
			}
		}
		if err := r.writeAttr(w, "data-hid", hid); err != nil {
			return err
		}
	}

	return nil
}

func (r *Renderer) writeAttr(w io.Writer, key string, value any) error {
	switch v := value.(type) {
	case bool:
		// Boolean attribute: present when true, absent when false.
		if !v {
			return nil
		}
		_, err := io.WriteString(w, " "+key)
		return err
	case string:
		_, err := io.WriteString(w, " "+key+`="`+escapeAttr(v)+`"`)
		return err
	default:
		_, err := io.WriteString(w, " "+key+`="`+escapeAttr(fmt.Sprintf("%v", v))+`"`)
		return err
	}
}

func (r *Renderer) renderText(w io.Writer, node *tree.Node) error {
	if _, err := io.WriteString(w, escapeHTML(node.Text)); err != nil {
		return err
	}
	if r.config.Pretty {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}

func (r *Renderer) renderRaw(w io.Writer, node *tree.Node) error {
	_, err := io.WriteString(w, node.Text)
	return err
}

func (r *Renderer) renderFragment(w io.Writer, node *tree.Node, depth int) error {
	for _, child := range node.Children {
		if err := r.renderNode(w, child, depth); err != nil {
			return err
		}
	}
	return nil
}

// renderComponent renders a bare component node by invoking it directly.
// Trees assembled by the runtime contain no component nodes; this path
// serves stateless rendering outside a session.
func (r *Renderer) renderComponent(w io.Writer, node *tree.Node, depth int) error {
	if node.Comp == nil {
		return nil
	}
	return r.renderNode(w, node.Comp.Render(), depth)
}

func (r *Renderer) writeIndent(w io.Writer, depth int) error {
	for i := 0; i < depth; i++ {
		if _, err := io.WriteString(w, r.config.Indent); err != nil {
			return err
		}
	}
	return nil
}
