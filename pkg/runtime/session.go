package runtime

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/arbor-ui/arbor/pkg/arbor"
	"github.com/arbor-ui/arbor/pkg/tree"
)

// tracerName identifies this package's spans.
const tracerName = "arbor/runtime"

// SessionConfig configures a Session.
type SessionConfig struct {
	// Logger is the structured logger. If nil, slog.Default() is used.
	Logger *slog.Logger

	// Tracer overrides the tracer used for render-pass spans.
	// If nil, the global tracer provider is used.
	Tracer trace.Tracer
}

// Session owns one component tree and its cooperative update loop.
// All rendering and context resolution happens inside Flush, on whatever
// goroutine calls it; other goroutines hand work in via Dispatch.
type Session struct {
	mu   sync.Mutex
	root *Instance

	queue   []func()
	queueMu sync.Mutex

	// wakeCh is poked when something became dirty or was dispatched.
	wakeCh chan struct{}

	logger *slog.Logger
	tracer trace.Tracer
	closed bool
}

// NewSession creates an empty session.
func NewSession(config SessionConfig) *Session {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Session{
		wakeCh: make(chan struct{}, 1),
		logger: logger.With("component", "runtime"),
		tracer: tracer,
	}
}

// MountRoot mounts the root component and performs the initial render of
// the whole tree. It replaces any previously mounted root.
func (s *Session) MountRoot(comp tree.Component) *Instance {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.root != nil {
		s.disposeInstance(s.root)
	}
	s.root = newInstance(comp, nil, s)
	s.renderInstance(s.root)
	return s.root
}

// Root returns the root instance, or nil before MountRoot.
func (s *Session) Root() *Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

// Dispatch queues fn to run at the start of the next Flush. Safe to call
// from any goroutine; this is the only way external code may mutate
// provider values that the tree depends on.
func (s *Session) Dispatch(fn func()) {
	s.queueMu.Lock()
	s.queue = append(s.queue, fn)
	s.queueMu.Unlock()
	s.wake()
}

// Wake returns a channel that receives a token whenever the session has
// pending work (a dirty instance or a dispatched function). The embedding
// server selects on it to know when to Flush.
func (s *Session) Wake() <-chan struct{} {
	return s.wakeCh
}

func (s *Session) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Flush runs one cooperative pass: dispatched functions first, then a
// re-render of every instance that was dirty when the pass started.
// Instances marked dirty during the pass (by a Set inside a render or a
// dispatched function's side effects on a later pass) wait for the next
// Flush. Returns the number of instances re-rendered.
func (s *Session) Flush(ctx context.Context) int {
	s.queueMu.Lock()
	queued := s.queue
	s.queue = nil
	s.queueMu.Unlock()

	for _, fn := range queued {
		fn()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.root == nil || s.closed {
		return 0
	}

	dirty := s.collectDirty(s.root, nil)
	if len(dirty) == 0 {
		return 0
	}

	_, span := s.tracer.Start(ctx, "session.flush",
		trace.WithAttributes(attribute.Int("arbor.dirty_instances", len(dirty))))
	defer span.End()

	rendered := 0
	for _, inst := range dirty {
		// An ancestor's re-render earlier in this pass disposes and
		// remounts its subtree, which covers any dirty descendants.
		if inst.disposed.Load() || !inst.dirty.Load() {
			continue
		}
		s.renderInstance(inst)
		rendered++
	}

	span.SetAttributes(attribute.Int("arbor.rendered_instances", rendered))
	s.logger.Debug("flush complete", "dirty", len(dirty), "rendered", rendered)
	return rendered
}

// HasPendingWork reports whether a Flush would do anything.
func (s *Session) HasPendingWork() bool {
	s.queueMu.Lock()
	queued := len(s.queue)
	s.queueMu.Unlock()
	if queued > 0 {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.root == nil {
		return false
	}
	return len(s.collectDirty(s.root, nil)) > 0
}

// collectDirty gathers dirty instances in tree order (parents before
// children), so ancestor re-renders subsume descendant ones.
func (s *Session) collectDirty(inst *Instance, acc []*Instance) []*Instance {
	if inst.disposed.Load() {
		return acc
	}
	if inst.dirty.Load() {
		acc = append(acc, inst)
	}
	for _, c := range inst.children {
		acc = s.collectDirty(c, acc)
	}
	return acc
}

// renderInstance re-renders one instance: the previous subtree is torn
// down (child instances and their scopes disposed), the component renders
// with its scope and listener installed, and component child nodes are
// mounted as fresh child instances.
func (s *Session) renderInstance(inst *Instance) {
	for _, c := range inst.children {
		s.disposeInstance(c)
	}
	inst.children = nil
	inst.mounts = make(map[*tree.Node]*Instance)

	var out *tree.Node
	arbor.WithScope(inst.scope, func() {
		arbor.WithListener(inst, func() {
			out = inst.comp.Render()
		})
	})

	inst.rendered = out
	inst.dirty.Store(false)
	s.mountComponents(out, inst)
}

// mountComponents walks freshly rendered output and mounts every component
// node as a child instance with a child scope.
func (s *Session) mountComponents(n *tree.Node, parent *Instance) {
	if n == nil {
		return
	}

	if n.Kind == tree.KindComponent {
		child := newInstance(n.Comp, parent, s)
		parent.mounts[n] = child
		s.renderInstance(child)
		return
	}

	for _, c := range n.Children {
		s.mountComponents(c, parent)
	}
}

func (s *Session) disposeInstance(inst *Instance) {
	if inst.disposed.Swap(true) {
		return
	}
	for _, c := range inst.children {
		s.disposeInstance(c)
	}
	inst.children = nil
	inst.scope.Dispose()
}

// Unmount removes an instance subtree from the session. Its scopes are
// disposed, so context lookups from former descendants (via retained scope
// references) fail, and provider frames it held stop resolving.
func (s *Session) Unmount(inst *Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inst == nil || inst.disposed.Load() {
		return
	}
	if inst.parent != nil {
		for i, c := range inst.parent.children {
			if c == inst {
				inst.parent.children = append(inst.parent.children[:i], inst.parent.children[i+1:]...)
				break
			}
		}
		for node, mounted := range inst.parent.mounts {
			if mounted == inst {
				delete(inst.parent.mounts, node)
			}
		}
	} else if s.root == inst {
		s.root = nil
	}
	s.disposeInstance(inst)
}

// Close disposes the whole tree. The session cannot be reused.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.root != nil {
		s.disposeInstance(s.root)
		s.root = nil
	}
}
