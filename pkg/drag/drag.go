// Package drag turns pointer-down/move/up sequences into position writes
// on nodes and groups.
//
// Every write goes through the viewport for screen-to-world conversion and
// through scene.Groups for group-local frames. After each write that
// changes something, the injected Syncer is asked to redraw connections.
package drag

import (
	"log/slog"

	"github.com/ha1tch/netcanvas/pkg/scene"
	"github.com/ha1tch/netcanvas/pkg/viewport"
)

// Kind is what a drag is moving.
type Kind int

const (
	None Kind = iota
	Node
	Group
	Resize
)

func (k Kind) String() string {
	switch k {
	case Node:
		return "node"
	case Group:
		return "group"
	case Resize:
		return "resize"
	}
	return "none"
}

// Syncer redraws connections after the model changed.
type Syncer interface {
	UpdateAllConnections()
}

// Selection supplies the nodes that follow a node drag.
type Selection interface {
	Selected() []scene.NodeID
}

type follower struct {
	id      scene.NodeID
	grouped bool
	x0, y0  float64
}

// Engine runs at most one drag at a time.
type Engine struct {
	vp   *viewport.Viewport
	sc   *scene.Scene
	sel  Selection
	sync Syncer
	log  *slog.Logger

	kind   Kind
	node   scene.NodeID
	group  scene.GroupID
	handle scene.Handle

	px0, py0     float64 // pointer, world, at pointer-down
	lastX, lastY float64 // pointer, screen, at the previous event
	x0, y0       float64 // dragged element's start position in its own frame
	startRect    scene.Rect
	followers    []follower
}

// New creates a drag engine.
func New(vp *viewport.Viewport, sc *scene.Scene, sel Selection, sync Syncer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{vp: vp, sc: sc, sel: sel, sync: sync, log: logger}
}

// Active reports whether a drag is in progress.
func (e *Engine) Active() bool { return e.kind != None }

// Kind returns what the current drag is moving.
func (e *Engine) Kind() Kind { return e.kind }

// BeginNode starts dragging node id from screen point (sx, sy). Every other
// selected node follows. It returns false, leaving state untouched, when a
// drag is already active, the node does not exist or is hidden, or the node
// is attached to another node.
func (e *Engine) BeginNode(id scene.NodeID, sx, sy float64) bool {
	if e.kind != None {
		e.log.Debug("drag ignored", "reason", "drag already active")
		return false
	}
	n, ok := e.sc.Nodes.Get(id)
	if !ok || n.Hidden || n.AttachedTo != 0 {
		e.log.Debug("drag refused", "node", id)
		return false
	}
	e.start(Node, sx, sy)
	e.node = id
	e.x0, e.y0 = n.Pos.X, n.Pos.Y

	for _, sid := range e.sel.Selected() {
		if sid == id {
			continue
		}
		f, ok := e.sc.Nodes.Get(sid)
		if !ok || f.AttachedTo != 0 {
			continue
		}
		e.followers = append(e.followers, follower{id: sid, grouped: f.Grouped(), x0: f.Pos.X, y0: f.Pos.Y})
	}
	return true
}

// BeginGroup starts dragging a group by its header.
func (e *Engine) BeginGroup(id scene.GroupID, sx, sy float64) bool {
	if e.kind != None {
		return false
	}
	g, ok := e.sc.Groups.Get(id)
	if !ok {
		return false
	}
	e.start(Group, sx, sy)
	e.group = id
	e.x0, e.y0 = g.Rect.X, g.Rect.Y
	return true
}

// BeginResize starts dragging one of a group's corner handles.
func (e *Engine) BeginResize(id scene.GroupID, h scene.Handle, sx, sy float64) bool {
	if e.kind != None {
		return false
	}
	g, ok := e.sc.Groups.Get(id)
	if !ok || !g.Expanded {
		return false
	}
	e.start(Resize, sx, sy)
	e.group = id
	e.handle = h
	e.startRect = g.Rect
	return true
}

func (e *Engine) start(k Kind, sx, sy float64) {
	e.kind = k
	e.px0, e.py0 = e.vp.ScreenToWorld(sx, sy)
	e.lastX, e.lastY = sx, sy
	e.followers = e.followers[:0]
}

// Move continues the drag to screen point (sx, sy). It reports whether
// anything was written; a pointer that has not moved writes nothing.
func (e *Engine) Move(sx, sy float64) bool {
	if e.kind == None || (sx == e.lastX && sy == e.lastY) {
		return false
	}
	e.lastX, e.lastY = sx, sy
	px, py := e.vp.ScreenToWorld(sx, sy)
	dx, dy := px-e.px0, py-e.py0

	switch e.kind {
	case Node:
		if !e.moveNodes(dx, dy) {
			return false
		}
	case Group:
		e.sc.Groups.MoveTo(e.group, e.x0+dx, e.y0+dy)
	case Resize:
		if _, err := e.sc.Groups.ResizeFrom(e.group, e.handle, e.startRect, dx, dy); err != nil {
			e.log.Debug("resize refused", "group", e.group, "err", err)
		}
	}
	if e.sync != nil {
		e.sync.UpdateAllConnections()
	}
	return true
}

// moveNodes writes the dragged node and its followers. Followers take the
// dragged node's delta after clamping. It returns false, ending the drag,
// when the dragged node is gone.
func (e *Engine) moveNodes(dx, dy float64) bool {
	n, ok := e.sc.Nodes.Get(e.node)
	if !ok {
		e.End()
		return false
	}
	x, y := e.x0+dx, e.y0+dy
	if n.Grouped() {
		x, y = e.sc.Groups.ClampLocal(n.ID, x, y)
		e.sc.Groups.SetLocal(n.ID, x, y)
	} else {
		e.sc.Nodes.MoveTo(n.ID, x, y)
	}
	e.sc.Glue(n.ID)
	dx, dy = x-e.x0, y-e.y0

	for _, f := range e.followers {
		if f.grouped {
			e.sc.Groups.SetLocal(f.id, f.x0+dx, f.y0+dy)
		} else {
			e.sc.Nodes.MoveTo(f.id, f.x0+dx, f.y0+dy)
		}
		e.sc.Glue(f.id)
	}
	return true
}

// End finishes the drag. Positions were written on every move, so there is
// nothing to commit. It is safe to call without an active drag.
func (e *Engine) End() bool {
	was := e.kind != None
	e.kind = None
	e.node, e.group = 0, 0
	e.followers = e.followers[:0]
	return was
}
