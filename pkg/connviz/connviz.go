// Package connviz keeps the on-screen path of every connection in step with
// the scene. It holds no positions of its own: each update reads endpoint
// positions from the scene and converts them through the viewport.
package connviz

import (
	"log/slog"
	"slices"

	"github.com/ha1tch/netcanvas/pkg/scene"
	"github.com/ha1tch/netcanvas/pkg/viewport"
)

// minPull is the smallest horizontal control-point pull, in world units.
const minPull = 40

// Path is the drawn form of one connection, in screen coordinates.
type Path struct {
	ConnID int
	Source scene.Endpoint
	Target scene.Endpoint
	Curve  Curve
	Loop   bool
}

// Visualizer maintains paths for all connections of a scene.
type Visualizer struct {
	vp  *viewport.Viewport
	sc  *scene.Scene
	log *slog.Logger

	paths map[int]*Path
}

// New creates a visualizer and registers it as the scene's connection sink.
func New(vp *viewport.Viewport, sc *scene.Scene, logger *slog.Logger) *Visualizer {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Visualizer{vp: vp, sc: sc, log: logger, paths: make(map[int]*Path)}
	sc.Nodes.SetSink(v)
	return v
}

// UpdateAllConnections recomputes every path from current positions.
// Calling it twice in a row yields identical geometry.
func (v *Visualizer) UpdateAllConnections() {
	clear(v.paths)
	loops := make(map[scene.Endpoint]int)
	for _, c := range v.sc.Nodes.Connections() {
		v.update(c, loops, true)
	}
}

// UpdateConnectionsForNode recomputes the paths touching a node, including
// connections attached to its group.
func (v *Visualizer) UpdateConnectionsForNode(id scene.NodeID) {
	end := scene.NodeEnd(id)
	var gend scene.Endpoint
	if g, ok := v.sc.Groups.Of(id); ok {
		gend = scene.GroupEnd(g.ID)
	}
	loops := make(map[scene.Endpoint]int)
	for _, c := range v.sc.Nodes.Connections() {
		touched := c.Touches(end) || (gend.ID != 0 && c.Touches(gend))
		v.update(c, loops, touched)
	}
}

// RemoveConnectionsForNode drops the paths touching a node.
func (v *Visualizer) RemoveConnectionsForNode(id scene.NodeID) {
	end := scene.NodeEnd(id)
	for cid, p := range v.paths {
		if p.Source == end || p.Target == end {
			delete(v.paths, cid)
		}
	}
}

// RemoveAllConnections drops every path.
func (v *Visualizer) RemoveAllConnections() { clear(v.paths) }

// Paths returns all visible paths ordered by connection id.
func (v *Visualizer) Paths() []*Path {
	out := make([]*Path, 0, len(v.paths))
	for _, p := range v.paths {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b *Path) int { return a.ConnID - b.ConnID })
	return out
}

// Path returns the path of one connection.
func (v *Visualizer) Path(connID int) (*Path, bool) {
	p, ok := v.paths[connID]
	return p, ok
}

// update recomputes one path. Self-loops are numbered in connection order
// through loops so that repeated loops on one box nest; write is false when
// only that numbering needs to advance.
func (v *Visualizer) update(c *scene.Connection, loops map[scene.Endpoint]int, write bool) {
	if write {
		delete(v.paths, c.ID)
	}
	src, okS := v.resolve(c.Source)
	dst, okT := v.resolve(c.Target)
	if !okS || !okT {
		if write {
			v.log.Warn("connection endpoint missing", "connection", c.ID, "source", c.Source, "target", c.Target)
		}
		return
	}
	if src.hiddenIn != 0 && src.hiddenIn == dst.hiddenIn {
		return
	}

	p := &Path{ConnID: c.ID, Source: c.Source, Target: c.Target}
	if src.key == dst.key {
		params := defaultLoop
		params.index = loops[src.key]
		loops[src.key]++
		if !write {
			return
		}
		p.Curve = selfLoop(v.screenRect(src.box), params, v.vp.Scale())
		p.Loop = true
	} else {
		if !write {
			return
		}
		p.Curve = link(v.screen(src.out), v.screen(dst.in), minPull*v.vp.Scale())
	}
	v.paths[c.ID] = p
}

// anchor describes where a connection endpoint is drawn, in world space.
type anchor struct {
	key      scene.Endpoint // what is actually drawn: the node, or its collapsed group
	box      scene.Rect
	in, out  scene.Point
	hiddenIn scene.GroupID // collapsed group hiding the node, if any
}

func (v *Visualizer) resolve(e scene.Endpoint) (anchor, bool) {
	if e.Kind == scene.EndpointGroup {
		g, ok := v.sc.Groups.Get(e.Group())
		if !ok {
			return anchor{}, false
		}
		return groupAnchor(g), true
	}

	n, ok := v.sc.Nodes.Get(e.Node())
	if !ok {
		return anchor{}, false
	}
	if n.Hidden {
		g, ok := v.sc.Groups.Get(n.Group())
		if !ok {
			return anchor{}, false
		}
		a := groupAnchor(g)
		a.hiddenIn = g.ID
		return a, true
	}
	r, ok := v.sc.Groups.WorldRect(n.ID)
	if !ok {
		return anchor{}, false
	}
	mid := r.Y + r.H/2
	return anchor{
		key: e,
		box: r,
		in:  scene.Point{X: r.X, Y: mid},
		out: scene.Point{X: r.Right(), Y: mid},
	}, true
}

func groupAnchor(g *scene.Group) anchor {
	in, out := g.Anchors()
	return anchor{key: scene.GroupEnd(g.ID), box: g.Rect, in: in, out: out}
}

func (v *Visualizer) screen(p scene.Point) Point {
	x, y := v.vp.WorldToScreen(p.X, p.Y)
	return Point{X: x, Y: y}
}

func (v *Visualizer) screenRect(r scene.Rect) scene.Rect {
	x, y := v.vp.WorldToScreen(r.X, r.Y)
	return scene.Rect{X: x, Y: y, W: r.W * v.vp.Scale(), H: r.H * v.vp.Scale()}
}
