package scene

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Group geometry, in world units.
const (
	Padding          = 20  // inner margin kept around members when resizing
	HeaderHeight     = 30  // title strip; members never sit above it
	BoundsPadding    = 30  // margin added around members on creation (top gets twice)
	CollapsedWidth   = 150
	CollapsedHeight  = HeaderHeight + 20
	MinWidth         = 100
	MinHeight        = 50
	PasteOffset      = 30
	AnchorOutset     = 10 // connection anchors sit this far outside the side edges
	CollapsedAnchorY = 15
)

// Handle names a resize corner.
type Handle int

const (
	HandleNW Handle = iota
	HandleNE
	HandleSE
	HandleSW
)

var handleNames = [...]string{"nw", "ne", "se", "sw"}

func (h Handle) String() string {
	if int(h) < len(handleNames) {
		return handleNames[h]
	}
	return "?"
}

// Group is a named box of nodes. Member positions are relative to Rect's
// top-left corner.
type Group struct {
	ID       GroupID
	Name     string
	Members  []NodeID
	Rect     Rect
	Expanded bool

	savedW, savedH float64
}

// Has reports whether id is a member.
func (g *Group) Has(id NodeID) bool { return slices.Contains(g.Members, id) }

// ExpandedSize returns the size the group has, or will have again, when
// expanded.
func (g *Group) ExpandedSize() (float64, float64) {
	if g.Expanded {
		return g.Rect.W, g.Rect.H
	}
	return g.savedW, g.savedH
}

// Anchors returns the world positions of the group's input and output
// connection points.
func (g *Group) Anchors() (in, out Point) {
	y := g.Rect.Y + g.Rect.H/2
	if !g.Expanded {
		y = g.Rect.Y + CollapsedAnchorY
	}
	return Point{X: g.Rect.X - AnchorOutset, Y: y}, Point{X: g.Rect.Right() + AnchorOutset, Y: y}
}

// Groups owns group records and is the only code that converts node
// positions between the world and group-local frames.
type Groups struct {
	reg *Registry
	log *slog.Logger

	groups   map[GroupID]*Group
	order    []GroupID
	last     GroupID
	selected GroupID
	clip     *clipboard
}

// NewGroups creates a group manager over reg. Nodes removed from reg are
// dropped from their group automatically.
func NewGroups(reg *Registry, logger *slog.Logger) *Groups {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Groups{
		reg:    reg,
		log:    logger,
		groups: make(map[GroupID]*Group),
	}
	reg.onRemove = g.forget
	return g
}

// Get returns a group by id.
func (gs *Groups) Get(id GroupID) (*Group, bool) {
	g, ok := gs.groups[id]
	return g, ok
}

// All returns every group in creation order.
func (gs *Groups) All() []*Group {
	out := make([]*Group, 0, len(gs.order))
	for _, id := range gs.order {
		out = append(out, gs.groups[id])
	}
	return out
}

// Of returns the group containing node id.
func (gs *Groups) Of(id NodeID) (*Group, bool) {
	n, ok := gs.reg.Get(id)
	if !ok || !n.Grouped() {
		return nil, false
	}
	return gs.Get(n.Pos.Group)
}

// Create groups the given nodes. Nodes attached to a selected node, and the
// anchor of a selected attached node, are pulled in as well. It fails when
// fewer than two distinct existing nodes are given or any of them is
// already grouped.
func (gs *Groups) Create(ids []NodeID) (*Group, error) {
	var picked []NodeID
	for _, id := range ids {
		if _, ok := gs.reg.Get(id); ok && !slices.Contains(picked, id) {
			picked = append(picked, id)
		}
	}
	if len(picked) < 2 {
		gs.log.Debug("group not created", "reason", "too few nodes", "nodes", len(picked))
		return nil, ErrTooFewNodes
	}
	members := gs.withAttachments(picked)

	var bounds Rect
	for i, id := range members {
		n, _ := gs.reg.Get(id)
		if n.Grouped() {
			gs.log.Debug("group not created", "reason", "already grouped", "node", id)
			return nil, fmt.Errorf("%w: node %d", ErrAlreadyGrouped, id)
		}
		r := Rect{n.Pos.X, n.Pos.Y, n.Width, n.Height}
		if i == 0 {
			bounds = r
		} else {
			bounds = bounds.Union(r)
		}
	}

	gs.last++
	g := &Group{
		ID:       gs.last,
		Name:     fmt.Sprintf("Group %d", gs.last),
		Members:  members,
		Expanded: true,
		Rect: Rect{
			X: bounds.X - BoundsPadding,
			Y: bounds.Y - 2*BoundsPadding,
			W: bounds.W + 2*BoundsPadding,
			H: bounds.H + 3*BoundsPadding,
		},
	}
	g.savedW, g.savedH = g.Rect.W, g.Rect.H

	for _, id := range members {
		n, _ := gs.reg.Get(id)
		n.Pos = Local(g.ID, n.Pos.X-g.Rect.X, n.Pos.Y-g.Rect.Y)
	}
	gs.groups[g.ID] = g
	gs.order = append(gs.order, g.ID)
	gs.log.Debug("group created", "group", g.ID, "members", len(members))
	return g, nil
}

func (gs *Groups) withAttachments(ids []NodeID) []NodeID {
	out := slices.Clone(ids)
	add := func(id NodeID) {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	for _, id := range ids {
		n, _ := gs.reg.Get(id)
		if n.AttachedTo != 0 {
			add(n.AttachedTo)
			for _, sib := range gs.reg.AttachedTo(n.AttachedTo) {
				add(sib)
			}
		}
		for _, a := range gs.reg.AttachedTo(id) {
			add(a)
		}
	}
	return out
}

// Delete dissolves a group. Members return to the world frame at
// origin + local offset; connections to the group itself are dropped.
func (gs *Groups) Delete(id GroupID) error {
	g, ok := gs.groups[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	for _, m := range g.Members {
		n, ok := gs.reg.Get(m)
		if !ok {
			continue
		}
		n.Pos = World(g.Rect.X+n.Pos.X, g.Rect.Y+n.Pos.Y)
		n.Hidden = false
	}
	gs.drop(g)
	gs.log.Debug("group dissolved", "group", id)
	return nil
}

// DeleteWithMembers removes a group and every member node, cascading to
// their attachments and connections. It returns the removed node ids.
func (gs *Groups) DeleteWithMembers(id GroupID) ([]NodeID, error) {
	g, ok := gs.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	var removed []NodeID
	for _, m := range slices.Clone(g.Members) {
		removed = append(removed, gs.reg.Remove(m)...)
	}
	gs.drop(g)
	gs.log.Debug("group deleted with members", "group", id, "nodes", len(removed))
	return removed, nil
}

func (gs *Groups) drop(g *Group) {
	gs.reg.removeConnections(GroupEnd(g.ID))
	delete(gs.groups, g.ID)
	gs.order = slices.DeleteFunc(gs.order, func(o GroupID) bool { return o == g.ID })
	if gs.selected == g.ID {
		gs.selected = 0
	}
}

func (gs *Groups) forget(n *Node) {
	g, ok := gs.groups[n.Group()]
	if !ok {
		return
	}
	g.Members = slices.DeleteFunc(g.Members, func(m NodeID) bool { return m == n.ID })
}

// Toggle collapses an expanded group or expands a collapsed one and returns
// the new state. Member positions are untouched; only visibility and the
// group's own size change.
func (gs *Groups) Toggle(id GroupID) (bool, error) {
	g, ok := gs.groups[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	if g.Expanded {
		g.savedW, g.savedH = g.Rect.W, g.Rect.H
		g.Rect.W, g.Rect.H = CollapsedWidth, CollapsedHeight
	} else {
		g.Rect.W, g.Rect.H = g.savedW, g.savedH
	}
	g.Expanded = !g.Expanded
	for _, m := range g.Members {
		if n, ok := gs.reg.Get(m); ok {
			n.Hidden = !g.Expanded
		}
	}
	return g.Expanded, nil
}

// MinSize returns the smallest size the group can be resized to while
// still holding every member plus padding. It is computed from the current
// member geometry on each call.
func (gs *Groups) MinSize(id GroupID) (float64, float64) {
	g, ok := gs.groups[id]
	if !ok {
		return MinWidth, MinHeight
	}
	first := true
	var l, t, r, b float64
	for _, m := range g.Members {
		n, ok := gs.reg.Get(m)
		if !ok {
			continue
		}
		if first {
			l, t, r, b = n.Pos.X, n.Pos.Y, n.Pos.X+n.Width, n.Pos.Y+n.Height
			first = false
			continue
		}
		l, t = min(l, n.Pos.X), min(t, n.Pos.Y)
		r, b = max(r, n.Pos.X+n.Width), max(b, n.Pos.Y+n.Height)
	}
	if first {
		return MinWidth, MinHeight
	}
	w := max(r-l+2*Padding, r+Padding, MinWidth)
	h := max(b-t+2*Padding+HeaderHeight, b+Padding, MinHeight)
	return w, h
}

// Resize drags a corner handle by (dx, dy) world units from the group's
// current rectangle.
func (gs *Groups) Resize(id GroupID, h Handle, dx, dy float64) (Rect, error) {
	g, ok := gs.groups[id]
	if !ok {
		return Rect{}, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	return gs.ResizeFrom(id, h, g.Rect, dx, dy)
}

// ResizeFrom sets the group's rectangle to start with handle h moved by
// (dx, dy). The opposite corner stays pinned and the size is clamped to
// MinSize. Collapsed groups cannot be resized.
func (gs *Groups) ResizeFrom(id GroupID, h Handle, start Rect, dx, dy float64) (Rect, error) {
	g, ok := gs.groups[id]
	if !ok {
		return Rect{}, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	if !g.Expanded {
		return g.Rect, fmt.Errorf("%w: %s", ErrGroupCollapsed, id)
	}
	minW, minH := gs.MinSize(id)

	r := start
	switch h {
	case HandleNW, HandleSW:
		r.W = max(minW, start.W-dx)
		r.X = start.Right() - r.W
	default:
		r.W = max(minW, start.W+dx)
	}
	switch h {
	case HandleNW, HandleNE:
		r.H = max(minH, start.H-dy)
		r.Y = start.Bottom() - r.H
	default:
		r.H = max(minH, start.H+dy)
	}

	g.Rect = r
	g.savedW, g.savedH = r.W, r.H
	return r, nil
}

// SetBounds replaces a group's rectangle, rebasing member local positions
// so that members keep their world positions.
func (gs *Groups) SetBounds(id GroupID, r Rect) error {
	g, ok := gs.groups[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	dx, dy := g.Rect.X-r.X, g.Rect.Y-r.Y
	for _, m := range g.Members {
		if n, ok := gs.reg.Get(m); ok {
			n.Pos.X += dx
			n.Pos.Y += dy
		}
	}
	g.Rect = r
	if g.Expanded {
		g.savedW, g.savedH = r.W, r.H
	}
	return nil
}

// MoveTo places a group's top-left corner at world (x, y). Members move
// with it.
func (gs *Groups) MoveTo(id GroupID, x, y float64) bool {
	g, ok := gs.groups[id]
	if !ok {
		return false
	}
	g.Rect.X, g.Rect.Y = x, y
	return true
}

// AddNode moves an ungrouped node into a group, converting its world
// position to the group's frame. Nodes attached to it come along.
func (gs *Groups) AddNode(id GroupID, node NodeID) error {
	g, ok := gs.groups[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	n, ok := gs.reg.Get(node)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, node)
	}
	if n.Grouped() {
		return fmt.Errorf("%w: node %d", ErrAlreadyGrouped, node)
	}
	for _, m := range append([]NodeID{node}, gs.reg.AttachedTo(node)...) {
		mn, _ := gs.reg.Get(m)
		if mn.Grouped() {
			continue
		}
		mn.Pos = Local(g.ID, mn.Pos.X-g.Rect.X, mn.Pos.Y-g.Rect.Y)
		mn.Hidden = !g.Expanded
		g.Members = append(g.Members, m)
	}
	return nil
}

// SetLocal sets a grouped node's position in its group's frame, unclamped.
func (gs *Groups) SetLocal(node NodeID, x, y float64) bool {
	n, ok := gs.reg.Get(node)
	if !ok || !n.Grouped() {
		return false
	}
	n.Pos.X, n.Pos.Y = x, y
	return true
}

// ClampLocal limits a local position so the node stays inside its group's
// interior, below the header.
func (gs *Groups) ClampLocal(node NodeID, x, y float64) (float64, float64) {
	n, ok := gs.reg.Get(node)
	if !ok || !n.Grouped() {
		return x, y
	}
	g, ok := gs.groups[n.Pos.Group]
	if !ok {
		return x, y
	}
	return clamp(x, 0, g.Rect.W-n.Width), clamp(y, HeaderHeight, g.Rect.H-n.Height)
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return max(lo, min(v, hi))
}

// WorldOf returns a node's world position whatever frame it is stored in.
func (gs *Groups) WorldOf(node NodeID) (float64, float64, bool) {
	n, ok := gs.reg.Get(node)
	if !ok {
		return 0, 0, false
	}
	return gs.toWorld(n.Pos)
}

// WorldRect returns a node's bounding box in world coordinates.
func (gs *Groups) WorldRect(node NodeID) (Rect, bool) {
	n, ok := gs.reg.Get(node)
	if !ok {
		return Rect{}, false
	}
	x, y, ok := gs.toWorld(n.Pos)
	return Rect{x, y, n.Width, n.Height}, ok
}

// ToFrame converts a world point into the frame of p's group, or returns it
// unchanged for world positions.
func (gs *Groups) ToFrame(p Position, x, y float64) (float64, float64) {
	if p.IsWorld() {
		return x, y
	}
	g, ok := gs.groups[p.Group]
	if !ok {
		return x, y
	}
	return x - g.Rect.X, y - g.Rect.Y
}

func (gs *Groups) toWorld(p Position) (float64, float64, bool) {
	if p.IsWorld() {
		return p.X, p.Y, true
	}
	g, ok := gs.groups[p.Group]
	if !ok {
		return 0, 0, false
	}
	return g.Rect.X + p.X, g.Rect.Y + p.Y, true
}

// Rename sets a group's title. Blank names are ignored.
func (gs *Groups) Rename(id GroupID, name string) error {
	g, ok := gs.groups[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	if name = strings.TrimSpace(name); name != "" {
		g.Name = name
	}
	return nil
}

// Select highlights one group, replacing any previous one.
func (gs *Groups) Select(id GroupID) bool {
	if _, ok := gs.groups[id]; !ok {
		return false
	}
	gs.selected = id
	return true
}

// Deselect clears the group highlight.
func (gs *Groups) Deselect() { gs.selected = 0 }

// Selected returns the highlighted group.
func (gs *Groups) Selected() (GroupID, bool) {
	return gs.selected, gs.selected != 0
}

// At returns the topmost group whose rectangle contains world (x, y).
func (gs *Groups) At(x, y float64) (*Group, bool) {
	for i := len(gs.order) - 1; i >= 0; i-- {
		g := gs.groups[gs.order[i]]
		if g.Rect.Contains(x, y) {
			return g, true
		}
	}
	return nil, false
}

// Clear removes every group. Members are expected to be cleared from the
// registry by the caller. The clipboard survives.
func (gs *Groups) Clear() {
	clear(gs.groups)
	gs.order = gs.order[:0]
	gs.selected = 0
}
