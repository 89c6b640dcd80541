// Package scene holds the editable graph: nodes, groups and connections.
//
// Ungrouped nodes are positioned in world coordinates; grouped nodes are
// positioned relative to their group's top-left corner. Every Position
// carries its frame and only Groups converts between the two.
package scene

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ha1tch/netcanvas/pkg/layers"
)

var (
	ErrUnknownType     = errors.New("unknown layer type")
	ErrNodeNotFound    = errors.New("node not found")
	ErrGroupNotFound   = errors.New("group not found")
	ErrTooFewNodes     = errors.New("at least two nodes are needed to form a group")
	ErrAlreadyGrouped  = errors.New("node already belongs to a group")
	ErrGroupCollapsed  = errors.New("group is collapsed")
	ErrUnknownEndpoint = errors.New("unknown connection endpoint")
	ErrBadAttachment   = errors.New("invalid attachment")
	ErrEmptyClipboard  = errors.New("nothing to paste")
	ErrNotAFunction    = errors.New("layer type cannot be attached")
)

// Scene bundles the node registry and the group manager.
type Scene struct {
	Nodes  *Registry
	Groups *Groups
	log    *slog.Logger
}

// New creates an empty scene.
func New(catalog layers.Catalog, logger *slog.Logger) *Scene {
	if logger == nil {
		logger = slog.Default()
	}
	reg := NewRegistry(catalog, logger)
	return &Scene{
		Nodes:  reg,
		Groups: NewGroups(reg, logger),
		log:    logger,
	}
}

// Has reports whether the endpoint refers to a live node or group.
func (s *Scene) Has(e Endpoint) bool {
	switch e.Kind {
	case EndpointNode:
		_, ok := s.Nodes.Get(e.Node())
		return ok
	case EndpointGroup:
		_, ok := s.Groups.Get(e.Group())
		return ok
	}
	return false
}

// Connect adds a connection after checking both endpoints exist.
func (s *Scene) Connect(src, dst Endpoint) (*Connection, error) {
	for _, e := range []Endpoint{src, dst} {
		if !s.Has(e) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, e)
		}
	}
	return s.Nodes.Connect(src, dst), nil
}

// RemoveNode deletes a node with its attachments and connections.
func (s *Scene) RemoveNode(id NodeID) []NodeID {
	return s.Nodes.Remove(id)
}

// Clear empties the scene.
func (s *Scene) Clear() {
	s.Groups.Clear()
	s.Nodes.Clear()
}

// AttachFunction creates a node of function type typ attached to anchor.
// If the anchor is grouped, the new node joins the same group.
func (s *Scene) AttachFunction(typ string, anchor NodeID) (*Node, error) {
	def, ok := s.Nodes.Catalog().Lookup(typ)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	if !def.IsFunction() {
		return nil, fmt.Errorf("%w: %s", ErrNotAFunction, typ)
	}
	a, ok := s.Nodes.Get(anchor)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, anchor)
	}
	if a.AttachedTo != 0 {
		return nil, fmt.Errorf("%w: %d is itself attached", ErrBadAttachment, anchor)
	}
	ax, ay, _ := s.Groups.WorldOf(anchor)
	n, err := s.Nodes.Add(typ, ax, ay)
	if err != nil {
		return nil, err
	}
	if err := s.Nodes.Attach(n.ID, anchor); err != nil {
		s.Nodes.Remove(n.ID)
		return nil, err
	}
	if a.Grouped() {
		if err := s.Groups.AddNode(a.Pos.Group, n.ID); err != nil {
			s.Nodes.Remove(n.ID)
			return nil, err
		}
	}
	s.Glue(anchor)
	return n, nil
}

// AttachOffset returns where a node attached to anchor sits, relative to
// the anchor's top-left corner.
func AttachOffset(anchor *Node) (float64, float64) {
	return anchor.Width - layers.AttachInset, -layers.AttachInset
}

// Glue repositions every node attached to anchor from the anchor's current
// position, so attachments never drift no matter how often the anchor
// moves.
func (s *Scene) Glue(anchor NodeID) {
	a, ok := s.Nodes.Get(anchor)
	if !ok {
		return
	}
	ox, oy := AttachOffset(a)
	for _, id := range s.Nodes.AttachedTo(anchor) {
		n, _ := s.Nodes.Get(id)
		if n.Pos.Frame == a.Pos.Frame && n.Pos.Group == a.Pos.Group {
			n.Pos.X, n.Pos.Y = a.Pos.X+ox, a.Pos.Y+oy
			continue
		}
		wx, wy, ok := s.Groups.WorldOf(anchor)
		if !ok {
			continue
		}
		lx, ly := s.Groups.ToFrame(n.Pos, wx+ox, wy+oy)
		n.Pos.X, n.Pos.Y = lx, ly
	}
}

// NodeAt returns the topmost visible node whose world bounds contain
// (x, y). Attached nodes are on top of their anchors.
func (s *Scene) NodeAt(x, y float64) (*Node, bool) {
	nodes := s.Nodes.All()
	for pass := 0; pass < 2; pass++ {
		for i := len(nodes) - 1; i >= 0; i-- {
			n := nodes[i]
			if n.Hidden || (pass == 0) != (n.AttachedTo != 0) {
				continue
			}
			if r, ok := s.Groups.WorldRect(n.ID); ok && r.Contains(x, y) {
				return n, true
			}
		}
	}
	return nil, false
}

// Bounds returns the union of all visible nodes and groups in world
// coordinates, and false for an empty scene.
func (s *Scene) Bounds() (Rect, bool) {
	var out Rect
	found := false
	add := func(r Rect) {
		if !found {
			out, found = r, true
			return
		}
		out = out.Union(r)
	}
	for _, g := range s.Groups.All() {
		add(g.Rect)
	}
	for _, n := range s.Nodes.All() {
		if n.Hidden {
			continue
		}
		if r, ok := s.Groups.WorldRect(n.ID); ok {
			add(r)
		}
	}
	return out, found
}

// NodesIn returns the visible nodes whose world bounds intersect r.
func (s *Scene) NodesIn(r Rect) []NodeID {
	var out []NodeID
	for _, n := range s.Nodes.All() {
		if n.Hidden {
			continue
		}
		if b, ok := s.Groups.WorldRect(n.ID); ok && b.Intersects(r) {
			out = append(out, n.ID)
		}
	}
	return out
}

// VisibleNodes returns every node not hidden by a collapsed group.
func (s *Scene) VisibleNodes() []NodeID {
	var out []NodeID
	for _, n := range s.Nodes.All() {
		if !n.Hidden {
			out = append(out, n.ID)
		}
	}
	return out
}
