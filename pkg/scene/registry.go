package scene

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/ha1tch/netcanvas/pkg/layers"
)

// ConnectionSink receives removal notices for drawn connections. The
// connection visualizer implements it.
type ConnectionSink interface {
	RemoveConnectionsForNode(id NodeID)
	RemoveAllConnections()
}

// Registry owns node and connection records. Node ids start at 1 and are
// never reused within a session, even across Clear.
type Registry struct {
	catalog layers.Catalog
	log     *slog.Logger

	nodes map[NodeID]*Node
	order []NodeID
	conns []*Connection

	lastNode NodeID
	lastConn int

	sink     ConnectionSink
	onRemove func(*Node)
}

// NewRegistry creates an empty registry resolving types through catalog.
func NewRegistry(catalog layers.Catalog, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		catalog: catalog,
		log:     logger,
		nodes:   make(map[NodeID]*Node),
	}
}

// SetSink installs the receiver of connection removal notices.
func (r *Registry) SetSink(s ConnectionSink) { r.sink = s }

// Catalog returns the layer catalog used by Add.
func (r *Registry) Catalog() layers.Catalog { return r.catalog }

// Add places a node of type typ with its top-left corner at world (x, y).
func (r *Registry) Add(typ string, x, y float64) (*Node, error) {
	def, ok := r.catalog.Lookup(typ)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	r.lastNode++
	n := &Node{
		ID:     r.lastNode,
		Type:   def.Name,
		Pos:    World(x, y),
		Width:  def.Width,
		Height: def.Height,
		Params: def.DefaultParams(),
	}
	r.nodes[n.ID] = n
	r.order = append(r.order, n.ID)
	r.log.Debug("node added", "id", n.ID, "type", n.Type, "x", x, "y", y)
	return n, nil
}

// Get returns the node with the given id.
func (r *Registry) Get(id NodeID) (*Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

// All returns every node in creation order.
func (r *Registry) All() []*Node {
	out := make([]*Node, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.nodes[id])
	}
	return out
}

// Len returns the number of nodes.
func (r *Registry) Len() int { return len(r.order) }

// MoveTo sets the world position of an ungrouped node. Grouped nodes are
// positioned through Groups and are refused here.
func (r *Registry) MoveTo(id NodeID, x, y float64) bool {
	n, ok := r.nodes[id]
	if !ok || !n.Pos.IsWorld() {
		return false
	}
	n.Pos.X, n.Pos.Y = x, y
	return true
}

// Attach ties function node fn to anchor. Chains are not allowed: the
// anchor must not itself be attached, and fn must not carry attachments.
func (r *Registry) Attach(fn, anchor NodeID) error {
	f, ok := r.nodes[fn]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, fn)
	}
	a, ok := r.nodes[anchor]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNodeNotFound, anchor)
	}
	if fn == anchor || a.AttachedTo != 0 || len(r.AttachedTo(fn)) > 0 {
		return fmt.Errorf("%w: %d to %d", ErrBadAttachment, fn, anchor)
	}
	f.AttachedTo = anchor
	return nil
}

// AttachedTo returns the nodes attached to anchor, in creation order.
func (r *Registry) AttachedTo(anchor NodeID) []NodeID {
	var out []NodeID
	for _, id := range r.order {
		if r.nodes[id].AttachedTo == anchor && anchor != 0 {
			out = append(out, id)
		}
	}
	return out
}

// Remove deletes a node together with every node attached to it and all
// connections touching any of them. It returns the removed ids, the
// requested node first.
func (r *Registry) Remove(id NodeID) []NodeID {
	if _, ok := r.nodes[id]; !ok {
		return nil
	}
	removed := []NodeID{id}
	for i := 0; i < len(removed); i++ {
		removed = append(removed, r.AttachedTo(removed[i])...)
	}

	for _, rid := range removed {
		n := r.nodes[rid]
		delete(r.nodes, rid)
		r.order = slices.DeleteFunc(r.order, func(o NodeID) bool { return o == rid })
		r.removeConnections(NodeEnd(rid))
		if r.sink != nil {
			r.sink.RemoveConnectionsForNode(rid)
		}
		if r.onRemove != nil {
			r.onRemove(n)
		}
	}
	r.log.Debug("node removed", "id", id, "cascade", len(removed)-1)
	return removed
}

// Connect records a directed connection. Endpoints are not validated here;
// Scene.Connect does that.
func (r *Registry) Connect(src, dst Endpoint) *Connection {
	r.lastConn++
	c := &Connection{ID: r.lastConn, Source: src, Target: dst}
	r.conns = append(r.conns, c)
	return c
}

// ConnectionID returns the id the next connection will get.
func (r *Registry) ConnectionID() int { return r.lastConn + 1 }

// Connections returns all connections in creation order.
func (r *Registry) Connections() []*Connection {
	return slices.Clone(r.conns)
}

// ConnectionsOf returns the connections touching e.
func (r *Registry) ConnectionsOf(e Endpoint) []*Connection {
	var out []*Connection
	for _, c := range r.conns {
		if c.Touches(e) {
			out = append(out, c)
		}
	}
	return out
}

// RemoveConnection deletes one connection by id.
func (r *Registry) RemoveConnection(id int) bool {
	n := len(r.conns)
	r.conns = slices.DeleteFunc(r.conns, func(c *Connection) bool { return c.ID == id })
	return len(r.conns) != n
}

func (r *Registry) removeConnections(e Endpoint) int {
	n := len(r.conns)
	r.conns = slices.DeleteFunc(r.conns, func(c *Connection) bool { return c.Touches(e) })
	return n - len(r.conns)
}

// Clear removes every node and connection. Id counters keep running.
func (r *Registry) Clear() {
	clear(r.nodes)
	r.order = r.order[:0]
	r.conns = r.conns[:0]
	if r.sink != nil {
		r.sink.RemoveAllConnections()
	}
}
