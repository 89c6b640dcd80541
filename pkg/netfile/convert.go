package netfile

import (
	"fmt"
	"log/slog"
	"maps"
	"strconv"

	"github.com/ha1tch/netcanvas/pkg/scene"
)

// FromScene captures the current state of sc.
func FromScene(sc *scene.Scene) *Document {
	d := &Document{}
	for _, n := range sc.Nodes.All() {
		x, y, _ := sc.Groups.WorldOf(n.ID)
		props := maps.Clone(n.Params)
		if props == nil {
			props = map[string]any{}
		}
		if n.AttachedTo != 0 {
			props[AttachedToKey] = int(n.AttachedTo)
		}
		l := Layer{ID: NodeRef(n.ID), Type: n.Type, X: x, Y: y, Properties: props}
		if g := n.Group(); g != 0 {
			ref := GroupRef(g)
			l.GroupID = &ref
		}
		d.Layers = append(d.Layers, l)
	}
	for _, c := range sc.Nodes.Connections() {
		d.Connections = append(d.Connections, Connection{
			ID:       Ref(strconv.Itoa(c.ID)),
			SourceID: Ref(c.Source.String()),
			TargetID: Ref(c.Target.String()),
		})
	}
	for _, g := range sc.Groups.All() {
		w, h := g.ExpandedSize()
		sg := Group{
			ID:       GroupRef(g.ID),
			Name:     g.Name,
			X:        g.Rect.X,
			Y:        g.Rect.Y,
			Width:    w,
			Height:   h,
			Expanded: g.Expanded,
		}
		for _, m := range g.Members {
			sg.NodeIDs = append(sg.NodeIDs, NodeRef(m))
		}
		d.Groups = append(d.Groups, sg)
	}
	return d
}

// Loaded maps the ids of a document to the ids they received in the scene.
type Loaded struct {
	Nodes   map[Ref]scene.NodeID
	Groups  map[Ref]scene.GroupID
	Skipped int // connections, attachments and groups that could not be restored
}

// Load replaces the contents of sc with d. Nodes are created first, then
// groups, then connections, each remapped through the ids assigned so far.
// Records that reference something missing are logged and skipped. A
// layer of unknown type or a repeated layer id aborts the load and leaves
// sc empty.
func Load(d *Document, sc *scene.Scene, logger *slog.Logger) (*Loaded, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sc.Clear()
	res, err := load(d, sc, logger)
	if err != nil {
		sc.Clear()
		return nil, err
	}
	return res, nil
}

func load(d *Document, sc *scene.Scene, log *slog.Logger) (*Loaded, error) {
	res := &Loaded{
		Nodes:  make(map[Ref]scene.NodeID, len(d.Layers)),
		Groups: make(map[Ref]scene.GroupID, len(d.Groups)),
	}

	type pending struct {
		fn     scene.NodeID
		anchor Ref
	}
	var anchors []pending
	for i, l := range d.Layers {
		if _, dup := res.Nodes[l.ID]; dup {
			return nil, fmt.Errorf("%w: layer %d: duplicate id %q", ErrInvalidDocument, i, l.ID)
		}
		n, err := sc.Nodes.Add(l.Type, l.X, l.Y)
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d: %v", ErrInvalidDocument, i, err)
		}
		if a, ok := l.AttachedTo(); ok {
			anchors = append(anchors, pending{fn: n.ID, anchor: a})
		}
		for k, v := range l.Properties {
			if k != AttachedToKey {
				n.Params[k] = v
			}
		}
		res.Nodes[l.ID] = n.ID
	}

	// Layer order, so a chain resolves the same way on every load.
	for _, p := range anchors {
		anchor, ok := res.Nodes[p.anchor]
		if !ok {
			log.Warn("attachment skipped", "node", p.fn, "anchor", p.anchor)
			res.Skipped++
			continue
		}
		if err := sc.Nodes.Attach(p.fn, anchor); err != nil {
			log.Warn("attachment skipped", "node", p.fn, "err", err)
			res.Skipped++
		}
	}

	for _, g := range d.Groups {
		var members []scene.NodeID
		for _, ref := range g.NodeIDs {
			if id, ok := res.Nodes[ref]; ok {
				members = append(members, id)
			}
		}
		grp, err := sc.Groups.Create(members)
		if err != nil {
			log.Warn("group skipped", "group", g.ID, "err", err)
			res.Skipped++
			continue
		}
		if g.Width > 0 && g.Height > 0 {
			if err := sc.Groups.SetBounds(grp.ID, scene.Rect{X: g.X, Y: g.Y, W: g.Width, H: g.Height}); err != nil {
				return nil, err
			}
		}
		if g.Name != "" {
			sc.Groups.Rename(grp.ID, g.Name)
		}
		if !g.Expanded {
			sc.Groups.Toggle(grp.ID)
		}
		res.Groups[g.ID] = grp.ID
	}

	for _, c := range d.Connections {
		src, okS := res.resolve(c.SourceID)
		dst, okT := res.resolve(c.TargetID)
		if !okS || !okT {
			log.Warn("connection skipped", "id", c.ID, "source", c.SourceID, "target", c.TargetID)
			res.Skipped++
			continue
		}
		if _, err := sc.Connect(src, dst); err != nil {
			log.Warn("connection skipped", "id", c.ID, "err", err)
			res.Skipped++
		}
	}
	return res, nil
}

func (l *Loaded) resolve(r Ref) (scene.Endpoint, bool) {
	if id, ok := l.Nodes[r]; ok {
		return scene.NodeEnd(id), true
	}
	if id, ok := l.Groups[r]; ok {
		return scene.GroupEnd(id), true
	}
	return scene.Endpoint{}, false
}

func refOf(v any) Ref {
	switch x := v.(type) {
	case string:
		return Ref(x)
	case float64:
		return Ref(strconv.FormatFloat(x, 'f', -1, 64))
	case int:
		return Ref(strconv.Itoa(x))
	}
	return Ref(fmt.Sprint(v))
}
