package netfile

import (
	"fmt"

	"github.com/ha1tch/netcanvas/pkg/layers"
)

// Problem is one issue found by Validate.
type Problem struct {
	Where   string
	Message string
}

func (p Problem) String() string { return p.Where + ": " + p.Message }

// Validate checks a document without loading it: layer types must be
// known, ids unique, and connections and groups must point at things that
// exist. Load tolerates dangling references by skipping them; Validate
// reports them.
func Validate(d *Document, catalog layers.Catalog) []Problem {
	var probs []Problem
	add := func(where, format string, args ...interface{}) {
		probs = append(probs, Problem{Where: where, Message: fmt.Sprintf(format, args...)})
	}

	nodes := make(map[Ref]bool, len(d.Layers))
	for i, l := range d.Layers {
		where := fmt.Sprintf("layer %d (id %s)", i, l.ID)
		if l.ID == "" {
			add(where, "missing id")
		}
		if nodes[l.ID] {
			add(where, "duplicate id")
		}
		nodes[l.ID] = true
		if _, ok := catalog.Lookup(l.Type); !ok {
			add(where, "unknown type %q", l.Type)
		}
	}

	groups := make(map[Ref]bool, len(d.Groups))
	owner := make(map[Ref]Ref)
	for i, g := range d.Groups {
		where := fmt.Sprintf("group %d (id %s)", i, g.ID)
		if groups[g.ID] {
			add(where, "duplicate id")
		}
		groups[g.ID] = true
		if len(g.NodeIDs) < 2 {
			add(where, "has %d members, need at least 2", len(g.NodeIDs))
		}
		for _, m := range g.NodeIDs {
			if !nodes[m] {
				add(where, "member %s does not exist", m)
				continue
			}
			if prev, ok := owner[m]; ok && prev != g.ID {
				add(where, "member %s already belongs to %s", m, prev)
			}
			owner[m] = g.ID
		}
	}

	for i, l := range d.Layers {
		if a, ok := l.AttachedTo(); ok {
			if !nodes[a] {
				add(fmt.Sprintf("layer %d (id %s)", i, l.ID), "attached to missing node %s", a)
			}
		}
	}

	for i, c := range d.Connections {
		where := fmt.Sprintf("connection %d (id %s)", i, c.ID)
		for _, end := range []Ref{c.SourceID, c.TargetID} {
			if !nodes[end] && !groups[end] {
				add(where, "endpoint %s does not exist", end)
			}
		}
	}
	return probs
}
