// Package layout arranges a scene as a left-to-right layered graph.
//
// Ungrouped nodes and groups are the units being placed; a grouped node
// stands in for its group and an attached function node for its anchor.
// The method is Sugiyama's:
//  1. Rank assignment - longest path from the sources, back edges ignored
//  2. Crossing reduction - barycentre sweeps over adjacent ranks
//  3. Coordinate assignment - one column per rank, units stacked and
//     centred on the tallest column
package layout

import (
	"cmp"
	"slices"

	"github.com/ha1tch/netcanvas/pkg/scene"
)

// Default spacing, in world units.
const (
	DefaultColumnGap = 80
	DefaultRowGap    = 40
	sweeps           = 4
)

// Options tunes the arrangement. Zero fields take the defaults.
type Options struct {
	ColumnGap float64
	RowGap    float64
}

func (o Options) withDefaults() Options {
	if o.ColumnGap <= 0 {
		o.ColumnGap = DefaultColumnGap
	}
	if o.RowGap <= 0 {
		o.RowGap = DefaultRowGap
	}
	return o
}

// unit is one placeable box: an ungrouped anchor node or a group.
type unit struct {
	node  scene.NodeID
	group scene.GroupID
	rect  scene.Rect // world bounds, attachments included
}

type graph struct {
	units    []*unit
	forward  map[int][]int
	backward map[int][]int
}

// Arrange moves every unit of sc into ranked columns starting at the
// scene's current top-left corner. It returns the number of units placed.
func Arrange(sc *scene.Scene, opts Options) int {
	opts = opts.withDefaults()
	g := build(sc)
	if len(g.units) == 0 {
		return 0
	}
	origin, _ := sc.Bounds()

	ranks := assignRanks(g)
	for i := 0; i < sweeps; i++ {
		ranks = reduceCrossings(ranks, g)
	}

	for i, p := range assignPositions(ranks, g, opts) {
		u := g.units[i]
		x, y := origin.X+p.X, origin.Y+p.Y
		if u.group != 0 {
			sc.Groups.MoveTo(u.group, x, y)
			continue
		}
		// The unit box may start above the node when a function is
		// attached, so shift by the node's offset inside it.
		n, _ := sc.Nodes.Get(u.node)
		sc.Nodes.MoveTo(u.node, x+(n.Pos.X-u.rect.X), y+(n.Pos.Y-u.rect.Y))
		sc.Glue(u.node)
	}
	return len(g.units)
}

func build(sc *scene.Scene) *graph {
	g := &graph{forward: map[int][]int{}, backward: map[int][]int{}}
	byNode := map[scene.NodeID]int{}
	byGroup := map[scene.GroupID]int{}

	for _, grp := range sc.Groups.All() {
		byGroup[grp.ID] = len(g.units)
		g.units = append(g.units, &unit{group: grp.ID, rect: grp.Rect})
	}
	for _, n := range sc.Nodes.All() {
		if n.Grouped() || n.AttachedTo != 0 {
			continue
		}
		r, ok := sc.Groups.WorldRect(n.ID)
		if !ok {
			continue
		}
		for _, id := range sc.Nodes.AttachedTo(n.ID) {
			if ar, ok := sc.Groups.WorldRect(id); ok {
				r = r.Union(ar)
			}
		}
		byNode[n.ID] = len(g.units)
		g.units = append(g.units, &unit{node: n.ID, rect: r})
	}

	unitOf := func(e scene.Endpoint) (int, bool) {
		if e.Kind == scene.EndpointGroup {
			i, ok := byGroup[e.Group()]
			return i, ok
		}
		n, ok := sc.Nodes.Get(e.Node())
		if !ok {
			return 0, false
		}
		if n.AttachedTo != 0 {
			if n, ok = sc.Nodes.Get(n.AttachedTo); !ok {
				return 0, false
			}
		}
		if n.Grouped() {
			i, ok := byGroup[n.Group()]
			return i, ok
		}
		i, ok := byNode[n.ID]
		return i, ok
	}

	// Deduplicated; edges inside one unit do not constrain its rank.
	seen := map[[2]int]bool{}
	for _, c := range sc.Nodes.Connections() {
		from, ok1 := unitOf(c.Source)
		to, ok2 := unitOf(c.Target)
		if !ok1 || !ok2 || from == to || seen[[2]int{from, to}] {
			continue
		}
		seen[[2]int{from, to}] = true
		g.forward[from] = append(g.forward[from], to)
		g.backward[to] = append(g.backward[to], from)
	}
	return g
}

// order lists unit indices by current position, left to right then top to
// bottom, so ties break the way the user already laid things out.
func (g *graph) order() []int {
	idx := make([]int, len(g.units))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		ra, rb := g.units[a].rect, g.units[b].rect
		if c := cmp.Compare(ra.X, rb.X); c != 0 {
			return c
		}
		return cmp.Compare(ra.Y, rb.Y)
	})
	return idx
}

// assignRanks gives every unit the length of the longest path reaching it.
// Edges closing a cycle are found by depth-first search and ignored.
func assignRanks(g *graph) [][]int {
	const (
		unvisited = iota
		active
		done
	)
	state := make([]int, len(g.units))
	back := map[[2]int]bool{}
	var visit func(int)
	visit = func(u int) {
		state[u] = active
		for _, v := range g.forward[u] {
			switch state[v] {
			case active:
				back[[2]int{u, v}] = true
			case unvisited:
				visit(v)
			}
		}
		state[u] = done
	}
	for _, u := range g.order() {
		if state[u] == unvisited {
			visit(u)
		}
	}

	rank := make([]int, len(g.units))
	resolved := make([]bool, len(g.units))
	var rankOf func(int) int
	rankOf = func(u int) int {
		if resolved[u] {
			return rank[u]
		}
		r := 0
		for _, p := range g.backward[u] {
			if !back[[2]int{p, u}] {
				r = max(r, rankOf(p)+1)
			}
		}
		rank[u], resolved[u] = r, true
		return r
	}

	maxRank := 0
	for u := range g.units {
		maxRank = max(maxRank, rankOf(u))
	}
	ranks := make([][]int, maxRank+1)
	for _, u := range g.order() {
		ranks[rank[u]] = append(ranks[rank[u]], u)
	}
	return ranks
}

// reduceCrossings reorders units within ranks by the barycentre of their
// neighbours in the previous rank, then again from the last rank back.
func reduceCrossings(ranks [][]int, g *graph) [][]int {
	if len(ranks) <= 1 {
		return ranks
	}
	result := make([][]int, len(ranks))
	pos := map[int]float64{}
	for l, rank := range ranks {
		result[l] = slices.Clone(rank)
		for i, u := range rank {
			pos[u] = float64(i)
		}
	}

	sweep := func(l int, neighbours map[int][]int) {
		bary := map[int]float64{}
		for _, u := range result[l] {
			sum, count := 0.0, 0
			for _, v := range neighbours[u] {
				if p, ok := pos[v]; ok {
					sum += p
					count++
				}
			}
			if count > 0 {
				bary[u] = sum / float64(count)
			} else {
				bary[u] = pos[u]
			}
		}
		slices.SortStableFunc(result[l], func(a, b int) int {
			return cmp.Compare(bary[a], bary[b])
		})
		for i, u := range result[l] {
			pos[u] = float64(i)
		}
	}

	for l := 1; l < len(result); l++ {
		sweep(l, g.backward)
	}
	for l := len(result) - 2; l >= 0; l-- {
		sweep(l, g.forward)
	}
	return result
}

// assignPositions returns each unit's top-left corner relative to the
// arrangement origin.
func assignPositions(ranks [][]int, g *graph, opts Options) map[int]scene.Point {
	out := make(map[int]scene.Point, len(g.units))

	heights := make([]float64, len(ranks))
	tallest := 0.0
	for l, rank := range ranks {
		for i, u := range rank {
			if i > 0 {
				heights[l] += opts.RowGap
			}
			heights[l] += g.units[u].rect.H
		}
		tallest = max(tallest, heights[l])
	}

	x := 0.0
	for l, rank := range ranks {
		width := 0.0
		y := (tallest - heights[l]) / 2
		for _, u := range rank {
			r := g.units[u].rect
			out[u] = scene.Point{X: x, Y: y}
			y += r.H + opts.RowGap
			width = max(width, r.W)
		}
		x += width + opts.ColumnGap
	}
	return out
}
