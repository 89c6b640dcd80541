package drag

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/netcanvas/pkg/layers"
	"github.com/ha1tch/netcanvas/pkg/scene"
	"github.com/ha1tch/netcanvas/pkg/viewport"
)

type countingSync struct{ n int }

func (c *countingSync) UpdateAllConnections() { c.n++ }

type fixedSelection []scene.NodeID

func (f *fixedSelection) Selected() []scene.NodeID { return *f }

type rig struct {
	vp   *viewport.Viewport
	sc   *scene.Scene
	sel  *fixedSelection
	sync *countingSync
	eng  *Engine
}

func newRig(t *testing.T) *rig {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := &rig{
		vp:   viewport.Default(),
		sc:   scene.New(layers.Default(), log),
		sel:  &fixedSelection{},
		sync: &countingSync{},
	}
	r.eng = New(r.vp, r.sc, r.sel, r.sync, log)
	return r
}

func (r *rig) add(t *testing.T, x, y float64) *scene.Node {
	t.Helper()
	n, err := r.sc.Nodes.Add("DenseLayer", x, y)
	require.NoError(t, err)
	return n
}

func TestDragSingleNode(t *testing.T) {
	r := newRig(t)
	n := r.add(t, 10, 20)

	require.True(t, r.eng.BeginNode(n.ID, 30, 30))
	assert.Equal(t, Node, r.eng.Kind())
	assert.True(t, r.eng.Move(80, 10))
	assert.Equal(t, scene.World(60, 0), n.Pos)
	assert.Equal(t, 1, r.sync.n)
	assert.True(t, r.eng.End())
	assert.False(t, r.eng.Active())
}

func TestDragUsesViewport(t *testing.T) {
	r := newRig(t)
	n := r.add(t, 0, 0)
	r.vp.Set(100, 50, 2)

	require.True(t, r.eng.BeginNode(n.ID, 110, 60))
	r.eng.Move(150, 80)
	assert.Equal(t, scene.World(20, 10), n.Pos, "screen delta is divided by the scale")
}

func TestDragWithoutMovementWritesNothing(t *testing.T) {
	r := newRig(t)
	n := r.add(t, 10, 20)

	require.True(t, r.eng.BeginNode(n.ID, 30, 30))
	assert.False(t, r.eng.Move(30, 30))
	r.eng.End()
	assert.Equal(t, scene.World(10, 20), n.Pos)
	assert.Zero(t, r.sync.n)
}

func TestOneUnitMoveWrites(t *testing.T) {
	r := newRig(t)
	n := r.add(t, 10, 20)

	require.True(t, r.eng.BeginNode(n.ID, 30, 30))
	assert.True(t, r.eng.Move(31, 30))
	assert.Equal(t, scene.World(11, 20), n.Pos)
}

func TestSecondBeginIgnored(t *testing.T) {
	r := newRig(t)
	a := r.add(t, 0, 0)
	b := r.add(t, 100, 0)

	require.True(t, r.eng.BeginNode(a.ID, 0, 0))
	assert.False(t, r.eng.BeginNode(b.ID, 100, 0))
	r.eng.Move(5, 5)
	assert.Equal(t, scene.World(5, 5), a.Pos)
	assert.Equal(t, scene.World(100, 0), b.Pos)
}

func TestMoveWithoutDrag(t *testing.T) {
	r := newRig(t)
	assert.False(t, r.eng.Move(5, 5))
	assert.False(t, r.eng.End())
}

func TestMultiSelectionMovesByDelta(t *testing.T) {
	r := newRig(t)
	a := r.add(t, 0, 0)
	b := r.add(t, 100, 0)
	c := r.add(t, 0, 300)
	other := r.add(t, 500, 500)

	// b and c end up in a group; a stays in the world frame.
	d := r.add(t, 0, 400)
	g, err := r.sc.Groups.Create([]scene.NodeID{c.ID, d.ID})
	require.NoError(t, err)
	cLocal := c.Pos

	*r.sel = fixedSelection{a.ID, b.ID, c.ID}
	require.True(t, r.eng.BeginNode(a.ID, 10, 10))
	r.eng.Move(20, 15)
	r.eng.Move(47, 3)
	r.eng.End()

	assert.Equal(t, scene.World(37, -7), a.Pos)
	assert.Equal(t, scene.World(137, -7), b.Pos)
	assert.Equal(t, scene.Local(g.ID, cLocal.X+37, cLocal.Y-7), c.Pos)
	assert.Equal(t, scene.World(500, 500), other.Pos)
}

func TestGroupedNodeIsClamped(t *testing.T) {
	r := newRig(t)
	a := r.add(t, 0, 0)
	b := r.add(t, 100, 0)
	g, err := r.sc.Groups.Create([]scene.NodeID{a.ID, b.ID})
	require.NoError(t, err)

	require.True(t, r.eng.BeginNode(a.ID, 0, 0))
	r.eng.Move(-1000, -1000)
	assert.Equal(t, scene.Local(g.ID, 0, scene.HeaderHeight), a.Pos)

	r.eng.Move(1000, 1000)
	assert.Equal(t, scene.Local(g.ID, g.Rect.W-a.Width, g.Rect.H-a.Height), a.Pos)
	r.eng.End()
}

func TestFollowersTakeClampedDelta(t *testing.T) {
	r := newRig(t)
	a := r.add(t, 0, 0)
	b := r.add(t, 100, 0)
	g, err := r.sc.Groups.Create([]scene.NodeID{a.ID, b.ID})
	require.NoError(t, err)
	a0, b0 := a.Pos, b.Pos

	*r.sel = fixedSelection{a.ID, b.ID}
	require.True(t, r.eng.BeginNode(a.ID, 0, 0))
	r.eng.Move(-500, 0)
	r.eng.End()

	dx := a.Pos.X - a0.X
	assert.Greater(t, dx, -500.0, "dragged node stops at the group edge")
	assert.Equal(t, scene.Local(g.ID, b0.X+dx, b0.Y), b.Pos)
	assert.GreaterOrEqual(t, b.Pos.X, 0.0)
}

func TestDraggedNodeRemovedEndsDrag(t *testing.T) {
	r := newRig(t)
	n := r.add(t, 0, 0)

	require.True(t, r.eng.BeginNode(n.ID, 0, 0))
	r.sc.Nodes.Remove(n.ID)
	assert.False(t, r.eng.Move(10, 10))
	assert.False(t, r.eng.Active())
	assert.Zero(t, r.sync.n)
}

func TestAttachedNodeStaysGlued(t *testing.T) {
	r := newRig(t)
	a := r.add(t, 0, 0)
	fn, err := r.sc.AttachFunction("ReLUFunction", a.ID)
	require.NoError(t, err)

	assert.False(t, r.eng.BeginNode(fn.ID, 50, -10), "attached nodes are not draggable")

	require.True(t, r.eng.BeginNode(a.ID, 0, 0))
	for i := 1; i <= 25; i++ {
		r.eng.Move(float64(i)*3.7, float64(-i)*1.3)
	}
	r.eng.End()

	ox, oy := scene.AttachOffset(a)
	assert.InDelta(t, a.Pos.X+ox, fn.Pos.X, 1e-9)
	assert.InDelta(t, a.Pos.Y+oy, fn.Pos.Y, 1e-9)
}

func TestAttachedNodeGluedInsideGroup(t *testing.T) {
	r := newRig(t)
	a := r.add(t, 0, 0)
	b := r.add(t, 200, 0)
	fn, err := r.sc.AttachFunction("TanhFunction", a.ID)
	require.NoError(t, err)
	_, err = r.sc.Groups.Create([]scene.NodeID{a.ID, b.ID})
	require.NoError(t, err)

	require.True(t, r.eng.BeginNode(a.ID, 0, 0))
	r.eng.Move(40, 30)
	r.eng.End()

	ox, oy := scene.AttachOffset(a)
	assert.Equal(t, a.Pos.Frame, fn.Pos.Frame)
	assert.Equal(t, a.Pos.X+ox, fn.Pos.X)
	assert.Equal(t, a.Pos.Y+oy, fn.Pos.Y)
}

func TestDragGroup(t *testing.T) {
	r := newRig(t)
	a := r.add(t, 0, 0)
	b := r.add(t, 100, 0)
	g, err := r.sc.Groups.Create([]scene.NodeID{a.ID, b.ID})
	require.NoError(t, err)
	local := a.Pos
	start := g.Rect

	require.True(t, r.eng.BeginGroup(g.ID, 0, 0))
	r.eng.Move(25, -5)
	r.eng.End()

	assert.Equal(t, start.X+25, g.Rect.X)
	assert.Equal(t, start.Y-5, g.Rect.Y)
	assert.Equal(t, local, a.Pos, "members keep their local position")
	x, y, _ := r.sc.Groups.WorldOf(a.ID)
	assert.Equal(t, 25.0, x)
	assert.Equal(t, -5.0, y)
}

func TestDragResizeHandle(t *testing.T) {
	r := newRig(t)
	a := r.add(t, 0, 0)
	b := r.add(t, 100, 0)
	g, err := r.sc.Groups.Create([]scene.NodeID{a.ID, b.ID})
	require.NoError(t, err)
	start := g.Rect
	r.vp.Set(0, 0, 2)

	require.True(t, r.eng.BeginResize(g.ID, scene.HandleSE, 0, 0))
	r.eng.Move(100, 60)
	r.eng.Move(80, 40)
	r.eng.End()

	assert.Equal(t, start.W+40, g.Rect.W)
	assert.Equal(t, start.H+20, g.Rect.H)
	assert.Equal(t, start.X, g.Rect.X)
}

func TestResizeCollapsedRefused(t *testing.T) {
	r := newRig(t)
	a := r.add(t, 0, 0)
	b := r.add(t, 100, 0)
	g, err := r.sc.Groups.Create([]scene.NodeID{a.ID, b.ID})
	require.NoError(t, err)
	_, err = r.sc.Groups.Toggle(g.ID)
	require.NoError(t, err)

	assert.False(t, r.eng.BeginResize(g.ID, scene.HandleSE, 0, 0))
	assert.False(t, r.eng.Active())
}
