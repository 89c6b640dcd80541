package scene

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/netcanvas/pkg/layers"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScene(t *testing.T) *Scene {
	t.Helper()
	return New(layers.Default(), quietLogger())
}

func mustAdd(t *testing.T, s *Scene, typ string, x, y float64) *Node {
	t.Helper()
	n, err := s.Nodes.Add(typ, x, y)
	require.NoError(t, err)
	return n
}

type recordingSink struct {
	removed []NodeID
	cleared int
}

func (r *recordingSink) RemoveConnectionsForNode(id NodeID) { r.removed = append(r.removed, id) }
func (r *recordingSink) RemoveAllConnections()              { r.cleared++ }

func TestAddAssignsIncreasingIDs(t *testing.T) {
	s := newTestScene(t)
	a := mustAdd(t, s, "DenseLayer", 0, 0)
	b := mustAdd(t, s, "DenseLayer", 10, 10)
	assert.Equal(t, NodeID(1), a.ID)
	assert.Equal(t, NodeID(2), b.ID)

	s.Nodes.Remove(b.ID)
	c := mustAdd(t, s, "DenseLayer", 0, 0)
	assert.Equal(t, NodeID(3), c.ID, "ids are not reused")

	s.Clear()
	d := mustAdd(t, s, "DenseLayer", 0, 0)
	assert.Equal(t, NodeID(4), d.ID, "ids keep running across Clear")
}

func TestAddUsesCatalog(t *testing.T) {
	s := newTestScene(t)
	n := mustAdd(t, s, "PoolingLayer", 5, 6)
	assert.Equal(t, 112.0, n.Width)
	assert.Equal(t, 64.0, n.Height)
	assert.Equal(t, World(5, 6), n.Pos)
	assert.Equal(t, "MAX", n.Params["pooling_type"])

	_, err := s.Nodes.Add("NoSuchLayer", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownType)
	assert.Equal(t, 1, s.Nodes.Len())
}

func TestMoveToRefusesGroupedNodes(t *testing.T) {
	s := newTestScene(t)
	a := mustAdd(t, s, "DenseLayer", 0, 0)
	b := mustAdd(t, s, "DenseLayer", 100, 0)

	assert.True(t, s.Nodes.MoveTo(a.ID, 7, 8))
	assert.Equal(t, World(7, 8), a.Pos)

	_, err := s.Groups.Create([]NodeID{a.ID, b.ID})
	require.NoError(t, err)
	before := a.Pos
	assert.False(t, s.Nodes.MoveTo(a.ID, 1, 1))
	assert.Equal(t, before, a.Pos)
	assert.False(t, s.Nodes.MoveTo(99, 1, 1))
}

func TestRemoveCascades(t *testing.T) {
	s := newTestScene(t)
	sink := &recordingSink{}
	s.Nodes.SetSink(sink)

	n := mustAdd(t, s, "DenseLayer", 0, 0)
	other := mustAdd(t, s, "DenseLayer", 200, 0)
	third := mustAdd(t, s, "DenseLayer", 400, 0)
	fn, err := s.AttachFunction("ReLUFunction", n.ID)
	require.NoError(t, err)

	s.Nodes.Connect(NodeEnd(n.ID), NodeEnd(other.ID))
	s.Nodes.Connect(NodeEnd(other.ID), NodeEnd(n.ID))
	s.Nodes.Connect(NodeEnd(fn.ID), NodeEnd(third.ID))
	keep := s.Nodes.Connect(NodeEnd(other.ID), NodeEnd(third.ID))

	removed := s.RemoveNode(n.ID)
	assert.Equal(t, []NodeID{n.ID, fn.ID}, removed)

	_, ok := s.Nodes.Get(fn.ID)
	assert.False(t, ok, "attached node is removed")
	assert.Equal(t, []*Connection{keep}, s.Nodes.Connections())
	assert.ElementsMatch(t, []NodeID{n.ID, fn.ID}, sink.removed)
	assert.Nil(t, s.RemoveNode(n.ID), "second removal is a no-op")
}

func TestAttachRejectsChains(t *testing.T) {
	s := newTestScene(t)
	a := mustAdd(t, s, "DenseLayer", 0, 0)
	fn, err := s.AttachFunction("TanhFunction", a.ID)
	require.NoError(t, err)

	_, err = s.AttachFunction("ReLUFunction", fn.ID)
	assert.ErrorIs(t, err, ErrBadAttachment)
	assert.ErrorIs(t, s.Nodes.Attach(a.ID, a.ID), ErrBadAttachment)
	assert.ErrorIs(t, s.Nodes.Attach(a.ID, 42), ErrNodeNotFound)

	// A node that already anchors a function cannot itself be attached.
	b := mustAdd(t, s, "DenseLayer", 300, 0)
	assert.ErrorIs(t, s.Nodes.Attach(a.ID, b.ID), ErrBadAttachment)
	assert.Zero(t, a.AttachedTo)

	_, err = s.AttachFunction("DenseLayer", a.ID)
	assert.ErrorIs(t, err, ErrNotAFunction)
}

func TestConnectionsArePermissive(t *testing.T) {
	s := newTestScene(t)
	a := mustAdd(t, s, "DenseLayer", 0, 0)
	b := mustAdd(t, s, "DenseLayer", 100, 0)

	assert.Equal(t, 1, s.Nodes.ConnectionID())
	c1, err := s.Connect(NodeEnd(a.ID), NodeEnd(b.ID))
	require.NoError(t, err)
	c2, err := s.Connect(NodeEnd(a.ID), NodeEnd(b.ID))
	require.NoError(t, err)
	loop, err := s.Connect(NodeEnd(a.ID), NodeEnd(a.ID))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, []int{c1.ID, c2.ID, loop.ID})
	assert.Equal(t, 4, s.Nodes.ConnectionID())

	_, err = s.Connect(NodeEnd(a.ID), GroupEnd(9))
	assert.ErrorIs(t, err, ErrUnknownEndpoint)

	assert.True(t, s.Nodes.RemoveConnection(c2.ID))
	assert.False(t, s.Nodes.RemoveConnection(c2.ID))
	assert.Len(t, s.Nodes.ConnectionsOf(NodeEnd(a.ID)), 2)
}

func TestClearNotifiesSink(t *testing.T) {
	s := newTestScene(t)
	sink := &recordingSink{}
	s.Nodes.SetSink(sink)
	mustAdd(t, s, "DenseLayer", 0, 0)

	s.Clear()
	assert.Zero(t, s.Nodes.Len())
	assert.Equal(t, 1, sink.cleared)
}

func TestEndpointText(t *testing.T) {
	tests := []struct {
		in   string
		want Endpoint
	}{
		{"3", NodeEnd(3)},
		{" 12 ", NodeEnd(12)},
		{"group-1", GroupEnd(1)},
	}
	for _, tc := range tests {
		got, err := ParseEndpoint(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
	assert.Equal(t, "group-4", GroupEnd(4).String())
	assert.Equal(t, "7", NodeEnd(7).String())

	for _, bad := range []string{"", "x", "group-", "group-a"} {
		_, err := ParseEndpoint(bad)
		assert.Error(t, err, bad)
	}
}
