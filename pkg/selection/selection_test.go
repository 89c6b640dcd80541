package selection

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/netcanvas/pkg/layers"
	"github.com/ha1tch/netcanvas/pkg/scene"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func setup(t *testing.T) (*Manager, *scene.Scene, *fakeClock) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := scene.New(layers.Default(), log)
	for _, x := range []float64{0, 100, 300} {
		_, err := s.Nodes.Add("DenseLayer", x, 0)
		require.NoError(t, err)
	}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	m := New(s, log)
	m.SetClock(clk.now)
	return m, s, clk
}

func TestClickNodeReplacesSelection(t *testing.T) {
	m, _, _ := setup(t)
	assert.Equal(t, Empty, m.State())

	m.ClickNode(1, false)
	assert.Equal(t, Single, m.State())
	m.ClickNode(2, false)
	assert.Equal(t, []scene.NodeID{2}, m.Selected())

	m.ClickNode(1, true)
	assert.Equal(t, Multi, m.State())
	assert.Equal(t, []scene.NodeID{1, 2}, m.Selected())
	assert.True(t, m.IsSelected(1))
	assert.False(t, m.IsSelected(3))
}

func TestClickEmptyClears(t *testing.T) {
	m, _, _ := setup(t)
	m.ClickNode(1, false)
	m.ClickNode(2, true)

	assert.True(t, m.ClickEmpty())
	assert.Equal(t, Empty, m.State())
	assert.False(t, m.HasSelection())
}

func TestMarqueeSelectsIntersectingNodes(t *testing.T) {
	m, _, _ := setup(t)
	m.ClickNode(3, false)

	m.BeginMarquee(-10, -10)
	assert.Equal(t, MarqueeActive, m.State())
	assert.True(t, m.IsSelected(3), "selection survives until the marquee ends")
	m.UpdateMarquee(110, 20)

	r, ok := m.Marquee()
	require.True(t, ok)
	assert.Equal(t, scene.Rect{X: -10, Y: -10, W: 120, H: 30}, r)

	assert.Equal(t, 2, m.EndMarquee())
	assert.Equal(t, Multi, m.State())
	assert.Equal(t, []scene.NodeID{1, 2}, m.Selected())
}

func TestMarqueeDraggedBackwards(t *testing.T) {
	m, _, _ := setup(t)
	m.BeginMarquee(400, 100)
	m.UpdateMarquee(290, 50)
	assert.Equal(t, 1, m.EndMarquee())
	assert.Equal(t, Single, m.State())
}

func TestEmptyMarqueeClears(t *testing.T) {
	m, _, clk := setup(t)
	m.ClickNode(1, false)
	m.BeginMarquee(1000, 1000)
	m.UpdateMarquee(1200, 1200)
	assert.Zero(t, m.EndMarquee())
	assert.Equal(t, Empty, m.State())

	m.ClickNode(1, false)
	clk.advance(time.Millisecond)
	assert.True(t, m.ClickEmpty(), "an empty marquee does not suppress clicks")
}

func TestClickSuppressedAfterMarquee(t *testing.T) {
	m, _, clk := setup(t)
	m.BeginMarquee(-10, -10)
	m.UpdateMarquee(500, 100)
	require.Equal(t, 3, m.EndMarquee())

	clk.advance(150 * time.Millisecond)
	assert.False(t, m.ClickEmpty())
	assert.Len(t, m.Selected(), 3)

	clk.advance(50 * time.Millisecond)
	assert.True(t, m.ClickEmpty())
	assert.Equal(t, Empty, m.State())
}

func TestMarqueeSkipsHiddenNodes(t *testing.T) {
	m, s, _ := setup(t)
	g, err := s.Groups.Create([]scene.NodeID{1, 2})
	require.NoError(t, err)
	_, err = s.Groups.Toggle(g.ID)
	require.NoError(t, err)

	m.BeginMarquee(-1000, -1000)
	m.UpdateMarquee(1000, 1000)
	assert.Equal(t, 1, m.EndMarquee())
	assert.Equal(t, []scene.NodeID{3}, m.Selected())

	m.SelectAll()
	assert.Equal(t, []scene.NodeID{3}, m.Selected())
}

func TestCancelMarquee(t *testing.T) {
	m, _, _ := setup(t)
	m.ClickNode(2, false)
	m.BeginMarquee(0, 0)
	m.UpdateMarquee(500, 500)
	m.CancelMarquee()

	assert.Equal(t, Single, m.State())
	assert.Equal(t, []scene.NodeID{2}, m.Selected())
	assert.Zero(t, m.EndMarquee())
	_, ok := m.Marquee()
	assert.False(t, ok)
}

func TestAddRemove(t *testing.T) {
	m, _, _ := setup(t)
	m.Add(1, 2, 3)
	m.Remove(2)
	assert.Equal(t, []scene.NodeID{1, 3}, m.Selected())
	m.Clear()
	assert.False(t, m.HasSelection())
}
