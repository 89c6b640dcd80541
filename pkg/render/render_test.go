package render

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/netcanvas/pkg/layers"
	"github.com/ha1tch/netcanvas/pkg/netfile"
)

func sample() *netfile.Document {
	gid := netfile.Ref("group-1")
	return &netfile.Document{
		Layers: []netfile.Layer{
			{ID: "1", Type: "ImageInputLayer", X: 0, Y: 0},
			{ID: "2", Type: "DenseLayer", X: 200, Y: 0, GroupID: &gid},
			{ID: "3", Type: "DenseLayer", X: 300, Y: 0, GroupID: &gid},
			{ID: "4", Type: "OutputLayer", X: 500, Y: 0},
			{ID: "5", Type: "ReLUFunction", X: 242, Y: -22, Properties: map[string]any{"attachedTo": "2"}},
		},
		Connections: []netfile.Connection{
			{ID: "1", SourceID: "1", TargetID: "group-1"},
			{ID: "2", SourceID: "group-1", TargetID: "4"},
		},
		Groups: []netfile.Group{{
			ID: "group-1", Name: "dense <block>", X: 170, Y: -60, Width: 224, Height: 154,
			Expanded: true, NodeIDs: []netfile.Ref{"2", "3"},
		}},
	}
}

func TestRenderPNGSize(t *testing.T) {
	var buf bytes.Buffer
	err := RenderPNG(sample(), layers.Default(), &buf, Options{Width: 320, Height: 200, Title: "net"})
	require.NoError(t, err)

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestRenderPNGEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&netfile.Document{}, layers.Default(), &buf, Options{}))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())
}

func TestGenerateSVG(t *testing.T) {
	svg, err := GenerateSVG(sample(), layers.Default(), Options{Title: "a & b"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(svg, `<svg xmlns="http://www.w3.org/2000/svg" width="1200" height="800"`))
	assert.Contains(t, svg, "a &amp; b")
	assert.Contains(t, svg, "dense &lt;block&gt;")
	assert.Contains(t, svg, `class="group expanded"`)
	assert.Contains(t, svg, ">ImageInput Layer<")
	assert.Contains(t, svg, ">ReLU<")
	assert.Equal(t, 2, strings.Count(svg, `marker-end="url(#arrow)"`))
	assert.Equal(t, 5, strings.Count(svg, `rx="4"`))
	assert.Contains(t, svg, "M ")
	assert.Contains(t, svg, " C ")
}

func TestCollapsedGroupHidesMembers(t *testing.T) {
	d := sample()
	d.Groups[0].Expanded = false
	svg, err := GenerateSVG(d, layers.Default(), Options{})
	require.NoError(t, err)
	assert.Contains(t, svg, `class="group collapsed"`)
	assert.NotContains(t, svg, ">Dense Layer<")
}

func TestRenderRejectsInvalidDocument(t *testing.T) {
	d := &netfile.Document{Layers: []netfile.Layer{{ID: "1", Type: "Mystery"}}}
	_, err := GenerateSVG(d, layers.Default(), Options{})
	assert.ErrorIs(t, err, netfile.ErrInvalidDocument)

	var buf bytes.Buffer
	assert.Error(t, RenderPNG(d, layers.Default(), &buf, Options{}))
}

func TestNum(t *testing.T) {
	assert.Equal(t, "10", num(10))
	assert.Equal(t, "2.5", num(2.5))
	assert.Equal(t, "-0.33", num(-1.0/3))
}
