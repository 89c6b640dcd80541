package netfile

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/netcanvas/pkg/layers"
	"github.com/ha1tch/netcanvas/pkg/scene"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newScene() *scene.Scene { return scene.New(layers.Default(), quiet()) }

func add(t *testing.T, sc *scene.Scene, typ string, x, y float64) *scene.Node {
	t.Helper()
	n, err := sc.Nodes.Add(typ, x, y)
	require.NoError(t, err)
	return n
}

func marshal(t *testing.T, sc *scene.Scene) string {
	t.Helper()
	data, err := Marshal(FromScene(sc), false)
	require.NoError(t, err)
	return string(data)
}

func TestSaveLoadIsomorphism(t *testing.T) {
	sc := newScene()
	a := add(t, sc, "ImageInputLayer", 0, 0)
	b := add(t, sc, "DenseLayer", 200, 0)
	c := add(t, sc, "OutputLayer", 400, 50)
	_, err := sc.Connect(scene.NodeEnd(a.ID), scene.NodeEnd(b.ID))
	require.NoError(t, err)
	_, err = sc.Connect(scene.NodeEnd(b.ID), scene.NodeEnd(c.ID))
	require.NoError(t, err)

	saved := marshal(t, sc)
	doc, err := Parse([]byte(saved))
	require.NoError(t, err)

	other := newScene()
	res, err := Load(doc, other, quiet())
	require.NoError(t, err)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, 3, other.Nodes.Len())
	assert.Len(t, other.Nodes.Connections(), 2)
	assert.JSONEq(t, saved, marshal(t, other))
}

func TestGroupedSceneRoundTrip(t *testing.T) {
	sc := newScene()
	a := add(t, sc, "DenseLayer", 0, 0)
	b := add(t, sc, "DenseLayer", 100, 0)
	out := add(t, sc, "OutputLayer", 400, 0)
	_, err := sc.AttachFunction("ReLUFunction", a.ID)
	require.NoError(t, err)
	g, err := sc.Groups.Create([]scene.NodeID{a.ID, b.ID})
	require.NoError(t, err)
	require.NoError(t, sc.Groups.Rename(g.ID, "encoder"))
	_, err = sc.Connect(scene.GroupEnd(g.ID), scene.NodeEnd(out.ID))
	require.NoError(t, err)
	_, err = sc.Groups.Toggle(g.ID)
	require.NoError(t, err)

	saved := marshal(t, sc)
	doc, err := Parse([]byte(saved))
	require.NoError(t, err)
	require.Len(t, doc.Groups, 1)
	assert.False(t, doc.Groups[0].Expanded)
	assert.Equal(t, 224.0, doc.Groups[0].Width, "collapsed groups keep their expanded size")

	other := newScene()
	res, err := Load(doc, other, quiet())
	require.NoError(t, err)
	assert.Zero(t, res.Skipped)

	lg, ok := other.Groups.Get(res.Groups[doc.Groups[0].ID])
	require.True(t, ok)
	assert.Equal(t, "encoder", lg.Name)
	assert.False(t, lg.Expanded)
	assert.Len(t, lg.Members, 3)
	assert.JSONEq(t, saved, marshal(t, other))
}

func TestParseAcceptsStringAndNumberIDs(t *testing.T) {
	src := `{
		"layers": [
			{"id": "7", "type": "DenseLayer", "x": 0, "y": 0, "properties": {"in_features": 4}},
			{"id": 9, "type": "ReLUFunction", "x": 42, "y": -22, "properties": {"attachedTo": "7"}, "groupId": null}
		],
		"connections": [{"id": 1, "sourceId": 7, "targetId": "9"}],
		"groups": []
	}`
	doc, err := Parse([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, Ref("7"), doc.Layers[0].ID)
	assert.Equal(t, Ref("9"), doc.Layers[1].ID)
	assert.Nil(t, doc.Layers[1].GroupID)
	assert.Equal(t, Ref("7"), doc.Connections[0].SourceID)

	sc := newScene()
	res, err := Load(doc, sc, quiet())
	require.NoError(t, err)
	fn, ok := sc.Nodes.Get(res.Nodes["9"])
	require.True(t, ok)
	assert.Equal(t, res.Nodes["7"], fn.AttachedTo)
	dense, _ := sc.Nodes.Get(res.Nodes["7"])
	assert.Equal(t, 4.0, dense.Params["in_features"])
}

func TestLoadNeverBuildsAttachmentChains(t *testing.T) {
	dense := Layer{ID: "1", Type: "DenseLayer"}
	mid := Layer{ID: "2", Type: "ReLUFunction", Properties: map[string]any{AttachedToKey: "1"}}
	tail := Layer{ID: "3", Type: "TanhFunction", Properties: map[string]any{AttachedToKey: "2"}}

	tests := []struct {
		name   string
		layers []Layer
		want   map[Ref]Ref // attached layer to anchor
	}{
		{"anchor first", []Layer{dense, mid, tail}, map[Ref]Ref{"2": "1"}},
		{"tail first", []Layer{dense, tail, mid}, map[Ref]Ref{"3": "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				sc := newScene()
				res, err := Load(&Document{Layers: tt.layers}, sc, quiet())
				require.NoError(t, err)
				assert.Equal(t, 1, res.Skipped)

				got := map[Ref]Ref{}
				for ref, id := range res.Nodes {
					n, _ := sc.Nodes.Get(id)
					for anchorRef, anchorID := range res.Nodes {
						if n.AttachedTo != 0 && n.AttachedTo == anchorID {
							got[ref] = anchorRef
						}
					}
				}
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestRefMarshalsIntegersAsNumbers(t *testing.T) {
	d := &Document{Connections: []Connection{{ID: "3", SourceID: "1", TargetID: "group-2"}}}
	data, err := Marshal(d, false)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":3`)
	assert.Contains(t, string(data), `"sourceId":1`)
	assert.Contains(t, string(data), `"targetId":"group-2"`)
	assert.Contains(t, string(data), `"layers":[]`)
}

func TestUnresolvedConnectionsAreSkipped(t *testing.T) {
	doc := &Document{
		Layers: []Layer{
			{ID: "1", Type: "DenseLayer"},
			{ID: "2", Type: "DenseLayer", X: 200},
		},
		Connections: []Connection{
			{ID: "1", SourceID: "1", TargetID: "2"},
			{ID: "2", SourceID: "1", TargetID: "99"},
			{ID: "3", SourceID: "group-5", TargetID: "2"},
		},
	}
	sc := newScene()
	res, err := Load(doc, sc, quiet())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Len(t, sc.Nodes.Connections(), 1)
}

func TestLoadAbortsOnUnknownType(t *testing.T) {
	sc := newScene()
	add(t, sc, "DenseLayer", 0, 0)

	doc := &Document{Layers: []Layer{
		{ID: "1", Type: "DenseLayer"},
		{ID: "2", Type: "QuantumLayer"},
	}}
	_, err := Load(doc, sc, quiet())
	require.ErrorIs(t, err, ErrInvalidDocument)
	assert.Zero(t, sc.Nodes.Len())
}

func TestLoadAbortsOnDuplicateID(t *testing.T) {
	doc := &Document{Layers: []Layer{
		{ID: "1", Type: "DenseLayer"},
		{ID: "1", Type: "DenseLayer"},
	}}
	sc := newScene()
	_, err := Load(doc, sc, quiet())
	require.ErrorIs(t, err, ErrInvalidDocument)
	assert.Zero(t, sc.Nodes.Len())
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte(`{"layers": [{"id": true}]}`))
	assert.ErrorIs(t, err, ErrInvalidDocument)
	_, err = Parse([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestValidate(t *testing.T) {
	doc := &Document{
		Layers: []Layer{
			{ID: "1", Type: "DenseLayer"},
			{ID: "1", Type: "DenseLayer"},
			{ID: "2", Type: "Mystery"},
			{ID: "3", Type: "ReLUFunction", Properties: map[string]any{AttachedToKey: "8"}},
		},
		Connections: []Connection{{ID: "1", SourceID: "1", TargetID: "4"}},
		Groups: []Group{
			{ID: "group-1", NodeIDs: []Ref{"1", "2"}},
			{ID: "group-2", NodeIDs: []Ref{"2", "5"}},
		},
	}
	probs := Validate(doc, layers.Default())
	var text []string
	for _, p := range probs {
		text = append(text, p.String())
	}
	joined := strings.Join(text, "\n")
	assert.Contains(t, joined, "duplicate id")
	assert.Contains(t, joined, `unknown type "Mystery"`)
	assert.Contains(t, joined, "attached to missing node 8")
	assert.Contains(t, joined, "endpoint 4 does not exist")
	assert.Contains(t, joined, "member 5 does not exist")
	assert.Contains(t, joined, "member 2 already belongs to group-1")

	sc := newScene()
	a := add(t, sc, "DenseLayer", 0, 0)
	b := add(t, sc, "DenseLayer", 100, 0)
	sc.Connect(scene.NodeEnd(a.ID), scene.NodeEnd(b.ID))
	assert.Empty(t, Validate(FromScene(sc), layers.Default()))
}

func TestGenerateDOT(t *testing.T) {
	sc := newScene()
	a := add(t, sc, "DenseLayer", 0, 0)
	b := add(t, sc, "DenseLayer", 100, 0)
	out := add(t, sc, "OutputLayer", 400, 0)
	_, err := sc.AttachFunction("ReLUFunction", a.ID)
	require.NoError(t, err)
	g, err := sc.Groups.Create([]scene.NodeID{a.ID, b.ID})
	require.NoError(t, err)
	sc.Connect(scene.GroupEnd(g.ID), scene.NodeEnd(out.ID))

	dot := GenerateDOT(FromScene(sc), `my "net"`)
	assert.True(t, strings.HasPrefix(dot, "digraph Network {"))
	assert.Contains(t, dot, `label="my \"net\""`)
	assert.Contains(t, dot, "subgraph cluster_0")
	assert.Contains(t, dot, `\n+ ReLU`)
	assert.Contains(t, dot, `"group-1" -> "n3"`)
	assert.NotContains(t, dot, `"n4" [`, "function nodes fold into their anchor")
}

func TestBundleRoundTrip(t *testing.T) {
	sc := newScene()
	a := add(t, sc, "DenseLayer", 0, 0)
	b := add(t, sc, "OutputLayer", 200, 0)
	sc.Connect(scene.NodeEnd(a.ID), scene.NodeEnd(b.ID))

	saved := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, WriteBundle(&buf, FromScene(sc), &Meta{Network: NetworkMeta{Name: "tiny", Saved: saved}}))

	doc, meta, err := ReadBundle(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 1, meta.Network.Version)
	assert.Equal(t, "tiny", meta.Network.Name)
	assert.True(t, saved.Equal(meta.Network.Saved))
	assert.Len(t, doc.Layers, 2)
	assert.Len(t, doc.Connections, 1)
}

func TestReadBundleWithoutScene(t *testing.T) {
	_, _, err := ReadBundle(bytes.NewReader([]byte("nope")), 4)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestFilesDispatchOnExtension(t *testing.T) {
	dir := t.TempDir()
	sc := newScene()
	add(t, sc, "DenseLayer", 10, 20)
	doc := FromScene(sc)

	jsonPath := filepath.Join(dir, "net.json")
	require.NoError(t, WriteFile(jsonPath, doc, &Meta{}))
	raw, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("{")))
	got, meta, err := ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Nil(t, meta)
	assert.Equal(t, 10.0, got.Layers[0].X)

	bundlePath := filepath.Join(dir, "net.NNC")
	require.NoError(t, WriteFile(bundlePath, doc, &Meta{Network: NetworkMeta{Name: "n"}}))
	got, meta, err = ReadFile(bundlePath)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "n", meta.Network.Name)
	assert.Equal(t, 20.0, got.Layers[0].Y)
}
