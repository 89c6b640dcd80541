package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/netcanvas/internal/config"
	"github.com/ha1tch/netcanvas/pkg/canvas"
	"github.com/ha1tch/netcanvas/pkg/scene"
)

func newTestEditor(t *testing.T) *Editor {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(100, 40)
	t.Cleanup(screen.Fini)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Editor.LastDir = dir
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newEditor(screen, cfg, filepath.Join(dir, "config.toml"), logger)
}

func addNode(t *testing.T, ed *Editor, x, y float64) *scene.Node {
	t.Helper()
	n, err := ed.ctl.Scene.Nodes.Add("DenseLayer", x, y)
	require.NoError(t, err)
	return n
}

func key(k tcell.Key) *tcell.EventKey { return tcell.NewEventKey(k, 0, tcell.ModNone) }

func runeKey(r rune) *tcell.EventKey { return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone) }

func mouse(x, y int, b tcell.ButtonMask) *tcell.EventMouse {
	return tcell.NewEventMouse(x, y, b, tcell.ModNone)
}

// click presses and releases the left button on a cell.
func click(ed *Editor, x, y int) {
	ed.handleMouse(mouse(x, y, tcell.Button1))
	ed.handleMouse(mouse(x, y, tcell.ButtonNone))
}

func worldOf(t *testing.T, ed *Editor) (float64, float64) {
	t.Helper()
	nodes := ed.ctl.Scene.Nodes.All()
	require.Len(t, nodes, 1)
	x, y, ok := ed.ctl.Scene.Groups.WorldOf(nodes[0].ID)
	require.True(t, ok)
	return x, y
}

func TestCellMapping(t *testing.T) {
	ed := newTestEditor(t)

	sx, sy := ed.toScreen(2, 3)
	assert.Equal(t, 20.0, sx)
	assert.Equal(t, 56.0, sy)

	x, y := ed.toCell(sx, sy)
	assert.Equal(t, 2, x)
	assert.Equal(t, 3, y)

	x, y = ed.toCell(-1, -1)
	assert.Equal(t, -1, x)
	assert.Equal(t, -1, y)
}

func TestCanvasKeyMapping(t *testing.T) {
	tests := []struct {
		ev   *tcell.EventKey
		want canvas.KeyCode
		ok   bool
	}{
		{key(tcell.KeyLeft), canvas.KeyLeft, true},
		{key(tcell.KeyDown), canvas.KeyDown, true},
		{key(tcell.KeyHome), canvas.KeyHome, true},
		{key(tcell.KeyDelete), canvas.KeyDelete, true},
		{key(tcell.KeyBackspace2), canvas.KeyBackspace, true},
		{runeKey('x'), 0, false},
	}
	for _, tt := range tests {
		k, ok := canvasKey(tt.ev)
		assert.Equal(t, tt.ok, ok, tt.ev.Name())
		if ok {
			assert.Equal(t, tt.want, k.Code, tt.ev.Name())
		}
	}
}

func TestPaletteDropAtCursor(t *testing.T) {
	ed := newTestEditor(t)
	ed.handleMouse(mouse(10, 8, tcell.ButtonNone))

	ed.handleKey(runeKey('a'))
	require.Equal(t, ModePalette, ed.mode)
	ed.paletteSelected = slices.Index(ed.palette, "DenseLayer")
	require.GreaterOrEqual(t, ed.paletteSelected, 0)
	ed.handleKey(key(tcell.KeyEnter))

	assert.Equal(t, ModeCanvas, ed.mode)
	require.Equal(t, 1, ed.ctl.Scene.Nodes.Len())
	r, ok := ed.ctl.Scene.Groups.WorldRect(ed.ctl.Scene.Nodes.All()[0].ID)
	require.True(t, ok)
	sx, sy := ed.toScreen(10, 8)
	assert.InDelta(t, sx, r.Center().X, 1e-9)
	assert.InDelta(t, sy, r.Center().Y, 1e-9)
	assert.True(t, ed.modified)
	assert.Len(t, ed.undoStack, 1)
}

func TestDragIsOneUndoStep(t *testing.T) {
	ed := newTestEditor(t)
	addNode(t, ed, 0, 0)

	ed.handleMouse(mouse(1, 1, tcell.Button1))
	ed.handleMouse(mouse(3, 2, tcell.Button1))
	ed.handleMouse(mouse(6, 3, tcell.Button1))
	ed.handleMouse(mouse(6, 3, tcell.ButtonNone))

	x, y := worldOf(t, ed)
	assert.Equal(t, 40.0, x)
	assert.Equal(t, 32.0, y)
	require.Len(t, ed.undoStack, 1)

	ed.undo()
	x, y = worldOf(t, ed)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)

	ed.redo()
	x, y = worldOf(t, ed)
	assert.Equal(t, 40.0, x)
	assert.Equal(t, 32.0, y)
	assert.Empty(t, ed.redoStack)
}

func TestClickWithoutChangeRecordsNothing(t *testing.T) {
	ed := newTestEditor(t)
	addNode(t, ed, 0, 0)

	click(ed, 1, 1)
	assert.Empty(t, ed.undoStack)
	assert.False(t, ed.modified)
}

func TestUndoKeepsView(t *testing.T) {
	ed := newTestEditor(t)
	addNode(t, ed, 0, 0)
	ed.handleMouse(mouse(1, 1, tcell.Button1))
	ed.handleMouse(mouse(5, 1, tcell.ButtonNone))
	require.Len(t, ed.undoStack, 1)

	ed.ctl.VP.Pan(50, 20)
	ed.undo()
	px, py := ed.ctl.VP.Offset()
	assert.Equal(t, 50.0, px)
	assert.Equal(t, 20.0, py)
}

func TestConnectWithKeyAndClick(t *testing.T) {
	ed := newTestEditor(t)
	addNode(t, ed, 0, 0)
	addNode(t, ed, 300, 0)

	click(ed, 1, 1)
	ed.handleKey(runeKey('c'))
	_, linking := ed.ctl.Linking()
	require.True(t, linking)
	assert.Equal(t, "CONNECT", ed.modeString())

	click(ed, 38, 1)
	_, linking = ed.ctl.Linking()
	assert.False(t, linking)
	assert.Len(t, ed.ctl.Scene.Nodes.Connections(), 1)
	assert.Len(t, ed.undoStack, 1)
}

func TestEscapeCancelsLinkBeforeMenu(t *testing.T) {
	ed := newTestEditor(t)
	addNode(t, ed, 0, 0)
	click(ed, 1, 1)
	ed.handleKey(runeKey('c'))

	ed.handleKey(key(tcell.KeyEscape))
	_, linking := ed.ctl.Linking()
	assert.False(t, linking)
	assert.Equal(t, ModeCanvas, ed.mode)

	ed.handleKey(key(tcell.KeyEscape))
	assert.Equal(t, ModeMenu, ed.mode)
}

func TestRightClickOpensContextMenu(t *testing.T) {
	ed := newTestEditor(t)
	addNode(t, ed, 0, 0)
	addNode(t, ed, 300, 0)

	ed.handleMouse(mouse(20, 10, tcell.Button2))
	ed.handleMouse(mouse(20, 10, tcell.ButtonNone))
	require.Equal(t, ModeContext, ed.mode)
	m, ok := ed.ctl.Menu()
	require.True(t, ok)

	row := slices.IndexFunc(m.Items, func(it canvas.MenuItem) bool { return it.Action == canvas.ActionSelectAll })
	require.GreaterOrEqual(t, row, 0)
	x, y, _, _ := ed.contextBox(m)
	click(ed, x+2, y+1+row)

	assert.Equal(t, ModeCanvas, ed.mode)
	_, ok = ed.ctl.Menu()
	assert.False(t, ok)
	assert.Len(t, ed.ctl.Sel.Selected(), 2)
}

func TestRightDragPans(t *testing.T) {
	ed := newTestEditor(t)

	ed.handleMouse(mouse(20, 10, tcell.Button2))
	ed.handleMouse(mouse(22, 11, tcell.Button2))
	ed.handleMouse(mouse(22, 11, tcell.ButtonNone))

	assert.Equal(t, ModeCanvas, ed.mode)
	px, py := ed.ctl.VP.Offset()
	assert.Equal(t, 16.0, px)
	assert.Equal(t, 16.0, py)
}

func TestContextMenuKeyboardSkipsSeparators(t *testing.T) {
	ed := newTestEditor(t)
	ed.handleKey(runeKey('m'))
	require.Equal(t, ModeContext, ed.mode)
	m, _ := ed.ctl.Menu()

	for range m.Items {
		ed.handleKey(key(tcell.KeyDown))
		assert.False(t, m.Items[ed.contextSelected].Separator())
	}
	ed.handleKey(key(tcell.KeyEscape))
	assert.Equal(t, ModeCanvas, ed.mode)
}

func TestZoomKeys(t *testing.T) {
	ed := newTestEditor(t)
	ed.handleKey(runeKey('+'))
	assert.Equal(t, 110, ed.ctl.VP.Percent())
	ed.handleKey(runeKey('-'))
	ed.handleKey(runeKey('-'))
	assert.Equal(t, 90, ed.ctl.VP.Percent())
	assert.Empty(t, ed.undoStack)
}

func TestSaveAndLoad(t *testing.T) {
	ed := newTestEditor(t)
	addNode(t, ed, 10, 20)
	path := filepath.Join(t.TempDir(), "net.nnc")

	require.NoError(t, ed.saveFile(path))
	assert.Equal(t, path, ed.filename)

	ed.newScene()
	assert.Zero(t, ed.ctl.Scene.Nodes.Len())
	assert.Empty(t, ed.filename)

	require.NoError(t, ed.loadFile(path))
	x, y := worldOf(t, ed)
	assert.Equal(t, 10.0, x)
	assert.Equal(t, 20.0, y)
	assert.False(t, ed.modified)
	assert.Equal(t, path, ed.filename)
}

func TestLoadMissingFileKeepsScene(t *testing.T) {
	ed := newTestEditor(t)
	addNode(t, ed, 0, 0)

	assert.Error(t, ed.loadFile(filepath.Join(t.TempDir(), "missing.json")))
	assert.Equal(t, 1, ed.ctl.Scene.Nodes.Len())
}

func TestQuitAsksWhenModified(t *testing.T) {
	ed := newTestEditor(t)
	assert.True(t, ed.handleKey(runeKey('q')))

	ed.modified = true
	assert.False(t, ed.handleKey(runeKey('q')))
	require.Equal(t, ModeInput, ed.mode)
	ed.handleKey(runeKey('y'))
	assert.True(t, ed.handleKey(key(tcell.KeyEnter)))
}

func TestFilePickerListsScenes(t *testing.T) {
	ed := newTestEditor(t)
	addNode(t, ed, 0, 0)
	require.NoError(t, ed.saveFile(filepath.Join(ed.currentDir, "b.json")))
	require.NoError(t, ed.saveFile(filepath.Join(ed.currentDir, "a.nnc")))
	ed.saveConfig()

	ed.openFilePicker()
	assert.Equal(t, ModeFilePicker, ed.mode)
	assert.Contains(t, ed.fileList, "a.nnc")
	assert.Contains(t, ed.fileList, "b.json")
	assert.NotContains(t, ed.fileList, "config.toml")
	assert.Less(t, slices.Index(ed.fileList, "a.nnc"), slices.Index(ed.fileList, "b.json"))
}

func TestDrawShowsScene(t *testing.T) {
	ed := newTestEditor(t)
	addNode(t, ed, 0, 0)
	ed.draw()
	ed.screen.Show()

	sim := ed.screen.(tcell.SimulationScreen)
	cells, w, h := sim.GetContents()
	var sb strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if r := cells[y*w+x].Runes; len(r) > 0 {
				sb.WriteRune(r[0])
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	out := sb.String()

	assert.Contains(t, out, "Dense")
	assert.Contains(t, out, "Layers (1)")
	assert.Contains(t, out, "Zoom 100%")
	assert.Contains(t, out, "[New]")
}
