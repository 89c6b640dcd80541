package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/netcanvas/pkg/canvas"
	"github.com/ha1tch/netcanvas/pkg/scene"
)

// toScreen maps the centre of cell (x, y) to canvas screen units.
func (ed *Editor) toScreen(x, y int) (float64, float64) {
	cw, ch := float64(ed.cfg.Editor.CellWidth), float64(ed.cfg.Editor.CellHeight)
	return (float64(x) + 0.5) * cw, (float64(y) + 0.5) * ch
}

// toCell maps canvas screen units to a cell.
func (ed *Editor) toCell(sx, sy float64) (int, int) {
	cw, ch := float64(ed.cfg.Editor.CellWidth), float64(ed.cfg.Editor.CellHeight)
	return floorDiv(sx, cw), floorDiv(sy, ch)
}

func floorDiv(v, d float64) int {
	q := int(v / d)
	if v < 0 && float64(q)*d != v {
		q--
	}
	return q
}

func mods(m tcell.ModMask) canvas.Mods {
	var out canvas.Mods
	if m&tcell.ModShift != 0 {
		out |= canvas.ModShift
	}
	if m&tcell.ModCtrl != 0 {
		out |= canvas.ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		out |= canvas.ModAlt
	}
	if m&tcell.ModMeta != 0 {
		out |= canvas.ModMeta
	}
	return out
}

// canvasWidth is the number of cells left of the sidebar.
func (ed *Editor) canvasWidth() int {
	w, _ := ed.screen.Size()
	return w - ed.sidebarWidth
}

func (ed *Editor) handleKey(ev *tcell.EventKey) bool {
	// Global shortcuts. Some terminals report Cmd as Meta+rune.
	mod := ev.Modifiers()
	isCtrlOrCmd := func(key tcell.Key, r rune) bool {
		return ev.Key() == key || (mod&(tcell.ModMeta|tcell.ModAlt) != 0 && ev.Rune() == r)
	}

	if ed.mode == ModeCanvas {
		switch {
		case isCtrlOrCmd(tcell.KeyCtrlS, 's'):
			ed.save()
			return false
		case isCtrlOrCmd(tcell.KeyCtrlO, 'o'):
			ed.openFilePicker()
			return false
		case isCtrlOrCmd(tcell.KeyCtrlZ, 'z'):
			ed.undo()
			return false
		case isCtrlOrCmd(tcell.KeyCtrlY, 'y'):
			ed.redo()
			return false
		case isCtrlOrCmd(tcell.KeyCtrlC, 'c'):
			if err := ed.ctl.Copy(); err != nil {
				ed.showMessage("Select a group to copy", MsgWarning)
			} else {
				ed.showMessage("Group copied", MsgInfo)
			}
			return false
		case isCtrlOrCmd(tcell.KeyCtrlV, 'v'):
			var err error
			ed.edit(func() { _, err = ed.ctl.Paste() })
			if err != nil {
				ed.showMessage("Error: "+err.Error(), MsgError)
			}
			return false
		case isCtrlOrCmd(tcell.KeyCtrlA, 'a'):
			ed.ctl.Key(canvas.Key{Code: canvas.KeyRune, Rune: 'a', Mods: canvas.ModCtrl})
			return false
		}
	}

	switch ed.mode {
	case ModeMenu:
		return ed.handleMenuKey(ev)
	case ModeCanvas:
		return ed.handleCanvasKey(ev)
	case ModeInput:
		return ed.handleInputKey(ev)
	case ModeFilePicker:
		ed.handleFilePickerKey(ev)
	case ModePalette:
		ed.handlePaletteKey(ev)
	case ModeContext:
		ed.handleContextKey(ev)
	case ModeHelp:
		ed.mode = ModeCanvas
	}
	return false
}

func (ed *Editor) handleMenuKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyUp:
		if ed.menuSelected > 0 {
			ed.menuSelected--
		}
	case tcell.KeyDown:
		if ed.menuSelected < len(ed.menuItems)-1 {
			ed.menuSelected++
		}
	case tcell.KeyEnter:
		return ed.executeMenuItem()
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
	}
	return false
}

func (ed *Editor) executeMenuItem() bool {
	switch item := ed.menuItems[ed.menuSelected]; item {
	case "New Scene":
		ed.newScene()
	case "Open File":
		ed.openFilePicker()
	case "Save":
		ed.mode = ModeCanvas
		ed.save()
	case "Save As":
		ed.saveAs()
	case "Edit Canvas":
		ed.mode = ModeCanvas
	case "Export Image":
		ed.mode = ModeCanvas
		ed.exportImage()
	case "Export PyTorch":
		ed.mode = ModeCanvas
		ed.exportPyTorch()
	case "Quit":
		return ed.quit()
	default:
		ed.toggleFileType()
	}
	return false
}

func (ed *Editor) handleCanvasKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyEscape {
		if _, ok := ed.ctl.Linking(); ok {
			ed.ctl.Key(canvas.Key{Code: canvas.KeyEscape})
			ed.showMessage("Connection cancelled", MsgInfo)
		} else {
			ed.mode = ModeMenu
		}
		return false
	}
	if k, ok := canvasKey(ev); ok {
		var consumed bool
		ed.edit(func() { consumed = ed.ctl.Key(k) })
		if consumed {
			return false
		}
	}
	if ev.Key() != tcell.KeyRune {
		return false
	}

	switch ev.Rune() {
	case '+', '=':
		ed.zoomAtCursor(ed.cfg.Viewport.ZoomStep)
	case '-', '_':
		ed.zoomAtCursor(-ed.cfg.Viewport.ZoomStep)
	case 'a':
		ed.mode = ModePalette
	case 'c':
		ed.beginLink()
	case 'g':
		var err error
		ed.edit(func() { _, err = ed.ctl.GroupSelection() })
		if err != nil {
			ed.showMessage("Error: "+err.Error(), MsgError)
		} else {
			ed.showMessage("Group created", MsgSuccess)
		}
	case 'u':
		var n int
		ed.edit(func() { n = ed.ctl.Ungroup() })
		ed.showMessage(fmt.Sprintf("%d group(s) dissolved", n), MsgInfo)
	case 't':
		ed.edit(func() { ed.ctl.MenuAction(canvas.ActionToggle) })
	case 'r':
		ed.renameGroup()
	case 'l':
		var n int
		if ed.edit(func() { n = ed.ctl.Arrange() }) {
			ed.showMessage(fmt.Sprintf("Arranged %d item(s)", n), MsgSuccess)
		}
	case 'm':
		sx, sy := ed.toScreen(ed.cursorX, ed.cursorY)
		ed.ctl.OpenMenu(sx, sy)
		ed.contextSelected = 0
		ed.mode = ModeContext
	case 'e':
		ed.exportImage()
	case 'p':
		ed.exportPyTorch()
	case '?':
		ed.mode = ModeHelp
	case 'q':
		return ed.quit()
	}
	return false
}

// canvasKey translates the keys the controller understands.
func canvasKey(ev *tcell.EventKey) (canvas.Key, bool) {
	k := canvas.Key{Mods: mods(ev.Modifiers())}
	switch ev.Key() {
	case tcell.KeyLeft:
		k.Code = canvas.KeyLeft
	case tcell.KeyRight:
		k.Code = canvas.KeyRight
	case tcell.KeyUp:
		k.Code = canvas.KeyUp
	case tcell.KeyDown:
		k.Code = canvas.KeyDown
	case tcell.KeyHome:
		k.Code = canvas.KeyHome
	case tcell.KeyDelete:
		k.Code = canvas.KeyDelete
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		k.Code = canvas.KeyBackspace
	default:
		return k, false
	}
	return k, true
}

func (ed *Editor) zoomAtCursor(delta float64) {
	sx, sy := ed.toScreen(ed.cursorX, ed.cursorY)
	if ed.ctl.VP.Zoom(delta, sx, sy) {
		ed.ctl.Viz.UpdateAllConnections()
	}
}

// beginLink arms a connection from the selected group or the single
// selected node.
func (ed *Editor) beginLink() {
	if g, ok := ed.ctl.Scene.Groups.Selected(); ok {
		ed.ctl.BeginLink(scene.GroupEnd(g))
	} else if sel := ed.ctl.Sel.Selected(); len(sel) == 1 {
		ed.ctl.BeginLink(scene.NodeEnd(sel[0]))
	} else {
		ed.showMessage("Select one layer or group to connect from", MsgWarning)
		return
	}
	ed.showMessage("Click the target layer or group", MsgInfo)
}

func (ed *Editor) renameGroup() {
	g, ok := ed.ctl.Scene.Groups.Selected()
	if !ok {
		ed.showMessage("Select a group to rename", MsgWarning)
		return
	}
	ed.prompt("Group name: ", func(s string) {
		ed.mode = ModeCanvas
		if s == "" {
			return
		}
		var err error
		ed.edit(func() { err = ed.ctl.Scene.Groups.Rename(g, s) })
		if err != nil {
			ed.showMessage("Error: "+err.Error(), MsgError)
		}
	})
}

func (ed *Editor) handleInputKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
	case tcell.KeyEnter:
		if ed.inputAction != nil {
			ed.inputAction(ed.inputBuffer)
		}
		ed.inputBuffer = ""
		return ed.quitting
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if r := []rune(ed.inputBuffer); len(r) > 0 {
			ed.inputBuffer = string(r[:len(r)-1])
		}
	case tcell.KeyRune:
		ed.inputBuffer += string(ev.Rune())
	}
	return false
}

func (ed *Editor) handleFilePickerKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
	case tcell.KeyUp:
		if ed.fileSelected > 0 {
			ed.fileSelected--
		}
	case tcell.KeyDown:
		if ed.fileSelected < len(ed.fileList)-1 {
			ed.fileSelected++
		}
	case tcell.KeyEnter:
		ed.pickFile()
	}
}

func (ed *Editor) handlePaletteKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
	case tcell.KeyUp:
		if ed.paletteSelected > 0 {
			ed.paletteSelected--
		}
	case tcell.KeyDown:
		if ed.paletteSelected < len(ed.palette)-1 {
			ed.paletteSelected++
		}
	case tcell.KeyEnter:
		ed.mode = ModeCanvas
		ed.dropAtCursor(ed.palette[ed.paletteSelected])
	}
}

// dropAtCursor places typ under the pointer.
func (ed *Editor) dropAtCursor(typ string) {
	sx, sy := ed.toScreen(ed.cursorX, ed.cursorY)
	var err error
	ed.edit(func() { _, err = ed.ctl.Drop(typ, sx, sy) })
	if err != nil {
		ed.showMessage("Error: "+err.Error(), MsgError)
	}
}

func (ed *Editor) handleContextKey(ev *tcell.EventKey) {
	m, ok := ed.ctl.Menu()
	if !ok {
		ed.mode = ModeCanvas
		return
	}
	step := func(d int) {
		for i := ed.contextSelected + d; i >= 0 && i < len(m.Items); i += d {
			if !m.Items[i].Separator() {
				ed.contextSelected = i
				return
			}
		}
	}
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.ctl.CloseMenu()
		ed.mode = ModeCanvas
	case tcell.KeyUp:
		step(-1)
	case tcell.KeyDown:
		step(1)
	case tcell.KeyEnter:
		ed.runMenuAction(m.Items[ed.contextSelected].Action)
	}
}

func (ed *Editor) runMenuAction(a canvas.Action) {
	var err error
	ed.edit(func() { err = ed.ctl.MenuAction(a) })
	ed.mode = ModeCanvas
	if err != nil {
		ed.showMessage("Error: "+err.Error(), MsgError)
	}
}

func (ed *Editor) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	buttons := ev.Buttons()
	if x < ed.canvasWidth() {
		ed.cursorX, ed.cursorY = x, y
	}
	sx, sy := ed.toScreen(x, y)

	if wheel := buttons & (tcell.WheelUp | tcell.WheelDown | tcell.WheelLeft | tcell.WheelRight); wheel != 0 {
		if ed.mode == ModeCanvas {
			ed.wheel(sx, sy, wheel, ev.Modifiers())
		}
		return
	}

	prev := ed.buttons
	ed.buttons = buttons & (tcell.Button1 | tcell.Button2 | tcell.Button3)
	pressed := ed.buttons &^ prev
	released := prev &^ ed.buttons

	switch ed.mode {
	case ModeCanvas:
	case ModeContext:
		if pressed&tcell.Button1 != 0 {
			ed.clickContextMenu(x, y)
		}
		return
	default:
		return
	}

	// Pointer released outside the canvas ends whatever was in progress.
	if x >= ed.canvasWidth() {
		if prev != 0 {
			ed.ctl.Release()
			ed.endGesture()
		}
		return
	}

	switch {
	case pressed&tcell.Button1 != 0:
		ed.pending = ed.snapshot()
		ed.ctl.PointerDown(sx, sy, canvas.ButtonLeft, mods(ev.Modifiers()))
	case pressed&tcell.Button2 != 0:
		ed.rightDownX, ed.rightDownY = x, y
		ed.rightMoved = false
		ed.ctl.PointerDown(sx, sy, canvas.ButtonRight, mods(ev.Modifiers()))
	case pressed&tcell.Button3 != 0:
		ed.ctl.PointerDown(sx, sy, canvas.ButtonMiddle, mods(ev.Modifiers()))
	case released&tcell.Button1 != 0:
		ed.ctl.PointerUp(sx, sy, canvas.ButtonLeft)
		ed.endGesture()
	case released&tcell.Button2 != 0:
		ed.ctl.PointerUp(sx, sy, canvas.ButtonRight)
		if !ed.rightMoved {
			ed.ctl.OpenMenu(sx, sy)
			ed.contextSelected = 0
			ed.mode = ModeContext
		}
	case released&tcell.Button3 != 0:
		ed.ctl.PointerUp(sx, sy, canvas.ButtonMiddle)
	case ed.buttons != 0:
		if x != ed.rightDownX || y != ed.rightDownY {
			ed.rightMoved = true
		}
		ed.ctl.PointerMove(sx, sy)
	}
}

// endGesture records the finished pointer gesture as an undo step.
func (ed *Editor) endGesture() {
	if ed.pending != nil {
		ed.commit(ed.pending)
		ed.pending = nil
	}
}

// wheel turns tcell's wheel buttons into line-mode deltas.
func (ed *Editor) wheel(sx, sy float64, wheel tcell.ButtonMask, m tcell.ModMask) {
	const line = 100
	var dx, dy float64
	switch {
	case wheel&tcell.WheelUp != 0:
		dy = -line
	case wheel&tcell.WheelDown != 0:
		dy = line
	case wheel&tcell.WheelLeft != 0:
		dx = -line
	case wheel&tcell.WheelRight != 0:
		dx = line
	}
	ed.ctl.Wheel(sx, sy, dx, dy, mods(m))
}

// clickContextMenu runs the item under (x, y) or closes the menu when the
// click falls outside it.
func (ed *Editor) clickContextMenu(x, y int) {
	m, ok := ed.ctl.Menu()
	if !ok {
		ed.mode = ModeCanvas
		return
	}
	mx, my, w, _ := ed.contextBox(m)
	row := y - my - 1
	if x > mx && x < mx+w-1 && row >= 0 && row < len(m.Items) {
		if item := m.Items[row]; !item.Separator() {
			ed.runMenuAction(item.Action)
		}
		return
	}
	ed.ctl.CloseMenu()
	ed.mode = ModeCanvas
}
