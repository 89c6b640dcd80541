package main

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/netcanvas/pkg/canvas"
	"github.com/ha1tch/netcanvas/pkg/connviz"
	"github.com/ha1tch/netcanvas/pkg/layers"
	"github.com/ha1tch/netcanvas/pkg/scene"
)

// Styles
var (
	styleDefault    = tcell.StyleDefault
	styleMenu       = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleMenuSel    = tcell.StyleDefault.Background(tcell.ColorBlue).Foreground(tcell.ColorWhite)
	styleNodeSel    = tcell.StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack)
	styleGroup      = tcell.StyleDefault.Foreground(tcell.ColorSlateGray)
	styleGroupSel   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleEdge       = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleMarquee    = tcell.StyleDefault.Foreground(tcell.ColorFuchsia)
	styleSidebar    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleSidebarH   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleStatus     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleMsgInfo    = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgError   = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorNavy).Bold(true)
	styleMsgSuccess = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgWarning = tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorNavy)
	styleHelp       = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleInput      = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	styleBorder     = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// nodeStyles colours nodes by palette category.
var nodeStyles = map[layers.Category]tcell.Style{
	layers.CategoryInput:    tcell.StyleDefault.Foreground(tcell.ColorGreen),
	layers.CategoryLayer:    tcell.StyleDefault.Foreground(tcell.ColorDodgerBlue),
	layers.CategoryFunction: tcell.StyleDefault.Foreground(tcell.ColorOrange),
	layers.CategoryOutput:   tcell.StyleDefault.Foreground(tcell.ColorPurple),
}

// Status messages flash twice over flashPeriod milliseconds.
const (
	flashPeriod = 500
	flashPhase  = 125
)

// flashInverted reports whether a message shown elapsed ms ago is drawn
// inverted.
func flashInverted(elapsed int64) bool {
	if elapsed < 0 || elapsed >= flashPeriod {
		return false
	}
	phase := elapsed / flashPhase
	return phase == 1 || phase == 3
}

// flashes reports whether messages of type t flash at all.
func flashes(t MessageType) bool {
	return t != MsgInfo
}

func (ed *Editor) draw() {
	ed.screen.Clear()
	w, h := ed.screen.Size()

	ed.drawCanvas(ed.canvasWidth(), h-2)
	ed.drawSidebar(w, h)

	switch ed.mode {
	case ModeMenu:
		ed.drawMenuOverlay(w, h)
	case ModeInput:
		ed.drawInputBox(w, h)
	case ModeFilePicker:
		ed.drawFilePicker(w, h)
	case ModePalette:
		ed.drawPalette(w, h)
	case ModeContext:
		ed.drawContextMenu()
	case ModeHelp:
		ed.drawHelp(w, h)
	}

	ed.drawStatusBar(w, h)
}

// setCell draws one rune if it falls inside the canvas area.
func (ed *Editor) setCell(x, y int, r rune, style tcell.Style, cw, ch int) {
	if x >= 0 && x < cw && y >= 0 && y < ch {
		ed.screen.SetContent(x, y, r, nil, style)
	}
}

func (ed *Editor) clippedString(x, y int, s string, style tcell.Style, cw, ch int) {
	for i, r := range []rune(s) {
		ed.setCell(x+i, y, r, style, cw, ch)
	}
}

// cellRect converts a world rectangle to inclusive cell bounds.
func (ed *Editor) cellRect(r scene.Rect) (x0, y0, x1, y1 int) {
	sx0, sy0 := ed.ctl.VP.WorldToScreen(r.X, r.Y)
	sx1, sy1 := ed.ctl.VP.WorldToScreen(r.Right(), r.Bottom())
	x0, y0 = ed.toCell(sx0, sy0)
	x1, y1 = ed.toCell(sx1, sy1)
	return x0, y0, max(x1, x0), max(y1, y0)
}

func (ed *Editor) drawCanvas(cw, ch int) {
	sc := ed.ctl.Scene
	selGroup, hasSelGroup := sc.Groups.Selected()

	for _, g := range sc.Groups.All() {
		style := styleGroup
		if hasSelGroup && g.ID == selGroup {
			style = styleGroupSel
		}
		x0, y0, x1, y1 := ed.cellRect(g.Rect)
		ed.drawFrame(x0, y0, x1, y1, style, cw, ch, '╭', '╮', '╰', '╯', '┄', '┆')
		marker := "▾"
		if !g.Expanded {
			marker = "▸"
		}
		label := truncate(fmt.Sprintf(" %s %s ", marker, g.Name), max(x1-x0-1, 0))
		ed.clippedString(x0+1, y0, label, style, cw, ch)
	}

	for _, p := range ed.ctl.Viz.Paths() {
		ed.drawPath(p, cw, ch)
	}

	for _, n := range sc.Nodes.All() {
		if n.Hidden {
			continue
		}
		r, ok := sc.Groups.WorldRect(n.ID)
		if !ok {
			continue
		}
		style := styleDefault
		if def, ok := ed.catalog.Lookup(n.Type); ok {
			style = nodeStyles[def.Category]
		}
		if ed.ctl.Sel.IsSelected(n.ID) {
			style = styleNodeSel
		}
		label := layers.DisplayName(n.Type)
		x0, y0, x1, y1 := ed.cellRect(r)
		if n.AttachedTo != 0 || x1-x0 < 4 || y1-y0 < 2 {
			ed.clippedString(x0, y0, "["+label+"]", style, cw, ch)
			continue
		}
		ed.drawFrame(x0, y0, x1, y1, style, cw, ch, '┌', '┐', '└', '┘', '─', '│')
		for y := y0 + 1; y < y1; y++ {
			for x := x0 + 1; x < x1; x++ {
				ed.setCell(x, y, ' ', style, cw, ch)
			}
		}
		words := strings.Fields(label)
		top := y0 + (y1-y0-len(words))/2 + 1
		for i, word := range words {
			word = truncate(word, x1-x0-1)
			ed.clippedString(x0+(x1-x0-len([]rune(word)))/2+1, top+i, word, style, cw, ch)
		}
	}

	if r, ok := ed.ctl.Sel.Marquee(); ok {
		x0, y0, x1, y1 := ed.cellRect(r)
		ed.drawFrame(x0, y0, x1, y1, styleMarquee, cw, ch, '┌', '┐', '└', '┘', '┈', '┊')
	}

	// Divider
	for y := 0; y < ch; y++ {
		ed.screen.SetContent(cw, y, '│', nil, styleBorder)
	}
}

func (ed *Editor) drawFrame(x0, y0, x1, y1 int, style tcell.Style, cw, ch int, tl, tr, bl, br, hz, vt rune) {
	for x := x0 + 1; x < x1; x++ {
		ed.setCell(x, y0, hz, style, cw, ch)
		ed.setCell(x, y1, hz, style, cw, ch)
	}
	for y := y0 + 1; y < y1; y++ {
		ed.setCell(x0, y, vt, style, cw, ch)
		ed.setCell(x1, y, vt, style, cw, ch)
	}
	ed.setCell(x0, y0, tl, style, cw, ch)
	ed.setCell(x1, y0, tr, style, cw, ch)
	ed.setCell(x0, y1, bl, style, cw, ch)
	ed.setCell(x1, y1, br, style, cw, ch)
}

// drawPath plots a connection curve as dots with an arrowhead at its end.
func (ed *Editor) drawPath(p *connviz.Path, cw, ch int) {
	if len(p.Curve) < 2 {
		return
	}
	pts := p.Curve.Sample(32 * max(1, (len(p.Curve)-1)/3))
	for _, pt := range pts[:len(pts)-1] {
		x, y := ed.toCell(pt.X, pt.Y)
		ed.setCell(x, y, '·', styleEdge, cw, ch)
	}
	end := pts[len(pts)-1]
	x, y := ed.toCell(end.X, end.Y)
	ed.setCell(x, y, arrowHead(p.Curve.Tangent(1)), styleEdge, cw, ch)
}

func arrowHead(t connviz.Point) rune {
	if math.Abs(t.X) >= math.Abs(t.Y) {
		if t.X >= 0 {
			return '▶'
		}
		return '◀'
	}
	if t.Y > 0 {
		return '▼'
	}
	return '▲'
}

func (ed *Editor) drawSidebar(w, h int) {
	x := ed.canvasWidth() + 2
	y := 0
	width := ed.sidebarWidth - 3
	line := func(s string, style tcell.Style) bool {
		if y >= h-3 {
			return false
		}
		ed.drawString(x, y, truncate(s, width), style)
		y++
		return true
	}

	sc := ed.ctl.Scene
	line(fmt.Sprintf("Layers (%d)", sc.Nodes.Len()), styleSidebarH)
	for _, n := range sc.Nodes.All() {
		style := styleSidebar
		if ed.ctl.Sel.IsSelected(n.ID) {
			style = styleMenuSel
		}
		label := fmt.Sprintf("%3d %s", n.ID, layers.DisplayName(n.Type))
		if n.AttachedTo != 0 {
			label = fmt.Sprintf("    + %s", layers.DisplayName(n.Type))
		}
		if !line(label, style) {
			return
		}
	}
	y++

	groups := sc.Groups.All()
	if len(groups) > 0 {
		line(fmt.Sprintf("Groups (%d)", len(groups)), styleSidebarH)
		selGroup, hasSel := sc.Groups.Selected()
		for _, g := range groups {
			style := styleSidebar
			if hasSel && g.ID == selGroup {
				style = styleMenuSel
			}
			state := "▾"
			if !g.Expanded {
				state = "▸"
			}
			if !line(fmt.Sprintf("%s %s (%d)", state, g.Name, len(g.Members)), style) {
				return
			}
		}
		y++
	}

	line("View", styleSidebarH)
	line(fmt.Sprintf("Zoom %d%%", ed.ctl.VP.Percent()), styleSidebar)
	line(fmt.Sprintf("Connections %d", len(sc.Nodes.Connections())), styleSidebar)
}

func (ed *Editor) drawStatusBar(w, h int) {
	y := h - 1
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleStatus)
	}

	fileInfo := "[New]"
	if ed.filename != "" {
		fileInfo = ed.filename
		if len(fileInfo) > 30 {
			fileInfo = filepath.Base(fileInfo)
		}
	}
	if ed.modified {
		fileInfo += " *"
	}
	ed.drawString(1, y, fileInfo, styleStatus)

	modeStr := ed.modeString()
	ed.drawString(w/2-len(modeStr)/2, y, modeStr, styleStatus)

	if ed.message != "" {
		style := styleMsgInfo
		switch ed.messageType {
		case MsgError:
			style = styleMsgError
		case MsgSuccess:
			style = styleMsgSuccess
		case MsgWarning:
			style = styleMsgWarning
		}
		if flashes(ed.messageType) && flashInverted(time.Now().UnixMilli()-ed.messageFlashStart) {
			style = style.Reverse(true)
		}
		msg := []rune(ed.message)
		ed.drawString(w-len(msg)-2, y, ed.message, style)
	}

	y = h - 2
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleDefault)
	}
	ed.drawString(1, y, ed.helpString(), styleHelp)
}

func (ed *Editor) drawMenuOverlay(w, h int) {
	menuWidth := 40
	menuHeight := len(ed.menuItems) + 4
	startX := max((w-menuWidth)/2, 0)
	startY := max((h-menuHeight)/2, 0)

	ed.drawTitledBox(startX, startY, menuWidth, menuHeight, "nnedit")
	for i, item := range ed.menuItems {
		style := styleMenu
		if i == ed.menuSelected {
			style = styleMenuSel
		}
		ed.drawString(startX+1, startY+2+i, fmt.Sprintf(" %-*s", menuWidth-3, item), style)
	}
}

func (ed *Editor) drawPalette(w, h int) {
	boxW := 36
	boxH := min(len(ed.palette)+4, h-2)
	boxX := max((w-boxW)/2, 0)
	boxY := max((h-boxH)/2, 0)
	ed.drawTitledBox(boxX, boxY, boxW, boxH, "Add Layer")

	visible := boxH - 4
	first := max(0, ed.paletteSelected-visible+1)
	for i := 0; i < visible && first+i < len(ed.palette); i++ {
		idx := first + i
		name := ed.palette[idx]
		cat := ""
		if def, ok := ed.catalog.Lookup(name); ok {
			cat = string(def.Category)
		}
		style := styleMenu
		if idx == ed.paletteSelected {
			style = styleMenuSel
		}
		ed.drawString(boxX+1, boxY+2+i, fmt.Sprintf(" %-22s %-9s", truncate(layers.DisplayName(name), 22), cat), style)
	}
}

// contextBox returns the cell rectangle of an open context menu, kept on
// screen.
func (ed *Editor) contextBox(m *canvas.Menu) (x, y, w, h int) {
	w = 0
	for _, it := range m.Items {
		w = max(w, len(it.Label))
	}
	w += 4
	h = len(m.Items) + 2
	sw, sh := ed.screen.Size()
	x, y = ed.toCell(m.X, m.Y)
	x = max(0, min(x, sw-w))
	y = max(0, min(y, sh-2-h))
	return x, y, w, h
}

func (ed *Editor) drawContextMenu() {
	m, ok := ed.ctl.Menu()
	if !ok {
		return
	}
	x, y, w, h := ed.contextBox(m)
	ed.drawBox(x, y, w, h, styleDefault)
	for i, it := range m.Items {
		if it.Separator() {
			for c := x + 1; c < x+w-1; c++ {
				ed.screen.SetContent(c, y+1+i, '─', nil, styleBorder)
			}
			continue
		}
		style := styleMenu
		if i == ed.contextSelected {
			style = styleMenuSel
		}
		ed.drawString(x+1, y+1+i, fmt.Sprintf(" %-*s", w-3, it.Label), style)
	}
}

var helpLines = []string{
	"Mouse",
	"  left drag        move layer / group, marquee on empty canvas",
	"  right/middle     pan (right click opens the menu)",
	"  wheel            pan, Ctrl+wheel zooms",
	"Keys",
	"  arrows  pan        + -   zoom       Home  reset view",
	"  a  add layer       c  connect       g  group",
	"  u  ungroup         t  toggle group  r  rename group",
	"  m  menu            l  arrange       e  export image",
	"  p  export PyTorch",
	"  Del  delete        Ctrl+C/V  copy/paste group",
	"  Ctrl+Z/Y  undo/redo   Ctrl+S  save   Ctrl+O  open",
	"  Esc  main menu     q  quit",
}

func (ed *Editor) drawHelp(w, h int) {
	boxW := 66
	boxH := min(len(helpLines)+4, h-2)
	boxX := max((w-boxW)/2, 0)
	boxY := max((h-boxH)/2, 0)
	ed.drawTitledBox(boxX, boxY, boxW, boxH, "Help")
	for i, l := range helpLines {
		if i >= boxH-4 {
			break
		}
		style := styleMenu
		if !strings.HasPrefix(l, " ") {
			style = styleSidebarH
		}
		ed.drawString(boxX+2, boxY+2+i, l, style)
	}
}

func (ed *Editor) drawInputBox(w, h int) {
	boxW := 50
	boxH := 3
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2

	ed.drawBox(boxX, boxY, boxW, boxH, styleInput)
	ed.drawString(boxX+2, boxY+1, ed.inputPrompt, styleInput)
	ed.drawString(boxX+2+len([]rune(ed.inputPrompt)), boxY+1, ed.inputBuffer+"_", styleInput)
}

func (ed *Editor) drawFilePicker(w, h int) {
	boxW := min(60, w-4)
	boxH := min(len(ed.fileList)+5, h-4)
	boxX := max((w-boxW)/2, 0)
	boxY := max((h-boxH)/2, 0)
	ed.drawTitledBox(boxX, boxY, boxW, boxH, "Open")
	ed.drawString(boxX+2, boxY+1, truncate(ed.currentDir, boxW-4), styleHelp)

	visible := boxH - 4
	first := max(0, ed.fileSelected-visible+1)
	for i := 0; i < visible && first+i < len(ed.fileList); i++ {
		idx := first + i
		style := styleMenu
		if idx == ed.fileSelected {
			style = styleMenuSel
		}
		ed.drawString(boxX+1, boxY+2+i, fmt.Sprintf(" %-*s", boxW-3, truncate(ed.fileList[idx], boxW-4)), style)
	}
	if len(ed.fileList) == 0 {
		ed.drawString(boxX+2, boxY+2, "(no scene files)", styleHelp)
	}
}

// drawTitledBox draws a bordered box with optional title.
func (ed *Editor) drawTitledBox(x, y, w, h int, title string) {
	ed.drawBox(x, y, w, h, styleDefault)
	if title != "" {
		titleX := x + (w-len(title)-2)/2
		ed.screen.SetContent(titleX, y, ' ', nil, styleBorder)
		ed.drawString(titleX+1, y, title, styleSidebarH)
		ed.screen.SetContent(titleX+1+len(title), y, ' ', nil, styleBorder)
	}
}

func (ed *Editor) drawBox(x, y, w, h int, style tcell.Style) {
	ed.screen.SetContent(x, y, '┌', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y, '┐', nil, styleBorder)
	ed.screen.SetContent(x, y+h-1, '└', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y+h-1, '┘', nil, styleBorder)

	for i := x + 1; i < x+w-1; i++ {
		ed.screen.SetContent(i, y, '─', nil, styleBorder)
		ed.screen.SetContent(i, y+h-1, '─', nil, styleBorder)
	}
	for i := y + 1; i < y+h-1; i++ {
		ed.screen.SetContent(x, i, '│', nil, styleBorder)
		ed.screen.SetContent(x+w-1, i, '│', nil, styleBorder)
	}
	for row := y + 1; row < y+h-1; row++ {
		for col := x + 1; col < x+w-1; col++ {
			ed.screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

func (ed *Editor) drawString(x, y int, s string, style tcell.Style) {
	for i, r := range []rune(s) {
		ed.screen.SetContent(x+i, y, r, nil, style)
	}
}

func (ed *Editor) modeString() string {
	if ed.ctl.Drag.Active() {
		return "MOVE"
	}
	if _, ok := ed.ctl.Linking(); ok {
		return "CONNECT"
	}
	switch ed.mode {
	case ModeMenu:
		return "MENU"
	case ModeInput:
		return "INPUT"
	case ModeFilePicker:
		return "FILE SELECT"
	case ModePalette:
		return "ADD LAYER"
	case ModeContext:
		return "CONTEXT"
	case ModeHelp:
		return "HELP"
	}
	return ""
}

func (ed *Editor) helpString() string {
	switch ed.mode {
	case ModeMenu, ModeFilePicker, ModePalette, ModeContext:
		return "↑↓:Select  Enter:Confirm  Esc:Cancel"
	case ModeInput:
		return "Type text  Enter:Confirm  Esc:Cancel"
	case ModeHelp:
		return "Any key:Close"
	}
	if _, ok := ed.ctl.Linking(); ok {
		return "Click a layer or group to connect  Esc:Cancel"
	}
	return "a:Add  c:Connect  g:Group  u:Ungroup  t:Toggle  Del:Delete  +/-:Zoom  Home:Reset  ?:Help  Esc:Menu"
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:max(maxLen, 0)])
	}
	return string(r[:maxLen-3]) + "..."
}
