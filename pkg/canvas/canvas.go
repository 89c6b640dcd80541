// Package canvas routes pointer, wheel and keyboard input to the scene,
// selection, drag and connection components, and resynchronises the
// connection paths after every event.
package canvas

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/ha1tch/netcanvas/pkg/connviz"
	"github.com/ha1tch/netcanvas/pkg/drag"
	"github.com/ha1tch/netcanvas/pkg/layers"
	"github.com/ha1tch/netcanvas/pkg/layout"
	"github.com/ha1tch/netcanvas/pkg/netfile"
	"github.com/ha1tch/netcanvas/pkg/scene"
	"github.com/ha1tch/netcanvas/pkg/selection"
	"github.com/ha1tch/netcanvas/pkg/viewport"
)

// DefaultPanStep is how far an arrow key pans, in screen units.
const DefaultPanStep = 20

// ErrNothingToDrop is returned when a function type is dropped where there
// is no node to attach it to.
var ErrNothingToDrop = errors.New("function must be dropped onto a node")

type gesture int

const (
	gestureNone gesture = iota
	gesturePan
	gestureMarquee
	gesturePress
)

// Controller owns one scene and everything that views or edits it.
type Controller struct {
	VP    *viewport.Viewport
	Scene *scene.Scene
	Sel   *selection.Manager
	Drag  *drag.Engine
	Viz   *connviz.Visualizer

	// PanStep is the arrow-key pan distance.
	PanStep float64

	log     *slog.Logger
	gesture gesture
	lastX   float64
	lastY   float64
	moved   bool
	pressed scene.NodeID // already-selected node pressed without a modifier
	menu    *Menu
	linking *scene.Endpoint
}

// New wires a controller around vp and sc. The visualizer is created here
// and registered as the scene's connection sink.
func New(vp *viewport.Viewport, sc *scene.Scene, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	viz := connviz.New(vp, sc, logger)
	sel := selection.New(sc, logger)
	return &Controller{
		VP:      vp,
		Scene:   sc,
		Sel:     sel,
		Drag:    drag.New(vp, sc, sel, viz, logger),
		Viz:     viz,
		PanStep: DefaultPanStep,
		log:     logger,
	}
}

func (c *Controller) sync() { c.Viz.UpdateAllConnections() }

// PointerDown handles a button press at screen point (sx, sy). Hit testing
// runs from the top down: group resize handles, then nodes, then groups,
// then empty canvas.
func (c *Controller) PointerDown(sx, sy float64, b Button, mods Mods) {
	defer c.sync()
	if c.gesture != gestureNone || c.Drag.Active() {
		c.log.Debug("pointer down ignored", "reason", "gesture in progress")
		return
	}
	c.menu = nil
	c.lastX, c.lastY = sx, sy
	c.moved = false
	c.pressed = 0

	if b != ButtonLeft {
		c.gesture = gesturePan
		return
	}

	wx, wy := c.VP.ScreenToWorld(sx, sy)

	if g, h, ok := c.handleAt(wx, wy); ok {
		c.Sel.Clear()
		c.Scene.Groups.Select(g)
		c.Drag.BeginResize(g, h, sx, sy)
		return
	}

	if n, ok := c.Scene.NodeAt(wx, wy); ok {
		if c.finishLink(scene.NodeEnd(n.ID)) {
			return
		}
		c.Scene.Groups.Deselect()
		switch {
		case mods.Has(ModShift) || mods.command():
			c.Sel.ClickNode(n.ID, true)
		case !c.Sel.IsSelected(n.ID):
			c.Sel.ClickNode(n.ID, false)
		default:
			// Keep the selection so it can be dragged; a release without
			// movement narrows it to this node.
			c.pressed = n.ID
		}
		c.Drag.BeginNode(n.ID, sx, sy)
		return
	}

	if g, ok := c.Scene.Groups.At(wx, wy); ok {
		if c.finishLink(scene.GroupEnd(g.ID)) {
			return
		}
		c.Sel.Clear()
		c.Scene.Groups.Select(g.ID)
		if !g.Expanded || wy < g.Rect.Y+scene.HeaderHeight {
			c.Drag.BeginGroup(g.ID, sx, sy)
		} else {
			c.gesture = gesturePress
		}
		return
	}

	if c.linking != nil {
		c.log.Debug("connection cancelled", "from", *c.linking)
		c.linking = nil
	}
	c.Scene.Groups.Deselect()
	c.Sel.BeginMarquee(wx, wy)
	c.gesture = gestureMarquee
}

// PointerMove continues whatever the last press started. It reports
// whether the view or the scene changed.
func (c *Controller) PointerMove(sx, sy float64) bool {
	if sx == c.lastX && sy == c.lastY {
		return false
	}
	dx, dy := sx-c.lastX, sy-c.lastY
	c.lastX, c.lastY = sx, sy
	c.moved = true

	switch {
	case c.Drag.Active():
		return c.Drag.Move(sx, sy)
	case c.gesture == gesturePan:
		c.VP.Pan(dx, dy)
	case c.gesture == gestureMarquee:
		c.Sel.UpdateMarquee(c.VP.ScreenToWorld(sx, sy))
		return true
	default:
		return false
	}
	c.sync()
	return true
}

// PointerUp ends the current gesture. A marquee that never moved counts as
// a click on empty canvas, and a node press that never moved selects only
// that node.
func (c *Controller) PointerUp(sx, sy float64, b Button) {
	defer c.sync()
	c.PointerMove(sx, sy)

	switch {
	case c.Drag.Active():
		c.Drag.End()
	case c.gesture == gestureMarquee:
		if c.moved {
			c.Sel.EndMarquee()
		} else {
			c.Sel.CancelMarquee()
			c.Sel.ClickEmpty()
		}
	}
	if !c.moved && c.pressed != 0 {
		c.Sel.ClickNode(c.pressed, false)
	}
	c.gesture = gestureNone
	c.pressed = 0
}

// Release abandons any gesture without a matching PointerUp, as when the
// pointer is released outside the canvas. Positions already written stay.
func (c *Controller) Release() {
	c.Drag.End()
	c.Sel.CancelMarquee()
	c.gesture = gestureNone
	c.pressed = 0
	c.sync()
}

// Wheel zooms at the pointer when the command modifier is held and pans by
// the wheel deltas otherwise.
func (c *Controller) Wheel(sx, sy, dx, dy float64, mods Mods) bool {
	defer c.sync()
	if mods.command() {
		delta := -dy * wheelZoomFactor
		if math.Abs(dy) == lineDelta {
			delta *= lineZoomDamping
		}
		return c.VP.Zoom(delta, sx, sy)
	}
	if dx == 0 && dy == 0 {
		return false
	}
	c.VP.Pan(-dx, -dy)
	return true
}

// Key handles a key press and reports whether it was consumed.
func (c *Controller) Key(k Key) bool {
	defer c.sync()
	switch k.Code {
	case KeyLeft:
		c.VP.Pan(c.PanStep, 0)
	case KeyRight:
		c.VP.Pan(-c.PanStep, 0)
	case KeyUp:
		c.VP.Pan(0, c.PanStep)
	case KeyDown:
		c.VP.Pan(0, -c.PanStep)
	case KeyHome:
		c.VP.Reset()
	case KeyDelete, KeyBackspace:
		return c.DeleteSelection() > 0
	case KeyEscape:
		c.menu = nil
		c.linking = nil
		if c.gesture == gestureMarquee {
			c.Sel.CancelMarquee()
			c.gesture = gestureNone
		}
	case KeyRune:
		if !k.Mods.command() {
			return false
		}
		switch k.Rune {
		case 'c', 'C':
			return c.Copy() == nil
		case 'v', 'V':
			_, err := c.Paste()
			return err == nil
		case 'a', 'A':
			c.Scene.Groups.Deselect()
			c.Sel.SelectAll()
		default:
			return false
		}
	default:
		return false
	}
	return true
}

// Drop places a node of type typ centred on screen point (sx, sy). A
// function type is instead attached to the node under the point, or to
// that node's anchor when the point is over an attached node.
func (c *Controller) Drop(typ string, sx, sy float64) (*scene.Node, error) {
	defer c.sync()
	def, ok := c.Scene.Nodes.Catalog().Lookup(typ)
	if !ok {
		return nil, fmt.Errorf("%w: %q", scene.ErrUnknownType, typ)
	}
	wx, wy := c.VP.ScreenToWorld(sx, sy)

	if def.IsFunction() {
		target, ok := c.Scene.NodeAt(wx, wy)
		if !ok {
			return nil, ErrNothingToDrop
		}
		anchor := target.ID
		if target.AttachedTo != 0 {
			anchor = target.AttachedTo
		}
		return c.Scene.AttachFunction(typ, anchor)
	}

	ox, oy := def.DropOffset()
	n, err := c.Scene.Nodes.Add(typ, wx-ox, wy-oy)
	if err != nil {
		return nil, err
	}
	c.Scene.Groups.Deselect()
	c.Sel.ClickNode(n.ID, false)
	return n, nil
}

// Connect adds an edge between two existing endpoints.
func (c *Controller) Connect(src, dst scene.Endpoint) (*scene.Connection, error) {
	defer c.sync()
	return c.Scene.Connect(src, dst)
}

// BeginLink arms a connection from src; the next node or group pressed
// becomes its target. Pressing empty canvas or Escape disarms it.
func (c *Controller) BeginLink(src scene.Endpoint) {
	c.linking = &src
}

// Linking returns the armed connection source, if any.
func (c *Controller) Linking() (scene.Endpoint, bool) {
	if c.linking == nil {
		return scene.Endpoint{}, false
	}
	return *c.linking, true
}

func (c *Controller) finishLink(dst scene.Endpoint) bool {
	if c.linking == nil {
		return false
	}
	src := *c.linking
	c.linking = nil
	if _, err := c.Scene.Connect(src, dst); err != nil {
		c.log.Debug("connection refused", "source", src, "target", dst, "err", err)
	}
	return true
}

// GroupSelection groups the selected nodes and selects the new group.
func (c *Controller) GroupSelection() (*scene.Group, error) {
	g, err := c.Scene.Groups.Create(c.Sel.Selected())
	if err != nil {
		return nil, err
	}
	c.Sel.Clear()
	c.Scene.Groups.Select(g.ID)
	c.sync()
	return g, nil
}

// Ungroup dissolves the selected group, or else every group that holds a
// selected node. It returns the number of groups dissolved.
func (c *Controller) Ungroup() int {
	var ids []scene.GroupID
	if g, ok := c.Scene.Groups.Selected(); ok {
		ids = append(ids, g)
	} else {
		seen := make(map[scene.GroupID]bool)
		for _, n := range c.Sel.Selected() {
			if g, ok := c.Scene.Groups.Of(n); ok && !seen[g.ID] {
				seen[g.ID] = true
				ids = append(ids, g.ID)
			}
		}
	}
	done := 0
	for _, id := range ids {
		if err := c.Scene.Groups.Delete(id); err == nil {
			done++
		}
	}
	c.sync()
	return done
}

// DeleteSelection removes the selected group with its members, or else
// the selected nodes. It returns how many nodes were removed.
func (c *Controller) DeleteSelection() int {
	defer c.sync()
	if g, ok := c.Scene.Groups.Selected(); ok {
		removed, err := c.Scene.Groups.DeleteWithMembers(g)
		if err != nil {
			c.log.Debug("group delete failed", "group", g, "err", err)
			return 0
		}
		c.Sel.Remove(removed...)
		return len(removed)
	}
	total := 0
	for _, id := range c.Sel.Selected() {
		total += len(c.Scene.RemoveNode(id))
	}
	c.Sel.Clear()
	return total
}

// Copy copies the selected group.
func (c *Controller) Copy() error {
	g, ok := c.Scene.Groups.Selected()
	if !ok {
		return scene.ErrGroupNotFound
	}
	return c.Scene.Groups.Copy(g)
}

// Paste pastes the copied group and selects it.
func (c *Controller) Paste() (*scene.Group, error) {
	g, _, err := c.Scene.Groups.Paste()
	if err != nil {
		return nil, err
	}
	c.Sel.Clear()
	c.Scene.Groups.Select(g.ID)
	c.sync()
	return g, nil
}

// Arrange lays the scene out as ranked columns following the connections.
func (c *Controller) Arrange() int {
	defer c.sync()
	n := layout.Arrange(c.Scene, layout.Options{})
	c.log.Debug("scene arranged", "units", n)
	return n
}

// Snapshot captures the scene in its saved form.
func (c *Controller) Snapshot() *netfile.Document {
	return netfile.FromScene(c.Scene)
}

// Restore replaces the scene with d and resets the view. On failure the
// canvas is left empty.
func (c *Controller) Restore(d *netfile.Document) (*netfile.Loaded, error) {
	c.Drag.End()
	c.Sel.CancelMarquee()
	c.Sel.Clear()
	c.gesture = gestureNone
	c.linking = nil
	c.menu = nil
	c.VP.Reset()

	res, err := netfile.Load(d, c.Scene, c.log)
	c.sync()
	if err != nil {
		c.log.Error("load failed", "err", err)
		return nil, err
	}
	c.log.Info("scene loaded", "nodes", len(res.Nodes), "groups", len(res.Groups), "skipped", res.Skipped)
	return res, nil
}

// Catalog returns the layer catalog of the scene.
func (c *Controller) Catalog() layers.Catalog { return c.Scene.Nodes.Catalog() }

func (c *Controller) handleAt(wx, wy float64) (scene.GroupID, scene.Handle, bool) {
	half := c.VP.WorldLength(HandleSize) / 2
	groups := c.Scene.Groups.All()
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		if !g.Expanded {
			continue
		}
		r := g.Rect
		corners := []struct {
			h    scene.Handle
			x, y float64
		}{
			{scene.HandleNW, r.X, r.Y},
			{scene.HandleNE, r.Right(), r.Y},
			{scene.HandleSE, r.Right(), r.Bottom()},
			{scene.HandleSW, r.X, r.Bottom()},
		}
		for _, k := range corners {
			if math.Abs(wx-k.x) <= half && math.Abs(wy-k.y) <= half {
				return g.ID, k.h, true
			}
		}
	}
	return 0, 0, false
}
