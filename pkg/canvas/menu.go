package canvas

import "fmt"

// Action is a context-menu command.
type Action string

const (
	ActionGroup          Action = "group"
	ActionUngroup        Action = "ungroup"
	ActionDelete         Action = "delete"
	ActionSelectAll      Action = "select-all"
	ActionClearSelection Action = "clear-selection"
	ActionResetView      Action = "reset-view"
	ActionToggle         Action = "toggle"
	ActionCopy           Action = "copy"
	ActionPaste          Action = "paste"
	ActionArrange        Action = "arrange"
)

// MenuItem is one row of the context menu. A zero Action is a separator.
type MenuItem struct {
	Action Action
	Label  string
}

// Separator reports whether the item only divides sections.
func (m MenuItem) Separator() bool { return m.Action == "" }

var contextItems = []MenuItem{
	{ActionGroup, "Group Selected Layers"},
	{ActionUngroup, "Ungroup Layers"},
	{},
	{ActionDelete, "Delete Selected"},
	{},
	{ActionSelectAll, "Select All"},
	{ActionClearSelection, "Clear Selection"},
	{},
	{ActionArrange, "Arrange Layers"},
	{ActionResetView, "Reset View"},
}

// Menu is an open context menu at a screen position.
type Menu struct {
	X, Y  float64
	Items []MenuItem
}

// OpenMenu shows the context menu at (sx, sy).
func (c *Controller) OpenMenu(sx, sy float64) *Menu {
	c.menu = &Menu{X: sx, Y: sy, Items: contextItems}
	return c.menu
}

// Menu returns the open context menu, if any.
func (c *Controller) Menu() (*Menu, bool) { return c.menu, c.menu != nil }

// CloseMenu dismisses the context menu.
func (c *Controller) CloseMenu() { c.menu = nil }

// MenuAction runs a command and closes the menu. Commands that find
// nothing to act on are no-ops.
func (c *Controller) MenuAction(a Action) error {
	c.menu = nil
	defer c.sync()

	switch a {
	case ActionGroup:
		_, err := c.GroupSelection()
		return err
	case ActionUngroup:
		c.Ungroup()
	case ActionDelete:
		c.DeleteSelection()
	case ActionSelectAll:
		c.Scene.Groups.Deselect()
		c.Sel.SelectAll()
	case ActionClearSelection:
		c.Sel.Clear()
		c.Scene.Groups.Deselect()
	case ActionResetView:
		c.VP.Reset()
	case ActionToggle:
		if g, ok := c.Scene.Groups.Selected(); ok {
			_, err := c.Scene.Groups.Toggle(g)
			return err
		}
	case ActionCopy:
		return c.Copy()
	case ActionPaste:
		_, err := c.Paste()
		return err
	case ActionArrange:
		c.Arrange()
	default:
		return fmt.Errorf("unknown action %q", a)
	}
	return nil
}
