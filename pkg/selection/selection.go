// Package selection tracks which nodes are selected and runs rectangular
// marquee selection.
package selection

import (
	"log/slog"
	"slices"
	"time"

	"github.com/ha1tch/netcanvas/pkg/scene"
)

// State is the selection state.
type State int

const (
	Empty State = iota
	Single
	Multi
	MarqueeActive
)

func (s State) String() string {
	switch s {
	case Single:
		return "single"
	case Multi:
		return "multi"
	case MarqueeActive:
		return "marquee"
	}
	return "empty"
}

// ClickSuppression is how long after a successful marquee a click on empty
// canvas is ignored, so the click that ends the drag does not wipe out the
// selection it just made.
const ClickSuppression = 200 * time.Millisecond

// Source answers hit tests in world coordinates.
type Source interface {
	// NodesIn returns the visible nodes whose world bounds intersect r.
	NodesIn(r scene.Rect) []scene.NodeID
	// VisibleNodes returns every visible node.
	VisibleNodes() []scene.NodeID
}

// Manager holds the selection set and marquee state.
type Manager struct {
	src Source
	log *slog.Logger
	now func() time.Time

	selected map[scene.NodeID]struct{}

	marquee        bool
	x0, y0, x1, y1 float64
	quietUntil     time.Time
}

// New creates an empty selection over src.
func New(src Source, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		src:      src,
		log:      logger,
		now:      time.Now,
		selected: make(map[scene.NodeID]struct{}),
	}
}

// SetClock replaces the time source used for click suppression.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// State returns the current state.
func (m *Manager) State() State {
	switch {
	case m.marquee:
		return MarqueeActive
	case len(m.selected) == 0:
		return Empty
	case len(m.selected) == 1:
		return Single
	}
	return Multi
}

// Selected returns the selected ids in ascending order.
func (m *Manager) Selected() []scene.NodeID {
	ids := make([]scene.NodeID, 0, len(m.selected))
	for id := range m.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// IsSelected reports whether id is selected.
func (m *Manager) IsSelected(id scene.NodeID) bool {
	_, ok := m.selected[id]
	return ok
}

// HasSelection reports whether any node is selected.
func (m *Manager) HasSelection() bool { return len(m.selected) > 0 }

// ClickEmpty handles a click on empty canvas. It clears the selection
// unless a marquee finished within ClickSuppression, and reports whether
// it did.
func (m *Manager) ClickEmpty() bool {
	if m.now().Before(m.quietUntil) {
		m.log.Debug("click on empty canvas suppressed after marquee")
		return false
	}
	m.Clear()
	return true
}

// ClickNode selects id alone, or adds it to the selection when extend is
// set.
func (m *Manager) ClickNode(id scene.NodeID, extend bool) {
	if !extend {
		clear(m.selected)
	}
	m.selected[id] = struct{}{}
}

// Add adds ids to the selection.
func (m *Manager) Add(ids ...scene.NodeID) {
	for _, id := range ids {
		m.selected[id] = struct{}{}
	}
}

// Remove drops ids from the selection.
func (m *Manager) Remove(ids ...scene.NodeID) {
	for _, id := range ids {
		delete(m.selected, id)
	}
}

// Clear empties the selection.
func (m *Manager) Clear() { clear(m.selected) }

// SelectAll selects every visible node.
func (m *Manager) SelectAll() {
	clear(m.selected)
	m.Add(m.src.VisibleNodes()...)
}

// BeginMarquee starts a marquee at world (x, y). The current selection is
// kept until the marquee ends.
func (m *Manager) BeginMarquee(x, y float64) {
	m.marquee = true
	m.x0, m.y0, m.x1, m.y1 = x, y, x, y
}

// UpdateMarquee moves the marquee's free corner to world (x, y).
func (m *Manager) UpdateMarquee(x, y float64) {
	if m.marquee {
		m.x1, m.y1 = x, y
	}
}

// Marquee returns the marquee rectangle in world coordinates.
func (m *Manager) Marquee() (scene.Rect, bool) {
	if !m.marquee {
		return scene.Rect{}, false
	}
	return scene.RectFromCorners(m.x0, m.y0, m.x1, m.y1), true
}

// EndMarquee finishes the marquee and replaces the selection with every
// node it touches. It returns the number of nodes selected.
func (m *Manager) EndMarquee() int {
	r, ok := m.Marquee()
	if !ok {
		return 0
	}
	m.marquee = false
	clear(m.selected)
	m.Add(m.src.NodesIn(r)...)
	if n := len(m.selected); n > 0 {
		m.quietUntil = m.now().Add(ClickSuppression)
		m.log.Debug("marquee selected nodes", "count", n)
	}
	return len(m.selected)
}

// CancelMarquee abandons a marquee without touching the selection.
func (m *Manager) CancelMarquee() { m.marquee = false }
