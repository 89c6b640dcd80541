package canvas

// Button identifies a pointer button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

// Mods is a set of held modifier keys.
type Mods uint8

const (
	ModShift Mods = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// Has reports whether all of m2 are held.
func (m Mods) Has(m2 Mods) bool { return m&m2 == m2 }

// command reports whether the platform command modifier is held.
func (m Mods) command() bool { return m&(ModCtrl|ModMeta) != 0 }

// KeyCode names the non-character keys the controller reacts to.
type KeyCode int

const (
	KeyRune KeyCode = iota
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyHome
	KeyDelete
	KeyBackspace
	KeyEscape
)

// Key is one key press. Rune is set when Code is KeyRune.
type Key struct {
	Code KeyCode
	Rune rune
	Mods Mods
}

// Wheel deltas of this magnitude come from line-mode devices and are
// damped further before zooming.
const lineDelta = 100

const (
	wheelZoomFactor = 0.005
	lineZoomDamping = 0.05
)

// HandleSize is the side, in screen units, of the square around a group
// corner that grabs its resize handle.
const HandleSize = 8
