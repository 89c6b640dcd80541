// Command nnedit is a terminal editor for neural network scenes.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/netcanvas/internal/config"
	"github.com/ha1tch/netcanvas/pkg/canvas"
	"github.com/ha1tch/netcanvas/pkg/layers"
	"github.com/ha1tch/netcanvas/pkg/netfile"
	"github.com/ha1tch/netcanvas/pkg/scene"
)

// maxUndo bounds the undo history.
const maxUndo = 100

// Editor holds all editor state.
type Editor struct {
	screen  tcell.Screen
	ctl     *canvas.Controller
	catalog *layers.Registry
	cfg     *config.Config
	cfgPath string
	log     *slog.Logger

	filename    string
	modified    bool
	quitting    bool
	mode        Mode
	message     string
	messageType MessageType

	// Message flash state
	messageFlashStart int64

	// Last pointer position in cells; drops and zoom keys aim here.
	cursorX, cursorY int

	// Buttons held at the previous mouse event.
	buttons tcell.ButtonMask
	// Right press origin, to tell a context-menu click from a pan.
	rightDownX, rightDownY int
	rightMoved             bool
	// Scene state before the current pointer gesture.
	pending []byte

	// Undo/Redo
	undoStack [][]byte
	redoStack [][]byte

	// Main menu
	menuItems    []string
	menuSelected int

	// Layer palette
	palette         []string
	paletteSelected int

	// Context menu row under the keyboard cursor
	contextSelected int

	// Input state
	inputBuffer string
	inputPrompt string
	inputAction func(string)

	// File picker state
	fileList     []string
	fileSelected int
	currentDir   string

	sidebarWidth int
}

// Mode represents editor mode.
type Mode int

const (
	ModeMenu Mode = iota
	ModeCanvas
	ModeInput
	ModeFilePicker
	ModePalette
	ModeContext
	ModeHelp
)

// MessageType for status messages.
type MessageType int

const (
	MsgInfo    MessageType = iota // Informative, no flash
	MsgError                      // Errors, flash
	MsgSuccess                    // State changes, flash
	MsgWarning                    // Warnings, flash
)

func newEditor(screen tcell.Screen, cfg *config.Config, cfgPath string, logger *slog.Logger) *Editor {
	catalog := layers.Default()
	sc := scene.New(catalog, logger)
	ctl := canvas.New(cfg.NewViewport(), sc, logger)
	ctl.PanStep = cfg.Viewport.PanStep

	ed := &Editor{
		screen:       screen,
		ctl:          ctl,
		catalog:      catalog,
		cfg:          cfg,
		cfgPath:      cfgPath,
		log:          logger,
		mode:         ModeCanvas,
		sidebarWidth: 28,
		currentDir:   cfg.Editor.LastDir,
	}
	for _, c := range []layers.Category{layers.CategoryInput, layers.CategoryLayer, layers.CategoryFunction, layers.CategoryOutput} {
		for _, d := range catalog.ByCategory(c) {
			ed.palette = append(ed.palette, d.Name)
		}
	}
	if ed.currentDir == "" {
		ed.currentDir, _ = os.Getwd()
	}
	ed.updateMenuItems()
	return ed
}

// openLog sends logs to ~/.nnedit.log since the terminal belongs to tcell.
func openLog() (*slog.Logger, func()) {
	home, err := os.UserHomeDir()
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	f, err := os.OpenFile(filepath.Join(home, ".nnedit.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})), func() { f.Close() }
}

func main() {
	logger, closeLog := openLog()
	defer closeLog()

	cfgPath := config.Path()
	cfg := config.Load(cfgPath, logger)

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating screen: %v\n", err)
		os.Exit(1)
	}
	ed := newEditor(screen, cfg, cfgPath, logger)

	// Check command line
	if len(os.Args) > 1 {
		if err := ed.loadFile(os.Args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", os.Args[1], err)
			os.Exit(1)
		}
	}

	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing screen: %v\n", err)
		os.Exit(1)
	}
	screen.EnableMouse()
	screen.Clear()

	ed.run()
	screen.Fini()
}

func (ed *Editor) updateMenuItems() {
	ed.menuItems = []string{
		"New Scene",
		"Open File",
		"Save",
		"Save As",
		"Edit Canvas",
		"Export Image",
		"Export PyTorch",
		"File Type: " + strings.ToUpper(ed.cfg.Editor.ExportFormat),
		"Quit",
	}
}

func (ed *Editor) run() {
	// Refresh while a status message is flashing.
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			if ed.message != "" && ed.messageFlashStart > 0 {
				elapsed := time.Now().UnixMilli() - ed.messageFlashStart
				if elapsed >= 0 && elapsed < flashPeriod+200 {
					ed.screen.PostEvent(tcell.NewEventInterrupt(nil))
				}
			}
		}
	}()

	for {
		ed.draw()
		ed.screen.Show()

		switch ev := ed.screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventResize:
			ed.screen.Sync()
		case *tcell.EventKey:
			if ed.handleKey(ev) {
				return
			}
		case *tcell.EventMouse:
			ed.handleMouse(ev)
		}
	}
}

func (ed *Editor) showMessage(msg string, msgType MessageType) {
	ed.message = msg
	ed.messageType = msgType
	ed.messageFlashStart = time.Now().UnixMilli()
	if ed.screen != nil {
		ed.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}
}

// Undo/redo keeps whole saved documents; scenes are small.

func (ed *Editor) snapshot() []byte {
	data, err := netfile.Marshal(ed.ctl.Snapshot(), false)
	if err != nil {
		ed.log.Error("snapshot failed", "err", err)
		return nil
	}
	return data
}

// commit records before as an undo step if the scene has changed since.
func (ed *Editor) commit(before []byte) bool {
	if before == nil {
		return false
	}
	if bytes.Equal(before, ed.snapshot()) {
		return false
	}
	ed.undoStack = append(ed.undoStack, before)
	if len(ed.undoStack) > maxUndo {
		ed.undoStack = ed.undoStack[1:]
	}
	ed.redoStack = nil
	ed.modified = true
	return true
}

// edit runs fn as one undoable step.
func (ed *Editor) edit(fn func()) bool {
	before := ed.snapshot()
	fn()
	return ed.commit(before)
}

func (ed *Editor) undo() {
	if len(ed.undoStack) == 0 {
		ed.showMessage("Nothing to undo", MsgInfo)
		return
	}
	ed.redoStack = append(ed.redoStack, ed.snapshot())
	prev := ed.undoStack[len(ed.undoStack)-1]
	ed.undoStack = ed.undoStack[:len(ed.undoStack)-1]
	ed.restore(prev)
	ed.modified = true
	ed.showMessage("Undo", MsgSuccess)
}

func (ed *Editor) redo() {
	if len(ed.redoStack) == 0 {
		ed.showMessage("Nothing to redo", MsgInfo)
		return
	}
	ed.undoStack = append(ed.undoStack, ed.snapshot())
	next := ed.redoStack[len(ed.redoStack)-1]
	ed.redoStack = ed.redoStack[:len(ed.redoStack)-1]
	ed.restore(next)
	ed.modified = true
	ed.showMessage("Redo", MsgSuccess)
}

// restore reloads a snapshot without moving the view.
func (ed *Editor) restore(data []byte) {
	d, err := netfile.Parse(data)
	if err != nil {
		ed.showMessage("Error: "+err.Error(), MsgError)
		return
	}
	px, py := ed.ctl.VP.Offset()
	s := ed.ctl.VP.Scale()
	if _, err := ed.ctl.Restore(d); err != nil {
		ed.showMessage("Error: "+err.Error(), MsgError)
	}
	ed.ctl.VP.Set(px, py, s)
	ed.ctl.Viz.UpdateAllConnections()
}

func (ed *Editor) saveConfig() {
	if err := config.Save(ed.cfgPath, ed.cfg); err != nil {
		ed.log.Warn("config not saved", "path", ed.cfgPath, "err", err)
		ed.showMessage("Failed to save config: "+err.Error(), MsgError)
	}
}
