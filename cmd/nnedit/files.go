package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ha1tch/netcanvas/pkg/codegen"
	"github.com/ha1tch/netcanvas/pkg/netfile"
	"github.com/ha1tch/netcanvas/pkg/render"
)

func (ed *Editor) newScene() {
	ed.ctl.Restore(&netfile.Document{})
	ed.filename = ""
	ed.modified = false
	ed.undoStack = nil
	ed.redoStack = nil
	ed.mode = ModeCanvas
	ed.showMessage("New scene", MsgInfo)
}

func (ed *Editor) loadFile(path string) error {
	d, _, err := netfile.ReadFile(path)
	if err != nil {
		return err
	}
	res, err := ed.ctl.Restore(d)
	if err != nil {
		// Restore leaves the canvas empty on failure.
		ed.filename = ""
		return err
	}
	ed.filename = path
	ed.modified = false
	ed.undoStack = nil
	ed.redoStack = nil
	if res.Skipped > 0 {
		ed.showMessage(fmt.Sprintf("Loaded %s (%d connection(s) skipped)", filepath.Base(path), res.Skipped), MsgWarning)
	}
	return nil
}

func (ed *Editor) saveFile(path string) error {
	meta := &netfile.Meta{Network: netfile.NetworkMeta{
		Name:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Saved: time.Now().UTC().Truncate(time.Second),
	}}
	if err := netfile.WriteFile(path, ed.ctl.Snapshot(), meta); err != nil {
		return err
	}
	ed.filename = path
	ed.modified = false
	ed.log.Info("scene saved", "path", path)
	return nil
}

func (ed *Editor) save() {
	if ed.filename == "" {
		ed.saveAs()
		return
	}
	if err := ed.saveFile(ed.filename); err != nil {
		ed.showMessage("Error: "+err.Error(), MsgError)
		return
	}
	ed.showMessage("Saved: "+ed.filename, MsgSuccess)
}

func (ed *Editor) saveAs() {
	ed.prompt("Save as: ", func(s string) {
		ed.mode = ModeCanvas
		if s == "" {
			return
		}
		if filepath.Ext(s) == "" {
			s += ".json"
		}
		if !filepath.IsAbs(s) {
			s = filepath.Join(ed.currentDir, s)
		}
		if err := ed.saveFile(s); err != nil {
			ed.showMessage("Error: "+err.Error(), MsgError)
			return
		}
		ed.showMessage("Saved: "+s, MsgSuccess)
	})
}

func (ed *Editor) prompt(label string, action func(string)) {
	ed.inputPrompt = label
	ed.inputBuffer = ""
	ed.inputAction = action
	ed.mode = ModeInput
}

func (ed *Editor) openFilePicker() {
	if ed.currentDir == "" {
		ed.currentDir, _ = os.Getwd()
	}
	ed.refreshFilePicker()
	ed.mode = ModeFilePicker
}

// refreshFilePicker lists subdirectories (with a trailing slash) and then
// scene files of the current directory.
func (ed *Editor) refreshFilePicker() {
	ed.fileList = ed.fileList[:0]
	ed.fileSelected = 0
	if filepath.Dir(ed.currentDir) != ed.currentDir {
		ed.fileList = append(ed.fileList, "../")
	}
	entries, err := os.ReadDir(ed.currentDir)
	if err != nil {
		ed.showMessage("Error: "+err.Error(), MsgError)
		return
	}
	var dirs, files []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			dirs = append(dirs, name+"/")
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".json", netfile.BundleExt:
			files = append(files, name)
		}
	}
	sort.Strings(dirs)
	sort.Strings(files)
	ed.fileList = append(ed.fileList, dirs...)
	ed.fileList = append(ed.fileList, files...)
}

func (ed *Editor) pickFile() {
	if len(ed.fileList) == 0 {
		return
	}
	name := ed.fileList[ed.fileSelected]
	if strings.HasSuffix(name, "/") {
		if name == "../" {
			ed.currentDir = filepath.Dir(ed.currentDir)
		} else {
			ed.currentDir = filepath.Join(ed.currentDir, strings.TrimSuffix(name, "/"))
		}
		ed.refreshFilePicker()
		return
	}

	path := filepath.Join(ed.currentDir, name)
	if err := ed.loadFile(path); err != nil {
		ed.showMessage("Error: "+err.Error(), MsgError)
		return
	}
	ed.cfg.Editor.LastDir = ed.currentDir
	ed.saveConfig()
	if ed.message == "" || ed.messageType != MsgWarning {
		ed.showMessage("Loaded: "+path, MsgSuccess)
	}
	ed.mode = ModeCanvas
}

// basePath is where exports go: next to the scene file, or in the current
// directory for unsaved scenes.
func (ed *Editor) basePath() string {
	if ed.filename != "" {
		return strings.TrimSuffix(ed.filename, filepath.Ext(ed.filename))
	}
	return filepath.Join(ed.currentDir, "network")
}

func (ed *Editor) exportImage() {
	d := ed.ctl.Snapshot()
	if len(d.Layers) == 0 {
		ed.showMessage("Canvas is empty - nothing to export", MsgError)
		return
	}
	opts := render.Options{
		Width:   ed.cfg.Export.Width,
		Height:  ed.cfg.Export.Height,
		Padding: ed.cfg.Export.Padding,
		Title:   filepath.Base(ed.basePath()),
	}
	path := ed.basePath() + "." + ed.cfg.Editor.ExportFormat

	var err error
	if ed.cfg.Editor.ExportFormat == "svg" {
		var svg string
		if svg, err = render.GenerateSVG(d, ed.catalog, opts); err == nil {
			err = os.WriteFile(path, []byte(svg), 0o644)
		}
	} else {
		var f *os.File
		if f, err = os.Create(path); err == nil {
			err = render.RenderPNG(d, ed.catalog, f, opts)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}
	}
	if err != nil {
		ed.showMessage("Export failed: "+err.Error(), MsgError)
		return
	}
	ed.showMessage("Exported: "+path, MsgSuccess)
}

func (ed *Editor) exportPyTorch() {
	path := ed.basePath() + ".py"
	code := codegen.GeneratePyTorch(ed.ctl.Snapshot(), ed.catalog, codegen.Options{
		ClassName: filepath.Base(ed.basePath()),
	})
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		ed.showMessage("Export failed: "+err.Error(), MsgError)
		return
	}
	ed.showMessage("Written: "+path, MsgSuccess)
}

func (ed *Editor) toggleFileType() {
	if ed.cfg.Editor.ExportFormat == "png" {
		ed.cfg.Editor.ExportFormat = "svg"
	} else {
		ed.cfg.Editor.ExportFormat = "png"
	}
	ed.updateMenuItems()
	ed.showMessage("File type set to "+strings.ToUpper(ed.cfg.Editor.ExportFormat), MsgInfo)
	ed.saveConfig()
}

// quit asks before throwing away unsaved changes. It reports whether the
// editor can exit now.
func (ed *Editor) quit() bool {
	if !ed.modified {
		return true
	}
	ed.prompt("Unsaved changes. Quit anyway? (y/n): ", func(s string) {
		if strings.EqualFold(s, "y") {
			ed.quitting = true
			return
		}
		ed.mode = ModeCanvas
	})
	return false
}
