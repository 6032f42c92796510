// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"path/filepath"
	"strings"

	"cutout/internal/app"
	"cutout/internal/version"
	"cutout/internal/workspace"
	"cutout/ui/canvas"
	"cutout/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	log "github.com/sirupsen/logrus"
)

const title = "Cutout"

// Modes offered in the toolbar. The remaining edit modes have no
// interaction yet.
var toolbarModes = []workspace.EditMode{
	workspace.ModeForeground,
	workspace.ModeEraser,
	workspace.ModeZoom,
}

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	prefs     *prefs.Prefs
	canvas    *canvas.ImageCanvas
	modes     *widget.RadioGroup
	statusBar *widget.Label

	// Menu items that need state tracking
	boundsItem *fyne.MenuItem
	recordItem *fyne.MenuItem
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow(title)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.restore()

	d := state.Config().Display
	win.Resize(fyne.NewSize(float32(d.Width), float32(d.Height)))
	win.SetOnClosed(func() {
		if err := mw.prefs.SaveIfChanged(); err != nil {
			log.WithError(err).Warn("failed to save preferences")
		}
	})
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewImageCanvas(mw.state)
	mw.canvas.OnZoomChange(func(zoom float64) {
		mw.updateStatus(fmt.Sprintf("Zoom %.0f%%, stroke %dpx", zoom*100, mw.state.Workspace().Thickness()))
	})

	mw.statusBar = widget.NewLabel("Open an image to start")

	content := container.NewBorder(
		mw.createToolbar(),                // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		mw.canvas,                         // center
	)
	mw.SetContent(content)
}

// createToolbar creates the mode selector and zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	names := make([]string, len(toolbarModes))
	for i, m := range toolbarModes {
		names[i] = modeLabel(m)
	}
	mw.modes = widget.NewRadioGroup(names, func(selected string) {
		for _, m := range toolbarModes {
			if modeLabel(m) == selected {
				mw.onSetMode(m)
				return
			}
		}
	})
	mw.modes.Horizontal = true
	mw.modes.Required = true
	mw.modes.SetSelected(modeLabel(mw.state.Workspace().Mode()))

	return container.NewHBox(
		mw.modes,
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		widget.NewButton("-", mw.canvas.ZoomOut),
		widget.NewButton("+", mw.canvas.ZoomIn),
		widget.NewButton("1:1", mw.canvas.ResetView),
	)
}

func modeLabel(m workspace.EditMode) string {
	s := m.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export Cutout...", mw.onExportCutout),
		fyne.NewMenuItem("Export Preview...", mw.onExportPreview),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	mw.boundsItem = fyne.NewMenuItem("Show Result Bounds", mw.onToggleBounds)
	mw.boundsItem.Checked = mw.canvas.ShowBounds()
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.canvas.ZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.canvas.ZoomOut),
		fyne.NewMenuItem("Actual Size", mw.canvas.ResetView),
		fyne.NewMenuItemSeparator(),
		mw.boundsItem,
	)

	mw.recordItem = fyne.NewMenuItem("Record Session", mw.onToggleRecording)
	sessionMenu := fyne.NewMenu("Session",
		mw.recordItem,
		fyne.NewMenuItem("Save Recording...", mw.onSaveRecording),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Replay Script...", mw.onReplay),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, sessionMenu, helpMenu))
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventImageLoaded, func(data interface{}) {
		if path := mw.state.ImagePath(); path != "" {
			mw.SetTitle(title + " - " + filepath.Base(path))
		}
		mw.canvas.Refresh()
		mw.updateStatus("Image loaded")
	})

	mw.state.On(app.EventSegmented, func(data interface{}) {
		res, ok := data.(workspace.Result)
		if !ok {
			return
		}
		if res.Empty {
			mw.updateStatus("Nothing segmented")
		} else {
			mw.updateStatus(fmt.Sprintf("Segmented %dx%d at (%d, %d)",
				res.Bounds.Dx(), res.Bounds.Dy(), res.Bounds.Min.X, res.Bounds.Min.Y))
		}
		mw.canvas.Refresh()
	})

	mw.state.On(app.EventModeChanged, func(data interface{}) {
		if m, ok := data.(workspace.EditMode); ok {
			mw.prefs.SetString(prefs.KeyEditMode, m.String())
		}
	})

	mw.state.On(app.EventExported, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.updateStatus("Exported " + path)
		}
	})

	mw.state.On(app.EventConfigChanged, func(data interface{}) {
		mw.canvas.Refresh()
		mw.updateStatus("Configuration reloaded")
	})

	mw.state.On(app.EventError, func(data interface{}) {
		if err, ok := data.(error); ok {
			mw.updateStatus("Error: " + err.Error())
		}
	})
}

// restore applies the saved preferences and reopens the last image.
func (mw *MainWindow) restore() {
	mw.canvas.SetShowBounds(mw.prefs.Bool(prefs.KeyShowBounds, true))
	if m, err := workspace.ParseEditMode(mw.prefs.String(prefs.KeyEditMode)); err == nil {
		mw.modes.SetSelected(modeLabel(m))
	}
	if path := mw.prefs.String(prefs.KeyLastImage); path != "" && mw.state.ImagePath() == "" {
		if err := mw.state.LoadImage(path); err != nil {
			log.WithError(err).WithField("path", path).Warn("failed to restore last image")
		}
	}
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDir)
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(filePath))
}

// Menu action handlers

func (mw *MainWindow) onSetMode(m workspace.EditMode) {
	if mw.state.Workspace().Mode() == m {
		return
	}
	mw.state.SetMode(m)
	mw.canvas.Refresh()
}

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		if err := mw.state.LoadImage(path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.prefs.SetString(prefs.KeyLastImage, path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(imageExtensions))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExportCutout() {
	mw.saveFile("cutout.png", mw.state.ExportCutout)
}

func (mw *MainWindow) onExportPreview() {
	mw.saveFile("preview.png", mw.state.ExportPreview)
}

func (mw *MainWindow) onSaveRecording() {
	if !mw.state.Recording() {
		dialog.ShowError(app.ErrNotRecording, mw.Window)
		return
	}
	mw.saveFile("session.yaml", mw.state.SaveRecording)
}

// saveFile asks for a destination and hands its path to save.
func (mw *MainWindow) saveFile(name string, save func(path string) error) {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) == "" {
			path += filepath.Ext(name)
		}
		mw.saveLastDir(path)
		if err := save(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFileName(name)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onToggleRecording() {
	if mw.state.Recording() {
		sc, err := mw.state.StopRecording()
		if err == nil {
			mw.updateStatus(fmt.Sprintf("Recording stopped, %d steps", len(sc.Steps)))
		}
	} else {
		mw.state.StartRecording()
		mw.updateStatus("Recording")
	}
	mw.recordItem.Checked = mw.state.Recording()
	mw.MainMenu().Refresh()
}

func (mw *MainWindow) onReplay() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		stats, err := mw.state.Replay(reader.URI().Path())
		if err != nil {
			dialog.ShowError(err, mw.Window)
		}
		mw.modes.SetSelected(modeLabel(mw.state.Workspace().Mode()))
		mw.canvas.Refresh()
		mw.updateStatus(fmt.Sprintf("Replayed %d steps, %d events handled", stats.Steps, stats.Handled))
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".yaml", ".yml"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onToggleBounds() {
	show := !mw.canvas.ShowBounds()
	mw.canvas.SetShowBounds(show)
	mw.prefs.SetBool(prefs.KeyShowBounds, show)
	mw.boundsItem.Checked = show
	mw.MainMenu().Refresh()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Cutout",
		fmt.Sprintf("Cutout %s\n\n"+
			"Paint over an object and watershed segmentation\n"+
			"cuts it out of the background.",
			version.String()),
		mw.Window)
}
