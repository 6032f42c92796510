// Package canvas provides the touch surface that displays the workspace
// layers and feeds pointer input back into it.
package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"cutout/internal/app"
	"cutout/internal/touch"
	"cutout/pkg/colorutil"
	"cutout/pkg/geometry"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	log "github.com/sirupsen/logrus"
)

const (
	minZoom  = 0.1
	maxZoom  = 10.0
	zoomStep = 1.25
)

// ImageCanvas renders the workspace and turns drags, taps and wheel
// scrolls into workspace input.
type ImageCanvas struct {
	widget.BaseWidget

	state *app.State

	raster *fynecanvas.Raster

	mu         sync.Mutex
	pixelScale float64 // raster pixels per fyne unit
	lastOutput *image.RGBA

	tracker tracker

	// Result bounds outline
	showBounds  bool
	boundsColor color.RGBA

	onZoomChange func(zoom float64)
}

// NewImageCanvas creates a canvas bound to state.
func NewImageCanvas(state *app.State) *ImageCanvas {
	ic := &ImageCanvas{
		state:       state,
		pixelScale:  1,
		showBounds:  true,
		boundsColor: color.RGBA{R: 0xFF, G: 0xD5, B: 0x00, A: 0xFF},
	}
	ic.raster = fynecanvas.NewRaster(ic.draw)
	ic.raster.ScaleMode = fynecanvas.ImageScalePixels
	ic.raster.SetMinSize(fyne.NewSize(400, 300))

	ic.ExtendBaseWidget(ic)
	return ic
}

// SetShowBounds toggles the outline around the segmented region.
func (ic *ImageCanvas) SetShowBounds(show bool) {
	ic.showBounds = show
	ic.Refresh()
}

// ShowBounds reports whether the result outline is drawn.
func (ic *ImageCanvas) ShowBounds() bool {
	return ic.showBounds
}

// OnZoomChange sets a callback for zoom changes.
func (ic *ImageCanvas) OnZoomChange(callback func(zoom float64)) {
	ic.onZoomChange = callback
}

// Zoom returns the scale of the workspace transform.
func (ic *ImageCanvas) Zoom() float64 {
	return ic.state.Workspace().Transform().ScaleFactor()
}

// ZoomIn zooms around the centre of the canvas.
func (ic *ImageCanvas) ZoomIn() {
	ic.zoomAt(ic.center(), zoomStep)
}

// ZoomOut zooms out around the centre of the canvas.
func (ic *ImageCanvas) ZoomOut() {
	ic.zoomAt(ic.center(), 1/zoomStep)
}

// ResetView puts the image back at its natural size and position.
func (ic *ImageCanvas) ResetView() {
	ic.setTransform(geometry.Identity())
}

func (ic *ImageCanvas) center() geometry.Point2D {
	size := ic.Size()
	return ic.toPixels(fyne.NewPos(size.Width/2, size.Height/2))
}

func (ic *ImageCanvas) zoomAt(pivot geometry.Point2D, factor float64) {
	t := ic.state.Workspace().Transform()
	zoom := geometry.Clamp(t.ScaleFactor()*factor, minZoom, maxZoom)
	if zoom == t.ScaleFactor() {
		return
	}
	ic.setTransform(t.PostScale(zoom/t.ScaleFactor(), pivot))
}

func (ic *ImageCanvas) setTransform(t geometry.AffineTransform) {
	if err := ic.state.Workspace().SetTransform(t); err != nil {
		return
	}
	ic.state.Emit(app.EventTransformChanged, t)
	if ic.onZoomChange != nil {
		ic.onZoomChange(t.ScaleFactor())
	}
	ic.Refresh()
}

// toPixels converts a widget-relative position into raster pixels, the
// coordinate space of the workspace transform.
func (ic *ImageCanvas) toPixels(pos fyne.Position) geometry.Point2D {
	ic.mu.Lock()
	s := ic.pixelScale
	ic.mu.Unlock()
	return geometry.NewPoint2D(float64(pos.X)*s, float64(pos.Y)*s)
}

func (ic *ImageCanvas) dispatch(events []touch.Event) {
	changed := false
	for _, ev := range events {
		handled, err := ic.state.HandleEvent(ev)
		if err != nil {
			log.WithError(err).WithField("component", "canvas").Warn("touch event failed")
		}
		changed = changed || handled
	}
	if changed {
		if ic.onZoomChange != nil && ic.state.Workspace().Mode().Transforms() {
			ic.onZoomChange(ic.Zoom())
		}
		ic.Refresh()
	}
}

// Dragged implements fyne.Draggable.
func (ic *ImageCanvas) Dragged(ev *fyne.DragEvent) {
	pos := ic.toPixels(ev.Position)
	delta := ic.toPixels(fyne.NewPos(ev.Dragged.DX, ev.Dragged.DY))
	ic.dispatch(ic.tracker.drag(pos, delta))
}

// DragEnd implements fyne.Draggable.
func (ic *ImageCanvas) DragEnd() {
	ic.dispatch(ic.tracker.end())
}

// Tapped implements fyne.Tappable. A tap draws nothing but still runs a
// segmentation pass over the strokes already committed.
func (ic *ImageCanvas) Tapped(ev *fyne.PointEvent) {
	// Workaround for Fyne bug: reject clicks outside widget bounds
	size := ic.Size()
	if ev.Position.X < 0 || ev.Position.Y < 0 ||
		ev.Position.X > size.Width || ev.Position.Y > size.Height {
		return
	}
	if !ic.state.Workspace().Mode().Paints() {
		return
	}
	ic.dispatch(ic.tracker.tap(ic.toPixels(ev.Position)))
}

// Scrolled implements fyne.Scrollable. The wheel zooms around the pointer.
func (ic *ImageCanvas) Scrolled(ev *fyne.ScrollEvent) {
	pivot := ic.toPixels(ev.Position)
	if ev.Scrolled.DY > 0 {
		ic.zoomAt(pivot, zoomStep)
	} else if ev.Scrolled.DY < 0 {
		ic.zoomAt(pivot, 1/zoomStep)
	}
}

// RenderedOutput returns the last frame drawn.
func (ic *ImageCanvas) RenderedOutput() *image.RGBA {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.lastOutput
}

func (ic *ImageCanvas) draw(w, h int) image.Image {
	if size := ic.Size(); size.Width > 0 {
		ic.mu.Lock()
		ic.pixelScale = float64(w) / float64(size.Width)
		ic.mu.Unlock()
	}

	out, err := ic.state.Workspace().Render(w, h)
	if err != nil {
		out = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(out, out.Bounds(), image.NewUniform(colorutil.Backdrop), image.Point{}, draw.Src)
	} else if ic.showBounds {
		if res := ic.state.Workspace().Result(); !res.Empty {
			overlay := &Overlay{Rects: []image.Rectangle{res.Bounds}, Color: ic.boundsColor, Width: 2}
			overlay.Draw(out, ic.state.Workspace().Transform())
		}
	}

	ic.mu.Lock()
	ic.lastOutput = out
	ic.mu.Unlock()
	return out
}

// CreateRenderer implements fyne.Widget.
func (ic *ImageCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &imageCanvasRenderer{canvas: ic}
}

type imageCanvasRenderer struct {
	canvas *ImageCanvas
}

func (r *imageCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
}

func (r *imageCanvasRenderer) MinSize() fyne.Size {
	return r.canvas.raster.MinSize()
}

func (r *imageCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *imageCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *imageCanvasRenderer) Destroy() {}
