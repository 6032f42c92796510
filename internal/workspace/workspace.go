// Package workspace owns the state of one interactive cutout session: the
// source image, the layer stack, the edit mode and the last result.
package workspace

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"cutout/internal/config"
	"cutout/internal/gesture"
	cutimage "cutout/internal/image"
	"cutout/internal/paint"
	"cutout/internal/touch"
	"cutout/internal/watershed"
	"cutout/pkg/geometry"

	log "github.com/sirupsen/logrus"
)

var (
	ErrNoImage       = errors.New("workspace: no image set")
	ErrEmptyImage    = errors.New("workspace: image has no pixels")
	ErrImageTooLarge = errors.New("workspace: image too large")
	ErrEmptyResult   = errors.New("workspace: nothing segmented")
)

// Layer names, bottom to top.
const (
	LayerBase    = "base"
	LayerPreview = "preview"
	LayerStrokes = "strokes"
)

// Result is what the host can export: the preview surface and the box
// around its opaque region.
type Result struct {
	Preview *image.RGBA
	Bounds  image.Rectangle
	Empty   bool
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithConfig sets stroke and gesture settings.
func WithConfig(cfg config.WorkspaceConfig) Option {
	return func(w *Workspace) {
		w.cfg = cfg
	}
}

// WithSegmenter replaces the default watershed segmenter.
func WithSegmenter(s paint.Segmenter) Option {
	return func(w *Workspace) {
		w.segmenter = s
	}
}

// WithLogger sets the log entry used for diagnostics.
func WithLogger(l *log.Entry) Option {
	return func(w *Workspace) {
		w.log = l
	}
}

// Workspace dispatches touch events by edit mode. Its methods may be called
// from several goroutines; all mutations are serialized.
type Workspace struct {
	mu sync.Mutex

	cfg       config.WorkspaceConfig
	segmenter paint.Segmenter
	log       *log.Entry

	mode     EditMode
	source   *image.RGBA
	engine   *paint.Engine
	gestures *gesture.Controller

	base, preview, strokes *cutimage.Layer
	compositor             *cutimage.Compositor

	result    Result
	listeners []func(Result)
}

// New creates a workspace in foreground mode with no image.
func New(opts ...Option) *Workspace {
	w := &Workspace{
		cfg:  config.Default().Workspace,
		mode: ModeForeground,
		log:  log.WithField("component", "workspace"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.segmenter == nil {
		w.segmenter = watershed.NewSegmenter(watershed.WithLogger(w.log.WithField("component", "watershed")))
	}
	return w
}

// SetImage replaces the source image and reallocates every surface. The
// transform, stroke width and result start over; the edit mode is kept.
func (w *Workspace) SetImage(img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return ErrEmptyImage
	}
	size := img.Bounds().Size()
	if w.cfg.MaxPixels > 0 && size.X*size.Y > w.cfg.MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, size.X, size.Y, w.cfg.MaxPixels)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.source = cutimage.ToRGBA(img)
	surfaces := paint.NewSurfaces(w.source)
	w.engine = paint.New(surfaces, w.segmenter,
		paint.WithThickness(w.cfg.Thickness),
		paint.WithEraserFactor(w.cfg.EraserFactor),
		paint.WithMinMove(w.cfg.MinMove),
		paint.WithLogger(w.log.WithField("component", "paint")),
	)
	w.gestures = gesture.New(
		gesture.WithSingleFingerDrag(w.cfg.SingleFingerDrag),
		gesture.WithRotation(w.cfg.AllowRotation),
	)

	w.base = cutimage.NewLayer(LayerBase, w.source)
	w.preview = cutimage.NewLayer(LayerPreview, surfaces.Preview)
	w.strokes = cutimage.NewLayer(LayerStrokes, surfaces.Strokes)
	w.compositor = cutimage.NewCompositor(w.base, w.preview, w.strokes)

	w.result = Result{Preview: surfaces.Preview, Empty: true}
	w.log.WithField("size", size).Info("image set")
	return nil
}

// SetMode switches the edit mode. Any stroke or gesture in progress is
// abandoned.
func (w *Workspace) SetMode(m EditMode) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.engine != nil {
		w.engine.CancelStroke()
		w.gestures.End()
		w.refreshLayers()
	}
	w.mode = m
	w.log.WithField("mode", m).Debug("mode set")
}

// Mode returns the current edit mode.
func (w *Workspace) Mode() EditMode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// OnSegmented registers fn to be called after every finished stroke.
func (w *Workspace) OnSegmented(fn func(Result)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// HandleEvent routes ev by edit mode. It reports whether the event was
// consumed. Events are ignored until an image is set.
func (w *Workspace) HandleEvent(ev touch.Event) (bool, error) {
	w.mu.Lock()
	if w.engine == nil {
		w.mu.Unlock()
		return false, nil
	}

	var (
		handled   bool
		err       error
		segmented bool
	)
	switch {
	case w.mode.Paints():
		handled, segmented, err = w.handlePaint(ev)
	case w.mode.Transforms():
		handled = w.handleGesture(ev)
	}
	res := w.result
	listeners := append([]func(Result){}, w.listeners...)
	w.mu.Unlock()

	if segmented {
		for _, fn := range listeners {
			fn(res)
		}
	}
	return handled, err
}

func (w *Workspace) handlePaint(ev touch.Event) (bool, bool, error) {
	tool := paint.ToolForeground
	if w.mode == ModeEraser {
		tool = paint.ToolEraser
	}
	defer w.refreshLayers()

	switch ev.Action {
	case touch.ActionDown:
		if len(ev.Points) < 1 {
			return false, false, nil
		}
		w.engine.BeginStroke(paint.ToImage(w.base.Transform, ev.Points[0]), tool)
	case touch.ActionMove:
		if len(ev.Points) < 1 {
			return false, false, nil
		}
		w.engine.ContinueStroke(paint.ToImage(w.base.Transform, ev.Points[0]))
	case touch.ActionUp:
		res, err := w.engine.EndStroke()
		if errors.Is(err, paint.ErrNoStroke) {
			return false, false, nil
		}
		if err != nil {
			w.log.WithError(err).Error("segmentation failed")
			return true, false, err
		}
		w.result = w.resultFrom(res)
		return true, true, nil
	case touch.ActionCancel:
		w.engine.CancelStroke()
	}
	return true, false, nil
}

// resultFrom derives the exported result from the committed preview, so
// that erasing shrinks the bounds as well.
func (w *Workspace) resultFrom(res watershed.Result) Result {
	preview := w.engine.Surfaces().Preview
	bounds := res.Bounds
	if res.Empty || bounds.Empty() {
		bounds = watershed.Bounds(preview)
	}
	return Result{Preview: preview, Bounds: bounds, Empty: bounds.Empty()}
}

func (w *Workspace) handleGesture(ev touch.Event) bool {
	upd, ok := w.gestures.Handle(ev)
	if !ok {
		return false
	}
	w.base.Transform = upd.Transform
	w.compositor.SyncAll(nil)
	w.engine.Rescale(w.base.Transform.ScaleFactor())
	return true
}

func (w *Workspace) refreshLayers() {
	s := w.engine.Surfaces()
	w.preview.Image = s.Preview
	w.strokes.Image = s.Strokes
}

// Result returns the last segmentation result.
func (w *Workspace) Result() Result {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// Transform returns the transform shared by every layer.
func (w *Workspace) Transform() geometry.AffineTransform {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.base == nil {
		return geometry.Identity()
	}
	return w.base.Transform
}

// SetTransform places every layer under t.
func (w *Workspace) SetTransform(t geometry.AffineTransform) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.engine == nil {
		return ErrNoImage
	}
	w.gestures.Reset(t)
	w.compositor.SyncAll(&t)
	w.engine.Rescale(t.ScaleFactor())
	return nil
}

// Layers returns the layer stack, bottom to top.
func (w *Workspace) Layers() []*cutimage.Layer {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.compositor == nil {
		return nil
	}
	return w.compositor.Layers()
}

// Render composes the layers into a width x height view.
func (w *Workspace) Render(width, height int) (*image.RGBA, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.compositor == nil {
		return nil, ErrNoImage
	}
	return w.compositor.Render(width, height), nil
}

// Thickness returns the current stroke width.
func (w *Workspace) Thickness() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.engine == nil {
		return w.cfg.Thickness
	}
	return w.engine.Thickness()
}

// Source returns the working copy of the source image.
func (w *Workspace) Source() *image.RGBA {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.source
}

// Cutout returns the source pixels under the opaque preview region,
// cropped to the result bounds. Everything else is transparent.
func (w *Workspace) Cutout() (*image.NRGBA, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.source == nil {
		return nil, ErrNoImage
	}
	if w.result.Empty {
		return nil, ErrEmptyResult
	}
	b := w.result.Bounds
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if w.result.Preview.RGBAAt(x, y).A == 0 {
				continue
			}
			c := w.source.RGBAAt(x, y)
			out.SetNRGBA(x-b.Min.X, y-b.Min.Y, color.NRGBAModel.Convert(c).(color.NRGBA))
		}
	}
	return out, nil
}

// Close releases every buffer. The workspace can be reused after SetImage.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.source = nil
	w.engine = nil
	w.gestures = nil
	w.base, w.preview, w.strokes = nil, nil, nil
	w.compositor = nil
	w.result = Result{}
}
