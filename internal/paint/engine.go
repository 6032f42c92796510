// Package paint rasterizes foreground and eraser strokes into the stroke,
// preview and marker surfaces and triggers segmentation when a stroke ends.
package paint

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	cutimage "cutout/internal/image"
	"cutout/internal/marker"
	"cutout/internal/raster"
	"cutout/internal/watershed"
	"cutout/pkg/colorutil"
	"cutout/pkg/geometry"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultThickness is the stroke width at scale 1.
	DefaultThickness = 8
	// DefaultEraserFactor is the eraser width as a multiple of the stroke width.
	DefaultEraserFactor = 4
	// DefaultMinMove is the smallest image space move that extends a stroke.
	DefaultMinMove = 10.0
)

// ErrNoStroke is returned when a stroke operation needs an open stroke.
var ErrNoStroke = errors.New("paint: no stroke in progress")

// Tool selects what a stroke does.
type Tool int

const (
	ToolForeground Tool = iota
	ToolEraser
)

func (t Tool) String() string {
	if t == ToolEraser {
		return "eraser"
	}
	return "foreground"
}

// Segmenter is the part of watershed.Segmenter the engine needs.
type Segmenter interface {
	Segment(src *image.RGBA, markers *marker.Buffer, preview *image.RGBA, thickness int) (watershed.Result, error)
}

// Surfaces are the buffers a stroke mutates. Source is read only and shared
// between copies.
type Surfaces struct {
	Source  *image.RGBA
	Strokes *image.RGBA
	Preview *image.RGBA
	Markers *marker.Buffer
}

// NewSurfaces allocates empty stroke, preview and marker surfaces sized to
// source.
func NewSurfaces(source *image.RGBA) Surfaces {
	w, h := source.Bounds().Dx(), source.Bounds().Dy()
	return Surfaces{
		Source:  source,
		Strokes: cutimage.NewTransparent(w, h),
		Preview: cutimage.NewTransparent(w, h),
		Markers: marker.New(w, h),
	}
}

// Clone deep-copies the mutable surfaces.
func (s Surfaces) Clone() Surfaces {
	return Surfaces{
		Source:  s.Source,
		Strokes: cutimage.Clone(s.Strokes),
		Preview: cutimage.Clone(s.Preview),
		Markers: s.Markers.Clone(),
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithThickness sets the base stroke width.
func WithThickness(t int) Option {
	return func(e *Engine) {
		if t > 0 {
			e.base = t
			e.thickness = t
		}
	}
}

// WithEraserFactor sets the eraser width multiplier.
func WithEraserFactor(f int) Option {
	return func(e *Engine) {
		if f > 0 {
			e.eraserFactor = f
		}
	}
}

// WithMinMove sets the move filter distance.
func WithMinMove(d float64) Option {
	return func(e *Engine) {
		e.minMove = d
	}
}

// WithLogger sets the log entry used for diagnostics.
func WithLogger(l *log.Entry) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// Engine owns the committed surfaces and at most one open stroke. A stroke
// works on private copies that replace the committed surfaces only when the
// stroke ends successfully.
type Engine struct {
	committed Surfaces
	working   *Surfaces
	segmenter Segmenter

	base         int
	thickness    int
	eraserFactor int
	minMove      float64
	scale        float64

	tool     Tool
	last     geometry.Point2D
	segments int

	log *log.Entry
}

// New creates an engine over surfaces.
func New(surfaces Surfaces, segmenter Segmenter, opts ...Option) *Engine {
	e := &Engine{
		committed:    surfaces,
		segmenter:    segmenter,
		base:         DefaultThickness,
		thickness:    DefaultThickness,
		eraserFactor: DefaultEraserFactor,
		minMove:      DefaultMinMove,
		scale:        1,
		log:          log.WithField("component", "paint"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Surfaces returns what should be displayed: the open stroke's copies, or
// the committed surfaces.
func (e *Engine) Surfaces() Surfaces {
	if e.working != nil {
		return *e.working
	}
	return e.committed
}

// Stroking reports whether a stroke is open.
func (e *Engine) Stroking() bool {
	return e.working != nil
}

// Thickness returns the current stroke width.
func (e *Engine) Thickness() int {
	return e.thickness
}

// EraserThickness returns the current eraser width.
func (e *Engine) EraserThickness() int {
	return e.thickness * e.eraserFactor
}

// Segments returns the number of segments drawn by the open stroke.
func (e *Engine) Segments() int {
	return e.segments
}

// Rescale updates the stroke width after the view scale changed. Zooming
// out multiplies the base width by the new scale, anything else divides it.
func (e *Engine) Rescale(scale float64) {
	if scale <= 0 {
		return
	}
	var t int
	if e.scale > scale {
		t = int(float64(e.base) * scale)
	} else {
		t = int(float64(e.base) / scale)
	}
	e.thickness = max(t, 1)
	e.scale = scale
}

// BeginStroke opens a stroke at p, in image coordinates. An already open
// stroke is rolled back first.
func (e *Engine) BeginStroke(p geometry.Point2D, tool Tool) {
	if e.working != nil {
		e.CancelStroke()
	}
	w := e.committed.Clone()
	e.working = &w
	e.tool = tool
	e.last = p
	e.segments = 0
}

// ContinueStroke extends the open stroke to p. Moves shorter than the
// minimum distance from the last drawn point are ignored and reported as
// false.
func (e *Engine) ContinueStroke(p geometry.Point2D) bool {
	if e.working == nil {
		return false
	}
	if geometry.Distance(e.last, p) < e.minMove {
		return false
	}

	seg := []raster.Segment{{A: e.last, B: p}}
	s := e.working
	switch e.tool {
	case ToolForeground:
		width := float64(e.thickness)
		raster.Stroke(s.Strokes, seg, width, colorutil.Ink, draw.Over)
		s.Markers.Stamp(raster.Mask(s.Markers.Bounds(), seg, width), marker.Foreground)
	case ToolEraser:
		width := float64(e.EraserThickness())
		raster.Stroke(s.Strokes, seg, width, colorutil.Transparent, draw.Src)
		raster.Stroke(s.Preview, seg, width, colorutil.Transparent, draw.Src)
	}
	e.last = p
	e.segments++
	return true
}

// EndStroke closes the stroke, segments its surfaces and commits them. On
// failure the stroke is rolled back and the committed surfaces are kept.
func (e *Engine) EndStroke() (watershed.Result, error) {
	if e.working == nil {
		return watershed.Result{}, ErrNoStroke
	}
	s := e.working
	res, err := e.segmenter.Segment(s.Source, s.Markers, s.Preview, e.thickness)
	if err != nil {
		e.CancelStroke()
		return watershed.Result{}, fmt.Errorf("segment %s stroke: %w", e.tool, err)
	}
	e.committed = *s
	e.working = nil
	e.log.WithFields(log.Fields{
		"tool":     e.tool,
		"segments": e.segments,
		"rounds":   res.Rounds,
		"empty":    res.Empty,
	}).Debug("stroke committed")
	return res, nil
}

// CancelStroke drops the open stroke's copies.
func (e *Engine) CancelStroke() {
	e.working = nil
	e.segments = 0
}

// Reset replaces the committed surfaces, dropping any open stroke, and
// restores the base thickness.
func (e *Engine) Reset(surfaces Surfaces) {
	e.committed = surfaces
	e.working = nil
	e.segments = 0
	e.thickness = e.base
	e.scale = 1
}

// ToImage maps a screen point to image space through the inverse of t. For
// a transform without rotation this is (screen - translation) / scale.
func ToImage(t geometry.AffineTransform, screen geometry.Point2D) geometry.Point2D {
	inv, ok := t.Inverse()
	if !ok {
		return screen
	}
	return inv.Apply(screen)
}
