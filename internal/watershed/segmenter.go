// Package watershed grows a foreground region from user strokes with an
// iterative marker-controlled watershed.
package watershed

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"cutout/internal/contour"
	"cutout/internal/marker"
	"cutout/internal/raster"
	"cutout/pkg/colorutil"

	log "github.com/sirupsen/logrus"
)

const (
	// MaxRounds caps the refinement loop regardless of convergence.
	MaxRounds = 2
	// RingDistance is the first background ring offset, in thicknesses.
	RingDistance = 5
)

// ErrSizeMismatch is returned when the image, markers and preview differ
// in size.
var ErrSizeMismatch = errors.New("watershed: buffer sizes differ")

// Result is the outcome of one segmentation pass.
type Result struct {
	Preview *image.RGBA
	Bounds  image.Rectangle // combined box of the opaque preview region
	Rounds  int
	Area    int // foreground pixels of the final round
	Empty   bool
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithFlooder replaces the default pure Go flooding.
func WithFlooder(f Flooder) Option {
	return func(s *Segmenter) {
		s.flooder = f
	}
}

// WithContourFinder replaces the default pure Go contour tracer.
func WithContourFinder(f contour.Finder) Option {
	return func(s *Segmenter) {
		s.finder = f
	}
}

// WithHighlight sets the color painted over segmented foreground.
func WithHighlight(c color.RGBA) Option {
	return func(s *Segmenter) {
		s.highlight = c
	}
}

// WithLogger sets the log entry used for diagnostics.
func WithLogger(l *log.Entry) Option {
	return func(s *Segmenter) {
		s.log = l
	}
}

// Segmenter turns a marker buffer into a highlighted preview.
type Segmenter struct {
	flooder   Flooder
	finder    contour.Finder
	highlight color.RGBA
	log       *log.Entry
}

// NewSegmenter creates a segmenter using MeyerFlooder, the contour Tracer
// and the default highlight.
func NewSegmenter(opts ...Option) *Segmenter {
	s := &Segmenter{
		flooder:   MeyerFlooder{},
		finder:    contour.Tracer{},
		highlight: colorutil.Highlight,
		log:       log.WithField("component", "watershed"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment runs the refinement loop over src seeded by the foreground
// markers, paints the result into preview and clears markers. With no
// foreground markers the preview is left alone and an empty result is
// returned.
func (s *Segmenter) Segment(src *image.RGBA, markers *marker.Buffer, preview *image.RGBA, thickness int) (Result, error) {
	w, h := markers.Width(), markers.Height()
	if src.Bounds().Dx() != w || src.Bounds().Dy() != h ||
		preview.Bounds().Dx() != w || preview.Bounds().Dy() != h {
		return Result{}, fmt.Errorf("%w: image %v, markers %dx%d, preview %v",
			ErrSizeMismatch, src.Bounds().Size(), w, h, preview.Bounds().Size())
	}
	if thickness < 1 {
		thickness = 1
	}

	contours, err := s.finder.FindExternal(markers.Mask(marker.Foreground))
	if err != nil {
		return Result{}, fmt.Errorf("find stroke contours: %w", err)
	}
	if len(contours) == 0 {
		markers.Reset()
		return Result{Preview: preview, Empty: true}, nil
	}

	start := time.Now()
	combined := raster.Centers(contour.Combine(contours))
	rect := contour.CombinedRect(contours)
	bounds := image.Rect(0, 0, w, h)
	seeds := raster.Mask(bounds, raster.Polyline(combined, false), float64(thickness))

	var (
		fg     *image.Alpha
		area   int
		rounds int
	)
	for i := 0; i < MaxRounds; i++ {
		prevArea := area

		labels := NewLabels(w, h)
		labels.Stamp(seeds, label(marker.Foreground))
		space := (i + RingDistance) * thickness
		ring := image.Rect(rect.Min.X-space, rect.Min.Y-space, rect.Max.X+space, rect.Max.Y+space)
		labels.Stamp(raster.Mask(bounds, raster.Rectangle(ring), float64(thickness)), label(marker.Background))

		if err := s.flooder.Flood(src, labels); err != nil {
			return Result{}, fmt.Errorf("flood round %d: %w", i, err)
		}
		fg, area = labels.Mask(label(marker.Foreground))
		rounds = i + 1

		s.log.Debugf("round %d: ring %d px, foreground %d px", i, space, area)
		if area <= prevArea {
			break
		}
	}

	paint(preview, fg, s.highlight)
	erase(preview, markers.Mask(marker.Background))
	markers.Reset()

	found, err := s.finder.FindExternal(contour.OpaqueMask(preview))
	if err != nil {
		return Result{}, fmt.Errorf("find result contours: %w", err)
	}
	res := Result{
		Preview: preview,
		Bounds:  contour.CombinedRect(found),
		Rounds:  rounds,
		Area:    area,
	}
	s.log.WithFields(log.Fields{
		"rounds":  rounds,
		"area":    area,
		"bounds":  res.Bounds,
		"elapsed": time.Since(start),
	}).Debug("segmentation finished")
	return res, nil
}

// Bounds returns the combined bounding rectangle of the opaque region of
// preview.
func Bounds(preview *image.RGBA) image.Rectangle {
	return contour.CombinedRect(contour.FindExternal(contour.OpaqueGrid{RGBA: preview}))
}

func paint(dst *image.RGBA, mask *image.Alpha, c color.RGBA) {
	for y := 0; y < mask.Rect.Dy(); y++ {
		for x := 0; x < mask.Rect.Dx(); x++ {
			if mask.Pix[y*mask.Stride+x] != 0 {
				dst.SetRGBA(dst.Rect.Min.X+x, dst.Rect.Min.Y+y, c)
			}
		}
	}
}

func erase(dst *image.RGBA, mask *image.Alpha) {
	paint(dst, mask, color.RGBA{})
}
