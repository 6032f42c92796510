package canvas

import (
	"image"
	"image/color"
	"image/draw"

	"cutout/internal/raster"
	"cutout/pkg/geometry"
)

// Overlay is drawn on top of the composed layers. Rects are in image
// coordinates and follow the workspace transform.
type Overlay struct {
	Rects []image.Rectangle
	Color color.RGBA
	Width float64 // outline width in pixels
}

// Draw outlines every rectangle on dst. t maps image coordinates to dst
// pixels.
func (o *Overlay) Draw(dst draw.Image, t geometry.AffineTransform) {
	if o == nil {
		return
	}
	width := o.Width
	if width <= 0 {
		width = 1
	}
	for _, r := range o.Rects {
		if r.Empty() {
			continue
		}
		corners := []geometry.Point2D{
			t.Apply(geometry.NewPoint2D(float64(r.Min.X), float64(r.Min.Y))),
			t.Apply(geometry.NewPoint2D(float64(r.Max.X), float64(r.Min.Y))),
			t.Apply(geometry.NewPoint2D(float64(r.Max.X), float64(r.Max.Y))),
			t.Apply(geometry.NewPoint2D(float64(r.Min.X), float64(r.Max.Y))),
		}
		raster.Stroke(dst, raster.Polyline(corners, true), width, o.Color, draw.Over)
	}
}
