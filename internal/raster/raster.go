// Package raster draws thick round-capped lines into RGBA layers and binary
// masks using golang.org/x/image/vector.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"cutout/pkg/geometry"

	"golang.org/x/image/vector"
)

// Segment is one straight piece of a stroke in image coordinates.
type Segment struct {
	A, B geometry.Point2D
}

// Centers converts pixel indices into the coordinates of the pixel centers.
func Centers(pts []image.Point) []geometry.Point2D {
	out := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		out[i] = geometry.NewPoint2D(float64(p.X)+0.5, float64(p.Y)+0.5)
	}
	return out
}

// Polyline returns the segments joining consecutive points. A single point
// yields one zero-length segment so it still draws a dot.
func Polyline(pts []geometry.Point2D, closed bool) []Segment {
	switch len(pts) {
	case 0:
		return nil
	case 1:
		return []Segment{{A: pts[0], B: pts[0]}}
	}
	segs := make([]Segment, 0, len(pts))
	for i := 1; i < len(pts); i++ {
		segs = append(segs, Segment{A: pts[i-1], B: pts[i]})
	}
	if closed && len(pts) > 2 {
		segs = append(segs, Segment{A: pts[len(pts)-1], B: pts[0]})
	}
	return segs
}

// Rectangle returns the four edges of the box with corners r.Min and r.Max,
// both inclusive, running through the centers of the corner pixels.
func Rectangle(r image.Rectangle) []Segment {
	tl := geometry.NewPoint2D(float64(r.Min.X)+0.5, float64(r.Min.Y)+0.5)
	br := geometry.NewPoint2D(float64(r.Max.X)+0.5, float64(r.Max.Y)+0.5)
	tr := geometry.NewPoint2D(br.X, tl.Y)
	bl := geometry.NewPoint2D(tl.X, br.Y)
	return Polyline([]geometry.Point2D{tl, tr, br, bl}, true)
}

// Stroke draws segs of the given width onto dst in c. With draw.Src a
// transparent c erases what lies underneath.
func Stroke(dst draw.Image, segs []Segment, width float64, c color.Color, op draw.Op) {
	box := extent(segs, width).Intersect(dst.Bounds())
	if box.Empty() {
		return
	}
	z := rasterize(box, segs, width)
	z.DrawOp = op
	z.Draw(dst, box, image.NewUniform(c), image.Point{})
}

// Mask rasterizes segs into a binary mask clipped to bounds. A pixel is set
// when at least half of it is covered. The mask's rectangle is the clipped
// extent of the segments, in the same coordinates as bounds.
func Mask(bounds image.Rectangle, segs []Segment, width float64) *image.Alpha {
	box := extent(segs, width).Intersect(bounds)
	if box.Empty() {
		return image.NewAlpha(image.Rectangle{})
	}
	z := rasterize(box, segs, width)
	m := image.NewAlpha(box)
	z.Draw(m, box, image.Opaque, image.Point{})
	for i, a := range m.Pix {
		if a >= 0x80 {
			m.Pix[i] = 0xff
		} else {
			m.Pix[i] = 0
		}
	}
	return m
}

// extent is the pixel box covering every capsule.
func extent(segs []Segment, width float64) image.Rectangle {
	if len(segs) == 0 {
		return image.Rectangle{}
	}
	r := width/2 + 1
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, s := range segs {
		minX = math.Min(minX, math.Min(s.A.X, s.B.X))
		minY = math.Min(minY, math.Min(s.A.Y, s.B.Y))
		maxX = math.Max(maxX, math.Max(s.A.X, s.B.X))
		maxY = math.Max(maxY, math.Max(s.A.Y, s.B.Y))
	}
	return image.Rect(
		int(math.Floor(minX-r)), int(math.Floor(minY-r)),
		int(math.Ceil(maxX+r)), int(math.Ceil(maxY+r)),
	)
}

func rasterize(box image.Rectangle, segs []Segment, width float64) *vector.Rasterizer {
	z := vector.NewRasterizer(box.Dx(), box.Dy())
	off := geometry.NewPoint2D(float64(box.Min.X), float64(box.Min.Y))
	r := width / 2
	for _, s := range segs {
		capsule(z, s.A.Sub(off), s.B.Sub(off), r)
	}
	return z
}

// capsule adds a segment with round caps. Every sub-path winds the same way
// so overlapping pieces accumulate instead of cancelling.
func capsule(z *vector.Rasterizer, a, b geometry.Point2D, r float64) {
	if r <= 0 {
		return
	}
	disc(z, a, r)
	if l := geometry.Distance(a, b); l > 0 {
		d := b.Sub(a).Scale(r / l)
		n := geometry.NewPoint2D(-d.Y, d.X)
		quad(z, a.Add(n), b.Add(n), b.Sub(n), a.Sub(n))
		disc(z, b, r)
	}
}

func quad(z *vector.Rasterizer, p0, p1, p2, p3 geometry.Point2D) {
	z.MoveTo(float32(p0.X), float32(p0.Y))
	z.LineTo(float32(p1.X), float32(p1.Y))
	z.LineTo(float32(p2.X), float32(p2.Y))
	z.LineTo(float32(p3.X), float32(p3.Y))
	z.ClosePath()
}

func disc(z *vector.Rasterizer, c geometry.Point2D, r float64) {
	n := geometry.Clamp(int(math.Ceil(r*4)), 8, 64)
	z.MoveTo(float32(c.X+r), float32(c.Y))
	for i := 1; i < n; i++ {
		theta := -2 * math.Pi * float64(i) / float64(n)
		z.LineTo(float32(c.X+r*math.Cos(theta)), float32(c.Y+r*math.Sin(theta)))
	}
	z.ClosePath()
}
