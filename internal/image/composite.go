package image

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"cutout/pkg/colorutil"
	"cutout/pkg/geometry"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Compositor keeps a stack of layers rendering under one transform. The
// reference layer (the base image) is the source of truth when syncing.
type Compositor struct {
	reference *Layer
	layers    []*Layer
	BackColor color.Color
	Interp    xdraw.Interpolator
}

// NewCompositor creates a compositor over reference and the layers stacked
// above it, bottom to top.
func NewCompositor(reference *Layer, others ...*Layer) *Compositor {
	return &Compositor{
		reference: reference,
		layers:    append([]*Layer{reference}, others...),
		BackColor: colorutil.Backdrop,
		Interp:    xdraw.NearestNeighbor,
	}
}

// Layers returns the stack, bottom to top.
func (c *Compositor) Layers() []*Layer {
	return c.layers
}

// SyncAll applies t to every layer. With a nil t the reference layer's
// current transform is republished to the others.
func (c *Compositor) SyncAll(t *geometry.AffineTransform) {
	target := c.reference.Transform
	if t != nil {
		target = *t
	}
	for _, l := range c.layers {
		l.Transform = target
	}
}

// InSync reports whether every layer carries the reference transform.
func (c *Compositor) InSync() bool {
	for _, l := range c.layers {
		if l.Transform != c.reference.Transform {
			return false
		}
	}
	return true
}

// Render draws the visible layers into a w x h screen image.
func (c *Compositor) Render(w, h int) *image.RGBA {
	result := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(result, result.Bounds(), &image.Uniform{c.BackColor}, image.Point{}, xdraw.Src)

	for _, l := range c.layers {
		if l == nil || l.Image == nil || !l.Visible || l.Opacity <= 0 {
			continue
		}
		c.compositeLayer(result, l)
	}
	return result
}

// compositeLayer draws a single layer onto dst under its own transform.
func (c *Compositor) compositeLayer(dst *image.RGBA, l *Layer) {
	t := l.Transform
	aff := f64.Aff3{t.A, t.B, t.TX, t.C, t.D, t.TY}

	var opts *xdraw.Options
	if l.Opacity < 1 {
		alpha := uint8(math.Round(geometry.Clamp(l.Opacity, 0, 1) * 255))
		opts = &xdraw.Options{DstMask: image.NewUniform(color.Alpha{A: alpha})}
	}
	c.Interp.Transform(dst, aff, l.Image, l.Image.Bounds(), xdraw.Over, opts)
}

// Interpolator returns the x/image/draw interpolator named by s.
func Interpolator(s string) (xdraw.Interpolator, error) {
	switch strings.ToLower(s) {
	case "", "nearest":
		return xdraw.NearestNeighbor, nil
	case "bilinear":
		return xdraw.BiLinear, nil
	case "approxbilinear":
		return xdraw.ApproxBiLinear, nil
	case "catmullrom":
		return xdraw.CatmullRom, nil
	}
	return nil, fmt.Errorf("unknown interpolation %q", s)
}

// FitSize computes the size img should be scaled to for a dstW x dstH
// display. The ratio along the dominant dimension governs; if either side
// still exceeds its target the result is shrunk again.
func FitSize(dstW, dstH, srcW, srcH int) image.Point {
	if dstW <= 0 || dstH <= 0 || srcW <= 0 || srcH <= 0 {
		return image.Point{}
	}
	fw, fh := float64(srcW), float64(srcH)
	scaleW := fw / float64(dstW)
	scaleH := fh / float64(dstH)

	switch {
	case scaleH > scaleW:
		fw, fh = fw/scaleH, fh/scaleH
	case scaleW > scaleH:
		fw, fh = fw/scaleW, fh/scaleW
	}

	if float64(dstW) < fw {
		s := fw / float64(dstW)
		fw, fh = float64(dstW), fh/s
	} else if float64(dstH) < fh {
		s := fh / float64(dstH)
		fw, fh = fw/s, float64(dstH)
	}
	return image.Point{X: int(fw), Y: int(fh)}
}

// Fit scales img to the FitSize for a dstW x dstH display.
func Fit(img image.Image, dstW, dstH int, interp xdraw.Interpolator) *image.RGBA {
	b := img.Bounds()
	size := FitSize(dstW, dstH, b.Dx(), b.Dy())
	if size.X == b.Dx() && size.Y == b.Dy() {
		return ToRGBA(img)
	}
	out := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	interp.Scale(out, out.Bounds(), img, b, xdraw.Src, nil)
	return out
}
