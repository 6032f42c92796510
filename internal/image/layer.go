// Package image provides the co-registered layer stack, image conversion
// and display fitting.
package image

import (
	"image"
	"image/draw"

	"cutout/pkg/geometry"
)

// Layer is one visual surface of the workspace. All layers share the pixel
// grid of the source image and are positioned on screen by Transform.
type Layer struct {
	Name      string
	Image     *image.RGBA
	Visible   bool
	Opacity   float64 // 0.0 - 1.0
	Transform geometry.AffineTransform
}

// NewLayer creates a visible, opaque layer with the identity transform.
func NewLayer(name string, img *image.RGBA) *Layer {
	return &Layer{
		Name:      name,
		Image:     img,
		Visible:   true,
		Opacity:   1.0,
		Transform: geometry.Identity(),
	}
}

// ToRGBA returns img as an *image.RGBA anchored at the origin. The result is
// always a fresh buffer the caller owns.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// Clone deep-copies an RGBA buffer.
func Clone(src *image.RGBA) *image.RGBA {
	if src == nil {
		return nil
	}
	out := &image.RGBA{
		Pix:    make([]uint8, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	copy(out.Pix, src.Pix)
	return out
}

// NewTransparent allocates a fully transparent w x h buffer.
func NewTransparent(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// IsTransparent reports whether every pixel of img has zero alpha.
func IsTransparent(img *image.RGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			return false
		}
	}
	return true
}
