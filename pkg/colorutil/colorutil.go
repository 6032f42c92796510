// Package colorutil provides shared color utilities for the cutout application.
package colorutil

import (
	"fmt"
	"image/color"
	"strings"
)

// Colors used by the stroke and preview layers.
var (
	Black       = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Transparent = color.RGBA{}

	// Ink is the visible foreground stroke color.
	Ink = White

	// Highlight marks segmented foreground: red at half alpha (premultiplied).
	Highlight = color.RGBA{R: 128, G: 0, B: 0, A: 128}

	// Backdrop fills the display behind the image.
	Backdrop = color.RGBA{R: 40, G: 40, B: 40, A: 255}
)

// ParseHex parses "#rrggbb" or "#rrggbbaa" into a premultiplied color.
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	var r, g, b uint8
	a := uint8(255)
	switch len(s) {
	case 6:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
			return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
	case 8:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x%02x", &r, &g, &b, &a); err != nil {
			return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
		}
	default:
		return color.RGBA{}, fmt.Errorf("invalid color %q: want 6 or 8 hex digits", s)
	}
	return color.RGBAModel.Convert(color.NRGBA{R: r, G: g, B: b, A: a}).(color.RGBA), nil
}
