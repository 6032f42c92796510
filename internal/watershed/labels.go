package watershed

import (
	"image"

	"cutout/internal/marker"
)

// Boundary marks pixels where two flooded regions meet.
const Boundary int32 = -1

// Labels is the signed seed/result grid used by flooding. Positive values
// are region labels, zero is unassigned.
type Labels struct {
	Width  int
	Height int
	Data   []int32
}

// NewLabels allocates a zeroed w x h grid.
func NewLabels(w, h int) *Labels {
	return &Labels{Width: w, Height: h, Data: make([]int32, w*h)}
}

// At returns the label at (x, y), or zero outside the grid.
func (l *Labels) At(x, y int) int32 {
	if x < 0 || y < 0 || x >= l.Width || y >= l.Height {
		return 0
	}
	return l.Data[y*l.Width+x]
}

// Set writes a label; writes outside the grid are dropped.
func (l *Labels) Set(x, y int, v int32) {
	if x < 0 || y < 0 || x >= l.Width || y >= l.Height {
		return
	}
	l.Data[y*l.Width+x] = v
}

// Stamp writes v wherever mask is set.
func (l *Labels) Stamp(mask *image.Alpha, v int32) {
	r := mask.Bounds().Intersect(image.Rect(0, 0, l.Width, l.Height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if mask.Pix[mask.PixOffset(x, y)] != 0 {
				l.Data[y*l.Width+x] = v
			}
		}
	}
}

// Mask returns an alpha mask that is opaque where the label equals v.
func (l *Labels) Mask(v int32) (*image.Alpha, int) {
	m := image.NewAlpha(image.Rect(0, 0, l.Width, l.Height))
	n := 0
	for i, c := range l.Data {
		if c == v {
			m.Pix[i] = 0xff
			n++
		}
	}
	return m, n
}

func label(l marker.Label) int32 {
	return int32(l)
}
