// Package marker holds the seed label surface consumed by segmentation.
package marker

import "image"

// Label is the value of one marker cell.
type Label uint8

const (
	Unmarked   Label = 0
	Foreground Label = 1
	Background Label = 2
)

func (l Label) String() string {
	switch l {
	case Unmarked:
		return "unmarked"
	case Foreground:
		return "foreground"
	case Background:
		return "background"
	default:
		return "invalid"
	}
}

// Buffer is a single-channel grid of labels over the image extent.
type Buffer struct {
	width  int
	height int
	cells  []Label
}

// New allocates an all-unmarked buffer.
func New(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{width: width, height: height, cells: make([]Label, width*height)}
}

func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }

// Bounds returns the buffer extent as a rectangle anchored at the origin.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

// At returns the label at (x, y); out of range cells read as Unmarked.
func (b *Buffer) At(x, y int) Label {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return Unmarked
	}
	return b.cells[y*b.width+x]
}

// Set writes a label; out of range writes are dropped.
func (b *Buffer) Set(x, y int, l Label) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return
	}
	b.cells[y*b.width+x] = l
}

// Count returns the number of cells carrying l.
func (b *Buffer) Count(l Label) int {
	n := 0
	for _, c := range b.cells {
		if c == l {
			n++
		}
	}
	return n
}

// Reset clears every cell to Unmarked.
func (b *Buffer) Reset() {
	clear(b.cells)
}

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{width: b.width, height: b.height, cells: make([]Label, len(b.cells))}
	copy(out.cells, b.cells)
	return out
}

// Mask returns an alpha mask that is opaque where the cell carries l.
func (b *Buffer) Mask(l Label) *image.Alpha {
	m := image.NewAlpha(b.Bounds())
	for i, c := range b.cells {
		if c == l {
			m.Pix[i] = 0xff
		}
	}
	return m
}

// Stamp sets l wherever mask is non-zero. The mask is read in buffer
// coordinates.
func (b *Buffer) Stamp(mask *image.Alpha, l Label) {
	r := mask.Bounds().Intersect(b.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if mask.AlphaAt(x, y).A != 0 {
				b.cells[y*b.width+x] = l
			}
		}
	}
}
