// Package contour finds the outer borders of binary regions and their
// bounding rectangles.
package contour

import "image"

// Contour is the closed outer border of one region, in pixel indices.
type Contour []image.Point

// Grid is a binary image: In reports whether a pixel belongs to a region.
// Pixels outside Bounds are never in.
type Grid interface {
	Bounds() image.Rectangle
	In(x, y int) bool
}

// AlphaGrid treats every non-zero pixel of an alpha mask as set.
type AlphaGrid struct {
	*image.Alpha
}

func (g AlphaGrid) In(x, y int) bool {
	if !(image.Point{X: x, Y: y}).In(g.Rect) {
		return false
	}
	return g.Pix[g.PixOffset(x, y)] != 0
}

// OpaqueGrid treats every pixel of an RGBA image with non-zero alpha as set.
type OpaqueGrid struct {
	*image.RGBA
}

func (g OpaqueGrid) In(x, y int) bool {
	if !(image.Point{X: x, Y: y}).In(g.Rect) {
		return false
	}
	return g.Pix[g.PixOffset(x, y)+3] != 0
}

// Finder extracts the external contours of a binary mask, where every
// non-zero pixel is set.
type Finder interface {
	FindExternal(mask *image.Alpha) ([]Contour, error)
}

// Tracer is the pure Go Finder.
type Tracer struct{}

var _ Finder = Tracer{}

// FindExternal implements Finder.
func (Tracer) FindExternal(mask *image.Alpha) ([]Contour, error) {
	return FindExternal(AlphaGrid{Alpha: mask}), nil
}

// OpaqueMask copies the alpha channel of img into a mask with the same
// bounds.
func OpaqueMask(img *image.RGBA) *image.Alpha {
	out := image.NewAlpha(img.Rect)
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		src := img.Pix[img.PixOffset(img.Rect.Min.X, y):]
		dst := out.Pix[out.PixOffset(img.Rect.Min.X, y):]
		for x := 0; x < img.Rect.Dx(); x++ {
			dst[x] = src[4*x+3]
		}
	}
	return out
}

// Clockwise neighbour offsets on a y-down grid, starting east.
var neighbours = [8]image.Point{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

const west = 4

func direction(d image.Point) int {
	for i, n := range neighbours {
		if n == d {
			return i
		}
	}
	return -1
}

// FindExternal returns the outer contour of every 8-connected region that is
// not enclosed by another region. Regions sitting inside a hole of another
// region are skipped. Contours come in raster order of their top-left pixel
// and are compressed so that straight runs keep only their end points.
func FindExternal(g Grid) []Contour {
	b := g.Bounds()
	if b.Empty() {
		return nil
	}
	w, h := b.Dx(), b.Dy()
	idx := func(x, y int) int { return (y-b.Min.Y)*w + (x - b.Min.X) }

	outside := outerBackground(g)
	seen := make([]bool, w*h)

	var out []Contour
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if seen[idx(x, y)] || !g.In(x, y) {
				continue
			}
			external, size := component(g, image.Pt(x, y), seen, outside, idx)
			if !external {
				continue
			}
			out = append(out, Compress(trace(g, image.Pt(x, y), size)))
		}
	}
	return out
}

// outerBackground marks the background pixels 4-connected to the area
// outside the grid.
func outerBackground(g Grid) []bool {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]bool, w*h)
	var stack []image.Point
	push := func(x, y int) {
		i := (y-b.Min.Y)*w + (x - b.Min.X)
		if out[i] || g.In(x, y) {
			return
		}
		out[i] = true
		stack = append(stack, image.Pt(x, y))
	}
	for x := b.Min.X; x < b.Max.X; x++ {
		push(x, b.Min.Y)
		push(x, b.Max.Y-1)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		push(b.Min.X, y)
		push(b.Max.X-1, y)
	}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range []image.Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			q := p.Add(d)
			if q.In(b) {
				push(q.X, q.Y)
			}
		}
	}
	return out
}

// component floods the 8-connected region containing start, marking it
// seen. It reports whether the region touches the outer background and its
// pixel count.
func component(g Grid, start image.Point, seen, outside []bool, idx func(x, y int) int) (bool, int) {
	b := g.Bounds()
	external := false
	size := 0
	stack := []image.Point{start}
	seen[idx(start.X, start.Y)] = true
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		size++
		for i, d := range neighbours {
			q := p.Add(d)
			if !q.In(b) {
				if i%2 == 0 {
					external = true
				}
				continue
			}
			if g.In(q.X, q.Y) {
				if !seen[idx(q.X, q.Y)] {
					seen[idx(q.X, q.Y)] = true
					stack = append(stack, q)
				}
			} else if i%2 == 0 && outside[idx(q.X, q.Y)] {
				external = true
			}
		}
	}
	return external, size
}

// trace walks the outer border clockwise from start, the top-left pixel of
// its region, using Moore neighbour tracing with Jacob's stopping rule.
func trace(g Grid, start image.Point, size int) Contour {
	pts := Contour{start}
	p := start
	back := west
	var first image.Point
	limit := 8*size + 8

	for step := 0; step < limit; step++ {
		next, nextBack, ok := advance(g, p, back)
		if !ok {
			return pts
		}
		if step == 0 {
			first = next
		} else if p == start && next == first {
			break
		}
		p, back = next, nextBack
		pts = append(pts, p)
	}
	if len(pts) > 1 && pts[len(pts)-1] == start {
		pts = pts[:len(pts)-1]
	}
	return pts
}

// advance finds the first set neighbour of p clockwise after the backtrack
// direction. It returns the neighbour and the backtrack direction seen from
// it.
func advance(g Grid, p image.Point, back int) (image.Point, int, bool) {
	for i := 1; i <= 8; i++ {
		d := (back + i) % 8
		q := p.Add(neighbours[d])
		if !g.In(q.X, q.Y) {
			continue
		}
		prev := p.Add(neighbours[(back+i-1)%8])
		return q, direction(prev.Sub(q)), true
	}
	return p, back, false
}

// Compress drops every point lying on a straight run between its
// neighbours, keeping the corners of a closed contour.
func Compress(c Contour) Contour {
	if len(c) < 3 {
		return c
	}
	out := make(Contour, 0, len(c))
	n := len(c)
	for i, p := range c {
		in := p.Sub(c[(i+n-1)%n])
		outDir := c[(i+1)%n].Sub(p)
		if in != outDir {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return Contour{c[0]}
	}
	return out
}

// BoundingRect returns the smallest rectangle holding every point.
func BoundingRect(c Contour) image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: c[0], Max: c[0].Add(image.Pt(1, 1))}
	for _, p := range c[1:] {
		r = r.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
	}
	return r
}

// Combine concatenates the contours into one point set, in order.
func Combine(cs []Contour) Contour {
	n := 0
	for _, c := range cs {
		n += len(c)
	}
	out := make(Contour, 0, n)
	for _, c := range cs {
		out = append(out, c...)
	}
	return out
}

// CombinedRect is the bounding rectangle of every contour together.
func CombinedRect(cs []Contour) image.Rectangle {
	var r image.Rectangle
	for _, c := range cs {
		r = r.Union(BoundingRect(c))
	}
	return r
}
