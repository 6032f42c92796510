package contour

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid(w, h int, set ...image.Rectangle) AlphaGrid {
	m := image.NewAlpha(image.Rect(0, 0, w, h))
	for _, r := range set {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				m.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}
	return AlphaGrid{m}
}

func TestFindExternalSquare(t *testing.T) {
	g := grid(10, 10, image.Rect(2, 3, 6, 8))
	cs := FindExternal(g)
	require.Len(t, cs, 1)
	assert.Equal(t, Contour{{2, 3}, {5, 3}, {5, 7}, {2, 7}}, cs[0])
	assert.Equal(t, image.Rect(2, 3, 6, 8), BoundingRect(cs[0]))
}

func TestFindExternalSinglePixel(t *testing.T) {
	cs := FindExternal(grid(5, 5, image.Rect(2, 2, 3, 3)))
	require.Len(t, cs, 1)
	assert.Equal(t, Contour{{2, 2}}, cs[0])
	assert.Equal(t, image.Rect(2, 2, 3, 3), BoundingRect(cs[0]))
}

func TestFindExternalDiagonalIsOneRegion(t *testing.T) {
	g := grid(6, 6, image.Rect(1, 1, 2, 2), image.Rect(2, 2, 3, 3), image.Rect(3, 3, 4, 4))
	cs := FindExternal(g)
	require.Len(t, cs, 1)
	assert.Equal(t, image.Rect(1, 1, 4, 4), BoundingRect(cs[0]))
}

func TestFindExternalSkipsNested(t *testing.T) {
	// A ring with a dot in its hole, plus a separate blob.
	g := grid(20, 20,
		image.Rect(2, 2, 11, 3), image.Rect(2, 10, 11, 11),
		image.Rect(2, 2, 3, 11), image.Rect(10, 2, 11, 11),
		image.Rect(6, 6, 7, 7),
		image.Rect(14, 14, 17, 17),
	)
	cs := FindExternal(g)
	require.Len(t, cs, 2)
	assert.Equal(t, image.Rect(2, 2, 11, 11), BoundingRect(cs[0]))
	assert.Equal(t, image.Rect(14, 14, 17, 17), BoundingRect(cs[1]))
	assert.Equal(t, image.Rect(2, 2, 17, 17), CombinedRect(cs))
	assert.Len(t, Combine(cs), len(cs[0])+len(cs[1]))
}

func TestFindExternalTouchingBorder(t *testing.T) {
	cs := FindExternal(grid(8, 8, image.Rect(0, 0, 8, 8)))
	require.Len(t, cs, 1)
	assert.Equal(t, image.Rect(0, 0, 8, 8), BoundingRect(cs[0]))
}

func TestFindExternalEmpty(t *testing.T) {
	assert.Empty(t, FindExternal(grid(8, 8)))
	assert.Equal(t, image.Rectangle{}, CombinedRect(nil))
}

func TestOpaqueGrid(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 6, 6))
	img.SetRGBA(1, 4, color.RGBA{R: 128, A: 128})
	img.SetRGBA(3, 2, color.RGBA{R: 128, A: 128})
	cs := FindExternal(OpaqueGrid{img})
	require.Len(t, cs, 2)
	assert.Equal(t, image.Rect(1, 2, 4, 5), CombinedRect(cs))
}

func TestTracerMatchesFindExternal(t *testing.T) {
	g := grid(12, 12, image.Rect(1, 1, 4, 4), image.Rect(6, 5, 10, 11))
	cs, err := Tracer{}.FindExternal(g.Alpha)
	require.NoError(t, err)
	assert.Equal(t, FindExternal(g), cs)
	assert.Equal(t, image.Rect(1, 1, 10, 11), CombinedRect(cs))
}

func TestOpaqueMask(t *testing.T) {
	img := image.NewRGBA(image.Rect(2, 2, 8, 8))
	img.SetRGBA(3, 4, color.RGBA{G: 10, A: 70})
	m := OpaqueMask(img)
	assert.Equal(t, img.Rect, m.Rect)
	assert.Equal(t, uint8(70), m.AlphaAt(3, 4).A)
	assert.Equal(t, uint8(0), m.AlphaAt(4, 4).A)
}

func TestCompress(t *testing.T) {
	c := Contour{{0, 0}, {1, 0}, {2, 0}, {2, 1}, {2, 2}, {1, 2}, {0, 2}, {0, 1}}
	assert.Equal(t, Contour{{0, 0}, {2, 0}, {2, 2}, {0, 2}}, Compress(c))
	assert.Equal(t, Contour{{1, 1}}, Compress(Contour{{1, 1}}))
}
