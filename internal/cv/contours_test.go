//go:build !nocv

package cv

import (
	"image"
	"image/color"
	"testing"

	"cutout/internal/contour"
	"cutout/internal/marker"
	"cutout/internal/watershed"
	"cutout/pkg/colorutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContourFinderMatchesTracer(t *testing.T) {
	mask := image.NewAlpha(image.Rect(0, 0, 40, 30))
	for _, r := range []image.Rectangle{image.Rect(3, 4, 12, 10), image.Rect(20, 15, 35, 28)} {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				mask.SetAlpha(x, y, color.Alpha{A: 255})
			}
		}
	}

	native, err := contour.Tracer{}.FindExternal(mask)
	require.NoError(t, err)
	opencv, err := ContourFinder{}.FindExternal(mask)
	require.NoError(t, err)

	require.Len(t, opencv, len(native))
	assert.Equal(t, contour.CombinedRect(native), contour.CombinedRect(opencv))
	assert.ElementsMatch(t, rects(native), rects(opencv))
}

func TestContourFinderOffsetMask(t *testing.T) {
	mask := image.NewAlpha(image.Rect(10, 10, 30, 30))
	mask.SetAlpha(15, 18, color.Alpha{A: 255})
	mask.SetAlpha(16, 18, color.Alpha{A: 255})
	cs, err := ContourFinder{}.FindExternal(mask.SubImage(image.Rect(12, 12, 25, 25)).(*image.Alpha))
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, image.Rect(15, 18, 17, 19), contour.BoundingRect(cs[0]))
}

func TestSegmenterWithOpenCVEngine(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 80, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 80; x++ {
			c := colorutil.White
			if x >= 30 && x < 50 && y >= 30 && y < 50 {
				c = colorutil.Black
			}
			src.SetRGBA(x, y, c)
		}
	}
	run := func(opts ...watershed.Option) watershed.Result {
		markers := marker.New(80, 80)
		for x := 36; x < 44; x++ {
			markers.Set(x, 40, marker.Foreground)
		}
		preview := image.NewRGBA(src.Rect)
		res, err := watershed.NewSegmenter(opts...).Segment(src, markers, preview, 1)
		require.NoError(t, err)
		return res
	}

	native := run()
	traced := run(watershed.WithContourFinder(ContourFinder{}))
	assert.Equal(t, native.Bounds, traced.Bounds)

	opencv := run(watershed.WithFlooder(Flooder{}), watershed.WithContourFinder(ContourFinder{}))
	require.False(t, opencv.Empty)
	assert.True(t, image.Rect(32, 32, 48, 48).In(opencv.Bounds), "bounds %v", opencv.Bounds)
	assert.True(t, opencv.Bounds.In(image.Rect(25, 25, 55, 55)), "bounds %v", opencv.Bounds)
}

func rects(cs []contour.Contour) []image.Rectangle {
	out := make([]image.Rectangle, len(cs))
	for i, c := range cs {
		out[i] = contour.BoundingRect(c)
	}
	return out
}
