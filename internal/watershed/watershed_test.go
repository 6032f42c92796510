package watershed

import (
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"cutout/internal/contour"
	"cutout/internal/marker"
	"cutout/pkg/colorutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// squareImage is white with a black square covering [lo, hi) on both axes.
func squareImage(size, lo, hi int) *image.RGBA {
	img := uniform(size, size, colorutil.White)
	for y := lo; y < hi; y++ {
		for x := lo; x < hi; x++ {
			img.SetRGBA(x, y, colorutil.Black)
		}
	}
	return img
}

func strokeMarkers(w, h int, from, to image.Point, r int) *marker.Buffer {
	m := marker.New(w, h)
	steps := max(abs(to.X-from.X), abs(to.Y-from.Y))
	for s := 0; s <= steps; s++ {
		cx := from.X + (to.X-from.X)*s/max(steps, 1)
		cy := from.Y + (to.Y-from.Y)*s/max(steps, 1)
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				m.Set(cx+dx, cy+dy, marker.Foreground)
			}
		}
	}
	return m
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestMeyerFlooderSplitsBetweenSeeds(t *testing.T) {
	src := uniform(7, 3, colorutil.White)
	labels := NewLabels(7, 3)
	labels.Set(1, 1, 1)
	labels.Set(5, 1, 2)

	require.NoError(t, MeyerFlooder{}.Flood(src, labels))
	row := []int32{labels.At(0, 1), labels.At(1, 1), labels.At(2, 1), labels.At(3, 1), labels.At(4, 1), labels.At(5, 1), labels.At(6, 1)}
	assert.Equal(t, []int32{Boundary, 1, 1, Boundary, 2, 2, Boundary}, row)
	for x := 0; x < 7; x++ {
		assert.Equal(t, Boundary, labels.At(x, 0))
		assert.Equal(t, Boundary, labels.At(x, 2))
	}
}

func TestMeyerFlooderFollowsEdges(t *testing.T) {
	src := squareImage(60, 20, 40)
	labels := NewLabels(60, 60)
	labels.Set(30, 30, 1)
	labels.Set(5, 5, 2)

	require.NoError(t, MeyerFlooder{}.Flood(src, labels))
	assert.Equal(t, int32(1), labels.At(25, 25))
	assert.Equal(t, int32(1), labels.At(35, 22))
	assert.Equal(t, int32(2), labels.At(50, 50))
	assert.Equal(t, int32(2), labels.At(10, 30))
}

func TestMeyerFlooderSizeMismatch(t *testing.T) {
	err := MeyerFlooder{}.Flood(uniform(4, 4, colorutil.White), NewLabels(5, 4))
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestSegmentFindsObject(t *testing.T) {
	src := squareImage(120, 40, 80)
	markers := strokeMarkers(120, 120, image.Pt(50, 50), image.Pt(70, 70), 2)
	preview := image.NewRGBA(src.Bounds())

	res, err := NewSegmenter().Segment(src, markers, preview, 4)
	require.NoError(t, err)
	assert.False(t, res.Empty)
	assert.LessOrEqual(t, res.Rounds, MaxRounds)
	assert.Greater(t, res.Area, 0)

	assert.True(t, res.Bounds.In(image.Rect(38, 38, 82, 82)), "bounds %v", res.Bounds)
	assert.True(t, image.Rect(44, 44, 76, 76).In(res.Bounds), "bounds %v", res.Bounds)
	assert.Equal(t, colorutil.Highlight, preview.RGBAAt(60, 60))
	assert.Equal(t, color.RGBA{}, preview.RGBAAt(10, 10))
	assert.Equal(t, 0, markers.Count(marker.Foreground))
}

type failingFinder struct{ err error }

func (f failingFinder) FindExternal(*image.Alpha) ([]contour.Contour, error) {
	return nil, f.err
}

func TestSegmentContourFinderError(t *testing.T) {
	src := squareImage(120, 40, 80)
	markers := strokeMarkers(120, 120, image.Pt(50, 50), image.Pt(70, 70), 2)
	preview := image.NewRGBA(src.Bounds())

	boom := errors.New("boom")
	_, err := NewSegmenter(WithContourFinder(failingFinder{err: boom})).Segment(src, markers, preview, 4)
	assert.ErrorIs(t, err, boom)
	assert.Greater(t, markers.Count(marker.Foreground), 0)
}

func TestSegmentUniformImage(t *testing.T) {
	src := uniform(100, 100, color.RGBA{R: 90, G: 120, B: 40, A: 255})
	markers := strokeMarkers(100, 100, image.Pt(20, 20), image.Pt(80, 80), 4)
	preview := image.NewRGBA(src.Bounds())

	res, err := NewSegmenter().Segment(src, markers, preview, 8)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Bounds.Dx(), 60)
	assert.GreaterOrEqual(t, res.Bounds.Dy(), 60)
	assert.LessOrEqual(t, res.Bounds.Dx(), 100)
	assert.LessOrEqual(t, res.Bounds.Dy(), 100)
}

func TestSegmentIsEmptyOnceMarkersAreCleared(t *testing.T) {
	src := squareImage(80, 20, 60)
	markers := strokeMarkers(80, 80, image.Pt(30, 30), image.Pt(50, 50), 2)
	preview := image.NewRGBA(src.Bounds())
	seg := NewSegmenter()

	first, err := seg.Segment(src, markers, preview, 4)
	require.NoError(t, err)
	require.False(t, first.Empty)
	before := append([]uint8(nil), preview.Pix...)

	second, err := seg.Segment(src, markers, preview, 4)
	require.NoError(t, err)
	assert.True(t, second.Empty)
	assert.Equal(t, image.Rectangle{}, second.Bounds)
	assert.Equal(t, 0, second.Rounds)
	assert.Equal(t, before, preview.Pix)
}

func TestSegmentSinglePixelTerminates(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	src := image.NewRGBA(image.Rect(0, 0, 64, 64))
	rng.Read(src.Pix)
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
	}
	markers := marker.New(64, 64)
	markers.Set(32, 32, marker.Foreground)

	res, err := NewSegmenter().Segment(src, markers, image.NewRGBA(src.Bounds()), 8)
	require.NoError(t, err)
	assert.False(t, res.Empty)
	assert.GreaterOrEqual(t, res.Rounds, 1)
	assert.LessOrEqual(t, res.Rounds, MaxRounds)
}

func TestSegmentBackgroundMarkersWin(t *testing.T) {
	src := uniform(60, 60, colorutil.White)
	markers := strokeMarkers(60, 60, image.Pt(20, 30), image.Pt(40, 30), 2)
	markers.Set(30, 30, marker.Background)
	preview := image.NewRGBA(src.Bounds())

	_, err := NewSegmenter().Segment(src, markers, preview, 2)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{}, preview.RGBAAt(30, 30))
	assert.Equal(t, colorutil.Highlight, preview.RGBAAt(25, 30))
	assert.Equal(t, 0, markers.Count(marker.Background))
}

func TestSegmentSizeMismatch(t *testing.T) {
	_, err := NewSegmenter().Segment(uniform(10, 10, colorutil.White), marker.New(10, 10), image.NewRGBA(image.Rect(0, 0, 9, 10)), 8)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

type stubFlooder struct {
	calls int
	fill  func(round int, labels *Labels)
	err   error
}

func (s *stubFlooder) Flood(_ *image.RGBA, labels *Labels) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.fill(s.calls-1, labels)
	return nil
}

func TestSegmentRoundCap(t *testing.T) {
	for _, tc := range []struct {
		name   string
		fill   func(round int, labels *Labels)
		rounds int
	}{
		{
			name: "always growing stops at the cap",
			fill: func(round int, l *Labels) {
				for i := 0; i < 10*(round+1); i++ {
					l.Data[i] = 1
				}
			},
			rounds: MaxRounds,
		},
		{
			name: "nothing found stops after one round",
			fill: func(_ int, l *Labels) {
				for i := range l.Data {
					l.Data[i] = 2
				}
			},
			rounds: 1,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubFlooder{fill: tc.fill}
			markers := marker.New(20, 20)
			markers.Set(10, 10, marker.Foreground)

			res, err := NewSegmenter(WithFlooder(stub)).Segment(uniform(20, 20, colorutil.White), markers, image.NewRGBA(image.Rect(0, 0, 20, 20)), 1)
			require.NoError(t, err)
			assert.Equal(t, tc.rounds, res.Rounds)
			assert.Equal(t, tc.rounds, stub.calls)
		})
	}
}

func TestSegmentFloodErrorKeepsMarkers(t *testing.T) {
	boom := errors.New("boom")
	markers := marker.New(20, 20)
	markers.Set(10, 10, marker.Foreground)

	_, err := NewSegmenter(WithFlooder(&stubFlooder{err: boom})).Segment(uniform(20, 20, colorutil.White), markers, image.NewRGBA(image.Rect(0, 0, 20, 20)), 1)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, markers.Count(marker.Foreground))
}

func TestBounds(t *testing.T) {
	preview := image.NewRGBA(image.Rect(0, 0, 30, 30))
	assert.Equal(t, image.Rectangle{}, Bounds(preview))
	preview.SetRGBA(3, 4, colorutil.Highlight)
	preview.SetRGBA(20, 25, colorutil.Highlight)
	assert.Equal(t, image.Rect(3, 4, 21, 26), Bounds(preview))
}
