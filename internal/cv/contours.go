//go:build !nocv

package cv

import (
	"fmt"
	"image"

	"cutout/internal/contour"

	"gocv.io/x/gocv"
)

// ContourFinder runs cv::findContours through gocv. It satisfies
// contour.Finder.
type ContourFinder struct{}

var _ contour.Finder = ContourFinder{}

// FindExternal implements contour.Finder with external retrieval and simple
// chain approximation. Points are returned in the mask's coordinates.
func (ContourFinder) FindExternal(mask *image.Alpha) ([]contour.Contour, error) {
	b := mask.Bounds()
	if b.Empty() {
		return nil, nil
	}
	w, h := b.Dx(), b.Dy()
	pix := mask.Pix
	if mask.Stride != w {
		pix = make([]byte, w*h)
		for y := 0; y < h; y++ {
			copy(pix[y*w:(y+1)*w], mask.Pix[y*mask.Stride:])
		}
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, pix)
	if err != nil {
		return nil, fmt.Errorf("failed to convert mask: %w", err)
	}
	defer mat.Close()

	contours := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	out := make([]contour.Contour, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		pts := contours.At(i).ToPoints()
		c := make(contour.Contour, len(pts))
		for j, p := range pts {
			c[j] = p.Add(b.Min)
		}
		out = append(out, c)
	}
	return out, nil
}
