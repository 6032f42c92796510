//go:build !nocv

// Package cv provides the OpenCV backed flooding and contour engines.
package cv

import (
	"fmt"
	"image"

	cutimage "cutout/internal/image"
	"cutout/internal/watershed"

	"gocv.io/x/gocv"
)

// Available reports whether the OpenCV engines are compiled in.
const Available = true

// Flooder runs cv::watershed through gocv. It satisfies watershed.Flooder.
type Flooder struct{}

var _ watershed.Flooder = Flooder{}

// Flood implements watershed.Flooder.
func (Flooder) Flood(src *image.RGBA, labels *watershed.Labels) error {
	w, h := labels.Width, labels.Height
	if src.Bounds().Dx() != w || src.Bounds().Dy() != h {
		return watershed.ErrSizeMismatch
	}
	if src.Stride != 4*w || src.Rect.Min != (image.Point{}) {
		src = cutimage.ToRGBA(src)
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, src.Pix)
	if err != nil {
		return fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)

	markers := gocv.NewMatWithSize(h, w, gocv.MatTypeCV32S)
	defer markers.Close()
	data, err := markers.DataPtrInt32()
	if err != nil {
		return fmt.Errorf("failed to access markers: %w", err)
	}
	copy(data, labels.Data)

	gocv.Watershed(bgr, &markers)

	copy(labels.Data, data)
	return nil
}
