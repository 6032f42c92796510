//go:build nocv

// Package cv provides the OpenCV backed flooding and contour engines. This
// build carries no OpenCV; every engine call fails with ErrUnavailable.
package cv

import (
	"errors"
	"image"

	"cutout/internal/contour"
	"cutout/internal/watershed"
)

// Available reports whether the OpenCV engines are compiled in.
const Available = false

// ErrUnavailable is returned by every engine in builds tagged nocv.
var ErrUnavailable = errors.New("cv: built without OpenCV")

// Flooder stands in for the OpenCV flooder.
type Flooder struct{}

var _ watershed.Flooder = Flooder{}

// Flood implements watershed.Flooder.
func (Flooder) Flood(*image.RGBA, *watershed.Labels) error {
	return ErrUnavailable
}

// ContourFinder stands in for the OpenCV contour finder.
type ContourFinder struct{}

var _ contour.Finder = ContourFinder{}

// FindExternal implements contour.Finder.
func (ContourFinder) FindExternal(*image.Alpha) ([]contour.Contour, error) {
	return nil, ErrUnavailable
}
