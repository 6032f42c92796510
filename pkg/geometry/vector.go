package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

func vec(p Point2D) r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point2D) float64 {
	return r2.Norm(r2.Sub(vec(a), vec(b)))
}

// MidPoint returns the point halfway between a and b.
func MidPoint(a, b Point2D) Point2D {
	m := r2.Scale(0.5, r2.Add(vec(a), vec(b)))
	return Point2D{X: m.X, Y: m.Y}
}

// Angle returns the signed angle in degrees that rotates vector from onto
// vector to, computed as atan2(cross, dot). On a y-down screen a positive
// angle is a clockwise turn. Zero-length vectors yield 0.
func Angle(from, to Point2D) float64 {
	u, v := vec(from), vec(to)
	if r2.Norm(u) == 0 || r2.Norm(v) == 0 {
		return 0
	}
	return math.Atan2(r2.Cross(u, v), r2.Dot(u, v)) * 180 / math.Pi
}
