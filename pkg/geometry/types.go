// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	return Distance(p, other)
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// AffineTransform represents a 2x3 affine transformation matrix.
// [a b tx]
// [c d ty]
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Identity returns the identity transform.
func Identity() AffineTransform {
	return AffineTransform{A: 1, D: 1}
}

// Translation returns a translation transform.
func Translation(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, TX: tx, TY: ty}
}

// Rotation returns a rotation transform around the origin.
func Rotation(radians float64) AffineTransform {
	cos := math.Cos(radians)
	sin := math.Sin(radians)
	return AffineTransform{A: cos, B: -sin, C: sin, D: cos}
}

// Scale returns a scaling transform.
func Scale(sx, sy float64) AffineTransform {
	return AffineTransform{A: sx, D: sy}
}

// Apply applies the transform to a point.
func (t AffineTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// Compose returns this transform composed with another (this * other).
// The result applies other first, then t.
func (t AffineTransform) Compose(other AffineTransform) AffineTransform {
	return AffineTransform{
		A:  t.A*other.A + t.B*other.C,
		B:  t.A*other.B + t.B*other.D,
		TX: t.A*other.TX + t.B*other.TY + t.TX,
		C:  t.C*other.A + t.D*other.C,
		D:  t.C*other.B + t.D*other.D,
		TY: t.C*other.TX + t.D*other.TY + t.TY,
	}
}

// Inverse returns the inverse transform, if it exists.
func (t AffineTransform) Inverse() (AffineTransform, bool) {
	det := t.A*t.D - t.B*t.C
	if math.Abs(det) < 1e-10 {
		return AffineTransform{}, false
	}

	invDet := 1.0 / det
	return AffineTransform{
		A:  t.D * invDet,
		B:  -t.B * invDet,
		TX: (t.B*t.TY - t.D*t.TX) * invDet,
		C:  -t.C * invDet,
		D:  t.A * invDet,
		TY: (t.C*t.TX - t.A*t.TY) * invDet,
	}, true
}

// PostTranslate returns t followed by a translation of (dx, dy).
func (t AffineTransform) PostTranslate(dx, dy float64) AffineTransform {
	return Translation(dx, dy).Compose(t)
}

// PostScale returns t followed by a uniform scale of s around pivot.
func (t AffineTransform) PostScale(s float64, pivot Point2D) AffineTransform {
	return aroundPivot(Scale(s, s), pivot).Compose(t)
}

// PostRotate returns t followed by a rotation of deg degrees around pivot.
// Positive angles rotate clockwise on a y-down screen.
func (t AffineTransform) PostRotate(deg float64, pivot Point2D) AffineTransform {
	return aroundPivot(Rotation(deg*math.Pi/180), pivot).Compose(t)
}

func aroundPivot(m AffineTransform, pivot Point2D) AffineTransform {
	return Translation(pivot.X, pivot.Y).Compose(m).Compose(Translation(-pivot.X, -pivot.Y))
}

// Translate returns the translation component.
func (t AffineTransform) Translate() Point2D {
	return Point2D{X: t.TX, Y: t.TY}
}

// ScaleFactor returns the uniform scale encoded in the transform. For a
// rotation-free transform this is simply A.
func (t AffineTransform) ScaleFactor() float64 {
	return math.Hypot(t.A, t.C)
}

// RotationDegrees returns the rotation encoded in the transform.
func (t AffineTransform) RotationDegrees() float64 {
	return math.Atan2(t.C, t.A) * 180 / math.Pi
}

// ApproxEqual reports whether every coefficient differs by at most eps.
func (t AffineTransform) ApproxEqual(other AffineTransform, eps float64) bool {
	a, b := t.ToMatrix(), other.ToMatrix()
	for i := range a {
		for j := range a[i] {
			if math.Abs(a[i][j]-b[i][j]) > eps {
				return false
			}
		}
	}
	return true
}

// ToMatrix returns the transform as a [2][3]float64 array.
func (t AffineTransform) ToMatrix() [2][3]float64 {
	return [2][3]float64{
		{t.A, t.B, t.TX},
		{t.C, t.D, t.TY},
	}
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
