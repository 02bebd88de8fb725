package engine

import (
	"math"
	"strings"

	"github.com/pictoforge/pictoforge/backend-go/internal/pathdata"
)

// Matrix2D represents a 2D affine transformation matrix.
// Layout: [a, b, c, d, e, f] representing:
// | a  c  e |
// | b  d  f |
// | 0  0  1 |
//
// This is the same order as the SVG matrix(a b c d e f) function.
type Matrix2D [6]float64

// Identity returns the identity matrix.
func Identity() Matrix2D {
	return Matrix2D{1, 0, 0, 1, 0, 0}
}

// Translate returns a translation matrix.
func Translate(tx, ty float64) Matrix2D {
	return Matrix2D{1, 0, 0, 1, tx, ty}
}

// Scale returns a scale matrix.
func Scale(sx, sy float64) Matrix2D {
	return Matrix2D{sx, 0, 0, sy, 0, 0}
}

// Rotate returns a rotation matrix (angle in radians). Positive angles turn
// clockwise on screen because the SVG y axis points down.
func Rotate(radians float64) Matrix2D {
	sin, cos := math.Sincos(radians)
	return Matrix2D{cos, sin, -sin, cos, 0, 0}
}

// RotateDegrees returns a rotation matrix (angle in degrees).
func RotateDegrees(degrees float64) Matrix2D {
	return Rotate(degrees * math.Pi / 180.0)
}

// RotateAround rotates by degrees about (cx, cy), as rotate(a cx cy) does.
func RotateAround(degrees, cx, cy float64) Matrix2D {
	return Translate(cx, cy).Multiply(RotateDegrees(degrees)).Multiply(Translate(-cx, -cy))
}

// ScaleAround scales about the fixed point (cx, cy).
func ScaleAround(sx, sy, cx, cy float64) Matrix2D {
	return Translate(cx, cy).Multiply(Scale(sx, sy)).Multiply(Translate(-cx, -cy))
}

func SkewX(degrees float64) Matrix2D {
	return Matrix2D{1, 0, math.Tan(degrees * math.Pi / 180), 1, 0, 0}
}

func SkewY(degrees float64) Matrix2D {
	return Matrix2D{1, math.Tan(degrees * math.Pi / 180), 0, 1, 0, 0}
}

// Multiply multiplies this matrix by another: result = m * other
// This applies 'other' first, then 'm'.
func (m Matrix2D) Multiply(other Matrix2D) Matrix2D {
	return Matrix2D{
		m[0]*other[0] + m[2]*other[1],        // a
		m[1]*other[0] + m[3]*other[1],        // b
		m[0]*other[2] + m[2]*other[3],        // c
		m[1]*other[2] + m[3]*other[3],        // d
		m[0]*other[4] + m[2]*other[5] + m[4], // e
		m[1]*other[4] + m[3]*other[5] + m[5], // f
	}
}

// TransformPoint applies the matrix to a point.
func (m Matrix2D) TransformPoint(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// TransformVector applies only the linear part, ignoring translation.
func (m Matrix2D) TransformVector(dx, dy float64) (float64, float64) {
	return m[0]*dx + m[2]*dy, m[1]*dx + m[3]*dy
}

func (m Matrix2D) point(p pathdata.Point) pathdata.Point {
	x, y := m.TransformPoint(p.X, p.Y)
	return pathdata.Point{X: x, Y: y}
}

// Linear returns the matrix with its translation removed.
func (m Matrix2D) Linear() Matrix2D {
	return Matrix2D{m[0], m[1], m[2], m[3], 0, 0}
}

// Determinant returns the determinant of the matrix.
func (m Matrix2D) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// Invertible reports whether the matrix has a usable inverse.
func (m Matrix2D) Invertible() bool {
	det := m.Determinant()
	return det != 0 && !math.IsNaN(det) && !math.IsInf(det, 0)
}

// Invert returns the inverse of the matrix, or Identity if not invertible.
func (m Matrix2D) Invert() Matrix2D {
	if !m.Invertible() {
		return Identity()
	}
	invDet := 1.0 / m.Determinant()
	return Matrix2D{
		m[3] * invDet,
		-m[1] * invDet,
		-m[2] * invDet,
		m[0] * invDet,
		(m[2]*m[5] - m[3]*m[4]) * invDet,
		(m[1]*m[4] - m[0]*m[5]) * invDet,
	}
}

// ToSlice returns the matrix as a float64 slice for JSON serialization.
func (m Matrix2D) ToSlice() []float64 {
	return []float64{m[0], m[1], m[2], m[3], m[4], m[5]}
}

// IsIdentity checks if this is the identity matrix (within epsilon).
func (m Matrix2D) IsIdentity() bool {
	const eps = 1e-10
	return math.Abs(m[0]-1) < eps &&
		math.Abs(m[1]) < eps &&
		math.Abs(m[2]) < eps &&
		math.Abs(m[3]-1) < eps &&
		math.Abs(m[4]) < eps &&
		math.Abs(m[5]) < eps
}

// String formats the matrix as an SVG transform attribute value.
func (m Matrix2D) String() string {
	var sb strings.Builder
	sb.WriteString("matrix(")
	for i, v := range m {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(pathdata.FormatNumber(v))
	}
	sb.WriteByte(')')
	return sb.String()
}
