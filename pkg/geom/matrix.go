package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Matrix3x3 is a 3x3 matrix stored as three row vectors. It is used for
// lattice bases (rows are basis vectors) and for rotations acting on column
// vectors (MulVec computes M·v).
type Matrix3x3 [3]Vec3

// Identity returns the 3x3 identity matrix.
func Identity() Matrix3x3 {
	return Matrix3x3{
		{X: 1},
		{Y: 1},
		{Z: 1},
	}
}

// Rows builds a matrix from three row vectors.
func Rows(r0, r1, r2 Vec3) Matrix3x3 {
	return Matrix3x3{r0, r1, r2}
}

// FromFlat builds a matrix from nine row-major elements.
func FromFlat(e [9]float64) Matrix3x3 {
	return Matrix3x3{
		{X: e[0], Y: e[1], Z: e[2]},
		{X: e[3], Y: e[4], Z: e[5]},
		{X: e[6], Y: e[7], Z: e[8]},
	}
}

// Flat returns the nine elements in row-major order.
func (m Matrix3x3) Flat() [9]float64 {
	return [9]float64{
		m[0].X, m[0].Y, m[0].Z,
		m[1].X, m[1].Y, m[1].Z,
		m[2].X, m[2].Y, m[2].Z,
	}
}

// At returns the element in row r, column c.
func (m Matrix3x3) At(r, c int) float64 {
	return m[r].Component(c)
}

// Col returns column c as a vector.
func (m Matrix3x3) Col(c int) Vec3 {
	return Vec3{X: m[0].Component(c), Y: m[1].Component(c), Z: m[2].Component(c)}
}

// mgl converts to the column-major mathgl representation.
func (m Matrix3x3) mgl() mgl64.Mat3 {
	return mgl64.Mat3FromRows(
		mgl64.Vec3{m[0].X, m[0].Y, m[0].Z},
		mgl64.Vec3{m[1].X, m[1].Y, m[1].Z},
		mgl64.Vec3{m[2].X, m[2].Y, m[2].Z},
	)
}

func fromMgl(a mgl64.Mat3) Matrix3x3 {
	r0, r1, r2 := a.Rows()
	return Matrix3x3{
		{X: r0[0], Y: r0[1], Z: r0[2]},
		{X: r1[0], Y: r1[1], Z: r1[2]},
		{X: r2[0], Y: r2[1], Z: r2[2]},
	}
}

// Det returns the determinant, equal to the triple product of the rows.
func (m Matrix3x3) Det() float64 {
	return m.mgl().Det()
}

// Transpose returns Mᵀ.
func (m Matrix3x3) Transpose() Matrix3x3 {
	return fromMgl(m.mgl().Transpose())
}

// Inverse returns M⁻¹. ok is false when |det M| <= eps, in which case the
// returned matrix is the zero matrix.
func (m Matrix3x3) Inverse(eps float64) (inv Matrix3x3, ok bool) {
	a := m.mgl()
	if math.Abs(a.Det()) <= eps {
		return Matrix3x3{}, false
	}
	return fromMgl(a.Inv()), true
}

// Mul returns the matrix product M·o.
func (m Matrix3x3) Mul(o Matrix3x3) Matrix3x3 {
	return fromMgl(m.mgl().Mul3(o.mgl()))
}

// MulVec returns M·v with v treated as a column vector.
func (m Matrix3x3) MulVec(v Vec3) Vec3 {
	return Vec3{X: m[0].Dot(v), Y: m[1].Dot(v), Z: m[2].Dot(v)}
}

// Scale returns k*M.
func (m Matrix3x3) Scale(k float64) Matrix3x3 {
	return Matrix3x3{m[0].Scale(k), m[1].Scale(k), m[2].Scale(k)}
}

// ApproxEqual reports whether all elements differ by at most tol.
func (m Matrix3x3) ApproxEqual(o Matrix3x3, tol float64) bool {
	return m[0].ApproxEqual(o[0], tol) &&
		m[1].ApproxEqual(o[1], tol) &&
		m[2].ApproxEqual(o[2], tol)
}

// IsIdentity reports whether M is the identity within tol.
func (m Matrix3x3) IsIdentity(tol float64) bool {
	return m.ApproxEqual(Identity(), tol)
}
