// Package lattice computes reciprocal lattices and builds direct lattices
// from conventional cell parameters.
package lattice

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/kspace/pkg/geom"
)

// DegenerateEps is the smallest |a1·(a2×a3)| accepted as a real cell.
const DegenerateEps = 1e-10

var (
	// ErrDegenerate is returned for a basis with (near) zero cell volume.
	ErrDegenerate = errors.New("lattice: degenerate lattice (zero cell volume)")

	// ErrInvalidParameters is returned for non-positive lengths or angles
	// that do not describe a cell.
	ErrInvalidParameters = errors.New("lattice: invalid cell parameters")
)

// Lattice is a direct-space basis: rows are a1, a2, a3.
type Lattice geom.Matrix3x3

// Reciprocal is a reciprocal basis: rows are b1, b2, b3 with
// a_i·b_j = 2π δ_ij.
type Reciprocal geom.Matrix3x3

// FromRows builds a lattice from three basis vectors.
func FromRows(a1, a2, a3 geom.Vec3) Lattice {
	return Lattice{a1, a2, a3}
}

// Matrix returns the basis as a plain matrix.
func (l Lattice) Matrix() geom.Matrix3x3 { return geom.Matrix3x3(l) }

// Matrix returns the basis as a plain matrix.
func (r Reciprocal) Matrix() geom.Matrix3x3 { return geom.Matrix3x3(r) }

// Volume returns the signed triple product a1·(a2×a3).
func (l Lattice) Volume() float64 {
	return geom.TripleProduct(l[0], l[1], l[2])
}

// Volume returns the signed triple product b1·(b2×b3), the volume of the
// first Brillouin zone.
func (r Reciprocal) Volume() float64 {
	return geom.TripleProduct(r[0], r[1], r[2])
}

// Vector returns h·b1 + k·b2 + l·b3.
func (r Reciprocal) Vector(h, k, l int) geom.Vec3 {
	return r[0].Scale(float64(h)).Add(r[1].Scale(float64(k))).Add(r[2].Scale(float64(l)))
}

// ReciprocalOf returns the reciprocal basis
//
//	b1 = 2π (a2×a3)/V, b2 = 2π (a3×a1)/V, b3 = 2π (a1×a2)/V
//
// with V = a1·(a2×a3). It fails with ErrDegenerate when |V| < DegenerateEps.
func ReciprocalOf(l Lattice) (Reciprocal, error) {
	v := l.Volume()
	if math.Abs(v) < DegenerateEps || math.IsNaN(v) {
		return Reciprocal{}, fmt.Errorf("%w: volume %g", ErrDegenerate, v)
	}
	k := 2 * math.Pi / v
	return Reciprocal{
		l[1].Cross(l[2]).Scale(k),
		l[2].Cross(l[0]).Scale(k),
		l[0].Cross(l[1]).Scale(k),
	}, nil
}

// Direct returns the direct lattice whose reciprocal is r. Applying
// ReciprocalOf to the result reproduces r.
func (r Reciprocal) Direct() (Lattice, error) {
	d, err := ReciprocalOf(Lattice(r))
	if err != nil {
		return Lattice{}, err
	}
	return Lattice(d), nil
}
