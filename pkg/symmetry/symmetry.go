// Package symmetry reduces external space-group operations to a point
// group and converts fractional rotations into the Cartesian frame of
// reciprocal space.
//
// Symmetry detection is not done here; operations come from an external
// dataset as {rotation [9], translation [3]} records.
package symmetry

import (
	"github.com/chazu/kspace/pkg/geom"
)

const (
	// RotationTolerance is the element-wise tolerance for treating two
	// rotations as the same operation.
	RotationTolerance = 1e-6

	// SingularEps is the |det| below which a rotation or basis cannot be
	// inverted.
	SingularEps = 1e-10
)

// FractionalRotation is a rotation expressed in direct-lattice fractional
// coordinates, as symmetry datasets report it.
type FractionalRotation geom.Matrix3x3

// CartesianRotation acts on Cartesian reciprocal-space vectors.
type CartesianRotation geom.Matrix3x3

// Matrix returns r as a plain matrix.
func (r FractionalRotation) Matrix() geom.Matrix3x3 { return geom.Matrix3x3(r) }

// Matrix returns r as a plain matrix.
func (r CartesianRotation) Matrix() geom.Matrix3x3 { return geom.Matrix3x3(r) }

// Apply returns R·v.
func (r CartesianRotation) Apply(v geom.Vec3) geom.Vec3 {
	return geom.Matrix3x3(r).MulVec(v)
}

// Operation is one symmetry operation of a space group.
type Operation struct {
	Rotation    FractionalRotation `json:"rotation" yaml:"rotation"`
	Translation geom.Vec3          `json:"translation" yaml:"translation"`
}

// OperationFromFlat builds an operation from a row-major rotation and a
// translation.
func OperationFromFlat(rot [9]float64, trans [3]float64) Operation {
	return Operation{
		Rotation:    FractionalRotation(geom.FromFlat(rot)),
		Translation: geom.V(trans[0], trans[1], trans[2]),
	}
}

// Identity returns the identity operation.
func Identity() Operation {
	return Operation{Rotation: FractionalRotation(geom.Identity())}
}

// Inversion returns the inversion operation -1.
func Inversion() Operation {
	return Operation{Rotation: FractionalRotation(geom.Identity().Scale(-1))}
}

// ExtractPointGroup returns the distinct rotations of ops in first-seen
// order. Translations are ignored, so operations differing only in their
// translation collapse to one entry. Rotations are returned unchanged.
func ExtractPointGroup(ops []Operation) []FractionalRotation {
	var out []FractionalRotation
	for _, op := range ops {
		dup := false
		for _, r := range out {
			if r.Matrix().ApproxEqual(op.Rotation.Matrix(), RotationTolerance) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, op.Rotation)
		}
	}
	return out
}

// FractionalToCartesian converts the fractional rotation w into the
// rotation acting on Cartesian reciprocal-space vectors, for the reciprocal
// basis k (rows b1, b2, b3):
//
//	R = Kᵀ · W⁻ᵀ · K⁻ᵀ
//
// Reciprocal coordinates transform contragrediently to direct fractional
// coordinates, hence the inverse-transpose. Using Wᵀ instead agrees on
// orthogonal cells and is wrong on oblique ones. A singular w or k yields
// the identity.
func FractionalToCartesian(w FractionalRotation, k geom.Matrix3x3) CartesianRotation {
	winv, ok := w.Matrix().Inverse(SingularEps)
	if !ok {
		return CartesianRotation(geom.Identity())
	}
	kinv, ok := k.Inverse(SingularEps)
	if !ok {
		return CartesianRotation(geom.Identity())
	}
	kt := k.Transpose()
	return CartesianRotation(kt.Mul(winv.Transpose()).Mul(kinv.Transpose()))
}

// CartesianGroup extracts the point group of ops and converts every
// rotation to the Cartesian reciprocal frame of k.
func CartesianGroup(ops []Operation, k geom.Matrix3x3) []CartesianRotation {
	pg := ExtractPointGroup(ops)
	if len(pg) == 0 {
		return nil
	}
	out := make([]CartesianRotation, len(pg))
	for i, w := range pg {
		out[i] = FractionalToCartesian(w, k)
	}
	return out
}
