package lattice

import (
	"fmt"
	"math"

	"github.com/chazu/kspace/pkg/geom"
)

// Parameters are conventional cell lengths and inter-axial angles
// (degrees): alpha between b and c, beta between a and c, gamma between a
// and b.
type Parameters struct {
	A     float64 `json:"a" yaml:"a"`
	B     float64 `json:"b" yaml:"b"`
	C     float64 `json:"c" yaml:"c"`
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`
	Gamma float64 `json:"gamma" yaml:"gamma"`
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }

func rad2deg(r float64) float64 { return r * 180 / math.Pi }

// FromParameters builds a lattice in the standard orientation: a along x,
// b in the xy-plane, c completing a right-handed cell.
func FromParameters(p Parameters) (Lattice, error) {
	if p.A <= 0 || p.B <= 0 || p.C <= 0 {
		return Lattice{}, fmt.Errorf("%w: lengths must be positive (a=%g b=%g c=%g)",
			ErrInvalidParameters, p.A, p.B, p.C)
	}
	for _, ang := range []float64{p.Alpha, p.Beta, p.Gamma} {
		if ang <= 0 || ang >= 180 {
			return Lattice{}, fmt.Errorf("%w: angle %g outside (0, 180)", ErrInvalidParameters, ang)
		}
	}

	ca, cb, cg := math.Cos(deg2rad(p.Alpha)), math.Cos(deg2rad(p.Beta)), math.Cos(deg2rad(p.Gamma))
	sg := math.Sin(deg2rad(p.Gamma))

	cx := cb
	cy := (ca - cb*cg) / sg
	cz2 := 1 - cx*cx - cy*cy
	if cz2 <= 0 {
		return Lattice{}, fmt.Errorf("%w: angles (%g, %g, %g) do not form a cell",
			ErrInvalidParameters, p.Alpha, p.Beta, p.Gamma)
	}

	l := Lattice{
		geom.V(p.A, 0, 0),
		geom.V(p.B*cg, p.B*sg, 0),
		geom.V(p.C*cx, p.C*cy, p.C*math.Sqrt(cz2)),
	}
	if math.Abs(l.Volume()) < DegenerateEps {
		return Lattice{}, fmt.Errorf("%w: volume %g", ErrDegenerate, l.Volume())
	}
	return l, nil
}

// Parameters returns the cell lengths and angles of l.
func (l Lattice) Parameters() Parameters {
	angle := func(u, v geom.Vec3) float64 {
		c := u.Dot(v) / (u.Length() * v.Length())
		return rad2deg(math.Acos(math.Max(-1, math.Min(1, c))))
	}
	return Parameters{
		A:     l[0].Length(),
		B:     l[1].Length(),
		C:     l[2].Length(),
		Alpha: angle(l[1], l[2]),
		Beta:  angle(l[0], l[2]),
		Gamma: angle(l[0], l[1]),
	}
}

// Cubic returns the simple cubic lattice with edge a.
func Cubic(a float64) Lattice {
	return Lattice{geom.V(a, 0, 0), geom.V(0, a, 0), geom.V(0, 0, a)}
}

// Tetragonal returns the primitive tetragonal lattice a = b ≠ c.
func Tetragonal(a, c float64) Lattice {
	return Lattice{geom.V(a, 0, 0), geom.V(0, a, 0), geom.V(0, 0, c)}
}

// Orthorhombic returns the primitive orthorhombic lattice.
func Orthorhombic(a, b, c float64) Lattice {
	return Lattice{geom.V(a, 0, 0), geom.V(0, b, 0), geom.V(0, 0, c)}
}

// Hexagonal returns the hexagonal lattice with gamma = 120°.
func Hexagonal(a, c float64) Lattice {
	return Lattice{
		geom.V(a, 0, 0),
		geom.V(-a/2, a*math.Sqrt(3)/2, 0),
		geom.V(0, 0, c),
	}
}

// FaceCenteredCubic returns the primitive cell of the fcc lattice with
// conventional edge a.
func FaceCenteredCubic(a float64) Lattice {
	h := a / 2
	return Lattice{geom.V(0, h, h), geom.V(h, 0, h), geom.V(h, h, 0)}
}

// BodyCenteredCubic returns the primitive cell of the bcc lattice with
// conventional edge a.
func BodyCenteredCubic(a float64) Lattice {
	h := a / 2
	return Lattice{geom.V(-h, h, h), geom.V(h, -h, h), geom.V(h, h, -h)}
}
