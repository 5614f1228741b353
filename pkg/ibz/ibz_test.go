package ibz

import (
	"math"
	"testing"

	"github.com/chazu/kspace/pkg/brillouin"
	"github.com/chazu/kspace/pkg/geom"
	"github.com/chazu/kspace/pkg/lattice"
	"github.com/chazu/kspace/pkg/symmetry"
)

func zone(t *testing.T, l lattice.Lattice) *brillouin.Zone {
	t.Helper()
	r, err := lattice.ReciprocalOf(l)
	if err != nil {
		t.Fatalf("ReciprocalOf: %v", err)
	}
	z, err := brillouin.Compute(r, 1)
	if err != nil {
		t.Fatalf("brillouin.Compute: %v", err)
	}
	return z
}

func group(z *brillouin.Zone, flats ...[9]float64) []symmetry.CartesianRotation {
	ops := make([]symmetry.Operation, len(flats))
	for i, f := range flats {
		ops[i] = symmetry.OperationFromFlat(f, [3]float64{})
	}
	return symmetry.CartesianGroup(ops, z.Basis.Matrix())
}

var (
	identity  = geom.Identity().Flat()
	inversion = geom.Identity().Scale(-1).Flat()
	c4z       = [9]float64{0, -1, 0, 1, 0, 0, 0, 0, 1}
	c2z       = [9]float64{-1, 0, 0, 0, -1, 0, 0, 0, 1}
	c4z3      = [9]float64{0, 1, 0, -1, 0, 0, 0, 0, 1}
	hex3      = [9]float64{0, -1, 0, 1, -1, 0, 0, 0, 1}
	hex3sq    = [9]float64{-1, 1, 0, -1, 0, 0, 0, 0, 1}
)

func TestClippingPlanesIdentityOnly(t *testing.T) {
	z := zone(t, lattice.Cubic(5))
	if planes := ClippingPlanes(group(z, identity)); len(planes) != 0 {
		t.Errorf("planes = %d, want 0", len(planes))
	}
	if planes := ClippingPlanes(nil); len(planes) != 0 {
		t.Errorf("planes = %d, want 0 for an empty group", len(planes))
	}
}

func TestClippingPlanesBound(t *testing.T) {
	z := zone(t, lattice.Cubic(5))
	g := group(z, identity, c4z, c2z, c4z3, inversion)
	planes := ClippingPlanes(g)
	if len(planes) > len(g)-1 {
		t.Errorf("planes = %d, want at most %d", len(planes), len(g)-1)
	}
	for i, pl := range planes {
		if pl.Dist != 0 {
			t.Errorf("plane %d has Dist %v, want 0", i, pl.Dist)
		}
		if math.Abs(pl.Normal.Length()-1) > 1e-12 {
			t.Errorf("plane %d normal is not unit: %v", i, pl.Normal)
		}
		// The probe stays on the kept side.
		if d := pl.SignedDistance(DefaultProbe); d > 0 {
			t.Errorf("plane %d puts the probe outside (%v)", i, d)
		}
		for j := 0; j < i; j++ {
			if math.Abs(pl.Normal.Dot(planes[j].Normal)) > 1-ParallelTolerance {
				t.Errorf("planes %d and %d are parallel", i, j)
			}
		}
	}
}

func TestClippingPlanesDedupParallel(t *testing.T) {
	flip := symmetry.CartesianRotation(geom.Identity().Scale(-1))
	// -1 moves p to -p, and so does the mirror through the plane normal to
	// p; both give the same cut.
	p := DefaultProbe
	var mirror geom.Matrix3x3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := -2 * p.Component(i) * p.Component(j)
			if i == j {
				v++
			}
			switch j {
			case 0:
				mirror[i].X = v
			case 1:
				mirror[i].Y = v
			default:
				mirror[i].Z = v
			}
		}
	}
	planes := ClippingPlanes([]symmetry.CartesianRotation{flip, symmetry.CartesianRotation(mirror)})
	if len(planes) != 1 {
		t.Errorf("planes = %d, want 1", len(planes))
	}
}

func TestIrreducibleIdentityUnchanged(t *testing.T) {
	z := zone(t, lattice.Hexagonal(2.46, 6.7))
	got := Irreducible(z, group(z, identity))
	if got != z {
		t.Fatal("identity-only group must return the zone unchanged")
	}
	if got.Volume != z.Volume || len(got.Vertices) != len(z.Vertices) ||
		len(got.Faces) != len(z.Faces) || len(got.Edges) != len(z.Edges) {
		t.Error("zone data changed")
	}
}

func TestIrreducibleInversionHalves(t *testing.T) {
	systems := []struct {
		name string
		l    lattice.Lattice
	}{
		{"cubic", lattice.Cubic(5)},
		{"tetragonal", lattice.Tetragonal(3, 7)},
		{"orthorhombic", lattice.Orthorhombic(2, 3, 4)},
		{"hexagonal", lattice.Hexagonal(2.46, 6.7)},
	}
	for _, tt := range systems {
		t.Run(tt.name, func(t *testing.T) {
			z := zone(t, tt.l)
			w := Irreducible(z, group(z, identity, inversion))
			if w == nil {
				t.Fatal("Irreducible returned nil")
			}
			want := z.Volume / 2
			if rel := math.Abs(w.Volume-want) / want; rel > 1e-5 {
				t.Errorf("volume = %v, want %v (rel err %g)", w.Volume, want, rel)
			}
			if chi := w.EulerCharacteristic(); chi != 2 {
				t.Errorf("V - E + F = %d, want 2", chi)
			}
			if !w.Contains(DefaultProbe.Scale(0.1), 1e-12) {
				t.Error("probe side is not inside the wedge")
			}
			if w.Contains(DefaultProbe.Scale(-0.1), 1e-12) {
				t.Error("inverted probe is inside the wedge")
			}
		})
	}
}

func TestIrreducibleHexagonalThreeFold(t *testing.T) {
	z := zone(t, lattice.Hexagonal(2.46, 6.7))
	w := Irreducible(z, group(z, identity, hex3, hex3sq))
	if w == nil {
		t.Fatal("Irreducible returned nil")
	}
	ratio := w.Volume / z.Volume
	if ratio < 0.7/3 || ratio > 1.3/3 {
		t.Errorf("volume ratio = %v, want within 30%% of 1/3", ratio)
	}
}

func TestIrreducibleTetragonalFourFold(t *testing.T) {
	z := zone(t, lattice.Tetragonal(3, 7))
	w := Irreducible(z, group(z, identity, c4z, c2z, c4z3))
	if w == nil {
		t.Fatal("Irreducible returned nil")
	}
	if ratio := w.Volume / z.Volume; math.Abs(ratio-0.25) > 1e-6 {
		t.Errorf("volume ratio = %v, want 1/4", ratio)
	}
	if w.Order != z.Order || w.Basis != z.Basis {
		t.Error("order or basis not carried over")
	}
}

func TestIrreducibleNilZone(t *testing.T) {
	if Irreducible(nil, nil) != nil {
		t.Error("want nil for a nil zone")
	}
}

func TestClipPolyhedronEliminated(t *testing.T) {
	z := zone(t, lattice.Cubic(5))
	planes := []geom.Plane{
		{Normal: geom.V(1, 0, 0), Dist: 0},
		{Normal: geom.V(-1, 0, 0), Dist: -0.1},
	}
	if p := ClipPolyhedron(&z.Polyhedron, planes); p != nil {
		t.Errorf("got %d vertices, want nil", p.VertexCount())
	}
}

func TestClipPolyhedronSlab(t *testing.T) {
	z := zone(t, lattice.Cubic(5))
	h := math.Pi / 5
	planes := []geom.Plane{
		{Normal: geom.V(0, 0, 1), Dist: h / 2},
		{Normal: geom.V(0, 0, -1), Dist: 0},
	}
	p := ClipPolyhedron(&z.Polyhedron, planes)
	if p == nil {
		t.Fatal("ClipPolyhedron returned nil")
	}
	want := (2 * h) * (2 * h) * (h / 2)
	if math.Abs(p.Volume()-want) > 1e-12 {
		t.Errorf("volume = %v, want %v", p.Volume(), want)
	}
	if p.VertexCount() != 8 || len(p.Edges) != 12 {
		t.Errorf("got V=%d E=%d, want a box with 8 vertices and 12 edges", p.VertexCount(), len(p.Edges))
	}
}

func TestWithProbe(t *testing.T) {
	z := zone(t, lattice.Cubic(5))
	g := group(z, identity, inversion)
	planes := ClippingPlanes(g, WithProbe(geom.V(0, 0, 2)))
	if len(planes) != 1 || !planes[0].Normal.ApproxEqual(geom.V(0, 0, -1), 1e-12) {
		t.Fatalf("planes = %v, want one plane with normal -z", planes)
	}
	w := Irreducible(z, g, WithProbe(geom.V(0, 0, 2)))
	if w == nil {
		t.Fatal("Irreducible returned nil")
	}
	for _, v := range w.Vertices {
		if v.Z < -1e-12 {
			t.Errorf("vertex %v below the cut", v)
		}
	}
}
