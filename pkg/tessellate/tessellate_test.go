package tessellate_test

import (
	"math"
	"testing"

	"github.com/chazu/kspace/pkg/brillouin"
	"github.com/chazu/kspace/pkg/geom"
	"github.com/chazu/kspace/pkg/kernel"
	"github.com/chazu/kspace/pkg/kernel/polytope"
	"github.com/chazu/kspace/pkg/kernel/sdfx"
	"github.com/chazu/kspace/pkg/lattice"
	"github.com/chazu/kspace/pkg/tessellate"
)

// newKernel returns a fresh exact kernel for testing.
func newKernel() kernel.Kernel {
	return polytope.New()
}

// makeZone computes the first Brillouin zone of a lattice.
func makeZone(t *testing.T, l lattice.Lattice) *brillouin.Zone {
	t.Helper()
	r, err := lattice.ReciprocalOf(l)
	if err != nil {
		t.Fatal(err)
	}
	z, err := brillouin.Compute(r, 1)
	if err != nil {
		t.Fatal(err)
	}
	return z
}

// bounds returns the bounding box of the mesh vertices.
func bounds(m *kernel.Mesh) (lo, hi geom.Vec3) {
	lo = geom.V(math.Inf(1), math.Inf(1), math.Inf(1))
	hi = lo.Neg()
	for i := 0; i < m.VertexCount(); i++ {
		v := geom.V(float64(m.Vertices[i*3]), float64(m.Vertices[i*3+1]), float64(m.Vertices[i*3+2]))
		lo = geom.V(math.Min(lo.X, v.X), math.Min(lo.Y, v.Y), math.Min(lo.Z, v.Z))
		hi = geom.V(math.Max(hi.X, v.X), math.Max(hi.Y, v.Y), math.Max(hi.Z, v.Z))
	}
	return lo, hi
}

// centroid returns the mean of the mesh vertices.
func centroid(m *kernel.Mesh) geom.Vec3 {
	var c geom.Vec3
	n := m.VertexCount()
	for i := 0; i < n; i++ {
		c = c.Add(geom.V(float64(m.Vertices[i*3]), float64(m.Vertices[i*3+1]), float64(m.Vertices[i*3+2])))
	}
	return c.Scale(1 / float64(n))
}

func TestSingleZone(t *testing.T) {
	z := makeZone(t, lattice.Cubic(5))
	meshes, err := tessellate.Tessellate([]tessellate.Node{tessellate.ZonePart("cube", z)}, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}

	m := meshes[0]
	if m.PartName != "cube" {
		t.Errorf("expected PartName %q, got %q", "cube", m.PartName)
	}
	if m.VertexCount() != 8 || m.TriangleCount() != 12 || m.EdgeCount() != 12 {
		t.Errorf("got V=%d T=%d E=%d, want 8/12/12", m.VertexCount(), m.TriangleCount(), m.EdgeCount())
	}
}

func TestTwoParts(t *testing.T) {
	roots := []tessellate.Node{
		tessellate.ZonePart("fcc", makeZone(t, lattice.FaceCenteredCubic(4.05))),
		tessellate.ZonePart("bcc", makeZone(t, lattice.BodyCenteredCubic(2.87))),
	}
	meshes, err := tessellate.Tessellate(roots, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}
	if meshes[0].PartName != "fcc" || meshes[1].PartName != "bcc" {
		t.Errorf("names = %q, %q; want fcc, bcc in root order", meshes[0].PartName, meshes[1].PartName)
	}
	if meshes[0].VertexCount() != 24 || meshes[1].VertexCount() != 14 {
		t.Errorf("vertex counts = %d, %d; want 24, 14", meshes[0].VertexCount(), meshes[1].VertexCount())
	}
}

func TestNestedTransforms(t *testing.T) {
	z := makeZone(t, lattice.Cubic(5))
	part := tessellate.ZonePart("cube", z)
	part.Offset = geom.V(1, 0, 0)

	root := &tessellate.Group{
		Name:   "outer",
		Offset: geom.V(10, 20, 30),
		Children: []tessellate.Node{
			&tessellate.Group{
				Name:     "inner",
				Scale:    2,
				Children: []tessellate.Node{part},
			},
		},
	}

	meshes, err := tessellate.Tessellate([]tessellate.Node{root}, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if m.PartName != "outer/inner/cube" {
		t.Errorf("PartName = %q, want outer/inner/cube", m.PartName)
	}

	// The zone is centred on the origin: 2·(1,0,0) + (10,20,30).
	if c := centroid(m); !c.ApproxEqual(geom.V(12, 20, 30), 1e-5) {
		t.Errorf("centroid = %v, want (12, 20, 30)", c)
	}
	lo, hi := bounds(m)
	if w := hi.X - lo.X; math.Abs(w-2*2*math.Pi/5) > 1e-5 {
		t.Errorf("width = %v, want twice the zone width", w)
	}
}

func TestClippedPart(t *testing.T) {
	z := makeZone(t, lattice.Cubic(5))
	part := tessellate.ZonePart("half", z)
	part.Clip = []geom.Plane{{Normal: geom.V(1, 0, 0), Dist: 0}}

	meshes, err := tessellate.Tessellate([]tessellate.Node{part}, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if _, hi := bounds(m); hi.X > 1e-6 {
		t.Errorf("max x = %v, want 0 after the clip", hi.X)
	}
	if m.EdgeCount() != 12 {
		t.Errorf("edges = %d, want 12 for the half box", m.EdgeCount())
	}
}

func TestEmptyParts(t *testing.T) {
	z := makeZone(t, lattice.Cubic(5))
	gone := tessellate.ZonePart("gone", z)
	gone.Clip = []geom.Plane{
		{Normal: geom.V(1, 0, 0), Dist: 0},
		{Normal: geom.V(-1, 0, 0), Dist: -0.1},
	}
	roots := []tessellate.Node{
		nil,
		&tessellate.Part{Name: "nothing"},
		tessellate.ZonePart("nil-zone", nil),
		gone,
		&tessellate.Group{Name: "empty"},
	}

	meshes, err := tessellate.Tessellate(roots, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 0 {
		t.Errorf("expected no meshes, got %d", len(meshes))
	}
}

func TestInputNotMutated(t *testing.T) {
	z := makeZone(t, lattice.Hexagonal(2.46, 6.7))
	before := append([]geom.Vec3(nil), z.Vertices...)
	part := tessellate.ZonePart("hex", z)
	part.Scale = -3
	part.Offset = geom.V(5, 5, 5)

	if _, err := tessellate.Tessellate([]tessellate.Node{part}, newKernel()); err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	for i, v := range z.Vertices {
		if v != before[i] {
			t.Fatalf("vertex %d changed from %v to %v", i, before[i], v)
		}
	}
}

func TestSdfxKernel(t *testing.T) {
	z := makeZone(t, lattice.Cubic(5))
	part := tessellate.ZonePart("cube", z)
	part.Offset = geom.V(3, 0, 0)

	meshes, err := tessellate.Tessellate([]tessellate.Node{part}, sdfx.New(sdfx.WithMeshCells(16)))
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	m := meshes[0]
	if m.IsEmpty() {
		t.Fatal("mesh should not be empty")
	}

	// Use a generous tolerance since marching cubes is approximate.
	if c := centroid(m); math.Abs(c.X-3) > 0.1 || math.Abs(c.Y) > 0.1 || math.Abs(c.Z) > 0.1 {
		t.Errorf("centroid = %v, expected near (3, 0, 0)", c)
	}

	// Sharp edges come from the polyhedron, placed with the part.
	if m.EdgeCount() != 12 {
		t.Fatalf("edges = %d, want 12", m.EdgeCount())
	}
	for i, x := range m.Edges {
		if i%3 == 0 && math.Abs(math.Abs(float64(x)-3)-math.Pi/5) > 1e-5 {
			t.Errorf("edge x coordinate %v, want 3 ± π/5", x)
		}
	}
}

func TestRow(t *testing.T) {
	small := makeZone(t, lattice.Cubic(5))
	big := makeZone(t, lattice.Cubic(2.5))
	row := tessellate.Row("row", 1,
		tessellate.ZonePart("small", small),
		tessellate.ZonePart("empty", nil),
		tessellate.ZonePart("big", big),
	)

	meshes, err := tessellate.Tessellate([]tessellate.Node{row}, newKernel())
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}
	if meshes[0].PartName != "row/small" || meshes[1].PartName != "row/big" {
		t.Errorf("names = %q, %q", meshes[0].PartName, meshes[1].PartName)
	}

	lo0, hi0 := bounds(meshes[0])
	lo1, _ := bounds(meshes[1])
	if math.Abs(lo0.X) > 1e-5 {
		t.Errorf("first part starts at x = %v, want 0", lo0.X)
	}
	if gap := lo1.X - hi0.X; math.Abs(gap-1) > 1e-5 {
		t.Errorf("gap = %v, want 1", gap)
	}
}
