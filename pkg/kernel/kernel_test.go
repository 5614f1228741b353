package kernel

import (
	"math"
	"testing"

	"github.com/chazu/kspace/pkg/geom"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

// --- Polyhedron conversion ---

// unitCube is the unit cube triangulated into 12 outward-wound triangles.
func unitCube() *geom.Polyhedron {
	return &geom.Polyhedron{
		Vertices: []geom.Vec3{
			geom.V(0, 0, 0), geom.V(1, 0, 0), geom.V(1, 1, 0), geom.V(0, 1, 0),
			geom.V(0, 0, 1), geom.V(1, 0, 1), geom.V(1, 1, 1), geom.V(0, 1, 1),
		},
		Faces: [][]int{
			{0, 2, 1}, {0, 3, 2}, // bottom
			{4, 5, 6}, {4, 6, 7}, // top
			{0, 1, 5}, {0, 5, 4}, // front
			{2, 3, 7}, {2, 7, 6}, // back
			{1, 2, 6}, {1, 6, 5}, // right
			{0, 4, 7}, {0, 7, 3}, // left
		},
		Edges: []geom.Edge{{A: geom.V(0, 0, 0), B: geom.V(1, 0, 0)}},
	}
}

func TestIndexedMesh(t *testing.T) {
	p := unitCube()
	m := IndexedMesh(p, "cube")
	if m.PartName != "cube" {
		t.Errorf("PartName = %q, want cube", m.PartName)
	}
	if m.VertexCount() != 8 || m.TriangleCount() != 12 {
		t.Fatalf("got %d vertices, %d triangles; want 8, 12", m.VertexCount(), m.TriangleCount())
	}
	if m.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", m.EdgeCount())
	}
	f := p.Faces[0]
	if tri := m.Triangle(0); tri != [3]geom.Vec3{p.Vertices[f[0]], p.Vertices[f[1]], p.Vertices[f[2]]} {
		t.Errorf("Triangle(0) = %v, want the corners of the first face", tri)
	}
	// Corner normals point away from the cube centre.
	for i := 0; i < m.VertexCount(); i++ {
		n := geom.V(float64(m.Normals[i*3]), float64(m.Normals[i*3+1]), float64(m.Normals[i*3+2]))
		v := geom.V(float64(m.Vertices[i*3]), float64(m.Vertices[i*3+1]), float64(m.Vertices[i*3+2]))
		if n.Dot(v.Sub(geom.V(0.5, 0.5, 0.5))) <= 0 {
			t.Errorf("normal %v at %v points inward", n, v)
		}
		if math.Abs(n.Length()-1) > 1e-6 {
			t.Errorf("normal %v is not unit length", n)
		}
	}
}

func TestMeshFromEmptyPolyhedron(t *testing.T) {
	for _, m := range []*Mesh{IndexedMesh(nil, "x"), IndexedMesh(&geom.Polyhedron{}, "y")} {
		if !m.IsEmpty() {
			t.Errorf("mesh %q is not empty", m.PartName)
		}
	}
}

// --- Compile-time interface check with a stub kernel ---

// stubSolid is a minimal Solid implementation for testing.
type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. All methods return trivial results.
type stubKernel struct{}

func (k *stubKernel) Polyhedron(p *geom.Polyhedron) (Solid, error) {
	lo, hi := p.Bounds()
	return &stubSolid{minBB: lo.Array(), maxBB: hi.Array()}, nil
}

func (k *stubKernel) Clip(s Solid, _ geom.Plane) Solid { return s }

func (k *stubKernel) Translate(s Solid, _ geom.Vec3) Solid { return s }
func (k *stubKernel) Scale(s Solid, _ float64) Solid       { return s }

func (k *stubKernel) ToMesh(_ Solid) (*Mesh, error) {
	return &Mesh{}, nil
}

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, err := k.Polyhedron(unitCube())
	if err != nil {
		t.Fatal(err)
	}
	min, max := s.BoundingBox()
	if min != [3]float64{0, 0, 0} {
		t.Errorf("min = %v, want [0 0 0]", min)
	}
	if max != [3]float64{1, 1, 1} {
		t.Errorf("max = %v, want [1 1 1]", max)
	}
}

func TestStubKernelToMesh(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, _ := k.Polyhedron(unitCube())
	m, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if m == nil {
		t.Fatal("ToMesh() returned nil mesh")
	}
	if !m.IsEmpty() {
		t.Error("stub ToMesh() should return empty mesh")
	}
}
