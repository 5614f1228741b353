// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library. Convex polyhedra become
// signed distance fields (the largest signed plane distance), which lets
// zones be combined with any other sdfx solid and exported as STL.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/kspace/pkg/geom"
	"github.com/chazu/kspace/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// defaultMeshCells controls marching cubes tessellation resolution.
const defaultMeshCells = 64

// coplanarTolerance merges face planes whose normals and offsets agree.
const coplanarTolerance = 1e-9

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// convexSDF3 is the intersection of half-spaces x·n ≤ d. Its value is
// exact inside and on the faces, and a lower bound on the distance outside.
type convexSDF3 struct {
	planes []geom.Plane
	bb     sdf.Box3
}

// Evaluate returns the signed distance from p.
func (c *convexSDF3) Evaluate(p v3.Vec) float64 {
	x := geom.V(p.X, p.Y, p.Z)
	d := math.Inf(-1)
	for _, pl := range c.planes {
		d = math.Max(d, pl.SignedDistance(x))
	}
	return d
}

// BoundingBox returns the bounding box of the polyhedron.
func (c *convexSDF3) BoundingBox() sdf.Box3 {
	return c.bb
}

// halfSpaceSDF3 is a single half-space, bounded by the box of the solid it
// is intersected with.
type halfSpaceSDF3 struct {
	plane geom.Plane
	bb    sdf.Box3
}

func (h *halfSpaceSDF3) Evaluate(p v3.Vec) float64 {
	return h.plane.SignedDistance(geom.V(p.X, p.Y, p.Z))
}

func (h *halfSpaceSDF3) BoundingBox() sdf.Box3 {
	return h.bb
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution along the longest axis.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.cells = n
		}
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{cells: defaultMeshCells}
	for _, o := range opts {
		o(k)
	}
	return k
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

func vec(v geom.Vec3) v3.Vec {
	return v3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// Polyhedron builds a convex SDF from the face planes of p. Coplanar
// triangles contribute one plane.
func (k *SdfxKernel) Polyhedron(p *geom.Polyhedron) (kernel.Solid, error) {
	if p.IsEmpty() {
		return nil, fmt.Errorf("sdfx: empty polyhedron")
	}
	var planes []geom.Plane
	for i := range p.Faces {
		pl := p.FacePlane(i)
		if pl.Normal.Length2() == 0 {
			continue
		}
		planes = appendPlane(planes, pl)
	}
	if len(planes) < 4 {
		return nil, fmt.Errorf("sdfx: polyhedron has %d distinct face planes", len(planes))
	}

	lo, hi := p.Bounds()
	pad := 0.01 * math.Max(hi.Sub(lo).Length(), 1e-9)
	bb := sdf.Box3{
		Min: vec(lo).Sub(v3.Vec{X: pad, Y: pad, Z: pad}),
		Max: vec(hi).Add(v3.Vec{X: pad, Y: pad, Z: pad}),
	}
	return wrap(&convexSDF3{planes: planes, bb: bb}), nil
}

func appendPlane(planes []geom.Plane, pl geom.Plane) []geom.Plane {
	for _, q := range planes {
		if q.Normal.ApproxEqual(pl.Normal, coplanarTolerance) &&
			math.Abs(q.Dist-pl.Dist) <= coplanarTolerance*math.Max(1, math.Abs(pl.Dist)) {
			return planes
		}
	}
	return append(planes, pl)
}

// Clip keeps the part of s with x·Normal ≤ Dist.
func (k *SdfxKernel) Clip(s kernel.Solid, pl geom.Plane) kernel.Solid {
	if c, ok := unwrap(s).(*convexSDF3); ok {
		return wrap(&convexSDF3{planes: appendPlane(append([]geom.Plane(nil), c.planes...), pl), bb: c.bb})
	}
	h := &halfSpaceSDF3{plane: pl, bb: unwrap(s).BoundingBox()}
	return wrap(sdf.Intersect3D(unwrap(s), h))
}

// Translate moves a solid by v.
func (k *SdfxKernel) Translate(s kernel.Solid, v geom.Vec3) kernel.Solid {
	m := sdf.Translate3d(vec(v))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Scale scales a solid about the origin. A negative factor also inverts
// through the origin. f must be non-zero.
func (k *SdfxKernel) Scale(s kernel.Solid, f float64) kernel.Solid {
	if f == 0 {
		panic("sdfx.Scale: zero scale factor")
	}
	out := sdf.ScaleUniform3D(unwrap(s), math.Abs(f))
	if f < 0 {
		out = sdf.Transform3D(out, sdf.Scale3d(v3.Vec{X: -1, Y: -1, Z: -1}))
	}
	return wrap(out)
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	triangles := k.triangles(s)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}

func (k *SdfxKernel) triangles(s kernel.Solid) []*sdf.Triangle3 {
	renderer := render.NewMarchingCubesUniform(k.cells)
	return render.ToTriangles(unwrap(s), renderer)
}

// SaveMeshSTL writes an existing triangle mesh, such as an exact polyhedron
// mesh, as a binary STL file.
func SaveMeshSTL(path string, m *kernel.Mesh) error {
	tris := make([]*sdf.Triangle3, m.TriangleCount())
	for i := range tris {
		t := m.Triangle(i)
		tris[i] = &sdf.Triangle3{vec(t[0]), vec(t[1]), vec(t[2])}
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return fmt.Errorf("sdfx: write %s: %w", path, err)
	}
	return nil
}
