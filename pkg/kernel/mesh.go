package kernel

import (
	"math"

	"github.com/chazu/kspace/pkg/geom"
)

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
// Edges holds line segments, 6 floats each, for outline rendering.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Edges    []float32 `json:"edges,omitempty"`
	PartName string    `json:"partName"` // which zone this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// EdgeCount returns the number of outline segments.
func (m *Mesh) EdgeCount() int {
	return len(m.Edges) / 6
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Triangle returns the corners of triangle i.
func (m *Mesh) Triangle(i int) [3]geom.Vec3 {
	var t [3]geom.Vec3
	for j := 0; j < 3; j++ {
		v := m.Indices[i*3+j] * 3
		t[j] = geom.V(float64(m.Vertices[v]), float64(m.Vertices[v+1]), float64(m.Vertices[v+2]))
	}
	return t
}

// IndexedMesh converts a polyhedron into a mesh that shares vertices
// between faces. Normals are the average of the incident face normals.
func IndexedMesh(p *geom.Polyhedron, name string) *Mesh {
	m := &Mesh{PartName: name}
	if p.IsEmpty() {
		return m
	}
	m.Vertices = make([]float32, 0, len(p.Vertices)*3)
	for _, v := range p.Vertices {
		m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
	}
	for _, f := range p.Faces {
		for i := 1; i+1 < len(f); i++ {
			m.Indices = append(m.Indices, uint32(f[0]), uint32(f[i]), uint32(f[i+1]))
		}
	}
	m.Normals = computeVertexNormals(m.Vertices, m.Indices)
	m.Edges = EdgeSegments(p.Edges)
	return m
}

// EdgeSegments flattens edges into outline segments, 6 floats each.
func EdgeSegments(edges []geom.Edge) []float32 {
	if len(edges) == 0 {
		return nil
	}
	out := make([]float32, 0, len(edges)*6)
	for _, e := range edges {
		out = append(out,
			float32(e.A.X), float32(e.A.Y), float32(e.A.Z),
			float32(e.B.X), float32(e.B.Y), float32(e.B.Z))
	}
	return out
}

// computeVertexNormals generates per-vertex normals by averaging the face
// normals of all triangles incident on each vertex, weighted by area.
func computeVertexNormals(vertices []float32, indices []uint32) []float32 {
	numVerts := len(vertices) / 3
	acc := make([]float64, numVerts*3)

	numTris := len(indices) / 3
	for t := 0; t < numTris; t++ {
		i0 := indices[t*3+0]
		i1 := indices[t*3+1]
		i2 := indices[t*3+2]

		ax, ay, az := float64(vertices[i0*3]), float64(vertices[i0*3+1]), float64(vertices[i0*3+2])
		bx, by, bz := float64(vertices[i1*3]), float64(vertices[i1*3+1]), float64(vertices[i1*3+2])
		cx, cy, cz := float64(vertices[i2*3]), float64(vertices[i2*3+1]), float64(vertices[i2*3+2])

		e1x, e1y, e1z := bx-ax, by-ay, bz-az
		e2x, e2y, e2z := cx-ax, cy-ay, cz-az

		// Unnormalized cross product.
		nx := e1y*e2z - e1z*e2y
		ny := e1z*e2x - e1x*e2z
		nz := e1x*e2y - e1y*e2x

		for _, idx := range []uint32{i0, i1, i2} {
			acc[idx*3+0] += nx
			acc[idx*3+1] += ny
			acc[idx*3+2] += nz
		}
	}

	normals := make([]float32, numVerts*3)
	for i := 0; i < numVerts; i++ {
		nx, ny, nz := acc[i*3], acc[i*3+1], acc[i*3+2]
		length := math.Sqrt(nx*nx + ny*ny + nz*nz)
		if length > 1e-12 {
			normals[i*3+0] = float32(nx / length)
			normals[i*3+1] = float32(ny / length)
			normals[i*3+2] = float32(nz / length)
		}
	}
	return normals
}
