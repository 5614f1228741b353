package geom

import "math"

// Plane is the set of points x with x·Normal = Dist. The associated
// half-space is x·Normal <= Dist.
type Plane struct {
	Normal Vec3    `json:"normal"`
	Dist   float64 `json:"dist"`
}

// SignedDistance returns x·Normal - Dist. Positive values lie outside the
// half-space. The value is a true distance only for unit normals.
func (p Plane) SignedDistance(x Vec3) float64 {
	return x.Dot(p.Normal) - p.Dist
}

// Edge is a polyhedron edge given by its two endpoint coordinates.
type Edge struct {
	A Vec3 `json:"a"`
	B Vec3 `json:"b"`
}

// Length returns |B - A|.
func (e Edge) Length() float64 {
	return e.B.Sub(e.A).Length()
}

// Polyhedron is a closed triangulated surface. Faces index into Vertices and
// are wound counter-clockwise seen from outside. Edges holds only the sharp
// (non-coplanar) edges intended for display.
type Polyhedron struct {
	Vertices []Vec3  `json:"vertices"`
	Faces    [][]int `json:"faces"`
	Edges    []Edge  `json:"edges"`
}

// VertexCount returns the number of vertices.
func (p *Polyhedron) VertexCount() int {
	return len(p.Vertices)
}

// FaceCount returns the number of faces.
func (p *Polyhedron) FaceCount() int {
	return len(p.Faces)
}

// IsEmpty returns true if the polyhedron has no faces.
func (p *Polyhedron) IsEmpty() bool {
	return p == nil || len(p.Faces) == 0
}

// Centroid returns the mean of the vertices.
func (p *Polyhedron) Centroid() Vec3 {
	var c Vec3
	if len(p.Vertices) == 0 {
		return c
	}
	for _, v := range p.Vertices {
		c = c.Add(v)
	}
	return c.Scale(1 / float64(len(p.Vertices)))
}

// Volume returns the enclosed volume as the sum of signed tetrahedra from
// the vertex centroid to each triangle (fan-triangulating larger faces).
func (p *Polyhedron) Volume() float64 {
	c := p.Centroid()
	var sum float64
	for _, f := range p.Faces {
		if len(f) < 3 {
			continue
		}
		a := p.Vertices[f[0]].Sub(c)
		for i := 1; i+1 < len(f); i++ {
			b := p.Vertices[f[i]].Sub(c)
			d := p.Vertices[f[i+1]].Sub(c)
			sum += TripleProduct(a, b, d)
		}
	}
	return math.Abs(sum) / 6
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (p *Polyhedron) Bounds() (min, max Vec3) {
	if len(p.Vertices) == 0 {
		return min, max
	}
	min, max = p.Vertices[0], p.Vertices[0]
	for _, v := range p.Vertices[1:] {
		min = Vec3{X: math.Min(min.X, v.X), Y: math.Min(min.Y, v.Y), Z: math.Min(min.Z, v.Z)}
		max = Vec3{X: math.Max(max.X, v.X), Y: math.Max(max.Y, v.Y), Z: math.Max(max.Z, v.Z)}
	}
	return min, max
}

// FaceNormal returns the unit outward normal of face i.
func (p *Polyhedron) FaceNormal(i int) Vec3 {
	f := p.Faces[i]
	a, b, c := p.Vertices[f[0]], p.Vertices[f[1]], p.Vertices[f[2]]
	return b.Sub(a).Cross(c.Sub(a)).Normalize()
}

// FacePlane returns the supporting plane of face i with a unit normal.
func (p *Polyhedron) FacePlane(i int) Plane {
	n := p.FaceNormal(i)
	return Plane{Normal: n, Dist: n.Dot(p.Vertices[p.Faces[i][0]])}
}

// EdgeKey is an undirected vertex-index pair with Lo < Hi.
type EdgeKey struct {
	Lo, Hi int
}

// MakeEdgeKey returns the canonical key for the pair (a, b).
func MakeEdgeKey(a, b int) EdgeKey {
	if a > b {
		a, b = b, a
	}
	return EdgeKey{Lo: a, Hi: b}
}

// EdgeFaces maps every undirected face edge to the faces that use it, and
// returns the keys in first-seen order.
func (p *Polyhedron) EdgeFaces() (map[EdgeKey][]int, []EdgeKey) {
	uses := make(map[EdgeKey][]int)
	var order []EdgeKey
	for fi, f := range p.Faces {
		for j := range f {
			k := MakeEdgeKey(f[j], f[(j+1)%len(f)])
			if _, seen := uses[k]; !seen {
				order = append(order, k)
			}
			uses[k] = append(uses[k], fi)
		}
	}
	return uses, order
}

// EulerCharacteristic returns V - E + F with E counted over all face edges.
func (p *Polyhedron) EulerCharacteristic() int {
	_, keys := p.EdgeFaces()
	return len(p.Vertices) - len(keys) + len(p.Faces)
}
