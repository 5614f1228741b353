package hull

import (
	"fmt"

	"github.com/chazu/kspace/pkg/geom"
)

// Compile-time interface check.
var _ Engine = Incremental{}

// Incremental is the default Engine: it seeds an extremal tetrahedron and
// inserts the remaining points in input order, replacing the faces each
// point can see with a fan from the point to the horizon.
type Incremental struct{}

type face struct {
	v     [3]int
	n     geom.Vec3 // unit outward normal
	d     float64   // n·x for points on the face
	alive bool
}

func (f *face) distance(p geom.Vec3) float64 {
	return f.n.Dot(p) - f.d
}

// directedEdge is an edge a->b as it appears in a face's winding.
type directedEdge struct {
	a, b int
}

// Triangulate implements Engine.
func (Incremental) Triangulate(points []geom.Vec3, eps float64) ([][3]int, error) {
	if len(points) < 4 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(points))
	}

	seed, err := seedTetrahedron(points, eps)
	if err != nil {
		return nil, err
	}

	interior := points[seed[0]].Add(points[seed[1]]).Add(points[seed[2]]).Add(points[seed[3]]).Scale(0.25)
	faces := make([]*face, 0, 4*len(points))
	for _, tri := range [4][3]int{
		{seed[0], seed[1], seed[2]},
		{seed[0], seed[1], seed[3]},
		{seed[0], seed[2], seed[3]},
		{seed[1], seed[2], seed[3]},
	} {
		f := newFace(points, tri[0], tri[1], tri[2])
		if f.distance(interior) > 0 {
			f = newFace(points, tri[0], tri[2], tri[1])
		}
		faces = append(faces, f)
	}

	inSeed := map[int]bool{seed[0]: true, seed[1]: true, seed[2]: true, seed[3]: true}
	for i, p := range points {
		if inSeed[i] {
			continue
		}
		faces = insertPoint(points, faces, i, p, eps)
	}

	var tris [][3]int
	for _, f := range faces {
		if f.alive {
			tris = append(tris, f.v)
		}
	}
	return tris, nil
}

func newFace(points []geom.Vec3, a, b, c int) *face {
	n := points[b].Sub(points[a]).Cross(points[c].Sub(points[a])).Normalize()
	return &face{v: [3]int{a, b, c}, n: n, d: n.Dot(points[a]), alive: true}
}

// insertPoint removes every face that sees p and re-triangulates the hole
// by connecting p to its horizon. Points that see no face are inside or on
// the hull and are ignored.
func insertPoint(points []geom.Vec3, faces []*face, idx int, p geom.Vec3, eps float64) []*face {
	var visible []*face
	for _, f := range faces {
		if f.alive && f.distance(p) > eps {
			visible = append(visible, f)
		}
	}
	if len(visible) == 0 {
		return faces
	}

	// A directed edge of a visible face is on the horizon when its reverse
	// does not belong to another visible face.
	inVisible := make(map[directedEdge]bool, 3*len(visible))
	for _, f := range visible {
		for j := 0; j < 3; j++ {
			inVisible[directedEdge{f.v[j], f.v[(j+1)%3]}] = true
		}
	}
	var horizon []directedEdge
	for _, f := range visible {
		for j := 0; j < 3; j++ {
			e := directedEdge{f.v[j], f.v[(j+1)%3]}
			if !inVisible[directedEdge{e.b, e.a}] {
				horizon = append(horizon, e)
			}
		}
		f.alive = false
	}

	// Keeping the horizon edge direction preserves outward winding.
	for _, e := range horizon {
		faces = append(faces, newFace(points, e.a, e.b, idx))
	}
	return faces
}

// seedTetrahedron picks four well-separated, non-coplanar points: the
// lowest point in x, the point farthest from it, the point farthest from
// that line, and the point farthest from the resulting plane.
func seedTetrahedron(points []geom.Vec3, eps float64) ([4]int, error) {
	var s [4]int

	for i, p := range points {
		q := points[s[0]]
		if p.X < q.X || (p.X == q.X && (p.Y < q.Y || (p.Y == q.Y && p.Z < q.Z))) {
			s[0] = i
		}
	}

	p0 := points[s[0]]
	best := -1.0
	for i, p := range points {
		if d := p.Sub(p0).Length(); d > best {
			best, s[1] = d, i
		}
	}
	if best <= eps {
		return s, fmt.Errorf("%w: all points coincide", ErrDegenerate)
	}

	u := points[s[1]].Sub(p0).Normalize()
	best = -1
	for i, p := range points {
		if d := p.Sub(p0).Cross(u).Length(); d > best {
			best, s[2] = d, i
		}
	}
	if best <= eps {
		return s, fmt.Errorf("%w: points are collinear", ErrDegenerate)
	}

	n := points[s[1]].Sub(p0).Cross(points[s[2]].Sub(p0)).Normalize()
	best = -1
	for i, p := range points {
		d := p.Sub(p0).Dot(n)
		if d < 0 {
			d = -d
		}
		if d > best {
			best, s[3] = d, i
		}
	}
	if best <= eps {
		return s, fmt.Errorf("%w: points are coplanar", ErrDegenerate)
	}
	return s, nil
}
