// Package hull computes 3D convex hulls as triangulated polyhedra and
// extracts their sharp edges for display.
//
// Triangulation is delegated to an Engine so that backends can be swapped
// without changing callers. The default Engine is an incremental hull;
// package quickhull provides an alternative. Vertex compaction and edge
// extraction are shared by all engines.
package hull

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/kspace/pkg/geom"
)

const (
	// DefaultEdgeAngle is the minimum deviation from flat, in degrees, for a
	// shared edge to be reported as sharp.
	DefaultEdgeAngle = 1.0

	// DefaultTolerance is the visibility tolerance relative to the extent
	// of the point set.
	DefaultTolerance = 1e-10
)

var (
	// ErrTooFewPoints is returned for fewer than four input points.
	ErrTooFewPoints = errors.New("hull: need ≥4 vertices")

	// ErrDegenerate is returned when the points do not span a volume.
	ErrDegenerate = errors.New("hull: points are coplanar or collinear")
)

// Engine triangulates the convex hull of a point set. Returned triangles
// index into points and are wound counter-clockwise seen from outside.
// eps is an absolute distance tolerance.
type Engine interface {
	Triangulate(points []geom.Vec3, eps float64) ([][3]int, error)
}

// Options configure Compute.
type Options struct {
	EdgeAngle float64 // degrees; see SharpEdges
	Tolerance float64 // relative to the point set extent
	Engine    Engine
}

// Option mutates Options.
type Option func(*Options)

// WithEdgeAngle sets the sharp-edge threshold in degrees.
func WithEdgeAngle(deg float64) Option {
	return func(o *Options) { o.EdgeAngle = deg }
}

// WithTolerance sets the relative visibility tolerance.
func WithTolerance(tol float64) Option {
	return func(o *Options) {
		if tol > 0 {
			o.Tolerance = tol
		}
	}
}

// WithEngine selects the triangulation backend. A nil engine keeps the
// default.
func WithEngine(e Engine) Option {
	return func(o *Options) {
		if e != nil {
			o.Engine = e
		}
	}
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		EdgeAngle: DefaultEdgeAngle,
		Tolerance: DefaultTolerance,
		Engine:    Incremental{},
	}
}

// Compute returns the convex hull of points. Faces are triangles (coplanar
// triangles are never merged); Edges holds the sharp edges only. Vertices
// are the hull vertices in input order.
func Compute(points []geom.Vec3, opts ...Option) (*geom.Polyhedron, error) {
	o := DefaultOptions()
	for _, set := range opts {
		set(&o)
	}

	if len(points) < 4 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(points))
	}

	tris, err := o.Engine.Triangulate(points, o.Tolerance*Extent(points))
	if err != nil {
		return nil, err
	}
	if len(tris) < 4 {
		return nil, fmt.Errorf("%w: %d faces", ErrDegenerate, len(tris))
	}

	p := compact(points, tris)
	p.Edges = SharpEdges(p, o.EdgeAngle)
	return p, nil
}

// Extent returns the largest absolute coordinate of the point set, at
// least 1, used to scale tolerances.
func Extent(points []geom.Vec3) float64 {
	s := 1.0
	for _, p := range points {
		s = math.Max(s, math.Max(math.Abs(p.X), math.Max(math.Abs(p.Y), math.Abs(p.Z))))
	}
	return s
}

// compact keeps only the referenced points, preserving their input order.
func compact(points []geom.Vec3, tris [][3]int) *geom.Polyhedron {
	used := make([]bool, len(points))
	for _, t := range tris {
		used[t[0]], used[t[1]], used[t[2]] = true, true, true
	}

	remap := make([]int, len(points))
	var verts []geom.Vec3
	for i, u := range used {
		if !u {
			remap[i] = -1
			continue
		}
		remap[i] = len(verts)
		verts = append(verts, points[i])
	}

	faces := make([][]int, len(tris))
	for i, t := range tris {
		faces[i] = []int{remap[t[0]], remap[t[1]], remap[t[2]]}
	}
	return &geom.Polyhedron{Vertices: verts, Faces: faces}
}

// SharpEdges returns the edges shared by exactly two faces whose outward
// normals differ by more than angleDeg degrees, i.e. whose dihedral angle
// deviates from 180° by more than the threshold. Internal diagonals of
// planar faces are dropped. Edges are reported in first-seen order.
func SharpEdges(p *geom.Polyhedron, angleDeg float64) []geom.Edge {
	uses, keys := p.EdgeFaces()

	normals := make([]geom.Vec3, len(p.Faces))
	for i := range p.Faces {
		normals[i] = p.FaceNormal(i)
	}

	var edges []geom.Edge
	for _, k := range keys {
		fs := uses[k]
		if len(fs) != 2 {
			continue
		}
		c := normals[fs[0]].Dot(normals[fs[1]])
		c = math.Max(-1, math.Min(1, c))
		if math.Acos(c)*180/math.Pi > angleDeg {
			edges = append(edges, geom.Edge{A: p.Vertices[k.Lo], B: p.Vertices[k.Hi]})
		}
	}
	return edges
}

// Corners returns the vertices of p that touch at least three faces with
// distinct planes, in vertex order. Points that an incremental hull picked
// up on an edge or inside a flat face are not corners. Normals closer than
// tol (1 - cos) count as the same plane.
func Corners(p *geom.Polyhedron, tol float64) []geom.Vec3 {
	normals := make([][]geom.Vec3, len(p.Vertices))
	for i, f := range p.Faces {
		n := p.FaceNormal(i)
		if n.Length2() == 0 {
			continue
		}
		for _, v := range f {
			dup := false
			for _, m := range normals[v] {
				if m.Dot(n) > 1-tol {
					dup = true
					break
				}
			}
			if !dup {
				normals[v] = append(normals[v], n)
			}
		}
	}

	var out []geom.Vec3
	for i, ns := range normals {
		if len(ns) >= 3 {
			out = append(out, p.Vertices[i])
		}
	}
	return out
}
