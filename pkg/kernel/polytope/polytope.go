// Package polytope implements the kernel.Kernel interface with exact convex
// polyhedra. Solids stay in boundary representation: clips are plane cuts
// followed by a fresh hull, and meshes share the polyhedron's own vertices.
package polytope

import (
	"fmt"

	"github.com/chazu/kspace/pkg/geom"
	"github.com/chazu/kspace/pkg/hull"
	"github.com/chazu/kspace/pkg/ibz"
	"github.com/chazu/kspace/pkg/kernel"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*Kernel)(nil)
var _ kernel.Solid = (*solid)(nil)

// solid wraps a convex polyhedron. A nil p is the empty solid.
type solid struct {
	p *geom.Polyhedron
}

// BoundingBox returns the axis-aligned bounding box.
func (s *solid) BoundingBox() (min, max [3]float64) {
	if s.p == nil {
		return min, max
	}
	lo, hi := s.p.Bounds()
	return lo.Array(), hi.Array()
}

// Kernel implements kernel.Kernel on exact convex polyhedra.
type Kernel struct {
	hullOpts []hull.Option
}

// New returns a Kernel. Hull options control the sharp-edge threshold and
// engine used when a cut re-derives the hull.
func New(opts ...hull.Option) *Kernel {
	return &Kernel{hullOpts: opts}
}

func unwrap(s kernel.Solid) *geom.Polyhedron {
	return s.(*solid).p
}

func wrap(p *geom.Polyhedron) kernel.Solid {
	return &solid{p: p}
}

// Polyhedron re-derives the convex hull of p's vertices so that later
// cuts can rely on a closed, outward-wound surface.
func (k *Kernel) Polyhedron(p *geom.Polyhedron) (kernel.Solid, error) {
	if p.IsEmpty() {
		return wrap(nil), nil
	}
	h, err := hull.Compute(p.Vertices, k.hullOpts...)
	if err != nil {
		return nil, fmt.Errorf("polytope: %w", err)
	}
	return wrap(h), nil
}

// Clip keeps the part of s with x·Normal ≤ Dist.
func (k *Kernel) Clip(s kernel.Solid, pl geom.Plane) kernel.Solid {
	p := unwrap(s)
	if p == nil {
		return s
	}
	return wrap(k.clip(p, []geom.Plane{pl}))
}

func (k *Kernel) clip(p *geom.Polyhedron, planes []geom.Plane) *geom.Polyhedron {
	opts := make([]ibz.Option, 0, len(k.hullOpts))
	for _, o := range k.hullOpts {
		opts = append(opts, ibz.WithHullOption(o))
	}
	return ibz.ClipPolyhedron(p, planes, opts...)
}

// Translate moves every vertex and edge by v.
func (k *Kernel) Translate(s kernel.Solid, v geom.Vec3) kernel.Solid {
	return wrap(mapPoints(unwrap(s), func(x geom.Vec3) geom.Vec3 { return x.Add(v) }))
}

// Scale scales about the origin by f. A negative factor is an inversion
// combined with a scale and keeps the winding outward.
func (k *Kernel) Scale(s kernel.Solid, f float64) kernel.Solid {
	out := mapPoints(unwrap(s), func(x geom.Vec3) geom.Vec3 { return x.Scale(f) })
	if out != nil && f < 0 {
		for _, face := range out.Faces {
			for i, j := 0, len(face)-1; i < j; i, j = i+1, j-1 {
				face[i], face[j] = face[j], face[i]
			}
		}
	}
	return wrap(out)
}

// ToMesh shares the polyhedron's vertices between faces.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	return kernel.IndexedMesh(unwrap(s), ""), nil
}

func mapPoints(p *geom.Polyhedron, f func(geom.Vec3) geom.Vec3) *geom.Polyhedron {
	if p == nil {
		return nil
	}
	out := &geom.Polyhedron{
		Vertices: make([]geom.Vec3, len(p.Vertices)),
		Faces:    make([][]int, len(p.Faces)),
		Edges:    make([]geom.Edge, len(p.Edges)),
	}
	for i, v := range p.Vertices {
		out.Vertices[i] = f(v)
	}
	for i, face := range p.Faces {
		out.Faces[i] = append([]int(nil), face...)
	}
	for i, e := range p.Edges {
		out.Edges[i] = geom.Edge{A: f(e.A), B: f(e.B)}
	}
	return out
}
