// Package kernel defines the abstract geometry kernel interface.
// Implementations (polytope, sdfx) turn computed polyhedra into solids that
// can be cut, placed and meshed for an external renderer. The kernel
// abstraction allows swapping backends without changing the rest of the
// system.
package kernel

import "github.com/chazu/kspace/pkg/geom"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Polyhedron(p *geom.Polyhedron) (Solid, error)

	// Cuts
	Clip(s Solid, pl geom.Plane) Solid // keeps x·Normal ≤ Dist

	// Transforms
	Translate(s Solid, v geom.Vec3) Solid
	Scale(s Solid, k float64) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
