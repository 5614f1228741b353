// Package tessellate walks a tree of placed zones and produces triangle
// meshes using a geometry kernel. One mesh is produced per part.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/kspace/pkg/brillouin"
	"github.com/chazu/kspace/pkg/geom"
	"github.com/chazu/kspace/pkg/kernel"
)

// Node is a Part or a Group.
type Node interface {
	node()
}

// Part is one convex solid to mesh. Clip planes are applied in the part's
// own frame, before scaling and placement.
type Part struct {
	Name   string
	Solid  *geom.Polyhedron
	Clip   []geom.Plane
	Scale  float64 // 0 means 1
	Offset geom.Vec3
}

// Group places its children. Offsets and scales nest: a child's position
// is scaled by every enclosing group and then moved by its offset.
type Group struct {
	Name     string
	Scale    float64 // 0 means 1
	Offset   geom.Vec3
	Children []Node
}

func (*Part) node()  {}
func (*Group) node() {}

// ZonePart returns a part for a computed zone.
func ZonePart(name string, z *brillouin.Zone) *Part {
	if z == nil {
		return &Part{Name: name}
	}
	return &Part{Name: name, Solid: &z.Polyhedron}
}

// transform is x ↦ scale·x + offset.
type transform struct {
	scale  float64
	offset geom.Vec3
}

func (t transform) apply(v geom.Vec3) geom.Vec3 {
	return v.Scale(t.scale).Add(t.offset)
}

// then returns t applied after inner.
func (t transform) then(inner transform) transform {
	return transform{scale: t.scale * inner.scale, offset: t.apply(inner.offset)}
}

// transformStack accumulates group transforms and names during traversal.
type transformStack struct {
	frames []transform
	names  []string
}

func newTransformStack() *transformStack {
	return &transformStack{}
}

func (ts *transformStack) push(name string, t transform) {
	ts.frames = append(ts.frames, t)
	ts.names = append(ts.names, name)
}

func (ts *transformStack) pop() {
	if len(ts.frames) > 0 {
		ts.frames = ts.frames[:len(ts.frames)-1]
		ts.names = ts.names[:len(ts.names)-1]
	}
}

// accumulated returns the composition of every frame on the stack, outermost
// last, followed by inner.
func (ts *transformStack) accumulated(inner transform) transform {
	out := inner
	for i := len(ts.frames) - 1; i >= 0; i-- {
		out = ts.frames[i].then(out)
	}
	return out
}

// path joins the enclosing group names and name with "/".
func (ts *transformStack) path(name string) string {
	out := ""
	for _, n := range ts.names {
		if n != "" {
			out += n + "/"
		}
	}
	return out + name
}

func scaleOrOne(s float64) float64 {
	if s == 0 {
		return 1
	}
	return s
}

// Tessellate walks the roots in order and produces one triangle mesh per
// part using the provided geometry kernel. Parts with no solid, or whose
// clip leaves nothing, produce no mesh. The inputs are never mutated.
func Tessellate(roots []Node, k kernel.Kernel) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	ts := newTransformStack()

	for i, root := range roots {
		if root == nil {
			continue
		}
		collected, err := walkNode(k, root, ts)
		if err != nil {
			return nil, fmt.Errorf("tessellate: error walking root %d: %w", i, err)
		}
		meshes = append(meshes, collected...)
	}

	return meshes, nil
}

// walkNode recursively traverses a node and its children, collecting meshes.
func walkNode(k kernel.Kernel, n Node, ts *transformStack) ([]*kernel.Mesh, error) {
	switch n := n.(type) {
	case *Part:
		return handlePart(k, n, ts)
	case *Group:
		return handleGroup(k, n, ts)
	default:
		return nil, fmt.Errorf("unknown node type %T", n)
	}
}

// handlePart builds, cuts, places and meshes one solid.
func handlePart(k kernel.Kernel, p *Part, ts *transformStack) ([]*kernel.Mesh, error) {
	if p.Solid.IsEmpty() {
		return nil, nil
	}
	name := ts.path(p.Name)

	solid, err := k.Polyhedron(p.Solid)
	if err != nil {
		return nil, fmt.Errorf("part %q: %w", name, err)
	}
	for _, pl := range p.Clip {
		solid = k.Clip(solid, pl)
	}

	// Apply the accumulated scale first, then translation.
	t := ts.accumulated(transform{scale: scaleOrOne(p.Scale), offset: p.Offset})
	if t.scale != 1 {
		solid = k.Scale(solid, t.scale)
	}
	if t.offset != (geom.Vec3{}) {
		solid = k.Translate(solid, t.offset)
	}

	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for part %q: %w", name, err)
	}
	if mesh == nil || mesh.IsEmpty() {
		return nil, nil
	}
	mesh.PartName = name

	// Sampling kernels lose the sharp edges; the uncut polyhedron still
	// knows them.
	if len(mesh.Edges) == 0 && len(p.Clip) == 0 {
		edges := make([]geom.Edge, len(p.Solid.Edges))
		for i, e := range p.Solid.Edges {
			edges[i] = geom.Edge{A: t.apply(e.A), B: t.apply(e.B)}
		}
		mesh.Edges = kernel.EdgeSegments(edges)
	}

	return []*kernel.Mesh{mesh}, nil
}

// handleGroup pushes the group transform, recurses into children, then pops.
func handleGroup(k kernel.Kernel, g *Group, ts *transformStack) ([]*kernel.Mesh, error) {
	ts.push(g.Name, transform{scale: scaleOrOne(g.Scale), offset: g.Offset})
	defer ts.pop()

	var meshes []*kernel.Mesh
	for _, child := range g.Children {
		if child == nil {
			continue
		}
		collected, err := walkNode(k, child, ts)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}

// Row returns a group that lays parts out side by side along +x, each
// centred on the axis, with gap between neighbouring bounding boxes. Part
// offsets are replaced; scales are kept.
func Row(name string, gap float64, parts ...*Part) *Group {
	g := &Group{Name: name}
	x := 0.0
	placed := 0
	for _, p := range parts {
		q := *p
		if p.Solid.IsEmpty() {
			g.Children = append(g.Children, &q)
			continue
		}
		s := scaleOrOne(p.Scale)
		lo, hi := p.Solid.Bounds()
		if s < 0 {
			lo, hi = hi, lo
		}
		lo, hi = lo.Scale(s), hi.Scale(s)
		if placed > 0 {
			x += gap
		}
		placed++
		centre := lo.Add(hi).Scale(0.5)
		q.Offset = geom.V(x-lo.X, -centre.Y, -centre.Z)
		x += math.Abs(hi.X - lo.X)
		g.Children = append(g.Children, &q)
	}
	return g
}
