// Package ibz clips a Brillouin zone down to an approximate irreducible
// wedge of its point group.
//
// Each non-identity rotation R contributes the plane through the origin
// that bisects a fixed probe direction p and its image R·p; the kept side
// is the one containing p. The wedge is exact for inversion and for
// rotations whose axis is perpendicular to the probe component they move,
// and approximate otherwise.
package ibz

import (
	"math"
	"sort"

	"github.com/chazu/kspace/pkg/brillouin"
	"github.com/chazu/kspace/pkg/geom"
	"github.com/chazu/kspace/pkg/hull"
	"github.com/chazu/kspace/pkg/symmetry"
)

const (
	// MinDisplacement is the smallest |R·p - p| that yields a plane.
	MinDisplacement = 1e-8

	// ParallelTolerance merges planes with |n1·n2| > 1 - ParallelTolerance.
	ParallelTolerance = 1e-8

	// clipTolerance is relative to the polyhedron extent.
	clipTolerance = 1e-9

	// cornerTolerance is 1 - cos of the angle below which two face normals
	// are the same plane.
	cornerTolerance = 1e-6
)

// DefaultProbe is a generic direction off every high-symmetry axis and
// mirror of the common crystal systems.
var DefaultProbe = geom.V(1, 0.3, 0.17).Normalize()

// Option configures ClippingPlanes, ClipPolyhedron and Irreducible.
type Option func(*options)

type options struct {
	probe    geom.Vec3
	hullOpts []hull.Option
}

func buildOptions(opts []Option) *options {
	o := &options{probe: DefaultProbe}
	for _, set := range opts {
		set(o)
	}
	return o
}

// WithProbe replaces the probe direction. A zero vector keeps the default.
func WithProbe(p geom.Vec3) Option {
	return func(o *options) {
		if p.Length2() > 0 {
			o.probe = p.Normalize()
		}
	}
}

// WithEdgeAngle sets the sharp-edge threshold of the clipped hull.
func WithEdgeAngle(deg float64) Option {
	return func(o *options) { o.hullOpts = append(o.hullOpts, hull.WithEdgeAngle(deg)) }
}

// WithHullOption passes any hull option through to the clipped solid.
func WithHullOption(h hull.Option) Option {
	return func(o *options) { o.hullOpts = append(o.hullOpts, h) }
}

// WithHullEngine selects the hull backend for the clipped solid.
func WithHullEngine(e hull.Engine) Option {
	return func(o *options) { o.hullOpts = append(o.hullOpts, hull.WithEngine(e)) }
}

// ClippingPlanes returns one plane through the origin per non-identity
// rotation of group, with normal normalize(R·p - p), dropping planes
// parallel or antiparallel to one already kept. The kept half-space of
// each plane is x·Normal ≤ 0. An identity-only or empty group yields no
// planes; the result never has more than len(group)-1 entries.
func ClippingPlanes(group []symmetry.CartesianRotation, opts ...Option) []geom.Plane {
	o := buildOptions(opts)
	p := o.probe

	var planes []geom.Plane
	for _, r := range group {
		d := r.Apply(p).Sub(p)
		if d.Length() < MinDisplacement {
			continue
		}
		n := d.Normalize()
		dup := false
		for _, pl := range planes {
			if math.Abs(pl.Normal.Dot(n)) > 1-ParallelTolerance {
				dup = true
				break
			}
		}
		if !dup {
			planes = append(planes, geom.Plane{Normal: n})
		}
	}
	return planes
}

// Irreducible clips z against the clipping planes of group. With no planes
// it returns z itself. It returns nil when z is nil or the clip leaves no
// solid. The result keeps z's order and basis, and its Planes are z's
// planes followed by the cuts.
func Irreducible(z *brillouin.Zone, group []symmetry.CartesianRotation, opts ...Option) *brillouin.Zone {
	if z == nil {
		return nil
	}
	planes := ClippingPlanes(group, opts...)
	if len(planes) == 0 {
		return z
	}

	p := ClipPolyhedron(&z.Polyhedron, planes, opts...)
	if p == nil {
		return nil
	}

	bounds := make([]geom.Plane, 0, len(z.Planes)+len(planes))
	bounds = append(bounds, z.Planes...)
	bounds = append(bounds, planes...)
	return &brillouin.Zone{
		Polyhedron: *p,
		Volume:     p.Volume(),
		Order:      z.Order,
		Planes:     bounds,
		Basis:      z.Basis,
	}
}

// ClipPolyhedron keeps the part of p on the x·Normal ≤ Dist side of every
// plane and returns the convex hull of what remains. It returns nil when
// nothing with volume is left.
//
// Every face is clipped Sutherland–Hodgman style; the points left on each
// cutting plane are ordered into a cap polygon so that later planes cut
// the cap as well.
func ClipPolyhedron(p *geom.Polyhedron, planes []geom.Plane, opts ...Option) *geom.Polyhedron {
	if p.IsEmpty() {
		return nil
	}
	o := buildOptions(opts)
	eps := clipTolerance * hull.Extent(p.Vertices)

	faces := make([][]geom.Vec3, 0, len(p.Faces))
	for _, f := range p.Faces {
		poly := make([]geom.Vec3, len(f))
		for i, idx := range f {
			poly[i] = p.Vertices[idx]
		}
		faces = append(faces, poly)
	}

	for _, pl := range planes {
		faces = clipFaces(faces, pl, eps)
		if len(faces) == 0 {
			return nil
		}
	}

	var pts []geom.Vec3
	for _, f := range faces {
		for _, v := range f {
			pts = appendUnique(pts, v, eps)
		}
	}
	if len(pts) < 4 {
		return nil
	}
	out, err := hull.Compute(pts, o.hullOpts...)
	if err != nil {
		return nil
	}

	// Cut points on the edges of the clipped solid are not corners; drop
	// them and rebuild so sharp edges are not split.
	if corners := hull.Corners(out, cornerTolerance); len(corners) < out.VertexCount() {
		if out, err = hull.Compute(corners, o.hullOpts...); err != nil {
			return nil
		}
	}
	return out
}

func clipFaces(faces [][]geom.Vec3, pl geom.Plane, eps float64) [][]geom.Vec3 {
	out := make([][]geom.Vec3, 0, len(faces)+1)
	var onPlane []geom.Vec3
	for _, f := range faces {
		c := clipPolygon(f, pl, eps)
		if len(c) < 3 {
			continue
		}
		out = append(out, c)
		for _, v := range c {
			if math.Abs(pl.SignedDistance(v)) <= eps {
				onPlane = appendUnique(onPlane, v, eps)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	if len(onPlane) >= 3 {
		out = append(out, orderCap(onPlane, pl.Normal))
	}
	return out
}

// clipPolygon keeps the part of a convex polygon with SignedDistance ≤ eps.
func clipPolygon(poly []geom.Vec3, pl geom.Plane, eps float64) []geom.Vec3 {
	n := len(poly)
	if n == 0 {
		return nil
	}
	out := make([]geom.Vec3, 0, n+1)
	prev := poly[n-1]
	dp := pl.SignedDistance(prev)
	for _, cur := range poly {
		dc := pl.SignedDistance(cur)
		switch {
		case dc <= eps:
			if dp > eps && dc < -eps {
				out = append(out, crossing(prev, cur, dp, dc))
			}
			out = append(out, cur)
		case dp < -eps:
			out = append(out, crossing(prev, cur, dp, dc))
		}
		prev, dp = cur, dc
	}
	return dedupRing(out, eps)
}

func crossing(a, b geom.Vec3, da, db float64) geom.Vec3 {
	t := da / (da - db)
	return a.Add(b.Sub(a).Scale(t))
}

// dedupRing drops consecutive duplicates, including last-to-first.
func dedupRing(poly []geom.Vec3, eps float64) []geom.Vec3 {
	out := poly[:0]
	for _, v := range poly {
		if len(out) > 0 && out[len(out)-1].ApproxEqual(v, eps) {
			continue
		}
		out = append(out, v)
	}
	for len(out) > 1 && out[0].ApproxEqual(out[len(out)-1], eps) {
		out = out[:len(out)-1]
	}
	return out
}

// orderCap sorts coplanar points by angle around their centroid.
func orderCap(pts []geom.Vec3, normal geom.Vec3) []geom.Vec3 {
	var c geom.Vec3
	for _, v := range pts {
		c = c.Add(v)
	}
	c = c.Scale(1 / float64(len(pts)))

	far := 0
	for i, v := range pts {
		if v.Sub(c).Length2() > pts[far].Sub(c).Length2() {
			far = i
		}
	}
	u := pts[far].Sub(c).Normalize()
	w := normal.Cross(u)

	angle := make([]float64, len(pts))
	for i, v := range pts {
		d := v.Sub(c)
		angle[i] = math.Atan2(d.Dot(w), d.Dot(u))
	}
	idx := make([]int, len(pts))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return angle[idx[a]] < angle[idx[b]] })

	out := make([]geom.Vec3, len(pts))
	for i, j := range idx {
		out[i] = pts[j]
	}
	return out
}

func appendUnique(pts []geom.Vec3, x geom.Vec3, eps float64) []geom.Vec3 {
	for _, p := range pts {
		if p.ApproxEqual(x, eps) {
			return pts
		}
	}
	return append(pts, x)
}
