package brillouin

import (
	"fmt"
	"math"

	"github.com/chazu/kspace/pkg/geom"
	"github.com/chazu/kspace/pkg/hull"
	"github.com/chazu/kspace/pkg/lattice"
)

// Zone is a Brillouin zone polyhedron with its volume and shell order.
//
// Planes are the half-spaces x·Normal ≤ Dist that bound the zone (unit
// normals). For a full zone they are the bisector planes supporting at
// least one face; a clipped zone adds its cutting planes. Basis is the
// reciprocal lattice the zone was built from.
type Zone struct {
	geom.Polyhedron
	Volume float64            `json:"volume"`
	Order  int                `json:"order"`
	Planes []geom.Plane       `json:"planes,omitempty"`
	Basis  lattice.Reciprocal `json:"basis"`
}

// Option configures GenerateVertices and Compute.
type Option func(*options)

type options struct {
	maxPlanes map[int]int
	hullOpts  []hull.Option
}

func buildOptions(opts []Option) *options {
	o := &options{maxPlanes: make(map[int]int, len(DefaultMaxPlanes))}
	for k, v := range DefaultMaxPlanes {
		o.maxPlanes[k] = v
	}
	for _, set := range opts {
		set(o)
	}
	return o
}

func (o *options) planeCap(order int) int {
	return o.maxPlanes[order]
}

// WithMaxPlanes overrides the candidate-plane cap for one order. A
// non-positive n removes the cap.
func WithMaxPlanes(order, n int) Option {
	return func(o *options) { o.maxPlanes[ClampOrder(order)] = n }
}

// WithEdgeAngle sets the sharp-edge threshold in degrees.
func WithEdgeAngle(deg float64) Option {
	return func(o *options) { o.hullOpts = append(o.hullOpts, hull.WithEdgeAngle(deg)) }
}

// WithHullTolerance sets the relative hull visibility tolerance.
func WithHullTolerance(tol float64) Option {
	return func(o *options) { o.hullOpts = append(o.hullOpts, hull.WithTolerance(tol)) }
}

// WithHullEngine selects the hull triangulation backend.
func WithHullEngine(e hull.Engine) Option {
	return func(o *options) { o.hullOpts = append(o.hullOpts, hull.WithEngine(e)) }
}

// Compute builds the Brillouin zone of r at the given shell order (clamped
// to [1, MaxOrder]). It fails with lattice.ErrDegenerate for a singular
// basis. The result depends only on its inputs.
func Compute(r lattice.Reciprocal, order int, opts ...Option) (*Zone, error) {
	if v := r.Volume(); math.Abs(v) < lattice.DegenerateEps || math.IsNaN(v) {
		return nil, fmt.Errorf("brillouin: %w: reciprocal volume %g", lattice.ErrDegenerate, v)
	}
	o := buildOptions(opts)
	order = ClampOrder(order)

	cands := Candidates(r, order, o.planeCap(order))
	verts := vertices(cands)
	p, err := hull.Compute(verts, o.hullOpts...)
	if err != nil {
		return nil, fmt.Errorf("brillouin: order %d hull of %d vertices: %w", order, len(verts), err)
	}

	return &Zone{
		Polyhedron: *p,
		Volume:     p.Volume(),
		Order:      order,
		Planes:     supportingPlanes(cands, p.Vertices),
		Basis:      r,
	}, nil
}

// supportingPlanes keeps the bisector planes that at least three zone
// vertices lie on.
func supportingPlanes(cands []Candidate, verts []geom.Vec3) []geom.Plane {
	var planes []geom.Plane
	for _, c := range cands {
		g := math.Sqrt(c.G2)
		pl := geom.Plane{Normal: c.G.Scale(1 / g), Dist: g / 2}
		on := 0
		for _, v := range verts {
			if math.Abs(pl.SignedDistance(v)) <= VertexTolerance*math.Max(1, g) {
				on++
			}
		}
		if on >= 3 {
			planes = append(planes, pl)
		}
	}
	return planes
}

// Contains reports whether k lies inside or on the zone, within tol.
func (z *Zone) Contains(k geom.Vec3, tol float64) bool {
	for _, pl := range z.Planes {
		if pl.SignedDistance(k) > tol {
			return false
		}
	}
	return true
}

// maxFoldSteps bounds the facet walk in Fold.
const maxFoldSteps = 1024

// Fold translates k by a reciprocal lattice vector into the first zone:
// the result is the image of k closest to the origin. It also returns the
// integer coordinates (h, k, l) of the lattice vector that was subtracted.
func (z *Zone) Fold(k geom.Vec3) (geom.Vec3, [3]int) {
	direct, err := z.Basis.Direct()
	if err != nil {
		return k, [3]int{}
	}

	// Fractional coordinates in the reciprocal basis: f_i = a_i·k / 2π.
	var n [3]int
	for i := 0; i < 3; i++ {
		n[i] = int(math.Round(direct[i].Dot(k) / (2 * math.Pi)))
	}
	cur := k.Sub(z.Basis.Vector(n[0], n[1], n[2]))

	// Cross any facet k lies beyond. Each step strictly shortens k, and
	// once no facet is violated k is the shortest image.
	for iter := 0; iter < maxFoldSteps; iter++ {
		worst, over := -1, 0.0
		for i, pl := range z.Planes {
			if d := pl.SignedDistance(cur) - 1e-12*math.Max(1, pl.Dist); d > over {
				worst, over = i, d
			}
		}
		if worst < 0 {
			break
		}
		g := z.Planes[worst].Normal.Scale(2 * z.Planes[worst].Dist)
		var step [3]int
		for i := 0; i < 3; i++ {
			step[i] = int(math.Round(direct[i].Dot(g) / (2 * math.Pi)))
		}
		cur = cur.Sub(z.Basis.Vector(step[0], step[1], step[2]))
		n[0], n[1], n[2] = n[0]+step[0], n[1]+step[1], n[2]+step[2]
	}
	return cur, n
}
