// Package brillouin builds first Brillouin zones: the Wigner–Seitz cell of
// a reciprocal lattice, found by intersecting the bisector half-spaces of
// nearby reciprocal lattice vectors and taking the convex hull of the
// surviving intersection points.
package brillouin

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/kspace/pkg/geom"
	"github.com/chazu/kspace/pkg/lattice"
)

const (
	// MaxOrder is the largest supported shell order. Larger requests are
	// clamped.
	MaxOrder = 3

	// VertexTolerance is the absolute distance below which two vertices
	// are the same.
	VertexTolerance = 1e-8

	// voronoiTolerance is relative to |G|².
	voronoiTolerance = 1e-9

	// singularTolerance is relative to |G1||G2||G3|.
	singularTolerance = 1e-12

	// shellTolerance groups candidate lengths into shells, relative to |G|.
	shellTolerance = 1e-9
)

// DefaultMaxPlanes is the per-order cap on candidate bisector planes.
var DefaultMaxPlanes = map[int]int{1: 50, 2: 100, 3: 150}

// Candidate is a reciprocal lattice vector G = h·b1 + k·b2 + l·b3 whose
// bisector plane x·G = |G|²/2 may bound the zone.
type Candidate struct {
	HKL [3]int
	G   geom.Vec3
	G2  float64 // |G|²
}

// ClampOrder limits order to [1, MaxOrder].
func ClampOrder(order int) int {
	if order < 1 {
		return 1
	}
	if order > MaxOrder {
		return MaxOrder
	}
	return order
}

// Candidates enumerates the non-zero lattice vectors inside a ball whose
// radius grows with order, shortest first, ties broken by (h, k, l). The
// ball is searched in a reduced basis c of r, with every reduced coordinate
// bounded by order+1, so sheared or oblique input bases find the same
// vectors as their reduced form. The radius is (order+1)/2·sqrt(Σ|c_i|²);
// at order 1 that is the covering bound every facet vector satisfies.
//
// When more than maxPlanes remain, the list is cut at the last complete
// length shell that fits; a shell is never split, so G and −G are always
// kept together. If even the first shell exceeds maxPlanes, that shell is
// kept whole.
func Candidates(r lattice.Reciprocal, order, maxPlanes int) []Candidate {
	n := ClampOrder(order) + 1
	c, u := reduce(r)
	half := float64(n) / 2
	r2 := half * half * (c[0].Length2() + c[1].Length2() + c[2].Length2())
	limit := r2 * (1 + shellTolerance)

	side := 2*n + 1
	out := make([]Candidate, 0, side*side*side-1)
	for p := -n; p <= n; p++ {
		for q := -n; q <= n; q++ {
			for s := -n; s <= n; s++ {
				if p == 0 && q == 0 && s == 0 {
					continue
				}
				hkl := [3]int{
					p*u[0][0] + q*u[1][0] + s*u[2][0],
					p*u[0][1] + q*u[1][1] + s*u[2][1],
					p*u[0][2] + q*u[1][2] + s*u[2][2],
				}
				g := r.Vector(hkl[0], hkl[1], hkl[2])
				if g2 := g.Length2(); g2 <= limit {
					out = append(out, Candidate{HKL: hkl, G: g, G2: g2})
				}
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].G2 != out[j].G2 {
			return out[i].G2 < out[j].G2
		}
		a, b := out[i].HKL, out[j].HKL
		for c := 0; c < 3; c++ {
			if a[c] != b[c] {
				return a[c] < b[c]
			}
		}
		return false
	})

	if maxPlanes <= 0 || len(out) <= maxPlanes {
		return out
	}

	// Walk shell boundaries and keep the longest prefix within the cap.
	keep := 0
	for i := 0; i < len(out); {
		j := i + 1
		base := math.Sqrt(out[i].G2)
		for j < len(out) && math.Sqrt(out[j].G2)-base <= shellTolerance*base {
			j++
		}
		if j > maxPlanes && keep > 0 {
			break
		}
		keep = j
		if j >= maxPlanes {
			break
		}
		i = j
	}
	return out[:keep]
}

// GenerateVertices returns the Wigner–Seitz vertices of r for the given
// shell order: every intersection of three bisector planes that lies inside
// the half-space x·G ≤ |G|²/2 of every candidate. Singular triples are
// skipped. Vertices are deduplicated within VertexTolerance and returned in
// first-seen order.
func GenerateVertices(r lattice.Reciprocal, order int, opts ...Option) ([]geom.Vec3, error) {
	if v := r.Volume(); math.Abs(v) < lattice.DegenerateEps || math.IsNaN(v) {
		return nil, fmt.Errorf("brillouin: %w: reciprocal volume %g", lattice.ErrDegenerate, v)
	}
	o := buildOptions(opts)
	order = ClampOrder(order)
	return vertices(Candidates(r, order, o.planeCap(order))), nil
}

func vertices(cands []Candidate) []geom.Vec3 {
	var out []geom.Vec3
	n := len(cands)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			for k := j + 1; k < n; k++ {
				x, ok := intersect(cands[i], cands[j], cands[k])
				if !ok || !inside(x, cands) {
					continue
				}
				out = appendUnique(out, x)
			}
		}
	}
	return out
}

// intersect solves G_i·x = |G_i|²/2 for the three candidates by Cramer's
// rule. Negating all three G negates x exactly, which keeps the vertex set
// centrosymmetric to the last bit.
func intersect(a, b, c Candidate) (geom.Vec3, bool) {
	g1, g2, g3 := a.G, b.G, c.G
	det := geom.TripleProduct(g1, g2, g3)
	scale := math.Sqrt(a.G2 * b.G2 * c.G2)
	if math.Abs(det) <= singularTolerance*scale {
		return geom.Vec3{}, false
	}

	// x = (d1 (g2×g3) + d2 (g3×g1) + d3 (g1×g2)) / det
	d1, d2, d3 := a.G2/2, b.G2/2, c.G2/2
	x := g2.Cross(g3).Scale(d1).
		Add(g3.Cross(g1).Scale(d2)).
		Add(g1.Cross(g2).Scale(d3)).
		Scale(1 / det)
	return x, true
}

func inside(x geom.Vec3, cands []Candidate) bool {
	for _, c := range cands {
		if x.Dot(c.G) > c.G2/2+voronoiTolerance*c.G2 {
			return false
		}
	}
	return true
}

func appendUnique(pts []geom.Vec3, x geom.Vec3) []geom.Vec3 {
	for _, p := range pts {
		if p.ApproxEqual(x, VertexTolerance) {
			return pts
		}
	}
	return append(pts, x)
}
