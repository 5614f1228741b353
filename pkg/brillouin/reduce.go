package brillouin

import (
	"math"

	"github.com/chazu/kspace/pkg/geom"
	"github.com/chazu/kspace/pkg/lattice"
)

// maxReduceSteps bounds the reduction loop; each step strictly shortens a
// basis vector, so real cells finish in a handful.
const maxReduceSteps = 256

// reduce returns a short, nearly orthogonal basis c for the lattice of r
// together with the unimodular integer matrix u with c_i = Σ_j u[i][j]·b_j.
// Each step replaces one vector by a shorter combination with the other
// two, pairwise (c_i − m·c_j) and with both others (c_i ± c_j ± c_k), until
// no replacement helps. For a reduced basis the zone's facet vectors have
// coordinates in {−1, 0, 1}.
func reduce(r lattice.Reciprocal) ([3]geom.Vec3, [3][3]int) {
	u := [3][3]int{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	c := [3]geom.Vec3{r[0], r[1], r[2]}

	try := func(i int, cand [3]int) bool {
		g := r.Vector(cand[0], cand[1], cand[2])
		if g.Length2() < c[i].Length2()*(1-1e-12) {
			u[i], c[i] = cand, g
			return true
		}
		return false
	}

	for step := 0; step < maxReduceSteps; step++ {
		changed := false
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if i == j || c[j].Length2() == 0 {
					continue
				}
				m := int(math.Round(c[i].Dot(c[j]) / c[j].Length2()))
				if m != 0 && try(i, combine(u[i], u[j], -m, u[i], 0)) {
					changed = true
				}
			}
		}
		for i := 0; i < 3; i++ {
			j, k := (i+1)%3, (i+2)%3
			for _, e := range [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}} {
				if try(i, combine(u[i], u[j], e[0], u[k], e[1])) {
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return c, u
}

// combine returns a + p·b + q·d.
func combine(a, b [3]int, p int, d [3]int, q int) [3]int {
	return [3]int{a[0] + p*b[0] + q*d[0], a[1] + p*b[1] + q*d[1], a[2] + p*b[2] + q*d[2]}
}
