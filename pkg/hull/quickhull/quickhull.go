// Package quickhull adapts github.com/markus-wa/quickhull-go to the
// hull.Engine interface.
package quickhull

import (
	"fmt"

	"github.com/golang/geo/r3"
	qh "github.com/markus-wa/quickhull-go/v2"

	"github.com/chazu/kspace/pkg/geom"
	"github.com/chazu/kspace/pkg/hull"
)

var _ hull.Engine = Engine{}

// Engine triangulates with the QuickHull algorithm.
type Engine struct{}

// Triangulate implements hull.Engine. The library's winding is not relied
// upon: every triangle is re-oriented to face away from the centroid of the
// hull vertices.
func (Engine) Triangulate(points []geom.Vec3, eps float64) (tris [][3]int, err error) {
	if len(points) < 4 {
		return nil, fmt.Errorf("%w: got %d", hull.ErrTooFewPoints, len(points))
	}

	defer func() {
		if r := recover(); r != nil {
			tris, err = nil, fmt.Errorf("%w: quickhull: %v", hull.ErrDegenerate, r)
		}
	}()

	in := make([]r3.Vector, len(points))
	for i, p := range points {
		in[i] = r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
	}
	ch := new(qh.QuickHull).ConvexHull(in, true, true, eps)
	if len(ch.Indices) < 12 || len(ch.Indices)%3 != 0 {
		return nil, fmt.Errorf("%w: quickhull returned %d indices", hull.ErrDegenerate, len(ch.Indices))
	}

	seen := make(map[int]bool)
	var c geom.Vec3
	for _, idx := range ch.Indices {
		if !seen[idx] {
			seen[idx] = true
			c = c.Add(points[idx])
		}
	}
	c = c.Scale(1 / float64(len(seen)))

	for i := 0; i+2 < len(ch.Indices); i += 3 {
		t := [3]int{ch.Indices[i], ch.Indices[i+1], ch.Indices[i+2]}
		a, b, d := points[t[0]], points[t[1]], points[t[2]]
		n := b.Sub(a).Cross(d.Sub(a))
		if n.Length2() == 0 {
			continue // sliver
		}
		if n.Dot(a.Sub(c)) < 0 {
			t[1], t[2] = t[2], t[1]
		}
		tris = append(tris, t)
	}
	return tris, nil
}
