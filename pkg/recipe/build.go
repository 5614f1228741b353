package recipe

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/kspace/pkg/brillouin"
	"github.com/chazu/kspace/pkg/hull/quickhull"
	"github.com/chazu/kspace/pkg/ibz"
	"github.com/chazu/kspace/pkg/lattice"
	"github.com/chazu/kspace/pkg/symmetry"
)

// Result is the computed output of one job. Wedge is set only for
// irreducible jobs, and is nil when the clip left nothing.
type Result struct {
	Name  string
	Zone  *brillouin.Zone
	Wedge *brillouin.Zone
	Group []symmetry.CartesianRotation
}

// options maps the job's settings onto zone builder options.
func (j *Job) options() []brillouin.Option {
	var opts []brillouin.Option
	if j.MaxPlanes > 0 {
		opts = append(opts, brillouin.WithMaxPlanes(j.Order, j.MaxPlanes))
	}
	if j.EdgeAngleDeg > 0 {
		opts = append(opts, brillouin.WithEdgeAngle(j.EdgeAngleDeg))
	}
	if j.Hull == HullQuickhull {
		opts = append(opts, brillouin.WithHullEngine(quickhull.Engine{}))
	}
	return opts
}

func (j *Job) ibzOptions() []ibz.Option {
	var opts []ibz.Option
	if j.EdgeAngleDeg > 0 {
		opts = append(opts, ibz.WithEdgeAngle(j.EdgeAngleDeg))
	}
	if j.Hull == HullQuickhull {
		opts = append(opts, ibz.WithHullEngine(quickhull.Engine{}))
	}
	return opts
}

// Build computes the job's zone and, for irreducible jobs, its wedge.
func (j *Job) Build() (*Result, error) {
	direct, err := j.Direct()
	if err != nil {
		return nil, err
	}
	r, err := lattice.ReciprocalOf(direct)
	if err != nil {
		return nil, fmt.Errorf("recipe: zone %q: %w", j.Name, err)
	}
	z, err := brillouin.Compute(r, j.Order, j.options()...)
	if err != nil {
		return nil, fmt.Errorf("recipe: zone %q: %w", j.Name, err)
	}

	res := &Result{Name: j.Name, Zone: z}
	if j.Irreducible {
		res.Group = symmetry.CartesianGroup(j.Operations(), r.Matrix())
		res.Wedge = ibz.Irreducible(z, res.Group, j.ibzOptions()...)
	}
	return res, nil
}

// Build computes every job concurrently and returns the results in job
// order. The first failure cancels the jobs not yet started.
func (s *Set) Build(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, len(s.Zones))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range s.Zones {
		j := &s.Zones[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := j.Build()
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
