package validate

import (
	"fmt"

	"github.com/chazu/kspace/pkg/geom"
	"github.com/chazu/kspace/pkg/hull"
)

// ---------------------------------------------------------------------------
// Tier 2: geometric validation (errors + warnings)
// ---------------------------------------------------------------------------

// edgeTolerance is relative to the polyhedron extent.
const edgeTolerance = 1e-9

// geometry runs all Tier 2 checks. It assumes Structure found nothing.
func geometry(name string, p *geom.Polyhedron) ([]Finding, []Warning) {
	var errs []Finding
	var warnings []Warning

	errs = append(errs, validateManifold(name, p)...)
	errs = append(errs, validateEuler(name, p)...)
	errs = append(errs, validateWinding(name, p)...)
	warnings = append(warnings, validateSharpEdges(name, p)...)

	return errs, warnings
}

// validateManifold checks that every edge is shared by exactly two faces.
func validateManifold(name string, p *geom.Polyhedron) []Finding {
	var errs []Finding
	uses, keys := p.EdgeFaces()
	for _, k := range keys {
		if n := len(uses[k]); n != 2 {
			errs = append(errs, Finding{
				Part:     name,
				Message:  fmt.Sprintf("edge %d-%d is used by %d faces, want 2", k.Lo, k.Hi, n),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateEuler checks V - E + F = 2.
func validateEuler(name string, p *geom.Polyhedron) []Finding {
	if chi := p.EulerCharacteristic(); chi != 2 {
		return []Finding{{
			Part:     name,
			Message:  fmt.Sprintf("Euler characteristic is %d, want 2", chi),
			Severity: SeverityError,
		}}
	}
	return nil
}

// validateWinding checks that every face normal points away from the
// vertex centroid, which holds for a convex solid wound outward.
func validateWinding(name string, p *geom.Polyhedron) []Finding {
	var errs []Finding
	c := p.Centroid()
	eps := edgeTolerance * hull.Extent(p.Vertices)
	for fi := range p.Faces {
		pl := p.FacePlane(fi)
		if pl.Normal.Length2() == 0 {
			errs = append(errs, Finding{
				Part:     name,
				Message:  fmt.Sprintf("face %d has zero area", fi),
				Severity: SeverityError,
			})
			continue
		}
		if pl.SignedDistance(c) > -eps {
			errs = append(errs, Finding{
				Part:     name,
				Message:  fmt.Sprintf("face %d is wound inward", fi),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateSharpEdges warns about display edges whose endpoints are not
// vertices of the polyhedron.
func validateSharpEdges(name string, p *geom.Polyhedron) []Warning {
	var warnings []Warning
	eps := edgeTolerance * hull.Extent(p.Vertices)
	for i, e := range p.Edges {
		if !hasVertex(p, e.A, eps) || !hasVertex(p, e.B, eps) {
			warnings = append(warnings, Warning{
				Part:    name,
				Message: fmt.Sprintf("sharp edge %d does not join two vertices", i),
			})
		}
	}
	return warnings
}

func hasVertex(p *geom.Polyhedron, x geom.Vec3, eps float64) bool {
	for _, v := range p.Vertices {
		if v.ApproxEqual(x, eps) {
			return true
		}
	}
	return false
}
