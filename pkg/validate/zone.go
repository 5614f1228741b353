package validate

import (
	"fmt"
	"math"

	"github.com/chazu/kspace/pkg/brillouin"
	"github.com/chazu/kspace/pkg/lattice"
)

// ---------------------------------------------------------------------------
// Tier 3: zone warnings
// ---------------------------------------------------------------------------

// VolumeTolerance is the relative tolerance between a full zone's volume
// and the reciprocal cell volume |det K|.
const VolumeTolerance = 1e-6

// Zone runs every tier on z. A full zone (irreducible false) is also
// expected to be centrosymmetric and to fill one reciprocal cell; a wedge
// is checked only against its parent when one is given.
func Zone(name string, z *brillouin.Zone, irreducible bool) Result {
	if z == nil {
		return Result{Errors: []Finding{{Part: name, Message: "zone is nil", Severity: SeverityError}}}
	}
	result := Polyhedron(name, &z.Polyhedron)
	if !result.OK() {
		return result
	}
	if math.Abs(z.Volume-z.Polyhedron.Volume()) > VolumeTolerance*math.Max(z.Volume, 1e-300) {
		result.Warnings = append(result.Warnings, Warning{
			Part:    name,
			Message: fmt.Sprintf("stored volume %.6g differs from the hull volume %.6g", z.Volume, z.Polyhedron.Volume()),
		})
	}
	if irreducible {
		return result
	}
	result.Warnings = append(result.Warnings, validateCentrosymmetric(name, z)...)
	result.Warnings = append(result.Warnings, validateCellVolume(name, z)...)
	return result
}

// Wedge checks an irreducible wedge against the zone it was cut from: it
// must lie inside the parent and cannot be larger.
func Wedge(name string, w, parent *brillouin.Zone) Result {
	result := Zone(name, w, true)
	if !result.OK() || parent == nil {
		return result
	}
	if w.Volume > parent.Volume*(1+VolumeTolerance) {
		result.Errors = append(result.Errors, Finding{
			Part:     name,
			Message:  fmt.Sprintf("wedge volume %.6g exceeds the zone volume %.6g", w.Volume, parent.Volume),
			Severity: SeverityError,
		})
	}
	tol := 1e-9 * math.Max(1, math.Cbrt(parent.Volume))
	for i, v := range w.Vertices {
		if !parent.Contains(v, tol) {
			result.Errors = append(result.Errors, Finding{
				Part:     name,
				Message:  fmt.Sprintf("wedge vertex %d %v lies outside the zone", i, v),
				Severity: SeverityError,
			})
		}
	}
	return result
}

// validateCentrosymmetric warns when a vertex has no partner at -v.
func validateCentrosymmetric(name string, z *brillouin.Zone) []Warning {
	var warnings []Warning
	for i, v := range z.Vertices {
		if !hasVertex(&z.Polyhedron, v.Neg(), brillouin.VertexTolerance) {
			warnings = append(warnings, Warning{
				Part:    name,
				Message: fmt.Sprintf("vertex %d %v has no inverse partner", i, v),
			})
		}
	}
	return warnings
}

// validateCellVolume warns when the zone does not fill one reciprocal cell.
func validateCellVolume(name string, z *brillouin.Zone) []Warning {
	if z.Basis == (lattice.Reciprocal{}) {
		return nil
	}
	want := math.Abs(z.Basis.Volume())
	if math.Abs(z.Volume-want) > VolumeTolerance*want {
		return []Warning{{
			Part:    name,
			Message: fmt.Sprintf("volume %.6g differs from the reciprocal cell volume %.6g", z.Volume, want),
		}}
	}
	return nil
}
