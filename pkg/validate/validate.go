// Package validate checks computed polyhedra and zones against the
// invariants every hull output must satisfy. Findings are split into
// blocking errors and advisory warnings. Checks are read-only.
package validate

import (
	"fmt"

	"github.com/chazu/kspace/pkg/geom"
)

// Severity indicates whether a finding makes the polyhedron unusable or is
// merely informational.
type Severity int

const (
	SeverityError   Severity = iota // blocks export
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding describes a single validation finding.
type Finding struct {
	Part     string   // which zone or solid has the problem (empty if unnamed)
	Message  string   // human-readable description
	Severity Severity // error or warning
}

func (f Finding) Error() string {
	if f.Part == "" {
		return fmt.Sprintf("[%s] %s", f.Severity, f.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.Part, f.Message)
}

// Warning describes a non-blocking advisory finding.
type Warning struct {
	Part    string `json:"part,omitempty"`
	Message string `json:"message"`
}

// Result bundles errors (blocking) and warnings (advisory) from all tiers.
type Result struct {
	Errors   []Finding
	Warnings []Warning
}

// OK reports whether the result has no blocking errors.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Merge appends the findings of o to r.
func (r *Result) Merge(o Result) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// Structure runs the Tier 1 checks: the polyhedron is non-empty, every face
// is a triangle of three distinct in-range vertex indices. An empty slice
// means the face lists can be walked safely.
func Structure(name string, p *geom.Polyhedron) []Finding {
	if p.IsEmpty() {
		return []Finding{{Part: name, Message: "polyhedron has no faces", Severity: SeverityError}}
	}
	var errs []Finding
	n := len(p.Vertices)
	for fi, f := range p.Faces {
		if len(f) != 3 {
			errs = append(errs, Finding{
				Part:     name,
				Message:  fmt.Sprintf("face %d has %d vertices, want a triangle", fi, len(f)),
				Severity: SeverityError,
			})
			continue
		}
		for _, idx := range f {
			if idx < 0 || idx >= n {
				errs = append(errs, Finding{
					Part:     name,
					Message:  fmt.Sprintf("face %d references vertex %d of %d", fi, idx, n),
					Severity: SeverityError,
				})
			}
		}
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			errs = append(errs, Finding{
				Part:     name,
				Message:  fmt.Sprintf("face %d repeats a vertex: %v", fi, f),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// Polyhedron runs the structural and geometric tiers on p.
func Polyhedron(name string, p *geom.Polyhedron) Result {
	var result Result
	result.Errors = Structure(name, p)
	if len(result.Errors) > 0 {
		// Geometric checks index faces; skip them on a broken structure.
		return result
	}
	errs, warnings := geometry(name, p)
	result.Errors = append(result.Errors, errs...)
	result.Warnings = append(result.Warnings, warnings...)
	return result
}
