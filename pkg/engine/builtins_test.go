package engine

import (
	"strings"
	"testing"

	"github.com/chazu/kspace/pkg/lattice"
	"github.com/chazu/kspace/pkg/recipe"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(zone "sc" :lattice l)`,
			expect: `(zone "sc" "__kw_lattice" l)`,
		},
		{
			name:   "multiple keywords",
			input:  `(cell :a 3 :gamma 120)`,
			expect: `(cell "__kw_a" 3 "__kw_gamma" 120)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(inversion-op)`,
			expect: `(inversion_op)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative numbers preserved",
			input:  `[0 -1 0]`,
			expect: `[0 -1 0]`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:max-planes`,
			expect: `"__kw_max-planes"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// mustEval evaluates source and fails the test on any error.
func mustEval(t *testing.T, source string) *recipe.Set {
	t.Helper()
	set, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if set == nil {
		t.Fatal("expected non-nil set")
	}
	return set
}

// expectEvalError evaluates source and checks that it fails with a
// message containing substr.
func expectEvalError(t *testing.T, source, substr string) {
	t.Helper()
	set, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if set != nil {
		t.Fatal("expected nil set on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}
	if !strings.Contains(evalErrs[0].Message, substr) {
		t.Errorf("error %q does not mention %q", evalErrs[0].Message, substr)
	}
}

func rowsOf(l lattice.Lattice) [3][3]float64 {
	return [3][3]float64{l[0].Array(), l[1].Array(), l[2].Array()}
}

// ---------------------------------------------------------------------------
// Zone tests
// ---------------------------------------------------------------------------

func TestSimpleZone(t *testing.T) {
	set := mustEval(t, `(zone "simple-cubic" :lattice (cubic 5))`)
	if len(set.Zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(set.Zones))
	}

	j := set.Zones[0]
	if j.Name != "simple-cubic" {
		t.Errorf("expected name simple-cubic, got %q", j.Name)
	}
	if j.Order != 1 {
		t.Errorf("expected default order 1, got %d", j.Order)
	}
	if j.Lattice == nil || *j.Lattice != rowsOf(lattice.Cubic(5)) {
		t.Errorf("lattice = %v, want cubic 5", j.Lattice)
	}
	if j.Cell != nil || j.Irreducible || len(j.Symmetry) != 0 {
		t.Errorf("unexpected options on a plain zone: %+v", j)
	}
}

func TestVariableReference(t *testing.T) {
	set := mustEval(t, `
(def a 4.05)
(def n 2)
(zone "aluminium" :lattice (fcc a) :order n)
`)
	j := set.Zones[0]
	if *j.Lattice != rowsOf(lattice.FaceCenteredCubic(4.05)) {
		t.Errorf("lattice = %v, want fcc 4.05 (from variable)", *j.Lattice)
	}
	if j.Order != 2 {
		t.Errorf("expected order=2 (from variable), got %d", j.Order)
	}
}

func TestLatticeConstructors(t *testing.T) {
	tests := []struct {
		src  string
		want lattice.Lattice
	}{
		{`(cubic 5)`, lattice.Cubic(5)},
		{`(tetragonal 3 7)`, lattice.Tetragonal(3, 7)},
		{`(orthorhombic 2 3 4)`, lattice.Orthorhombic(2, 3, 4)},
		{`(hexagonal 2.46 6.7)`, lattice.Hexagonal(2.46, 6.7)},
		{`(fcc 4.05)`, lattice.FaceCenteredCubic(4.05)},
		{`(bcc 2.87)`, lattice.BodyCenteredCubic(2.87)},
		{`(lattice (vec3 1 0 0) [0 2 0] (list 0 0 3))`, lattice.Orthorhombic(1, 2, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			set := mustEval(t, `(zone "z" :lattice `+tt.src+`)`)
			if got := *set.Zones[0].Lattice; got != rowsOf(tt.want) {
				t.Errorf("lattice = %v, want %v", got, rowsOf(tt.want))
			}
		})
	}
}

func TestCell(t *testing.T) {
	set := mustEval(t, `(zone "graphite" :lattice (cell :a 2.46 :c 6.7 :gamma 120))`)
	j := set.Zones[0]
	if j.Lattice != nil {
		t.Error("cell zone should not carry lattice rows")
	}
	want := recipe.Cell{A: 2.46, B: 2.46, C: 6.7, Alpha: 90, Beta: 90, Gamma: 120}
	if j.Cell == nil || *j.Cell != want {
		t.Errorf("cell = %+v, want %+v", j.Cell, want)
	}
}

func TestSymmetryOptions(t *testing.T) {
	set := mustEval(t, `
(def ops (list (identity-op)
               (inversion-op)
               (symop [0 -1 0 1 -1 0 0 0 1] [0 0 0.5])
               (symop :rotation [1 0 0 0 1 0 0 0 1])))
(zone "hex" :lattice (hexagonal 2.46 6.7)
      :symmetry ops :irreducible true
      :hull :quickhull :max-planes 80 :edge-angle 5)
`)
	j := set.Zones[0]
	if !j.Irreducible {
		t.Error("expected irreducible")
	}
	if j.Hull != recipe.HullQuickhull {
		t.Errorf("hull = %q, want quickhull", j.Hull)
	}
	if j.MaxPlanes != 80 || j.EdgeAngleDeg != 5 {
		t.Errorf("max-planes=%d edge-angle=%v, want 80 and 5", j.MaxPlanes, j.EdgeAngleDeg)
	}
	if len(j.Symmetry) != 4 {
		t.Fatalf("expected 4 symmetry ops, got %d", len(j.Symmetry))
	}
	if j.Symmetry[1].Rotation != [9]float64{-1, 0, 0, 0, -1, 0, 0, 0, -1} {
		t.Errorf("inversion = %v", j.Symmetry[1].Rotation)
	}
	if j.Symmetry[2].Rotation != [9]float64{0, -1, 0, 1, -1, 0, 0, 0, 1} ||
		j.Symmetry[2].Translation != [3]float64{0, 0, 0.5} {
		t.Errorf("symop = %+v", j.Symmetry[2])
	}
	if j.Symmetry[3].Translation != [3]float64{} {
		t.Errorf("missing translation should be zero, got %v", j.Symmetry[3].Translation)
	}
}

func TestIrreducibleFlag(t *testing.T) {
	set := mustEval(t, `(zone "sc" :lattice (cubic 5) :symmetry (list (inversion-op)) :irreducible)`)
	if !set.Zones[0].Irreducible {
		t.Error("trailing :irreducible should act as a flag")
	}
}

func TestFlagBeforeAnotherKeyword(t *testing.T) {
	set := mustEval(t, `(zone "sc" :lattice (cubic 5) :irreducible :symmetry (list (inversion-op)) :hull :quickhull)`)
	j := set.Zones[0]
	if !j.Irreducible {
		t.Error(":irreducible followed by :symmetry should act as a flag")
	}
	if len(j.Symmetry) != 1 {
		t.Errorf("expected 1 symmetry op after the flag, got %d", len(j.Symmetry))
	}
	if j.Hull != recipe.HullQuickhull {
		t.Errorf("hull = %q, want quickhull", j.Hull)
	}
}

func TestSeveralZones(t *testing.T) {
	set := mustEval(t, `
(zone "a" :lattice (cubic 5))
(zone "b" :lattice (bcc 2.87) :order 3)
`)
	if len(set.Zones) != 2 || set.Zones[0].Name != "a" || set.Zones[1].Name != "b" {
		t.Fatalf("zones = %+v, want a then b", set.Zones)
	}
	if err := set.Validate(); err != nil {
		t.Errorf("set from the DSL does not validate: %v", err)
	}
}

func TestMatchesYAMLRecipe(t *testing.T) {
	lisp := mustEval(t, `
(zone "graphite" :lattice (cell :a 2.46 :c 6.7 :gamma 120) :order 2
      :symmetry (list (identity-op) (inversion-op)) :irreducible true)
`)
	yaml, err := recipe.Parse([]byte(`
zones:
  - name: graphite
    cell: {a: 2.46, b: 2.46, c: 6.7, alpha: 90, beta: 90, gamma: 120}
    order: 2
    irreducible: true
    symmetry:
      - rotation: [1, 0, 0, 0, 1, 0, 0, 0, 1]
      - rotation: [-1, 0, 0, 0, -1, 0, 0, 0, -1]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	a, err := lisp.Zones[0].Build()
	if err != nil {
		t.Fatalf("Build (lisp): %v", err)
	}
	b, err := yaml.Zones[0].Build()
	if err != nil {
		t.Fatalf("Build (yaml): %v", err)
	}
	if len(a.Zone.Vertices) != len(b.Zone.Vertices) || a.Zone.Volume != b.Zone.Volume {
		t.Fatalf("zones differ: %d/%v vs %d/%v", len(a.Zone.Vertices), a.Zone.Volume, len(b.Zone.Vertices), b.Zone.Volume)
	}
	for i := range a.Zone.Vertices {
		if a.Zone.Vertices[i] != b.Zone.Vertices[i] {
			t.Fatalf("vertex %d differs: %v vs %v", i, a.Zone.Vertices[i], b.Zone.Vertices[i])
		}
	}
	if a.Wedge == nil || b.Wedge == nil || a.Wedge.Volume != b.Wedge.Volume {
		t.Error("wedges differ")
	}
}

// ---------------------------------------------------------------------------
// Error tests
// ---------------------------------------------------------------------------

func TestZoneErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		substr string
	}{
		{"missing name", `(zone :lattice (cubic 5))`, "name"},
		{"missing lattice", `(zone "x")`, ":lattice is required"},
		{"lattice not a lattice", `(zone "x" :lattice 5)`, "expected lattice"},
		{"duplicate", `(zone "x" :lattice (cubic 5)) (zone "x" :lattice (cubic 6))`, "duplicate"},
		{"fractional order", `(zone "x" :lattice (cubic 5) :order 1.5)`, "expected integer"},
		{"bad symmetry entry", `(zone "x" :lattice (cubic 5) :symmetry (list 1))`, "expected symop"},
		{"constructor arity", `(hexagonal 2.46)`, "requires 2"},
		{"negative constant", `(cubic -5)`, "must be positive"},
		{"vec3 arity", `(vec3 1 2)`, "exactly 3"},
		{"short rotation", `(symop [1 0 0])`, "expected 9 numbers"},
		{"bad cell", `(cell :a 1 :gamma 200)`, "cell"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectEvalError(t, tt.source, tt.substr)
		})
	}
}

// ---------------------------------------------------------------------------
// Regressions
// ---------------------------------------------------------------------------

func TestEmptySourceStillWorks(t *testing.T) {
	set := mustEval(t, "")
	if len(set.Zones) != 0 {
		t.Errorf("expected no zones, got %d", len(set.Zones))
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	mustEval(t, "(+ 1 2)")
}
