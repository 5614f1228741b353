package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/kspace/pkg/geom"
	"github.com/chazu/kspace/pkg/lattice"
	"github.com/chazu/kspace/pkg/recipe"
	"github.com/chazu/kspace/pkg/symmetry"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms kspace Lisp source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: inversion-op -> inversion_op
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a geom.Vec3.
type sexpVec3 struct {
	vec geom.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpLattice wraps a direct lattice, given either as row vectors or as
// cell parameters, so it can be passed to `zone`.
type sexpLattice struct {
	rows *[3][3]float64
	cell *recipe.Cell
}

func (l *sexpLattice) SexpString(ps *zygo.PrintState) string {
	if l.cell != nil {
		c := l.cell
		return fmt.Sprintf("(cell :a %g :b %g :c %g :alpha %g :beta %g :gamma %g)",
			c.A, c.B, c.C, c.Alpha, c.Beta, c.Gamma)
	}
	r := l.rows
	return fmt.Sprintf("(lattice [%g %g %g] [%g %g %g] [%g %g %g])",
		r[0][0], r[0][1], r[0][2], r[1][0], r[1][1], r[1][2], r[2][0], r[2][1], r[2][2])
}
func (l *sexpLattice) Type() *zygo.RegisteredType { return nil }

func latticeRows(l lattice.Lattice) *sexpLattice {
	var rows [3][3]float64
	for i := range rows {
		rows[i] = l[i].Array()
	}
	return &sexpLattice{rows: &rows}
}

// sexpSymOp wraps one symmetry operation.
type sexpSymOp struct {
	op recipe.SymOp
}

func (s *sexpSymOp) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(symop %v %v)", s.op.Rotation, s.op.Translation)
}
func (s *sexpSymOp) Type() *zygo.RegisteredType { return nil }

// sexpZoneRef is what `zone` returns: the name of the job it added.
type sexpZoneRef struct {
	name string
}

func (z *sexpZoneRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(zoneref %q)", z.name)
}
func (z *sexpZoneRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
// A keyword followed by another keyword, or by nothing, is a flag with a
// nil value; names in kwValued instead take the following keyword as their
// value (:hull :quickhull).
func parseArgs(args []zygo.Sexp, kwValued ...string) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) && takesValue(args[i+1], name, kwValued) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			result.kw[name] = zygo.SexpNull
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer from a Sexp. Floats must be whole.
func toInt(s zygo.Sexp) (int, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return int(v.Val), nil
	case *zygo.SexpFloat:
		if v.Val == float64(int(v.Val)) {
			return int(v.Val), nil
		}
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// takesValue reports whether next is the value of keyword name.
func takesValue(next zygo.Sexp, name string, kwValued []string) bool {
	if _, isKeyword := isKW(next); !isKeyword {
		return true
	}
	for _, v := range kwValued {
		if v == name {
			return true
		}
	}
	return false
}

// toBool extracts a boolean. A trailing keyword with no value counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_quickhull) and plain strings.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toVec3 extracts a Vec3 from a sexpVec3 or a three-number list.
func toVec3(s zygo.Sexp) (geom.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	nums, err := toFloats(s, 3)
	if err != nil {
		return geom.Vec3{}, fmt.Errorf("expected vec3: %w", err)
	}
	return geom.V(nums[0], nums[1], nums[2]), nil
}

// toFloats extracts exactly n numbers from a list or array.
func toFloats(s zygo.Sexp, n int) ([]float64, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	if len(items) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(items))
	}
	out := make([]float64, n)
	for i, item := range items {
		if out[i], err = toFloat64(item); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

// toLattice extracts a lattice from a sexpLattice.
func toLattice(s zygo.Sexp) (*sexpLattice, error) {
	if l, ok := s.(*sexpLattice); ok {
		return l, nil
	}
	return nil, fmt.Errorf("expected lattice, got %T (%s)", s, s.SexpString(nil))
}

// toSymOp extracts a symmetry operation from a sexpSymOp.
func toSymOp(s zygo.Sexp) (recipe.SymOp, error) {
	if op, ok := s.(*sexpSymOp); ok {
		return op.op, nil
	}
	return recipe.SymOp{}, fmt.Errorf("expected symop, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all kspace DSL builtins into a zygomys
// environment. The builtins append zone jobs to the provided set during
// evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, set *recipe.Set) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: geom.V(x, y, z)}, nil
	})

	// -----------------------------------------------------------------------
	// (lattice (vec3 5 0 0) (vec3 0 5 0) [0 0 5])
	// -----------------------------------------------------------------------
	env.AddFunction("lattice", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("lattice requires exactly 3 vectors, got %d", len(args))
		}
		var rows [3]geom.Vec3
		for i, a := range args {
			v, err := toVec3(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("lattice: a%d: %w", i+1, err)
			}
			rows[i] = v
		}
		return latticeRows(lattice.FromRows(rows[0], rows[1], rows[2])), nil
	})

	// -----------------------------------------------------------------------
	// (cubic 5) (tetragonal 3 7) (orthorhombic 2 3 4) (hexagonal 2.46 6.7)
	// (fcc 4.05) (bcc 2.87)
	// -----------------------------------------------------------------------
	constructors := []struct {
		name  string
		arity int
		build func(p []float64) lattice.Lattice
	}{
		{"cubic", 1, func(p []float64) lattice.Lattice { return lattice.Cubic(p[0]) }},
		{"tetragonal", 2, func(p []float64) lattice.Lattice { return lattice.Tetragonal(p[0], p[1]) }},
		{"orthorhombic", 3, func(p []float64) lattice.Lattice { return lattice.Orthorhombic(p[0], p[1], p[2]) }},
		{"hexagonal", 2, func(p []float64) lattice.Lattice { return lattice.Hexagonal(p[0], p[1]) }},
		{"fcc", 1, func(p []float64) lattice.Lattice { return lattice.FaceCenteredCubic(p[0]) }},
		{"bcc", 1, func(p []float64) lattice.Lattice { return lattice.BodyCenteredCubic(p[0]) }},
	}
	for _, c := range constructors {
		env.AddFunction(c.name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != c.arity {
				return zygo.SexpNull, fmt.Errorf("%s requires %d lattice constants, got %d", c.name, c.arity, len(args))
			}
			p := make([]float64, len(args))
			for i, a := range args {
				f, err := toFloat64(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: argument %d: %w", c.name, i+1, err)
				}
				if f <= 0 {
					return zygo.SexpNull, fmt.Errorf("%s: argument %d must be positive, got %g", c.name, i+1, f)
				}
				p[i] = f
			}
			return latticeRows(c.build(p)), nil
		})
	}

	// -----------------------------------------------------------------------
	// (cell :a 2.46 :b 2.46 :c 6.7 :alpha 90 :beta 90 :gamma 120)
	// -----------------------------------------------------------------------
	env.AddFunction("cell", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		c := &recipe.Cell{Alpha: 90, Beta: 90, Gamma: 90}
		fields := []struct {
			kw  string
			dst *float64
		}{
			{"a", &c.A}, {"b", &c.B}, {"c", &c.C},
			{"alpha", &c.Alpha}, {"beta", &c.Beta}, {"gamma", &c.Gamma},
		}
		for _, f := range fields {
			v, ok := pa.kw[f.kw]
			if !ok {
				continue
			}
			x, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("cell: %s: %w", f.kw, err)
			}
			*f.dst = x
		}
		// b and c default to a, as for a cubic cell.
		if _, ok := pa.kw["b"]; !ok {
			c.B = c.A
		}
		if _, ok := pa.kw["c"]; !ok {
			c.C = c.A
		}
		if _, err := lattice.FromParameters(lattice.Parameters{
			A: c.A, B: c.B, C: c.C, Alpha: c.Alpha, Beta: c.Beta, Gamma: c.Gamma,
		}); err != nil {
			return zygo.SexpNull, fmt.Errorf("cell: %w", err)
		}
		return &sexpLattice{cell: c}, nil
	})

	// -----------------------------------------------------------------------
	// (symop [0 -1 0 1 0 0 0 0 1] [0 0 0.5])
	// (symop :rotation [...] :translation [...])
	// -----------------------------------------------------------------------
	env.AddFunction("symop", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		rot, hasRot := pa.kw["rotation"]
		trans, hasTrans := pa.kw["translation"]
		if !hasRot && len(pa.positional) > 0 {
			rot, hasRot = pa.positional[0], true
		}
		if !hasTrans && len(pa.positional) > 1 {
			trans, hasTrans = pa.positional[1], true
		}
		if !hasRot {
			return zygo.SexpNull, fmt.Errorf("symop requires a rotation")
		}

		var op recipe.SymOp
		r, err := toFloats(rot, 9)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("symop: rotation: %w", err)
		}
		copy(op.Rotation[:], r)
		if hasTrans {
			t, err := toFloats(trans, 3)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("symop: translation: %w", err)
			}
			copy(op.Translation[:], t)
		}
		return &sexpSymOp{op: op}, nil
	})

	// -----------------------------------------------------------------------
	// (identity-op) (inversion-op)
	// -----------------------------------------------------------------------
	env.AddFunction("identity_op", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return &sexpSymOp{op: recipe.SymOp{Rotation: symmetry.Identity().Rotation.Matrix().Flat()}}, nil
	})
	env.AddFunction("inversion_op", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return &sexpSymOp{op: recipe.SymOp{Rotation: symmetry.Inversion().Rotation.Matrix().Flat()}}, nil
	})

	// -----------------------------------------------------------------------
	// (zone "graphite" :lattice (hexagonal 2.46 6.7) :order 2
	//       :symmetry (list (identity-op) (inversion-op)) :irreducible true
	//       :max-planes 80 :edge-angle 5 :hull :quickhull)
	// -----------------------------------------------------------------------
	env.AddFunction("zone", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args, "hull")
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("zone requires a name argument")
		}
		zoneName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("zone: name: %w", err)
		}
		if zoneName == "" {
			return zygo.SexpNull, fmt.Errorf("zone: name must not be empty")
		}
		for _, j := range set.Zones {
			if j.Name == zoneName {
				return zygo.SexpNull, fmt.Errorf("zone: duplicate name %q", zoneName)
			}
		}

		job := recipe.Job{Name: zoneName, Order: 1}

		v, ok := pa.kw["lattice"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("zone %q: :lattice is required", zoneName)
		}
		l, err := toLattice(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("zone %q: lattice: %w", zoneName, err)
		}
		job.Lattice, job.Cell = l.rows, l.cell

		if v, ok := pa.kw["order"]; ok {
			if job.Order, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("zone %q: order: %w", zoneName, err)
			}
		}
		if v, ok := pa.kw["max-planes"]; ok {
			if job.MaxPlanes, err = toInt(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("zone %q: max-planes: %w", zoneName, err)
			}
		}
		if v, ok := pa.kw["edge-angle"]; ok {
			if job.EdgeAngleDeg, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("zone %q: edge-angle: %w", zoneName, err)
			}
		}
		if v, ok := pa.kw["hull"]; ok {
			if job.Hull, err = toKeywordString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("zone %q: hull: %w", zoneName, err)
			}
		}
		if v, ok := pa.kw["irreducible"]; ok {
			if job.Irreducible, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("zone %q: irreducible: %w", zoneName, err)
			}
		}
		if v, ok := pa.kw["symmetry"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("zone %q: symmetry: %w", zoneName, err)
			}
			for i, item := range items {
				op, err := toSymOp(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("zone %q: symmetry entry %d: %w", zoneName, i, err)
				}
				job.Symmetry = append(job.Symmetry, op)
			}
		}

		set.Zones = append(set.Zones, job)
		return &sexpZoneRef{name: zoneName}, nil
	})
}
