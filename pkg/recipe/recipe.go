// Package recipe is the input model of kspace: a set of zone jobs, each a
// lattice, a shell order, build options and an optional list of symmetry
// operations. Sets load from YAML or come out of the Lisp engine, and are
// checked with struct tags before anything is computed.
package recipe

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/chazu/kspace/pkg/geom"
	"github.com/chazu/kspace/pkg/lattice"
	"github.com/chazu/kspace/pkg/symmetry"
)

// ErrInvalid is returned when a recipe fails validation.
var ErrInvalid = errors.New("recipe: invalid")

// Hull engine names accepted in Job.Hull.
const (
	HullIncremental = "incremental"
	HullQuickhull   = "quickhull"
)

// recipeValidate is the shared validator instance for recipe types.
var recipeValidate *validator.Validate

func init() {
	recipeValidate = validator.New()
}

// SymOp is one symmetry operation in fractional coordinates, row-major.
type SymOp struct {
	Rotation    [9]float64 `yaml:"rotation" json:"rotation"`
	Translation [3]float64 `yaml:"translation,omitempty" json:"translation"`
}

// Cell is a unit cell given by lengths and angles in degrees.
type Cell struct {
	A     float64 `yaml:"a" json:"a" validate:"gt=0"`
	B     float64 `yaml:"b" json:"b" validate:"gt=0"`
	C     float64 `yaml:"c" json:"c" validate:"gt=0"`
	Alpha float64 `yaml:"alpha" json:"alpha" validate:"gt=0,lt=180"`
	Beta  float64 `yaml:"beta" json:"beta" validate:"gt=0,lt=180"`
	Gamma float64 `yaml:"gamma" json:"gamma" validate:"gt=0,lt=180"`
}

// Job describes one zone to compute. Exactly one of Lattice (direct
// vectors as rows) and Cell must be set.
type Job struct {
	Name         string         `yaml:"name" json:"name" validate:"required"`
	Lattice      *[3][3]float64 `yaml:"lattice,omitempty" json:"lattice,omitempty"`
	Cell         *Cell          `yaml:"cell,omitempty" json:"cell,omitempty"`
	Order        int            `yaml:"order,omitempty" json:"order"`
	MaxPlanes    int            `yaml:"max_planes,omitempty" json:"max_planes,omitempty" validate:"gte=0"`
	EdgeAngleDeg float64        `yaml:"edge_angle_deg,omitempty" json:"edge_angle_deg,omitempty" validate:"gte=0,lte=180"`
	Hull         string         `yaml:"hull,omitempty" json:"hull,omitempty" validate:"omitempty,oneof=incremental quickhull"`
	Irreducible  bool           `yaml:"irreducible,omitempty" json:"irreducible,omitempty"`
	Symmetry     []SymOp        `yaml:"symmetry,omitempty" json:"symmetry,omitempty"`
}

// Set is a list of jobs, as a recipe file holds them.
type Set struct {
	Zones []Job `yaml:"zones" json:"zones" validate:"required,min=1,dive"`
}

// Direct returns the direct lattice of the job.
func (j *Job) Direct() (lattice.Lattice, error) {
	if j.Lattice != nil {
		m := j.Lattice
		return lattice.FromRows(
			geom.V(m[0][0], m[0][1], m[0][2]),
			geom.V(m[1][0], m[1][1], m[1][2]),
			geom.V(m[2][0], m[2][1], m[2][2]),
		), nil
	}
	if j.Cell != nil {
		c := j.Cell
		return lattice.FromParameters(lattice.Parameters{
			A: c.A, B: c.B, C: c.C,
			Alpha: c.Alpha, Beta: c.Beta, Gamma: c.Gamma,
		})
	}
	return lattice.Lattice{}, fmt.Errorf("%w: job %q has neither lattice nor cell", ErrInvalid, j.Name)
}

// Operations returns the job's symmetry operations.
func (j *Job) Operations() []symmetry.Operation {
	if len(j.Symmetry) == 0 {
		return nil
	}
	ops := make([]symmetry.Operation, len(j.Symmetry))
	for i, s := range j.Symmetry {
		ops[i] = symmetry.OperationFromFlat(s.Rotation, s.Translation)
	}
	return ops
}

// Validate checks struct tags on every job and that names are unique.
func (s *Set) Validate() error {
	if err := recipeValidate.Struct(s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, describe(err))
	}
	seen := make(map[string]bool, len(s.Zones))
	for _, j := range s.Zones {
		if (j.Lattice == nil) == (j.Cell == nil) {
			return fmt.Errorf("%w: zone %q needs exactly one of lattice and cell", ErrInvalid, j.Name)
		}
		if seen[j.Name] {
			return fmt.Errorf("%w: duplicate zone name %q", ErrInvalid, j.Name)
		}
		seen[j.Name] = true
	}
	return nil
}

// describe flattens validator field errors into one line.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		if fe.Param() != "" {
			msgs[i] = fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
		} else {
			msgs[i] = fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
		}
	}
	return strings.Join(msgs, "; ")
}

// Parse decodes and validates a YAML recipe. Unknown keys are rejected.
func Parse(data []byte) (*Set, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Set
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses a YAML recipe file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recipe: read %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// YAML encodes the set in the same format Parse reads.
func (s *Set) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("recipe: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("recipe: encode: %w", err)
	}
	return buf.Bytes(), nil
}
