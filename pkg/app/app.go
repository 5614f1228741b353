// Package app ties the recipe front ends to the zone pipeline: Lisp or
// YAML source becomes a recipe set, every job is built and validated, and
// the resulting zones are meshed side by side for display or export.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/chazu/kspace/pkg/engine"
	"github.com/chazu/kspace/pkg/kernel"
	"github.com/chazu/kspace/pkg/kernel/polytope"
	"github.com/chazu/kspace/pkg/recipe"
	"github.com/chazu/kspace/pkg/tessellate"
	"github.com/chazu/kspace/pkg/validate"
)

// DefaultGap is the spacing, in Å⁻¹, between neighbouring zones when more
// than one is laid out.
const DefaultGap = 0.5

// colorPalette is a default palette used to assign distinct colors to zones.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App evaluates recipes into meshes.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
	gap    float64
	layout bool
	log    *slog.Logger
}

// Option configures an App.
type Option func(*App)

// WithKernel replaces the meshing kernel.
func WithKernel(k kernel.Kernel) Option {
	return func(a *App) { a.kernel = k }
}

// WithGap sets the layout spacing between zones.
func WithGap(gap float64) Option {
	return func(a *App) { a.gap = gap }
}

// WithoutLayout keeps every zone centred on Γ instead of placing them in a
// row.
func WithoutLayout() Option {
	return func(a *App) { a.layout = false }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithEvalTimeout limits how long one recipe evaluation may run.
func WithEvalTimeout(d time.Duration) Option {
	return func(a *App) { a.engine = engine.NewEngine(engine.WithTimeout(d)) }
}

// New creates an App with a fresh engine and the exact polytope kernel.
func New(opts ...Option) *App {
	a := &App{
		engine: engine.NewEngine(),
		kernel: polytope.New(),
		gap:    DefaultGap,
		layout: true,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// MeshData is the JSON-serializable mesh format.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Edges    []float32 `json:"edges"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// Diagnostic is an error or warning. Line and Col are set for Lisp source
// errors; Zone names the job a validation finding belongs to.
type Diagnostic struct {
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col,omitempty"`
	Zone    string `json:"zone,omitempty"`
	Message string `json:"message"`
}

// ZoneSummary describes one computed zone.
type ZoneSummary struct {
	Name        string  `json:"name"`
	Order       int     `json:"order"`
	Vertices    int     `json:"vertices"`
	Faces       int     `json:"faces"`
	Edges       int     `json:"edges"`
	Volume      float64 `json:"volume"`
	Irreducible bool    `json:"irreducible"`
	GroupSize   int     `json:"groupSize,omitempty"`
	WedgeVolume float64 `json:"wedgeVolume,omitempty"`
}

// EvalResult is the full result of one evaluation. Slices are never nil so
// they serialize as [].
type EvalResult struct {
	Zones    []ZoneSummary    `json:"zones"`
	Meshes   []MeshData       `json:"meshes"`
	Errors   []Diagnostic     `json:"errors"`
	Warnings []Diagnostic     `json:"warnings"`
	Results  []*recipe.Result `json:"-"`
}

func newResult() EvalResult {
	return EvalResult{
		Zones:    []ZoneSummary{},
		Meshes:   []MeshData{},
		Errors:   []Diagnostic{},
		Warnings: []Diagnostic{},
	}
}

func (r *EvalResult) fail(zone string, err error) {
	r.Errors = append(r.Errors, Diagnostic{Zone: zone, Message: err.Error()})
}

// Evaluate takes Lisp source and returns zones, meshes and diagnostics.
func (a *App) Evaluate(ctx context.Context, source string) EvalResult {
	result := newResult()

	set, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.log.Error("evaluate failed", "err", err)
		result.fail("", err)
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, Diagnostic{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		a.log.Debug("source has errors", "count", len(evalErrs))
		return result
	}
	return a.run(ctx, set, result)
}

// EvaluateRecipe takes a YAML recipe and returns zones, meshes and
// diagnostics.
func (a *App) EvaluateRecipe(ctx context.Context, data []byte) EvalResult {
	result := newResult()
	set, err := recipe.Parse(data)
	if err != nil {
		a.log.Debug("recipe rejected", "err", err)
		result.fail("", err)
		return result
	}
	return a.run(ctx, set, result)
}

// Run builds, validates and meshes an already parsed set.
func (a *App) Run(ctx context.Context, set *recipe.Set) EvalResult {
	return a.run(ctx, set, newResult())
}

func (a *App) run(ctx context.Context, set *recipe.Set, result EvalResult) EvalResult {
	if set == nil || len(set.Zones) == 0 {
		return result
	}
	if err := set.Validate(); err != nil {
		result.fail("", err)
		return result
	}

	results, err := set.Build(ctx)
	if err != nil {
		a.log.Error("build failed", "err", err)
		result.fail("", err)
		return result
	}
	result.Results = results

	parts := make([]*tessellate.Part, 0, len(results))
	for i, r := range results {
		job := &set.Zones[i]
		result.Zones = append(result.Zones, summarize(job, r))
		a.check(&result, job, r)

		shown := r.Zone
		if job.Irreducible {
			shown = r.Wedge
		}
		parts = append(parts, tessellate.ZonePart(r.Name, shown))
		a.log.Debug("zone built", "zone", r.Name, "vertices", r.Zone.VertexCount(), "volume", r.Zone.Volume)
	}

	var roots []tessellate.Node
	if a.layout && len(parts) > 1 {
		roots = []tessellate.Node{tessellate.Row("", a.gap, parts...)}
	} else {
		for _, p := range parts {
			roots = append(roots, p)
		}
	}
	meshes, err := tessellate.Tessellate(roots, a.kernel)
	if err != nil {
		a.log.Error("tessellate failed", "err", err)
		result.Errors = append(result.Errors, Diagnostic{Message: "tessellation failed: " + err.Error()})
		return result
	}
	for i, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Edges:    m.Edges,
			PartName: m.PartName,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	return result
}

// check validates the zone and, for irreducible jobs, the wedge.
func (a *App) check(result *EvalResult, job *recipe.Job, r *recipe.Result) {
	v := validate.Zone(r.Name, r.Zone, false)
	if job.Irreducible {
		if r.Wedge == nil {
			v.Warnings = append(v.Warnings, validate.Warning{Part: r.Name, Message: "clipping left no irreducible wedge"})
		} else if r.Wedge != r.Zone {
			v.Merge(validate.Wedge(r.Name+"/wedge", r.Wedge, r.Zone))
		}
	}
	for _, f := range v.Errors {
		result.Errors = append(result.Errors, Diagnostic{Zone: f.Part, Message: f.Message})
	}
	for _, w := range v.Warnings {
		result.Warnings = append(result.Warnings, Diagnostic{Zone: w.Part, Message: w.Message})
	}
	if !v.OK() {
		a.log.Warn("zone failed validation", "zone", r.Name, "errors", len(v.Errors))
	}
}

func summarize(job *recipe.Job, r *recipe.Result) ZoneSummary {
	s := ZoneSummary{
		Name:        r.Name,
		Order:       r.Zone.Order,
		Vertices:    r.Zone.VertexCount(),
		Faces:       r.Zone.FaceCount(),
		Edges:       len(r.Zone.Edges),
		Volume:      r.Zone.Volume,
		Irreducible: job.Irreducible,
		GroupSize:   len(r.Group),
	}
	if r.Wedge != nil && job.Irreducible {
		s.WedgeVolume = r.Wedge.Volume
	}
	return s
}
