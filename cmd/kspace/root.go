package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/chazu/kspace/pkg/app"
	"github.com/chazu/kspace/pkg/engine"
)

// Output formats accepted by --format.
const (
	formatAuto = "auto"
	formatText = "text"
	formatJSON = "json"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	verbose bool
	format  string
	timeout time.Duration
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "kspace",
		Short: "Brillouin zones and irreducible wedges from crystal recipes",
		Long: `kspace builds the Brillouin zone of each lattice in a recipe, optionally
cuts it down to the irreducible wedge of a point group, and reports or
exports the resulting polyhedra.

Recipes are Lisp (.kspace, .lisp) or YAML (.yaml, .yml).

Examples:
  kspace zone examples/crystals.kspace
  kspace export examples/graphite.yaml --out stl/
  kspace batch recipes/*.yaml --format json`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.format {
			case formatAuto, formatText, formatJSON:
			default:
				return fmt.Errorf("unknown format %q (want auto, text or json)", opts.format)
			}
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")
	cmd.PersistentFlags().StringVar(&opts.format, "format", formatAuto, "output format: auto, text or json")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", engine.EvalTimeout, "limit for evaluating one recipe")

	cmd.AddCommand(newZoneCmd(opts), newExportCmd(opts), newBatchCmd(opts))
	return cmd
}

// jsonOutput reports whether w should receive JSON. In auto mode a
// terminal gets text and anything else gets JSON.
func (o *rootOptions) jsonOutput(w io.Writer) bool {
	switch o.format {
	case formatJSON:
		return true
	case formatText:
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return true
	}
	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

// isYAML reports whether path names a YAML recipe.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// evaluateFile reads a recipe and runs it through a.
func evaluateFile(ctx context.Context, a *app.App, path string) (app.EvalResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return app.EvalResult{}, err
	}
	if isYAML(path) {
		return a.EvaluateRecipe(ctx, data), nil
	}
	return a.Evaluate(ctx, string(data)), nil
}

// failed turns the errors of a result into one error.
func failed(path string, r app.EvalResult) error {
	if len(r.Errors) == 0 {
		return nil
	}
	if len(r.Errors) == 1 {
		return fmt.Errorf("%s: %s", path, describe(r.Errors[0]))
	}
	return fmt.Errorf("%s: %s (and %d more)", path, describe(r.Errors[0]), len(r.Errors)-1)
}

func describe(d app.Diagnostic) string {
	switch {
	case d.Line > 0:
		return fmt.Sprintf("line %d: %s", d.Line, d.Message)
	case d.Zone != "":
		return fmt.Sprintf("%s: %s", d.Zone, d.Message)
	}
	return d.Message
}
