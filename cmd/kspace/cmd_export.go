package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazu/kspace/pkg/app"
	"github.com/chazu/kspace/pkg/kernel"
	"github.com/chazu/kspace/pkg/kernel/polytope"
	"github.com/chazu/kspace/pkg/kernel/sdfx"
)

// Kernels accepted by --kernel.
const (
	kernelPolytope = "polytope"
	kernelSdfx     = "sdfx"
)

type exportOptions struct {
	out    string
	kernel string
	cells  int
	layout bool
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	eo := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write one STL file per zone",
		Long: `Evaluate a recipe and write each zone, or its irreducible wedge, as a
binary STL file named after the zone. Zones whose names map to the same
file name get -2, -3, ... suffixes in declaration order.

The polytope kernel writes the exact polyhedron. The sdfx kernel samples
it with marching cubes at --cells resolution.

Examples:
  kspace export examples/crystals.kspace --out stl/
  kspace export examples/graphite.yaml --kernel sdfx --cells 128`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := eo.newKernel()
			if err != nil {
				return err
			}
			appOpts := []app.Option{app.WithLogger(opts.logger), app.WithKernel(k), app.WithEvalTimeout(opts.timeout)}
			if !eo.layout {
				appOpts = append(appOpts, app.WithoutLayout())
			}
			r, err := evaluateFile(cmd.Context(), app.New(appOpts...), args[0])
			if err != nil {
				return err
			}
			if err := failed(args[0], r); err != nil {
				return err
			}
			if err := os.MkdirAll(eo.out, 0o755); err != nil {
				return err
			}

			names := make([]string, len(r.Meshes))
			for i, m := range r.Meshes {
				names[i] = m.PartName
			}
			files := fileNames(names)
			for i, m := range r.Meshes {
				path := filepath.Join(eo.out, files[i]+".stl")
				mesh := &kernel.Mesh{Vertices: m.Vertices, Normals: m.Normals, Indices: m.Indices, PartName: m.PartName}
				if err := sdfx.SaveMeshSTL(path, mesh); err != nil {
					return fmt.Errorf("export %s: %w", m.PartName, err)
				}
				opts.logger.Info("wrote mesh", "zone", m.PartName, "path", path, "triangles", mesh.TriangleCount())
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&eo.out, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&eo.kernel, "kernel", kernelPolytope, "meshing kernel: polytope or sdfx")
	cmd.Flags().IntVar(&eo.cells, "cells", 64, "marching cubes cells along the longest axis (sdfx)")
	cmd.Flags().BoolVar(&eo.layout, "layout", false, "place zones side by side instead of centred on Γ")
	return cmd
}

func (eo *exportOptions) newKernel() (kernel.Kernel, error) {
	switch eo.kernel {
	case kernelPolytope:
		return polytope.New(), nil
	case kernelSdfx:
		if eo.cells < 2 {
			return nil, fmt.Errorf("--cells must be at least 2, got %d", eo.cells)
		}
		return sdfx.New(sdfx.WithMeshCells(eo.cells)), nil
	}
	return nil, fmt.Errorf("unknown kernel %q (want polytope or sdfx)", eo.kernel)
}

// fileName maps a zone name to a safe file name.
func fileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
	if name == "" || strings.Trim(name, ".") == "" {
		return "zone"
	}
	return name
}

// fileNames maps zone names to distinct file names. Names are compared
// case-insensitively so that case-folding file systems do not merge them.
func fileNames(names []string) []string {
	used := make(map[string]bool, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		base := fileName(n)
		name := base
		for k := 2; used[strings.ToLower(name)]; k++ {
			name = fmt.Sprintf("%s-%d", base, k)
		}
		used[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}
