package main

import (
	"errors"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/kspace/pkg/app"
)

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Compute several recipes concurrently",
		Long: `Evaluate every recipe file concurrently and print one report per file,
in argument order. A failing file does not stop the others; the command
fails if any file had errors.

Examples:
  kspace batch recipes/*.yaml
  kspace batch a.kspace b.yaml --jobs 2 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobs <= 0 {
				jobs = runtime.GOMAXPROCS(0)
			}
			reports := make([]fileReport, len(args))
			errs := make([]error, len(args))

			var g errgroup.Group
			g.SetLimit(jobs)
			for i, path := range args {
				g.Go(func() error {
					// Each file gets its own App: an engine discards results
					// superseded by a later call.
					a := app.New(app.WithLogger(opts.logger.With("file", path)), app.WithEvalTimeout(opts.timeout))
					r, err := evaluateFile(cmd.Context(), a, path)
					if err != nil {
						reports[i] = fileReport{
							File:     path,
							Zones:    []app.ZoneSummary{},
							Errors:   []app.Diagnostic{{Message: err.Error()}},
							Warnings: []app.Diagnostic{},
						}
						errs[i] = err
						return nil
					}
					reports[i] = newReport(path, r)
					errs[i] = failed(path, r)
					return nil
				})
			}
			_ = g.Wait()

			opts.logger.Debug("batch done", "files", len(args))
			if err := opts.write(cmd.OutOrStdout(), reports, true); err != nil {
				return err
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "files to compute at once (default GOMAXPROCS)")
	return cmd
}
