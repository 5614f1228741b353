package main

import (
	"github.com/spf13/cobra"

	"github.com/chazu/kspace/pkg/app"
)

func newZoneCmd(opts *rootOptions) *cobra.Command {
	var gap float64
	cmd := &cobra.Command{
		Use:   "zone FILE",
		Short: "Compute and validate the zones of a recipe",
		Long: `Evaluate a recipe, build every zone it declares, validate the results
and print a summary.

Examples:
  kspace zone examples/crystals.kspace
  kspace zone examples/graphite.yaml --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.New(app.WithLogger(opts.logger), app.WithGap(gap), app.WithEvalTimeout(opts.timeout))
			opts.logger.Debug("evaluating", "file", args[0])
			r, err := evaluateFile(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			if err := opts.write(cmd.OutOrStdout(), []fileReport{newReport(args[0], r)}, false); err != nil {
				return err
			}
			return failed(args[0], r)
		},
	}
	cmd.Flags().Float64Var(&gap, "gap", app.DefaultGap, "spacing between zones in the layout")
	return cmd
}
