package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/chazu/kspace/pkg/app"
)

// fileReport is what zone and batch print for one recipe file.
type fileReport struct {
	File     string            `json:"file"`
	Zones    []app.ZoneSummary `json:"zones"`
	Errors   []app.Diagnostic  `json:"errors"`
	Warnings []app.Diagnostic  `json:"warnings"`
}

func newReport(path string, r app.EvalResult) fileReport {
	return fileReport{File: path, Zones: r.Zones, Errors: r.Errors, Warnings: r.Warnings}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeText prints one table of zones per report, followed by diagnostics.
func writeText(w io.Writer, reports []fileReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "%s\n", r.File)
		if len(r.Zones) > 0 {
			fmt.Fprintln(tw, "ZONE\tORDER\tVERTICES\tFACES\tEDGES\tVOLUME\tWEDGE")
			for _, z := range r.Zones {
				wedge := "-"
				if z.Irreducible {
					wedge = fmt.Sprintf("%.6g (%d ops)", z.WedgeVolume, z.GroupSize)
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.6g\t%s\n",
					z.Name, z.Order, z.Vertices, z.Faces, z.Edges, z.Volume, wedge)
			}
		}
		for _, d := range r.Errors {
			fmt.Fprintf(tw, "error: %s\n", describe(d))
		}
		for _, d := range r.Warnings {
			fmt.Fprintf(tw, "warning: %s\n", describe(d))
		}
	}
	return tw.Flush()
}

// write prints reports. JSON output is a single object unless asList is
// set.
func (o *rootOptions) write(w io.Writer, reports []fileReport, asList bool) error {
	if o.jsonOutput(w) {
		if len(reports) == 1 && !asList {
			return writeJSON(w, reports[0])
		}
		return writeJSON(w, reports)
	}
	return writeText(w, reports)
}
