package cmd

import (
	"io"
	"path/filepath"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/illusionfield/scssc/internal/service"
)

func renderSummary(w io.Writer, report *service.Report) error {
	table := tablewriter.NewWriter(w)
	table.Header("Root", "Result", "Time", "Output")

	for _, rr := range report.Roots {
		result, out := "compiled", ""
		if rr.Artifact != "" {
			out = filepath.Base(rr.Artifact)
		}
		switch {
		case rr.Err != nil:
			result = "failed"
		case rr.Tier != "":
			result = "cached (" + rr.Tier + ")"
		}
		if err := table.Append([]string{rr.DisplayPath, result, rr.Duration.Round(time.Millisecond).String(), out}); err != nil {
			return err
		}
	}

	return table.Render()
}
