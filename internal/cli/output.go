package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/mvp-joe/ldraw-import/internal/diag"
)

var (
	headerColor  = color.New(color.Faint)
	foundColor   = color.New(color.FgGreen)
	missingColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow, color.Bold)
)

// printReport writes the diagnostics report, one entry per line, colored by
// section. Color is dropped automatically when stdout is not a terminal.
func printReport(w io.Writer, c *diag.Collector) {
	errs := make(map[string]bool)
	for _, e := range c.Errors() {
		errs[e] = true
	}

	section := diag.Result
	for _, line := range c.Report() {
		switch line {
		case diag.ResultsFooter, diag.FoundFooter, diag.MissingFooter:
			headerColor.Fprintln(w, line)
			section = diag.Result
			continue
		case diag.FoundHeader:
			headerColor.Fprintln(w, line)
			section = diag.Found
			continue
		case diag.MissingHeader:
			headerColor.Fprintln(w, line)
			section = diag.Missing
			continue
		}

		switch {
		case section == diag.Found:
			foundColor.Fprintln(w, line)
		case section == diag.Missing:
			missingColor.Fprintln(w, line)
		case errs[line]:
			errorColor.Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
}
