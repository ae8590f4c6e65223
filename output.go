package sitecss

import (
	"fmt"
	"io"
)

// OutputFormat represents the report output format
type OutputFormat string

const (
	// OutputSummary prints one line per build (default)
	OutputSummary OutputFormat = "summary"
	// OutputFull adds a line per page
	OutputFull OutputFormat = "full"
	// OutputJSON is machine-readable
	OutputJSON OutputFormat = "json"
	// OutputQuiet prints nothing
	OutputQuiet OutputFormat = "quiet"
)

// DetermineOutputFormat selects the output format based on flags
func DetermineOutputFormat(formatFlag string, quiet bool) OutputFormat {
	// Explicit --quiet flag wins (exit code only)
	if quiet {
		return OutputQuiet
	}

	switch formatFlag {
	case "summary":
		return OutputSummary
	case "full":
		return OutputFull
	case "json":
		return OutputJSON
	default:
		// Unknown or empty format falls back to the default
		return OutputSummary
	}
}

// WriteOutput writes a build report in the specified format
func WriteOutput(w io.Writer, report *Report, format OutputFormat, useColors bool) error {
	switch format {
	case OutputQuiet:
		return nil
	case OutputJSON:
		if err := WriteJSON(w, report); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
		return nil
	}

	r := NewReporter(w, useColors)
	if format == OutputFull {
		r.PrintPages(report.Pages)
	}
	r.PrintSummary(report)
	return r.Err()
}

// WriteExplanation writes an expansion report in the specified format
func WriteExplanation(w io.Writer, explanation *Explanation, format OutputFormat, useColors bool) error {
	switch format {
	case OutputQuiet:
		return nil
	case OutputJSON:
		if err := writeIndentedJSON(w, explanation); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
		return nil
	}

	r := NewReporter(w, useColors)
	r.PrintExplanation(explanation)
	return r.Err()
}
