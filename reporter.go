package sitecss

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Reporter formats build and expansion reports for terminals
type Reporter struct {
	w         io.Writer
	useColors bool
	err       error
}

// NewReporter creates a reporter writing to w
func NewReporter(w io.Writer, useColors bool) *Reporter {
	return &Reporter{w: w, useColors: useColors}
}

// Err returns the first write error
func (r *Reporter) Err() error {
	return r.err
}

func (r *Reporter) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

// PrintPages prints one line per page
func (r *Reporter) PrintPages(pages []PageReport) {
	for _, p := range pages {
		if !p.Marker {
			r.printf("%s %s\n",
				RenderStyle(StyleCyan, p.Path, r.useColors),
				RenderStyle(StyleYellow, "no marker, copied", r.useColors))
			continue
		}
		r.printf("%s %s\n",
			RenderStyle(StyleCyan, p.Path, r.useColors),
			RenderStyle(StyleGray, fmt.Sprintf("%s → %s, %s, %s purged",
				pluralizeCount(p.Stats.RawClasses, "class", "classes"),
				pluralizeCount(p.Stats.ExpandedClasses, "token", "tokens"),
				formatBytes(p.Stats.CSSBytes),
				pluralizeCount(p.Stats.PurgedRules, "rule", "rules")), r.useColors))
	}
	if len(pages) > 0 {
		r.printf("\n")
	}
}

// PrintSummary prints the build totals
func (r *Reporter) PrintSummary(report *Report) {
	s := summarize(report)
	r.printf("%s %s (%d with styles), %s, %s CSS in %s\n",
		RenderStyle(StyleGreen, "Built", r.useColors),
		pluralizeCount(s.Pages, "page", "pages"),
		s.Marked,
		pluralizeCount(s.Names, "class name", "class names"),
		formatBytes(s.CSSBytes),
		report.Duration.Round(time.Millisecond))

	if report.Discovery.FilesSkipped > 0 {
		r.printf("%s\n", RenderStyle(StyleGray,
			fmt.Sprintf("%s skipped by .gitignore", pluralizeCount(report.Discovery.FilesSkipped, "file", "files")),
			r.useColors))
	}
}

// PrintExplanation prints each class with its expansion
func (r *Reporter) PrintExplanation(e *Explanation) {
	for _, c := range e.Classes {
		kind := "utility"
		if c.Macro {
			kind = "macro"
		}
		r.printf("%s %s\n",
			RenderStyle(StyleCyan, c.Class, r.useColors),
			RenderStyle(StyleGray, "("+kind+")", r.useColors))
		r.printf("  %s\n", strings.Join(c.Expansion, " "))

		for _, u := range c.Unknown {
			line := "  " + RenderStyle(StyleRed, "unknown: "+u.Token, r.useColors)
			if len(u.Suggestions) > 0 {
				line += " " + RenderStyle(StyleGreen, "did you mean "+strings.Join(u.Suggestions, ", ")+"?", r.useColors)
			}
			r.printf("%s\n", line)
		}
	}
}

// pluralizeCount returns a formatted string with count and singular/plural form
func pluralizeCount(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}

func formatBytes(n int) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.1f KiB", float64(n)/1024)
}
