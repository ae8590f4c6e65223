package sitecss

import (
	"encoding/json"
	"io"
	"time"
)

// JSONOutput represents the structured JSON export schema of a build
type JSONOutput struct {
	Version   string        `json:"version"`
	Timestamp string        `json:"timestamp"`
	Summary   JSONSummary   `json:"summary"`
	Pages     []PageReport  `json:"pages"`
	Discovery JSONDiscovery `json:"discovery"`
}

// JSONSummary contains build-wide totals
type JSONSummary struct {
	Pages       int   `json:"pages"`
	Marked      int   `json:"marked"` // Pages with a style marker
	Names       int   `json:"names"`
	CSSBytes    int   `json:"css_bytes"`
	PurgedRules int   `json:"purged_rules"`
	DurationMS  int64 `json:"duration_ms"`
}

// JSONDiscovery mirrors page discovery counters
type JSONDiscovery struct {
	FilesDiscovered int `json:"files_discovered"`
	FilesIncluded   int `json:"files_included"`
	FilesSkipped    int `json:"files_skipped"`
}

// WriteJSON writes the build report as JSON
func WriteJSON(w io.Writer, report *Report) error {
	return writeIndentedJSON(w, buildJSONOutput(report))
}

func writeIndentedJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// buildJSONOutput converts a Report to JSONOutput
func buildJSONOutput(report *Report) JSONOutput {
	pages := report.Pages
	if pages == nil {
		pages = []PageReport{}
	}

	return JSONOutput{
		Version:   "1.0",
		Timestamp: time.Now().Format(time.RFC3339),
		Summary:   summarize(report),
		Pages:     pages,
		Discovery: JSONDiscovery{
			FilesDiscovered: report.Discovery.FilesDiscovered,
			FilesIncluded:   report.Discovery.FilesIncluded,
			FilesSkipped:    report.Discovery.FilesSkipped,
		},
	}
}

func summarize(report *Report) JSONSummary {
	s := JSONSummary{
		Pages:      len(report.Pages),
		Names:      report.Names,
		DurationMS: report.Duration.Milliseconds(),
	}
	for _, p := range report.Pages {
		if p.Marker {
			s.Marked++
		}
		s.CSSBytes += p.Stats.CSSBytes
		s.PurgedRules += p.Stats.PurgedRules
	}
	return s
}
