package sitecss

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/yacobolo/sitecss/internal/macro"
	"github.com/yacobolo/sitecss/internal/stylesheet"
)

// MaxSuggestions bounds the "did you mean" candidates per unknown token
const MaxSuggestions = 3

// Explanation shows how class names expand
type Explanation struct {
	Classes []ClassExplanation `json:"classes"`
	Macros  int                `json:"macros"`
}

// ClassExplanation is the expansion of one requested class
type ClassExplanation struct {
	Class     string         `json:"class"`
	Macro     bool           `json:"macro"`
	Expansion []string       `json:"expansion"`
	Unknown   []UnknownToken `json:"unknown,omitempty"`
}

// UnknownToken is an expanded token that no macro or utility defines
type UnknownToken struct {
	Token       string   `json:"token"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Explain expands classes through the configured macro source. When a
// utilities stylesheet is configured, expanded tokens it cannot generate are
// reported along with the closest known names.
func Explain(config Config, classes []string) (*Explanation, error) {
	table := macro.Empty()
	if config.MacroFile != "" {
		t, err := macro.Load(config.MacroFile)
		if err != nil {
			return nil, err
		}
		table = t
	}

	var known map[string]bool
	var candidates []string
	if config.UtilitiesFile != "" && config.Generator == nil {
		rules, err := stylesheet.LoadRuleSet(config.UtilitiesFile)
		if err != nil {
			return nil, err
		}
		utilities := rules.Classes()
		known = make(map[string]bool, len(utilities))
		for _, c := range utilities {
			known[c] = true
		}
		candidates = append(table.Names(), utilities...)
	}

	result := &Explanation{Macros: table.Len()}
	for _, class := range classes {
		for _, token := range strings.Fields(class) {
			expansion, err := table.Expand(token)
			if err != nil {
				return nil, fmt.Errorf("expand %q: %w", token, err)
			}
			_, isMacro := table.Lookup(token)

			entry := ClassExplanation{Class: token, Macro: isMacro, Expansion: expansion}
			if known != nil {
				for _, t := range expansion {
					if !known[t] {
						entry.Unknown = append(entry.Unknown, UnknownToken{
							Token:       t,
							Suggestions: suggest(t, candidates),
						})
					}
				}
			}
			result.Classes = append(result.Classes, entry)
		}
	}

	return result, nil
}

// suggest returns the candidates closest to token by edit distance
func suggest(token string, candidates []string) []string {
	type match struct {
		name     string
		distance int
	}

	limit := max(2, len(token)/3)
	var matches []match
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if seen[c] || c == token {
			continue
		}
		seen[c] = true
		if d := levenshtein.ComputeDistance(token, c); d <= limit {
			matches = append(matches, match{name: c, distance: d})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].name < matches[j].name
	})

	var out []string
	for i := 0; i < len(matches) && i < MaxSuggestions; i++ {
		out = append(out, matches[i].name)
	}
	return out
}
