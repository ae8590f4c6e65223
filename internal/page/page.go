// Package page rewrites rendered pages so that markup and stylesheet agree
// on one set of class names.
package page

import (
	"context"
	"fmt"
	"strings"

	"github.com/yacobolo/sitecss/internal/stylesheet"
)

// Expander resolves a class string into primitive tokens
type Expander interface {
	Expand(classString string) ([]string, error)
}

// Assembler produces the stylesheet for an expanded class set
type Assembler interface {
	Assemble(ctx context.Context, classes []string) (string, error)
}

// Compressor assigns compressed names; Lookup never assigns. Reserved class
// names are never handed out to other tokens.
type Compressor interface {
	Compress(token string) string
	Lookup(token string) (string, bool)
	Reserve(tokens ...string)
}

// Exemptions decides which class names are safelisted
type Exemptions interface {
	Contains(name string) bool
}

// Rewriter processes pages of one build context. State is shared by every
// page of the context, so pages must be processed in a stable order for
// names to be deterministic.
type Rewriter struct {
	Expander     Expander
	Assembler    Assembler
	State        Compressor // Unused when KeepExpanded
	Safelist     Exemptions // Optional
	Purge        bool       // Drop rules whose classes are absent from the page
	KeepExpanded bool       // Keep readable expanded names, skip purge and compression
}

// Stats describes one processed page
type Stats struct {
	RawClasses      int `json:"raw_classes"`
	ExpandedClasses int `json:"expanded_classes"`
	PurgedRules     int `json:"purged_rules"`
	DeadRules       int `json:"dead_rules"`
	CSSBytes        int `json:"css_bytes"`
}

// Result is a processed page
type Result struct {
	HTML   string
	Marker bool // False when the page had no marker and was left unchanged
	Stats  Stats
}

// Process expands, assembles, purges and compresses the classes of one
// page, and inlines the stylesheet at its marker
func (r *Rewriter) Process(ctx context.Context, doc string) (Result, error) {
	m, err := findMarker(doc)
	if err != nil {
		return Result{}, err
	}
	if m == nil {
		return Result{HTML: doc}, nil
	}

	doc = doc[:m.start] + placeholder + doc[m.end:]

	attrs, err := classAttributes(doc)
	if err != nil {
		return Result{}, err
	}

	raw := rawTokens(m, attrs)
	expansions, expanded, err := r.expand(raw)
	if err != nil {
		return Result{}, err
	}
	var markerExpanded orderedSet
	for _, tok := range strings.Fields(m.classes) {
		markerExpanded.add(expansions[tok]...)
	}

	stats := Stats{RawClasses: len(raw.items), ExpandedClasses: len(expanded.items)}

	css, err := r.Assembler.Assemble(ctx, expanded.items)
	if err != nil {
		return Result{}, err
	}

	attrValues := func(name func(string) string) []string {
		values := make([]string, len(attrs))
		for i, a := range attrs {
			var names orderedSet
			for _, tok := range strings.Fields(a.value) {
				for _, e := range expansions[tok] {
					names.add(name(e))
				}
			}
			values[i] = strings.Join(names.items, " ")
		}
		return values
	}

	expandedDoc := rewriteAttributes(doc, attrs, attrValues(func(s string) string { return s }))

	if r.KeepExpanded {
		stats.CSSBytes = len(css)
		return Result{
			HTML:   strings.Replace(expandedDoc, placeholder, m.wrap(css), 1),
			Marker: true,
			Stats:  stats,
		}, nil
	}

	if r.Purge {
		purgeText := expandedDoc + " " + strings.Join(markerExpanded.items, " ")
		css, stats.PurgedRules, err = stylesheet.Purge(purgeText, css, r.Safelist)
		if err != nil {
			return Result{}, err
		}
	}

	r.State.Reserve(expanded.items...)
	for _, tok := range expanded.items {
		r.State.Compress(tok)
	}
	compressedDoc := rewriteAttributes(doc, attrs, attrValues(r.State.Compress))

	css, stats.DeadRules, err = stylesheet.RewriteSelectors(css, r.State, r.Safelist)
	if err != nil {
		return Result{}, err
	}
	stats.CSSBytes = len(css)

	return Result{
		HTML:   strings.Replace(compressedDoc, placeholder, m.wrap(css), 1),
		Marker: true,
		Stats:  stats,
	}, nil
}

// Reserve claims the expanded class names of a page in State before any
// page is compressed, so a generated name never equals a class another page
// uses verbatim. Pages without a marker are ignored.
func (r *Rewriter) Reserve(doc string) error {
	if r.KeepExpanded {
		return nil
	}

	m, err := findMarker(doc)
	if err != nil || m == nil {
		return err
	}
	doc = doc[:m.start] + placeholder + doc[m.end:]

	attrs, err := classAttributes(doc)
	if err != nil {
		return err
	}
	_, expanded, err := r.expand(rawTokens(m, attrs))
	if err != nil {
		return err
	}
	r.State.Reserve(expanded.items...)
	return nil
}

// rawTokens lists class tokens in first-seen order: marker list, then
// attributes
func rawTokens(m *marker, attrs []classAttr) orderedSet {
	var raw orderedSet
	raw.add(strings.Fields(m.classes)...)
	for _, a := range attrs {
		raw.add(strings.Fields(a.value)...)
	}
	return raw
}

// expand resolves every raw token, returning each token's expansion and the
// union in first-seen order
func (r *Rewriter) expand(raw orderedSet) (map[string][]string, orderedSet, error) {
	expansions := make(map[string][]string, len(raw.items))
	var expanded orderedSet
	for _, tok := range raw.items {
		exp, err := r.Expander.Expand(tok)
		if err != nil {
			return nil, orderedSet{}, fmt.Errorf("expand %q: %w", tok, err)
		}
		expansions[tok] = exp
		expanded.add(exp...)
	}
	return expansions, expanded, nil
}

// orderedSet keeps first-seen order
type orderedSet struct {
	items []string
	seen  map[string]bool
}

func (s *orderedSet) add(items ...string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	for _, it := range items {
		if !s.seen[it] {
			s.seen[it] = true
			s.items = append(s.items, it)
		}
	}
}
