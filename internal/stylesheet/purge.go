package stylesheet

import (
	"fmt"
	"strings"

	"github.com/yacobolo/sitecss/internal/selector"
)

// Exemptions decides which class names are safelisted
type Exemptions interface {
	Contains(name string) bool
}

// Names resolves class tokens to their compressed names
type Names interface {
	Lookup(token string) (string, bool)
}

// Purge drops every selector whose class names do not all occur literally
// in html, unless safelisted. Rules without surviving selectors and empty
// grouping at-rules are removed. Returns the number of dropped rules.
func Purge(html, css string, exempt Exemptions) (string, int, error) {
	nodes, err := Parse(css)
	if err != nil {
		return "", 0, fmt.Errorf("purge: %w", err)
	}

	kept, dropped := rewriteRules(nodes, func(sel string) (string, bool) {
		for _, ref := range selector.Classes(sel) {
			if !strings.Contains(html, ref.Name) && !isExempt(exempt, ref.Name) {
				return "", false
			}
		}
		return sel, true
	})

	return Serialize(kept), dropped, nil
}

// RewriteSelectors replaces every class in the stylesheet's selectors with
// its compressed name, keeping pseudo modifiers. Safelisted classes are left
// alone. A selector naming a class without a compressed name is dead and
// removed, along with rules that have no selector left. names is only read.
func RewriteSelectors(css string, names Names, exempt Exemptions) (string, int, error) {
	nodes, err := Parse(css)
	if err != nil {
		return "", 0, fmt.Errorf("rewrite selectors: %w", err)
	}

	kept, dropped := rewriteRules(nodes, func(sel string) (string, bool) {
		var b strings.Builder
		last := 0
		for _, ref := range selector.Classes(sel) {
			if isExempt(exempt, ref.Name) {
				continue
			}
			name, ok := names.Lookup(ref.Name)
			if !ok {
				return "", false
			}
			b.WriteString(sel[last : ref.Start+1])
			b.WriteString(selector.Escape(name))
			last = ref.End
		}
		b.WriteString(sel[last:])
		return b.String(), true
	})

	return Serialize(kept), dropped, nil
}

// rewriteRules maps fn over the selectors of every rule. Selectors for which
// fn returns false are removed; so are rules left without selectors and
// grouping at-rules left without rules.
func rewriteRules(nodes []*Node, fn func(sel string) (string, bool)) ([]*Node, int) {
	out := make([]*Node, 0, len(nodes))
	dropped := 0

	for _, n := range nodes {
		switch n.Kind {
		case Rule:
			var kept []string
			for _, sel := range selector.SplitList(n.Prelude) {
				if s, ok := fn(sel); ok {
					kept = append(kept, s)
				}
			}
			if len(kept) == 0 {
				dropped++
				continue
			}
			n.Prelude = strings.Join(kept, ",")

		case Block:
			children, d := rewriteRules(n.Children, fn)
			dropped += d
			if !hasContent(children) {
				continue
			}
			n.Children = children
		}

		out = append(out, n)
	}

	return out, dropped
}

func isExempt(exempt Exemptions, name string) bool {
	return exempt != nil && exempt.Contains(name)
}
