// Package macro resolves class-name macros into flat sets of primitive
// utility tokens.
//
// A macro source is a stylesheet-like list of blocks whose selectors name a
// macro and whose bodies reference other class names with @apply:
//
//	btn {
//		@apply px-4 py-2 rounded;
//	}
//	btn:hover {
//		@apply bg-blue-600;
//	}
//	components@card {
//		@apply btn shadow;
//	}
//
// A selector modifier or layer tag becomes a prefix of every referenced
// token, so btn expands to "px-4 py-2 rounded hover:bg-blue-600" and card to
// "components@px-4 ... components@hover:bg-blue-600 components@shadow".
package macro

import (
	"fmt"
	"strings"

	"github.com/yacobolo/sitecss/internal/selector"
)

// MaxPasses bounds fixpoint resolution; anything still expanding after this
// many passes is a cyclic reference
const MaxPasses = 64

// CycleError reports a macro that never reaches a fixpoint
type CycleError struct {
	Token string // Macro still being substituted when the bound was hit
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic macro reference involving %q (no fixpoint after %d passes)", e.Token, MaxPasses)
}

// Table is an immutable ExpansionTable: macro name to its ordered,
// duplicate-free primitive tokens
type Table struct {
	entries map[string][]string
	names   []string
}

// Empty returns a table without macros; every token passes through
func Empty() *Table {
	return &Table{entries: map[string][]string{}}
}

// compile flattens raw references so that no entry names another macro
func compile(raw map[string][]string, names []string) (*Table, error) {
	t := &Table{
		entries: make(map[string][]string, len(raw)),
		names:   names,
	}

	lookup := lookupIn(raw)
	for _, name := range names {
		resolved, err := resolve(raw[name], lookup)
		if err != nil {
			return nil, fmt.Errorf("expand macro %q: %w", name, err)
		}
		t.entries[name] = resolved
	}

	return t, nil
}

// Expand resolves a space-separated class string into primitive tokens,
// in first-seen order. Tokens without a macro pass through unchanged.
func (t *Table) Expand(classString string) ([]string, error) {
	return resolve(strings.Fields(classString), lookupIn(t.entries))
}

// Lookup returns the expansion of a single token
func (t *Table) Lookup(token string) ([]string, bool) {
	return lookupIn(t.entries)(token)
}

// Names returns macro names in definition order
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// Len returns the number of macros
func (t *Table) Len() int {
	return len(t.entries)
}

// lookupIn finds a token's expansion. A prefixed token whose base is a
// macro ("hover:btn") distributes its prefix over the macro's entries.
func lookupIn(entries map[string][]string) func(string) ([]string, bool) {
	return func(token string) ([]string, bool) {
		if expansion, ok := entries[token]; ok {
			return expansion, true
		}

		u := selector.ParseUtility(token)
		if !u.HasPrefix() {
			return nil, false
		}
		expansion, ok := entries[u.Base]
		if !ok {
			return nil, false
		}

		out := make([]string, len(expansion))
		for i, ref := range expansion {
			out[i] = compose(u, ref)
		}
		return out, true
	}
}

// compose applies an outer prefix to a referenced token. The reference's
// own layer wins; variants nest outer first.
func compose(outer selector.Utility, ref string) string {
	inner := selector.ParseUtility(ref)
	if inner.Layer == "" {
		inner.Layer = outer.Layer
	}
	if len(outer.Variants) > 0 {
		inner.Variants = append(append([]string(nil), outer.Variants...), inner.Variants...)
	}
	return inner.String()
}

// resolve substitutes tokens with their expansions until a pass performs no
// substitution
func resolve(tokens []string, lookup func(string) ([]string, bool)) ([]string, error) {
	current := dedupe(tokens)

	var offending string
	for pass := 0; pass < MaxPasses; pass++ {
		next := make([]string, 0, len(current))
		seen := make(map[string]bool, len(current))
		add := func(tok string) {
			if !seen[tok] {
				seen[tok] = true
				next = append(next, tok)
			}
		}

		offending = ""
		for _, tok := range current {
			expansion, ok := lookup(tok)
			if !ok {
				add(tok)
				continue
			}
			if offending == "" {
				offending = tok
			}
			for _, e := range expansion {
				add(e)
			}
		}

		if offending == "" {
			return current, nil
		}
		current = next
	}

	// Prefixes grow on every pass through a prefixed self-reference
	return nil, &CycleError{Token: selector.ParseUtility(offending).Base}
}

func dedupe(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}
