package stylesheet

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/yacobolo/sitecss/internal/selector"
)

// Generator produces the CSS rules for a set of utility classes
type Generator interface {
	Generate(ctx context.Context, classes []string) (string, error)
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(ctx context.Context, classes []string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, classes []string) (string, error) {
	return f(ctx, classes)
}

// RuleSet generates CSS by selecting from a prebuilt utilities stylesheet.
// It keeps, in source order, statements, non-grouping at-rules, rules
// without class selectors and every selector whose classes were all
// requested. Grouping at-rules are kept around the rules they still hold.
type RuleSet struct {
	source  string
	rules   int
	classes []string
}

// NewRuleSet validates a utilities stylesheet
func NewRuleSet(css string) (*RuleSet, error) {
	nodes, err := Parse(css)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	collectClasses(nodes, seen)
	classes := make([]string, 0, len(seen))
	for name := range seen {
		classes = append(classes, name)
	}
	sort.Strings(classes)

	return &RuleSet{source: css, rules: countRules(nodes), classes: classes}, nil
}

// LoadRuleSet reads a utilities stylesheet from disk
func LoadRuleSet(path string) (*RuleSet, error) {
	// #nosec G304 - path comes from trusted configuration
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read utilities: %w", err)
	}

	rs, err := NewRuleSet(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}

// Len returns the number of rules in the source stylesheet
func (r *RuleSet) Len() int {
	return r.rules
}

// Classes returns the sorted class names the stylesheet can generate
func (r *RuleSet) Classes() []string {
	return append([]string(nil), r.classes...)
}

func (r *RuleSet) Generate(ctx context.Context, classes []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	requested := make(map[string]bool, len(classes))
	for _, c := range classes {
		requested[c] = true
	}

	nodes, err := Parse(r.source)
	if err != nil {
		return "", err
	}

	kept, _ := rewriteRules(nodes, func(sel string) (string, bool) {
		for _, ref := range selector.Classes(sel) {
			if !requested[ref.Name] {
				return "", false
			}
		}
		return sel, true
	})

	return Serialize(withoutComments(kept)), nil
}

func countRules(nodes []*Node) int {
	n := 0
	for _, node := range nodes {
		switch node.Kind {
		case Rule:
			n++
		case Block:
			n += countRules(node.Children)
		}
	}
	return n
}

func collectClasses(nodes []*Node, seen map[string]bool) {
	for _, node := range nodes {
		switch node.Kind {
		case Rule:
			for _, sel := range selector.SplitList(node.Prelude) {
				for _, ref := range selector.Classes(sel) {
					seen[ref.Name] = true
				}
			}
		case Block:
			collectClasses(node.Children, seen)
		}
	}
}

func withoutComments(nodes []*Node) []*Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n.Kind == Comment {
			continue
		}
		if n.Kind == Block {
			n.Children = withoutComments(n.Children)
		}
		out = append(out, n)
	}
	return out
}

// Assembler turns an expanded class set into final CSS: generation followed
// by import resolution
type Assembler struct {
	Generator Generator
	Loader    ImportLoader // Optional
}

// Assemble generates the stylesheet for classes and inlines its imports
func (a *Assembler) Assemble(ctx context.Context, classes []string) (string, error) {
	css, err := a.Generator.Generate(ctx, classes)
	if err != nil {
		return "", fmt.Errorf("generate css: %w", err)
	}

	if a.Loader == nil {
		return css, nil
	}

	css, err = FinalizeImports(ctx, css, a.Loader)
	if err != nil {
		return "", fmt.Errorf("finalize imports: %w", err)
	}
	return css, nil
}
