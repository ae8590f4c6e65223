// Package stylesheet assembles, purges and rewrites generated CSS.
//
// Only the block structure of a stylesheet is interpreted: rules, grouping
// at-rules (@media, @supports, @layer, @container) and statements. Rule
// bodies and non-grouping at-rules such as @font-face or @keyframes are kept
// as written.
package stylesheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Kind classifies a stylesheet node
type Kind int

const (
	Rule      Kind = iota // Selector list with declarations
	Block                 // Grouping at-rule with nested nodes
	Statement             // At-rule ending in ';' or a non-grouping at-rule
	Comment
)

// Node is one entry of a parsed stylesheet
type Node struct {
	Kind     Kind
	Prelude  string  // Selector list or grouping at-rule prelude
	Body     string  // Declarations of a rule, without braces
	Children []*Node // Nodes inside a grouping at-rule
	Raw      string  // Verbatim text of statements and comments
}

// SyntaxError reports malformed CSS
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("css line %d: %s", e.Line, e.Msg)
}

var groupingRules = map[string]bool{
	"media":          true,
	"supports":       true,
	"layer":          true,
	"container":      true,
	"scope":          true,
	"starting-style": true,
	"document":       true,
	"-moz-document":  true,
}

type treeParser struct {
	lexer  *css.Lexer
	src    string
	offset int
}

// Parse reads the block structure of a stylesheet
func Parse(src string) ([]*Node, error) {
	p := &treeParser{
		lexer: css.NewLexer(parse.NewInputString(src)),
		src:   src,
	}
	return p.parseList(false)
}

// Serialize writes nodes back as compact CSS
func Serialize(nodes []*Node) string {
	var b strings.Builder
	for _, n := range nodes {
		writeNode(&b, n)
	}
	return b.String()
}

func writeNode(b *strings.Builder, n *Node) {
	switch n.Kind {
	case Rule:
		b.WriteString(n.Prelude)
		b.WriteByte('{')
		b.WriteString(n.Body)
		b.WriteByte('}')
	case Block:
		b.WriteString(n.Prelude)
		b.WriteByte('{')
		for _, c := range n.Children {
			writeNode(b, c)
		}
		b.WriteByte('}')
	default:
		b.WriteString(n.Raw)
	}
}

func (p *treeParser) next() (css.TokenType, []byte) {
	tt, text := p.lexer.Next()
	p.offset += len(text)
	return tt, text
}

func (p *treeParser) errorf(format string, args ...any) error {
	offset := min(p.offset, len(p.src))
	return &SyntaxError{
		Line: strings.Count(p.src[:offset], "\n") + 1,
		Msg:  fmt.Sprintf(format, args...),
	}
}

func (p *treeParser) eof() error {
	if err := p.lexer.Err(); err != nil && err != io.EOF {
		return p.errorf("%v", err)
	}
	return nil
}

// parseList reads nodes until end of input, or until the closing brace of
// the enclosing block when nested
func (p *treeParser) parseList(nested bool) ([]*Node, error) {
	var nodes []*Node
	var prelude strings.Builder
	space := false

	for {
		tt, text := p.next()

		switch tt {
		case css.ErrorToken:
			if err := p.eof(); err != nil {
				return nil, err
			}
			if nested {
				return nil, p.errorf("unexpected end of input inside block")
			}
			if rest := prelude.String(); rest != "" {
				return nil, p.errorf("unexpected end of input after %q", rest)
			}
			return nodes, nil

		case css.CommentToken:
			if prelude.Len() == 0 {
				nodes = append(nodes, &Node{Kind: Comment, Raw: string(text)})
			}

		case css.WhitespaceToken:
			space = prelude.Len() > 0

		case css.SemicolonToken:
			if prelude.Len() > 0 {
				nodes = append(nodes, &Node{Kind: Statement, Raw: prelude.String() + ";"})
			}
			prelude.Reset()
			space = false

		case css.LeftBraceToken:
			node, err := p.parseBlock(prelude.String())
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
			prelude.Reset()
			space = false

		case css.RightBraceToken:
			if nested {
				return nodes, nil
			}
			return nil, p.errorf("unexpected '}'")

		default:
			if space {
				prelude.WriteByte(' ')
				space = false
			}
			prelude.Write(text)
		}
	}
}

func (p *treeParser) parseBlock(prelude string) (*Node, error) {
	if prelude == "" {
		return nil, p.errorf("block without selector")
	}

	if strings.HasPrefix(prelude, "@") {
		if groupingRules[atRuleName(prelude)] {
			children, err := p.parseList(true)
			if err != nil {
				return nil, err
			}
			return &Node{Kind: Block, Prelude: prelude, Children: children}, nil
		}

		body, err := p.rawBlock()
		if err != nil {
			return nil, err
		}
		return &Node{Kind: Statement, Raw: prelude + "{" + body + "}"}, nil
	}

	body, err := p.rawBlock()
	if err != nil {
		return nil, err
	}
	return &Node{Kind: Rule, Prelude: prelude, Body: body}, nil
}

// rawBlock returns the trimmed source text up to the matching closing brace
func (p *treeParser) rawBlock() (string, error) {
	start := p.offset
	depth := 1

	for {
		tt, _ := p.next()
		switch tt {
		case css.ErrorToken:
			if err := p.eof(); err != nil {
				return "", err
			}
			return "", p.errorf("unterminated block")
		case css.LeftBraceToken:
			depth++
		case css.RightBraceToken:
			depth--
			if depth == 0 {
				return strings.TrimSpace(p.src[start : p.offset-1]), nil
			}
		}
	}
}

// atRuleName returns the lowercase name of an at-rule prelude without '@'
func atRuleName(prelude string) string {
	name := prelude[1:]
	if i := strings.IndexAny(name, " (\t\n"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// hasContent reports whether nodes hold anything besides comments
func hasContent(nodes []*Node) bool {
	for _, n := range nodes {
		if n.Kind != Comment {
			return true
		}
	}
	return false
}
