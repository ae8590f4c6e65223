package macro

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"github.com/yacobolo/sitecss/internal/selector"
)

// SyntaxError reports malformed macro source
type SyntaxError struct {
	File string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// parserState maintains context while reading macro source
type parserState struct {
	lexer        *css.Lexer
	content      string
	filename     string
	offset       int
	currentLayer string              // From an enclosing @layer block
	entries      map[string][]string // Raw references per macro, in order
	names        []string            // Macro names in definition order
}

// Parse reads macro source and compiles it into an ExpansionTable
func Parse(content string, filename string) (*Table, error) {
	state := &parserState{
		lexer:    css.NewLexer(parse.NewInputString(content)),
		content:  content,
		filename: filename,
		entries:  make(map[string][]string),
	}

	if err := state.parseBlocks(false); err != nil {
		return nil, err
	}

	return compile(state.entries, state.names)
}

// Load reads and compiles a macro source file
func Load(path string) (*Table, error) {
	// #nosec G304 - path comes from trusted configuration
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read macro source: %w", err)
	}
	return Parse(string(content), path)
}

func (s *parserState) next() (css.TokenType, []byte) {
	tt, text := s.lexer.Next()
	s.offset += len(text)
	return tt, text
}

func (s *parserState) errorf(format string, args ...any) error {
	offset := min(s.offset, len(s.content))
	return &SyntaxError{
		File: s.filename,
		Line: strings.Count(s.content[:offset], "\n") + 1,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// eof reports whether an ErrorToken marks the end of input rather than a
// lexer failure
func (s *parserState) eof() error {
	if err := s.lexer.Err(); err != nil && err != io.EOF {
		return s.errorf("%v", err)
	}
	return nil
}

// parseBlocks reads selector blocks until end of input, or until the closing
// brace of the enclosing block when nested
func (s *parserState) parseBlocks(nested bool) error {
	var prelude strings.Builder

	for {
		tt, text := s.next()

		switch tt {
		case css.ErrorToken:
			if err := s.eof(); err != nil {
				return err
			}
			if nested {
				return s.errorf("unexpected end of input inside block")
			}
			if p := strings.TrimSpace(prelude.String()); p != "" {
				return s.errorf("selector %q has no block", p)
			}
			return nil

		case css.CommentToken:
			continue

		case css.AtKeywordToken:
			// Track @layer blocks
			if string(text) == "@layer" && strings.TrimSpace(prelude.String()) == "" {
				if err := s.handleLayerDeclaration(); err != nil {
					return err
				}
				continue
			}
			prelude.Write(text)

		case css.SemicolonToken:
			// Top-level statements (@import, @charset) carry no macros
			prelude.Reset()

		case css.LeftBraceToken:
			sel := strings.TrimSpace(prelude.String())
			prelude.Reset()

			if strings.HasPrefix(sel, "@") {
				if err := s.skipBlock(); err != nil {
					return err
				}
				continue
			}
			if err := s.handleRule(sel); err != nil {
				return err
			}

		case css.RightBraceToken:
			if nested {
				return nil
			}
			return s.errorf("unexpected '}'")

		default:
			prelude.Write(text)
		}
	}
}

// handleLayerDeclaration processes @layer declarations
func (s *parserState) handleLayerDeclaration() error {
	var layerName string

	for {
		tt, text := s.next()
		switch tt {
		case css.ErrorToken:
			if err := s.eof(); err != nil {
				return err
			}
			return s.errorf("unterminated @layer")

		case css.IdentToken:
			layerName = string(text)

		case css.LeftBraceToken:
			// @layer name { ... }
			previous := s.currentLayer
			if layerName != "" {
				s.currentLayer = layerName
			}
			err := s.parseBlocks(true)
			s.currentLayer = previous
			return err

		case css.SemicolonToken:
			// @layer name1, name2;
			return nil
		}
	}
}

// handleRule records the references of one selector block
func (s *parserState) handleRule(sel string) error {
	if sel == "" {
		return s.errorf("block without selector")
	}

	var tokens []selector.Token
	for _, raw := range selector.SplitList(sel) {
		tok, err := selector.Parse(strings.TrimPrefix(raw, "."))
		if err != nil {
			return s.errorf("%v", err)
		}
		if tok.Layer == "" {
			tok.Layer = s.currentLayer
		}
		tokens = append(tokens, tok)
	}

	refs, err := s.readBody()
	if err != nil {
		return err
	}

	for _, tok := range tokens {
		prefix := selector.Utility{Layer: tok.Layer, Variants: tok.Variants()}
		for _, ref := range refs {
			s.add(tok.Base, compose(prefix, ref))
		}
	}

	return nil
}

// readBody collects @apply references until the closing brace.
// Plain declarations and nested blocks are ignored.
func (s *parserState) readBody() ([]string, error) {
	var refs []string

	for {
		tt, text := s.next()
		switch tt {
		case css.ErrorToken:
			if err := s.eof(); err != nil {
				return nil, err
			}
			return nil, s.errorf("unterminated block")

		case css.RightBraceToken:
			return refs, nil

		case css.LeftBraceToken:
			if err := s.skipBlock(); err != nil {
				return nil, err
			}

		case css.AtKeywordToken:
			if string(text) != "@apply" {
				continue
			}
			words, closed, err := s.readWords()
			if err != nil {
				return nil, err
			}
			refs = append(refs, words...)
			if closed {
				return refs, nil
			}
		}
	}
}

// readWords reads whitespace separated class names up to ';' or '}'.
// closed is true when the block's closing brace ended the list.
func (s *parserState) readWords() (words []string, closed bool, err error) {
	var word strings.Builder
	flush := func() {
		if w := word.String(); w != "" && !strings.HasPrefix(w, "!") {
			words = append(words, w)
		}
		word.Reset()
	}

	for {
		tt, text := s.next()
		switch tt {
		case css.ErrorToken:
			if err := s.eof(); err != nil {
				return nil, false, err
			}
			return nil, false, s.errorf("unterminated @apply")
		case css.WhitespaceToken, css.CommentToken:
			flush()
		case css.SemicolonToken:
			flush()
			return words, false, nil
		case css.RightBraceToken:
			flush()
			return words, true, nil
		default:
			word.Write(text)
		}
	}
}

// skipBlock discards tokens up to the brace closing the current block
func (s *parserState) skipBlock() error {
	depth := 1
	for depth > 0 {
		tt, _ := s.next()
		switch tt {
		case css.ErrorToken:
			if err := s.eof(); err != nil {
				return err
			}
			return s.errorf("unterminated block")
		case css.LeftBraceToken:
			depth++
		case css.RightBraceToken:
			depth--
		}
	}
	return nil
}

func (s *parserState) add(name, ref string) {
	existing, ok := s.entries[name]
	if !ok {
		s.names = append(s.names, name)
	}
	for _, e := range existing {
		if e == ref {
			return
		}
	}
	s.entries[name] = append(existing, ref)
}
