package page

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/html"
)

// ImportMarker is the literal placeholder replaced by the bare stylesheet
const ImportMarker = `@import "sitecss";`

// ErrMultipleMarkers is returned for pages with more than one style marker
var ErrMultipleMarkers = errors.New("page has more than one sitecss marker")

// styleMarker matches <style data-sitecss-classes="..."></style> and its
// self-closing form
var styleMarker = regexp.MustCompile(`<style\s+data-sitecss-classes="([^"]*)"\s*(?:/>|>[\s\S]*?</style>)`)

// placeholder stands in for the marker while class attributes are rewritten
const placeholder = "<!--sitecss:styles-->"

type markerKind int

const (
	styleElement    markerKind = iota // Replaced by <style>css</style>
	importStatement                   // Replaced by css
)

type marker struct {
	kind       markerKind
	start, end int
	classes    string
}

// findMarker locates the single style marker of a page
func findMarker(doc string) (*marker, error) {
	var found []*marker

	for _, m := range styleMarker.FindAllStringSubmatchIndex(doc, -1) {
		found = append(found, &marker{
			kind:    styleElement,
			start:   m[0],
			end:     m[1],
			classes: doc[m[2]:m[3]],
		})
	}

	for offset := 0; ; {
		i := strings.Index(doc[offset:], ImportMarker)
		if i < 0 {
			break
		}
		start := offset + i
		found = append(found, &marker{kind: importStatement, start: start, end: start + len(ImportMarker)})
		offset = start + len(ImportMarker)
	}

	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w (found %d)", ErrMultipleMarkers, len(found))
	}
}

func (m *marker) wrap(css string) string {
	if m.kind == styleElement {
		return "<style>" + css + "</style>"
	}
	return css
}

// classAttr is one class attribute of a document
type classAttr struct {
	start, end int    // Byte span, including leading whitespace
	prefix     string // Whitespace before the attribute name
	name       string // Attribute name as written
	value      string
}

// classAttributes lexes doc and returns its class attributes in document
// order
func classAttributes(doc string) ([]classAttr, error) {
	return scanAttributes(doc, 0)
}

func scanAttributes(doc string, base int) ([]classAttr, error) {
	lexer := html.NewLexer(parse.NewInputString(doc))
	var attrs []classAttr
	cursor := 0

	for {
		tt, data := lexer.Next()
		if tt == html.ErrorToken {
			if err := lexer.Err(); err != nil && err != io.EOF {
				return nil, fmt.Errorf("parse html: %w", err)
			}
			return attrs, nil
		}

		start, ok := locate(doc, cursor, data)
		if !ok {
			return nil, fmt.Errorf("parse html: unexpected markup at offset %d", base+cursor)
		}
		cursor = start + len(data)

		switch tt {
		case html.AttributeToken:
			if string(lexer.Text()) != "class" {
				continue
			}
			raw := doc[start:cursor]
			trimmed := strings.TrimLeft(raw, " \t\n\r\f")
			attrs = append(attrs, classAttr{
				start:  base + start,
				end:    base + cursor,
				prefix: raw[:len(raw)-len(trimmed)],
				name:   trimmed[:len(lexer.Text())],
				value:  unquote(string(lexer.AttrVal())),
			})

		case html.SVGToken, html.MathToken:
			// Lex embedded SVG and MathML as ordinary markup
			inner := "<x" + doc[start+2:cursor]
			nested, err := scanAttributes(inner, base+start)
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, nested...)
		}
	}
}

// locate finds token data at the cursor. The lexer drops whitespace before
// a tag's closing '>' and lowercases names, so both are tolerated.
func locate(doc string, cursor int, data []byte) (int, bool) {
	for i := cursor; ; i++ {
		if i+len(data) <= len(doc) && strings.EqualFold(doc[i:i+len(data)], string(data)) {
			return i, true
		}
		if i >= len(doc) || !isSpace(doc[i]) {
			return 0, false
		}
	}
}

// rewriteAttributes replaces each class attribute value with values[i]
func rewriteAttributes(doc string, attrs []classAttr, values []string) string {
	var b strings.Builder
	b.Grow(len(doc))

	last := 0
	for i, a := range attrs {
		b.WriteString(doc[last:a.start])
		b.WriteString(a.prefix)
		b.WriteString(a.name)
		b.WriteString(`="`)
		b.WriteString(values[i])
		b.WriteByte('"')
		last = a.end
	}
	b.WriteString(doc[last:])

	return b.String()
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
