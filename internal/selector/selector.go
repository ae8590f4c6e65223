// Package selector tokenizes the class grammars used across the pipeline:
// macro definition selectors ([layer@]base[:modifier][::pseudo-element]),
// utility tokens ([layer@][variant:]*base) and CSS class selectors as they
// appear in stylesheets (.hover\:bg-red:hover).
package selector

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Token is a macro definition selector
type Token struct {
	Layer         string // "components" in "components@btn"
	Base          string // "btn"
	Modifier      string // "hover" or "hover:focus", without the leading colon
	PseudoElement string // "after", without colons
}

// Parse tokenizes a definition selector of the form
// [layer@]base[:modifier][::pseudo-element]. A backslash escapes the next
// character, so "a\:b" is the base "a:b".
func Parse(s string) (Token, error) {
	var tok Token
	if s == "" {
		return tok, fmt.Errorf("empty selector")
	}

	rest := s
	if i := indexUnescaped(rest, '@'); i >= 0 {
		if i == 0 {
			return tok, fmt.Errorf("selector %q: empty layer", s)
		}
		tok.Layer = unescapeRaw(rest[:i])
		rest = rest[i+1:]
		if indexUnescaped(rest, '@') >= 0 {
			return tok, fmt.Errorf("selector %q: more than one layer separator", s)
		}
	}

	i := indexUnescaped(rest, ':')
	if i < 0 {
		i = len(rest)
	}
	tok.Base = unescapeRaw(rest[:i])
	if tok.Base == "" {
		return tok, fmt.Errorf("selector %q: empty class name", s)
	}
	rest = rest[i:]
	if rest == "" {
		return tok, nil
	}

	// Modifier and pseudo-element
	var pseudo string
	if strings.HasPrefix(rest, "::") {
		pseudo = rest[2:]
		rest = ""
	} else {
		rest = rest[1:]
		if j := strings.Index(rest, "::"); j >= 0 {
			pseudo = rest[j+2:]
			rest = rest[:j]
			if pseudo == "" {
				return tok, fmt.Errorf("selector %q: empty pseudo-element", s)
			}
		}
		for _, seg := range strings.Split(rest, ":") {
			if seg == "" {
				return tok, fmt.Errorf("selector %q: empty modifier", s)
			}
		}
		tok.Modifier = rest
	}

	if rest == "" && pseudo == "" {
		return tok, fmt.Errorf("selector %q: empty pseudo-element", s)
	}
	if strings.Contains(pseudo, ":") {
		return tok, fmt.Errorf("selector %q: unexpected text after pseudo-element", s)
	}
	tok.PseudoElement = pseudo

	return tok, nil
}

// Variants returns the modifier segments followed by the pseudo-element
func (t Token) Variants() []string {
	var variants []string
	if t.Modifier != "" {
		variants = append(variants, strings.Split(t.Modifier, ":")...)
	}
	if t.PseudoElement != "" {
		variants = append(variants, t.PseudoElement)
	}
	return variants
}

func (t Token) String() string {
	var b strings.Builder
	if t.Layer != "" {
		b.WriteString(escapeRaw(t.Layer))
		b.WriteByte('@')
	}
	b.WriteString(escapeRaw(t.Base))
	if t.Modifier != "" {
		b.WriteByte(':')
		b.WriteString(t.Modifier)
	}
	if t.PseudoElement != "" {
		b.WriteString("::")
		b.WriteString(t.PseudoElement)
	}
	return b.String()
}

// Utility is a class token as used in markup: [layer@][variant:]*base
type Utility struct {
	Layer    string
	Variants []string
	Base     string
}

// ParseUtility splits a utility token into layer, variants and base.
// Separators inside brackets or parentheses (arbitrary values such as
// "bg-[url(a:b)]") and escaped separators are not split.
func ParseUtility(s string) Utility {
	var u Utility
	rest := s
	if i := indexUnescaped(rest, '@'); i > 0 {
		u.Layer = rest[:i]
		rest = rest[i+1:]
	}

	parts := splitTopLevel(rest, ':')
	u.Base = parts[len(parts)-1]
	for _, p := range parts[:len(parts)-1] {
		if p != "" {
			u.Variants = append(u.Variants, p)
		}
	}
	return u
}

// HasPrefix reports whether the utility carries a layer or variants
func (u Utility) HasPrefix() bool {
	return u.Layer != "" || len(u.Variants) > 0
}

func (u Utility) String() string {
	var b strings.Builder
	if u.Layer != "" {
		b.WriteString(u.Layer)
		b.WriteByte('@')
	}
	for _, v := range u.Variants {
		b.WriteString(v)
		b.WriteByte(':')
	}
	b.WriteString(u.Base)
	return b.String()
}

// ClassRef is one class selector found in CSS selector text
type ClassRef struct {
	Start    int    // Offset of the leading '.'
	End      int    // Offset just past the escaped class name
	Name     string // Unescaped class name: "hover:bg-red"
	Modifier string // Trailing pseudo text: ":hover", "::after", ":not(.x)"
}

// Classes returns every class selector in a CSS selector, in order.
// Classes nested in functional pseudo-classes are reported as well.
func Classes(sel string) []ClassRef {
	var refs []ClassRef
	n := len(sel)

	for i := 0; i < n; {
		switch c := sel[i]; c {
		case '\\':
			i += escapeLen(sel, i)
		case '"', '\'':
			i = skipString(sel, i)
		case '[':
			i = skipGroup(sel, i, '[', ']')
		case '.':
			end := scanIdent(sel, i+1)
			if end == i+1 || isDigit(sel[i+1]) {
				i++
				continue
			}
			refs = append(refs, ClassRef{
				Start:    i,
				End:      end,
				Name:     Unescape(sel[i+1 : end]),
				Modifier: sel[end:scanPseudo(sel, end)],
			})
			i = end
		default:
			i++
		}
	}

	return refs
}

// SplitList splits a selector list at top-level commas
func SplitList(prelude string) []string {
	var out []string
	for _, part := range splitTopLevel(prelude, ',') {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Escape serializes a class name as a CSS identifier
func Escape(name string) string {
	if name == "-" {
		return `\-`
	}

	var b strings.Builder
	for i, r := range name {
		switch {
		case isDigitRune(r) && (i == 0 || (i == 1 && name[0] == '-')):
			b.WriteString(`\` + strconv.FormatInt(int64(r), 16) + " ")
		case r == '-' || r == '_' || r >= utf8.RuneSelf || isAlnumRune(r):
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Unescape decodes CSS escapes in an identifier
func Unescape(ident string) string {
	if !strings.Contains(ident, `\`) {
		return ident
	}

	var b strings.Builder
	for i := 0; i < len(ident); {
		if ident[i] != '\\' || i+1 >= len(ident) {
			b.WriteByte(ident[i])
			i++
			continue
		}

		j := i + 1
		for j < len(ident) && j < i+7 && isHex(ident[j]) {
			j++
		}
		if j > i+1 {
			code, _ := strconv.ParseUint(ident[i+1:j], 16, 32)
			if code == 0 || code > utf8.MaxRune {
				code = utf8.RuneError
			}
			b.WriteRune(rune(code))
			if j < len(ident) && isSpace(ident[j]) {
				j++
			}
			i = j
			continue
		}

		_, size := utf8.DecodeRuneInString(ident[i+1:])
		b.WriteString(ident[i+1 : i+1+size])
		i += 1 + size
	}
	return b.String()
}

func indexUnescaped(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == c {
			return i
		}
	}
	return -1
}

func unescapeRaw(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func escapeRaw(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `@`, `\@`, `:`, `\:`)
	return r.Replace(s)
}

// splitTopLevel splits s at sep outside of brackets, parentheses, strings
// and escapes
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0

	for i := 0; i < len(s); {
		switch c := s[i]; {
		case c == '\\':
			i += escapeLen(s, i)
			continue
		case c == '"' || c == '\'':
			i = skipString(s, i)
			continue
		case c == '(' || c == '[':
			depth++
		case (c == ')' || c == ']') && depth > 0:
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
		i++
	}

	return append(parts, s[start:])
}

// scanIdent returns the offset just past the identifier starting at i
func scanIdent(s string, i int) int {
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\\':
			i += escapeLen(s, i)
		case isNameChar(c):
			i++
		default:
			return i
		}
	}
	return len(s)
}

// scanPseudo returns the offset just past the pseudo-classes and
// pseudo-elements that directly follow a class name
func scanPseudo(s string, i int) int {
	for i < len(s) && s[i] == ':' {
		j := i + 1
		if j < len(s) && s[j] == ':' {
			j++
		}
		end := scanIdent(s, j)
		if end == j {
			return i
		}
		if end < len(s) && s[end] == '(' {
			end = skipGroup(s, end, '(', ')')
		}
		i = end
	}
	return i
}

// escapeLen returns the byte length of the escape sequence starting at i
func escapeLen(s string, i int) int {
	if i+1 >= len(s) {
		return 1
	}
	if isHex(s[i+1]) {
		j := i + 1
		for j < len(s) && j < i+7 && isHex(s[j]) {
			j++
		}
		if j < len(s) && isSpace(s[j]) {
			j++
		}
		return j - i
	}
	_, size := utf8.DecodeRuneInString(s[i+1:])
	return 1 + size
}

func skipString(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(s)
}

func skipGroup(s string, i int, open, close byte) int {
	depth := 0
	for j := i; j < len(s); j++ {
		switch c := s[j]; {
		case c == '\\':
			j++
		case c == '"' || c == '\'':
			j = skipString(s, j) - 1
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return j + 1
			}
		}
	}
	return len(s)
}

func isNameChar(c byte) bool {
	return c >= utf8.RuneSelf || c == '-' || c == '_' || isDigit(c) || (c|0x20 >= 'a' && c|0x20 <= 'z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || (c|0x20 >= 'a' && c|0x20 <= 'f')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isDigitRune(r rune) bool { return r >= '0' && r <= '9' }

func isAlnumRune(r rune) bool {
	return isDigitRune(r) || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
