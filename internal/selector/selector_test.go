package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     Token
		variants []string
	}{
		{
			name:  "plain class",
			input: "btn",
			want:  Token{Base: "btn"},
		},
		{
			name:     "modifier",
			input:    "btn:hover",
			want:     Token{Base: "btn", Modifier: "hover"},
			variants: []string{"hover"},
		},
		{
			name:     "pseudo-element",
			input:    "btn::after",
			want:     Token{Base: "btn", PseudoElement: "after"},
			variants: []string{"after"},
		},
		{
			name:     "modifier and pseudo-element",
			input:    "btn:hover::before",
			want:     Token{Base: "btn", Modifier: "hover", PseudoElement: "before"},
			variants: []string{"hover", "before"},
		},
		{
			name:     "layer",
			input:    "components@card",
			want:     Token{Layer: "components", Base: "card"},
			variants: nil,
		},
		{
			name:     "layer with chained modifiers",
			input:    "components@card:hover:focus",
			want:     Token{Layer: "components", Base: "card", Modifier: "hover:focus"},
			variants: []string{"hover", "focus"},
		},
		{
			name:  "escaped separators belong to the base",
			input: `a\:b\@c`,
			want:  Token{Base: "a:b@c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.variants, got.Variants())
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"",
		"@btn",
		"layer@",
		"a@b@c",
		":hover",
		"btn:",
		"btn::",
		"btn:hover::",
		"btn::after:hover",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(t, err)
		})
	}
}

func TestTokenString(t *testing.T) {
	for _, input := range []string{"btn", "components@btn:hover::after", `a\:b`} {
		tok, err := Parse(input)
		require.NoError(t, err)
		assert.Equal(t, input, tok.String())
	}
}

func TestParseUtility(t *testing.T) {
	tests := []struct {
		input string
		want  Utility
	}{
		{"p-2", Utility{Base: "p-2"}},
		{"hover:p-2", Utility{Variants: []string{"hover"}, Base: "p-2"}},
		{"md:hover:p-2", Utility{Variants: []string{"md", "hover"}, Base: "p-2"}},
		{"components@hover:p-2", Utility{Layer: "components", Variants: []string{"hover"}, Base: "p-2"}},
		{"bg-[url(a:b)]", Utility{Base: "bg-[url(a:b)]"}},
		{"hover:bg-[url(a:b)]", Utility{Variants: []string{"hover"}, Base: "bg-[url(a:b)]"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseUtility(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestClasses(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		want     []ClassRef
	}{
		{
			name:     "single class",
			selector: ".btn",
			want:     []ClassRef{{Start: 0, End: 4, Name: "btn"}},
		},
		{
			name:     "escaped variant with pseudo-class",
			selector: `.hover\:bg-red:hover`,
			want:     []ClassRef{{Start: 0, End: 14, Name: "hover:bg-red", Modifier: ":hover"}},
		},
		{
			name:     "layer separator and pseudo-element",
			selector: `.components\@card::after`,
			want:     []ClassRef{{Start: 0, End: 17, Name: "components@card", Modifier: "::after"}},
		},
		{
			name:     "descendant and compound",
			selector: `div .a.b > .c`,
			want: []ClassRef{
				{Start: 4, End: 6, Name: "a"},
				{Start: 6, End: 8, Name: "b"},
				{Start: 11, End: 13, Name: "c"},
			},
		},
		{
			name:     "functional pseudo-class",
			selector: `.a:not(.b)`,
			want: []ClassRef{
				{Start: 0, End: 2, Name: "a", Modifier: ":not(.b)"},
				{Start: 7, End: 9, Name: "b"},
			},
		},
		{
			name:     "attribute selectors are skipped",
			selector: `a[href$=".pdf"].x`,
			want:     []ClassRef{{Start: 15, End: 17, Name: "x"}},
		},
		{
			name:     "hex escape",
			selector: `.\31 0`,
			want:     []ClassRef{{Start: 0, End: 6, Name: "10"}},
		},
		{
			name:     "no classes",
			selector: `body > *`,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classes(tt.selector))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{".a", ".b:is(.c, .d)", `[title="x,y"]`},
		SplitList(` .a , .b:is(.c, .d),[title="x,y"]`))
	assert.Nil(t, SplitList("  "))
}

func TestEscapeRoundTrip(t *testing.T) {
	tests := map[string]string{
		"btn":               "btn",
		"hover:bg-red":      `hover\:bg-red`,
		"components@card":   `components\@card`,
		"w-1/2":             `w-1\/2`,
		"10":                `\31 0`,
		"-2":                `-\32 `,
		"-":                 `\-`,
		"bg-[#fff]":         `bg-\[\#fff\]`,
		"héllo":             "héllo",
		"space between":     `space\ between`,
		"md:hover:p-2.5":    `md\:hover\:p-2\.5`,
		"layer@hover:x_y-z": `layer\@hover\:x_y-z`,
	}

	for name, escaped := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, escaped, Escape(name))
			assert.Equal(t, name, Unescape(Escape(name)))
		})
	}
}
