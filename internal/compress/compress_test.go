package compress

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yacobolo/sitecss/internal/safelist"
)

func TestName(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{1, "a"},
		{2, "b"},
		{26, "z"},
		{27, "aa"},
		{52, "az"},
		{53, "ba"},
		{702, "zz"},
		{703, "aaa"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.n))
		})
	}
}

func TestCompress(t *testing.T) {
	s := New(nil)

	assert.Equal(t, "a", s.Compress("color-red"))
	assert.Equal(t, "b", s.Compress("pad-1"))
	assert.Equal(t, "a", s.Compress("color-red"), "memoized")
	assert.Equal(t, "a", s.Compress("a"), "generated names map to themselves")
	assert.Equal(t, 2, s.Counter())

	name, ok := s.Lookup("pad-1")
	require.True(t, ok)
	assert.Equal(t, "b", name)

	_, ok = s.Lookup("margin-2")
	assert.False(t, ok)

	assert.Equal(t, map[string]string{
		"color-red": "a",
		"a":         "a",
		"pad-1":     "b",
		"b":         "b",
	}, s.Mapping())
}

func TestCompressSkipsReservedNames(t *testing.T) {
	s := New(nil)

	seen := make(map[string]bool)
	for i := 0; i < 2000; i++ {
		name := s.Compress(fmt.Sprintf("token-%d", i))
		assert.NotContains(t, Reserved, name)
		seen[name] = true
	}
	assert.Len(t, seen, 2000)
	assert.True(t, seen["ac"])
	assert.True(t, seen["ae"])
	assert.False(t, seen["ad"])
}

func TestCompressSkipsTakenNames(t *testing.T) {
	s := New(nil)

	// The token "c" occupies the key a later generated name would use
	assert.Equal(t, "a", s.Compress("c"))
	assert.Equal(t, "b", s.Compress("x"))
	assert.Equal(t, "d", s.Compress("y"))
	assert.Equal(t, "a", s.Compress("c"))
}

func TestCompressReserve(t *testing.T) {
	s := New(nil)
	s.Reserve("x", "a", "b")

	assert.Equal(t, "c", s.Compress("x"))
	assert.Equal(t, "d", s.Compress("a"))
	assert.Equal(t, "e", s.Compress("b"))
	assert.Equal(t, "c", s.Compress("c"), "generated names map to themselves")

	assert.Equal(t, map[string]string{
		"x": "c", "a": "d", "b": "e",
		"c": "c", "d": "d", "e": "e",
	}, s.Mapping())
}

func TestCompressReserveKeepsExistingNames(t *testing.T) {
	s := New(nil)
	assert.Equal(t, "a", s.Compress("p-2"))

	s.Reserve("p-2", "a", "b")
	assert.Equal(t, "a", s.Compress("p-2"))
	assert.Equal(t, "a", s.Compress("a"))
	assert.Equal(t, "c", s.Compress("m-2"))
}

func TestCompressInjectiveWithShortClasses(t *testing.T) {
	tokens := []string{"x", "a", "b", "aa", "c", "y", "d", "z"}
	s := New(nil)
	s.Reserve(tokens...)

	byName := make(map[string]string)
	for _, token := range tokens {
		name := s.Compress(token)
		if other, dup := byName[name]; dup {
			t.Fatalf("%q and %q share name %q", other, token, name)
		}
		byName[name] = token
	}
}

func TestCompressSafelist(t *testing.T) {
	list, err := safelist.New([]string{"js-hook", "b"}, []string{`^icon-`})
	require.NoError(t, err)
	s := New(list)

	assert.Equal(t, "js-hook", s.Compress("js-hook"))
	assert.Equal(t, "icon-close", s.Compress("icon-close"))
	assert.Equal(t, "a", s.Compress("p-2"))
	assert.Equal(t, "c", s.Compress("m-2"), "safelisted names are never generated")
	assert.Equal(t, "b", s.Compress("b"))
}

func TestCompressInjective(t *testing.T) {
	s := New(nil)

	byName := make(map[string]string)
	for i := 0; i < 500; i++ {
		token := fmt.Sprintf("u-%d", i)
		name := s.Compress(token)
		if other, dup := byName[name]; dup {
			t.Fatalf("%q and %q share name %q", other, token, name)
		}
		byName[name] = token
		assert.Equal(t, name, s.Compress(name))
	}
}

func TestCompressDeterministic(t *testing.T) {
	tokens := []string{"flex", "p-2", "hover:bg-red", "components@card", "p-2", "m-0"}

	run := func() []string {
		s := New(nil)
		out := make([]string, len(tokens))
		for i, tok := range tokens {
			out[i] = s.Compress(tok)
		}
		return out
	}

	assert.Equal(t, run(), run())
	assert.Equal(t, []string{"a", "b", "c", "d", "b", "e"}, run())
}

func TestCompressConcurrent(t *testing.T) {
	s := New(nil)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Compress(fmt.Sprintf("t-%d", i))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 101, s.Counter(), "one reserved name skipped")
	assert.Equal(t, 200, s.Len())
}
