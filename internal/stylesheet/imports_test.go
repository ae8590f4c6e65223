package stylesheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLoader(files map[string]string) ImportLoader {
	return ImportLoaderFunc(func(_ context.Context, id string) (string, error) {
		content, ok := files[id]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrImportNotFound, id)
		}
		return content, nil
	})
}

func TestFinalizeImports(t *testing.T) {
	loader := mapLoader(map[string]string{
		"reset":    `.r{x:y}`,
		"base.css": `@import "reset";.b{x:y}`,
		"a":        `@import "b";.a{x:y}`,
		"b":        `@import "a";.b{x:y}`,
	})

	tests := []struct {
		name string
		css  string
		want string
	}{
		{
			name: "nested imports are inlined once",
			css:  `@import "base.css";@import url(reset);.p{a:b}`,
			want: `.r{x:y}.b{x:y}.p{a:b}`,
		},
		{
			name: "missing import becomes a marker comment",
			css:  `@import 'missing';.p{a:b}`,
			want: `/* sitecss: import "missing" not found */.p{a:b}`,
		},
		{
			name: "external and conditional imports stay",
			css:  `@import "https://fonts.example.com/inter.css";@import "print.css" print;`,
			want: `@import "https://fonts.example.com/inter.css";@import "print.css" print;`,
		},
		{
			name: "cyclic imports terminate",
			css:  `@import "a";`,
			want: `.b{x:y}.a{x:y}`,
		},
		{
			name: "nested rules keep their imports untouched",
			css:  `@media print{.p{a:b}}`,
			want: `@media print{.p{a:b}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FinalizeImports(context.Background(), tt.css, loader)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFinalizeImportsDepth(t *testing.T) {
	loader := ImportLoaderFunc(func(_ context.Context, id string) (string, error) {
		var n int
		_, err := fmt.Sscanf(id, "level-%d", &n)
		require.NoError(t, err)
		return fmt.Sprintf(`@import "level-%d";`, n+1), nil
	})

	_, err := FinalizeImports(context.Background(), `@import "level-0";`, loader)
	assert.ErrorContains(t, err, "imports nested deeper than 16")
}

func TestFinalizeImportsLoaderError(t *testing.T) {
	boom := errors.New("boom")
	loader := ImportLoaderFunc(func(context.Context, string) (string, error) {
		return "", boom
	})

	_, err := FinalizeImports(context.Background(), `@import "x";`, loader)
	assert.ErrorIs(t, err, boom)
}

func TestFinalizeImportsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FinalizeImports(ctx, `.a{}`, mapLoader(nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDirLoader(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(second, "vendor"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(second, "vendor", "reset.css"), []byte(".r{}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(first, "theme.css"), []byte(".t{}"), 0o600))

	loader := DirLoader{Dirs: []string{first, second}}
	ctx := context.Background()

	got, err := loader.Load(ctx, "vendor/reset")
	require.NoError(t, err)
	assert.Equal(t, ".r{}", got)

	got, err = loader.Load(ctx, "theme.css")
	require.NoError(t, err)
	assert.Equal(t, ".t{}", got)

	for _, id := range []string{"nope", "../theme.css", "/etc/passwd"} {
		_, err = loader.Load(ctx, id)
		assert.ErrorIs(t, err, ErrImportNotFound, id)
	}
}
