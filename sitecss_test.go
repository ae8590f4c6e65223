package sitecss

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return root
}

func projectConfig(root string) Config {
	config := DefaultConfig()
	config.PagesDir = filepath.Join(root, "src", "pages")
	config.OutDir = filepath.Join(root, "dist")
	config.MacroFile = filepath.Join(root, "macros.css")
	config.UtilitiesFile = filepath.Join(root, "utilities.css")
	config.RootDir = root
	return config
}

var testProject = map[string]string{
	"macros.css":    `btn { @apply px-4 bg-blue; }`,
	"utilities.css": `.px-4{padding:1rem}.bg-blue{background:blue}.js-menu{display:none}.unused{color:red}`,
	"src/pages/index.html": `<html><head><style data-sitecss-classes=""></style></head>` +
		`<body><nav class="js-menu btn">x</nav></body></html>`,
}

func TestBuild(t *testing.T) {
	root := writeProject(t, testProject)
	config := projectConfig(root)
	config.SafelistClasses = []string{"js-menu"}

	report, err := Build(context.Background(), config)
	require.NoError(t, err)
	require.Len(t, report.Pages, 1)

	out, err := os.ReadFile(filepath.Join(config.OutDir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, `<html><head><style>.a{padding:1rem}.b{background:blue}.js-menu{display:none}</style></head>`+
		`<body><nav class="js-menu a b">x</nav></body></html>`, string(out))
}

func TestBuildKeepExpanded(t *testing.T) {
	root := writeProject(t, testProject)
	config := projectConfig(root)
	config.KeepExpanded = true

	_, err := Build(context.Background(), config)
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(config.OutDir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(out), `class="js-menu px-4 bg-blue"`)
}

func TestBuildInvalidSafelistPattern(t *testing.T) {
	root := writeProject(t, testProject)
	config := projectConfig(root)
	config.SafelistPatterns = []string{"("}

	_, err := Build(context.Background(), config)
	assert.ErrorContains(t, err, "safelist pattern")
}

func TestBuildWithGenerator(t *testing.T) {
	root := writeProject(t, testProject)
	config := projectConfig(root)
	config.UtilitiesFile = ""
	config.Generator = generatorFunc(func(_ context.Context, classes []string) (string, error) {
		css := ""
		for _, c := range classes {
			css += "." + c + "{--g:1}"
		}
		return css, nil
	})

	_, err := Build(context.Background(), config)
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(config.OutDir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(out), `<style>.a{--g:1}.b{--g:1}.c{--g:1}</style>`)
}

type generatorFunc func(ctx context.Context, classes []string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, classes []string) (string, error) {
	return f(ctx, classes)
}

func TestExplain(t *testing.T) {
	root := writeProject(t, testProject)
	config := projectConfig(root)

	e, err := Explain(config, []string{"btn md:btn", "bg-blu"})
	require.NoError(t, err)

	assert.Equal(t, 1, e.Macros)
	require.Len(t, e.Classes, 3)

	assert.Equal(t, ClassExplanation{Class: "btn", Macro: true, Expansion: []string{"px-4", "bg-blue"}}, e.Classes[0])

	assert.True(t, e.Classes[1].Macro)
	assert.Equal(t, []string{"md:px-4", "md:bg-blue"}, e.Classes[1].Expansion)
	assert.Len(t, e.Classes[1].Unknown, 2)

	assert.False(t, e.Classes[2].Macro)
	assert.Equal(t, []UnknownToken{{Token: "bg-blu", Suggestions: []string{"bg-blue"}}}, e.Classes[2].Unknown)
}

func TestExplainWithoutUtilities(t *testing.T) {
	root := writeProject(t, testProject)
	config := projectConfig(root)
	config.UtilitiesFile = ""

	e, err := Explain(config, []string{"anything"})
	require.NoError(t, err)
	assert.Equal(t, []ClassExplanation{{Class: "anything", Expansion: []string{"anything"}}}, e.Classes)
}

func TestSuggest(t *testing.T) {
	candidates := []string{"btn", "bg-blue", "bg-blue-600", "text-white", "bg-red"}

	tests := []struct {
		token string
		want  []string
	}{
		{token: "bg-blu", want: []string{"bg-blue"}},
		{token: "bg-rde", want: []string{"bg-red"}},
		{token: "btm", want: []string{"btn"}},
		{token: "completely-different", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, suggest(tt.token, candidates))
		})
	}
}

func TestResetDir(t *testing.T) {
	root := writeProject(t, map[string]string{
		"dist/stale.html":  "old",
		"src/pages/a.html": "page",
	})

	require.NoError(t, resetDir(filepath.Join(root, "dist"), filepath.Join(root, "src", "pages")))
	assert.NoFileExists(t, filepath.Join(root, "dist", "stale.html"))
	assert.DirExists(t, filepath.Join(root, "dist"))

	err := resetDir(root, filepath.Join(root, "src", "pages"))
	assert.ErrorContains(t, err, "contains the pages directory")
	assert.FileExists(t, filepath.Join(root, "src", "pages", "a.html"))
}

func TestServeRequiresOutput(t *testing.T) {
	config := DefaultConfig()
	config.OutDir = filepath.Join(t.TempDir(), "missing")

	err := Serve(context.Background(), config)
	assert.ErrorContains(t, err, "output directory")
}
