package stylesheet

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MaxImportDepth bounds nested @import resolution
const MaxImportDepth = 16

// ErrImportNotFound is returned by loaders for unknown import ids. It never
// fails a build; the import is replaced by a marker comment.
var ErrImportNotFound = errors.New("import not found")

// ImportLoader returns the content of an imported stylesheet
type ImportLoader interface {
	Load(ctx context.Context, id string) (string, error)
}

// ImportLoaderFunc adapts a function to ImportLoader
type ImportLoaderFunc func(ctx context.Context, id string) (string, error)

func (f ImportLoaderFunc) Load(ctx context.Context, id string) (string, error) {
	return f(ctx, id)
}

type importResolver struct {
	loader ImportLoader
	seen   map[string]bool
}

// FinalizeImports inlines top-level @import statements recursively. An id is
// inlined once; later imports of it are dropped. External URLs and imports
// with media or layer conditions stay as written.
func FinalizeImports(ctx context.Context, css string, loader ImportLoader) (string, error) {
	r := &importResolver{loader: loader, seen: make(map[string]bool)}
	return r.resolve(ctx, css, 0)
}

func (r *importResolver) resolve(ctx context.Context, css string, depth int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if depth > MaxImportDepth {
		return "", fmt.Errorf("imports nested deeper than %d", MaxImportDepth)
	}

	nodes, err := Parse(css)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, n := range nodes {
		id, ok := importTarget(n)
		if !ok {
			writeNode(&b, n)
			continue
		}
		if r.seen[id] {
			continue
		}
		r.seen[id] = true

		content, err := r.loader.Load(ctx, id)
		if errors.Is(err, ErrImportNotFound) {
			fmt.Fprintf(&b, "/* sitecss: import %q not found */", id)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("load import %q: %w", id, err)
		}

		inlined, err := r.resolve(ctx, content, depth+1)
		if err != nil {
			return "", fmt.Errorf("import %q: %w", id, err)
		}
		b.WriteString(inlined)
	}

	return b.String(), nil
}

// importTarget extracts the id of an inlinable @import statement
func importTarget(n *Node) (string, bool) {
	if n.Kind != Statement || len(n.Raw) < len("@import") || !strings.EqualFold(n.Raw[:len("@import")], "@import") {
		return "", false
	}

	rest := strings.TrimSpace(strings.TrimSuffix(n.Raw[len("@import"):], ";"))
	var id, tail string

	switch {
	case rest == "":
		return "", false
	case rest[0] == '"' || rest[0] == '\'':
		end := strings.IndexByte(rest[1:], rest[0])
		if end < 0 {
			return "", false
		}
		id, tail = rest[1:end+1], rest[end+2:]
	case len(rest) > 4 && strings.EqualFold(rest[:4], "url("):
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return "", false
		}
		id = strings.Trim(strings.TrimSpace(rest[4:end]), `"'`)
		tail = rest[end+1:]
	default:
		return "", false
	}

	if id == "" || strings.TrimSpace(tail) != "" || isExternal(id) {
		return "", false
	}
	return id, true
}

func isExternal(id string) bool {
	return strings.Contains(id, "://") || strings.HasPrefix(id, "//") || strings.HasPrefix(id, "data:")
}

// DirLoader resolves import ids against a list of directories, in order.
// An id without extension also matches "<id>.css".
type DirLoader struct {
	Dirs []string
}

func (l DirLoader) Load(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := filepath.Clean(filepath.FromSlash(id))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrImportNotFound, id)
	}

	candidates := []string{clean}
	if filepath.Ext(clean) == "" {
		candidates = append(candidates, clean+".css")
	}

	for _, dir := range l.Dirs {
		for _, c := range candidates {
			// #nosec G304 - confined to configured import directories
			content, err := os.ReadFile(filepath.Join(dir, c))
			if err == nil {
				return string(content), nil
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("read import: %w", err)
			}
		}
	}

	return "", fmt.Errorf("%w: %s", ErrImportNotFound, id)
}
