package build

import (
	"strings"
)

const errorIndent = "  "

// SerializeError formats a build error for display in the browser: lines
// after the first are indented and root is replaced by $ROOT
func SerializeError(err error, root string) string {
	if err == nil {
		return ""
	}

	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "" {
			lines[i] = errorIndent + lines[i]
		}
	}

	out := strings.Join(lines, "\n")
	if root != "" && root != "/" {
		out = strings.ReplaceAll(out, root, "$ROOT")
	}
	return out
}
