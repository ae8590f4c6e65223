package build

import (
	_ "embed"
	"strings"
)

// StatusPage is the file written to the output directory in development.
// It shows the build status and reloads once a build succeeds.
const StatusPage = "__status.html"

//go:embed assets/hot-reload.js
var hotReloadScript string

//go:embed assets/status.html
var statusPageSource string

// InjectHotReload inserts the live-reload client before the last </body>,
// or appends it when the page has no body end tag
func InjectHotReload(doc string) string {
	script := `<script type="text/javascript">` + hotReloadScript + `</script>`

	i := strings.LastIndex(doc, "</body>")
	if i < 0 {
		return doc + script
	}
	return doc[:i] + script + doc[i:]
}
