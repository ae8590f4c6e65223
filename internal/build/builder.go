// Package build runs the page pipeline over a site: discovery, macro
// expansion, stylesheet assembly, compression and all-or-nothing output.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yacobolo/sitecss/internal/compress"
	"github.com/yacobolo/sitecss/internal/macro"
	"github.com/yacobolo/sitecss/internal/page"
	"github.com/yacobolo/sitecss/internal/safelist"
	"github.com/yacobolo/sitecss/internal/status"
	"github.com/yacobolo/sitecss/internal/stylesheet"
)

// FailureMessage is the payload message of a failed build
const FailureMessage = "Building failed"

// Options configures a Builder
type Options struct {
	PagesDir      string
	OutDir        string
	Patterns      []string             // Page globs relative to PagesDir
	MacroFile     string               // Optional macro source
	UtilitiesFile string               // Utilities stylesheet, unless Generator is set
	Generator     stylesheet.Generator // Overrides UtilitiesFile
	ImportDirs    []string             // Import search path; defaults to PagesDir
	Safelist      *safelist.Safelist
	Purge         bool
	KeepExpanded  bool
	Development   bool                // Persist compression state and inject the live-reload client
	Broadcaster   *status.Broadcaster // Optional
	Logger        *slog.Logger
	RootDir       string // Replaced by $ROOT in reported errors; defaults to the working directory
	Debounce      time.Duration
}

// PageReport describes one written page
type PageReport struct {
	Path   string     `json:"path"`
	Marker bool       `json:"marker"`
	Stats  page.Stats `json:"stats"`
}

// Report summarizes a successful build
type Report struct {
	Pages     []PageReport  `json:"pages"`
	Discovery DiscoverStats `json:"discovery"`
	Names     int           `json:"names"` // Compressed names in the build context
	Duration  time.Duration `json:"duration"`
}

// Builder owns one build context. Builds must not run concurrently; Watch
// runs them one at a time.
type Builder struct {
	opts   Options
	logger *slog.Logger

	table     *macro.Table
	macroStat fileStamp
	rules     *stylesheet.RuleSet
	rulesStat fileStamp
	state     *compress.State // Persisted in development
}

// fileStamp detects changes to a loaded file
type fileStamp struct {
	modTime time.Time
	size    int64
}

// New validates options and creates a Builder
func New(opts Options) (*Builder, error) {
	if opts.PagesDir == "" {
		return nil, errors.New("pages directory is required")
	}
	if opts.OutDir == "" {
		return nil, errors.New("output directory is required")
	}
	if opts.Generator == nil && opts.UtilitiesFile == "" {
		return nil, errors.New("a utilities stylesheet or generator is required")
	}
	if sameDir(opts.PagesDir, opts.OutDir) {
		return nil, errors.New("output directory must differ from the pages directory")
	}
	if len(opts.Patterns) == 0 {
		opts.Patterns = DefaultPatterns
	}
	if len(opts.ImportDirs) == 0 {
		opts.ImportDirs = []string{opts.PagesDir}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 10 * time.Millisecond
	}
	if opts.RootDir == "" {
		if wd, err := os.Getwd(); err == nil {
			opts.RootDir = wd
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Builder{opts: opts, logger: logger}, nil
}

// Build runs the pipeline once and reports the outcome to the broadcaster.
// Nothing is written unless every page succeeds.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	b.notify(status.Pending, nil)
	start := time.Now()

	report, err := b.build(ctx)
	if err != nil {
		b.logger.Error("build failed", "error", err)
		b.notify(status.Failed, &status.Payload{
			Message: FailureMessage,
			Error:   SerializeError(err, b.opts.RootDir),
		})
		return nil, err
	}

	report.Duration = time.Since(start)
	b.logger.Info("build succeeded",
		"pages", len(report.Pages),
		"names", report.Names,
		"duration", report.Duration)
	b.notify(status.Success, nil)
	return report, nil
}

func (b *Builder) build(ctx context.Context) (*Report, error) {
	table, err := b.loadTable()
	if err != nil {
		return nil, err
	}
	generator, err := b.loadGenerator()
	if err != nil {
		return nil, err
	}

	state := b.state
	if state == nil || !b.opts.Development {
		state = compress.New(b.opts.Safelist)
	}
	if b.opts.Development {
		b.state = state
	}

	rewriter := &page.Rewriter{
		Expander: table,
		Assembler: &stylesheet.Assembler{
			Generator: generator,
			Loader:    stylesheet.DirLoader{Dirs: b.opts.ImportDirs},
		},
		State:        state,
		Purge:        b.opts.Purge,
		KeepExpanded: b.opts.KeepExpanded,
	}
	if b.opts.Safelist != nil {
		rewriter.Safelist = b.opts.Safelist
	}

	files, discovery, err := Discover(b.opts.PagesDir, b.opts.Patterns)
	if err != nil {
		return nil, fmt.Errorf("discover pages: %w", err)
	}
	files = b.withoutOutput(files)

	outputs := make(map[string]string, len(files))
	report := &Report{Discovery: discovery}

	contents := make([]string, len(files))
	for i, rel := range files {
		// #nosec G304 - page paths come from discovery under PagesDir
		content, err := os.ReadFile(filepath.Join(b.opts.PagesDir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("read page: %w", err)
		}
		contents[i] = string(content)

		if err := rewriter.Reserve(contents[i]); err != nil {
			return nil, fmt.Errorf("%s: %w", rel, err)
		}
	}

	for i, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := rewriter.Process(ctx, contents[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rel, err)
		}

		out := res.HTML
		if b.opts.Development {
			out = InjectHotReload(out)
		}
		outputs[rel] = out
		report.Pages = append(report.Pages, PageReport{Path: rel, Marker: res.Marker, Stats: res.Stats})
		b.logger.Debug("page processed", "page", rel, "classes", res.Stats.ExpandedClasses, "css_bytes", res.Stats.CSSBytes)
	}

	if b.opts.Development {
		outputs[StatusPage] = statusPageSource
	}

	if err := b.write(files, outputs); err != nil {
		return nil, err
	}

	report.Names = state.Counter()
	return report, nil
}

// write stores every output under OutDir
func (b *Builder) write(files []string, outputs map[string]string) error {
	paths := append([]string(nil), files...)
	if _, ok := outputs[StatusPage]; ok {
		paths = append(paths, StatusPage)
	}

	for _, rel := range paths {
		dest := filepath.Join(b.opts.OutDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		if err := os.WriteFile(dest, []byte(outputs[rel]), 0o600); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
	}
	return nil
}

// loadTable returns the macro table, reloading it when its file changed
func (b *Builder) loadTable() (*macro.Table, error) {
	if b.opts.MacroFile == "" {
		if b.table == nil {
			b.table = macro.Empty()
		}
		return b.table, nil
	}

	stamp, err := stampOf(b.opts.MacroFile)
	if err != nil {
		return nil, fmt.Errorf("macro source: %w", err)
	}
	if b.table != nil && stamp.same(b.macroStat) {
		return b.table, nil
	}

	table, err := macro.Load(b.opts.MacroFile)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("macro source loaded", "file", b.opts.MacroFile, "macros", table.Len())
	b.table, b.macroStat = table, stamp
	return table, nil
}

// loadGenerator returns the configured generator or the utilities rule
// set, reloading it when its file changed
func (b *Builder) loadGenerator() (stylesheet.Generator, error) {
	if b.opts.Generator != nil {
		return b.opts.Generator, nil
	}

	stamp, err := stampOf(b.opts.UtilitiesFile)
	if err != nil {
		return nil, fmt.Errorf("utilities stylesheet: %w", err)
	}
	if b.rules != nil && stamp.same(b.rulesStat) {
		return b.rules, nil
	}

	rules, err := stylesheet.LoadRuleSet(b.opts.UtilitiesFile)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("utilities loaded", "file", b.opts.UtilitiesFile, "rules", rules.Len())
	b.rules, b.rulesStat = rules, stamp
	return rules, nil
}

// withoutOutput drops pages that live inside the output directory
func (b *Builder) withoutOutput(files []string) []string {
	rel, ok := b.outputWithinPages()
	if !ok {
		return files
	}

	kept := files[:0]
	for _, f := range files {
		if f != rel && !strings.HasPrefix(f, rel+"/") {
			kept = append(kept, f)
		}
	}
	return kept
}

// outputWithinPages returns OutDir relative to PagesDir when it is nested
func (b *Builder) outputWithinPages() (string, bool) {
	pages, err := filepath.Abs(b.opts.PagesDir)
	if err != nil {
		return "", false
	}
	out, err := filepath.Abs(b.opts.OutDir)
	if err != nil {
		return "", false
	}

	rel, err := filepath.Rel(pages, out)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (b *Builder) notify(st status.Status, payload *status.Payload) {
	if b.opts.Broadcaster != nil {
		b.opts.Broadcaster.Notify(st, payload)
	}
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func (s fileStamp) same(o fileStamp) bool {
	return s.size == o.size && s.modTime.Equal(o.modTime)
}

func stampOf(path string) (fileStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{modTime: info.ModTime(), size: info.Size()}, nil
}
