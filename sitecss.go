// Package sitecss builds static sites whose pages reference utility classes
// and class macros, emitting per-page stylesheets with compressed class names.
//
// Each page opts in with a style marker:
//
//	<style data-sitecss-classes="btn card"></style>
//
// or a literal @import "sitecss"; inside an existing stylesheet. The build
// expands macros, generates the CSS those classes need, purges rules the page
// never uses and rewrites class names to short ones consistently across the
// site.
//
// # Building
//
//	config := sitecss.DefaultConfig()
//	config.MacroFile = "styles/macros.css"
//	config.UtilitiesFile = "styles/utilities.css"
//	report, err := sitecss.Build(ctx, config)
//
// # Development
//
// Dev rebuilds on every change and serves the output with a live-reload
// status channel:
//
//	err := sitecss.Dev(ctx, config)
//
// # CLI Tool
//
//	go install github.com/yacobolo/sitecss/cmd/sitecss@latest
package sitecss

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yacobolo/sitecss/internal/build"
	"github.com/yacobolo/sitecss/internal/page"
	"github.com/yacobolo/sitecss/internal/safelist"
	"github.com/yacobolo/sitecss/internal/server"
	"github.com/yacobolo/sitecss/internal/status"
	"github.com/yacobolo/sitecss/internal/stylesheet"
)

// Generator produces the CSS rules for a set of utility classes
type Generator interface {
	Generate(ctx context.Context, classes []string) (string, error)
}

// Report summarizes a successful build
type Report = build.Report

// PageReport describes one written page
type PageReport = build.PageReport

// PageStats are the per-page pipeline counters
type PageStats = page.Stats

// Config configures builds, the development loop and the server
type Config struct {
	PagesDir      string    // Source pages
	OutDir        string    // Built site
	Patterns      []string  // Page globs relative to PagesDir
	MacroFile     string    // Optional macro source
	UtilitiesFile string    // Utilities stylesheet
	Generator     Generator // Overrides UtilitiesFile
	ImportDirs    []string  // Stylesheet import search path; defaults to PagesDir

	SafelistClasses  []string // Class names never purged or compressed
	SafelistPatterns []string // Regular expressions with the same effect

	Purge        bool // Drop rules whose classes a page never uses
	KeepExpanded bool // Skip purge and compression; pages keep expanded class names

	Addr     string // Server listen address
	CertFile string // Serve HTTPS when set together with KeyFile
	KeyFile  string

	RootDir string // Replaced by $ROOT in reported errors
	Logger  *slog.Logger
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		PagesDir: "src/pages",
		OutDir:   "dist",
		Patterns: build.DefaultPatterns,
		Purge:    true,
		Addr:     server.DefaultAddr,
	}
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) builderOptions(development bool, broadcaster *status.Broadcaster) (build.Options, error) {
	sl, err := safelist.New(c.SafelistClasses, c.SafelistPatterns)
	if err != nil {
		return build.Options{}, err
	}

	opts := build.Options{
		PagesDir:      c.PagesDir,
		OutDir:        c.OutDir,
		Patterns:      c.Patterns,
		MacroFile:     c.MacroFile,
		UtilitiesFile: c.UtilitiesFile,
		ImportDirs:    c.ImportDirs,
		Safelist:      sl,
		Purge:         c.Purge,
		KeepExpanded:  c.KeepExpanded,
		Development:   development,
		Broadcaster:   broadcaster,
		Logger:        c.logger(),
		RootDir:       c.RootDir,
	}
	if c.Generator != nil {
		opts.Generator = stylesheet.Generator(c.Generator)
	}
	return opts, nil
}

func (c Config) serverOptions(broadcaster *status.Broadcaster) server.Options {
	return server.Options{
		Addr:        c.Addr,
		Root:        c.OutDir,
		Broadcaster: broadcaster,
		Logger:      c.logger(),
		CertFile:    c.CertFile,
		KeyFile:     c.KeyFile,
	}
}

// Build runs one production build. Nothing is written unless every page
// succeeds.
func Build(ctx context.Context, config Config) (*Report, error) {
	opts, err := config.builderOptions(false, nil)
	if err != nil {
		return nil, err
	}

	b, err := build.New(opts)
	if err != nil {
		return nil, err
	}
	return b.Build(ctx)
}

// Dev clears the output directory, then watches and rebuilds the site while
// serving it with the status channel until ctx ends. Build failures are
// reported to connected browsers and do not stop the loop.
func Dev(ctx context.Context, config Config) error {
	broadcaster := status.New()

	opts, err := config.builderOptions(true, broadcaster)
	if err != nil {
		return err
	}
	b, err := build.New(opts)
	if err != nil {
		return err
	}
	srv, err := server.New(config.serverOptions(broadcaster))
	if err != nil {
		return err
	}

	if err := resetDir(config.OutDir, config.PagesDir); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Watch(ctx)
	})
	g.Go(func() error {
		return srv.Run(ctx)
	})
	return g.Wait()
}

// Serve serves the output directory until ctx ends
func Serve(ctx context.Context, config Config) error {
	if _, err := os.Stat(config.OutDir); err != nil {
		return fmt.Errorf("output directory: %w", err)
	}

	srv, err := server.New(config.serverOptions(nil))
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// resetDir empties dir, creating it when missing. A dir holding the pages
// is refused.
func resetDir(dir, pages string) error {
	if dir == "" {
		return errors.New("output directory is required")
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	absPages, err := filepath.Abs(pages)
	if err != nil {
		return err
	}
	if rel, err := filepath.Rel(absDir, absPages); err == nil && !strings.HasPrefix(rel, "..") {
		return fmt.Errorf("output directory %s contains the pages directory", dir)
	}
	if err := os.RemoveAll(filepath.Clean(dir)); err != nil {
		return fmt.Errorf("clear output directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}
