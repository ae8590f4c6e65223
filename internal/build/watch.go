package build

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

var skipDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
}

// Watch builds once, then rebuilds whenever pages, the macro source or the
// utilities stylesheet change. Changes within the debounce window, and those
// arriving while a build runs, are coalesced into one follow-up build.
// Build failures are reported and logged; Watch returns when ctx ends.
func (b *Builder) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := b.watchDirs(watcher, b.opts.PagesDir); err != nil {
		return err
	}
	for _, file := range []string{b.opts.MacroFile, b.opts.UtilitiesFile} {
		if file == "" {
			continue
		}
		if err := watcher.Add(filepath.Dir(file)); err != nil {
			return fmt.Errorf("watch %s: %w", file, err)
		}
	}

	_, _ = b.Build(ctx)

	timer := time.NewTimer(b.opts.Debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isWatchEvent(event.Op) || !b.relevant(event.Name) {
				continue
			}
			if shouldAddWatchDir(event) {
				if err := b.watchDirs(watcher, event.Name); err != nil {
					b.logger.Warn("watch new directory", "dir", event.Name, "error", err)
				}
			}
			b.logger.Debug("change detected", "file", event.Name, "op", event.Op.String())
			timer.Reset(b.opts.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			_, _ = b.Build(ctx)
		}
	}
}

// watchDirs adds root and its subdirectories, skipping the output directory
func (b *Builder) watchDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			b.logger.Warn("walk watch directory", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if _, skip := skipDirs[d.Name()]; skip || b.isOutput(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// relevant reports whether a change affects the build
func (b *Builder) relevant(name string) bool {
	if b.isOutput(name) {
		return false
	}
	for _, file := range []string{b.opts.MacroFile, b.opts.UtilitiesFile} {
		if file != "" && filepath.Clean(name) == filepath.Clean(file) {
			return true
		}
	}
	return within(b.opts.PagesDir, name)
}

func (b *Builder) isOutput(path string) bool {
	return within(b.opts.OutDir, path)
}

// within reports whether path is dir or below it
func within(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isWatchEvent(op fsnotify.Op) bool {
	return op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

func shouldAddWatchDir(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) {
		return false
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return false
	}
	_, skip := skipDirs[info.Name()]
	return info.IsDir() && !skip
}
