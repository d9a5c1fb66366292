// Package watch rebuilds on changes to schema files.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/schemamerge/internal/loader"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 100 * time.Millisecond

// RebuildFunc is called with the changed paths once a burst of changes settles.
// Errors are logged and watching continues.
type RebuildFunc func(ctx context.Context, changed []string) error

// Options configures Watch.
type Options struct {
	Debounce  time.Duration
	Recursive bool
	// Exclude holds loader exclude patterns; matching files and
	// directories never trigger a rebuild.
	Exclude []string
	// Logger receives watcher logs. Nil discards.
	Logger *slog.Logger
}

// Watch watches dir for .sql changes and calls rebuild after each debounced
// burst. It blocks until ctx is cancelled, then returns nil.
func Watch(ctx context.Context, dir string, opts Options, rebuild RebuildFunc) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	skip := func(path string) bool { return loader.Excluded(opts.Exclude, dir, path) }

	if err := addDirs(watcher, dir, opts.Recursive, skip); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logger.Info("watching for changes", "dir", dir, "debounce", debounce)

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]struct{})
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if skip(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) && opts.Recursive && isDir(event.Name) {
				if err := addDirs(watcher, event.Name, true, skip); err != nil {
					logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
				}
				continue
			}
			if !Relevant(event) {
				continue
			}

			logger.Debug("change detected", "file", event.Name, "op", event.Op.String())
			pending[event.Name] = struct{}{}

			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			sort.Strings(changed)
			pending = make(map[string]struct{})

			if err := rebuild(ctx, changed); err != nil {
				logger.Error("rebuild failed", "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

// Relevant reports whether event touches a non-hidden .sql file.
func Relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".sql")
}

// addDirs adds dir, and its non-hidden, non-skipped subdirectories when
// recursive, to the watcher.
func addDirs(watcher *fsnotify.Watcher, dir string, recursive bool, skip func(string) bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != dir {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && (!recursive || strings.HasPrefix(d.Name(), ".") || skip(path)) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
