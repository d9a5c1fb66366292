// Package loader discovers schema fragment files on disk and extracts their
// statements.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/schemamerge/pkg/core"
	"github.com/leapstack-labs/schemamerge/pkg/ddl"
)

// ErrNoFiles is returned when a directory holds no .sql files.
var ErrNoFiles = errors.New("no .sql files found")

// Options configures discovery and extraction.
type Options struct {
	// Extract holds dialect and default schema for pkg/ddl
	Extract ddl.Options
	// Exclude holds glob patterns matched against base names and
	// slash-separated paths relative to the input directory
	Exclude []string
	// Recursive descends into subdirectories
	Recursive bool
	// Logger receives per-file debug logs. Nil discards.
	Logger *slog.Logger
}

// File is one loaded schema file.
type File struct {
	// Path is relative to the input directory, slash-separated
	Path        string
	Frontmatter *Frontmatter
	Statements  []core.Statement
	// Skipped lists statements of kinds the merger does not order
	Skipped []ddl.Skipped
}

// Result holds every loaded file and the statements of non-skipped files.
type Result struct {
	Files      []File
	Statements []core.Statement
}

// Discover returns the .sql files under dir in lexical order.
// Hidden files and directories are skipped.
func Discover(dir string, opts Options) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}

		rel := relPath(dir, path)
		hidden := strings.HasPrefix(d.Name(), ".")

		if d.IsDir() {
			if hidden || !opts.Recursive || excluded(opts.Exclude, d.Name(), rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if hidden || !strings.EqualFold(filepath.Ext(d.Name()), ".sql") {
			return nil
		}
		if excluded(opts.Exclude, d.Name(), rel) {
			return nil
		}

		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Excluded reports whether path, or any directory between dir and path,
// matches one of the exclude patterns the way Discover applies them.
func Excluded(patterns []string, dir, path string) bool {
	if len(patterns) == 0 {
		return false
	}
	rel := relPath(dir, path)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return false
	}
	parts := strings.Split(rel, "/")
	for i := range parts {
		if excluded(patterns, parts[i], strings.Join(parts[:i+1], "/")) {
			return true
		}
	}
	return false
}

func excluded(patterns []string, name, rel string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func relPath(dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Load discovers the files under dir and extracts their statements
// concurrently. Statements are returned grouped by file in path order,
// with dependency types resolved against the whole set.
func Load(ctx context.Context, dir string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	paths, err := Discover(dir, opts)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, dir)
	}

	files := make([]File, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := LoadFile(path, relPath(dir, path), opts.Extract)
			if err != nil {
				return err
			}
			logger.Debug("loaded schema file",
				"file", f.Path,
				"statements", len(f.Statements),
				"skip", f.Frontmatter.Skip)
			if len(f.Skipped) > 0 {
				logger.Warn("skipped unsupported statements",
					"file", f.Path,
					"count", len(f.Skipped),
					"kinds", skippedKinds(f.Skipped))
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Files: files}
	skipped := 0
	for _, f := range files {
		if f.Frontmatter.Skip {
			continue
		}
		result.Statements = append(result.Statements, f.Statements...)
		skipped += len(f.Skipped)
	}
	result.Statements = ddl.ResolveDependencyTypes(result.Statements)

	logger.Info("loaded schema",
		"dir", dir,
		"files", len(files),
		"statements", len(result.Statements),
		"skipped", skipped)

	return result, nil
}

// LoadFile reads one file and extracts its statements. name is recorded as
// each statement's SourceFile.
func LoadFile(path, name string, opts ddl.Options) (File, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from Discover
	if err != nil {
		return File{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return Parse(string(content), name, opts)
}

// Parse extracts the statements of one file's content.
func Parse(content, name string, opts ddl.Options) (File, error) {
	fm, err := ExtractFrontmatter(content)
	if err != nil {
		return File{}, withFile(err, name)
	}

	f := File{Path: name, Frontmatter: fm.Config}
	if fm.Config.Skip {
		return f, nil
	}

	stmts, skipped, err := ddl.ExtractWithSkipped(fm.SQL, name, opts)
	if err != nil {
		return File{}, err
	}
	f.Skipped = skipped

	if len(fm.Config.DependsOn) > 0 {
		extra := make([]string, len(fm.Config.DependsOn))
		for i, d := range fm.Config.DependsOn {
			extra[i] = ddl.NormalizeName(d, opts)
		}
		for i := range stmts {
			stmts[i].DependsOn = addDependencies(stmts[i], extra)
		}
	}

	f.Statements = stmts
	return f, nil
}

// skippedKinds joins the distinct kinds in first-seen order.
func skippedKinds(skipped []ddl.Skipped) string {
	var kinds []string
	seen := make(map[string]bool)
	for _, s := range skipped {
		if !seen[s.Kind] {
			seen[s.Kind] = true
			kinds = append(kinds, s.Kind)
		}
	}
	return strings.Join(kinds, ", ")
}

func addDependencies(st core.Statement, names []string) []core.Dependency {
	deps := st.DependsOn
	for _, name := range names {
		if name == st.Name || hasDependency(deps, name) {
			continue
		}
		deps = append(deps, core.Dependency{Name: name, Type: core.StatementTable})
	}
	return deps
}

func hasDependency(deps []core.Dependency, name string) bool {
	for _, d := range deps {
		if d.Name == name {
			return true
		}
	}
	return false
}

func withFile(err error, file string) error {
	var parseErr *FrontmatterParseError
	if errors.As(err, &parseErr) {
		parseErr.File = file
		return err
	}
	var fieldErr *UnknownFieldError
	if errors.As(err, &fieldErr) {
		fieldErr.File = file
	}
	return err
}
