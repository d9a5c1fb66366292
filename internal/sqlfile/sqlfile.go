// Package sqlfile renders merged statements as a single SQL script and
// writes it out.
package sqlfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// Stdout is the output path meaning "write to standard output".
const Stdout = "-"

// Options controls the rendered script.
type Options struct {
	// Header adds a generated-by comment block at the top
	Header bool
	// FileComments adds a "-- File: path" line whenever the source file changes
	FileComments bool
	// Source is the input directory named in the header
	Source string
	// Dialect is named in the header when set
	Dialect core.Dialect
}

// Format renders stmts in order. Each statement is terminated with a
// semicolon and separated from the next by a blank line.
func Format(stmts []core.Statement, opts Options) string {
	var b strings.Builder

	if opts.Header {
		b.WriteString("-- Generated by schemamerge\n")
		if opts.Source != "" {
			fmt.Fprintf(&b, "-- Source: %s\n", opts.Source)
		}
		if opts.Dialect != "" {
			fmt.Fprintf(&b, "-- Dialect: %s\n", opts.Dialect)
		}
		fmt.Fprintf(&b, "-- Statements: %d\n", len(stmts))
	}

	prevFile := ""
	for i, st := range stmts {
		if i > 0 || opts.Header {
			b.WriteString("\n")
		}
		if opts.FileComments && (i == 0 || st.SourceFile != prevFile) {
			fmt.Fprintf(&b, "-- File: %s\n", st.SourceFile)
		}
		prevFile = st.SourceFile

		b.WriteString(terminate(st.RawContent))
		b.WriteString("\n")
	}

	return b.String()
}

// terminate appends the semicolon, on its own line when the last line
// could end in a line comment.
func terminate(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasSuffix(raw, ";") {
		return raw
	}
	lastLine := raw[strings.LastIndex(raw, "\n")+1:]
	if strings.Contains(lastLine, "--") {
		return raw + "\n;"
	}
	return raw + ";"
}

// Write writes content to path. An empty path or "-" writes to stdout.
// Files are replaced atomically: content goes to a temporary file in the
// same directory which is then renamed over path.
func Write(stdout io.Writer, path, content string) error {
	if path == "" || path == Stdout {
		_, err := io.WriteString(stdout, content)
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // G302: generated schema is meant to be readable
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
