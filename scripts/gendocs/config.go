package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/schemamerge/internal/cli/config"
	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Description string
	Category    string // "project", "output", "verify", "watch"
}

// getConfigSchema returns the configuration schema definition.
// Defaults come from config.Default so the page cannot drift from the loader.
func getConfigSchema() []ConfigField {
	d := config.Default()

	dialects := make([]string, 0, len(core.Dialects()))
	for _, dl := range core.Dialects() {
		dialects = append(dialects, dl.String())
	}

	return []ConfigField{
		{Name: "input_dir", Type: "string", Default: d.InputDir, Description: "Directory of .sql schema fragments", Category: "project"},
		{Name: "dialect", Type: "string", Default: d.Dialect.String(), Description: "SQL dialect: " + strings.Join(dialects, ", "), Category: "project"},
		{Name: "default_schema", Type: "string", Description: "Schema stripped from qualified names so `public.users` and `users` match", Category: "project"},
		{Name: "exclude", Type: "[]string", Description: "Glob patterns of files to skip", Category: "project"},
		{Name: "recursive", Type: "bool", Default: strconv.FormatBool(d.Recursive), Description: "Descend into subdirectories", Category: "project"},
		{Name: "allow_reorder", Type: "bool", Default: strconv.FormatBool(d.AllowReorder), Description: "Allow statements to move within a file", Category: "project"},

		{Name: "output", Type: "string", Default: d.Output, Description: "Merged output path, `-` for stdout", Category: "output"},
		{Name: "header", Type: "bool", Default: strconv.FormatBool(d.Header), Description: "Write a generated-file header", Category: "output"},
		{Name: "file_comments", Type: "bool", Default: strconv.FormatBool(d.FileComments), Description: "Annotate each statement with its source file", Category: "output"},
		{Name: "format", Type: "string", Default: d.Format, Description: "Report format: auto, text, markdown, json", Category: "output"},

		{Name: "verify.driver", Type: "string", Default: d.Verify.Driver, Description: "Database driver: sqlite, postgres", Category: "verify"},
		{Name: "verify.dsn", Type: "string", Description: "Connection string; sqlite defaults to an in-memory database", Category: "verify"},

		{Name: "watch.debounce", Type: "duration", Default: d.Watch.Debounce.String(), Description: "Quiet period before a rebuild", Category: "watch"},
	}
}

// generateConfigDocs generates the configuration reference page.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	return nil
}

func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Configuration", "schemamerge configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("schemamerge reads %s from the current directory or the nearest parent. "+
		"Values are layered: defaults, then the file, then `SCHEMAMERGE_` environment variables, then flags. "+
		"`${VAR}` references in the file are expanded.", strings.Join(quoted(config.ConfigFileNames), " or ")))

	sections := []struct {
		category string
		title    string
		intro    string
	}{
		{"project", "Input", "Where fragments are read from and how they are parsed:"},
		{"output", "Output", "How the merged script and reports are written:"},
		{"verify", "Verify", "The database `verify` and `merge --verify` execute the merged script against:"},
		{"watch", "Watch", "Settings for `watch`:"},
	}

	fields := getConfigSchema()
	headers := []string{"Field", "Type", "Default", "Description"}
	for _, sec := range sections {
		w.Header(2, sec.title)
		w.Paragraph(sec.intro)

		var rows [][]string
		for _, f := range fields {
			if f.Category != sec.category {
				continue
			}
			defVal := "-"
			if f.Default != "" {
				defVal = InlineCode(f.Default)
			}
			rows = append(rows, []string{InlineCode(f.Name), f.Type, defVal, f.Description})
		}
		w.Table(headers, rows)
	}

	w.Header(2, "Example")
	w.CodeBlock("yaml", `input_dir: schema
output: build/schema.sql
dialect: postgresql
default_schema: public
exclude:
  - "*_scratch.sql"

verify:
  driver: postgres
  dsn: ${DATABASE_URL}

watch:
  debounce: 250ms`)

	filename := filepath.Join(outDir, "configuration.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

func quoted(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = InlineCode(n)
	}
	return out
}
