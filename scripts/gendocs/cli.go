package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/schemamerge/internal/cli"
	"github.com/leapstack-labs/schemamerge/internal/cli/commands"
	"github.com/leapstack-labs/schemamerge/internal/cli/config"
)

// generateCLIDocs writes index.md plus one page per visible command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	pages := documentedCommands(root)

	if err := writePage(outDir, "index.md", cliIndex(root, pages)); err != nil {
		return err
	}
	for _, cmd := range pages {
		if err := writePage(outDir, cmd.Name()+".md", commandPage(cmd)); err != nil {
			return err
		}
	}
	return nil
}

func writePage(outDir, name string, w *MarkdownWriter) error {
	if err := os.WriteFile(filepath.Join(outDir, name), w.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	log.Printf("  Generated %s", name)
	return nil
}

// documentedCommands returns the subcommands that get a page.
func documentedCommands(root *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, cmd := range root.Commands() {
		if cmd.Hidden || cmd.Name() == "help" || cmd.Name() == "completion" {
			continue
		}
		out = append(out, cmd)
	}
	return out
}

func cliIndex(root *cobra.Command, pages []*cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for schemamerge")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)
	w.CodeBlock("bash", "go install github.com/leapstack-labs/schemamerge/cmd/schemamerge@latest")
	w.Paragraph("Running `schemamerge` without a command merges the input directory, so `schemamerge -o build/schema.sql` and `schemamerge merge -o build/schema.sql` are the same.")

	w.Header(2, "Commands")
	var rows [][]string
	for _, cmd := range pages {
		rows = append(rows, []string{
			fmt.Sprintf("[%s](%s.md)", InlineCode(cmd.Name()), cmd.Name()),
			cleanDescription(cmd.Short),
		})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	w.Paragraph("Every option that maps to a configuration key can also be set in the config file or the environment. Flags win over both.")
	writeFlagsTable(w, root.PersistentFlags())

	w.Header(2, "Environment Variables")
	w.Table([]string{"Variable", "Key", "Description"}, envRows())

	w.Header(2, "Exit Status and Diagnostics")
	w.Paragraph("schemamerge exits 0 on success and 1 on any failure. " +
		"Failures print a diagnostic on stderr; `check --format json` reports the same kind in `error.kind`.")
	var diagRows [][]string
	for _, k := range commands.DiagnosticKinds {
		diagRows = append(diagRows, []string{InlineCode(k.Kind), k.Summary, k.Fix})
	}
	w.Table([]string{"Kind", "Meaning", "Fix"}, diagRows)

	return w
}

// envRows lists one environment variable per configuration key.
func envRows() [][]string {
	desc := make(map[string]string)
	for _, f := range getConfigSchema() {
		desc[f.Name] = f.Description
	}

	var rows [][]string
	for _, key := range config.Keys() {
		rows = append(rows, []string{InlineCode(config.EnvVar(key)), InlineCode(key), desc[key]})
	}
	return rows
}

func commandPage(cmd *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}

	w.Header(2, "Usage")
	w.CodeBlock("bash", cmd.UseLine())

	if cmd.HasLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags())
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", cleanExample(cmd.Example))
	}

	w.Paragraph("Global options are listed in the [CLI reference](index.md#global-options).")
	return w
}

// writeFlagsTable writes one row per visible flag with the config key it sets.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}

		option := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			option += ", " + InlineCode("-"+f.Shorthand)
		}

		key := "-"
		if k, negated, ok := config.FlagKey(f.Name); ok {
			key = InlineCode(k)
			if negated {
				key += " (inverted)"
			}
		}

		def := f.DefValue
		if def == "" || def == "[]" {
			def = "-"
		} else {
			def = InlineCode(def)
		}

		rows = append(rows, []string{option, key, def, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Option", "Config key", "Default", "Description"}, rows)
}

// cleanExample removes the indentation shared by every non-empty line.
func cleanExample(example string) string {
	lines := strings.Split(example, "\n")

	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent == -1 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return strings.TrimSpace(example)
	}

	for i, line := range lines {
		if len(line) >= indent {
			lines[i] = line[indent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
