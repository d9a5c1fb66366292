package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/schemamerge/internal/cli/config"
	"github.com/leapstack-labs/schemamerge/internal/sqlfile"
)

// NewMergeCommand creates the merge command.
func NewMergeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge schema files into one ordered SQL file",
		Long: `Read every .sql file in the input directory, order the CREATE statements so
each object is created after the objects it references, and write them as a
single SQL script.

The merge fails when two files declare the same object, when a file declares
an object before one of its own dependencies (unless --allow-reorder), or when
the dependencies form a cycle. Self-references such as a table with a foreign
key to itself are allowed.

This is also what runs when schemamerge is invoked without a subcommand.`,
		Example: `  # Merge ./schema to stdout
  schemamerge merge

  # Merge a directory into a file
  schemamerge merge -i db/schema -o build/schema.sql

  # Let the sort reorder statements within a file
  schemamerge merge --allow-reorder

  # Check the result against an in-memory SQLite database before writing
  schemamerge merge --dialect sqlite --verify -o schema.sql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMerge(cmd)
		},
	}

	AddMergeFlags(cmd.Flags())
	return cmd
}

// AddMergeFlags registers the merge flags on fs.
func AddMergeFlags(fs *pflag.FlagSet) {
	fs.StringP("output", "o", "", "Output file (default: stdout)")
	fs.Bool("allow-reorder", false, "Allow reordering statements within a file")
	fs.Bool("no-file-comments", false, "Omit -- File: comments between files")
	fs.Bool("no-header", false, "Omit the generated header comment")
	fs.Bool("verify", false, "Execute the merged schema in a rolled-back transaction before writing")
}

func runMerge(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	verifyFirst, _ := cmd.Flags().GetBool("verify")
	summary, err := mergeOnce(cmd.Context(), cmdCtx, cmd.OutOrStdout(), verifyFirst)
	if err != nil {
		return err
	}

	if cfg.Output != "" && cfg.Output != sqlfile.Stdout && !cfg.Quiet {
		cmdCtx.Renderer.Success(fmt.Sprintf("Merged %d statements from %d files into %s",
			summary.Statements, summary.Files, displayPath(cfg, cfg.Output)))
	}
	return nil
}

// mergeSummary counts what one merge wrote.
type mergeSummary struct {
	Files      int
	Statements int
}

// mergeOnce loads, merges and writes the schema once. Merge failures are
// rendered as diagnostics before being returned.
func mergeOnce(ctx context.Context, cmdCtx *CommandContext, stdout io.Writer, verifyFirst bool) (*mergeSummary, error) {
	cfg := cmdCtx.Cfg

	loaded, plan, err := cmdCtx.Plan(ctx)
	if err != nil {
		renderDiagnostic(cmdCtx.Renderer, err)
		return nil, err
	}

	if verifyFirst {
		report, err := runVerification(ctx, cmdCtx, plan.Ordered)
		if err != nil {
			return nil, err
		}
		if !report.OK() {
			return nil, fmt.Errorf("verification failed: %w", report.Failed)
		}
		cmdCtx.Logger.Info("verified merged schema",
			slog.Int("statements", report.Executed),
			slog.Duration("duration", report.Duration))
	}

	content := sqlfile.Format(plan.Ordered, sqlOptions(cfg))
	if err := sqlfile.Write(stdout, cfg.Output, content); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}

	cmdCtx.Logger.Info("merged schema",
		slog.Int("files", len(loaded.Files)),
		slog.Int("statements", len(plan.Ordered)),
		slog.String("output", cfg.Output))

	return &mergeSummary{Files: len(loaded.Files), Statements: len(plan.Ordered)}, nil
}

// sqlOptions builds output options with the source shown relative to the project.
func sqlOptions(cfg *config.Config) sqlfile.Options {
	return sqlfile.Options{
		Header:       cfg.Header,
		FileComments: cfg.FileComments,
		Source:       displayPath(cfg, cfg.InputDir),
		Dialect:      cfg.Dialect,
	}
}

// displayPath shows path relative to the project root when it lies inside it.
func displayPath(cfg *config.Config, path string) string {
	if cfg.ProjectRoot == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(cfg.ProjectRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
