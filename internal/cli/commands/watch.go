package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/schemamerge/internal/sqlfile"
	"github.com/leapstack-labs/schemamerge/internal/watch"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-merge whenever schema files change",
		Long: `Merge the schema once, then watch the input directory and merge again
after every change to a .sql file. Bursts of changes are debounced.

A failing merge is reported and watching continues. Stop with Ctrl+C.`,
		Example: `  # Keep build/schema.sql up to date
  schemamerge watch -o build/schema.sql

  # Wait longer for editors that write in several steps
  schemamerge watch -o schema.sql --debounce 500ms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd)
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	cmd.Flags().Bool("allow-reorder", false, "Allow reordering statements within a file")
	cmd.Flags().Bool("no-file-comments", false, "Omit -- File: comments between files")
	cmd.Flags().Bool("no-header", false, "Omit the generated header comment")
	cmd.Flags().Duration("debounce", 0, "Delay before re-merging after a change (default 100ms)")

	return cmd
}

func runWatch(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	if err := cfg.ValidateInputDir(); err != nil {
		return err
	}

	rebuild := func(ctx context.Context, changed []string) error {
		if len(changed) > 0 {
			cmdCtx.Logger.Info("schema changed", slog.Int("files", len(changed)))
		}
		summary, err := mergeOnce(ctx, cmdCtx, cmd.OutOrStdout(), false)
		if err != nil {
			return err
		}
		if cfg.Output != "" && cfg.Output != sqlfile.Stdout {
			cmdCtx.Renderer.Success(fmt.Sprintf("Merged %d statements from %d files into %s",
				summary.Statements, summary.Files, displayPath(cfg, cfg.Output)))
		}
		return nil
	}

	if err := rebuild(ctx, nil); err != nil {
		cmdCtx.Logger.Error("initial merge failed", slog.Any("error", err))
	}

	return watch.Watch(ctx, cfg.InputDir, watch.Options{
		Debounce:  cfg.Watch.Debounce,
		Recursive: cfg.Recursive,
		Exclude:   cfg.Exclude,
		Logger:    cmdCtx.Logger,
	}, rebuild)
}
