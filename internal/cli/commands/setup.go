package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/schemamerge/internal/cli/config"
	"github.com/leapstack-labs/schemamerge/internal/cli/output"
	"github.com/leapstack-labs/schemamerge/internal/loader"
	"github.com/leapstack-labs/schemamerge/internal/merge"
	"github.com/leapstack-labs/schemamerge/pkg/ddl"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Format)),
	}
}

// getConfig returns the current configuration, or defaults when none was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// LoaderOptions maps the configuration onto loader options.
func (c *CommandContext) LoaderOptions() loader.Options {
	return loader.Options{
		Extract: ddl.Options{
			Dialect:       c.Cfg.Dialect,
			DefaultSchema: c.Cfg.DefaultSchema,
		},
		Exclude:   c.Cfg.Exclude,
		Recursive: c.Cfg.Recursive,
		Logger:    c.Logger,
	}
}

// MergeOptions maps the configuration onto merge options.
func (c *CommandContext) MergeOptions() merge.Options {
	return merge.Options{AllowReorder: c.Cfg.AllowReorder}
}

// Load reads every schema file in the input directory.
func (c *CommandContext) Load(ctx context.Context) (*loader.Result, error) {
	if err := c.Cfg.ValidateInputDir(); err != nil {
		return nil, err
	}
	res, err := loader.Load(ctx, c.Cfg.InputDir, c.LoaderOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return res, nil
}

// Plan loads the schema and orders it. Dangling dependencies are logged.
func (c *CommandContext) Plan(ctx context.Context) (*loader.Result, *merge.Result, error) {
	loaded, err := c.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	plan, err := merge.Plan(loaded.Statements, c.MergeOptions())
	if err != nil {
		return loaded, nil, err
	}

	for _, name := range plan.Dangling {
		c.Logger.Warn("dependency not defined by any file", slog.String("name", name))
	}
	return loaded, plan, nil
}
