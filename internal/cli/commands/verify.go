package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/schemamerge/internal/cli/output"
	"github.com/leapstack-labs/schemamerge/internal/verify"
	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Execute the merged schema against a database",
		Long: `Merge the schema, then execute every statement in merged order inside a
single transaction that is always rolled back. A statement the database
rejects is reported with its file and position.

Supported drivers:
  - sqlite: pure-Go SQLite, in-memory by default
  - postgres: PostgreSQL via pgx, requires --dsn

DSNs may reference environment variables as ${VAR}.`,
		Example: `  # Verify against an in-memory SQLite database
  schemamerge verify --dialect sqlite

  # Verify against a scratch PostgreSQL database
  schemamerge verify --driver postgres --dsn 'postgres://localhost/scratch?sslmode=disable'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd)
		},
	}

	cmd.Flags().String("driver", "", "Database driver (sqlite|postgres)")
	cmd.Flags().String("dsn", "", "Database connection string")
	cmd.Flags().Bool("allow-reorder", false, "Allow reordering statements within a file")

	_ = cmd.RegisterFlagCompletionFunc("driver", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"sqlite", "postgres"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runVerify(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	_, plan, err := cmdCtx.Plan(ctx)
	if err != nil {
		renderDiagnostic(r, err)
		return err
	}

	report, err := runVerification(ctx, cmdCtx, plan.Ordered)
	if err != nil {
		return err
	}

	driver := cmdCtx.Cfg.Verify.Driver
	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(verifyOutput(driver, len(plan.Ordered), report)); err != nil {
			return err
		}
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Verification"))
		r.Println("")
		r.Println(output.FormatKeyValue("Driver", driver))
		r.Println(output.FormatKeyValue("Executed", fmt.Sprintf("%d of %d", report.Executed, len(plan.Ordered))))
		r.Println(output.FormatKeyValue("Duration", report.Duration.String()))
		if !report.OK() {
			r.Println(output.FormatKeyValue("Failed", report.Failed.Error()))
			r.Println("")
			r.Println(output.FormatCodeBlock("sql", report.Failed.Statement.RawContent))
		}
	default:
		if report.OK() {
			r.Success(fmt.Sprintf("Executed %d statements on %s in %s (rolled back)",
				report.Executed, driver, report.Duration.Round(time.Millisecond)))
		} else {
			styles := r.Styles()
			r.Printf("%s %s\n", styles.StatusFailed.String(), styles.Error.Render(report.Failed.Error()))
			r.Println(styles.Muted.Render(report.Failed.Statement.RawContent))
		}
	}

	if !report.OK() {
		return fmt.Errorf("verification failed: %w", report.Failed)
	}
	return nil
}

// runVerification opens the configured database and runs stmts against it.
func runVerification(ctx context.Context, cmdCtx *CommandContext, stmts []core.Statement) (*verify.Report, error) {
	cfg := cmdCtx.Cfg
	db, err := verify.Open(ctx, cfg.Verify.Driver, cfg.Verify.DSN)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	cmdCtx.Logger.Debug("verifying merged schema", "driver", cfg.Verify.Driver, "statements", len(stmts))
	return verify.New(db, cmdCtx.Logger).Run(ctx, stmts)
}

func verifyOutput(driver string, total int, report *verify.Report) output.VerifyOutput {
	out := output.VerifyOutput{
		OK:         report.OK(),
		Driver:     driver,
		Executed:   report.Executed,
		Total:      total,
		DurationMS: report.Duration.Milliseconds(),
	}
	if !report.OK() {
		out.Failed = report.Failed.Err.Error()
		out.Statement = report.Failed.Statement.Name
		out.File = report.Failed.Statement.SourceFile
	}
	return out
}
