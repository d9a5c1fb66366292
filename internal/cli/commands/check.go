package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/schemamerge/internal/cli/output"
	"github.com/leapstack-labs/schemamerge/internal/loader"
	"github.com/leapstack-labs/schemamerge/internal/merge"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate schema files without writing output",
		Long: `Load and merge the schema exactly like merge, but only report the result.

Prints the number of files and statements, the merged order, and a warning for
every referenced object that no file defines. Exits non-zero when the merge
would fail.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Check ./schema
  schemamerge check

  # Check a directory and emit JSON for CI
  schemamerge check -i db/schema --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd)
		},
	}

	cmd.Flags().Bool("allow-reorder", false, "Allow reordering statements within a file")
	return cmd
}

func runCheck(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	loaded, plan, err := cmdCtx.Plan(cmd.Context())
	if err != nil {
		if r.EffectiveMode() == output.ModeJSON && loaded != nil {
			_ = r.JSON(output.CheckOutput{
				OK:         false,
				Files:      len(loaded.Files),
				Statements: len(loaded.Statements),
				Dangling:   merge.Dangling(loaded.Statements),
				Error:      errorOutput(err),
			})
		} else {
			renderDiagnostic(r, err)
		}
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return checkJSON(r, loaded, plan)
	case output.ModeMarkdown:
		checkMarkdown(r, loaded, plan)
	default:
		checkText(r, loaded, plan)
	}
	return nil
}

// errorOutput returns the diagnostic for err, falling back to its message.
func errorOutput(err error) *output.ErrorOutput {
	if d := Diagnose(err); d != nil {
		return d
	}
	return &output.ErrorOutput{Kind: KindError, Message: err.Error()}
}

// checkText outputs the check result in styled text format.
func checkText(r *output.Renderer, loaded *loader.Result, plan *merge.Result) {
	styles := r.Styles()

	r.Header(1, "Schema Check")
	r.Printf("  %s %d\n", styles.Bold.Render("Files:"), len(loaded.Files))
	r.Printf("  %s %d\n", styles.Bold.Render("Statements:"), len(plan.Ordered))
	r.Println("")

	r.Println(styles.Header2.Render("Merged order:"))
	for i, st := range plan.Ordered {
		r.Printf("  %3d. %s %s %s\n", i+1,
			styles.Name.Render(st.Name),
			styles.Type.Render(st.Type.String()),
			styles.Muted.Render(fmt.Sprintf("(%s)", st.SourceFile)))
	}
	r.Println("")

	for _, name := range plan.Dangling {
		r.Warning(fmt.Sprintf("%s is referenced but not defined by any file", name))
	}
	r.Success(fmt.Sprintf("%d statements can be merged", len(plan.Ordered)))
}

// checkMarkdown outputs the check result in markdown format.
func checkMarkdown(r *output.Renderer, loaded *loader.Result, plan *merge.Result) {
	r.Println(output.FormatHeader(1, "Schema Check"))
	r.Println("")
	r.Println(output.FormatKeyValue("Files", fmt.Sprintf("%d", len(loaded.Files))))
	r.Println(output.FormatKeyValue("Statements", fmt.Sprintf("%d", len(plan.Ordered))))
	r.Println("")

	r.Println(output.FormatHeader(2, "Merged Order"))
	for i, st := range plan.Ordered {
		r.Printf("%d. %s (%s, %s)\n", i+1, st.Name, st.Type, st.SourceFile)
	}

	if len(plan.Dangling) > 0 {
		r.Println("")
		r.Println(output.FormatHeader(2, "Undefined Dependencies"))
		r.Println(output.FormatList(plan.Dangling))
	}
}

// checkJSON outputs the check result in JSON format.
func checkJSON(r *output.Renderer, loaded *loader.Result, plan *merge.Result) error {
	out := output.CheckOutput{
		OK:         true,
		Files:      len(loaded.Files),
		Statements: len(plan.Ordered),
		Order:      make([]output.StatementInfo, 0, len(plan.Ordered)),
		Dangling:   plan.Dangling,
	}
	if out.Dangling == nil {
		out.Dangling = []string{}
	}
	for _, st := range plan.Ordered {
		out.Order = append(out.Order, describe(st, plan.Graph))
	}
	return r.JSON(out)
}
