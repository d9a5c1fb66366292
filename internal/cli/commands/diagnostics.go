package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/schemamerge/internal/cli/output"
	"github.com/leapstack-labs/schemamerge/internal/dag"
	"github.com/leapstack-labs/schemamerge/internal/loader"
	"github.com/leapstack-labs/schemamerge/internal/merge"
	"github.com/leapstack-labs/schemamerge/pkg/ddl"
)

// Diagnostic kinds, as reported in ErrorOutput.Kind.
const (
	KindDuplicateName      = "duplicate_name"
	KindInvalidOrder       = "invalid_order"
	KindCircularDependency = "circular_dependency"
	KindSortInconsistent   = "sort_inconsistent"
	KindParseError         = "parse_error"
	KindFrontmatterError   = "frontmatter_error"
	KindError              = "error"
)

// DiagnosticKind documents one kind Diagnose can report.
type DiagnosticKind struct {
	Kind    string
	Summary string
	Fix     string
}

// DiagnosticKinds lists every kind in the order the pipeline can hit them.
var DiagnosticKinds = []DiagnosticKind{
	{KindParseError, "A .sql file could not be tokenized or a CREATE header is malformed", "Fix the SQL at the reported file:line:column"},
	{KindFrontmatterError, "A /*--- ---*/ header is not valid YAML or has an unknown field", "Only depends_on and skip are allowed"},
	{KindDuplicateName, "The same object is created in more than one file", "Keep one definition or rename one object"},
	{KindInvalidOrder, "A statement depends on an object declared later in the same file", "Move the dependency up or pass --allow-reorder"},
	{KindCircularDependency, "Objects depend on each other in a loop", "Remove one reference from the loop"},
	{KindSortInconsistent, "Internal error: the sort did not place every object", "Report it with the input files"},
	{KindError, "Any other failure, such as a missing input directory or a failed verify", "See the message"},
}

// Diagnose turns a load or merge failure into an actionable diagnostic.
// It returns nil for errors it does not recognize.
func Diagnose(err error) *output.ErrorOutput {
	var (
		dupErr     *merge.DuplicateNameError
		orderErr   *merge.InvalidStatementOrderError
		cycleErr   *merge.CircularDependencyError
		sortErr    *dag.SortInconsistencyError
		extractErr *ddl.ExtractError
		fmParseErr *loader.FrontmatterParseError
		fmFieldErr *loader.UnknownFieldError
	)

	switch {
	case errors.As(err, &dupErr):
		d := &output.ErrorOutput{Kind: KindDuplicateName, Message: "object names must be unique across files"}
		for _, dup := range dupErr.Duplicates {
			d.Details = append(d.Details, fmt.Sprintf("%s is declared in %s", dup.Name, strings.Join(dup.Files, ", ")))
		}
		return d

	case errors.As(err, &orderErr):
		return &output.ErrorOutput{
			Kind:    KindInvalidOrder,
			Message: fmt.Sprintf("statements in %s are out of dependency order", orderErr.File),
			Details: []string{
				fmt.Sprintf("%s (statement %d) depends on %s (statement %d)",
					orderErr.Statement, orderErr.Position, orderErr.Dependency, orderErr.DependencyPosition),
				fmt.Sprintf("Hint: move %s above %s, or pass --allow-reorder", orderErr.Dependency, orderErr.Statement),
			},
		}

	case errors.As(err, &cycleErr):
		d := &output.ErrorOutput{
			Kind:    KindCircularDependency,
			Message: fmt.Sprintf("%d dependency cycle(s) found", len(cycleErr.Cycles)),
		}
		for _, c := range cycleErr.Cycles {
			d.Details = append(d.Details, dag.FormatCycle(c))
		}
		return d

	case errors.As(err, &sortErr):
		return &output.ErrorOutput{
			Kind:    KindSortInconsistent,
			Message: "the dependency sort did not place every object; please report this",
			Details: sortErr.Unplaced,
		}

	case errors.As(err, &extractErr):
		return &output.ErrorOutput{Kind: KindParseError, Message: extractErr.Error()}

	case errors.As(err, &fmParseErr):
		return &output.ErrorOutput{Kind: KindFrontmatterError, Message: fmParseErr.Error()}

	case errors.As(err, &fmFieldErr):
		return &output.ErrorOutput{Kind: KindFrontmatterError, Message: fmFieldErr.Error()}
	}
	return nil
}

// renderDiagnostic writes the diagnostic for err, if any, to stderr.
// The error itself is still returned to the caller and printed once by Execute.
func renderDiagnostic(r *output.Renderer, err error) {
	d := Diagnose(err)
	if d == nil {
		return
	}

	styles := r.Styles()
	w := r.ErrWriter()
	_, _ = fmt.Fprintln(w, styles.Error.Render(d.Message))
	for _, detail := range d.Details {
		_, _ = fmt.Fprintf(w, "  %s %s\n", styles.Muted.Render("-"), detail)
	}
}
