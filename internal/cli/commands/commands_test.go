package commands

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/schemamerge/internal/cli/config"
	"github.com/leapstack-labs/schemamerge/internal/cli/output"
	"github.com/leapstack-labs/schemamerge/internal/cli/testutil"
	"github.com/leapstack-labs/schemamerge/internal/dag"
	"github.com/leapstack-labs/schemamerge/internal/loader"
	"github.com/leapstack-labs/schemamerge/internal/merge"
	"github.com/leapstack-labs/schemamerge/internal/verify"
	"github.com/leapstack-labs/schemamerge/pkg/core"
	"github.com/leapstack-labs/schemamerge/pkg/ddl"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewMergeCommand(), "merge", []string{"output", "allow-reorder", "no-file-comments", "no-header", "verify"}},
		{NewCheckCommand(), "check", []string{"allow-reorder"}},
		{NewGraphCommand(), "graph", []string{"select", "table"}},
		{NewVerifyCommand(), "verify", []string{"driver", "dsn"}},
		{NewWatchCommand(), "watch", []string{"output", "debounce"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			assert.NotEmpty(t, tt.cmd.Example, "Example should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func table(file string, pos int, name string, deps ...string) core.Statement {
	st := core.Statement{Type: core.StatementTable, Name: name, SourceFile: file, Position: pos,
		RawContent: "CREATE TABLE " + name + " (id INT)"}
	for _, d := range deps {
		st.DependsOn = append(st.DependsOn, core.Dependency{Name: d, Type: core.StatementTable})
	}
	return st
}

func TestDiagnose(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantKind    string
		wantDetails []string
	}{
		{
			name: "duplicate",
			err: &merge.DuplicateNameError{Duplicates: []merge.DuplicateName{
				{Name: "widgets", Files: []string{"a.sql", "b.sql"}},
			}},
			wantKind:    "duplicate_name",
			wantDetails: []string{"widgets is declared in a.sql, b.sql"},
		},
		{
			name: "order wrapped",
			err: fmt.Errorf("merge: %w", &merge.InvalidStatementOrderError{
				File: "a.sql", Statement: "posts", Position: 0, Dependency: "users", DependencyPosition: 1,
			}),
			wantKind: "invalid_order",
			wantDetails: []string{
				"posts (statement 0) depends on users (statement 1)",
				"Hint: move users above posts, or pass --allow-reorder",
			},
		},
		{
			name:        "cycle",
			err:         &merge.CircularDependencyError{Cycles: [][]string{{"a", "b", "a"}}},
			wantKind:    "circular_dependency",
			wantDetails: []string{"a -> b -> a"},
		},
		{
			name:        "sort inconsistency",
			err:         &dag.SortInconsistencyError{Placed: 1, Total: 2, Unplaced: []string{"x"}},
			wantKind:    "sort_inconsistent",
			wantDetails: []string{"x"},
		},
		{
			name:     "extract",
			err:      fmt.Errorf("failed to load schema: %w", &ddl.ExtractError{File: "a.sql", Line: 1, Column: 2, Message: "boom"}),
			wantKind: "parse_error",
		},
		{
			name:     "frontmatter",
			err:      &loader.UnknownFieldError{File: "a.sql", Field: "materialized"},
			wantKind: "frontmatter_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Diagnose(tt.err)
			require.NotNil(t, d)
			assert.Equal(t, tt.wantKind, d.Kind)
			assert.NotEmpty(t, d.Message)
			assert.True(t, documentedKind(d.Kind), "kind %q missing from DiagnosticKinds", d.Kind)
			if tt.wantDetails != nil {
				assert.Equal(t, tt.wantDetails, d.Details)
			}
		})
	}

	assert.Nil(t, Diagnose(fmt.Errorf("disk full")))
	assert.Equal(t, "error", errorOutput(fmt.Errorf("disk full")).Kind)
	assert.True(t, documentedKind(KindError))
}

func documentedKind(kind string) bool {
	for _, k := range DiagnosticKinds {
		if k.Kind == kind {
			return true
		}
	}
	return false
}

func TestRenderDiagnostic(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeText, false)
	renderDiagnostic(tr.Renderer, &merge.CircularDependencyError{Cycles: [][]string{{"a", "c", "b", "a"}}})

	assert.Equal(t, "1 dependency cycle(s) found\n  - a -> c -> b -> a\n", tr.ErrorOutput())
	assert.Empty(t, tr.Output())
}

func TestSelectSubgraph(t *testing.T) {
	stmts := []core.Statement{
		table("a.sql", 0, "users"),
		table("a.sql", 1, "posts", "users"),
		table("a.sql", 2, "comments", "posts"),
		table("b.sql", 0, "tags"),
	}
	g := dag.Build(stmts)

	sub, err := selectSubgraph(g, "posts")
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "posts", "comments"}, sub.Nodes())

	_, err = selectSubgraph(g, "missing")
	assert.ErrorContains(t, err, `object "missing" not found`)
}

func TestDisplayPath(t *testing.T) {
	cfg := config.Default()
	cfg.ProjectRoot = "/work/project"

	assert.Equal(t, "schema", displayPath(cfg, "/work/project/schema"))
	assert.Equal(t, "build/out.sql", displayPath(cfg, "/work/project/build/out.sql"))
	assert.Equal(t, "/elsewhere/out.sql", displayPath(cfg, "/elsewhere/out.sql"))
	assert.Equal(t, "-", displayPath(cfg, "-"))
}

func newGraphView(t *testing.T) *graphView {
	t.Helper()
	stmts := []core.Statement{
		table("a.sql", 0, "users", "users"),
		table("a.sql", 1, "posts", "users", "audit_log"),
	}
	plan, err := merge.Plan(stmts, merge.Options{})
	require.NoError(t, err)
	levels, err := plan.Graph.Levels()
	require.NoError(t, err)
	return &graphView{
		graph:      plan.Graph,
		levels:     levels,
		statements: byName(plan.Ordered),
		dangling:   plan.Dangling,
	}
}

func TestGraphMarkdown(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	graphMarkdown(tr.Renderer, newGraphView(t))

	md := tr.Output()
	testutil.AssertValidMarkdown(t, md)
	testutil.AssertNoANSI(t, md)
	assert.Contains(t, md, "## Level 0 (Roots)")
	assert.Contains(t, md, "- users (table)\n  - self-referencing\n  - used by: posts")
	assert.Contains(t, md, "- audit_log (undefined)")
	assert.Contains(t, md, "## Level 1")
	assert.Contains(t, md, "  - depends on: users, audit_log")
	assert.Contains(t, md, "- **Undefined:** audit_log")
}

func TestGraphText(t *testing.T) {
	tr := testutil.NewTestRendererText()
	graphText(tr.Renderer, newGraphView(t))

	out := testutil.StripANSI(tr.Output())
	assert.Contains(t, out, "Level 0:")
	assert.Contains(t, out, "users table (self-referencing)")
	assert.Contains(t, out, "depends on: users, audit_log")
	assert.Contains(t, out, "Total: 3 objects, 3 dependencies")
	assert.Contains(t, testutil.StripANSI(tr.ErrorOutput()), "audit_log is referenced but not defined")
}

func TestGraphTable(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	graphTable(tr.Renderer, newGraphView(t))

	assert.Contains(t, tr.Output(), "| 1 | posts | Table | a.sql | users, audit_log |  |")
	assert.Contains(t, tr.Output(), "| 0 | audit_log | Undefined |  |  | posts |")
}

func TestGraphJSON(t *testing.T) {
	tr := testutil.NewTestRendererJSON()
	require.NoError(t, graphJSON(tr.Renderer, newGraphView(t)))

	var got output.GraphOutput
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	require.Len(t, got.Levels, 2)
	assert.Equal(t, 2, got.TotalStatements)
	assert.Equal(t, []string{"audit_log"}, got.Dangling)
	assert.Equal(t, "posts", got.Levels[1].Statements[0].Name)
	assert.Equal(t, []string{"users", "audit_log"}, got.Levels[1].Statements[0].DependsOn)

	var undefined output.StatementInfo
	for _, st := range got.Levels[0].Statements {
		if st.Name == "audit_log" {
			undefined = st
		}
	}
	assert.Equal(t, "undefined", undefined.Type)
}

func TestVerifyOutput(t *testing.T) {
	failed := &verify.Report{
		Executed: 1,
		Failed: &verify.Failure{
			Statement: table("b.sql", 0, "posts", "users"),
			Index:     1,
			Err:       fmt.Errorf("no such table: users"),
		},
	}
	out := verifyOutput("sqlite", 2, failed)
	assert.False(t, out.OK)
	assert.Equal(t, "no such table: users", out.Failed)
	assert.Equal(t, "posts", out.Statement)
	assert.Equal(t, "b.sql", out.File)

	ok := verifyOutput("sqlite", 2, &verify.Report{Executed: 2})
	assert.True(t, ok.OK)
	assert.Empty(t, ok.Failed)
}
