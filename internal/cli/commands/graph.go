package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/schemamerge/internal/cli/output"
	"github.com/leapstack-labs/schemamerge/internal/dag"
	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	var (
		selectName string
		asTable    bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the dependency graph",
		Long: `Display the dependency graph of all schema objects.

Objects are grouped by level: level 0 objects reference nothing else, and an
object at level N references at least one object at level N-1. Objects that
are referenced but not defined by any file are marked as undefined.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Show the graph
  schemamerge graph

  # Show only what users depends on and what depends on users
  schemamerge graph --select users

  # Show one row per object
  schemamerge graph --table

  # Output as JSON
  schemamerge graph --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGraph(cmd, selectName, asTable)
		},
	}

	cmd.Flags().StringVarP(&selectName, "select", "s", "", "Restrict to an object and its upstream and downstream")
	cmd.Flags().BoolVar(&asTable, "table", false, "Show a table instead of levels")
	cmd.Flags().Bool("allow-reorder", false, "Allow reordering statements within a file")

	return cmd
}

// graphView is the part of the graph being displayed.
type graphView struct {
	graph      *dag.Graph
	levels     [][]string
	statements map[string]core.Statement
	dangling   []string
}

func runGraph(cmd *cobra.Command, selectName string, asTable bool) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	_, plan, err := cmdCtx.Plan(cmd.Context())
	if err != nil {
		renderDiagnostic(r, err)
		return err
	}

	g := plan.Graph
	if selectName != "" {
		g, err = selectSubgraph(g, selectName)
		if err != nil {
			return err
		}
	}

	levels, err := g.Levels()
	if err != nil {
		return fmt.Errorf("failed to get levels: %w", err)
	}

	view := &graphView{
		graph:      g,
		levels:     levels,
		statements: byName(plan.Ordered),
	}
	for _, name := range plan.Dangling {
		if g.HasNode(name) {
			view.dangling = append(view.dangling, name)
		}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return graphJSON(r, view)
	case output.ModeMarkdown:
		if asTable {
			graphTable(r, view)
			return nil
		}
		graphMarkdown(r, view)
	default:
		if asTable {
			graphTable(r, view)
			return nil
		}
		graphText(r, view)
	}
	return nil
}

// selectSubgraph keeps name plus everything upstream and downstream of it.
func selectSubgraph(g *dag.Graph, name string) (*dag.Graph, error) {
	if !g.HasNode(name) {
		return nil, fmt.Errorf("object %q not found in schema", name)
	}
	keep := append([]string{name}, g.Upstream(name)...)
	keep = append(keep, g.Downstream(name)...)
	return g.Subgraph(keep), nil
}

// label returns "table", "view", ... or "undefined" for dangling nodes.
func (v *graphView) label(name string) string {
	if st, ok := v.statements[name]; ok {
		return st.Type.String()
	}
	return "undefined"
}

// graphText outputs the graph in styled text format.
func graphText(r *output.Renderer, v *graphView) {
	styles := r.Styles()

	r.Header(1, "Dependency Graph")

	for i, level := range v.levels {
		r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", i)))
		for _, name := range level {
			deps := v.graph.NonSelfDependencies(name)
			children := v.graph.NonSelfDependents(name)

			suffix := ""
			if v.graph.IsSelfReferencing(name) {
				suffix = " " + styles.Muted.Render("(self-referencing)")
			}
			r.Printf("  %s %s%s\n", styles.Name.Render(name), styles.Type.Render(v.label(name)), suffix)
			if len(deps) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("depends on:"), strings.Join(deps, ", "))
			}
			if len(children) > 0 {
				r.Printf("    %s %s\n", styles.Muted.Render("used by:"), strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d objects, %d dependencies", v.graph.NodeCount(), v.graph.EdgeCount())))
	for _, name := range v.dangling {
		r.Warning(fmt.Sprintf("%s is referenced but not defined by any file", name))
	}
}

// graphMarkdown outputs the graph in markdown format.
func graphMarkdown(r *output.Renderer, v *graphView) {
	r.Println(output.FormatHeader(1, "Dependency Graph"))
	r.Println("")

	for i, level := range v.levels {
		levelName := fmt.Sprintf("Level %d", i)
		if i == 0 {
			levelName = "Level 0 (Roots)"
		}
		r.Println(output.FormatHeader(2, levelName))

		for _, name := range level {
			deps := v.graph.NonSelfDependencies(name)
			children := v.graph.NonSelfDependents(name)

			r.Printf("- %s (%s)\n", name, v.label(name))
			if v.graph.IsSelfReferencing(name) {
				r.Println("  - self-referencing")
			}
			if len(deps) > 0 {
				r.Printf("  - depends on: %s\n", strings.Join(deps, ", "))
			}
			if len(children) > 0 {
				r.Printf("  - used by: %s\n", strings.Join(children, ", "))
			}
		}
		r.Println("")
	}

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Total Objects", fmt.Sprintf("%d", v.graph.NodeCount())))
	r.Println(output.FormatKeyValue("Total Dependencies", fmt.Sprintf("%d", v.graph.EdgeCount())))
	if len(v.dangling) > 0 {
		r.Println(output.FormatKeyValue("Undefined", strings.Join(v.dangling, ", ")))
	}
}

// graphTable outputs one row per object.
func graphTable(r *output.Renderer, v *graphView) {
	var rows [][]string
	for i, level := range v.levels {
		for _, name := range level {
			file := ""
			if st, ok := v.statements[name]; ok {
				file = st.SourceFile
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", i),
				name,
				typeLabel(v.label(name)),
				file,
				strings.Join(v.graph.NonSelfDependencies(name), ", "),
				strings.Join(v.graph.NonSelfDependents(name), ", "),
			})
		}
	}
	r.Table([]string{"Level", "Name", "Type", "File", "Depends On", "Used By"}, rows)
}

// graphJSON outputs the graph in JSON format.
func graphJSON(r *output.Renderer, v *graphView) error {
	out := output.GraphOutput{
		Levels:          make([]output.GraphLevel, 0, len(v.levels)),
		TotalStatements: v.graph.NodeCount() - len(v.dangling),
		TotalEdges:      v.graph.EdgeCount(),
		Dangling:        v.dangling,
	}
	if out.Dangling == nil {
		out.Dangling = []string{}
	}

	for i, level := range v.levels {
		gl := output.GraphLevel{
			Level:      i,
			Statements: make([]output.StatementInfo, 0, len(level)),
		}
		for _, name := range level {
			st, ok := v.statements[name]
			if !ok {
				st = core.Statement{Name: name}
			}
			info := describe(st, v.graph)
			if !ok {
				info.Type = "undefined"
			}
			gl.Statements = append(gl.Statements, info)
		}
		out.Levels = append(out.Levels, gl)
	}

	return r.JSON(out)
}
