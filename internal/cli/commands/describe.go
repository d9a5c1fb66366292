package commands

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/schemamerge/internal/cli/output"
	"github.com/leapstack-labs/schemamerge/internal/dag"
	"github.com/leapstack-labs/schemamerge/pkg/core"
)

var titleCaser = cases.Title(language.English)

// typeLabel returns a display label such as "Table" or "View".
func typeLabel(kind string) string {
	return titleCaser.String(kind)
}

// describe builds the JSON description of a statement within g.
func describe(st core.Statement, g *dag.Graph) output.StatementInfo {
	info := output.StatementInfo{
		Name:      st.Name,
		Type:      st.Type.String(),
		File:      st.SourceFile,
		Position:  st.Position,
		DependsOn: st.DependencyNames(),
	}
	if g != nil {
		info.Dependents = g.NonSelfDependents(st.Name)
	}
	return info
}

// byName indexes statements by name.
func byName(stmts []core.Statement) map[string]core.Statement {
	m := make(map[string]core.Statement, len(stmts))
	for _, st := range stmts {
		m[st.Name] = st
	}
	return m
}
