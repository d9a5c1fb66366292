package merge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/schemamerge/pkg/core"
)

func table(file, name string, deps ...string) core.Statement {
	s := core.Statement{Type: core.StatementTable, Name: name, SourceFile: file}
	for _, d := range deps {
		s.DependsOn = append(s.DependsOn, core.Dependency{Name: d, Type: core.StatementTable})
	}
	return s
}

func names(stmts []core.Statement) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.Name
	}
	return out
}

func TestValidateUniqueNames(t *testing.T) {
	tests := []struct {
		name    string
		stmts   []core.Statement
		wantErr bool
		want    []DuplicateName
	}{
		{
			name:  "all unique",
			stmts: []core.Statement{table("a.sql", "users"), table("b.sql", "posts")},
		},
		{
			name:  "same file repeat is not flagged",
			stmts: []core.Statement{table("a.sql", "users"), table("a.sql", "users")},
		},
		{
			name:    "two files",
			stmts:   []core.Statement{table("b.sql", "users"), table("a.sql", "users")},
			wantErr: true,
			want:    []DuplicateName{{Name: "users", Files: []string{"a.sql", "b.sql"}}},
		},
		{
			name: "three files deduplicated and sorted",
			stmts: []core.Statement{
				table("c.sql", "users"),
				table("a.sql", "users"),
				table("c.sql", "users"),
				table("b.sql", "users"),
			},
			wantErr: true,
			want:    []DuplicateName{{Name: "users", Files: []string{"a.sql", "b.sql", "c.sql"}}},
		},
		{
			name: "several names sorted",
			stmts: []core.Statement{
				table("a.sql", "widgets"),
				table("b.sql", "widgets"),
				table("a.sql", "gadgets"),
				table("c.sql", "gadgets"),
			},
			wantErr: true,
			want: []DuplicateName{
				{Name: "gadgets", Files: []string{"a.sql", "c.sql"}},
				{Name: "widgets", Files: []string{"a.sql", "b.sql"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUniqueNames(tt.stmts)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDuplicateName)

			var dupErr *DuplicateNameError
			require.ErrorAs(t, err, &dupErr)
			assert.Equal(t, tt.want, dupErr.Duplicates)
		})
	}
}

func TestValidateUniqueNames_MessageNamesBothFiles(t *testing.T) {
	err := ValidateUniqueNames([]core.Statement{
		table("a.sql", "users"),
		table("b.sql", "users"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.sql")
	assert.Contains(t, err.Error(), "b.sql")
	assert.Contains(t, err.Error(), "users")
}

func TestValidateFileOrder(t *testing.T) {
	t.Run("dependent declared first fails", func(t *testing.T) {
		err := ValidateFileOrder([]core.Statement{
			table("shop.sql", "orders", "customers"),
			table("shop.sql", "customers"),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidOrder)

		var orderErr *InvalidStatementOrderError
		require.ErrorAs(t, err, &orderErr)
		assert.Equal(t, "shop.sql", orderErr.File)
		assert.Equal(t, "orders", orderErr.Statement)
		assert.Equal(t, 0, orderErr.Position)
		assert.Equal(t, "customers", orderErr.Dependency)
		assert.Equal(t, 1, orderErr.DependencyPosition)
	})

	t.Run("dependency declared first passes", func(t *testing.T) {
		err := ValidateFileOrder([]core.Statement{
			table("shop.sql", "customers"),
			table("shop.sql", "orders", "customers"),
		})
		assert.NoError(t, err)
	})

	t.Run("cross file dependency is not checked", func(t *testing.T) {
		err := ValidateFileOrder([]core.Statement{
			table("orders.sql", "orders", "customers"),
			table("orders.sql", "line_items", "orders"),
			table("customers.sql", "customers"),
		})
		assert.NoError(t, err)
	})

	t.Run("repeated name is judged per record", func(t *testing.T) {
		err := ValidateFileOrder([]core.Statement{
			table("f.sql", "x"),
			table("f.sql", "y"),
			table("f.sql", "x", "y"),
		})
		assert.NoError(t, err)
	})

	t.Run("repeated name still fails on its own late dependency", func(t *testing.T) {
		err := ValidateFileOrder([]core.Statement{
			table("f.sql", "x"),
			table("f.sql", "x", "y"),
			table("f.sql", "y"),
		})
		var orderErr *InvalidStatementOrderError
		require.ErrorAs(t, err, &orderErr)
		assert.Equal(t, "x", orderErr.Statement)
		assert.Equal(t, 1, orderErr.Position)
		assert.Equal(t, 2, orderErr.DependencyPosition)
	})

	t.Run("self reference never fails", func(t *testing.T) {
		err := ValidateFileOrder([]core.Statement{
			table("hr.sql", "departments"),
			table("hr.sql", "employees", "employees", "departments"),
		})
		assert.NoError(t, err)
	})

	t.Run("single statement file is skipped", func(t *testing.T) {
		err := ValidateFileOrder([]core.Statement{
			table("a.sql", "a", "b"),
		})
		assert.NoError(t, err)
	})

	t.Run("files are checked independently", func(t *testing.T) {
		err := ValidateFileOrder([]core.Statement{
			table("a.sql", "x"),
			table("b.sql", "y", "z"),
			table("a.sql", "w", "x"),
			table("b.sql", "z"),
		})
		var orderErr *InvalidStatementOrderError
		require.ErrorAs(t, err, &orderErr)
		assert.Equal(t, "b.sql", orderErr.File)
		assert.Equal(t, 0, orderErr.Position)
		assert.Equal(t, 1, orderErr.DependencyPosition)
	})
}

func TestMerge_Chain(t *testing.T) {
	inputs := [][]core.Statement{
		{table("users.sql", "users"), table("posts.sql", "posts", "users"), table("comments.sql", "comments", "posts")},
		{table("comments.sql", "comments", "posts"), table("posts.sql", "posts", "users"), table("users.sql", "users")},
		{table("posts.sql", "posts", "users"), table("comments.sql", "comments", "posts"), table("users.sql", "users")},
	}

	for _, input := range inputs {
		ordered, err := Merge(input, Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"users", "posts", "comments"}, names(ordered))
	}
}

func TestMerge_Hierarchical(t *testing.T) {
	ordered, err := Merge([]core.Statement{
		table("employees.sql", "employees", "employees"),
	}, Options{})

	require.NoError(t, err)
	assert.Equal(t, []string{"employees"}, names(ordered))
}

func TestMerge_Cycle(t *testing.T) {
	_, err := Merge([]core.Statement{
		table("a.sql", "a", "c"),
		table("b.sql", "b", "a"),
		table("c.sql", "c", "b"),
	}, Options{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircularDependency)

	var cycleErr *CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
	require.Len(t, cycleErr.Cycles, 1)

	cycle := cycleErr.Cycles[0]
	require.Len(t, cycle, 4)
	assert.Equal(t, cycle[0], cycle[3])

	// Rotation of a -> c -> b -> a
	rotations := [][]string{
		{"a", "c", "b", "a"},
		{"c", "b", "a", "c"},
		{"b", "a", "c", "b"},
	}
	assert.Contains(t, rotations, cycle)
	assert.Contains(t, err.Error(), " -> ")
}

func TestMerge_Duplicate(t *testing.T) {
	_, err := Merge([]core.Statement{
		table("catalog.sql", "widgets"),
		table("inventory.sql", "widgets", "missing"),
		// Would be a cycle if graph work happened before the uniqueness check.
		table("loop.sql", "x", "y"),
		table("loop.sql", "y", "x"),
	}, Options{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.NotErrorIs(t, err, ErrCircularDependency)

	var dupErr *DuplicateNameError
	require.ErrorAs(t, err, &dupErr)
	require.Len(t, dupErr.Duplicates, 1)
	assert.Equal(t, []string{"catalog.sql", "inventory.sql"}, dupErr.Duplicates[0].Files)
}

func TestMerge_FileOrder(t *testing.T) {
	input := []core.Statement{
		table("shop.sql", "orders", "customers"),
		table("shop.sql", "customers"),
	}

	_, err := Merge(input, Options{})
	assert.ErrorIs(t, err, ErrInvalidOrder)

	ordered, err := Merge(input, Options{AllowReorder: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders"}, names(ordered))
}

func TestMerge_OrderCheckRunsBeforeCycleCheck(t *testing.T) {
	_, err := Merge([]core.Statement{
		table("loop.sql", "a", "b"),
		table("loop.sql", "b", "a"),
	}, Options{})
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = Merge([]core.Statement{
		table("loop.sql", "a", "b"),
		table("loop.sql", "b", "a"),
	}, Options{AllowReorder: true})
	assert.ErrorIs(t, err, ErrCircularDependency)
}

func TestMerge_Empty(t *testing.T) {
	ordered, err := Merge(nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, ordered)
}

func TestPlan_Dangling(t *testing.T) {
	res, err := Plan([]core.Statement{
		table("orders.sql", "orders", "customers", "audit_log"),
		table("items.sql", "items", "orders", "customers"),
	}, Options{})

	require.NoError(t, err)
	assert.Equal(t, []string{"audit_log", "customers"}, res.Dangling)
	assert.Equal(t, []string{"orders", "items"}, names(res.Ordered))
	assert.Equal(t, 4, res.Graph.NodeCount())
}

func TestMerge_TopologicalProperty(t *testing.T) {
	input := []core.Statement{
		table("a.sql", "invoice_lines", "invoices", "products"),
		table("b.sql", "invoices", "customers"),
		table("c.sql", "customers", "regions"),
		table("d.sql", "regions"),
		table("e.sql", "products", "categories"),
		table("f.sql", "categories", "categories"),
	}

	ordered, err := Merge(input, Options{})
	require.NoError(t, err)
	require.Len(t, ordered, len(input))

	pos := make(map[string]int)
	for i, s := range ordered {
		pos[s.Name] = i
	}
	for _, s := range input {
		for _, d := range s.DependsOn {
			if d.Name == s.Name {
				continue
			}
			assert.Less(t, pos[d.Name], pos[s.Name], "%s should precede %s", d.Name, s.Name)
		}
	}
}

func TestErrorsWrap(t *testing.T) {
	var err error = &CircularDependencyError{Cycles: [][]string{{"a", "b", "a"}}}
	wrapped := errors.Join(errors.New("context"), err)
	assert.ErrorIs(t, wrapped, ErrCircularDependency)
	assert.Equal(t, "circular dependency detected: a -> b -> a", err.Error())
}
