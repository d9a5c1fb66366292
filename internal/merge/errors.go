package merge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/schemamerge/internal/dag"
)

// Sentinel errors matched by the typed errors below via errors.Is.
var (
	ErrDuplicateName      = errors.New("duplicate object name")
	ErrInvalidOrder       = errors.New("invalid statement order")
	ErrCircularDependency = errors.New("circular dependency")
	ErrSortInconsistent   = dag.ErrSortInconsistent
)

// DuplicateName is one object name declared by more than one file.
type DuplicateName struct {
	Name  string   `json:"name"`
	Files []string `json:"files"`
}

// DuplicateNameError reports object names declared in more than one source file.
type DuplicateNameError struct {
	Duplicates []DuplicateName
}

func (e *DuplicateNameError) Error() string {
	parts := make([]string, 0, len(e.Duplicates))
	for _, d := range e.Duplicates {
		parts = append(parts, fmt.Sprintf("%q in %s", d.Name, strings.Join(d.Files, ", ")))
	}
	return "duplicate object names: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrDuplicateName) match.
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

// InvalidStatementOrderError reports a statement declared before one of its
// dependencies within the same file.
type InvalidStatementOrderError struct {
	File               string
	Statement          string
	Position           int
	Dependency         string
	DependencyPosition int
}

func (e *InvalidStatementOrderError) Error() string {
	return fmt.Sprintf("%s: %q at position %d depends on %q declared later at position %d",
		e.File, e.Statement, e.Position, e.Dependency, e.DependencyPosition)
}

// Is makes errors.Is(err, ErrInvalidOrder) match.
func (e *InvalidStatementOrderError) Is(target error) bool {
	return target == ErrInvalidOrder
}

// CircularDependencyError reports every cycle found in the dependency graph.
type CircularDependencyError struct {
	Cycles [][]string
}

func (e *CircularDependencyError) Error() string {
	chains := make([]string, 0, len(e.Cycles))
	for _, c := range e.Cycles {
		chains = append(chains, dag.FormatCycle(c))
	}
	return "circular dependency detected: " + strings.Join(chains, "; ")
}

// Is makes errors.Is(err, ErrCircularDependency) match.
func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}
