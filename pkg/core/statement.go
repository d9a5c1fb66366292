package core

import "strings"

// =============================================================================
// StatementType
// =============================================================================

// StatementType identifies the kind of schema object a statement creates.
type StatementType int

// Statement types. Only tables, views and sequences are produced by the
// built-in extractors; indexes and functions exist so callers can carry them.
const (
	StatementTable StatementType = iota
	StatementView
	StatementSequence
	StatementIndex
	StatementFunction
)

// String returns the string representation of the statement type.
func (t StatementType) String() string {
	switch t {
	case StatementTable:
		return "table"
	case StatementView:
		return "view"
	case StatementSequence:
		return "sequence"
	case StatementIndex:
		return "index"
	case StatementFunction:
		return "function"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so JSON output carries the name.
func (t StatementType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseStatementType converts a string to a StatementType value.
// Returns the type and true if valid, or StatementTable and false if invalid.
func ParseStatementType(s string) (StatementType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table":
		return StatementTable, true
	case "view":
		return StatementView, true
	case "sequence":
		return StatementSequence, true
	case "index":
		return StatementIndex, true
	case "function":
		return StatementFunction, true
	default:
		return StatementTable, false
	}
}

// =============================================================================
// Statement
// =============================================================================

// Dependency is a reference from one statement to another schema object.
type Dependency struct {
	Name string        `json:"name"`
	Type StatementType `json:"type"`
}

// Statement is one schema-defining statement: a named object plus the
// objects its definition references.
type Statement struct {
	// Type is the kind of object being created
	Type StatementType `json:"type"`
	// Name is the normalized name of the object being created
	Name string `json:"name"`
	// DependsOn lists the objects this definition references (order irrelevant)
	DependsOn []Dependency `json:"depends_on,omitempty"`
	// SourceFile is the file the statement was read from
	SourceFile string `json:"source_file"`
	// Position is the 0-based index of the statement within SourceFile
	Position int `json:"position"`
	// RawContent is the original statement text
	RawContent string `json:"-"`
}

// DependsOnSelf reports whether the statement references its own name.
func (s Statement) DependsOnSelf() bool {
	for _, d := range s.DependsOn {
		if d.Name == s.Name {
			return true
		}
	}
	return false
}

// DependencyNames returns the names of all dependencies in declared order.
func (s Statement) DependencyNames() []string {
	names := make([]string, 0, len(s.DependsOn))
	for _, d := range s.DependsOn {
		names = append(names, d.Name)
	}
	return names
}

// NonSelfDependencyNames returns the dependency names of this record,
// without the statement's own name, in declared order.
func (s Statement) NonSelfDependencyNames() []string {
	names := make([]string, 0, len(s.DependsOn))
	for _, d := range s.DependsOn {
		if d.Name != s.Name {
			names = append(names, d.Name)
		}
	}
	return names
}
