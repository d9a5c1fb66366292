// Package ddl extracts schema statements from SQL data-definition text.
//
// Input is split into top-level statements, each statement is classified by
// the kind of object it creates, and a pure extraction function for that kind
// produces a core.Statement naming the object and the objects it references.
// Statements of unsupported kinds (indexes, functions, triggers, ALTER, DML)
// are skipped.
package ddl

import (
	"errors"
	"strings"

	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// Options configures extraction.
type Options struct {
	// Dialect selects quoting and comment rules
	Dialect core.Dialect
	// DefaultSchema is stripped from qualified names so "public.users" and
	// "users" name the same object. Empty uses the dialect default.
	DefaultSchema string
}

// extractor builds a statement from a classified raw statement.
// nameIdx is the index of the token starting the object name.
type extractor func(raw RawStatement, nameIdx int, n normalizer) (core.Statement, error)

// extractors is the lookup table of supported statement kinds.
var extractors = map[core.StatementType]extractor{
	core.StatementTable:    extractTable,
	core.StatementView:     extractView,
	core.StatementSequence: extractSequence,
}

// Supports reports whether statements of the given kind are extracted.
func Supports(t core.StatementType) bool {
	_, ok := extractors[t]
	return ok
}

// Extract returns the schema statements defined in sql, in declared order.
// file is recorded as each statement's SourceFile and in errors.
func Extract(sql, file string, opts Options) ([]core.Statement, error) {
	stmts, _, err := ExtractWithSkipped(sql, file, opts)
	return stmts, err
}

// Skipped is a statement Extract leaves out of the schema, such as
// CREATE INDEX, ALTER TABLE or INSERT.
type Skipped struct {
	Line int
	// Kind is the leading keywords, e.g. "CREATE INDEX"
	Kind string
}

// ExtractWithSkipped is Extract that also reports the statements it dropped.
func ExtractWithSkipped(sql, file string, opts Options) ([]core.Statement, []Skipped, error) {
	cfg := opts.Dialect.Config()
	n := newNormalizer(cfg, opts.DefaultSchema)

	raws, err := Split(sql, opts.Dialect)
	if err != nil {
		return nil, nil, withFile(err, file)
	}

	var (
		out     []core.Statement
		skipped []Skipped
	)
	for _, raw := range raws {
		kind, nameIdx, ok := Classify(raw.Tokens)
		if ok {
			_, ok = extractors[kind]
		}
		if !ok {
			skipped = append(skipped, Skipped{Line: raw.Line, Kind: statementKind(raw.Tokens)})
			continue
		}

		st, err := extractors[kind](raw, nameIdx, n)
		if err != nil {
			return nil, nil, withFile(err, file)
		}
		st.SourceFile = file
		st.Position = len(out)
		st.RawContent = raw.Text
		out = append(out, st)
	}
	return out, skipped, nil
}

// statementKind names a statement by its verb and, for CREATE, the object
// keyword after any modifiers: "CREATE UNIQUE INDEX" is "CREATE INDEX".
func statementKind(tokens []Token) string {
	if len(tokens) == 0 {
		return ""
	}
	verb := strings.ToUpper(tokens[0].Literal)
	if !tokens[0].Is("CREATE") {
		if len(tokens) > 1 && tokens[1].Kind == TokenWord {
			return verb + " " + strings.ToUpper(tokens[1].Literal)
		}
		return verb
	}
	for _, t := range tokens[1:] {
		if unsupportedKinds[lower(t)] {
			return verb + " " + strings.ToUpper(t.Literal)
		}
		if t.IsPunct('(') || t.Is("AS") || t.Is("ON") {
			break
		}
	}
	return verb
}

func withFile(err error, file string) error {
	var extractErr *ExtractError
	if errors.As(err, &extractErr) && extractErr.File == "" {
		extractErr.File = file
	}
	return err
}

// Classify determines which kind of object a CREATE statement creates.
// It returns the kind and the index of the token where the object name
// starts. ok is false for statements that are not CREATE TABLE, VIEW or
// SEQUENCE.
func Classify(tokens []Token) (kind core.StatementType, nameIdx int, ok bool) {
	if len(tokens) == 0 || !tokens[0].Is("CREATE") {
		return 0, 0, false
	}

	for i := 1; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.Is("TABLE"):
			kind = core.StatementTable
		case t.Is("VIEW"):
			kind = core.StatementView
		case t.Is("SEQUENCE"):
			kind = core.StatementSequence
		case t.IsPunct('('), t.Is("AS"), t.Is("ON"):
			return 0, 0, false
		case unsupportedKinds[lower(t)]:
			return 0, 0, false
		default:
			// Modifiers: OR REPLACE, TEMPORARY, UNLOGGED, MATERIALIZED,
			// RECURSIVE, ALGORITHM=..., DEFINER=..., SQL SECURITY ...
			continue
		}
		return kind, skipKeywords(tokens, i+1, "IF", "NOT", "EXISTS"), true
	}
	return 0, 0, false
}

var unsupportedKinds = map[string]bool{
	"index":       true,
	"function":    true,
	"procedure":   true,
	"trigger":     true,
	"type":        true,
	"schema":      true,
	"extension":   true,
	"database":    true,
	"domain":      true,
	"role":        true,
	"user":        true,
	"policy":      true,
	"rule":        true,
	"aggregate":   true,
	"event":       true,
	"publication": true,
	"collation":   true,
	"operator":    true,
	"tablespace":  true,
	"server":      true,
}

func lower(t Token) string {
	if t.Kind != TokenWord {
		return ""
	}
	return strings.ToLower(t.Literal)
}

// depList collects dependencies, dropping repeats and keeping first-seen order.
type depList struct {
	seen map[string]bool
	list []core.Dependency
}

func (d *depList) add(name string, t core.StatementType) {
	if name == "" {
		return
	}
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[name] {
		return
	}
	d.seen[name] = true
	d.list = append(d.list, core.Dependency{Name: name, Type: t})
}

// ResolveDependencyTypes sets each dependency's Type to the type of the
// statement defining it, when one is present in stmts. References found in
// view queries are recorded as tables until resolved here.
func ResolveDependencyTypes(stmts []core.Statement) []core.Statement {
	defined := make(map[string]core.StatementType, len(stmts))
	for _, s := range stmts {
		defined[s.Name] = s.Type
	}

	out := make([]core.Statement, len(stmts))
	for i, s := range stmts {
		deps := make([]core.Dependency, len(s.DependsOn))
		for j, d := range s.DependsOn {
			if t, ok := defined[d.Name]; ok {
				d.Type = t
			}
			deps[j] = d
		}
		s.DependsOn = deps
		out[i] = s
	}
	return out
}

// NormalizeName converts a user-written object name such as `public."Users"`
// to the canonical form Extract produces.
func NormalizeName(name string, opts Options) string {
	n := newNormalizer(opts.Dialect.Config(), opts.DefaultSchema)
	return n.nameFromString(strings.TrimSpace(name))
}
