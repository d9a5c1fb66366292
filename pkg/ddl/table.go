package ddl

import "github.com/leapstack-labs/schemamerge/pkg/core"

// extractTable handles CREATE TABLE. Dependencies come from REFERENCES
// clauses, LIKE and INHERITS sources, PARTITION OF parents, nextval()
// sequence defaults and the query of CREATE TABLE ... AS.
func extractTable(raw RawStatement, nameIdx int, n normalizer) (core.Statement, error) {
	toks := raw.Tokens
	parts, i, ok := qualifiedName(toks, nameIdx, n)
	if !ok {
		return core.Statement{}, errorAt(tokenPos(toks, nameIdx, raw), ErrMissingName, "TABLE")
	}

	st := core.Statement{Type: core.StatementTable, Name: n.join(parts)}
	var deps depList

	depth := 0
	for j := i; j < len(toks); j++ {
		t := toks[j]
		switch {
		case t.IsPunct('('):
			depth++
			if depth == 1 && j+1 < len(toks) && toks[j+1].Is("LIKE") {
				if p, _, ok := qualifiedName(toks, j+2, n); ok {
					deps.add(n.join(p), core.StatementTable)
				}
			}
		case t.IsPunct(')'):
			depth--
		case t.IsPunct(',') && depth == 1 && j+1 < len(toks) && toks[j+1].Is("LIKE"):
			if p, _, ok := qualifiedName(toks, j+2, n); ok {
				deps.add(n.join(p), core.StatementTable)
			}
		case t.Is("LIKE") && j == i:
			// MySQL: CREATE TABLE copy LIKE original
			if p, _, ok := qualifiedName(toks, j+1, n); ok {
				deps.add(n.join(p), core.StatementTable)
			}
		case t.Is("REFERENCES"):
			if p, next, ok := qualifiedName(toks, j+1, n); ok {
				deps.add(n.join(p), core.StatementTable)
				j = next - 1
			}
		case t.Is("INHERITS") && depth == 0 && j+1 < len(toks) && toks[j+1].IsPunct('('):
			k := j + 2
			for {
				p, next, ok := qualifiedName(toks, k, n)
				if !ok {
					break
				}
				deps.add(n.join(p), core.StatementTable)
				if next < len(toks) && toks[next].IsPunct(',') {
					k = next + 1
					continue
				}
				break
			}
		case t.Is("PARTITION") && depth == 0 && j+1 < len(toks) && toks[j+1].Is("OF"):
			if p, _, ok := qualifiedName(toks, j+2, n); ok {
				deps.add(n.join(p), core.StatementTable)
			}
		case t.Is("NEXTVAL") && j+2 < len(toks) && toks[j+1].IsPunct('(') && toks[j+2].Kind == TokenString:
			deps.add(n.nameFromString(toks[j+2].Literal), core.StatementSequence)
		case t.Is("AS") && depth == 0:
			for _, ref := range tableRefs(toks[j+1:], n) {
				deps.add(ref, core.StatementTable)
			}
			st.DependsOn = deps.list
			return st, nil
		}
	}

	st.DependsOn = deps.list
	return st, nil
}

// extractSequence handles CREATE SEQUENCE. OWNED BY table.column makes the
// sequence depend on the owning table.
func extractSequence(raw RawStatement, nameIdx int, n normalizer) (core.Statement, error) {
	toks := raw.Tokens
	parts, i, ok := qualifiedName(toks, nameIdx, n)
	if !ok {
		return core.Statement{}, errorAt(tokenPos(toks, nameIdx, raw), ErrMissingName, "SEQUENCE")
	}

	st := core.Statement{Type: core.StatementSequence, Name: n.join(parts)}
	var deps depList

	for j := i; j+1 < len(toks); j++ {
		if !toks[j].Is("OWNED") || !toks[j+1].Is("BY") {
			continue
		}
		owner, _, ok := qualifiedName(toks, j+2, n)
		if ok && len(owner) >= 2 {
			deps.add(n.join(owner[:len(owner)-1]), core.StatementTable)
		}
	}

	st.DependsOn = deps.list
	return st, nil
}

// tokenPos returns the position of tokens[i], or of the statement start when i is out of range.
func tokenPos(tokens []Token, i int, raw RawStatement) Position {
	if i < len(tokens) {
		return tokens[i].Pos
	}
	if len(tokens) > 0 {
		return tokens[len(tokens)-1].Pos
	}
	return Position{Line: raw.Line, Column: 1}
}
