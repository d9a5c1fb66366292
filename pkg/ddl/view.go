package ddl

import "github.com/leapstack-labs/schemamerge/pkg/core"

// extractView handles CREATE [MATERIALIZED] VIEW. Every table referenced in
// the query's FROM and JOIN clauses is a dependency, except names bound by
// WITH common table expressions.
func extractView(raw RawStatement, nameIdx int, n normalizer) (core.Statement, error) {
	toks := raw.Tokens
	parts, i, ok := qualifiedName(toks, nameIdx, n)
	if !ok {
		return core.Statement{}, errorAt(tokenPos(toks, nameIdx, raw), ErrMissingName, "VIEW")
	}

	st := core.Statement{Type: core.StatementView, Name: n.join(parts)}

	// Skip the column list and WITH (options) up to AS.
	for i < len(toks) && !toks[i].Is("AS") {
		if toks[i].IsPunct('(') {
			i = skipParens(toks, i)
			continue
		}
		i++
	}
	if i >= len(toks) {
		return core.Statement{}, errorAt(tokenPos(toks, nameIdx, raw), "%s", ErrMissingViewQuery)
	}

	var deps depList
	for _, ref := range tableRefs(toks[i+1:], n) {
		deps.add(ref, core.StatementTable)
	}
	st.DependsOn = deps.list
	return st, nil
}

// tableRefs returns the names referenced as tables in a query, in order of
// appearance, excluding CTE names.
func tableRefs(tokens []Token, n normalizer) []string {
	ctes := collectCTEs(tokens, n)

	var refs []string
	addRef := func(parts []string) {
		name := n.join(parts)
		if len(parts) == 1 && ctes[name] {
			return
		}
		refs = append(refs, name)
	}

	// Each parenthesis level tracks whether a SELECT has been seen, so FROM
	// inside EXTRACT(... FROM ...) is ignored, and whether it is inside a
	// FROM clause, where a comma at that level starts another table.
	type level struct{ selects, inFrom bool }
	levels := []level{{}}

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		cur := &levels[len(levels)-1]
		switch {
		case t.IsPunct('('):
			levels = append(levels, level{})
			continue
		case t.IsPunct(')'):
			if len(levels) > 1 {
				levels = levels[:len(levels)-1]
			}
			continue
		case t.Is("SELECT"):
			cur.selects = true
			cur.inFrom = false
			continue
		case t.Is("FROM"):
			if !cur.selects || (i > 0 && tokens[i-1].Is("DISTINCT")) {
				continue
			}
			cur.inFrom = true
		case t.Is("JOIN"), t.Is("STRAIGHT_JOIN"):
		case t.IsPunct(','):
			if !cur.inFrom {
				continue
			}
		default:
			if fromEnds[lower(t)] {
				cur.inFrom = false
			}
			continue
		}

		j := skipKeywords(tokens, i+1, "LATERAL")
		j = skipKeywords(tokens, j, "ONLY")
		if j >= len(tokens) {
			continue
		}

		switch {
		case tokens[j].IsPunct('('):
			// Parenthesized join: the first table inside has no FROM/JOIN before it.
			if j+1 < len(tokens) && tokens[j+1].IsIdent() && !isQueryStart(tokens[j+1]) {
				if p, _, ok := qualifiedName(tokens, j+1, n); ok {
					addRef(p)
				}
			}
		case tokens[j].IsIdent():
			p, after, _ := qualifiedName(tokens, j, n)
			// Table functions such as generate_series(...) are not tables.
			if after >= len(tokens) || !tokens[after].IsPunct('(') {
				addRef(p)
			}
		}
	}
	return refs
}

// fromEnds are the keywords that close a FROM clause at their level.
var fromEnds = map[string]bool{
	"where": true, "group": true, "having": true, "window": true, "qualify": true,
	"order": true, "limit": true, "offset": true, "fetch": true, "for": true,
	"union": true, "except": true, "intersect": true, "returning": true,
}

func isQueryStart(t Token) bool {
	return t.Is("SELECT") || t.Is("WITH") || t.Is("VALUES") || t.Is("TABLE")
}

// collectCTEs returns the names bound by every WITH clause in tokens.
func collectCTEs(tokens []Token, n normalizer) map[string]bool {
	ctes := make(map[string]bool)
	for i := range tokens {
		if !tokens[i].Is("WITH") {
			continue
		}
		j := skipKeywords(tokens, i+1, "RECURSIVE")
		for j < len(tokens) && tokens[j].IsIdent() {
			name := n.part(tokens[j])
			k := j + 1
			if k < len(tokens) && tokens[k].IsPunct('(') {
				k = skipParens(tokens, k)
			}
			if k >= len(tokens) || !tokens[k].Is("AS") {
				break
			}
			k = skipKeywords(tokens, k+1, "NOT")
			k = skipKeywords(tokens, k, "MATERIALIZED")
			if k >= len(tokens) || !tokens[k].IsPunct('(') {
				break
			}
			ctes[name] = true
			k = skipParens(tokens, k)
			if k < len(tokens) && tokens[k].IsPunct(',') {
				j = k + 1
				continue
			}
			break
		}
	}
	return ctes
}
