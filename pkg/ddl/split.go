package ddl

import (
	"strings"

	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// RawStatement is one top-level statement cut out of a file.
type RawStatement struct {
	// Text is the statement source without its terminating semicolon.
	// Comments preceding the statement are kept; comments after its last
	// token are dropped.
	Text string
	// Line is the line of the statement's first token
	Line int
	// Tokens holds the statement's tokens, without EOF
	Tokens []Token
}

// Split cuts input into top-level statements at semicolons outside
// parentheses, strings, comments, dollar-quoted bodies and trigger
// BEGIN ... END blocks. Segments holding only comments are dropped.
func Split(input string, dialect core.Dialect) ([]RawStatement, error) {
	tokens, err := Tokenize(input, dialect)
	if err != nil {
		return nil, err
	}

	var (
		out      []RawStatement
		cur      []Token
		opens    []Position
		block    int
		segStart int
		prev     Token
	)

	flush := func() {
		if len(cur) > 0 {
			end := cur[len(cur)-1].End
			out = append(out, RawStatement{
				Text:   strings.TrimSpace(input[segStart:end]),
				Line:   cur[0].Pos.Line,
				Tokens: cur,
			})
		}
		cur = nil
	}

	for i, tok := range tokens {
		switch {
		case tok.Kind == TokenEOF:
			if len(opens) > 0 {
				return nil, errorAt(opens[len(opens)-1], "%s", ErrUnbalancedParens)
			}
			flush()
			return out, nil
		case tok.IsPunct('('):
			opens = append(opens, tok.Pos)
		case tok.IsPunct(')'):
			if len(opens) == 0 {
				return nil, errorAt(tok.Pos, "%s", ErrUnbalancedParens)
			}
			opens = opens[:len(opens)-1]
		case tok.Is("BEGIN") && isTrigger(cur):
			block++
		case tok.Is("CASE") && block > 0 && !prev.Is("END"):
			block++
		case tok.Is("END") && block > 0 && !closesStatementBlock(tokens, i):
			block--
		case tok.IsPunct(';') && len(opens) == 0 && block == 0:
			flush()
			segStart = tok.End
			prev = tok
			continue
		}
		cur = append(cur, tok)
		prev = tok
	}

	flush()
	return out, nil
}

// closesStatementBlock reports whether the END at tokens[i] closes a
// procedural IF, LOOP, WHILE or REPEAT block rather than BEGIN or CASE.
func closesStatementBlock(tokens []Token, i int) bool {
	if i+1 >= len(tokens) {
		return false
	}
	next := tokens[i+1]
	return next.Is("IF") || next.Is("LOOP") || next.Is("WHILE") || next.Is("REPEAT")
}

// isTrigger reports whether the tokens so far open a CREATE ... TRIGGER statement.
func isTrigger(tokens []Token) bool {
	if len(tokens) == 0 || !tokens[0].Is("CREATE") {
		return false
	}
	for _, t := range tokens[1:] {
		switch {
		case t.Is("TRIGGER"):
			return true
		case t.Is("OR"), t.Is("REPLACE"), t.Is("TEMP"), t.Is("TEMPORARY"), t.Is("CONSTRAINT"):
			continue
		default:
			return false
		}
	}
	return false
}
