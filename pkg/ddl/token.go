package ddl

import (
	"fmt"
	"strings"
)

// TokenKind represents the kind of a lexical token.
type TokenKind int

const (
	// TokenEOF represents end of input.
	TokenEOF TokenKind = iota
	// TokenWord is an unquoted word: a keyword or a bare identifier.
	TokenWord
	// TokenQuotedIdent is a quoted identifier; Literal holds the unquoted text.
	TokenQuotedIdent
	// TokenString is a single-quoted string literal; Literal holds the unescaped text.
	TokenString
	// TokenDollarString is a $tag$...$tag$ body (PostgreSQL).
	TokenDollarString
	// TokenNumber is a numeric literal.
	TokenNumber
	// TokenPunct is a single punctuation or operator character.
	TokenPunct
)

// String returns a readable name for the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "EOF"
	case TokenWord:
		return "word"
	case TokenQuotedIdent:
		return "quoted identifier"
	case TokenString:
		return "string"
	case TokenDollarString:
		return "dollar-quoted string"
	case TokenNumber:
		return "number"
	case TokenPunct:
		return "punctuation"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Position represents a location in the source.
type Position struct {
	Line   int // 1-based
	Column int // 1-based
	Offset int // 0-based byte offset
}

// Token is a lexical token.
type Token struct {
	Kind    TokenKind
	Literal string
	Pos     Position
	End     int // byte offset just past the token
}

// Is reports whether the token is the unquoted keyword kw (case-insensitive).
func (t Token) Is(kw string) bool {
	return t.Kind == TokenWord && strings.EqualFold(t.Literal, kw)
}

// IsPunct reports whether the token is the punctuation character p.
func (t Token) IsPunct(p byte) bool {
	return t.Kind == TokenPunct && len(t.Literal) == 1 && t.Literal[0] == p
}

// IsIdent reports whether the token can name an object.
func (t Token) IsIdent() bool {
	return t.Kind == TokenWord || t.Kind == TokenQuotedIdent
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Kind, t.Literal)
}
