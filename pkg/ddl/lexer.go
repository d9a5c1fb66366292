package ddl

import (
	"strings"
	"unicode"

	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// Lexer tokenizes DDL input for one dialect.
type Lexer struct {
	input   string
	cfg     core.DialectConfig
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
	err     *ExtractError
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string, cfg core.DialectConfig) *Lexer {
	l := &Lexer{
		input: input,
		cfg:   cfg,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// Err returns the first lexical error encountered, if any.
func (l *Lexer) Err() error {
	if l.err == nil {
		return nil
	}
	return l.err
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) currentPos() Position {
	return Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

func (l *Lexer) fail(pos Position, msg string) {
	if l.err == nil {
		l.err = errorAt(pos, "%s", msg)
	}
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	tok := Token{Pos: pos}

	switch {
	case l.atEOF():
		tok.Kind = TokenEOF
		tok.End = len(l.input)
		return tok
	case l.ch == '\'':
		tok.Kind = TokenString
		tok.Literal = l.readString()
	case strings.IndexByte(l.cfg.QuoteChars, l.ch) >= 0:
		tok.Kind = TokenQuotedIdent
		tok.Literal = l.readQuotedIdentifier(l.ch)
	case l.ch == '$' && l.cfg.DollarQuoting && l.dollarTag() != "":
		tok.Kind = TokenDollarString
		tok.Literal = l.readDollarString()
	case isLetter(l.ch) || l.ch == '_':
		tok.Kind = TokenWord
		tok.Literal = l.readIdentifier()
	case isDigit(l.ch):
		tok.Kind = TokenNumber
		tok.Literal = l.readNumber()
	default:
		tok.Kind = TokenPunct
		tok.Literal = string(l.ch)
		l.readChar()
	}

	tok.End = l.pos
	return tok
}

// skipWhitespaceAndComments skips whitespace and comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}

		// Line comment (-- ...), plus # ... in MySQL
		if (l.ch == '-' && l.peekChar() == '-') || (l.ch == '#' && l.cfg.Name == core.DialectMySQL) {
			l.skipLineComment()
			continue
		}

		// Block comment (/* ... */)
		if l.ch == '/' && l.peekChar() == '*' {
			l.skipBlockComment()
			continue
		}

		break
	}
}

// skipLineComment skips a line comment.
func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}
}

// skipBlockComment skips a block comment.
func (l *Lexer) skipBlockComment() {
	start := l.currentPos()
	l.readChar() // skip '/'
	l.readChar() // skip '*'

	for {
		if l.atEOF() {
			l.fail(start, ErrUnterminatedComment)
			return
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar() // skip '*'
			l.readChar() // skip '/'
			return
		}
		l.readChar()
	}
}

// readString reads a single-quoted string literal.
// A doubled single quote inside the literal is an escaped quote.
func (l *Lexer) readString() string {
	start := l.currentPos()
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		if l.atEOF() {
			l.fail(start, ErrUnterminatedString)
			break
		}
		if l.ch == '\\' && l.cfg.BackslashEscapes {
			l.readChar()
			if !l.atEOF() {
				result.WriteByte(l.ch)
				l.readChar()
			}
			continue
		}
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				result.WriteByte('\'')
				l.readChar()
				l.readChar()
			} else {
				l.readChar() // skip closing quote
				break
			}
		} else {
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
	return result.String()
}

// readQuotedIdentifier reads an identifier quoted with q.
// Handles doubled quotes as escape: "col""name" -> col"name
func (l *Lexer) readQuotedIdentifier(q byte) string {
	start := l.currentPos()
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		if l.atEOF() {
			l.fail(start, ErrUnterminatedIdentifier)
			break
		}
		if l.ch == q {
			if l.peekChar() == q {
				result.WriteByte(q)
				l.readChar()
				l.readChar()
			} else {
				l.readChar() // skip closing quote
				break
			}
		} else {
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
	return result.String()
}

// dollarTag returns the $tag$ opener at the current position, or "" if there is none.
func (l *Lexer) dollarTag() string {
	end := l.pos + 1
	for end < len(l.input) && (isLetter(l.input[end]) || isDigit(l.input[end]) || l.input[end] == '_') {
		end++
	}
	if end >= len(l.input) || l.input[end] != '$' {
		return ""
	}
	// $1 is a positional parameter, not a tag.
	if end > l.pos+1 && isDigit(l.input[l.pos+1]) {
		return ""
	}
	return l.input[l.pos : end+1]
}

// readDollarString reads a $tag$ ... $tag$ body and returns its content.
func (l *Lexer) readDollarString() string {
	start := l.currentPos()
	tag := l.dollarTag()
	for i := 0; i < len(tag); i++ {
		l.readChar()
	}

	bodyStart := l.pos
	idx := strings.Index(l.input[bodyStart:], tag)
	if idx < 0 {
		l.fail(start, ErrUnterminatedDollar)
		for !l.atEOF() {
			l.readChar()
		}
		return l.input[bodyStart:]
	}

	body := l.input[bodyStart : bodyStart+idx]
	for i := 0; i < idx+len(tag); i++ {
		l.readChar()
	}
	return body
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar() // skip 'e' or 'E'
		if l.ch == '+' || l.ch == '-' {
			l.readChar() // skip sign
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// isLetter returns true if ch is a letter. Bytes of multi-byte UTF-8
// sequences count as letters so non-ASCII identifiers stay whole.
func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch >= 0x80
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, ending with a TokenEOF token.
func Tokenize(input string, dialect core.Dialect) ([]Token, error) {
	l := NewLexer(input, dialect.Config())
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			break
		}
	}
	return tokens, l.Err()
}
