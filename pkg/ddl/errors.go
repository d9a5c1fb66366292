package ddl

import "fmt"

// ExtractError reports a problem reading DDL, with position information.
type ExtractError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e *ExtractError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
}

// Common error messages
const (
	ErrUnterminatedString     = "unterminated string literal"
	ErrUnterminatedIdentifier = "unterminated quoted identifier"
	ErrUnterminatedDollar     = "unterminated dollar-quoted string"
	ErrUnterminatedComment    = "unterminated block comment"
	ErrUnbalancedParens       = "unbalanced parentheses"
	ErrMissingName            = "expected object name after %s"
	ErrMissingViewQuery       = "expected AS before view query"
)

func errorAt(pos Position, format string, args ...any) *ExtractError {
	return &ExtractError{Line: pos.Line, Column: pos.Column, Message: fmt.Sprintf(format, args...)}
}
