package ddl

import (
	"strings"

	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// normalizer turns identifier tokens into canonical object names.
type normalizer struct {
	strategy      core.NormalizationStrategy
	defaultSchema string
}

func newNormalizer(cfg core.DialectConfig, defaultSchema string) normalizer {
	if defaultSchema == "" {
		defaultSchema = cfg.DefaultSchema
	}
	return normalizer{strategy: cfg.Normalization, defaultSchema: defaultSchema}
}

// part normalizes one identifier token.
func (n normalizer) part(t Token) string {
	if t.Kind == TokenQuotedIdent || n.strategy == core.NormCaseSensitive {
		return t.Literal
	}
	return strings.ToLower(t.Literal)
}

// join builds the canonical name from its parts, dropping the default schema.
func (n normalizer) join(parts []string) string {
	if len(parts) == 2 && n.defaultSchema != "" && parts[0] == n.defaultSchema {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}

// qualifiedName reads a dotted name starting at tokens[i].
// It returns the raw parts and the index just past the name, or ok=false
// if tokens[i] is not an identifier.
func qualifiedName(tokens []Token, i int, n normalizer) (parts []string, next int, ok bool) {
	if i >= len(tokens) || !tokens[i].IsIdent() {
		return nil, i, false
	}
	parts = append(parts, n.part(tokens[i]))
	i++
	for i+1 < len(tokens) && tokens[i].IsPunct('.') && tokens[i+1].IsIdent() {
		parts = append(parts, n.part(tokens[i+1]))
		i += 2
	}
	return parts, i, true
}

// nameFromString parses an object name held in a string literal,
// as in nextval('public."Order_Seq"'). A trailing ::regclass cast is not part of the string.
func (n normalizer) nameFromString(s string) string {
	var parts []string
	for _, raw := range splitQuoted(s) {
		if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
			parts = append(parts, strings.ReplaceAll(raw[1:len(raw)-1], `""`, `"`))
			continue
		}
		if n.strategy == core.NormCaseSensitive {
			parts = append(parts, raw)
		} else {
			parts = append(parts, strings.ToLower(raw))
		}
	}
	return n.join(parts)
}

// splitQuoted splits on dots that are not inside double quotes.
func splitQuoted(s string) []string {
	var parts []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == '.' && !inQuote:
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	parts = append(parts, strings.TrimSpace(cur.String()))
	return parts
}

// skipParens returns the index just past the parenthesized group opening at tokens[i].
func skipParens(tokens []Token, i int) int {
	depth := 0
	for ; i < len(tokens); i++ {
		switch {
		case tokens[i].IsPunct('('):
			depth++
		case tokens[i].IsPunct(')'):
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return i
}

// skipKeywords advances past the keyword sequence kws if it starts at tokens[i].
func skipKeywords(tokens []Token, i int, kws ...string) int {
	for j, kw := range kws {
		if i+j >= len(tokens) || !tokens[i+j].Is(kw) {
			return i
		}
	}
	return i + len(kws)
}
