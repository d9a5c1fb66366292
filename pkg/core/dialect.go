package core

import "strings"

// Dialect identifies the SQL dialect fragment files are written in.
type Dialect string

// Supported dialects.
const (
	DialectPostgres Dialect = "postgresql"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
	DialectANSI     Dialect = "ansi"
)

// Dialects lists every supported dialect in display order.
func Dialects() []Dialect {
	return []Dialect{DialectPostgres, DialectMySQL, DialectSQLite, DialectANSI}
}

// ParseDialect converts a user-supplied name (including common aliases) to a Dialect.
func ParseDialect(s string) (Dialect, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgresql", "postgres", "pg":
		return DialectPostgres, true
	case "mysql", "mariadb":
		return DialectMySQL, true
	case "sqlite", "sqlite3":
		return DialectSQLite, true
	case "ansi", "":
		return DialectANSI, true
	default:
		return "", false
	}
}

// NormalizationStrategy defines how unquoted identifiers are normalized.
type NormalizationStrategy int

const (
	// NormLowercase normalizes unquoted identifiers to lowercase (default SQL behavior).
	NormLowercase NormalizationStrategy = iota
	// NormCaseSensitive preserves identifier case exactly.
	NormCaseSensitive
)

// DialectConfig holds the static configuration for a SQL dialect.
// This is pure data, consumed by the DDL tokenizer.
type DialectConfig struct {
	// Name is the dialect identifier
	Name Dialect
	// QuoteChars lists the characters that open a quoted identifier
	QuoteChars string
	// DollarQuoting enables $tag$ ... $tag$ string bodies (PostgreSQL)
	DollarQuoting bool
	// BackslashEscapes treats \' inside string literals as an escaped quote (MySQL)
	BackslashEscapes bool
	// Normalization defines how unquoted identifiers are normalized
	Normalization NormalizationStrategy
	// DefaultSchema is the schema unqualified names live in ("public" for Postgres)
	DefaultSchema string
}

// Config returns the static configuration for the dialect.
// Unknown dialects fall back to ANSI behavior.
func (d Dialect) Config() DialectConfig {
	switch d {
	case DialectPostgres:
		return DialectConfig{
			Name:          d,
			QuoteChars:    `"`,
			DollarQuoting: true,
			Normalization: NormLowercase,
			DefaultSchema: "public",
		}
	case DialectMySQL:
		return DialectConfig{
			Name:             d,
			QuoteChars:       "`\"",
			BackslashEscapes: true,
			Normalization:    NormLowercase,
		}
	case DialectSQLite:
		return DialectConfig{
			Name:          d,
			QuoteChars:    "`\"",
			Normalization: NormLowercase,
			DefaultSchema: "main",
		}
	default:
		return DialectConfig{
			Name:          DialectANSI,
			QuoteChars:    `"`,
			Normalization: NormLowercase,
		}
	}
}

// String returns the dialect name.
func (d Dialect) String() string {
	return string(d)
}
