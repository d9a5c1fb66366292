// Package core defines the shared language of the schemamerge system.
//
// This package contains:
//   - Domain entities (Statement, Dependency, StatementType)
//   - Dialect identifiers and their static configuration
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
