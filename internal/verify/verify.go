// Package verify executes merged statements against a real database inside
// a transaction that is always rolled back, proving the order is executable.
package verify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver "pgx"
	_ "modernc.org/sqlite"             // SQLite driver (pure Go)

	"github.com/leapstack-labs/schemamerge/pkg/core"
)

// ErrUnknownDriver is returned for driver names Open does not support.
var ErrUnknownDriver = errors.New("unknown verify driver")

// Driver describes a supported database/sql driver.
type Driver struct {
	// Name is the database/sql driver name
	Name string
	// DefaultDSN is used when no DSN is configured
	DefaultDSN string
}

// DriverNames lists the canonical driver names ParseDriver accepts.
func DriverNames() []string {
	return []string{"sqlite", "postgres"}
}

// ParseDriver maps a user-facing driver name to a registered driver.
func ParseDriver(name string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3", "":
		return Driver{Name: "sqlite", DefaultDSN: ":memory:"}, nil
	case "postgres", "postgresql", "pgx", "pg":
		return Driver{Name: "pgx"}, nil
	default:
		return Driver{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownDriver, name, strings.Join(DriverNames(), ", "))
	}
}

// Open opens and pings a database for the named driver.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	d, err := ParseDriver(driver)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		dsn = d.DefaultDSN
	}
	if dsn == "" {
		return nil, fmt.Errorf("verify.dsn is required for driver %s", driver)
	}

	db, err := sql.Open(d.Name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", d.Name, err)
	}
	if d.Name == "sqlite" {
		// A single connection keeps :memory: databases alive across calls.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", d.Name, err)
	}
	return db, nil
}

// Failure describes the first statement the database rejected.
type Failure struct {
	Statement core.Statement
	// Index is the statement's 0-based position in the merged order
	Index int
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("statement %d (%s %s from %s) failed: %v",
		f.Index+1, f.Statement.Type, f.Statement.Name, f.Statement.SourceFile, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Report is the outcome of a verification run.
type Report struct {
	// Executed counts statements that ran successfully
	Executed int
	// Failed is set when a statement was rejected; later statements were not run
	Failed   *Failure
	Duration time.Duration
}

// OK reports whether every statement executed.
func (r *Report) OK() bool {
	return r.Failed == nil
}

// Verifier runs statements against a database.
type Verifier struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a Verifier. If logger is nil, a discard logger is used.
func New(db *sql.DB, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Verifier{db: db, logger: logger}
}

// Run executes stmts in order in one transaction and rolls it back.
// A rejected statement is reported in Report.Failed, not as an error;
// the error return is for connection and transaction problems.
func (v *Verifier) Run(ctx context.Context, stmts []core.Statement) (*Report, error) {
	start := time.Now()
	report := &Report{}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	for i, st := range stmts {
		v.logger.Debug("executing statement",
			"index", i,
			"name", st.Name,
			"type", st.Type.String(),
			"file", st.SourceFile)

		if _, err := tx.ExecContext(ctx, st.RawContent); err != nil {
			report.Failed = &Failure{Statement: st, Index: i, Err: err}
			break
		}
		report.Executed++
	}

	if err := tx.Rollback(); err != nil {
		return nil, fmt.Errorf("failed to roll back verification transaction: %w", err)
	}

	report.Duration = time.Since(start)
	v.logger.Info("verification finished",
		"executed", report.Executed,
		"total", len(stmts),
		"ok", report.OK(),
		"duration_ms", report.Duration.Milliseconds())

	return report, nil
}
