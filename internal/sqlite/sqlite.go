// Package sqlite is the SQLite engine adapter for the tidemark registry.
//
// It owns everything the backend-agnostic registry delegates to a dialect:
// the driver registration (including a regexp() function so the REGEXP
// operator works), connection configuration, ledger schema provisioning,
// and timestamp rendering/parsing.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// driverName is the database/sql driver registered by this package.
// It extends go-sqlite3 with a regexp() function for the REGEXP operator.
const driverName = "tidemark_sqlite3"

// timeLayout is how timestamps are stored: UTC text with millisecond
// precision, matching strftime('%Y-%m-%d %H:%M:%f'). Lexicographic order on
// this form equals chronological order, which the ledger's committed_at
// ordering relies on.
const timeLayout = "2006-01-02 15:04:05.000"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			// SQLite's REGEXP operator calls regexp(pattern, text).
			return conn.RegisterFunc("regexp", func(pattern, s string) (bool, error) {
				re, err := regexp.Compile(pattern)
				if err != nil {
					return false, err
				}
				return re.MatchString(s), nil
			}, true)
		},
	})
}

// Open creates or opens a registry database at the given path.
//
// The connection is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - foreign key enforcement
//
// Open does NOT provision the ledger schema; an uninitialized target is a
// legitimate state the registry must observe. Call CreateLedger to provision.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY and keeps open cursors on the same session.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// CreateLedger provisions the five ledger tables. Idempotent; safe to call
// on every startup.
func CreateLedger(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create ledger schema: %w", err)
	}
	return nil
}

// Dialect implements registry.Dialect for SQLite.
type Dialect struct{}

// TimestampExpr renders a timestamp column as parseable text. Columns are
// stored in this form already; strftime re-normalizes anything that is not.
func (Dialect) TimestampExpr(col string) string {
	return fmt.Sprintf("strftime('%%Y-%%m-%%d %%H:%%M:%%f', %s)", col)
}

// FormatTimestamp renders a bind value for a timestamp column.
func (Dialect) FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTimestamp parses a timestamp read back via TimestampExpr.
func (Dialect) ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// RegexOp returns SQLite's pattern-match operator. The driver registered by
// this package supplies the regexp() function it dispatches to.
func (Dialect) RegexOp() string {
	return "REGEXP"
}

// LedgerExists probes sqlite_master for the changes table instead of
// sniffing "no such table" errors off failed queries.
func (Dialect) LedgerExists(ctx context.Context, db *sql.DB) (bool, error) {
	var name string
	err := db.QueryRowContext(ctx, `
		SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'changes'
	`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe ledger schema: %w", err)
	}
	return true, nil
}
