// Package registry implements the deployment ledger at the heart of
// tidemark: which changes are deployed to a target database, in what order,
// with what tags and dependencies, plus the append-only audit trail of
// deploy/revert/fail events.
//
// The ledger is five tables:
//
//   - projects: registered migration plans
//   - changes: currently deployed changes (one row per deployed change)
//   - tags: release markers on deployed changes
//   - dependencies: require/conflict rows for deployed changes
//   - events: the permanent audit trail, never updated or deleted
//
// Change, tag, and dependency rows are a projection of "currently deployed";
// they are created on deploy and deleted on revert, with their content copied
// into the revert event before deletion. The events table alone could
// reconstruct them, but they are maintained directly so state queries stay
// cheap.
//
// The registry itself is backend-agnostic. Everything dialect-specific comes
// in through the Dialect interface, implemented per database engine.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Dialect supplies the engine-specific pieces the ledger SQL needs.
// One implementation exists per database backend; see internal/sqlite.
type Dialect interface {
	// TimestampExpr returns a SQL fragment that selects the named timestamp
	// column in the textual form ParseTimestamp understands.
	TimestampExpr(col string) string

	// FormatTimestamp renders a timestamp as the bind value for a
	// timestamp column.
	FormatTimestamp(t time.Time) string

	// ParseTimestamp parses a timestamp read back via TimestampExpr.
	ParseTimestamp(s string) (time.Time, error)

	// RegexOp returns the dialect's pattern-match predicate operator token,
	// e.g. "REGEXP" for SQLite or "~" for PostgreSQL.
	RegexOp() string

	// LedgerExists reports whether the ledger schema has been provisioned
	// on the connected database. Callers probe explicitly instead of
	// sniffing driver error strings.
	LedgerExists(ctx context.Context, db *sql.DB) (bool, error)
}

// execer abstracts *sql.DB and *sql.Tx so write paths run inside or outside
// a caller-managed transaction with the same code.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Registry records and queries the deployment ledger for one project on one
// target database. It holds a single logical connection and does no internal
// locking or retrying; isolation is whatever the backend provides.
type Registry struct {
	db      *sql.DB
	dialect Dialect
	project string

	actorName  string
	actorEmail string
	now        func() time.Time
	log        *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithActor sets the operator identity recorded as committer on deploys,
// reverts, and failures.
func WithActor(name, email string) Option {
	return func(r *Registry) {
		r.actorName = name
		r.actorEmail = email
	}
}

// WithClock overrides the commit-timestamp source. Tests inject a
// deterministic clock; production uses time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithLogger sets the structured logger. Defaults to a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// New creates a Registry over an open connection. project is the current
// plan's project name, used as the default for query methods that accept an
// empty project.
func New(db *sql.DB, dialect Dialect, project string, opts ...Option) *Registry {
	r := &Registry{
		db:      db,
		dialect: dialect,
		project: project,
		now:     time.Now,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// projectOr returns project, or the registry's default project when empty.
func (r *Registry) projectOr(project string) string {
	if project == "" {
		return r.project
	}
	return project
}

// Transact runs fn inside a transaction. If fn returns an error the
// transaction is rolled back and the error propagates unchanged; otherwise
// the transaction commits. Deploy and revert recording must run through here
// so their multi-statement sequences are all-or-nothing.
func (r *Registry) Transact(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
