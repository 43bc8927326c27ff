package registry

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDialect is a minimal dialect for driver-level tests. Its ledger probe
// issues a real query so statement ordering is observable.
type stubDialect struct{}

func (stubDialect) TimestampExpr(col string) string { return col }

func (stubDialect) FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05.000")
}

func (stubDialect) ParseTimestamp(s string) (time.Time, error) {
	return time.Parse("2006-01-02 15:04:05.000", s)
}

func (stubDialect) RegexOp() string { return "REGEXP" }

func (stubDialect) LedgerExists(ctx context.Context, db *sql.DB) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT probe").Scan(&n); err != nil {
		return false, err
	}
	return n == 1, nil
}

func newMockRegistry(t *testing.T) (*Registry, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, stubDialect{}, testProject), mock
}

func TestTransact_CommitError(t *testing.T) {
	r, mock := newMockRegistry(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	err := r.Transact(context.Background(), func(tx *sql.Tx) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransact_BeginError(t *testing.T) {
	r, mock := newMockRegistry(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection lost"))

	err := r.Transact(context.Background(), func(tx *sql.Tx) error {
		t.Fatal("fn must not run when begin fails")
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransact_FnErrorRollsBack(t *testing.T) {
	r, mock := newMockRegistry(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := r.Transact(context.Background(), func(tx *sql.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeIDAt_ProbesBeforeQuerying(t *testing.T) {
	r, mock := newMockRegistry(t)

	mock.ExpectQuery("SELECT probe").
		WillReturnRows(sqlmock.NewRows([]string{"probe"}).AddRow(1))
	mock.ExpectQuery("SELECT change_id").
		WithArgs(testProject, 0).
		WillReturnRows(sqlmock.NewRows([]string{"change_id"}).AddRow("abc123"))

	id, err := r.EarliestChangeID(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeIDAt_SkipsQueryWhenNoLedger(t *testing.T) {
	r, mock := newMockRegistry(t)

	mock.ExpectQuery("SELECT probe").
		WillReturnRows(sqlmock.NewRows([]string{"probe"}).AddRow(0))

	id, err := r.LatestChangeID(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, id)

	// The probe reported no ledger, so no changes query was issued.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisteredProjects_BackendErrorPropagates(t *testing.T) {
	r, mock := newMockRegistry(t)

	dbErr := errors.New("database is locked")
	mock.ExpectQuery("SELECT project FROM projects").WillReturnError(dbErr)

	_, err := r.RegisteredProjects(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "registered projects")
}

func TestSearchEvents_GeneratedSQL(t *testing.T) {
	r, mock := newMockRegistry(t)

	// Clause order is fixed: pattern filters, event set, order, paging.
	mock.ExpectQuery(`change REGEXP \? AND event IN \(\?, \?\)`).
		WithArgs("^ord", "deploy", "revert", 2, 1).
		WillReturnRows(sqlmock.NewRows([]string{
			"event", "change_id", "change", "project", "note",
			"requires", "conflicts", "tags",
			"committer_name", "committer_email", "committed_at",
			"planner_name", "planner_email", "planned_at",
		}))

	iter, err := r.SearchEvents(context.Background(), map[string]any{
		"change": "^ord",
		"event":  []string{"deploy", "revert"},
		"limit":  2,
		"offset": 1,
	})
	require.NoError(t, err)
	assert.Empty(t, collectEvents(t, iter))
	assert.NoError(t, mock.ExpectationsWereMet())
}
