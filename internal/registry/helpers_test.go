package registry

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tidemark/tidemark/internal/plan"
	"github.com/tidemark/tidemark/internal/sqlite"
	"github.com/tidemark/tidemark/internal/testutil"
)

// testProject is the default project every test registry registers.
const testProject = "widgets"

var (
	testStart   = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	testPlanned = time.Date(2026, 7, 15, 9, 0, 0, 0, time.UTC)
)

// newTestRegistry creates a registry over a fresh on-disk ledger with a
// deterministic ticking clock, and registers the default project.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := newUninitializedRegistry(t)

	ctx := context.Background()
	require.NoError(t, sqlite.CreateLedger(ctx, r.db))
	require.NoError(t, r.RegisterProject(ctx, &plan.Project{
		Name:         testProject,
		URI:          "https://example.com/widgets",
		CreatorName:  "Ada Lovelace",
		CreatorEmail: "ada@example.com",
	}))
	return r
}

// newUninitializedRegistry creates a registry over a database with no ledger
// schema provisioned.
func newUninitializedRegistry(t *testing.T) *Registry {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := testutil.NewClock(testStart, time.Second)
	return New(db, sqlite.Dialect{}, testProject,
		WithActor("Ada Lovelace", "ada@example.com"),
		WithClock(clock.Now),
	)
}

// makeChange builds a change in the default project with stable planner
// identity and planning time.
func makeChange(name string, mods ...func(*plan.Change)) *plan.Change {
	c := &plan.Change{
		Name:         name,
		Project:      testProject,
		Note:         "Adds " + name,
		PlannedAt:    testPlanned,
		PlannerName:  "Grace Hopper",
		PlannerEmail: "grace@example.com",
	}
	for _, mod := range mods {
		mod(c)
	}
	return c
}

func withTag(name string) func(*plan.Change) {
	return func(c *plan.Change) {
		c.Tags = append(c.Tags, plan.Tag{
			Name:         name,
			PlannerName:  "Grace Hopper",
			PlannerEmail: "grace@example.com",
			PlannedAt:    testPlanned,
		})
	}
}

func withRequire(dep *plan.Change) func(*plan.Change) {
	return func(c *plan.Change) {
		c.Dependencies = append(c.Dependencies, plan.Dependency{
			Type:   plan.DepRequire,
			Change: dep.Name,
			ID:     dep.ID(),
		})
	}
}

func withConflict(spec string) func(*plan.Change) {
	return func(c *plan.Change) {
		c.Dependencies = append(c.Dependencies, plan.Dependency{
			Type:   plan.DepConflict,
			Change: spec,
		})
	}
}

// deployChange records a deploy inside a transaction, as the engine would.
func deployChange(t *testing.T, r *Registry, c *plan.Change) {
	t.Helper()
	err := r.Transact(context.Background(), func(tx *sql.Tx) error {
		return r.LogDeployChange(context.Background(), tx, c)
	})
	require.NoError(t, err)
}

// revertChange records a revert inside a transaction.
func revertChange(t *testing.T, r *Registry, c *plan.Change) {
	t.Helper()
	err := r.Transact(context.Background(), func(tx *sql.Tx) error {
		return r.LogRevertChange(context.Background(), tx, c)
	})
	require.NoError(t, err)
}

// countRows counts rows in a table matching an optional WHERE clause.
func countRows(t *testing.T, r *Registry, table, where string, args ...any) int {
	t.Helper()
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	require.NoError(t, r.db.QueryRow(query, args...).Scan(&n))
	return n
}

// collectEvents drains an event iterator and fails the test on any
// iteration error.
func collectEvents(t *testing.T, it *EventIter) []Event {
	t.Helper()
	var events []Event
	for it.Next() {
		events = append(events, it.Event())
	}
	require.NoError(t, it.Err())
	return events
}
