package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tidemark/tidemark/internal/plan"
	"github.com/tidemark/tidemark/internal/registry"
	"github.com/tidemark/tidemark/internal/sqlite"
	"github.com/tidemark/tidemark/internal/testutil"
)

// seededDB is a registry database with a known history: deploy users (tagged
// v1.0), deploy orders (requires users), revert orders. Commit times tick one
// second apart starting at 2026-08-01 12:00:01 UTC.
type seededDB struct {
	path   string
	users  *plan.Change
	orders *plan.Change
}

func seedRegistry(t *testing.T) seededDB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	db, err := sqlite.Open(path)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, sqlite.CreateLedger(ctx, db))

	clock := testutil.NewClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), time.Second)
	reg := registry.New(db, sqlite.Dialect{}, "widgets",
		registry.WithActor("Ada Lovelace", "ada@example.com"),
		registry.WithClock(clock.Now),
	)

	require.NoError(t, reg.RegisterProject(ctx, &plan.Project{
		Name:         "widgets",
		URI:          "https://example.com/widgets",
		CreatorName:  "Ada Lovelace",
		CreatorEmail: "ada@example.com",
	}))

	planned := time.Date(2026, 7, 15, 9, 0, 0, 0, time.UTC)
	users := &plan.Change{
		Name:         "users",
		Project:      "widgets",
		Note:         "Adds users",
		PlannedAt:    planned,
		PlannerName:  "Grace Hopper",
		PlannerEmail: "grace@example.com",
		Tags: []plan.Tag{{
			Name:         "v1.0",
			PlannerName:  "Grace Hopper",
			PlannerEmail: "grace@example.com",
			PlannedAt:    planned,
		}},
	}
	orders := &plan.Change{
		Name:         "orders",
		Project:      "widgets",
		Note:         "Adds orders",
		PlannedAt:    planned,
		PlannerName:  "Grace Hopper",
		PlannerEmail: "grace@example.com",
		Dependencies: []plan.Dependency{{
			Type:   plan.DepRequire,
			Change: "users",
			ID:     users.ID(),
		}},
	}

	require.NoError(t, reg.Transact(ctx, func(tx *sql.Tx) error {
		return reg.LogDeployChange(ctx, tx, users)
	}))
	require.NoError(t, reg.Transact(ctx, func(tx *sql.Tx) error {
		return reg.LogDeployChange(ctx, tx, orders)
	}))
	require.NoError(t, reg.Transact(ctx, func(tx *sql.Tx) error {
		return reg.LogRevertChange(ctx, tx, orders)
	}))

	return seededDB{path: path, users: users, orders: orders}
}

// runCommand executes the root command with the given args and captures its
// combined output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeResponse unmarshals a JSON envelope emitted by a command.
func decodeResponse(t *testing.T, out string) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}
