package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark/tidemark/internal/sqlite"
)

func TestProjectsCommand_Text(t *testing.T) {
	seeded := seedRegistry(t)

	out, err := runCommand(t, "projects", "--db", seeded.path)
	require.NoError(t, err)
	assert.Equal(t, "widgets\n", out)
}

func TestProjectsCommand_JSON(t *testing.T) {
	seeded := seedRegistry(t)

	out, err := runCommand(t, "projects", "--db", seeded.path, "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, []any{"widgets"}, data["projects"])
}

func TestProjectsCommand_EmptyRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	db, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, sqlite.CreateLedger(context.Background(), db))
	require.NoError(t, db.Close())

	out, err := runCommand(t, "projects", "--db", path)
	require.NoError(t, err)
	assert.Equal(t, "No projects registered.\n", out)
}

func TestProjectsCommand_NoDatabase(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := runCommand(t, "projects")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no registry database specified")
}
