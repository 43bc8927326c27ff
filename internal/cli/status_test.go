package cli

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCommand_Text(t *testing.T) {
	seeded := seedRegistry(t)

	// orders was reverted, so users is the current state.
	out, err := runCommand(t, "status", "--db", seeded.path, "--project", "widgets")
	require.NoError(t, err)

	g := goldie.New(t)
	g.AssertWithTemplate(t, "status_text", struct{ UsersID string }{seeded.users.ID()}, []byte(out))
}

func TestStatusCommand_JSON(t *testing.T) {
	seeded := seedRegistry(t)

	out, err := runCommand(t, "status", "--db", seeded.path, "--project", "widgets", "--format", "json")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status)
	change := resp.Data.(map[string]any)["change"].(map[string]any)
	assert.Equal(t, seeded.users.ID(), change["change_id"])
	assert.Equal(t, "users", change["name"])
	assert.Equal(t, "widgets", change["project"])
	assert.Equal(t, []any{"v1.0"}, change["tags"])
	assert.Equal(t, "2026-08-01T12:00:01Z", change["committed_at"])
	assert.Equal(t, "2026-07-15T09:00:00Z", change["planned_at"])
	assert.Equal(t, "Ada Lovelace", change["committer_name"])
}

func TestStatusCommand_NothingDeployed(t *testing.T) {
	seeded := seedRegistry(t)

	out, err := runCommand(t, "status", "--db", seeded.path, "--project", "gadgets")
	require.NoError(t, err)
	assert.Equal(t, "Nothing deployed.\n", out)

	out, err = runCommand(t, "status", "--db", seeded.path, "--project", "gadgets", "--format", "json")
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Data.(map[string]any)["change"])
}
