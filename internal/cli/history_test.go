package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/engine"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/store"
)

func TestHistory_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "resona.db")

	out, err := execute(t, "", "history", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions recorded.")
}

func TestHistory_RequiresDatabase(t *testing.T) {
	_, err := execute(t, "", "history")
	require.Error(t, err)
}

func TestHistory_ListsAndReadsSession(t *testing.T) {
	db := filepath.Join(t.TempDir(), "resona.db")

	out, err := execute(t, "hello\n?!\n", "run", "--db", db, "--coupling", "2", "--format", "json")
	require.NoError(t, err)
	var results []engine.Result
	decodeResponse(t, out, &results)
	require.Len(t, results, 2)
	id := results[0].SessionID

	out, err = execute(t, "", "history", "--db", db, "--format", "json")
	require.NoError(t, err)
	var sessions []store.SessionSummary
	decodeResponse(t, out, &sessions)
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].ID)
	assert.Equal(t, 2, sessions[0].Runs)
	assert.Equal(t, 1, sessions[0].Passed)

	out, err = execute(t, "", "history", "--db", db, id, "--format", "json")
	require.NoError(t, err)
	var runs SessionRuns
	decodeResponse(t, out, &runs)
	assert.Equal(t, id, runs.SessionID)
	require.Len(t, runs.Runs, 2)
	assert.Equal(t, int64(1), runs.Runs[0].Seq)
	assert.True(t, runs.Runs[0].Passed)
	assert.False(t, runs.Runs[1].Passed)

	out, err = execute(t, "", "history", "--db", db, id)
	require.NoError(t, err)
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, "passed")
	assert.Contains(t, out, "blocked")
}

func TestHistory_UnknownSession(t *testing.T) {
	db := filepath.Join(t.TempDir(), "resona.db")

	out, err := execute(t, "", "history", "--db", db, "missing", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDatabase, resp.Error.Code)
}
