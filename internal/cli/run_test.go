package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaelkayser1/Resona-OS-sub000/internal/engine"
	"github.com/michaelkayser1/Resona-OS-sub000/internal/store"
)

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	for _, name := range []string{"config", "db", "session", "seed", "coupling", "threshold", "personalization", "agents", "strict", "enhance", "response"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "k", runCmd.Flags().Lookup("coupling").Shorthand)
	assert.Equal(t, "0.5", runCmd.Flags().Lookup("coupling").DefValue)
}

func TestRun_SinglePromptJSON(t *testing.T) {
	out, err := execute(t, "", "run", "hello", "world", "--coupling", "2", "--seed", "1", "--format", "json")
	require.NoError(t, err)

	var res engine.Result
	resp := decodeResponse(t, out, &res)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, res.TokenCount)
	assert.Equal(t, int64(1), res.Seq)
	assert.NotEmpty(t, res.SessionID)
	assert.Len(t, res.Phases, 2)
}

func TestRun_TextOutput(t *testing.T) {
	out, err := execute(t, "", "run", "hello")
	require.NoError(t, err)

	assert.Contains(t, out, "tokens     1")
	assert.Contains(t, out, "gate       PASSED")
	assert.Contains(t, out, "response")
}

func TestRun_SeedIsReproducible(t *testing.T) {
	a, err := execute(t, "", "run", "the quick brown fox", "--seed", "9", "--format", "json")
	require.NoError(t, err)
	b, err := execute(t, "", "run", "the quick brown fox", "--seed", "9", "--format", "json")
	require.NoError(t, err)

	var ra, rb engine.Result
	decodeResponse(t, a, &ra)
	decodeResponse(t, b, &rb)
	assert.Equal(t, ra.Phases, rb.Phases)
	assert.Equal(t, ra.Coherence, rb.Coherence)
}

func TestRun_PromptsFromStdin(t *testing.T) {
	out, err := execute(t, "first prompt\n\n  second prompt  \nthird\n", "run", "--seed", "2", "--format", "json")
	require.NoError(t, err)

	var results []engine.Result
	decodeResponse(t, out, &results)
	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, int64(i+1), res.Seq)
		assert.Equal(t, results[0].SessionID, res.SessionID)
	}
	assert.Equal(t, 1, results[2].TokenCount)
}

func TestRun_NoPrompt(t *testing.T) {
	_, err := execute(t, "", "run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_StrictBlocked(t *testing.T) {
	out, err := execute(t, "", "run", "?!", "--strict", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var res engine.Result
	resp := decodeResponse(t, out, &res)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, res.Decision.Passed)
	assert.Equal(t, 1, res.TokenCount)
}

func TestRun_BlockedWithoutStrictSucceeds(t *testing.T) {
	out, err := execute(t, "", "run", "?!")
	require.NoError(t, err)
	assert.Contains(t, out, "BLOCKED")
	assert.Contains(t, out, "R fail")
}

func TestRun_InvalidParams(t *testing.T) {
	out, err := execute(t, "", "run", "hello", "--coupling", "9", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParams, resp.Error.Code)
}

func TestRun_SessionRequiresDatabase(t *testing.T) {
	_, err := execute(t, "", "run", "hello", "--session", "abc")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--session requires --db")
}

func TestRun_RecordsAndResumesSession(t *testing.T) {
	db := filepath.Join(t.TempDir(), "resona.db")

	out, err := execute(t, "one\ntwo\n", "run", "--db", db, "--format", "json")
	require.NoError(t, err)
	var first []engine.Result
	decodeResponse(t, out, &first)
	require.Len(t, first, 2)
	id := first[0].SessionID

	out, err = execute(t, "", "run", "three", "--db", db, "--session", id, "--format", "json")
	require.NoError(t, err)
	var resumed engine.Result
	decodeResponse(t, out, &resumed)
	assert.Equal(t, id, resumed.SessionID)
	assert.Equal(t, int64(3), resumed.Seq)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.ReadSession(t.Context(), id)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, store.PromptDigest("three"), runs[2].PromptDigest)
}

func TestRun_ConfigFileAndFlagOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resona.yaml")
	require.NoError(t, os.WriteFile(path, []byte("params: {coupling: 2.0, threshold: 0.95}\nseed: 5\n"), 0644))

	out, err := execute(t, "", "run", "hello", "--config", path, "--format", "json")
	require.NoError(t, err)
	var res engine.Result
	decodeResponse(t, out, &res)
	assert.InDelta(t, 0.95, res.Decision.AdaptiveThreshold, 1e-12)
	assert.False(t, res.Decision.Passed)

	out, err = execute(t, "", "run", "hello", "--config", path, "--threshold", "0.5", "--format", "json")
	require.NoError(t, err)
	decodeResponse(t, out, &res)
	assert.InDelta(t, 0.5, res.Decision.AdaptiveThreshold, 1e-12)
	assert.True(t, res.Decision.Passed)
}

func TestRun_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parms: {}\n"), 0644))

	_, err := execute(t, "", "run", "hello", "--config", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_Agents(t *testing.T) {
	out, err := execute(t, "", "run", "--agents", "5", "--coupling", "2", "--seed", "3", "--format", "json")
	require.NoError(t, err)

	var res engine.AgentResult
	decodeResponse(t, out, &res)
	assert.Equal(t, 5, res.Agents)
	assert.Len(t, res.Scores, 5)
	assert.Equal(t, 5, res.Vote.Total)
}

func TestRun_AgentsTextOutput(t *testing.T) {
	out, err := execute(t, "", "run", "--agents", "3", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "agents     3")
	assert.Equal(t, 3, strings.Count(out, "  agent "))
	assert.Contains(t, out, "vote")
}

func TestRun_Enhance(t *testing.T) {
	out, err := execute(t, "", "run", "shape", "the", "answer", "--enhance", "--format", "json")
	require.NoError(t, err)

	var res EnhancedPrompt
	decodeResponse(t, out, &res)
	assert.Equal(t, "shape the answer", res.Prompt)
	assert.Contains(t, res.EnhancedPrompt, "shape the answer")
	assert.Equal(t, []string{"shape", "the", "answer"}, res.Preprocessing.Tokens)
}

func TestRun_ResponseGatedAgainstPrompt(t *testing.T) {
	out, err := execute(t, "", "run", "hello", "--response", "Hello!", "--coupling", "2", "--seed", "1", "--format", "json")
	require.NoError(t, err)

	var res engine.Result
	decodeResponse(t, out, &res)
	assert.Equal(t, "Hello!", res.Response)
	assert.Equal(t, 1, res.TokenCount)
	assert.InDelta(t, 0.84, res.RawCoherence, 1e-9)
	assert.True(t, res.Decision.Passed)
	assert.Equal(t, int64(1), res.Seq)
}

func TestRun_ResponseFromStdinStrict(t *testing.T) {
	out, err := execute(t, "zzz\n", "run", "hello", "--response", "-", "--strict", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var res engine.Result
	resp := decodeResponse(t, out, &res)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "zzz", res.Response)
	assert.False(t, res.Decision.Passed)
}

func TestRun_ResponseNeedsPrompt(t *testing.T) {
	_, err := execute(t, "", "run", "--response", "anything")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "", "run", "hello", "--response", "x", "--agents", "3")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCollectPrompts(t *testing.T) {
	prompts, err := collectPrompts([]string{"a", "b"}, strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a b"}, prompts)

	prompts, err = collectPrompts(nil, strings.NewReader(" x \n\n\ty\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, prompts)

	prompts, err = collectPrompts(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, prompts)
}
