package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloScenario = `name: hello
description: "A five-rune token passes"
seed: 3
params: {coupling: 2.0, threshold: 0.618, personalization: 0.0}
steps:
  - prompt: "hello"
    expect: {passed: true, token_count: 1}
assertions:
  - type: bounded
  - type: history_length
    count: 1
`

const failingScenario = `name: wrong
description: "Expects a blocked prompt to pass"
seed: 3
params: {coupling: 2.0, threshold: 0.618, personalization: 0.0}
steps:
  - prompt: "hi"
    expect: {passed: true}
`

func writeScenario(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestTest_GoldenLifecycle(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "hello.yaml", helloScenario)
	golden := filepath.Join(dir, "golden", "hello.golden")

	out, err := execute(t, "", "test", dir, "--format", "json")
	require.NoError(t, err)
	var res TestResult
	decodeResponse(t, out, &res)
	require.Len(t, res.Scenarios, 1)
	assert.True(t, res.Scenarios[0].Pass)
	assert.Equal(t, "missing", res.Scenarios[0].Golden)
	assert.NoFileExists(t, golden)

	out, err = execute(t, "", "test", dir, "--update", "--format", "json")
	require.NoError(t, err)
	decodeResponse(t, out, &res)
	assert.Equal(t, "updated", res.Scenarios[0].Golden)
	assert.FileExists(t, golden)

	out, err = execute(t, "", "test", dir, "--format", "json")
	require.NoError(t, err)
	decodeResponse(t, out, &res)
	assert.Equal(t, "match", res.Scenarios[0].Golden)
	assert.Equal(t, 1, res.Passed)

	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0644))
	out, err = execute(t, "", "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	decodeResponse(t, out, &res)
	assert.False(t, res.Scenarios[0].Pass)
	assert.Contains(t, res.Scenarios[0].Errors[0], "does not match golden file")
}

func TestTest_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "hello.yaml", helloScenario)
	writeScenario(t, dir, "wrong.yml", failingScenario)

	out, err := execute(t, "", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ hello")
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "expected passed=true, got false")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTest_Filter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "hello.yaml", helloScenario)
	writeScenario(t, dir, "wrong.yml", failingScenario)

	out, err := execute(t, "", "test", dir, "--filter", "hel*", "--format", "json")
	require.NoError(t, err)
	var res TestResult
	decodeResponse(t, out, &res)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "hello", res.Scenarios[0].Name)
}

func TestTest_InvalidScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\nsteps: []\n")

	out, err := execute(t, "", "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	var res TestResult
	decodeResponse(t, out, &res)
	assert.Equal(t, "broken.yaml", res.Scenarios[0].Name)
	assert.Contains(t, res.Scenarios[0].Errors[0], "failed to load scenario")
}

func TestTest_MissingDirectory(t *testing.T) {
	_, err := execute(t, "", "test", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_EmptyDirectory(t *testing.T) {
	out, err := execute(t, "", "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTest_RepositoryScenarios(t *testing.T) {
	dir := filepath.Join("..", "harness", "testdata", "scenarios")
	out, err := execute(t, "", "test", dir, "--format", "json")
	require.NoError(t, err, out)
	var res TestResult
	decodeResponse(t, out, &res)
	assert.Equal(t, res.Total, res.Passed)
}
