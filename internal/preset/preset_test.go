package preset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_BuiltinCatalog(t *testing.T) {
	cat := Default()
	assert.Equal(t, []string{"chaos", "edge", "coherent", "pulse"}, cat.Keys())

	coherent, err := cat.Get("coherent")
	require.NoError(t, err)
	assert.Equal(t, "Coherent", coherent.Name)
	assert.Equal(t, Params{N: 100, K: 2.0, Sigma: 0.1, Omega0: 1.0, D: 0.01, Beta: 0, Fv: 0.1, Rhoqp: 1.0, Dt: 0.01}, coherent.Params)

	pulse, err := cat.Get("pulse")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, pulse.Params.Beta, 1e-12)
}

func TestCatalog_Next(t *testing.T) {
	cat := Default()
	assert.Equal(t, "edge", cat.Next("chaos"))
	assert.Equal(t, "chaos", cat.Next("pulse"))
	assert.Equal(t, "chaos", cat.Next("missing"))
	assert.Equal(t, "", (&Catalog{}).Next("x"))
}

func TestGet_Unknown(t *testing.T) {
	_, err := Default().Get("nope")
	require.Error(t, err)
	assert.True(t, IsUnknownPreset(err))
}

func TestLoadFile_DefaultsFillOmittedParams(t *testing.T) {
	path := writeFile(t, t.TempDir(), "calm.cue", `
preset: calm: {
	params: {K: 3.0, N: 12}
}
`)
	cat, err := LoadFile(path)
	require.NoError(t, err)

	calm, err := cat.Get("calm")
	require.NoError(t, err)
	assert.Equal(t, "calm", calm.Name)
	assert.Equal(t, 12, calm.Params.N)
	assert.InDelta(t, 3.0, calm.Params.K, 1e-12)
	assert.InDelta(t, 0.01, calm.Params.Dt, 1e-12)
	assert.InDelta(t, 1.0, calm.Params.Omega0, 1e-12)
}

func TestLoadFile_SchemaViolation(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", `
preset: broken: {
	params: {N: 0}
}
`)
	_, err := LoadFile(path)
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeSchema, le.Code)
}

func TestLoadFile_SyntaxError(t *testing.T) {
	path := writeFile(t, t.TempDir(), "syntax.cue", `preset: { calm: `)
	_, err := LoadFile(path)

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeBuildFailed, le.Code)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.cue"))

	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", `package presets

preset: slow: params: {K: 0.5, dt: 0.02}
`)
	writeFile(t, dir, "b.cue", `package presets

preset: fast: params: {K: 4.0, dt: 0.005}
`)

	cat, err := LoadDir(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"slow", "fast"}, cat.Keys())

	fast, err := cat.Get("fast")
	require.NoError(t, err)
	assert.InDelta(t, 0.005, fast.Params.Dt, 1e-12)
}

func TestLoadDir_Errors(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeNotFound, le.Code)

	_, err = LoadDir(t.TempDir())
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestMerge_OverridesInPlace(t *testing.T) {
	path := writeFile(t, t.TempDir(), "override.cue", `
preset: edge: {name: "Sharper Edge", params: {K: 1.2}}
preset: extra: {params: {}}
`)
	user, err := LoadFile(path)
	require.NoError(t, err)

	merged := Default().Merge(user)
	assert.Equal(t, []string{"chaos", "edge", "coherent", "pulse", "extra"}, merged.Keys())

	edge, err := merged.Get("edge")
	require.NoError(t, err)
	assert.Equal(t, "Sharper Edge", edge.Name)
	assert.InDelta(t, 1.2, edge.Params.K, 1e-12)
}
