package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeTest(t *testing.T, rootOpts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// =============================================================================
// Scenario runs
// =============================================================================

func TestTestCommandPasses(t *testing.T) {
	out, err := executeTest(t, &RootOptions{Format: "text"}, filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	for _, name := range []string{"bytes", "double", "eavesdrop", "hello"} {
		assert.Contains(t, out, "✓ "+name+"\n")
	}
	assert.Contains(t, out, "4 passed, 0 failed, 4 total")
}

func TestTestCommandFailure(t *testing.T) {
	out, err := executeTest(t, &RootOptions{Format: "text"}, filepath.Join("testdata", "broken"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ unwired\n")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestTestCommandFilter(t *testing.T) {
	out, err := executeTest(t, &RootOptions{Format: "text"}, filepath.Join("testdata", "scenarios"), "--filter", "h*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ hello")
	assert.NotContains(t, out, "eavesdrop")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandBadFilter(t *testing.T) {
	_, err := executeTest(t, &RootOptions{Format: "text"}, filepath.Join("testdata", "scenarios"), "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandJSON(t *testing.T) {
	out, err := executeTest(t, &RootOptions{Format: "json"}, filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	var result TestResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 4, result.Passed)
	assert.Zero(t, result.Failed)
	for _, sr := range result.Scenarios {
		assert.True(t, sr.Pass, sr.Name)
		assert.Empty(t, sr.Errors, sr.Name)
	}
}

func TestTestCommandNoScenarios(t *testing.T) {
	out, err := executeTest(t, &RootOptions{Format: "text"}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTestCommandNoScenariosJSON(t *testing.T) {
	out, err := executeTest(t, &RootOptions{Format: "json"}, t.TempDir())
	require.NoError(t, err)

	var result TestResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Zero(t, result.Total)
	assert.NotNil(t, result.Scenarios)
}

func TestTestCommandMissingDir(t *testing.T) {
	_, err := executeTest(t, &RootOptions{Format: "text"}, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// =============================================================================
// Golden files
// =============================================================================

func TestTestCommandGoldenRoundTrip(t *testing.T) {
	golden := filepath.Join(t.TempDir(), "golden")
	dir := filepath.Join("testdata", "scenarios")

	_, err := executeTest(t, &RootOptions{Format: "text"}, dir, "--golden", golden, "--update")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(golden, "hello.golden"))
	assert.FileExists(t, filepath.Join(golden, "double.golden"))

	out, err := executeTest(t, &RootOptions{Format: "text"}, dir, "--golden", golden)
	require.NoError(t, err)
	assert.Contains(t, out, "4 passed, 0 failed, 4 total")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	golden := t.TempDir()
	dir := filepath.Join("testdata", "scenarios")

	_, err := executeTest(t, &RootOptions{Format: "text"}, dir, "--filter", "hello", "--golden", golden, "--update")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(golden, "hello.golden"), []byte("{}\n"), 0644))

	out, err := executeTest(t, &RootOptions{Format: "text"}, dir, "--filter", "hello", "--golden", golden)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match")
}

func TestTestCommandGoldenMissing(t *testing.T) {
	out, err := executeTest(t, &RootOptions{Format: "text"}, filepath.Join("testdata", "scenarios"), "--filter", "hello", "--golden", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "run with --update to create it")
}

func TestTestCommandUpdateNeedsGolden(t *testing.T) {
	_, err := executeTest(t, &RootOptions{Format: "text"}, filepath.Join("testdata", "scenarios"), "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--update needs --golden")
}
