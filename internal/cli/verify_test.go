package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeVerify(t *testing.T, rootOpts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewVerifyCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVerifyCleanGraph(t *testing.T) {
	out, err := executeVerify(t, &RootOptions{Format: "text"}, scenarioPath("hello.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "No errors found! Run your project with 'run'\n", out)
}

func TestVerifyReportsProblems(t *testing.T) {
	out, err := executeVerify(t, &RootOptions{Format: "text"}, filepath.Join("testdata", "broken", "unwired.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "✗ 1 problem(s) found:\n  - block 1 (Outputs/Bob): input 0 (message) is not connected\n", out)
}

func TestVerifyJSON(t *testing.T) {
	out, err := executeVerify(t, &RootOptions{Format: "json"}, filepath.Join("testdata", "broken", "unwired.yaml"))
	require.Error(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   VerifyResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, resp.Data.Valid)
	assert.Len(t, resp.Data.Problems, 1)
}

func TestVerifyJSON_NoProblems(t *testing.T) {
	out, err := executeVerify(t, &RootOptions{Format: "json"}, scenarioPath("double.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, `"valid":true`)
	assert.Contains(t, out, `"problems":[]`)
}

func TestVerifyMissingScenario(t *testing.T) {
	_, err := executeVerify(t, &RootOptions{Format: "text"}, "/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
