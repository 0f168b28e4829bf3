package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cipherflow/internal/ir"
)

func testFormatter(format string, verbose bool) (*OutputFormatter, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	f := newFormatter(&RootOptions{Format: format, Verbose: verbose}, out, errOut)
	return f, out, errOut
}

// ============================================================================
// JSON envelope
// ============================================================================

func TestOutputFormatter_JSON(t *testing.T) {
	tests := []struct {
		name   string
		write  func(f *OutputFormatter) error
		status string
		code   string
	}{
		{
			name:   "success",
			write:  func(f *OutputFormatter) error { return f.Success(VerifyResult{Valid: true, Problems: []string{}}) },
			status: "ok",
		},
		{
			name:   "error",
			write:  func(f *OutputFormatter) error { return f.Error("UNKNOWN_BLOCK", `no block "X/Y" in the library`, nil) },
			status: "error",
			code:   "UNKNOWN_BLOCK",
		},
		{
			name: "error with details",
			write: func(f *OutputFormatter) error {
				return f.Error(ErrCodeRunFailed, "run failed", RunOutput{Sink: "<none>"})
			},
			status: "error",
			code:   ErrCodeRunFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, out, _ := testFormatter("json", false)
			require.NoError(t, tt.write(f))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Status)
			if tt.code == "" {
				assert.Nil(t, resp.Error)
				assert.NotNil(t, resp.Data)
				return
			}
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestOutputFormatter_JSONKeepsAngleBrackets(t *testing.T) {
	f, out, _ := testFormatter("json", false)

	require.NoError(t, f.Success(RunOutput{Sink: "<none>", Diagnostics: []string{}}))
	assert.Contains(t, out.String(), `"sink":"<none>"`)
}

// ============================================================================
// Text output
// ============================================================================

func TestOutputFormatter_TextError(t *testing.T) {
	f, out, _ := testFormatter("text", false)

	require.NoError(t, f.Error("E005", "library directory not found: ./blocks", []string{"hint"}))
	assert.Equal(t, "Error [E005]: library directory not found: ./blocks\n", out.String())
}

func TestOutputFormatter_TextErrorVerboseDetails(t *testing.T) {
	f, out, _ := testFormatter("text", true)

	require.NoError(t, f.Error("E005", "library directory not found: ./blocks", "./blocks"))
	assert.Equal(t, "Error [E005]: library directory not found: ./blocks\nDetails: ./blocks\n", out.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		verbose bool
		wantErr string
	}{
		{"quiet", "text", false, ""},
		{"text", "text", true, "Loaded 3 block(s)\n"},
		{"json keeps stdout clean", "json", true, "Loaded 3 block(s)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, out, errOut := testFormatter(tt.format, tt.verbose)

			f.VerboseLog("Loaded %d block(s)", 3)
			assert.Empty(t, out.String())
			assert.Equal(t, tt.wantErr, errOut.String())
		})
	}
}

func TestOutputFormatter_ErrWriterFallsBackToWriter(t *testing.T) {
	out := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: out, Verbose: true}

	f.VerboseLog("pulled %s", "Inputs/Alice")
	assert.Equal(t, "pulled Inputs/Alice\n", out.String())
}

// ============================================================================
// Exit codes
// ============================================================================

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))

	wrapped := WrapExitError(ExitFailure, "run failed", errors.New("boom"))
	assert.Equal(t, "run failed: boom", wrapped.Error())
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("outer: %w", wrapped)))
}

// ============================================================================
// Sink rendering
// ============================================================================

func TestFormatSink(t *testing.T) {
	tests := []struct {
		name  string
		value ir.Value
		want  string
	}{
		{"nothing", nil, NoMessage},
		{"number", ir.Number(42), "Bob received the message: 42"},
		{"text", ir.Text("HI 2"), "Bob received the message: HI 2"},
		{"bytes", ir.Bytes{'A', ' ', 0x01, 0xFF}, "Bob received the message:  'A'  ' '  01  ff "},
		{"punctuation is hex", ir.Bytes{'!', 'z'}, "Bob received the message:  21  'z' "},
		{"empty bytes", ir.Bytes{}, "Bob received the message: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSink(tt.value))
		})
	}
}
