package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvDatabase, "runs.db")
	t.Setenv(EnvLibrary, "./blocks")
	t.Setenv(EnvWasm, "std.wasm")
	t.Setenv(EnvMaxPulls, "500")

	cfg := LoadConfig()
	assert.Equal(t, Config{Database: "runs.db", Library: "./blocks", Wasm: "std.wasm", MaxPulls: 500}, cfg)
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	// Registered so t restores the variables afterwards
	t.Setenv(EnvDatabase, "")
	t.Setenv(EnvWasm, "")
	t.Setenv(EnvMaxPulls, "")
	t.Setenv(EnvLibrary, "from-env")
	require.NoError(t, os.Unsetenv(EnvDatabase))
	require.NoError(t, os.Unsetenv(EnvWasm))
	require.NoError(t, os.Unsetenv(EnvMaxPulls))

	env := "CIPHERFLOW_DB=dotenv.db\nCIPHERFLOW_LIBRARY=from-file\nCIPHERFLOW_MAX_PULLS=7\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0644))

	cfg := LoadConfig()
	assert.Equal(t, "dotenv.db", cfg.Database)
	assert.Equal(t, "from-env", cfg.Library, "environment wins over .env")
	assert.Empty(t, cfg.Wasm)
	assert.Equal(t, 7, cfg.MaxPulls)
}

func TestLoadConfig_InvalidMaxPulls(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvMaxPulls, "lots")

	assert.Equal(t, 0, LoadConfig().MaxPulls)
}
