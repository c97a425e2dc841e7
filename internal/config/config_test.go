package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8420", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "openai", cfg.Oracle.Backend)
	assert.Equal(t, "gpt-4o-mini", cfg.Oracle.Client.Model)
	assert.Equal(t, "scenariod_techniques", cfg.Knowledge.Collection)
	assert.Equal(t, "./audit", cfg.Audit.Dir)
	assert.Equal(t, 2, cfg.Run.RefineBudget)
	assert.Equal(t, 50, cfg.Run.MaxIterations)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	path := writeConfigFile(t, `
server:
  addr: ":9000"
oracle:
  backend: stub
run:
  refine_budget: 1
  interactive: true
`, 0o600)

	t.Setenv("SCENARIOD_SERVER_ADDR", ":9999")

	cfg, err := Load(path)
	require.NoError(t, err)

	// env wins over file
	assert.Equal(t, ":9999", cfg.Server.Addr)
	// file wins over defaults
	assert.Equal(t, "stub", cfg.Oracle.Backend)
	assert.Equal(t, 1, cfg.Run.RefineBudget)
	assert.True(t, cfg.Run.Interactive)
	// untouched fields keep defaults
	assert.Equal(t, 50, cfg.Run.MaxIterations)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8420", cfg.Server.Addr)
}

func TestLoad_RejectsWorldReadableFile(t *testing.T) {
	path := writeConfigFile(t, "server:\n  addr: \":9000\"\n", 0o644)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	path := writeConfigFile(t, "oracle:\n  backend: carrier-pigeon\n", 0o600)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle backend")
}
