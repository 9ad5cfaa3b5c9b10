package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rook-computer/drawboard/internal/savepolicy"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.Equal(t, 30000, cfg.AutosaveIntervalMS)
	assert.Equal(t, 30, cfg.FrameRate)
	assert.Equal(t, savepolicy.ManualMode(), cfg.Mode())
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
file = "/tmp/board.svg"
listen = "127.0.0.1:9000"
autosave = true
autosave_interval_ms = 5000
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/board.svg", cfg.File)
	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, 30, cfg.FrameRate, "unset keys keep defaults")
	assert.Equal(t, savepolicy.PeriodicMode(5*time.Second), cfg.Mode())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "file: board.svg\nrtsave: true\nframe_rate: 10\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, savepolicy.PerFrameMode(100*time.Millisecond), cfg.Mode())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadBadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", "file = [")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{EnvFile: "env.svg", EnvRTSave: "true", EnvStdioLog: "/tmp/out.log"}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))
	assert.Equal(t, "env.svg", cfg.File)
	assert.True(t, cfg.RTSave)
	assert.Equal(t, "/tmp/out.log", cfg.StdioLog)

	env[EnvAutosave] = "maybe"
	assert.Error(t, cfg.ApplyEnv(func(k string) string { return env[k] }))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate())
	cfg.File = "board.svg"
	assert.NoError(t, cfg.Validate())
	cfg.FrameRate = -1
	assert.Error(t, cfg.Validate())
}
