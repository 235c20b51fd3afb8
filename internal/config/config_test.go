package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Store.BatchSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.LoopbackBypass)
	assert.Equal(t, "https://rdap.org/domain/", cfg.RDAP.BaseURL)
	assert.Equal(t, 5, cfg.DNS.TimeoutSecs)
	assert.True(t, cfg.DNS.CheckWWW)
	assert.Equal(t, 10, cfg.Probe.TimeoutSecs)
	assert.False(t, cfg.Probe.TCPEnabled)
	assert.Equal(t, []int{80, 443}, cfg.Probe.TCPPorts)
	assert.Equal(t, []string{"https://overpass-api.de/api/interpreter"}, cfg.Overpass.Endpoints)
	assert.Equal(t, 180, cfg.Overpass.TimeoutSecs)
	assert.Equal(t, 900, cfg.Pipeline.IntervalSecs)
	assert.Equal(t, 5, cfg.Pipeline.ClassifierWorkers)
	assert.Equal(t, 100, cfg.DailyTarget.Count)
	assert.InDelta(t, 40.0, cfg.DailyTarget.MinScore, 0.001)
	assert.Equal(t, "daily", cfg.DailyTarget.PlatformPrefix)
	assert.True(t, cfg.DailyTarget.AllowRecycle)
	assert.Equal(t, "./exports", cfg.Export.Dir)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  database_url: postgres://localhost/leads
  batch_size: 50
log:
  level: debug
  format: console
server:
  port: 9090
dns:
  check_www: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/leads", cfg.Store.DatabaseURL)
	assert.Equal(t, 50, cfg.Store.BatchSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.DNS.CheckWWW)
	// Defaults still apply for unset values
	assert.Equal(t, 10, cfg.Probe.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("DLP_LOG_LEVEL", "warn")
	t.Setenv("DLP_STORE_DATABASE_URL", "postgres://env/db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "postgres://env/db", cfg.Store.DatabaseURL)
}

func TestLoadClampsInterval(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("DLP_PIPELINE_INTERVAL_SECS", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Pipeline.IntervalSecs)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
