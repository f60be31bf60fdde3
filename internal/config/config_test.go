package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"taskBoard/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// TestLoad_Defaults тестирует значения по умолчанию
func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.Retry.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Cache.List.StaleAfter)
	assert.Equal(t, 5*time.Minute, cfg.Cache.List.ExpireAfter)
	assert.Equal(t, time.Hour, cfg.Cache.Reference.ExpireAfter)
	assert.Equal(t, 30*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, config.RepositoryInMemory, cfg.Repository.Type)
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddr())
}

// TestLoad_FileAndEnv тестирует файл и переопределение из окружения
func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
gateway:
  base_url: http://tasks.internal/api
cache:
  list:
    stale_after: 10s
    expire_after: 1m
repository:
  type: sqlite
  path: /tmp/prefs.db
`)
	t.Setenv("TASKBOARD_SERVER_PORT", "9191")
	t.Setenv("TASKBOARD_SYNC_POLL_INTERVAL", "45s")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "http://tasks.internal/api", cfg.Gateway.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Cache.List.StaleAfter)
	assert.Equal(t, time.Minute, cfg.Cache.List.ExpireAfter)
	assert.Equal(t, 45*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, config.RepositorySQLite, cfg.Repository.Type)
}

// TestLoad_Invalid тестирует отказ на неверных значениях
func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "error - relative gateway url", body: "gateway:\n  base_url: /api\n"},
		{name: "error - unknown repository", body: "repository:\n  type: redis\n"},
		{name: "error - postgres without dsn", body: "repository:\n  type: postgres\n"},
		{name: "error - stale after expire", body: "cache:\n  task:\n    stale_after: 10m\n    expire_after: 1m\n"},
		{name: "error - broken yaml", body: "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestConfig_Dump(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	out, err := cfg.Dump()
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Contains(t, back, "gateway")
	assert.Contains(t, back, "repository")
}
