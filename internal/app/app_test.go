package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskBoard/internal/app"
	"taskBoard/internal/config"
	"taskBoard/internal/executor"
	"taskBoard/internal/logger"
	"taskBoard/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/task-status-types", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"type":"OPEN"},{"id":2,"type":"IN_PROGRESS"},{"id":4,"type":"DONE"}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: time.Second,
			RateLimit:       1000,
			CORSOrigins:     []string{"*"},
		},
		Gateway:    config.GatewayConfig{BaseURL: baseURL + "/api"},
		Retry:      executor.DefaultConfig(),
		Cache:      service.DefaultPolicies(),
		Sync:       config.SyncConfig{PollInterval: time.Minute, BulkConcurrency: 2},
		Logging:    logger.Config{Level: "error"},
		Repository: config.RepositoryConfig{Type: config.RepositoryInMemory},
	}
}

// TestApp_Init тестирует сборку приложения и маршрут health
func TestApp_Init(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(testConfig(upstream(t).URL)).Init(ctx)
	require.NoError(t, err)
	defer a.Shutdown()

	assert.NotNil(t, a.Service())
	assert.NotNil(t, a.Projector())
	assert.NotNil(t, a.Journal())
	assert.NotNil(t, a.Store())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestApp_InitError(t *testing.T) {
	t.Run("error - bad log level", func(t *testing.T) {
		cfg := testConfig("http://localhost")
		cfg.Logging.Level = "loud"
		_, err := app.New(cfg).Init(context.Background())
		assert.Error(t, err)
	})

	t.Run("error - relative gateway url", func(t *testing.T) {
		cfg := testConfig("")
		cfg.Gateway.BaseURL = "/api"
		a := app.New(cfg)
		_, err := a.Init(context.Background())
		assert.Error(t, err)
		a.Shutdown()
	})
}
