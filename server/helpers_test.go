package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gaborage/keyrelay/config"
)

func newTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:    "keyrelay-test",
			Version: "v0.0.1",
			Env:     config.EnvDevelopment,
		},
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Timeout: config.TimeoutConfig{
				Read:       time.Second,
				Write:      5 * time.Second,
				Idle:       time.Second,
				Middleware: 2 * time.Second,
				Shutdown:   time.Second,
			},
			Path: config.PathConfig{
				Health:   "/health",
				Ready:    "/ready",
				Generate: "/api/generate",
			},
			CORS: config.CORSConfig{Origins: []string{"*"}},
		},
		Log: config.LogConfig{Level: "debug"},
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}
