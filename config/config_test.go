package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearCredentialEnv keeps host credentials out of the tests.
func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvGeminiKeys, EnvVoiceRSSKey, "PROVIDERS_GEMINI_KEYS", "PROVIDERS_VOICERSS_KEY", "APP_ENV", "LOG_LEVEL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadYAMLDefaults(t *testing.T) {
	clearCredentialEnv(t)

	cfg, err := LoadYAML(nil)
	require.NoError(t, err)

	assert.Equal(t, "keyrelay", cfg.App.Name)
	assert.Equal(t, "v1.0.0", cfg.App.Version)
	assert.Equal(t, EnvDevelopment, cfg.App.Env)
	assert.True(t, cfg.IsDevelopment())

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.Timeout.Read)
	assert.Equal(t, 60*time.Second, cfg.Server.Timeout.Write)
	assert.Equal(t, 60*time.Second, cfg.Server.Timeout.Idle)
	assert.Equal(t, 55*time.Second, cfg.Server.Timeout.Middleware)
	assert.Equal(t, 10*time.Second, cfg.Server.Timeout.Shutdown)
	assert.Equal(t, "/health", cfg.Server.Path.Health)
	assert.Equal(t, "/ready", cfg.Server.Path.Ready)
	assert.Equal(t, "/api/generate", cfg.Server.Path.Generate)
	assert.Equal(t, []string{"*"}, cfg.Server.CORS.Origins)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)

	g := cfg.Providers.Gemini
	assert.Empty(t, g.Keys)
	assert.Equal(t, ",", g.Delimiter)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta", g.BaseURL)
	assert.Equal(t, "gemini-2.5-flash-preview-05-20", g.Models.Text)
	assert.Equal(t, "imagen-3.0-generate-002", g.Models.Image)
	assert.Equal(t, "gemini-2.5-flash-preview-tts", g.Models.Speech)
	assert.Equal(t, 30*time.Second, g.Timeout)

	v := cfg.Providers.VoiceRSS
	assert.Empty(t, v.Key)
	assert.Equal(t, "https://api.voicerss.org/", v.BaseURL)
	assert.Equal(t, "id-id", v.Language)
	assert.Equal(t, "Andika", v.Voice)
	assert.Equal(t, -2, v.Rate)
	assert.Equal(t, "MP3", v.Codec)
	assert.Equal(t, "16khz_16bit_stereo", v.Format)
	assert.Equal(t, 15*time.Second, v.Timeout)

	assert.False(t, cfg.Observability.Enabled)
}

func TestLoadYAMLOverrides(t *testing.T) {
	clearCredentialEnv(t)

	cfg, err := LoadYAML([]byte(`
app:
  env: production
server:
  port: 9090
  path:
    base: /v1
providers:
  gemini:
    keys: "k1; k2"
    delimiter: ";"
    timeout: 5s
  voicerss:
    key: vr-key
    rate: 3
observability:
  enabled: true
  service:
    name: keyrelay
  trace:
    endpoint: collector:4317
    protocol: grpc
`))
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.App.Env)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/v1", cfg.Server.Path.Base)
	assert.Equal(t, "k1; k2", cfg.Providers.Gemini.Keys)
	assert.Equal(t, ";", cfg.Providers.Gemini.Delimiter)
	assert.Equal(t, 5*time.Second, cfg.Providers.Gemini.Timeout)
	assert.Equal(t, "vr-key", cfg.Providers.VoiceRSS.Key)
	assert.Equal(t, 3, cfg.Providers.VoiceRSS.Rate)
	assert.True(t, cfg.Observability.Enabled)
	assert.Equal(t, "keyrelay", cfg.Observability.Service.Name)
	assert.Equal(t, "grpc", cfg.Observability.Trace.Protocol)
	assert.Empty(t, cfg.CredentialWarnings())
}

func TestLoadYAMLMalformed(t *testing.T) {
	clearCredentialEnv(t)

	_, err := LoadYAML([]byte("server: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse yaml config")
}

func TestEnvironmentOverrides(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PROVIDERS_GEMINI_TIMEOUT", "7s")
	t.Setenv("PROVIDERS_VOICERSS_RATE", "1")

	cfg, err := LoadYAML([]byte("server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 7*time.Second, cfg.Providers.Gemini.Timeout)
	assert.Equal(t, 1, cfg.Providers.VoiceRSS.Rate)
}

func TestEnvironmentListSplitting(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("SERVER_CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := LoadYAML(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORS.Origins)
}

func TestCredentialEnvAliases(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv(EnvGeminiKeys, "AIzaFirstKey,AIzaSecondKey")
	t.Setenv(EnvVoiceRSSKey, "voice-key")

	cfg, err := LoadYAML(nil)
	require.NoError(t, err)

	assert.Equal(t, "AIzaFirstKey,AIzaSecondKey", cfg.Providers.Gemini.Keys)
	assert.Equal(t, "voice-key", cfg.Providers.VoiceRSS.Key)

	sources := cfg.Sources()
	assert.Equal(t, "***", sources["providers.gemini.keys"])
	assert.Equal(t, "***", sources["providers.voicerss.key"])
	assert.Equal(t, "keyrelay", sources["app.name"])
}

func TestLoadReadsFiles(t *testing.T) {
	clearCredentialEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("app:\n  name: from-file\nserver:\n  port: 7070\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.staging.yaml"), []byte("server:\n  port: 7171\n"), 0o600))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.App.Name)
	assert.Equal(t, 7070, cfg.Server.Port)

	t.Setenv("APP_ENV", EnvStaging)
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, EnvStaging, cfg.App.Env)
	assert.Equal(t, 7171, cfg.Server.Port)
}

func TestLoadWithoutFiles(t *testing.T) {
	clearCredentialEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "keyrelay", cfg.App.Name)
}

func TestLoadMalformedFile(t *testing.T) {
	clearCredentialEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte("app: [broken"), 0o600))
	t.Chdir(dir)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), DefaultFile)
}

func TestSourcesOnNilConfig(t *testing.T) {
	var cfg *Config
	assert.Empty(t, cfg.Sources())
}
