package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultFile is read from the working directory when present.
	DefaultFile = "config.yaml"

	// EnvGeminiKeys and EnvVoiceRSSKey are the conventional credential
	// variables of serverless platforms, accepted alongside the
	// PROVIDERS_* form.
	EnvGeminiKeys  = "GEMINI_API_KEYS"
	EnvVoiceRSSKey = "VOICERSS_API_KEY"
)

// envAliases maps well-known variable names onto config keys.
var envAliases = map[string]string{
	EnvGeminiKeys:  "providers.gemini.keys",
	EnvVoiceRSSKey: "providers.voicerss.key",
}

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. config.<env>.yaml
// 3. config.yaml
// 4. Default values (lowest priority)
//
// Missing YAML files are skipped; malformed ones are an error.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadOptionalFile(k, DefaultFile); err != nil {
		return nil, err
	}

	if appEnv := envOverride(k, "APP_ENV", "app.env"); appEnv != "" {
		if err := loadOptionalFile(k, fmt.Sprintf("config.%s.yaml", appEnv)); err != nil {
			return nil, err
		}
	}

	return finish(k)
}

// LoadYAML builds a Config from defaults, the given YAML document and the
// environment. It serves embedded configuration and tests.
func LoadYAML(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse yaml config: %w", err)
		}
	}

	return finish(k)
}

func finish(k *koanf.Koanf) (*Config, error) {
	if err := k.Load(env.Provider(".", env.Opt{TransformFunc: transformEnv}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadOptionalFile(k *koanf.Koanf, path string) error {
	err := k.Load(file.Provider(path), yaml.Parser())
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// listKeys are split on commas when they come from the environment.
var listKeys = map[string]bool{
	"server.cors.origins": true,
}

// transformEnv converts UPPER_SNAKE variable names to lower.dot keys.
func transformEnv(key, value string) (string, any) {
	if alias, ok := envAliases[key]; ok {
		return alias, value
	}
	k := strings.ReplaceAll(strings.ToLower(key), "_", ".")
	if listKeys[k] {
		return k, splitList(value)
	}
	return k, value
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// envOverride peeks at an environment variable before the env provider runs,
// so the environment-specific file can be chosen.
func envOverride(k *koanf.Koanf, envVar, key string) string {
	probe := koanf.New(".")
	if err := probe.Load(env.Provider(".", env.Opt{
		Prefix:        envVar,
		TransformFunc: transformEnv,
	}), nil); err == nil && probe.String(key) != "" {
		return probe.String(key)
	}
	return k.String(key)
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "keyrelay",
		"app.version": "v1.0.0",
		"app.env":     EnvDevelopment,
		"app.debug":   false,

		"server.host":               "0.0.0.0",
		"server.port":               8080,
		"server.timeout.read":       "15s",
		"server.timeout.write":      "60s",
		"server.timeout.idle":       "60s",
		"server.timeout.middleware": "55s",
		"server.timeout.shutdown":   "10s",
		"server.path.base":          "",
		"server.path.health":        "/health",
		"server.path.ready":         "/ready",
		"server.path.generate":      "/api/generate",
		"server.cors.origins":       []string{"*"},

		"log.level":  "info",
		"log.pretty": false,

		// Credentials have no defaults; an empty pool fails the request, not startup.
		"providers.gemini.delimiter":     ",",
		"providers.gemini.baseurl":       "https://generativelanguage.googleapis.com/v1beta",
		"providers.gemini.models.text":   "gemini-2.5-flash-preview-05-20",
		"providers.gemini.models.image":  "imagen-3.0-generate-002",
		"providers.gemini.models.speech": "gemini-2.5-flash-preview-tts",
		"providers.gemini.timeout":       "30s",

		"providers.voicerss.baseurl":  "https://api.voicerss.org/",
		"providers.voicerss.language": "id-id",
		"providers.voicerss.voice":    "Andika",
		"providers.voicerss.rate":     -2,
		"providers.voicerss.codec":    "MP3",
		"providers.voicerss.format":   "16khz_16bit_stereo",
		"providers.voicerss.timeout":  "15s",

		"observability.enabled": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// Sources returns the merged configuration keys with credential values masked.
func (c *Config) Sources() map[string]any {
	if c == nil || c.k == nil {
		return map[string]any{}
	}
	all := c.k.All()
	for _, key := range envAliases {
		if v, ok := all[key].(string); ok && v != "" {
			all[key] = "***"
		}
	}
	return all
}
