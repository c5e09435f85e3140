package config

import (
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/gaborage/keyrelay/observability"
)

// Config is the process-wide configuration. It is loaded once at startup and
// passed by pointer to the components that need it; nothing re-reads the
// environment per request.
type Config struct {
	App           AppConfig            `koanf:"app" json:"app" yaml:"app"`
	Server        ServerConfig         `koanf:"server" json:"server" yaml:"server"`
	Log           LogConfig            `koanf:"log" json:"log" yaml:"log"`
	Providers     ProvidersConfig      `koanf:"providers" json:"providers" yaml:"providers"`
	Observability observability.Config `koanf:"observability" json:"observability" yaml:"observability"`

	// k holds the merged sources for diagnostics.
	k *koanf.Koanf `json:"-" yaml:"-"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name"`
	Version string `koanf:"version" json:"version" yaml:"version"`
	Env     string `koanf:"env" json:"env" yaml:"env"`
	Debug   bool   `koanf:"debug" json:"debug" yaml:"debug"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host" json:"host" yaml:"host"`
	Port    int           `koanf:"port" json:"port" yaml:"port"`
	Timeout TimeoutConfig `koanf:"timeout" json:"timeout" yaml:"timeout"`
	Path    PathConfig    `koanf:"path" json:"path" yaml:"path"`
	CORS    CORSConfig    `koanf:"cors" json:"cors" yaml:"cors"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	Origins []string `koanf:"origins" json:"origins" yaml:"origins"`
}

// TimeoutConfig holds the server timeouts. Middleware bounds the request
// context handed to handlers and must stay below Write.
type TimeoutConfig struct {
	Read       time.Duration `koanf:"read" json:"read" yaml:"read"`
	Write      time.Duration `koanf:"write" json:"write" yaml:"write"`
	Idle       time.Duration `koanf:"idle" json:"idle" yaml:"idle"`
	Middleware time.Duration `koanf:"middleware" json:"middleware" yaml:"middleware"`
	Shutdown   time.Duration `koanf:"shutdown" json:"shutdown" yaml:"shutdown"`
}

// PathConfig holds URL path settings for the server.
type PathConfig struct {
	Base     string `koanf:"base" json:"base" yaml:"base"`
	Health   string `koanf:"health" json:"health" yaml:"health"`
	Ready    string `koanf:"ready" json:"ready" yaml:"ready"`
	Generate string `koanf:"generate" json:"generate" yaml:"generate"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// ProvidersConfig holds the upstream provider settings.
type ProvidersConfig struct {
	Gemini   GeminiConfig   `koanf:"gemini" json:"gemini" yaml:"gemini"`
	VoiceRSS VoiceRSSConfig `koanf:"voicerss" json:"voicerss" yaml:"voicerss"`
}

// GeminiConfig configures the rotated Gemini key pool. Keys is the raw
// delimited value; it is parsed into a pool on every request.
type GeminiConfig struct {
	Keys      string        `koanf:"keys" json:"-" yaml:"keys"`
	Delimiter string        `koanf:"delimiter" json:"delimiter" yaml:"delimiter"`
	BaseURL   string        `koanf:"baseurl" json:"baseurl" yaml:"baseurl"`
	Models    GeminiModels  `koanf:"models" json:"models" yaml:"models"`
	Timeout   time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`
}

// GeminiModels names the model used for each action.
type GeminiModels struct {
	Text   string `koanf:"text" json:"text" yaml:"text"`
	Image  string `koanf:"image" json:"image" yaml:"image"`
	Speech string `koanf:"speech" json:"speech" yaml:"speech"`
}

// VoiceRSSConfig configures the single-key VoiceRSS backend.
type VoiceRSSConfig struct {
	Key      string        `koanf:"key" json:"-" yaml:"key"`
	BaseURL  string        `koanf:"baseurl" json:"baseurl" yaml:"baseurl"`
	Language string        `koanf:"language" json:"language" yaml:"language"`
	Voice    string        `koanf:"voice" json:"voice" yaml:"voice"`
	Rate     int           `koanf:"rate" json:"rate" yaml:"rate"`
	Codec    string        `koanf:"codec" json:"codec" yaml:"codec"`
	Format   string        `koanf:"format" json:"format" yaml:"format"`
	Timeout  time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`
}
