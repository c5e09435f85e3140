package observability

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

const (
	// EndpointStdout writes telemetry to stdout instead of a collector.
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EnvironmentDevelopment is used when no environment is configured.
	EnvironmentDevelopment = "development"

	defaultBatchTimeoutDev  = 500 * time.Millisecond
	defaultBatchTimeoutProd = 5 * time.Second
	defaultExportTimeout    = 10 * time.Second
	defaultMetricInterval   = 10 * time.Second
)

// Config controls tracing and metrics export. It is loaded by the config
// package under the "observability" key.
type Config struct {
	// Enabled turns the OpenTelemetry SDK on. When false every provider is a no-op.
	Enabled     bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Service     ServiceConfig `koanf:"service" json:"service" yaml:"service"`
	Environment string        `koanf:"environment" json:"environment" yaml:"environment"`
	Trace       TraceConfig   `koanf:"trace" json:"trace" yaml:"trace"`
	Metrics     MetricsConfig `koanf:"metrics" json:"metrics" yaml:"metrics"`
}

// ServiceConfig identifies the service in exported telemetry.
type ServiceConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name"`
	Version string `koanf:"version" json:"version" yaml:"version"`
}

// TraceConfig configures span export. SampleRate is the fraction of traces
// recorded, between 0.0 and 1.0.
type TraceConfig struct {
	Enabled       *bool             `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Endpoint      string            `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`
	Protocol      string            `koanf:"protocol" json:"protocol" yaml:"protocol"`
	Insecure      bool              `koanf:"insecure" json:"insecure" yaml:"insecure"`
	Headers       map[string]string `koanf:"headers" json:"headers" yaml:"headers"`
	SampleRate    *float64          `koanf:"samplerate" json:"sampleRate" yaml:"samplerate"`
	BatchTimeout  time.Duration     `koanf:"batchtimeout" json:"batchTimeout" yaml:"batchtimeout"`
	ExportTimeout time.Duration     `koanf:"exporttimeout" json:"exportTimeout" yaml:"exporttimeout"`
}

// MetricsConfig configures metric export. Protocol, insecure and headers are
// shared with TraceConfig.
type MetricsConfig struct {
	Enabled       *bool         `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Endpoint      string        `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`
	Interval      time.Duration `koanf:"interval" json:"interval" yaml:"interval"`
	ExportTimeout time.Duration `koanf:"exporttimeout" json:"exportTimeout" yaml:"exporttimeout"`
}

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool {
	return &v
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}

// ApplyDefaults fills unset fields. Explicit false and 0.0 values are kept.
func (c *Config) ApplyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}

	if c.Trace.Endpoint == "" {
		c.Trace.Endpoint = EndpointStdout
	}
	if c.Enabled && c.Trace.Enabled == nil {
		c.Trace.Enabled = BoolPtr(true)
	}
	if c.Trace.Protocol == "" {
		c.Trace.Protocol = ProtocolHTTP
	}
	if c.Trace.SampleRate == nil {
		c.Trace.SampleRate = Float64Ptr(1.0)
	}
	if c.Trace.BatchTimeout == 0 {
		c.Trace.BatchTimeout = defaultBatchTimeoutProd
		if c.Environment == EnvironmentDevelopment || c.Trace.Endpoint == EndpointStdout {
			c.Trace.BatchTimeout = defaultBatchTimeoutDev
		}
	}
	if c.Trace.ExportTimeout == 0 {
		c.Trace.ExportTimeout = defaultExportTimeout
	}
	if c.Trace.Headers != nil {
		c.Trace.Headers = maps.Clone(c.Trace.Headers)
	}

	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = EndpointStdout
	}
	if c.Enabled && c.Metrics.Enabled == nil {
		c.Metrics.Enabled = BoolPtr(true)
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = defaultMetricInterval
	}
	if c.Metrics.ExportTimeout == 0 {
		c.Metrics.ExportTimeout = defaultExportTimeout
	}
}

// Validate checks the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Service.Name) == "" {
		return ErrMissingServiceName
	}
	if c.Trace.SampleRate != nil && (*c.Trace.SampleRate < 0 || *c.Trace.SampleRate > 1) {
		return ErrInvalidSampleRate
	}
	if c.Trace.Protocol != ProtocolHTTP && c.Trace.Protocol != ProtocolGRPC {
		return fmt.Errorf("trace protocol '%s': %w", c.Trace.Protocol, ErrInvalidProtocol)
	}
	if err := validateEndpointFormat(c.Trace.Endpoint, c.Trace.Protocol); err != nil {
		return fmt.Errorf("trace endpoint: %w", err)
	}
	if err := validateEndpointFormat(c.Metrics.Endpoint, c.Trace.Protocol); err != nil {
		return fmt.Errorf("metrics endpoint: %w", err)
	}
	return nil
}

// validateEndpointFormat rejects URL schemes for gRPC, whose exporters expect host:port.
func validateEndpointFormat(endpoint, protocol string) error {
	if endpoint == "" || endpoint == EndpointStdout {
		return nil
	}
	if protocol == ProtocolGRPC && strings.Contains(endpoint, "://") {
		return fmt.Errorf("'%s' must be host:port for grpc: %w", endpoint, ErrInvalidEndpointFormat)
	}
	return nil
}
