package observability

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

const (
	// EndpointStdout is a special endpoint value that outputs to stdout (for local development).
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EnvironmentDevelopment is the default environment name.
	EnvironmentDevelopment = "development"

	defaultBatchTimeout   = 5 * time.Second
	defaultExportTimeout  = 30 * time.Second
	defaultMetricInterval = 60 * time.Second
)

// Config configures the trace and meter providers.
type Config struct {
	// Enabled controls whether observability is active.
	// When false, NewProvider returns no-op providers.
	Enabled bool

	Service ServiceConfig

	// Environment is reported as deployment.environment.name.
	Environment string

	// Endpoint is "stdout" or an OTLP collector address.
	// gRPC endpoints are host:port; HTTP endpoints may carry a scheme.
	Endpoint string

	// Protocol selects OTLP transport: "http" or "grpc". Ignored for stdout.
	Protocol string

	// Insecure disables TLS towards the collector.
	Insecure bool

	// Headers are sent with every export (e.g. collector API keys).
	Headers map[string]string

	// SampleRate is the TraceIDRatioBased sampling ratio in [0, 1].
	SampleRate *float64

	BatchTimeout   time.Duration
	ExportTimeout  time.Duration
	MetricInterval time.Duration
}

// ServiceConfig contains service identification metadata.
type ServiceConfig struct {
	Name    string
	Version string
}

// Float64Ptr returns a pointer to the provided float64 value.
func Float64Ptr(v float64) *float64 {
	return &v
}

// ApplyDefaults fills unset fields. It never overrides explicit values,
// including an explicit zero sample rate.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}
	if c.Endpoint == "" {
		c.Endpoint = EndpointStdout
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolHTTP
	}
	if c.SampleRate == nil {
		c.SampleRate = Float64Ptr(1.0)
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = defaultBatchTimeout
	}
	if c.ExportTimeout <= 0 {
		c.ExportTimeout = defaultExportTimeout
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = defaultMetricInterval
	}
	c.Headers = cloneHeaderMap(c.Headers)
}

// Validate checks the configuration. Disabled configs are always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}
	if c.SampleRate != nil && (*c.SampleRate < 0 || *c.SampleRate > 1) {
		return ErrInvalidSampleRate
	}
	if c.Endpoint == EndpointStdout {
		return nil
	}
	if c.Protocol != ProtocolHTTP && c.Protocol != ProtocolGRPC {
		return fmt.Errorf("protocol %q: %w", c.Protocol, ErrInvalidProtocol)
	}
	return validateEndpointFormat(c.Endpoint, c.Protocol)
}

// validateEndpointFormat rejects gRPC endpoints that carry an HTTP scheme.
func validateEndpointFormat(endpoint, protocol string) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint: %w", ErrInvalidEndpointFormat)
	}
	hasScheme := strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
	if protocol == ProtocolGRPC && hasScheme {
		return fmt.Errorf("grpc endpoint %q must be host:port: %w", endpoint, ErrInvalidEndpointFormat)
	}
	return nil
}

// cloneHeaderMap creates a copy of a header map to avoid aliasing.
func cloneHeaderMap(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	return maps.Clone(headers)
}
