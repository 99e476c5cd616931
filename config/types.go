package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the full task client configuration.
// The underlying koanf instance stays available for keys the struct does not model.
type Config struct {
	App           AppConfig           `koanf:"app" json:"app" yaml:"app" mapstructure:"app"`
	API           APIConfig           `koanf:"api" json:"api" yaml:"api" mapstructure:"api"`
	Auth          AuthConfig          `koanf:"auth" json:"auth" yaml:"auth" mapstructure:"auth"`
	Log           LogConfig           `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability" yaml:"observability" mapstructure:"observability"`
	Stub          StubConfig          `koanf:"stub" json:"stub" yaml:"stub" mapstructure:"stub"`

	k *koanf.Koanf `json:"-" yaml:"-" mapstructure:"-"`
}

// AppConfig identifies the running binary.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name" mapstructure:"name"`
	Version string `koanf:"version" json:"version" yaml:"version" mapstructure:"version"`
	Env     string `koanf:"env" json:"env" yaml:"env" mapstructure:"env"`
}

// APIConfig configures the outbound connection to the task API.
type APIConfig struct {
	// BaseURL is prepended to every relative request path. Default: http://localhost:8000.
	BaseURL string `koanf:"baseurl" json:"baseurl" yaml:"baseurl" mapstructure:"baseurl"`
	// Timeout bounds a single dispatch. Default: 10s.
	Timeout time.Duration    `koanf:"timeout" json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	Retry   RetryConfig      `koanf:"retry" json:"retry" yaml:"retry" mapstructure:"retry"`
	Rate    RateConfig       `koanf:"rate" json:"rate" yaml:"rate" mapstructure:"rate"`
	Trace   TraceConfig      `koanf:"trace" json:"trace" yaml:"trace" mapstructure:"trace"`
	Log     PayloadLogConfig `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`
}

// RetryConfig holds the transient-failure retry budget.
type RetryConfig struct {
	// Max is the default retry budget per call (0 disables). Default: 3.
	Max int `koanf:"max" json:"max" yaml:"max" mapstructure:"max"`
	// Delay is the backoff base; attempt n waits 2^n * Delay. Default: 1s.
	Delay time.Duration `koanf:"delay" json:"delay" yaml:"delay" mapstructure:"delay"`
}

// RateConfig limits outbound requests per second. Limit 0 disables limiting.
type RateConfig struct {
	Limit float64 `koanf:"limit" json:"limit" yaml:"limit" mapstructure:"limit"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" mapstructure:"burst"`
}

// TraceConfig controls request correlation headers.
type TraceConfig struct {
	// Header carries the request ID. Empty disables the request ID stage.
	Header string `koanf:"header" json:"header" yaml:"header" mapstructure:"header"`
	// W3C enables traceparent propagation.
	W3C bool `koanf:"w3c" json:"w3c" yaml:"w3c" mapstructure:"w3c"`
}

// PayloadLogConfig enables body previews in transport logs.
type PayloadLogConfig struct {
	Payloads bool `koanf:"payloads" json:"payloads" yaml:"payloads" mapstructure:"payloads"`
	MaxBytes int  `koanf:"maxbytes" json:"maxbytes" yaml:"maxbytes" mapstructure:"maxbytes"`
}

// AuthConfig selects where the bearer token lives and where users go to sign in.
type AuthConfig struct {
	Store  StoreConfig  `koanf:"store" json:"store" yaml:"store" mapstructure:"store"`
	Signin SigninConfig `koanf:"signin" json:"signin" yaml:"signin" mapstructure:"signin"`
	// Token seeds the store at startup when set.
	Token string `koanf:"token" json:"-" yaml:"token" mapstructure:"token"`
}

// StoreConfig selects the token store backend.
type StoreConfig struct {
	// Type is one of memory, file, redis. Default: memory.
	Type  string      `koanf:"type" json:"type" yaml:"type" mapstructure:"type"`
	File  string      `koanf:"file" json:"file" yaml:"file" mapstructure:"file"`
	Redis RedisConfig `koanf:"redis" json:"redis" yaml:"redis" mapstructure:"redis"`
}

// RedisConfig configures the redis token store.
type RedisConfig struct {
	Addr     string        `koanf:"addr" json:"addr" yaml:"addr" mapstructure:"addr"`
	Password string        `koanf:"password" json:"-" yaml:"password" mapstructure:"password"` //nolint:gosec // loaded from env
	DB       int           `koanf:"db" json:"db" yaml:"db" mapstructure:"db"`
	Key      string        `koanf:"key" json:"key" yaml:"key" mapstructure:"key"`
	TTL      time.Duration `koanf:"ttl" json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// SigninConfig names the re-authentication entry point.
type SigninConfig struct {
	Path string `koanf:"path" json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" mapstructure:"level"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// ObservabilityConfig configures OpenTelemetry export.
type ObservabilityConfig struct {
	Enabled bool   `koanf:"enabled" json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Service string `koanf:"service" json:"service" yaml:"service" mapstructure:"service"`
	// Endpoint is "stdout" or an OTLP collector address.
	Endpoint string `koanf:"endpoint" json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	// Protocol is http or grpc; ignored for stdout.
	Protocol string  `koanf:"protocol" json:"protocol" yaml:"protocol" mapstructure:"protocol"`
	Insecure bool    `koanf:"insecure" json:"insecure" yaml:"insecure" mapstructure:"insecure"`
	Sample   float64 `koanf:"sample" json:"sample" yaml:"sample" mapstructure:"sample"`
}

// StubConfig configures the in-memory task API used for local development.
type StubConfig struct {
	Host  string `koanf:"host" json:"host" yaml:"host" mapstructure:"host"`
	Port  int    `koanf:"port" json:"port" yaml:"port" mapstructure:"port"`
	Token string `koanf:"token" json:"-" yaml:"token" mapstructure:"token"`
	// Bare makes list responses a bare JSON array instead of an envelope.
	Bare bool `koanf:"bare" json:"bare" yaml:"bare" mapstructure:"bare"`
}
