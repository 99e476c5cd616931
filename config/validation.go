package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var (
	validEnvs      = []string{EnvDevelopment, EnvStaging, EnvProduction}
	validStores    = []string{StoreMemory, StoreFile, StoreRedis}
	validLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}
	validProtocols = []string{"http", "grpc"}
)

// Validate checks every section and returns the first failure, prefixed with its section.
func Validate(cfg *Config) error {
	if err := validateApp(&cfg.App); err != nil {
		return fmt.Errorf("app config: %w", err)
	}
	if err := validateAPI(&cfg.API); err != nil {
		return fmt.Errorf("api config: %w", err)
	}
	if err := validateAuth(&cfg.Auth); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}
	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	if err := validateObservability(&cfg.Observability); err != nil {
		return fmt.Errorf("observability config: %w", err)
	}
	if err := validateStub(&cfg.Stub); err != nil {
		return fmt.Errorf("stub config: %w", err)
	}
	return nil
}

func validateApp(cfg *AppConfig) error {
	if cfg.Name == "" {
		return NewMissingFieldError("app.name", "APP_NAME", "app.name")
	}
	if !slices.Contains(validEnvs, cfg.Env) {
		return NewInvalidFieldError("app.env", fmt.Sprintf("invalid environment %q", cfg.Env), validEnvs)
	}
	return nil
}

func validateAPI(cfg *APIConfig) error {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return NewMissingFieldError("api.baseurl", "API_BASEURL", "api.baseurl")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewInvalidFieldError("api.baseurl", fmt.Sprintf("invalid base url %q", cfg.BaseURL), []string{"http://host[:port]", "https://host[:port]"})
	}
	if cfg.Timeout <= 0 {
		return NewInvalidFieldError("api.timeout", "timeout must be positive", nil)
	}
	if cfg.Retry.Max < 0 {
		return NewInvalidFieldError("api.retry.max", "retry budget cannot be negative", nil)
	}
	if cfg.Retry.Delay <= 0 {
		return NewInvalidFieldError("api.retry.delay", "retry delay must be positive", nil)
	}
	if cfg.Rate.Limit < 0 {
		return NewInvalidFieldError("api.rate.limit", "rate limit cannot be negative", nil)
	}
	if cfg.Rate.Limit > 0 && cfg.Rate.Burst < 1 {
		return NewInvalidFieldError("api.rate.burst", "burst must be at least 1 when rate limiting is enabled", nil)
	}
	if cfg.Log.MaxBytes < 0 {
		return NewInvalidFieldError("api.log.maxbytes", "payload preview size cannot be negative", nil)
	}
	return nil
}

func validateAuth(cfg *AuthConfig) error {
	if !slices.Contains(validStores, cfg.Store.Type) {
		return NewInvalidFieldError("auth.store.type", fmt.Sprintf("unknown token store %q", cfg.Store.Type), validStores)
	}
	if cfg.Store.Type == StoreRedis {
		if cfg.Store.Redis.Addr == "" {
			return NewMissingFieldError("auth.store.redis.addr", "AUTH_STORE_REDIS_ADDR", "auth.store.redis.addr")
		}
		if cfg.Store.Redis.Key == "" {
			return NewMissingFieldError("auth.store.redis.key", "AUTH_STORE_REDIS_KEY", "auth.store.redis.key")
		}
		if cfg.Store.Redis.DB < 0 || cfg.Store.Redis.DB > 15 {
			return NewInvalidFieldError("auth.store.redis.db", fmt.Sprintf("invalid database number: %d (must be 0-15)", cfg.Store.Redis.DB), nil)
		}
		if cfg.Store.Redis.TTL < 0 {
			return NewInvalidFieldError("auth.store.redis.ttl", "ttl cannot be negative", nil)
		}
	}
	if !strings.HasPrefix(cfg.Signin.Path, "/") {
		return NewInvalidFieldError("auth.signin.path", fmt.Sprintf("sign-in path %q must start with /", cfg.Signin.Path), nil)
	}
	return nil
}

func validateLog(cfg *LogConfig) error {
	if !slices.Contains(validLogLevels, strings.ToLower(cfg.Level)) {
		return NewInvalidFieldError("log.level", fmt.Sprintf("invalid log level %q", cfg.Level), validLogLevels)
	}
	return nil
}

func validateObservability(cfg *ObservabilityConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Service == "" {
		return NewMissingFieldError("observability.service", "OBSERVABILITY_SERVICE", "observability.service")
	}
	if cfg.Endpoint == "" {
		return NewMissingFieldError("observability.endpoint", "OBSERVABILITY_ENDPOINT", "observability.endpoint")
	}
	if cfg.Endpoint != "stdout" && !slices.Contains(validProtocols, cfg.Protocol) {
		return NewInvalidFieldError("observability.protocol", fmt.Sprintf("invalid protocol %q", cfg.Protocol), validProtocols)
	}
	if cfg.Sample < 0 || cfg.Sample > 1 {
		return NewInvalidFieldError("observability.sample", "sample rate must be between 0.0 and 1.0", nil)
	}
	return nil
}

func validateStub(cfg *StubConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return NewInvalidFieldError("stub.port", fmt.Sprintf("invalid port: %d", cfg.Port), nil)
	}
	return nil
}
