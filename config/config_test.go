package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL = "https://tasks.example.com"
	stubHost    = "127.0.0.1"
)

// clearEnvironmentVariables unsets variables that would leak into Load and restores them afterwards.
func clearEnvironmentVariables(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_NAME", "APP_ENV", "API_BASEURL", "API_TIMEOUT", "API_TIMEOUT_MS", "API_RETRY", "API_RETRY_MAX",
		"API_RETRY_DELAY", "API_RATE_LIMIT", "API_RATE_BURST", "AUTH_STORE_TYPE", "AUTH_STORE_REDIS_PASSWORD",
		"AUTH_TOKEN", "LOG_LEVEL", "OBSERVABILITY_ENABLED", "OBSERVABILITY_BATCHTIMEOUT", "STUB_PORT", "CUSTOM_FEATURE",
	} {
		// t.Setenv registers the restore; the value is then removed for the test.
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadBytesDefaults(t *testing.T) {
	clearEnvironmentVariables(t)

	cfg, err := LoadBytes(nil)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "taskclient", cfg.App.Name)
	assert.Equal(t, EnvDevelopment, cfg.App.Env)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 3, cfg.API.Retry.Max)
	assert.Equal(t, time.Second, cfg.API.Retry.Delay)
	assert.Zero(t, cfg.API.Rate.Limit)
	assert.Equal(t, "X-Request-ID", cfg.API.Trace.Header)
	assert.True(t, cfg.API.Trace.W3C)
	assert.False(t, cfg.API.Log.Payloads)
	assert.Equal(t, 1024, cfg.API.Log.MaxBytes)

	assert.Equal(t, StoreMemory, cfg.Auth.Store.Type)
	assert.Equal(t, "taskclient:token", cfg.Auth.Store.Redis.Key)
	assert.Equal(t, time.Duration(0), cfg.Auth.Store.Redis.TTL)
	assert.Equal(t, "/auth/sign-in", cfg.Auth.Signin.Path)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Observability.Enabled)
	assert.InDelta(t, 1.0, cfg.Observability.Sample, 0.0001)

	assert.Equal(t, stubHost, cfg.Stub.Host)
	assert.Equal(t, 8000, cfg.Stub.Port)
	assert.Equal(t, "dev-token", cfg.Stub.Token)
}

func TestLoadBytesYAMLOverridesDefaults(t *testing.T) {
	clearEnvironmentVariables(t)

	cfg, err := LoadBytes([]byte(`
api:
  baseurl: https://tasks.example.com
  timeout: 3s
  retry:
    max: 1
    delay: 250ms
  rate:
    limit: 5
    burst: 2
auth:
  store:
    type: redis
    redis:
      addr: cache:6379
      ttl: 1h
log:
  level: debug
  pretty: true
`))
	require.NoError(t, err)

	assert.Equal(t, testBaseURL, cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, 1, cfg.API.Retry.Max)
	assert.Equal(t, 250*time.Millisecond, cfg.API.Retry.Delay)
	assert.InDelta(t, 5.0, cfg.API.Rate.Limit, 0.0001)
	assert.Equal(t, 2, cfg.API.Rate.Burst)
	assert.Equal(t, StoreRedis, cfg.Auth.Store.Type)
	assert.Equal(t, "cache:6379", cfg.Auth.Store.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Auth.Store.Redis.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)

	// untouched keys keep their defaults
	assert.Equal(t, "taskclient:token", cfg.Auth.Store.Redis.Key)
}

func TestLoadEnvironmentOverridesYAML(t *testing.T) {
	clearEnvironmentVariables(t)
	t.Setenv("API_BASEURL", testBaseURL)
	t.Setenv("API_RETRY_MAX", "5")
	t.Setenv("API_TIMEOUT", "30s")
	t.Setenv("AUTH_TOKEN", "seed-token")
	t.Setenv("CUSTOM_FEATURE", "on")

	cfg, err := LoadBytes([]byte("api:\n  baseurl: http://ignored:9000\n  retry:\n    max: 2\n"))
	require.NoError(t, err)

	assert.Equal(t, testBaseURL, cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.API.Retry.Max)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "seed-token", cfg.Auth.Token)
	assert.False(t, cfg.Exists("custom.feature"), "variables outside known sections are ignored")
}

func TestLoadEnvironmentIgnoresUnknownKeys(t *testing.T) {
	clearEnvironmentVariables(t)
	t.Setenv("API_TIMEOUT_MS", "900000")
	t.Setenv("API_RETRY", "7")
	t.Setenv("AUTH_STORE_REDIS_PASSWORD", "s3cret")
	t.Setenv("OBSERVABILITY_BATCHTIMEOUT", "2s")

	cfg, err := LoadBytes(nil)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 3, cfg.API.Retry.Max)
	assert.False(t, cfg.Exists("api.timeout.ms"))
	assert.Equal(t, "s3cret", cfg.Auth.Store.Redis.Password)
	assert.Equal(t, 2*time.Second, cfg.GetDuration("observability.batchtimeout"))
}

func TestLoadValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "invalid_env", yaml: "app:\n  env: qa\n", wantErr: "app.env"},
		{name: "relative_base_url", yaml: "api:\n  baseurl: /api\n", wantErr: "api.baseurl"},
		{name: "zero_timeout", yaml: "api:\n  timeout: 0s\n", wantErr: "api.timeout"},
		{name: "negative_retry", yaml: "api:\n  retry:\n    max: -1\n", wantErr: "api.retry.max"},
		{name: "zero_retry_delay", yaml: "api:\n  retry:\n    delay: 0s\n", wantErr: "api.retry.delay"},
		{name: "negative_retry_delay", yaml: "api:\n  retry:\n    delay: -1s\n", wantErr: "api.retry.delay"},
		{name: "burst_without_capacity", yaml: "api:\n  rate:\n    limit: 2\n    burst: 0\n", wantErr: "api.rate.burst"},
		{name: "unknown_store", yaml: "auth:\n  store:\n    type: vault\n", wantErr: "auth.store.type"},
		{name: "redis_without_addr", yaml: "auth:\n  store:\n    type: redis\n    redis:\n      addr: \"\"\n", wantErr: "auth.store.redis.addr"},
		{name: "signin_path", yaml: "auth:\n  signin:\n    path: sign-in\n", wantErr: "auth.signin.path"},
		{name: "log_level", yaml: "log:\n  level: super-loud\n", wantErr: "invalid log level"},
		{name: "otlp_protocol", yaml: "observability:\n  enabled: true\n  endpoint: collector:4317\n  protocol: udp\n", wantErr: "observability.protocol"},
		{name: "sample_rate", yaml: "observability:\n  enabled: true\n  sample: 2\n", wantErr: "observability.sample"},
		{name: "stub_port", yaml: "stub:\n  port: 70000\n", wantErr: "stub.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvironmentVariables(t)

			cfg, err := LoadBytes([]byte(tt.yaml))
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadBytesMalformedYAML(t *testing.T) {
	clearEnvironmentVariables(t)

	_, err := LoadBytes([]byte("api: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse yaml")
}

func TestLoadFile(t *testing.T) {
	t.Run("missing_file_uses_defaults", func(t *testing.T) {
		clearEnvironmentVariables(t)

		cfg, err := LoadFile(filepath.Join(t.TempDir(), "config.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	})

	t.Run("environment_specific_file_layers_on_base", func(t *testing.T) {
		clearEnvironmentVariables(t)
		dir := t.TempDir()
		base := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(base, []byte("app:\n  env: production\napi:\n  baseurl: http://base:8000\n  retry:\n    max: 2\n"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.production.yaml"), []byte("api:\n  baseurl: https://tasks.example.com\n"), 0o600))

		cfg, err := LoadFile(base)
		require.NoError(t, err)
		assert.Equal(t, EnvProduction, cfg.App.Env)
		assert.Equal(t, testBaseURL, cfg.API.BaseURL)
		assert.Equal(t, 2, cfg.API.Retry.Max)
	})

	t.Run("malformed_file_fails", func(t *testing.T) {
		clearEnvironmentVariables(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("api: [broken"), 0o600))

		_, err := LoadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load")
	})
}

func TestEnvFileName(t *testing.T) {
	assert.Equal(t, "config.staging.yaml", envFileName("config.yaml", EnvStaging))
	assert.Equal(t, "/etc/taskclient/app.production.yaml", envFileName("/etc/taskclient/app.yaml", EnvProduction))
	assert.Equal(t, "settings.development", envFileName("settings", EnvDevelopment))
}

func TestAccessors(t *testing.T) {
	clearEnvironmentVariables(t)

	cfg, err := LoadBytes([]byte("api:\n  timeout: 4s\nobservability:\n  headers:\n    x-api-key: abc\n"))
	require.NoError(t, err)

	assert.Equal(t, 4*time.Second, cfg.GetDuration("api.timeout"))
	assert.Equal(t, time.Minute, cfg.GetDuration("missing.duration", time.Minute))
	assert.Zero(t, cfg.GetDuration("observability.exporttimeout"))

	assert.True(t, cfg.Exists("observability.headers"))
	var headers map[string]string
	require.NoError(t, cfg.Unmarshal("observability.headers", &headers))
	assert.Equal(t, map[string]string{"x-api-key": "abc"}, headers)

	var api struct {
		BaseURL string `koanf:"baseurl"`
	}
	require.NoError(t, cfg.Unmarshal("api", &api))
	assert.Equal(t, "http://localhost:8000", api.BaseURL)

	var nilCfg *Config
	assert.False(t, nilCfg.Exists("api"))
	assert.Zero(t, nilCfg.GetDuration("api.timeout"))
	assert.Error(t, nilCfg.Unmarshal("api", &api))
}
