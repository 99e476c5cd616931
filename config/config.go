// Package config loads task client configuration from defaults, YAML and environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// DefaultFile is read from the working directory when present.
const DefaultFile = "config.yaml"

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Token store backends
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. config.<env>.yaml, then config.yaml
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	return LoadFile(DefaultFile)
}

// LoadFile behaves like Load with an explicit base YAML path.
// A missing file is not an error; a malformed one is.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadOptionalFile(k, path); err != nil {
		return nil, err
	}

	if appEnv := k.String("app.env"); appEnv != "" && path != "" {
		if err := loadOptionalFile(k, envFileName(path, appEnv)); err != nil {
			return nil, err
		}
	}

	return finish(k)
}

// LoadBytes loads defaults, then the given YAML document, then environment variables.
func LoadBytes(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	}

	return finish(k)
}

func finish(k *koanf.Koanf) (*Config, error) {
	if err := k.Load(envProvider(leafKeys(k)), nil); err != nil {
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
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// envFileName maps config.yaml + production to config.production.yaml.
func envFileName(path, appEnv string) string {
	if base, ok := strings.CutSuffix(path, ".yaml"); ok {
		return base + "." + appEnv + ".yaml"
	}
	return path + "." + appEnv
}

// envProvider maps API_BASEURL to api.baseurl. Only keys already present after
// defaults and files are accepted, so API_TIMEOUT_MS cannot turn api.timeout into a map.
func envProvider(known map[string]struct{}) *env.Env {
	return env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			key := strings.ReplaceAll(strings.ToLower(k), "_", ".")
			if _, ok := known[key]; !ok {
				return "", nil
			}
			return key, v
		},
	})
}

func leafKeys(k *koanf.Koanf) map[string]struct{} {
	keys := k.Keys()
	known := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		known[key] = struct{}{}
	}
	return known
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "taskclient",
		"app.version": "v1.0.0",
		"app.env":     EnvDevelopment,

		"api.baseurl":      "http://localhost:8000",
		"api.timeout":      "10s",
		"api.retry.max":    3,
		"api.retry.delay":  "1s",
		"api.rate.limit":   0,
		"api.rate.burst":   1,
		"api.trace.header": "X-Request-ID",
		"api.trace.w3c":    true,
		"api.log.payloads": false,
		"api.log.maxbytes": 1024,

		"auth.store.type":           StoreMemory,
		"auth.store.file":           "",
		"auth.store.redis.addr":     "localhost:6379",
		"auth.store.redis.password": "",
		"auth.store.redis.db":       0,
		"auth.store.redis.key":      "taskclient:token",
		"auth.store.redis.ttl":      "0s",
		"auth.signin.path":          "/auth/sign-in",
		"auth.token":                "",

		"log.level":  "info",
		"log.pretty": false,

		"observability.enabled":        false,
		"observability.service":        "taskclient",
		"observability.endpoint":       "stdout",
		"observability.protocol":       "http",
		"observability.insecure":       false,
		"observability.sample":         1.0,
		"observability.batchtimeout":   "0s",
		"observability.exporttimeout":  "0s",
		"observability.metricinterval": "0s",

		"stub.host":  "127.0.0.1",
		"stub.port":  8000,
		"stub.token": "dev-token",
		"stub.bare":  false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
