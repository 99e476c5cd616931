//go:build integration

// Package containers starts throwaway backing services for integration tests.
// Tests are skipped when no Docker daemon is reachable.
package containers

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

const redisPort = "6379/tcp"

// RedisOptions configures the redis container.
type RedisOptions struct {
	// Image defaults to redis:7-alpine.
	Image          string
	StartupTimeout time.Duration
}

func (o *RedisOptions) withDefaults() RedisOptions {
	out := RedisOptions{Image: "redis:7-alpine", StartupTimeout: time.Minute}
	if o == nil {
		return out
	}
	if o.Image != "" {
		out.Image = o.Image
	}
	if o.StartupTimeout > 0 {
		out.StartupTimeout = o.StartupTimeout
	}
	return out
}

// Redis is a running redis container used as a shared token store.
type Redis struct {
	container *redis.RedisContainer
	host      string
	port      int
}

// StartRedis launches a redis container and registers its termination with t.Cleanup.
// The test is skipped when Docker is unavailable.
func StartRedis(ctx context.Context, t *testing.T, opts *RedisOptions) (*Redis, error) {
	t.Helper()

	if !dockerReachable(ctx) {
		t.Skip("Docker daemon not reachable; skipping redis integration test")
	}

	o := opts.withDefaults()
	c, err := redis.Run(ctx, o.Image,
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(o.StartupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start redis container: %w", err)
	}

	t.Cleanup(func() {
		if termErr := c.Terminate(context.Background()); termErr != nil {
			t.Logf("terminate redis container: %v", termErr)
		}
	})

	host, err := c.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis container host: %w", err)
	}
	mapped, err := c.MappedPort(ctx, redisPort)
	if err != nil {
		return nil, fmt.Errorf("redis container port: %w", err)
	}

	return &Redis{container: c, host: host, port: mapped.Int()}, nil
}

// MustStartRedis is StartRedis that fails the test on error.
func MustStartRedis(ctx context.Context, t *testing.T, opts *RedisOptions) *Redis {
	t.Helper()
	r, err := StartRedis(ctx, t, opts)
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	return r
}

func (r *Redis) Host() string { return r.host }

func (r *Redis) Port() int { return r.port }

// Addr returns host:port suitable for a redis client.
func (r *Redis) Addr() string {
	return net.JoinHostPort(r.host, strconv.Itoa(r.port))
}
