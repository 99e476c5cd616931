package auth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	backendRedis = "redis"

	// DefaultRedisKey is used when RedisConfig.Key is empty.
	DefaultRedisKey = "taskclient:token"

	pingTimeout = 5 * time.Second
)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // credential supplied by configuration
	DB       int
	Key      string
	// TTL expires the token server-side. Zero keeps it until removed.
	TTL time.Duration

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Validate checks the configuration.
func (c *RedisConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("auth: redis address is required")
	}
	if c.DB < 0 {
		return fmt.Errorf("auth: redis db must be non-negative, got %d", c.DB)
	}
	if c.TTL < 0 {
		return fmt.Errorf("auth: redis ttl must be non-negative, got %s", c.TTL)
	}
	return nil
}

// RedisStore shares one token between processes through a redis key.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	closed atomic.Bool
}

// NewRedisStore connects to redis and verifies the connection with PING.
func NewRedisStore(cfg *RedisConfig) (*RedisStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, &ConnectionError{Op: "ping", Address: cfg.Addr, Err: err}
	}

	key := cfg.Key
	if key == "" {
		key = DefaultRedisKey
	}

	return &RedisStore{client: client, key: key, ttl: cfg.TTL}, nil
}

// Key returns the redis key holding the token.
func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) GetToken(ctx context.Context) (string, bool, error) {
	if s.closed.Load() {
		return "", false, ErrClosed
	}

	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, newOperationError(backendRedis, "get", err)
	}
	return token, token != "", nil
}

func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if s.closed.Load() {
		return ErrClosed
	}

	if err := s.client.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		return newOperationError(backendRedis, "set", err)
	}
	return nil
}

func (s *RedisStore) RemoveToken(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}

	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return newOperationError(backendRedis, "remove", err)
	}
	return nil
}

// Close releases the connection pool. Further calls return ErrClosed.
func (s *RedisStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.client.Close()
}
