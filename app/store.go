package app

import (
	"fmt"

	"github.com/gaborage/taskclient/auth"
	"github.com/gaborage/taskclient/config"
)

// newTokenStore builds the store selected by auth.store.type. The returned
// close function is nil for stores that hold no resources.
func newTokenStore(cfg *config.AuthConfig) (auth.Store, func() error, error) {
	switch cfg.Store.Type {
	case "", config.StoreMemory:
		return auth.NewMemoryStore(""), nil, nil

	case config.StoreFile:
		path := cfg.Store.File
		if path == "" {
			p, err := auth.DefaultTokenPath()
			if err != nil {
				return nil, nil, err
			}
			path = p
		}
		store, err := auth.NewFileStore(path)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case config.StoreRedis:
		r := cfg.Store.Redis
		store, err := auth.NewRedisStore(&auth.RedisConfig{
			Addr:     r.Addr,
			Password: r.Password,
			DB:       r.DB,
			Key:      r.Key,
			TTL:      r.TTL,
		})
		if err != nil {
			return nil, nil, config.NewConnectionError("auth.store.redis", err.Error(), []string{
				"check auth.store.redis.addr (AUTH_STORE_REDIS_ADDR)",
				"ensure the redis server is running and reachable",
			})
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("app: unsupported token store %q", cfg.Store.Type)
	}
}
