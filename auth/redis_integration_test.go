//go:build integration

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/taskclient/testing/containers"
)

func TestRedisStoreAgainstContainer(t *testing.T) {
	ctx := context.Background()
	r := containers.MustStartRedis(ctx, t, nil)

	s, err := NewRedisStore(&RedisConfig{Addr: r.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SetToken(ctx, "container-token"))
	token, ok, err := s.GetToken(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "container-token", token)

	require.NoError(t, s.RemoveToken(ctx))
	_, ok, err = s.GetToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
