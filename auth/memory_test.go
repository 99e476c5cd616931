package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("")

	token, ok, err := s.GetToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, token)

	require.NoError(t, s.SetToken(ctx, "abc"))
	token, ok, err = s.GetToken(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	require.NoError(t, s.RemoveToken(ctx))
	_, ok, _ = s.GetToken(ctx)
	assert.False(t, ok)

	require.NoError(t, s.RemoveToken(ctx), "removing a missing token succeeds")
}

func TestMemoryStoreSeeded(t *testing.T) {
	token, ok, err := NewMemoryStore("seed").GetToken(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "seed", token)
}

func TestMemoryStoreRejectsEmptyToken(t *testing.T) {
	s := NewMemoryStore("keep")
	assert.ErrorIs(t, s.SetToken(context.Background(), ""), ErrEmptyToken)

	token, _, _ := s.GetToken(context.Background())
	assert.Equal(t, "keep", token)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("start")

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				_ = s.SetToken(ctx, "t")
			case 1:
				_ = s.RemoveToken(ctx)
			default:
				_, _, _ = s.GetToken(ctx)
			}
		}(i)
	}
	wg.Wait()
}
