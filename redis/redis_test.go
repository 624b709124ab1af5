package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisLib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisLib.NewClient(&redisLib.Options{Addr: mr.Addr()})
	return NewCacheFromClient(client, zap.NewNop()), mr
}

func TestCache_SetGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, cache.Set(ctx, "k", payload{Name: "x"}, time.Minute))

	var got payload
	found, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "x", got.Name)

	found, err = cache.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_Versioning(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	assert.Equal(t, int64(0), cache.GetVersion(ctx, "v"))
	cache.IncrementVersion(ctx, "v")
	cache.IncrementVersion(ctx, "v")
	assert.Equal(t, int64(2), cache.GetVersion(ctx, "v"))
}

func TestCache_ClaimIsExclusive(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	ok, err := cache.Claim(ctx, "claim", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.Claim(ctx, "claim", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = cache.Claim(ctx, "claim", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	cache.Release(ctx, "claim")
	ok, _ = cache.Claim(ctx, "claim", time.Minute)
	assert.True(t, ok)
}

func TestCache_DisabledIsNoop(t *testing.T) {
	cache := &Cache{log: zap.NewNop()}
	ctx := context.Background()

	assert.False(t, cache.Enabled())
	assert.NoError(t, cache.Set(ctx, "k", 1, time.Minute))
	var v int
	found, err := cache.Get(ctx, "k", &v)
	assert.NoError(t, err)
	assert.False(t, found)

	ok, err := cache.Claim(ctx, "k", time.Minute)
	assert.NoError(t, err)
	assert.True(t, ok)
}
