package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-match-backend/internal/config"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedisClient(config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, time.Hour), mr
}

func TestLikeCount_MissSetHit(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	n, ok, err := c.GetLikeCount(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, n)

	require.NoError(t, c.SetLikeCount(ctx, "u1", 7))
	assert.Equal(t, time.Hour, mr.TTL(KeyForLikeCount("u1")))

	mr.FastForward(30 * time.Minute)
	n, ok, err = c.GetLikeCount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)
	// A hit refreshes the TTL.
	assert.Equal(t, time.Hour, mr.TTL(KeyForLikeCount("u1")))
}

func TestIncrLikeCount_OnlyWhenCached(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.IncrLikeCount(ctx, "u1"))
	assert.False(t, mr.Exists(KeyForLikeCount("u1")), "missing key must stay missing")

	require.NoError(t, c.SetLikeCount(ctx, "u1", 2))
	require.NoError(t, c.IncrLikeCount(ctx, "u1"))
	n, ok, err := c.GetLikeCount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)
}

func TestGetLikeCount_CorruptValueIsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set(KeyForLikeCount("u1"), "not-a-number"))

	_, ok, err := c.GetLikeCount(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(KeyForLikeCount("u1")))
}

func TestGetLikeCount_ConnectionError(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()
	_, _, err := c.GetLikeCount(context.Background(), "u1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, redis.Nil)
}

func TestNop(t *testing.T) {
	var n Nop
	ctx := context.Background()
	assert.NoError(t, n.SetLikeCount(ctx, "u1", 3))
	assert.NoError(t, n.IncrLikeCount(ctx, "u1"))
	_, ok, err := n.GetLikeCount(ctx, "u1")
	assert.NoError(t, err)
	assert.False(t, ok)
}
