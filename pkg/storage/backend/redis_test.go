package backend

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedisWithClient(client, DefaultConfig())
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestNewRedisWithConfig(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config := DefaultRedisConfig()
	config.Addr = mr.Addr()

	r, err := NewRedisWithConfig(config)
	require.NoError(t, err)
	assert.NoError(t, r.Close())
}

func TestNewRedisWithConfig_ConnectionError(t *testing.T) {
	config := DefaultRedisConfig()
	config.Addr = "localhost:99999"

	_, err := NewRedisWithConfig(config)
	assert.Error(t, err)
}

func TestRedis_SetAndGet(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "users/1", []byte(`{"name":"john"}`), time.Minute))

	got, err := r.Get(ctx, "users/1")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"john"}`, string(got))

	assert.True(t, mr.Exists("halstore:users/1"), "keys carry the prefix")
	assert.Equal(t, time.Minute, mr.TTL("halstore:users/1"))
}

func TestRedis_Expiration(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, err := r.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))
}

func TestRedis_NegativeTTLNeverExpires(t *testing.T) {
	r, mr := setupTestRedis(t)

	require.NoError(t, r.Set(context.Background(), "k", []byte("v"), -1))
	assert.Equal(t, time.Duration(0), mr.TTL("halstore:k"))
}

func TestRedis_DeleteExistsClear(t *testing.T) {
	r, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, r.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, mr.Set("other:c", "3"))

	exists, err := r.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, r.Delete(ctx, "a"))
	exists, err = r.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, r.Clear(ctx))
	assert.False(t, mr.Exists("halstore:b"))
	assert.True(t, mr.Exists("other:c"), "Clear only touches the prefix")
}
