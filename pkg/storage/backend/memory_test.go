package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemory(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	assert.NotZero(t, m.config.DefaultTTL)
	assert.Equal(t, "halstore:", m.config.Prefix)
}

func TestMemory_SetAndGet(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	value := []byte("payload")
	require.NoError(t, m.Set(ctx, "key", value, time.Minute))

	value[0] = 'X'
	got, err := m.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got, "stored value is a copy")
}

func TestMemory_Miss(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	_, err := m.Get(context.Background(), "nonexistent")
	assert.True(t, IsCacheMiss(err))
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestMemory_Expiration(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "short", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := m.Get(ctx, "short")
	assert.True(t, IsCacheMiss(err))

	exists, err := m.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemory_NoExpiry(t *testing.T) {
	m := NewMemoryWithConfig(Config{DefaultTTL: -1, Prefix: "t:"})
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "forever", []byte("v"), 0))
	exists, err := m.Exists(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemory_DeleteAndClear(t *testing.T) {
	m := NewMemory()
	defer m.Close()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, m.Delete(ctx, "a"))
	_, err := m.Get(ctx, "a")
	assert.True(t, IsCacheMiss(err))

	require.NoError(t, m.Clear(ctx))
	_, err = m.Get(ctx, "b")
	assert.True(t, IsCacheMiss(err))
}

func TestMemory_CancelledContext(t *testing.T) {
	m := NewMemory()
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, m.Set(ctx, "k", nil, 0), context.Canceled)
}
