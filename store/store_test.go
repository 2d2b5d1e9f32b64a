package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/cinesuggest/core"
)

// exerciseStore 对任意 core.Store 实现执行相同的读写检查。
func exerciseStore(t *testing.T, s core.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	v, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, s.BatchSet(ctx, map[string][]byte{"b": []byte("2"), "c": []byte("3")}, 60))
	got, err := s.BatchGet(ctx, []string{"a", "b", "c", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2"), "c": []byte("3")}, got)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.True(t, core.IsStoreNotFound(err))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	assert.Equal(t, "memory", s.Name())
	exerciseStore(t, s)
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 1))
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	// 直接改写过期时间，避免测试等待
	s.mu.Lock()
	s.data["k"].expire = time.Now().Add(-time.Second)
	s.mu.Unlock()

	_, err = s.Get(ctx, "k")
	assert.True(t, core.IsStoreNotFound(err))
}

func TestMemoryStore_CopiesValue(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'z'

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), v)
}

func TestMemoryStore_CloseTwice(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestBadgerStore_InMemory(t *testing.T) {
	s, err := NewBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	assert.Equal(t, "badger", s.Name())
	exerciseStore(t, s)
}

func TestBadgerStore_Persists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "snapshot", []byte("factors")))
	require.NoError(t, s.Close())

	s, err = NewBadgerStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	v, err := s.Get(ctx, "snapshot")
	require.NoError(t, err)
	assert.Equal(t, []byte("factors"), v)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), RedisOptions{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Open(ctx, Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())
	require.NoError(t, s.Close())

	s, err = Open(ctx, Config{Backend: BackendBadger})
	require.NoError(t, err)
	assert.Equal(t, "badger", s.Name())
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Backend: "etcd"})
	assert.True(t, core.IsInvalidInput(err))
}
