package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemorySetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[string, int]()

	c.Set(ctx, "a", 1, 0)
	v, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[string, string]()

	c.Set(ctx, "k", "v", 10*time.Millisecond)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok, "过期条目应在 Get 时被剔除")
	assert.Equal(t, 0, c.Len())
}

func TestMemoryMaxSizeEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[string, int](WithMaxSize(2))

	c.Set(ctx, "a", 1, time.Hour)
	c.Set(ctx, "b", 2, time.Minute)
	c.Set(ctx, "c", 3, time.Hour)

	assert.Equal(t, 2, c.Len())
	// b 的过期时间最早, 应被淘汰
	_, ok := c.Get(ctx, "b")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "c")
	assert.True(t, ok)
}

func TestMemoryOverwriteExistingDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[string, int](WithMaxSize(2))

	c.Set(ctx, "a", 1, 0)
	c.Set(ctx, "b", 2, 0)
	c.Set(ctx, "a", 10, 0)

	assert.Equal(t, 2, c.Len())
	v, _ := c.Get(ctx, "a")
	assert.Equal(t, 10, v)
	_, ok := c.Get(ctx, "b")
	assert.True(t, ok)
}

func TestMemoryJanitorSweep(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[string, int](WithSweepInterval(10 * time.Millisecond))
	defer c.Close()

	c.Set(ctx, "short", 1, 5*time.Millisecond)
	c.Set(ctx, "long", 2, time.Hour)

	assert.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 10*time.Millisecond)
}
