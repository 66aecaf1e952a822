package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeyIsCaseAndWhitespaceInsensitive(t *testing.T) {
	ctx := CacheKeyContext{Language: "es", UserTier: "gold"}
	a := CacheKey("  Cual Es Mi Saldo  ", ctx)
	b := CacheKey("cual es mi saldo", ctx)
	assert.Equal(t, a, b)
}

func TestCacheKeyDiffersByContext(t *testing.T) {
	a := CacheKey("hola", CacheKeyContext{Language: "es"})
	b := CacheKey("hola", CacheKeyContext{Language: "en"})
	assert.NotEqual(t, a, b)
}

func TestCacheGetSetRoundTrip(t *testing.T) {
	c := NewCache(time.Minute, 10)
	key := CacheKey("hola", CacheKeyContext{})

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Set(key, Result{PrimaryIntent: "greeting", Confidence: 0.9})
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "greeting", got.PrimaryIntent)

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestCacheEntryExpiresAfterTTL(t *testing.T) {
	c := NewCache(time.Millisecond, 10)
	key := CacheKey("hola", CacheKeyContext{})
	c.Set(key, Result{PrimaryIntent: "greeting"})

	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestCacheEvictsLRUAtCapacity(t *testing.T) {
	c := NewCache(time.Minute, 2)
	c.Set("a", Result{PrimaryIntent: "a"})
	c.Set("b", Result{PrimaryIntent: "b"})
	// touch "a" so "b" becomes the least-recently-used entry
	c.Get("a")
	c.Set("c", Result{PrimaryIntent: "c"})

	_, aOK := c.Get("a")
	_, bOK := c.Get("b")
	_, cOK := c.Get("c")

	assert.True(t, aOK)
	assert.False(t, bOK)
	assert.True(t, cOK)
}

func TestNewCacheDefaultsInvalidArgs(t *testing.T) {
	c := NewCache(0, 0)
	assert.Equal(t, DefaultTTL, c.ttl)
	assert.Equal(t, DefaultCapacity, c.capacity)
}
