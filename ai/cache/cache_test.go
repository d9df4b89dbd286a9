package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCacheBasic(t *testing.T) {
	c := NewLRUCache[string, int](3, time.Minute)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	assert.True(t, c.Remove("b"))
	assert.False(t, c.Remove("b"))
	assert.Equal(t, 1, c.Size())
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int, string](2, time.Minute)

	c.Set(1, "one", 0)
	c.Set(2, "two", 0)
	// Touch 1 so 2 becomes the eviction victim.
	_, _ = c.Get(1)
	c.Set(3, "three", 0)

	_, ok := c.Get(2)
	assert.False(t, ok)
	_, ok = c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCacheTTLExpiry(t *testing.T) {
	c := NewLRUCache[string, int](10, time.Minute)

	c.Set("short", 7, 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestLRUCacheUpdateExisting(t *testing.T) {
	c := NewLRUCache[string, int](2, time.Minute)

	c.Set("k", 1, 0)
	c.Set("k", 2, 0)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Size())
}

func TestAnswerCacheNormalizedKeys(t *testing.T) {
	a := NewAnswerCache(10, time.Minute)

	a.Put("sess-1", "센터 소개 알려주세요", "안내 답변", "faq")

	// Spacing and politeness variants share the entry.
	got, ok := a.Get("sess-1", "센터소개")
	require.True(t, ok)
	assert.Equal(t, "안내 답변", got.Text)
	assert.Equal(t, "faq", got.Source)

	// Sessions never see each other's answers.
	_, ok = a.Get("sess-2", "센터소개")
	assert.False(t, ok)
}

func TestAnswerCacheStats(t *testing.T) {
	a := NewAnswerCache(10, time.Minute)

	_, _ = a.Get("s", "질문")
	a.Put("s", "질문", "답", "faq")
	_, _ = a.Get("s", "질문")

	st := a.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, 1, a.Size())
}

func TestAnswerCacheKeyStability(t *testing.T) {
	a := NewAnswerCache(10, time.Minute)
	k1 := a.Key("s", "운영 시간?")
	k2 := a.Key("s", "운영 시간")
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, a.Key("other", "운영 시간"))
	assert.Len(t, k1, 64)
}
