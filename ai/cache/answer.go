package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/cheonanurc/urcbot/ai/textnorm"
)

// CachedAnswer is the payload stored per resolved query.
type CachedAnswer struct {
	Text     string
	Source   string // the stage that produced the answer
	StoredAt time.Time
}

// AnswerCacheStats are cumulative hit counters.
type AnswerCacheStats struct {
	Hits   int64
	Misses int64
}

// AnswerCache caches final answers per session and normalized query.
// Keys are hashed so raw user text never sits in memory as a map key.
type AnswerCache struct {
	lru    *LRUCache[string, CachedAnswer]
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// NewAnswerCache creates an answer cache with the given capacity and TTL.
func NewAnswerCache(capacity int, ttl time.Duration) *AnswerCache {
	return &AnswerCache{
		lru: NewLRUCache[string, CachedAnswer](capacity, ttl),
		ttl: ttl,
	}
}

// Key derives the cache key from session and raw query. Queries that
// normalize identically, spacing included, share one entry per session.
func (a *AnswerCache) Key(sessionID, query string) string {
	sum := sha256.Sum256([]byte(sessionID + "::" + textnorm.NormalizeNoSpace(query)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached answer for the session and query, if still live.
func (a *AnswerCache) Get(sessionID, query string) (CachedAnswer, bool) {
	v, ok := a.lru.Get(a.Key(sessionID, query))
	if ok {
		a.hits.Add(1)
	} else {
		a.misses.Add(1)
	}
	return v, ok
}

// Put stores an answer for the session and query.
func (a *AnswerCache) Put(sessionID, query, text, source string) {
	a.lru.Set(a.Key(sessionID, query), CachedAnswer{
		Text:     text,
		Source:   source,
		StoredAt: time.Now(),
	}, a.ttl)
}

// Stats returns cumulative hit and miss counts.
func (a *AnswerCache) Stats() AnswerCacheStats {
	return AnswerCacheStats{
		Hits:   a.hits.Load(),
		Misses: a.misses.Load(),
	}
}

// Size returns the number of cached answers.
func (a *AnswerCache) Size() int {
	return a.lru.Size()
}
