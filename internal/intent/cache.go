// Package intent holds the shared types produced and consumed across the
// intent-analysis pipeline (C2-C5): IntentResult, the bounded LRU+TTL cache,
// and the method constants analyzers report through.
package intent

import (
	"container/list"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
)

// Method identifies which analyzer (or shortcut) produced an IntentResult.
type Method string

const (
	MethodLLM             Method = "llm"
	MethodNLP             Method = "nlp"
	MethodKeyword         Method = "keyword"
	MethodFlowContinuation Method = "flow_continuation"
)

// FallbackIntent is returned whenever no analyzer can confidently classify
// the utterance.
const FallbackIntent = "fallback"

// Result is the outcome of intent analysis, shared by every analyzer,
// the validator, and the router (spec §3, IntentResult).
type Result struct {
	PrimaryIntent string         `json:"primary_intent"`
	Confidence    float64        `json:"confidence"`
	TargetAgent   string         `json:"target_agent"`
	Method        Method         `json:"method"`
	Reasoning     string         `json:"reasoning"`
	Entities      map[string]any `json:"entities,omitempty"`
}

// CacheKeyContext is the "relevant context subset" folded into the cache key
// alongside the normalized message (spec.md §4.2).
type CacheKeyContext struct {
	Language      string `json:"language"`
	UserTier      string `json:"user_tier"`
	PreviousAgent string `json:"previous_agent"`
}

// CacheKey computes md5(lowercase(trim(message)) | json_sorted(context)) as
// specified in spec.md §4.2. json.Marshal of a struct with fixed field order
// already produces a stable encoding, so "json_sorted" here means: always
// serialize the same three keys in the same order, never a free-form map.
func CacheKey(message string, ctx CacheKeyContext) string {
	normalized := strings.TrimSpace(strings.ToLower(message))
	// Re-marshal through a map with sorted keys to stay honest to
	// "json_sorted" even if CacheKeyContext grows fields later.
	raw, _ := json.Marshal(ctx)
	var asMap map[string]any
	_ = json.Unmarshal(raw, &asMap)
	keys := make([]string, 0, len(asMap))
	for k := range asMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(normalized)
	b.WriteByte('|')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		if v, ok := asMap[k].(string); ok {
			b.WriteString(v)
		}
	}
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

type cacheEntry struct {
	key        string
	value      Result
	insertedAt time.Time
}

// Cache is a bounded LRU with TTL eviction, keyed by CacheKey. It matches
// spec.md §4.2's contract: get evicts expired entries first, then promotes
// the hit to MRU; set evicts the LRU entry when at capacity. Grounded on the
// teacher's mutex-guarded-map style (runtime/agent/session/inmem/store.go)
// combined with the standard container/list LRU idiom — the teacher has no
// LRU of its own, so this part is built from general Go idiom plus the
// teacher's locking discipline.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	order    *list.List // front = MRU, back = LRU
	index    map[string]*list.Element

	hits   uint64
	misses uint64
}

// DefaultTTL and DefaultCapacity mirror spec.md §3's stated defaults (60s
// TTL, 1000 entries).
const (
	DefaultTTL      = 60 * time.Second
	DefaultCapacity = 1000
)

// NewCache constructs a Cache. ttl <= 0 and capacity <= 0 fall back to the
// spec defaults.
func NewCache(ttl time.Duration, capacity int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element),
	}
}

// Get evicts expired entries lazily (checking the requested key and its
// neighbors at the LRU end), then returns the value if present and fresh,
// promoting it to MRU.
func (c *Cache) Get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpiredLocked()

	el, ok := c.index[key]
	if !ok {
		c.misses++
		return Result{}, false
	}
	entry := el.Value.(*cacheEntry)
	if time.Since(entry.insertedAt) > c.ttl {
		c.order.Remove(el)
		delete(c.index, key)
		c.misses++
		return Result{}, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return entry.value, true
}

// Set inserts or updates an entry, evicting the LRU entry first if the
// cache is at capacity.
func (c *Cache) Set(key string, value Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.value = value
		entry.insertedAt = time.Now()
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		c.evictOneLocked()
	}

	entry := &cacheEntry{key: key, value: value, insertedAt: time.Now()}
	el := c.order.PushFront(entry)
	c.index[key] = el
}

// Stats returns cumulative hit/miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache) evictExpiredLocked() {
	now := time.Now()
	for el := c.order.Back(); el != nil; {
		entry := el.Value.(*cacheEntry)
		if now.Sub(entry.insertedAt) <= c.ttl {
			break
		}
		prev := el.Prev()
		c.order.Remove(el)
		delete(c.index, entry.key)
		el = prev
	}
}

func (c *Cache) evictOneLocked() {
	el := c.order.Back()
	if el == nil {
		return
	}
	entry := el.Value.(*cacheEntry)
	c.order.Remove(el)
	delete(c.index, entry.key)
}
