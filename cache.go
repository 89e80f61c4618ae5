package github

import (
	"bytes"
	"hash/fnv"
	"io"
	"net/http"
	"sync"
	"time"
)

// CacheEntry represents a cached response
type CacheEntry struct {
	Body         []byte
	StatusCode   int
	Header       http.Header
	ETag         string
	LastModified *time.Time
	// FreshUntil is the point after which the entry must be revalidated.
	FreshUntil time.Time
}

// Fresh reports whether the entry can be served without revalidation.
func (e *CacheEntry) Fresh(now time.Time) bool {
	return now.Before(e.FreshUntil)
}

// Revalidatable reports whether the entry carries a validator.
func (e *CacheEntry) Revalidatable() bool {
	return e.ETag != "" || e.LastModified != nil
}

// Cache is the storage handle used by CachePlugin. Implementations must be
// safe for concurrent use: one store may back several clients.
type Cache interface {
	Get(key string) (*CacheEntry, bool)
	// Set stores entry for ttl; a stored entry may outlive its freshness so
	// that it can be revalidated.
	Set(key string, entry *CacheEntry, ttl time.Duration)
	Delete(key string)
	Clear()
	Len() int
}

// InMemoryCache is a sharded in-memory Cache.
type InMemoryCache struct {
	shards    []*cacheShard
	numShards int
}

type cacheShard struct {
	mu    sync.RWMutex
	store map[string]cacheItem
}

type cacheItem struct {
	entry     *CacheEntry
	expiresAt time.Time
}

// NewInMemoryCache creates an empty in-memory cache.
func NewInMemoryCache() *InMemoryCache {
	numShards := 16
	shards := make([]*cacheShard, numShards)
	for i := range shards {
		shards[i] = &cacheShard{
			store: make(map[string]cacheItem),
		}
	}
	return &InMemoryCache{
		shards:    shards,
		numShards: numShards,
	}
}

func (c *InMemoryCache) getShard(key string) *cacheShard {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(key))
	return c.shards[hash.Sum32()%uint32(c.numShards)]
}

func (c *InMemoryCache) Get(key string) (*CacheEntry, bool) {
	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	item, exists := shard.store[key]
	if !exists {
		return nil, false
	}

	if time.Now().After(item.expiresAt) {
		delete(shard.store, key)
		return nil, false
	}

	return item.entry, true
}

func (c *InMemoryCache) Set(key string, entry *CacheEntry, ttl time.Duration) {
	if entry == nil || ttl <= 0 {
		return
	}

	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	shard.store[key] = cacheItem{entry: entry, expiresAt: time.Now().Add(ttl)}
}

func (c *InMemoryCache) Delete(key string) {
	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.store, key)
}

func (c *InMemoryCache) Clear() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		shard.store = make(map[string]cacheItem)
		shard.mu.Unlock()
	}
}

// Len counts stored entries, including ones past their storage deadline
// that have not been evicted yet.
func (c *InMemoryCache) Len() int {
	total := 0
	for _, shard := range c.shards {
		shard.mu.RLock()
		total += len(shard.store)
		shard.mu.RUnlock()
	}
	return total
}

func responseFromEntry(req *http.Request, entry *CacheEntry, status string) *http.Response {
	resp := &http.Response{
		Status:        http.StatusText(entry.StatusCode),
		StatusCode:    entry.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        entry.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	resp.Header.Set(CacheStatusHeader, status)
	return resp
}

// DefaultCacheKeyFunc keys on method, URL and the identity sending the
// request, so a store shared between clients never leaks responses across
// credentials.
func DefaultCacheKeyFunc(req *http.Request) string {
	var buf []byte
	buf = append(buf, req.Method...)
	buf = append(buf, ':')
	if req.URL != nil {
		buf = append(buf, req.URL.String()...)
	}
	if auth := req.Header.Get("Authorization"); auth != "" {
		hash := fnv.New64a()
		_, _ = hash.Write([]byte(auth))
		buf = append(buf, '#')
		buf = appendHex(buf, hash.Sum64())
	}
	return string(buf)
}

func appendHex(buf []byte, v uint64) []byte {
	const digits = "0123456789abcdef"
	for i := 60; i >= 0; i -= 4 {
		buf = append(buf, digits[(v>>uint(i))&0xf])
	}
	return buf
}
