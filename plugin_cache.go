package github

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/slaughter550/github-api/internal/singleflight"
)

// Default cache settings
const (
	DefaultCacheTTL      = 60 * time.Second
	DefaultCacheLifetime = 30 * 24 * time.Hour
)

// maxCacheBody bounds the size of a cached body.
const maxCacheBody = 10 * 1024 * 1024

// CacheOption configures a CachePlugin.
type CacheOption func(*CachePlugin)

// WithCacheTTL sets the freshness given to responses without Cache-Control
// or Expires headers.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(p *CachePlugin) {
		p.DefaultTTL = ttl
	}
}

// WithCacheLifetime sets how long a revalidatable entry is kept after it
// stops being fresh.
func WithCacheLifetime(d time.Duration) CacheOption {
	return func(p *CachePlugin) {
		p.CacheLifetime = d
	}
}

// WithCacheKeyFunc sets a custom cache key function
func WithCacheKeyFunc(fn func(*http.Request) string) CacheOption {
	return func(p *CachePlugin) {
		p.KeyFunc = fn
	}
}

// CachePlugin serves GET and HEAD requests from Store and revalidates stale
// entries with conditional requests. Concurrent misses for the same key are
// collapsed into a single upstream call.
type CachePlugin struct {
	Store         Cache
	DefaultTTL    time.Duration
	CacheLifetime time.Duration
	KeyFunc       func(*http.Request) string
	Metrics       *MetricsCollector

	flight *singleflight.Group[*cacheResult]
}

// cacheResult is handed to every waiter of a collapsed upstream call; each
// caller rebuilds its own response from the entry.
type cacheResult struct {
	entry  *CacheEntry
	status string
}

// NewCachePlugin creates a cache plugin backed by store.
func NewCachePlugin(store Cache, options ...CacheOption) *CachePlugin {
	p := &CachePlugin{
		Store:         store,
		DefaultTTL:    DefaultCacheTTL,
		CacheLifetime: DefaultCacheLifetime,
		KeyFunc:       DefaultCacheKeyFunc,
		flight:        singleflight.New[*cacheResult](),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *CachePlugin) Kind() PluginKind { return KindCache }

func (p *CachePlugin) Handle(req *http.Request, next RoundTripper) (*http.Response, error) {
	if p.Store == nil || (req.Method != http.MethodGet && req.Method != http.MethodHead) {
		return next.RoundTrip(req)
	}

	key := p.key(req)
	endpoint := endpointFromRequest(req)

	if entry, ok := p.Store.Get(key); ok && entry.Fresh(time.Now()) {
		p.Metrics.RecordCacheHit(req.Method, endpoint)
		return responseFromEntry(req, entry, CacheStatusHit), nil
	}
	p.Metrics.RecordCacheMiss(req.Method, endpoint)

	if p.flight == nil {
		p.flight = singleflight.New[*cacheResult]()
	}

	var passthrough *http.Response
	result, err, _ := p.flight.Do(key, func() (*cacheResult, error) {
		resp, err := p.fetch(req, key, next)
		if err != nil {
			return nil, err
		}
		if resp.entry == nil {
			passthrough = resp.raw
			return nil, nil
		}
		return &cacheResult{entry: resp.entry, status: resp.status}, nil
	})
	if err != nil {
		return nil, err
	}
	if passthrough != nil {
		return passthrough, nil
	}
	if result == nil {
		// Another caller owned the upstream response and could not share it.
		return next.RoundTrip(req)
	}
	if result.status == CacheStatusRevalidated {
		p.Metrics.RecordCacheRevalidation(req.Method, endpoint)
	}
	return responseFromEntry(req, result.entry, result.status), nil
}

type fetchResult struct {
	entry  *CacheEntry
	status string
	raw    *http.Response
}

func (p *CachePlugin) fetch(req *http.Request, key string, next RoundTripper) (fetchResult, error) {
	stale, hasStale := p.Store.Get(key)
	if hasStale && stale.Revalidatable() {
		addConditionalHeaders(req, stale)
	}

	resp, err := next.RoundTrip(req)
	if err != nil {
		return fetchResult{}, err
	}
	receivedAt := time.Now()

	if resp.StatusCode == http.StatusNotModified && hasStale {
		drainBody(resp)
		fresh, storable := freshUntil(resp, receivedAt, p.defaultTTL())
		if !storable {
			p.Store.Delete(key)
			return fetchResult{entry: stale, status: CacheStatusRevalidated}, nil
		}
		refreshed := refreshEntry(stale, resp, fresh)
		p.Store.Set(key, refreshed, p.storageTTL(refreshed, receivedAt))
		return fetchResult{entry: refreshed, status: CacheStatusRevalidated}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return fetchResult{raw: resp}, nil
	}

	fresh, storable := freshUntil(resp, receivedAt, p.defaultTTL())
	if !storable {
		return fetchResult{raw: resp}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCacheBody+1))
	if err != nil {
		_ = resp.Body.Close()
		return fetchResult{}, err
	}
	if len(body) > maxCacheBody {
		resp.Body = readCloser{
			Reader: io.MultiReader(bytes.NewReader(body), resp.Body),
			Closer: resp.Body,
		}
		return fetchResult{raw: resp}, nil
	}
	_ = resp.Body.Close()

	entry := newCacheEntry(resp, body, fresh)
	p.Store.Set(key, entry, p.storageTTL(entry, receivedAt))
	p.Metrics.RecordCacheSize("default", p.Store.Len())
	return fetchResult{entry: entry, status: CacheStatusMiss}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func (p *CachePlugin) key(req *http.Request) string {
	if p.KeyFunc != nil {
		return p.KeyFunc(req)
	}
	return DefaultCacheKeyFunc(req)
}

func (p *CachePlugin) defaultTTL() time.Duration {
	if p.DefaultTTL > 0 {
		return p.DefaultTTL
	}
	return DefaultCacheTTL
}

// storageTTL keeps revalidatable entries around past their freshness.
func (p *CachePlugin) storageTTL(entry *CacheEntry, now time.Time) time.Duration {
	ttl := entry.FreshUntil.Sub(now)
	if entry.Revalidatable() {
		ttl += p.CacheLifetime
	}
	return ttl
}
