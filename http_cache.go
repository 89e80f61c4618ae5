package github

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CacheStatusHeader is set on responses produced by CachePlugin.
const CacheStatusHeader = "X-Cache-Status"

// Values of CacheStatusHeader.
const (
	CacheStatusHit         = "hit"
	CacheStatusMiss        = "miss"
	CacheStatusRevalidated = "revalidated"
)

// CacheDirectives represents parsed Cache-Control directives.
type CacheDirectives struct {
	NoStore        bool
	NoCache        bool
	MaxAge         *time.Duration
	SMaxAge        *time.Duration
	MustRevalidate bool
	Public         bool
	Private        bool
}

// parseCacheControl parses Cache-Control header into structured directives.
func parseCacheControl(header string) *CacheDirectives {
	directives := &CacheDirectives{}
	if header == "" {
		return directives
	}

	for _, part := range strings.Split(header, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}

		if key, value, ok := strings.Cut(part, "="); ok {
			key = strings.TrimSpace(key)
			value = strings.Trim(strings.TrimSpace(value), "\"")
			seconds, err := strconv.Atoi(value)
			if err != nil {
				continue
			}
			d := time.Duration(seconds) * time.Second

			switch key {
			case "max-age":
				directives.MaxAge = &d
			case "s-maxage":
				directives.SMaxAge = &d
			}
			continue
		}

		switch part {
		case "no-store":
			directives.NoStore = true
		case "no-cache":
			directives.NoCache = true
		case "must-revalidate":
			directives.MustRevalidate = true
		case "public":
			directives.Public = true
		case "private":
			directives.Private = true
		}
	}

	return directives
}

// parseHTTPDate parses the date formats allowed by RFC 7231.
func parseHTTPDate(header string) *time.Time {
	if header == "" {
		return nil
	}

	for _, layout := range []string{time.RFC1123, time.RFC850, time.ANSIC} {
		if t, err := time.Parse(layout, header); err == nil {
			return &t
		}
	}

	return nil
}

// freshUntil determines how long a response may be served from cache without
// revalidation. ok is false when the response must not be stored at all.
// Responses without explicit freshness information get defaultTTL.
func freshUntil(resp *http.Response, receivedAt time.Time, defaultTTL time.Duration) (time.Time, bool) {
	cc := parseCacheControl(resp.Header.Get("Cache-Control"))
	if cc.NoStore {
		return time.Time{}, false
	}

	// Stored but revalidated on every use.
	if cc.NoCache || cc.MustRevalidate && cc.MaxAge != nil && *cc.MaxAge == 0 {
		return receivedAt, true
	}

	if cc.MaxAge != nil {
		return receivedAt.Add(*cc.MaxAge), true
	}

	if expires := parseHTTPDate(resp.Header.Get("Expires")); expires != nil {
		return *expires, true
	}

	return receivedAt.Add(defaultTTL), true
}

// addConditionalHeaders adds If-None-Match and If-Modified-Since headers to a request.
func addConditionalHeaders(req *http.Request, entry *CacheEntry) {
	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	}
	if entry.LastModified != nil {
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}

// newCacheEntry creates a CacheEntry with HTTP cache metadata.
func newCacheEntry(resp *http.Response, body []byte, fresh time.Time) *CacheEntry {
	return &CacheEntry{
		Body:         body,
		StatusCode:   resp.StatusCode,
		Header:       resp.Header.Clone(),
		ETag:         resp.Header.Get("ETag"),
		LastModified: parseHTTPDate(resp.Header.Get("Last-Modified")),
		FreshUntil:   fresh,
	}
}

// refreshEntry folds the headers of a 304 response into a stored entry.
func refreshEntry(entry *CacheEntry, notModified *http.Response, fresh time.Time) *CacheEntry {
	refreshed := *entry
	refreshed.Header = entry.Header.Clone()
	for _, key := range []string{"Cache-Control", "Expires", "ETag", "Last-Modified", "Date"} {
		if v := notModified.Header.Get(key); v != "" {
			refreshed.Header.Set(key, v)
		}
	}
	if etag := notModified.Header.Get("ETag"); etag != "" {
		refreshed.ETag = etag
	}
	refreshed.FreshUntil = fresh
	return &refreshed
}
