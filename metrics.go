package github

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request pipeline. It
// is safe for concurrent use, and every method is a no-op on a nil receiver.
type MetricsCollector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	cacheRevalidations *prometheus.CounterVec
	cacheSize          *prometheus.GaugeVec

	rateLimitRemaining prometheus.Gauge
	rateLimitLimit     prometheus.Gauge

	errorsTotal *prometheus.CounterVec

	clientRebuilds prometheus.Counter

	registry prometheus.Registerer
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registry)

	return &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "github_api_requests_total",
				Help: "Total number of GitHub API requests made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "github_api_request_duration_seconds",
				Help:    "Duration of GitHub API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "github_api_cache_hits_total",
				Help: "Total number of responses served fresh from cache",
			},
			[]string{"method", "endpoint"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "github_api_cache_misses_total",
				Help: "Total number of cache lookups that went upstream",
			},
			[]string{"method", "endpoint"},
		),
		cacheRevalidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "github_api_cache_revalidations_total",
				Help: "Total number of stale entries confirmed by a 304 response",
			},
			[]string{"method", "endpoint"},
		),
		cacheSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "github_api_cache_size",
				Help: "Current number of entries in cache",
			},
			[]string{"name"},
		),
		rateLimitRemaining: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "github_api_rate_limit_remaining",
				Help: "Requests remaining in the current rate limit window",
			},
		),
		rateLimitLimit: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "github_api_rate_limit_limit",
				Help: "Size of the current rate limit window",
			},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "github_api_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type", "method", "endpoint"},
		),
		clientRebuilds: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "github_api_client_rebuilds_total",
				Help: "Total number of plugin chain rebuilds",
			},
		),
		registry: registry,
	}
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	statusCodeStr := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, statusCodeStr, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, statusCodeStr, endpoint).Observe(duration.Seconds())
}

// RecordCacheHit increments cache hit counter.
func (mc *MetricsCollector) RecordCacheHit(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.cacheHits.WithLabelValues(method, endpoint).Inc()
}

// RecordCacheMiss increments cache miss counter.
func (mc *MetricsCollector) RecordCacheMiss(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.cacheMisses.WithLabelValues(method, endpoint).Inc()
}

// RecordCacheRevalidation increments the 304 revalidation counter.
func (mc *MetricsCollector) RecordCacheRevalidation(method, endpoint string) {
	if mc == nil {
		return
	}

	mc.cacheRevalidations.WithLabelValues(method, endpoint).Inc()
}

// RecordCacheSize sets cache size gauge.
func (mc *MetricsCollector) RecordCacheSize(name string, size int) {
	if mc == nil {
		return
	}

	mc.cacheSize.WithLabelValues(name).Set(float64(size))
}

// RecordRateLimit sets the rate limit gauges.
func (mc *MetricsCollector) RecordRateLimit(rl *RateLimit) {
	if mc == nil || rl == nil {
		return
	}

	mc.rateLimitRemaining.Set(float64(rl.Remaining))
	mc.rateLimitLimit.Set(float64(rl.Limit))
}

// RecordError increments error counter by type.
func (mc *MetricsCollector) RecordError(errorType, method, endpoint string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType, method, endpoint).Inc()
}

// RecordClientRebuild increments the chain rebuild counter.
func (mc *MetricsCollector) RecordClientRebuild() {
	if mc == nil {
		return
	}

	mc.clientRebuilds.Inc()
}

// GetRegistry exposes the underlying prometheus registerer.
func (mc *MetricsCollector) GetRegistry() prometheus.Registerer {
	if mc == nil {
		return nil
	}
	return mc.registry
}

// endpointFromRequest turns a request into a host and path template for
// metric labels. Query strings are dropped, and owner, repo, user,
// organization and gist names, numbers, SHAs and git refs are replaced by
// placeholders, so the label set stays bounded by the API surface.
func endpointFromRequest(req *http.Request) string {
	if req.URL == nil {
		return "unknown"
	}

	var builder strings.Builder
	builder.WriteString(req.URL.Host)

	if path := req.URL.Path; path != "" && path != "/" {
		builder.WriteString(pathTemplate(path))
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}

// namedSegments maps a collection to the placeholders of the segments that
// follow it.
var namedSegments = map[string][]string{
	"repos":       {":owner", ":repo"},
	"users":       {":user"},
	"orgs":        {":org"},
	"gists":       {":gist"},
	"teams":       {":team"},
	"followers":   {":user"},
	"following":   {":user"},
	"members":     {":user"},
	"memberships": {":user"},
}

// fixedSegments are collection members that are part of the API surface
// rather than caller data.
var fixedSegments = map[string]bool{
	"public":  true,
	"starred": true,
}

func pathTemplate(path string) string {
	segments := strings.Split(path, "/")
	for i := 0; i < len(segments); i++ {
		segment := segments[i]
		switch {
		case segment == "":
			continue
		case segment == "refs" && i+1 < len(segments):
			segments = append(segments[:i+1], ":ref")
			return strings.Join(segments, "/")
		case isNumber(segment):
			segments[i] = ":number"
			continue
		case isSHA(segment):
			segments[i] = ":sha"
			continue
		}

		placeholders, ok := namedSegments[segment]
		if !ok {
			continue
		}
		for j, placeholder := range placeholders {
			k := i + 1 + j
			if k >= len(segments) || segments[k] == "" || fixedSegments[segments[k]] {
				break
			}
			if segment == "teams" && !isNumber(segments[k]) {
				break
			}
			segments[k] = placeholder
		}
		i += len(placeholders)
	}
	return strings.Join(segments, "/")
}

func isNumber(s string) bool {
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

func isSHA(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
