package github

import (
	"errors"
	"net/http"
	"time"
)

// MetricsPlugin records request counts, durations, errors and the GitHub
// rate limit headers into a MetricsCollector.
type MetricsPlugin struct {
	Collector *MetricsCollector
}

// NewMetricsPlugin creates a plugin reporting to collector.
func NewMetricsPlugin(collector *MetricsCollector) *MetricsPlugin {
	return &MetricsPlugin{Collector: collector}
}

func (p *MetricsPlugin) Kind() PluginKind { return KindMetrics }

func (p *MetricsPlugin) Handle(req *http.Request, next RoundTripper) (*http.Response, error) {
	start := time.Now()
	resp, err := next.RoundTrip(req)
	endpoint := endpointFromRequest(req)

	if err != nil {
		errorType := ErrorTypeNetwork
		var clientErr *ClientError
		if errors.As(err, &clientErr) {
			errorType = clientErr.Type
		}
		p.Collector.RecordError(errorType, req.Method, endpoint)
	}

	if resp != nil {
		p.Collector.RecordRequest(req.Method, endpoint, resp.StatusCode, time.Since(start))
		p.Collector.RecordRateLimit(parseRateLimit(resp.Header))
	}
	return resp, err
}

// LoggingPlugin logs every exchange at debug level.
type LoggingPlugin struct {
	Logger Logger
}

// NewLoggingPlugin creates a plugin logging to logger.
func NewLoggingPlugin(logger Logger) *LoggingPlugin {
	return &LoggingPlugin{Logger: logger}
}

func (p *LoggingPlugin) Kind() PluginKind { return KindLogging }

func (p *LoggingPlugin) Handle(req *http.Request, next RoundTripper) (*http.Response, error) {
	start := time.Now()
	resp, err := next.RoundTrip(req)
	if p.Logger == nil {
		return resp, err
	}

	if err != nil {
		p.Logger.Warn("Request failed",
			"method", req.Method,
			"url", req.URL.String(),
			"duration", time.Since(start),
			"error", err.Error())
		return resp, err
	}

	p.Logger.Debug("Request completed",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"cache", resp.Header.Get(CacheStatusHeader))
	return resp, nil
}
