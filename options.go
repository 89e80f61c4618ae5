package github

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WithBaseURL sets the API root requests are resolved against.
func WithBaseURL(rawURL string) Option {
	return func(c *Client) {
		c.rawBaseURL = rawURL
	}
}

// WithAPIVersion sets the API version; it selects the Accept media type and
// the enterprise path prefix.
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		c.apiVersion = version
	}
}

// WithUserAgent sets the User-Agent header. An empty string sends none.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithEnterpriseURL targets a GitHub Enterprise host.
func WithEnterpriseURL(rawURL string) Option {
	return func(c *Client) {
		c.enterpriseURL = rawURL
	}
}

// WithHTTPClient sets a custom HTTP client as the raw transport
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
		c.transport = nil
		if c.timeout != 0 && client != nil {
			c.httpClient.Timeout = c.timeout
		}
	}
}

// WithTransport sets the raw transport. The same transport may be shared by
// several clients.
func WithTransport(transport RoundTripper) Option {
	return func(c *Client) {
		c.transport = transport
		c.httpClient = nil
	}
}

// WithTimeout sets the request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithCache enables caching with the default in-memory cache
func WithCache(ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = NewInMemoryCache()
		c.cacheOptions = []CacheOption{WithCacheTTL(ttl)}
	}
}

// WithCustomCache sets a custom cache implementation
func WithCustomCache(cache Cache, options ...CacheOption) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheOptions = options
	}
}

// WithMetrics enables Prometheus metrics collection
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets the logger
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRequestLogging logs every exchange at debug level.
func WithRequestLogging() Option {
	return func(c *Client) {
		c.requestLogging = true
	}
}

// WithAuthentication authenticates the client at construction; see
// Client.Authenticate for the argument rules.
func WithAuthentication(identifier, secret, method string) Option {
	return func(c *Client) {
		c.auth = &authConfig{identifier: identifier, secret: secret, method: method}
	}
}

// WithMaxRedirects sets how many redirects are followed.
func WithMaxRedirects(n int) Option {
	return func(c *Client) {
		c.maxRedirects = n
	}
}

// ValidateConfiguration validates the client configuration and returns an error if invalid
func (c *Client) ValidateConfiguration() error {
	var errors []string

	errors = append(errors, c.validateBaseURL()...)
	errors = append(errors, c.validateAPIConfig()...)
	errors = append(errors, c.validateTransportConfig()...)

	if len(errors) > 0 {
		return &ClientError{
			Type:      ErrorTypeInvalidArgument,
			Message:   "configuration validation failed",
			Cause:     fmt.Errorf("validation errors: %s", strings.Join(errors, "; ")),
			Timestamp: time.Now(),
		}
	}

	return nil
}

func (c *Client) validateBaseURL() []string {
	var errors []string

	u, err := url.Parse(c.rawBaseURL)
	if err != nil {
		return append(errors, fmt.Sprintf("base url %q: %v", c.rawBaseURL, err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("base url %q must use http or https", c.rawBaseURL))
	}
	if u.Host == "" {
		errors = append(errors, fmt.Sprintf("base url %q has no host", c.rawBaseURL))
	}

	return errors
}

func (c *Client) validateAPIConfig() []string {
	var errors []string

	if c.apiVersion == "" {
		errors = append(errors, "api version cannot be empty")
	}
	if strings.ContainsAny(c.apiVersion, "/ ") {
		errors = append(errors, fmt.Sprintf("api version %q must be a single path segment", c.apiVersion))
	}

	return errors
}

func (c *Client) validateTransportConfig() []string {
	var errors []string

	if c.timeout < 0 {
		errors = append(errors, "timeout must not be negative")
	}
	if c.maxRedirects < 0 {
		errors = append(errors, "maxRedirects must not be negative")
	}
	if c.builder != nil && c.builder.Transport() == nil {
		errors = append(errors, "transport cannot be nil")
	}

	return errors
}
