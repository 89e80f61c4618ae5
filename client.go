package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public GitHub API root.
const DefaultBaseURL = "https://api.github.com/"

// DefaultAPIVersion is the API version used when none is configured.
const DefaultAPIVersion = "v3"

// Client is the entry point to the GitHub API. Every call goes through a
// plugin chain built from an HTTPClientBuilder; configuration calls such as
// Authenticate or AddHeaders change the chain, and the composed client is
// rebuilt lazily on the next request.
//
// A Client is meant to be used from one goroutine at a time. Configuration
// calls must not run concurrently with requests.
type Client struct {
	builder  *HTTPClientBuilder
	composed *ComposedClient
	history  *History
	headers  http.Header

	rawBaseURL    string
	baseURL       *url.URL
	apiVersion    string
	userAgent     string
	enterpriseURL string

	httpClient   *http.Client
	transport    RoundTripper
	timeout      time.Duration
	maxRedirects int

	cache        Cache
	cacheOptions []CacheOption
	auth         *authConfig

	metrics        *MetricsCollector
	logger         Logger
	requestLogging bool

	validationError error
}

type authConfig struct {
	identifier string
	secret     string
	method     string
}

// New constructs a Client using the provided functional options. Problems
// with the options do not fail construction; call IsValid / ValidationError
// to inspect them.
func New(options ...Option) *Client {
	client := &Client{
		history:      NewHistory(),
		headers:      make(http.Header),
		rawBaseURL:   DefaultBaseURL,
		apiVersion:   DefaultAPIVersion,
		userAgent:    DefaultUserAgent(),
		timeout:      30 * time.Second,
		maxRedirects: DefaultMaxRedirects,
		logger:       NopLogger{},
	}

	for _, option := range options {
		option(client)
	}
	if client.logger == nil {
		client.logger = NopLogger{}
	}

	var errs []error
	if err := client.ValidateConfiguration(); err != nil {
		errs = append(errs, err)
	}
	if err := client.install(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		client.validationError = errs[0]
	}

	return client
}

// install builds the initial chain. Outermost first: metrics see the
// classified error, error translation sees the final status, history records
// the final exchange, redirects are followed below all of them.
func (c *Client) install() error {
	base, err := url.Parse(c.rawBaseURL)
	if err != nil || base.Host == "" {
		base, _ = url.Parse(DefaultBaseURL)
	}
	c.baseURL = base

	c.builder = NewHTTPClientBuilder(c.rawTransport())
	if c.metrics != nil {
		c.builder.AddPlugin(NewMetricsPlugin(c.metrics))
	}
	c.builder.AddPlugin(NewErrorThrowerPlugin(c.logger))
	c.builder.AddPlugin(NewHistoryPlugin(c.history))
	if c.requestLogging {
		c.builder.AddPlugin(NewLoggingPlugin(c.logger))
	}
	c.builder.AddPlugin(NewRedirectPlugin(c.maxRedirects))
	c.builder.AddPlugin(&AddHostPlugin{Host: base})
	if c.userAgent != "" {
		c.builder.AddPlugin(NewHeaderDefaultsPlugin(map[string]string{"User-Agent": c.userAgent}))
	}
	c.headers.Set("Accept", c.acceptHeader())
	c.builder.AddPlugin(NewHeaderAppendPlugin(c.headers))

	if c.enterpriseURL != "" {
		if err := c.SetEnterpriseURL(c.enterpriseURL); err != nil {
			return err
		}
	}
	if c.auth != nil {
		if err := c.Authenticate(c.auth.identifier, c.auth.secret, c.auth.method); err != nil {
			return err
		}
	}
	if c.cache != nil {
		c.AddCache(c.cache, c.cacheOptions...)
	}
	return nil
}

func (c *Client) rawTransport() RoundTripper {
	if c.transport != nil {
		return c.transport
	}
	if c.httpClient != nil {
		return RoundTripperFunc(c.httpClient.Do)
	}
	httpClient := &http.Client{
		Timeout: c.timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return RoundTripperFunc(httpClient.Do)
}

func (c *Client) acceptHeader() string {
	return fmt.Sprintf("application/vnd.github.%s+json", c.apiVersion)
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// Authenticate installs or replaces the authentication plugin.
//
// method is one of AuthURLToken, AuthURLClientID, AuthHTTPPassword or
// AuthHTTPToken. When method is empty and secret is one of those values,
// secret is taken as the method. When both are empty the call fails;
// otherwise an empty method means AuthHTTPPassword.
func (c *Client) Authenticate(identifier, secret, method string) error {
	if secret == "" && method == "" {
		return invalidArgument("you need to specify an authentication method")
	}
	if method == "" && isAuthMethod(secret) {
		method, secret = secret, ""
	}
	if method == "" {
		method = AuthHTTPPassword
	}

	plugin, err := NewAuthenticationPlugin(identifier, secret, method)
	if err != nil {
		return err
	}
	plugin.Host = c.apiHost()
	c.builder.ReplacePlugin(plugin)
	return nil
}

// apiHost is the host credentials are sent to.
func (c *Client) apiHost() string {
	if p, ok := c.builder.Plugin(KindAddHost).(*AddHostPlugin); ok && p.Host != nil {
		return p.Host.Host
	}
	return c.baseURL.Host
}

// SetEnterpriseURL points the client at a GitHub Enterprise host: requests
// go to that host and their path is prefixed with /api/<version>.
func (c *Client) SetEnterpriseURL(rawURL string) error {
	host, err := NewAddHostPlugin(rawURL, false)
	if err != nil {
		return err
	}

	c.builder.ReplacePlugin(host)
	c.builder.ReplacePlugin(NewPathPrependPlugin("/api/"+c.apiVersion, host.Host.Host))
	if auth, ok := c.builder.Plugin(KindAuthentication).(*AuthenticationPlugin); ok {
		signed := *auth
		signed.Host = host.Host.Host
		c.builder.ReplacePlugin(&signed)
	}
	c.enterpriseURL = rawURL
	return nil
}

// AddCache installs or replaces the cache plugin. A nil store gets a fresh
// in-memory cache.
func (c *Client) AddCache(store Cache, options ...CacheOption) {
	if store == nil {
		store = NewInMemoryCache()
	}
	plugin := NewCachePlugin(store, options...)
	plugin.Metrics = c.metrics

	c.cache = store
	c.cacheOptions = options
	c.builder.ReplacePlugin(plugin)
}

// RemoveCache uninstalls the cache plugin.
func (c *Client) RemoveCache() {
	c.cache = nil
	c.cacheOptions = nil
	c.builder.RemovePlugin(KindCache)
}

// ClearHeaders resets the default header set to the Accept header alone.
func (c *Client) ClearHeaders() {
	c.headers = http.Header{}
	c.headers.Set("Accept", c.acceptHeader())
	c.builder.ReplacePlugin(NewHeaderAppendPlugin(c.headers))
}

// AddHeaders merges headers into the default header set. The Accept header
// always reflects the API version.
func (c *Client) AddHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers.Set(key, value)
	}
	c.headers.Set("Accept", c.acceptHeader())
	c.builder.ReplacePlugin(NewHeaderAppendPlugin(c.headers))
}

// Headers returns a copy of the default header set.
func (c *Client) Headers() http.Header {
	return c.headers.Clone()
}

// APIVersion returns the configured API version.
func (c *Client) APIVersion() string {
	return c.apiVersion
}

// BaseURL returns the API root requests are resolved against.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// Builder exposes the plugin chain for custom plugins.
func (c *Client) Builder() *HTTPClientBuilder {
	return c.builder
}

// History returns the exchange history.
func (c *Client) History() *History {
	return c.history
}

// LastResponse returns the response of the last completed request.
func (c *Client) LastResponse() *http.Response {
	return c.history.LastResponse()
}

// HTTPClient returns the composed client, rebuilding it when the chain
// changed since it was last built.
func (c *Client) HTTPClient() *ComposedClient {
	if c.composed == nil || c.composed.Revision() != c.builder.Revision() {
		c.composed = c.builder.BuildClient()
		c.metrics.RecordClientRebuild()
		c.logger.Debug("Rebuilt HTTP client",
			"revision", c.composed.Revision(),
			"plugins", kindNames(c.composed.Kinds()))
	}
	return c.composed
}

// Get performs a GET request. params are encoded into the query string.
func (c *Client) Get(ctx context.Context, path string, params url.Values, headers http.Header) (*http.Response, error) {
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path += sep + params.Encode()
	}
	return c.Request(ctx, path, nil, http.MethodGet, headers)
}

// Head performs a HEAD request.
func (c *Client) Head(ctx context.Context, path string, headers http.Header) (*http.Response, error) {
	return c.Request(ctx, path, nil, http.MethodHead, headers)
}

// Post performs a POST request; see Client.Request for body handling.
func (c *Client) Post(ctx context.Context, path string, body any, headers http.Header) (*http.Response, error) {
	return c.send(ctx, http.MethodPost, path, body, headers)
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body any, headers http.Header) (*http.Response, error) {
	return c.send(ctx, http.MethodPut, path, body, headers)
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body any, headers http.Header) (*http.Response, error) {
	return c.send(ctx, http.MethodPatch, path, body, headers)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, body any, headers http.Header) (*http.Response, error) {
	return c.send(ctx, http.MethodDelete, path, body, headers)
}

func (c *Client) send(ctx context.Context, method, path string, body any, headers http.Header) (*http.Response, error) {
	reader, contentType, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	if contentType != "" && headers.Get("Content-Type") == "" {
		headers = mergeHeaders(headers, http.Header{"Content-Type": {contentType}})
	}
	return c.Request(ctx, path, reader, method, headers)
}

// Request sends a request for path through the plugin chain and returns the
// raw response. path is relative to the base URL; a leading slash is
// optional. headers are layered over the default header set, with per-call
// values winning. Responses with an error status come back together with a
// *ClientError describing them.
func (c *Client) Request(ctx context.Context, path string, body io.Reader, method string, headers http.Header) (*http.Response, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, invalidArgument("cannot build request: %v", err)
	}
	req.Header = mergeHeaders(c.headers, headers)

	return c.HTTPClient().Do(req)
}

// resolve joins path onto the base URL path. The result carries no host;
// AddHostPlugin supplies it.
func (c *Client) resolve(path string) (string, error) {
	rel, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", invalidArgument("invalid path %q: %v", path, err)
	}
	if rel.IsAbs() || rel.Host != "" {
		return "", invalidArgument("path %q must be relative to the API root", path)
	}

	escaped := strings.TrimRight(c.baseURL.EscapedPath(), "/") + "/" + rel.EscapedPath()
	unescaped, err := url.PathUnescape(escaped)
	if err != nil {
		return "", invalidArgument("invalid path %q: %v", path, err)
	}
	u := url.URL{
		Path:     unescaped,
		RawPath:  escaped,
		RawQuery: rel.RawQuery,
	}
	return u.String(), nil
}

// encodeBody turns a request body into a reader. Readers, byte slices and
// strings are sent as they are; other values are JSON encoded.
func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", invalidArgument("cannot encode request body: %v", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// DecodeJSON decodes the body of resp into v and closes it.
func DecodeJSON(resp *http.Response, v any) error {
	if resp == nil || resp.Body == nil {
		return invalidArgument("response has no body")
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil && err != io.EOF {
		if resp.Request != nil && resp.Request.URL != nil {
			return fmt.Errorf("decode %s response: %w", resp.Request.URL.Path, err)
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func kindNames(kinds []PluginKind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}
