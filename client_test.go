package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, options ...Option) (*Client, *recordingTransport) {
	t.Helper()
	transport := &recordingTransport{}
	client := New(append([]Option{WithTransport(transport)}, options...)...)
	require.True(t, client.IsValid(), "unexpected validation error: %v", client.ValidationError())
	return client, transport
}

func TestNew(t *testing.T) {
	client := New()

	assert.True(t, client.IsValid())
	assert.Equal(t, "api.github.com", client.BaseURL().Host)
	assert.Equal(t, "v3", client.APIVersion())
	assert.Equal(t, "application/vnd.github.v3+json", client.Headers().Get("Accept"))
	assert.Equal(t,
		[]PluginKind{KindErrorThrower, KindHistory, KindRedirect, KindAddHost, KindHeaderDefaults, KindHeaderAppend},
		kindsOf(client.Builder().Plugins()))
}

func TestNewWithInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		options []Option
	}{
		{"relative base url", []Option{WithBaseURL("api.github.com")}},
		{"unsupported scheme", []Option{WithBaseURL("ftp://api.github.com/")}},
		{"empty api version", []Option{WithAPIVersion("")}},
		{"negative redirects", []Option{WithMaxRedirects(-1)}},
		{"bad enterprise url", []Option{WithEnterpriseURL("not a url")}},
		{"unknown auth method", []Option{WithAuthentication("id", "secret", "oauth")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(tt.options...)

			assert.False(t, client.IsValid())
			assert.True(t, errors.Is(client.ValidationError(), ErrInvalidArgument))
		})
	}
}

func TestClientGetUsesDefaultHost(t *testing.T) {
	client, transport := newTestClient(t)

	resp, err := client.Get(context.Background(), "/user", nil, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	req := transport.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "https://api.github.com/user", req.URL.String())
	assert.Equal(t, DefaultUserAgent(), req.Header.Get("User-Agent"))
	assert.Equal(t, "application/vnd.github.v3+json", req.Header.Get("Accept"))
}

func TestClientPathNormalisation(t *testing.T) {
	tests := []struct {
		baseURL  string
		path     string
		params   url.Values
		expected string
	}{
		{"https://api.github.com/", "user", nil, "https://api.github.com/user"},
		{"https://api.github.com", "/user/", nil, "https://api.github.com/user/"},
		{"https://example.com/github/", "/repos/a/b", nil, "https://example.com/github/repos/a/b"},
		{"https://api.github.com/", "/users", url.Values{"since": {"10"}}, "https://api.github.com/users?since=10"},
		{"https://api.github.com/", "/search/code?q=x", url.Values{"page": {"2"}}, "https://api.github.com/search/code?q=x&page=2"},
	}

	for _, tt := range tests {
		t.Run(tt.baseURL+tt.path, func(t *testing.T) {
			client, transport := newTestClient(t, WithBaseURL(tt.baseURL))

			_, err := client.Get(context.Background(), tt.path, tt.params, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, transport.last().URL.String())
		})
	}
}

func TestClientRejectsAbsolutePath(t *testing.T) {
	client, transport := newTestClient(t)

	_, err := client.Get(context.Background(), "https://evil.example.com/user", nil, nil)

	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Equal(t, 0, transport.calls())
}

func TestClientAuthenticate(t *testing.T) {
	basic := func(user, pass string) string {
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
	}

	tests := []struct {
		name          string
		identifier    string
		secret        string
		method        string
		wantErr       bool
		authorization string
		query         url.Values
	}{
		{name: "missing secret and method", identifier: "token", wantErr: true},
		{name: "unknown method", identifier: "token", secret: "x", method: "oauth", wantErr: true},
		{name: "method inferred from secret", identifier: "abc", secret: AuthHTTPToken, authorization: "token abc"},
		{name: "password is default", identifier: "octocat", secret: "hunter2", authorization: basic("octocat", "hunter2")},
		{name: "explicit http token", identifier: "abc", method: AuthHTTPToken, authorization: "token abc"},
		{name: "url token", identifier: "abc", secret: AuthURLToken, query: url.Values{"access_token": {"abc"}}},
		{
			name:       "url client id",
			identifier: "id",
			secret:     "shh",
			method:     AuthURLClientID,
			query:      url.Values{"client_id": {"id"}, "client_secret": {"shh"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, transport := newTestClient(t)

			err := client.Authenticate(tt.identifier, tt.secret, tt.method)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidArgument))
				assert.False(t, client.Builder().HasPlugin(KindAuthentication))
				return
			}
			require.NoError(t, err)

			_, err = client.Get(context.Background(), "/user", nil, nil)
			require.NoError(t, err)

			req := transport.last()
			assert.Equal(t, tt.authorization, req.Header.Get("Authorization"))
			for key := range tt.query {
				assert.Equal(t, tt.query.Get(key), req.URL.Query().Get(key))
			}
		})
	}
}

func TestClientAuthenticateReplaces(t *testing.T) {
	client, transport := newTestClient(t)

	require.NoError(t, client.Authenticate("first", AuthHTTPToken, ""))
	require.NoError(t, client.Authenticate("second", AuthHTTPToken, ""))

	_, err := client.Get(context.Background(), "/user", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "token second", transport.last().Header.Get("Authorization"))
	count := 0
	for _, p := range client.Builder().Plugins() {
		if p.Kind() == KindAuthentication {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestClientHeaders(t *testing.T) {
	t.Run("clear then add leaves exactly two headers", func(t *testing.T) {
		client, transport := newTestClient(t, WithUserAgent(""))

		client.ClearHeaders()
		client.AddHeaders(map[string]string{"X-Foo": "bar"})

		_, err := client.Get(context.Background(), "/user", nil, nil)
		require.NoError(t, err)

		header := transport.last().Header
		assert.Len(t, header, 2)
		assert.Equal(t, "application/vnd.github.v3+json", header.Get("Accept"))
		assert.Equal(t, "bar", header.Get("X-Foo"))
	})

	t.Run("accept always follows the api version", func(t *testing.T) {
		client, _ := newTestClient(t, WithAPIVersion("beta"))

		client.AddHeaders(map[string]string{"Accept": "text/plain"})

		assert.Equal(t, "application/vnd.github.beta+json", client.Headers().Get("Accept"))
	})

	t.Run("per call headers win", func(t *testing.T) {
		client, transport := newTestClient(t)
		client.AddHeaders(map[string]string{"X-Foo": "default", "X-Bar": "kept"})

		_, err := client.Get(context.Background(), "/user", nil, http.Header{"X-Foo": {"call"}})
		require.NoError(t, err)

		header := transport.last().Header
		assert.Equal(t, []string{"call"}, header.Values("X-Foo"))
		assert.Equal(t, "kept", header.Get("X-Bar"))
	})

	t.Run("header plugin is never duplicated", func(t *testing.T) {
		client, _ := newTestClient(t)

		client.AddHeaders(map[string]string{"X-A": "1"})
		client.AddHeaders(map[string]string{"X-B": "2"})
		client.ClearHeaders()

		count := 0
		for _, p := range client.Builder().Plugins() {
			if p.Kind() == KindHeaderAppend {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})
}

func TestClientEnterpriseURL(t *testing.T) {
	t.Run("from options", func(t *testing.T) {
		client, transport := newTestClient(t, WithEnterpriseURL("https://ghe.example.com"))

		_, err := client.Get(context.Background(), "/user", nil, nil)
		require.NoError(t, err)

		assert.Equal(t, "https://ghe.example.com/api/v3/user", transport.last().URL.String())
	})

	t.Run("set later keeps credentials on the new host", func(t *testing.T) {
		client, transport := newTestClient(t)
		require.NoError(t, client.Authenticate("abc", AuthHTTPToken, ""))

		require.NoError(t, client.SetEnterpriseURL("https://ghe.example.com/"))
		_, err := client.Get(context.Background(), "user", nil, nil)
		require.NoError(t, err)

		req := transport.last()
		assert.Equal(t, "https://ghe.example.com/api/v3/user", req.URL.String())
		assert.Equal(t, "token abc", req.Header.Get("Authorization"))
	})

	t.Run("set twice does not double the prefix", func(t *testing.T) {
		client, transport := newTestClient(t)
		require.NoError(t, client.SetEnterpriseURL("https://old.example.com"))
		require.NoError(t, client.SetEnterpriseURL("https://new.example.com"))

		_, err := client.Get(context.Background(), "/user", nil, nil)
		require.NoError(t, err)

		assert.Equal(t, "https://new.example.com/api/v3/user", transport.last().URL.String())
	})

	t.Run("invalid url", func(t *testing.T) {
		client, _ := newTestClient(t)

		err := client.SetEnterpriseURL("/relative")

		assert.True(t, errors.Is(err, ErrInvalidArgument))
	})
}

func TestClientReusesComposedClient(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewMetricsCollectorWithRegistry(registry)
	client, transport := newTestClient(t, WithMetricsCollector(collector))
	counter := &tagPlugin{kind: KindLogging, name: "count"}
	client.Builder().AddPlugin(counter)

	first := client.HTTPClient()
	assert.Same(t, first, client.HTTPClient())

	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), "/user", nil, nil)
		require.NoError(t, err)
	}
	assert.Same(t, first, client.HTTPClient())
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.clientRebuilds))
	assert.Equal(t, 3, counter.hits)
	assert.Equal(t, 3, transport.calls())

	client.AddHeaders(map[string]string{"X-Foo": "bar"})
	second := client.HTTPClient()
	assert.NotSame(t, first, second)
	assert.Equal(t, float64(2), testutil.ToFloat64(collector.clientRebuilds))
}

func TestClientHistory(t *testing.T) {
	client, _ := newTestClient(t)

	resp, err := client.Get(context.Background(), "/user", nil, nil)
	require.NoError(t, err)

	assert.Same(t, resp, client.LastResponse())
	assert.Equal(t, "/user", client.History().LastRequest().URL.Path)
}

func TestClientErrorStatuses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		header   http.Header
		body     string
		sentinel error
	}{
		{"not found", http.StatusNotFound, nil, `{"message":"Not Found"}`, ErrNotFound},
		{"rate limited", http.StatusForbidden, http.Header{"X-Ratelimit-Remaining": {"0"}, "X-Ratelimit-Limit": {"60"}}, "", ErrRateLimitExceeded},
		{"too many requests", http.StatusTooManyRequests, nil, "", ErrRateLimitExceeded},
		{"server error", http.StatusBadGateway, nil, "", ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &recordingTransport{respond: func(req *http.Request) *http.Response {
				return newResponse(req, tt.status, tt.body, tt.header.Clone())
			}}
			client := New(WithTransport(transport))

			resp, err := client.Get(context.Background(), "/repos/o/r", nil, nil)

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Same(t, resp, client.LastResponse())
		})
	}
}

func TestClientPostEncodesJSON(t *testing.T) {
	var received map[string]any
	var contentType string
	transport := &recordingTransport{respond: func(req *http.Request) *http.Response {
		contentType = req.Header.Get("Content-Type")
		data, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(data, &received)
		return newResponse(req, http.StatusCreated, `{"id":1}`, nil)
	}}
	client := New(WithTransport(transport))

	resp, err := client.Post(context.Background(), "/repos/o/r/issues", map[string]any{"title": "bug"}, nil)
	require.NoError(t, err)

	var out struct{ ID int }
	require.NoError(t, DecodeJSON(resp, &out))
	assert.Equal(t, 1, out.ID)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "bug", received["title"])
}

func TestDecodeJSONErrors(t *testing.T) {
	var v map[string]any

	err := DecodeJSON(&http.Response{Body: io.NopCloser(strings.NewReader("{bad"))}, &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")

	req := mustRequest(t, http.MethodGet, "https://api.github.com/user", nil)
	err = DecodeJSON(newResponse(req, http.StatusOK, "{bad", nil), &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode /user response")

	assert.NoError(t, DecodeJSON(&http.Response{Body: io.NopCloser(strings.NewReader(""))}, &v))
	assert.ErrorIs(t, DecodeJSON(nil, &v), ErrInvalidArgument)
}

func TestClientMethods(t *testing.T) {
	client, transport := newTestClient(t)
	ctx := context.Background()

	calls := []struct {
		method string
		call   func() (*http.Response, error)
	}{
		{http.MethodPut, func() (*http.Response, error) { return client.Put(ctx, "/a", "raw", nil) }},
		{http.MethodPatch, func() (*http.Response, error) { return client.Patch(ctx, "/a", []byte("raw"), nil) }},
		{http.MethodDelete, func() (*http.Response, error) { return client.Delete(ctx, "/a", nil, nil) }},
		{http.MethodHead, func() (*http.Response, error) { return client.Head(ctx, "/a", nil) }},
	}

	for _, c := range calls {
		_, err := c.call()
		require.NoError(t, err)
		req := transport.last()
		assert.Equal(t, c.method, req.Method)
		assert.Empty(t, req.Header.Get("Content-Type"))
	}
}

func TestClientCache(t *testing.T) {
	client, transport := newTestClient(t)

	client.AddCache(nil)
	client.AddCache(NewInMemoryCache())
	assert.True(t, client.Builder().HasPlugin(KindCache))

	for i := 0; i < 2; i++ {
		resp, err := client.Get(context.Background(), "/meta", nil, nil)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	assert.Equal(t, 1, transport.calls())

	client.RemoveCache()
	assert.False(t, client.Builder().HasPlugin(KindCache))
	_, err := client.Get(context.Background(), "/meta", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, transport.calls())
}
