package github

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransport answers every request with respond (200 "{}" when nil)
// and keeps a clone of each request it saw.
type recordingTransport struct {
	mu       sync.Mutex
	requests []*http.Request
	respond  func(*http.Request) *http.Response
}

func (rt *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	rt.requests = append(rt.requests, req.Clone(req.Context()))
	rt.mu.Unlock()

	if rt.respond != nil {
		return rt.respond(req), nil
	}
	return newResponse(req, http.StatusOK, "{}", nil), nil
}

func (rt *recordingTransport) calls() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.requests)
}

func (rt *recordingTransport) last() *http.Request {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(rt.requests) == 0 {
		return nil
	}
	return rt.requests[len(rt.requests)-1]
}

func newResponse(req *http.Request, status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// tagPlugin appends its name to the X-Trace header on the way in.
type tagPlugin struct {
	kind PluginKind
	name string
	hits int
}

func (p *tagPlugin) Kind() PluginKind { return p.kind }

func (p *tagPlugin) Handle(req *http.Request, next RoundTripper) (*http.Response, error) {
	p.hits++
	req.Header.Add("X-Trace", p.name)
	return next.RoundTrip(req)
}

func kindsOf(plugins []Plugin) []PluginKind {
	kinds := make([]PluginKind, len(plugins))
	for i, p := range plugins {
		kinds[i] = p.Kind()
	}
	return kinds
}

func TestNewHTTPClientBuilder(t *testing.T) {
	b := NewHTTPClientBuilder(nil)

	require.NotNil(t, b.Transport(), "nil transport should fall back to a default")
	assert.Equal(t, 0, b.Len())
	assert.True(t, b.IsModified(), "a builder that never built is stale")
}

func TestBuilderAddPluginKeepsDuplicates(t *testing.T) {
	b := NewHTTPClientBuilder(&recordingTransport{})

	b.AddPlugin(&tagPlugin{kind: KindHeaderDefaults, name: "a"})
	b.AddPlugin(&tagPlugin{kind: KindHeaderDefaults, name: "b"})
	b.AddPlugin(nil)

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []PluginKind{KindHeaderDefaults, KindHeaderDefaults}, kindsOf(b.Plugins()))
}

func TestBuilderReplacePlugin(t *testing.T) {
	tests := []struct {
		name     string
		setup    []Plugin
		replace  Plugin
		expected []string
	}{
		{
			name:     "appends when kind is absent",
			setup:    []Plugin{&tagPlugin{kind: KindAddHost, name: "host"}},
			replace:  &tagPlugin{kind: KindAuthentication, name: "auth"},
			expected: []string{"host", "auth"},
		},
		{
			name: "keeps position of replaced plugin",
			setup: []Plugin{
				&tagPlugin{kind: KindAddHost, name: "host"},
				&tagPlugin{kind: KindAuthentication, name: "auth-1"},
				&tagPlugin{kind: KindHistory, name: "history"},
			},
			replace:  &tagPlugin{kind: KindAuthentication, name: "auth-2"},
			expected: []string{"host", "auth-2", "history"},
		},
		{
			name: "collapses duplicates into one",
			setup: []Plugin{
				&tagPlugin{kind: KindHeaderAppend, name: "h-1"},
				&tagPlugin{kind: KindAddHost, name: "host"},
				&tagPlugin{kind: KindHeaderAppend, name: "h-2"},
			},
			replace:  &tagPlugin{kind: KindHeaderAppend, name: "h-3"},
			expected: []string{"h-3", "host"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewHTTPClientBuilder(&recordingTransport{})
			for _, p := range tt.setup {
				b.AddPlugin(p)
			}

			b.ReplacePlugin(tt.replace)

			var names []string
			for _, p := range b.Plugins() {
				names = append(names, p.(*tagPlugin).name)
			}
			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestBuilderReplaceKeepsOnePerKind(t *testing.T) {
	b := NewHTTPClientBuilder(&recordingTransport{})
	b.AddPlugin(&tagPlugin{kind: KindCache, name: "c-0"})
	b.AddPlugin(&tagPlugin{kind: KindCache, name: "c-1"})

	for i := 0; i < 10; i++ {
		b.ReplacePlugin(&tagPlugin{kind: KindCache, name: "c"})
		b.AddPlugin(&tagPlugin{kind: KindHistory, name: "h"})
		b.ReplacePlugin(&tagPlugin{kind: KindCache, name: "c"})
	}

	count := 0
	for _, p := range b.Plugins() {
		if p.Kind() == KindCache {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestBuilderRemovePlugin(t *testing.T) {
	b := NewHTTPClientBuilder(&recordingTransport{})
	b.AddPlugin(&tagPlugin{kind: KindAddHost, name: "host"})
	b.AddPlugin(&tagPlugin{kind: KindCache, name: "c-1"})
	b.AddPlugin(&tagPlugin{kind: KindCache, name: "c-2"})
	b.BuildClient()

	assert.False(t, b.RemovePlugin(KindAuthentication))
	assert.False(t, b.IsModified(), "removing an absent kind must not dirty the builder")

	assert.True(t, b.RemovePlugin(KindCache))
	assert.True(t, b.IsModified())
	assert.False(t, b.HasPlugin(KindCache))
	assert.Equal(t, []PluginKind{KindAddHost}, kindsOf(b.Plugins()))
}

func TestBuilderIsModified(t *testing.T) {
	b := NewHTTPClientBuilder(&recordingTransport{})
	b.BuildClient()
	require.False(t, b.IsModified())

	// Ordered: remove needs the plugin added before it.
	mutations := []struct {
		name   string
		mutate func()
	}{
		{"add", func() { b.AddPlugin(&tagPlugin{kind: KindHistory}) }},
		{"replace", func() { b.ReplacePlugin(&tagPlugin{kind: KindHistory}) }},
		{"remove", func() { b.RemovePlugin(KindHistory) }},
		{"transport", func() { b.SetTransport(&recordingTransport{}) }},
	}
	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			before := b.Revision()
			m.mutate()
			assert.True(t, b.IsModified())
			assert.Greater(t, b.Revision(), before)

			b.BuildClient()
			assert.False(t, b.IsModified())
		})
	}
}

func TestComposedClientOrder(t *testing.T) {
	transport := &recordingTransport{}
	b := NewHTTPClientBuilder(transport)
	b.AddPlugin(&tagPlugin{kind: KindErrorThrower, name: "outer"})
	b.AddPlugin(&tagPlugin{kind: KindHistory, name: "middle"})
	b.AddPlugin(&tagPlugin{kind: KindAddHost, name: "inner"})

	composed := b.BuildClient()
	req, err := http.NewRequest(http.MethodGet, "https://api.github.com/user", nil)
	require.NoError(t, err)

	resp, err := composed.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, []string{"outer", "middle", "inner"}, transport.last().Header.Values("X-Trace"))
	assert.Equal(t, []PluginKind{KindErrorThrower, KindHistory, KindAddHost}, composed.Kinds())
	assert.Equal(t, b.Revision(), composed.Revision())
}

func TestComposedClientIsImmutable(t *testing.T) {
	transport := &recordingTransport{}
	b := NewHTTPClientBuilder(transport)
	b.AddPlugin(&tagPlugin{kind: KindHistory, name: "first"})
	composed := b.BuildClient()

	b.AddPlugin(&tagPlugin{kind: KindAddHost, name: "second"})

	req, _ := http.NewRequest(http.MethodGet, "https://api.github.com/", nil)
	_, err := composed.Do(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, transport.last().Header.Values("X-Trace"))
}
