package github

import (
	"net/http"
	"time"
)

// ComposedClient is the raw transport wrapped by an ordered plugin chain. It
// is immutable once built.
type ComposedClient struct {
	handler  RoundTripper
	kinds    []PluginKind
	revision uint64
}

func newComposedClient(transport RoundTripper, plugins []Plugin, revision uint64) *ComposedClient {
	current := RoundTripper(transport)
	kinds := make([]PluginKind, len(plugins))

	// Last plugin wraps the transport first, so the first plugin ends up outermost.
	for i := len(plugins) - 1; i >= 0; i-- {
		plugin := plugins[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return plugin.Handle(r, next)
		})
		kinds[i] = plugin.Kind()
	}

	return &ComposedClient{
		handler:  current,
		kinds:    kinds,
		revision: revision,
	}
}

// Do sends req through the chain.
func (c *ComposedClient) Do(req *http.Request) (*http.Response, error) {
	return c.handler.RoundTrip(req)
}

// RoundTrip lets a ComposedClient act as the transport of another chain.
func (c *ComposedClient) RoundTrip(req *http.Request) (*http.Response, error) {
	return c.handler.RoundTrip(req)
}

// Revision returns the builder revision this client was built from.
func (c *ComposedClient) Revision() uint64 {
	return c.revision
}

// Kinds lists the plugin kinds of the chain, outermost first.
func (c *ComposedClient) Kinds() []PluginKind {
	out := make([]PluginKind, len(c.kinds))
	copy(out, c.kinds)
	return out
}

func defaultTransport() RoundTripper {
	client := &http.Client{
		Timeout: 30 * time.Second,
		// RedirectPlugin follows redirects so that they pass through the chain.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return RoundTripperFunc(client.Do)
}
