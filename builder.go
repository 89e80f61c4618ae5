package github

// HTTPClientBuilder holds the ordered plugin chain and the raw transport the
// chain wraps. Every mutation bumps a revision counter; the client built from
// the chain remembers the revision it was built at, so a stale build is
// detected by comparing revisions rather than by a shared boolean.
//
// The builder is not safe for concurrent mutation.
type HTTPClientBuilder struct {
	transport     RoundTripper
	plugins       []Plugin
	revision      uint64
	builtRevision uint64
	built         bool
}

// NewHTTPClientBuilder creates a builder around transport. A nil transport
// falls back to a client that does not follow redirects on its own.
func NewHTTPClientBuilder(transport RoundTripper) *HTTPClientBuilder {
	if transport == nil {
		transport = defaultTransport()
	}
	return &HTTPClientBuilder{
		transport: transport,
		revision:  1,
	}
}

// AddPlugin appends p to the end of the chain. No uniqueness check is made:
// two plugins of the same kind may coexist when added this way.
func (b *HTTPClientBuilder) AddPlugin(p Plugin) {
	if p == nil {
		return
	}
	b.plugins = append(b.plugins, p)
	b.touch()
}

// ReplacePlugin installs p in place of the first plugin of the same kind and
// drops any further plugin of that kind. When no plugin of that kind exists,
// p is appended.
func (b *HTTPClientBuilder) ReplacePlugin(p Plugin) {
	if p == nil {
		return
	}

	kind := p.Kind()
	replaced := false
	plugins := make([]Plugin, 0, len(b.plugins)+1)
	for _, existing := range b.plugins {
		if existing.Kind() != kind {
			plugins = append(plugins, existing)
			continue
		}
		if !replaced {
			plugins = append(plugins, p)
			replaced = true
		}
	}
	if !replaced {
		plugins = append(plugins, p)
	}

	b.plugins = plugins
	b.touch()
}

// RemovePlugin deletes every plugin of the given kind. It reports whether
// anything was removed; the builder is only marked modified in that case.
func (b *HTTPClientBuilder) RemovePlugin(kind PluginKind) bool {
	plugins := b.plugins[:0:0]
	for _, existing := range b.plugins {
		if existing.Kind() != kind {
			plugins = append(plugins, existing)
		}
	}
	if len(plugins) == len(b.plugins) {
		return false
	}

	b.plugins = plugins
	b.touch()
	return true
}

// HasPlugin reports whether a plugin of the given kind is installed.
func (b *HTTPClientBuilder) HasPlugin(kind PluginKind) bool {
	return b.Plugin(kind) != nil
}

// Plugin returns the first installed plugin of the given kind, or nil.
func (b *HTTPClientBuilder) Plugin(kind PluginKind) Plugin {
	for _, p := range b.plugins {
		if p.Kind() == kind {
			return p
		}
	}
	return nil
}

// Plugins returns a copy of the chain in insertion order.
func (b *HTTPClientBuilder) Plugins() []Plugin {
	out := make([]Plugin, len(b.plugins))
	copy(out, b.plugins)
	return out
}

// Len returns the number of installed plugins.
func (b *HTTPClientBuilder) Len() int {
	return len(b.plugins)
}

// Transport returns the raw transport.
func (b *HTTPClientBuilder) Transport() RoundTripper {
	return b.transport
}

// SetTransport swaps the raw transport. The transport is shared, not owned:
// the same instance may back several builders.
func (b *HTTPClientBuilder) SetTransport(transport RoundTripper) {
	if transport == nil {
		transport = defaultTransport()
	}
	b.transport = transport
	b.touch()
}

// Revision returns the current revision. It grows on every mutation.
func (b *HTTPClientBuilder) Revision() uint64 {
	return b.revision
}

// IsModified reports whether the chain changed since the last BuildClient.
func (b *HTTPClientBuilder) IsModified() bool {
	return !b.built || b.builtRevision != b.revision
}

// BuildClient folds the transport through the chain and returns the result.
// The build is recorded, so IsModified reports false until the next mutation.
// Callers are expected to keep the result and only call BuildClient again
// when IsModified is true.
func (b *HTTPClientBuilder) BuildClient() *ComposedClient {
	composed := newComposedClient(b.transport, b.plugins, b.revision)
	b.builtRevision = b.revision
	b.built = true
	return composed
}

func (b *HTTPClientBuilder) touch() {
	b.revision++
}
